package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"legal_matter_engine/config"
	"legal_matter_engine/db"
	"legal_matter_engine/handlers"
	"legal_matter_engine/middleware"
	"legal_matter_engine/services"
	"legal_matter_engine/services/jobs"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	if err := db.Initialize(cfg.DBPath, cfg.Environment); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := db.Migrate(db.DB); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	// Engine wiring
	store := services.NewStore(db.DB, cfg.StoreTimeout)
	if _, err := services.SeedAdminFromEnv(context.Background(), store); err != nil {
		log.Printf("[WARNING] Failed to seed admin user: %v", err)
	}
	notifications := services.NewNotificationService(db.DB)
	mailer := services.NewResendMailer(cfg)
	dispatcher := services.NewDispatcher(services.DispatcherConfig{
		Workers:   cfg.DispatchWorkers,
		QueueSize: cfg.DispatchQueueSize,
		Timeout:   cfg.DispatchTimeout,
		AppURL:    cfg.AppURL,
	}, store, notifications, mailer, services.NewHTTPCRMClient(cfg.CRMBaseURL, cfg.CRMAPIKey))
	storage := services.NewStorage(cfg)

	cases := services.NewCaseService(store, services.NewCache[*services.CaseDetails](cfg.CacheSize, cfg.CacheTTL), dispatcher, storage, services.CaseServiceConfig{
		CacheTTL:    cfg.CacheTTL,
		SearchLimit: cfg.SearchLimit,
	})

	var pdf *services.PDFRenderer
	if cfg.ChromePath != "" {
		pdf = services.NewPDFRenderer(cfg.ChromePath)
	} else {
		log.Println("[WARNING] CHROME_PATH not set, PDF reports are disabled")
	}

	api := &handlers.API{
		Cases:         cases,
		Reports:       services.NewReportExporter(cases, pdf, storage),
		Notifications: notifications,
	}

	// Scheduled jobs
	scheduler, err := jobs.StartScheduler(cfg.ReminderSchedule, cfg.ReminderTimezone,
		jobs.NewOverdueReminder(store, notifications, mailer, cfg.AppURL))
	if err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(echomiddleware.RequestLogger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(echomiddleware.BodyLimit("2M"))

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	apiGroup := e.Group("/api", middleware.APIHeaders(), middleware.APIRateLimiter(), middleware.RequireActor(store))
	api.Register(apiGroup)

	// Start server
	go func() {
		log.Printf("Server starting on port %s", cfg.ServerPort)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Printf("[WARNING] HTTP shutdown: %v", err)
	}

	// Let a running reminder batch finish before closing the database
	<-scheduler.Stop().Done()
	dispatcher.Close()
	log.Println("Shutdown complete")
}
