package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"legal_matter_engine/config"
	"legal_matter_engine/db"
	"legal_matter_engine/services"

	"github.com/spf13/cobra"
	"gorm.io/gorm/logger"
)

// engine is the read side of the case engine; no events are dispatched
type engine struct {
	store    *services.Store
	exporter *services.ReportExporter
}

func openEngine(cfg *config.Config, dbPath string) (*engine, func(), error) {
	conn, err := db.Open(db.DSN(dbPath), logger.Warn)
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, nil, err
	}
	if err := db.Migrate(conn); err != nil {
		sqlDB.Close()
		return nil, nil, err
	}

	store := services.NewStore(conn, cfg.StoreTimeout)
	storage := services.NewStorage(cfg)
	cases := services.NewCaseService(store, nil, nil, storage, services.CaseServiceConfig{SearchLimit: cfg.SearchLimit})

	var pdf *services.PDFRenderer
	if cfg.ChromePath != "" {
		pdf = services.NewPDFRenderer(cfg.ChromePath)
	}
	return &engine{store: store, exporter: services.NewReportExporter(cases, pdf, storage)}, func() { sqlDB.Close() }, nil
}

// resolveCaseID accepts a case number (IMM-2024-0001) or a case ID
func (e *engine) resolveCaseID(ctx context.Context, ref string) (string, error) {
	if _, err := services.ParseCaseNumber(ref); err == nil {
		c, err := e.store.GetCaseByNumber(ctx, ref)
		if err != nil {
			return "", err
		}
		return c.ID, nil
	}
	c, err := e.store.GetCase(ctx, ref)
	if err != nil {
		return "", err
	}
	return c.ID, nil
}

func newCaseCmd() *cobra.Command {
	var (
		dbPath  string
		format  string
		outDir  string
		archive bool
	)

	cmd := &cobra.Command{
		Use:   "case <case-number|case-id>",
		Short: "Render one case report as html, pdf or xlsx",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if dbPath == "" {
				dbPath = cfg.DBPath
			}
			eng, closeFn, err := openEngine(cfg, dbPath)
			if err != nil {
				return err
			}
			defer closeFn()

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()
			return runCaseReport(ctx, cmd, eng, args[0], format, outDir, archive)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "path to the sqlite database (defaults to DB_PATH)")
	cmd.Flags().StringVarP(&format, "format", "f", services.ReportFormatHTML, "output format: html, pdf or xlsx")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "directory to write the report to")
	cmd.Flags().BoolVar(&archive, "archive", false, "also store a copy with the document storage provider")
	return cmd
}

func runCaseReport(ctx context.Context, cmd *cobra.Command, eng *engine, ref, format, outDir string, archive bool) error {
	caseID, err := eng.resolveCaseID(ctx, ref)
	if err != nil {
		return err
	}

	export, err := eng.exporter.ExportCaseReport(ctx, caseID, format)
	if err != nil {
		return err
	}
	path, err := writeExport(outDir, export)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", path, len(export.Body))

	if archive {
		key, err := eng.exporter.ArchiveCaseReport(ctx, caseID, format)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Archived as %s\n", key)
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	var (
		dbPath       string
		outDir       string
		status       string
		practiceArea string
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Export case statistics as xlsx",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if dbPath == "" {
				dbPath = cfg.DBPath
			}
			eng, closeFn, err := openEngine(cfg, dbPath)
			if err != nil {
				return err
			}
			defer closeFn()

			export, err := eng.exporter.ExportStatistics(cmd.Context(), services.CaseFilter{Status: status, PracticeArea: practiceArea})
			if err != nil {
				return err
			}
			path, err := writeExport(outDir, export)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", path, len(export.Body))
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "path to the sqlite database (defaults to DB_PATH)")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "directory to write the file to")
	cmd.Flags().StringVar(&status, "status", "", "only count cases with this status")
	cmd.Flags().StringVar(&practiceArea, "practice-area", "", "only count cases in this practice area")
	return cmd
}

func writeExport(outDir string, export *services.ReportExport) (string, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", outDir, err)
	}
	path := filepath.Join(outDir, export.Filename)
	if err := os.WriteFile(path, export.Body, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
