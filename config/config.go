package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort  string
	DBPath      string
	Environment string
	UploadDir   string
	AppURL      string
	// Email (Resend)
	ResendAPIKey  string
	EmailFrom     string
	EmailFromName string
	EmailTestMode bool // When true, emails are logged to console instead of sent
	// CRM contact sync
	CRMBaseURL string
	CRMAPIKey  string
	// Cloudflare R2 Storage
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicURL       string
	// Engine tuning
	StoreTimeout      time.Duration
	DispatchTimeout   time.Duration
	DispatchWorkers   int
	DispatchQueueSize int
	CacheTTL          time.Duration
	CacheSize         int
	SearchLimit       int
	// Scheduled jobs
	ReminderSchedule string
	ReminderTimezone string
	// PDF rendering
	ChromePath string
}

func Load() *Config {
	// Load .env file (ignore error if not present - use system env vars)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	return &Config{
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		DBPath:            getEnv("DB_PATH", "db/app.db"),
		Environment:       getEnv("ENVIRONMENT", "development"),
		UploadDir:         getEnv("UPLOAD_DIR", "static/uploads"),
		AppURL:            getEnv("APP_URL", "http://localhost:8080"),
		ResendAPIKey:      getEnv("RESEND_API_KEY", ""),
		EmailFrom:         getEnv("EMAIL_FROM", "noreply@lexlegalcloud.org"),
		EmailFromName:     getEnv("EMAIL_FROM_NAME", "Legal Matter Engine"),
		EmailTestMode:     getEnvBool("EMAIL_TEST_MODE", true), // Default true for safety
		CRMBaseURL:        getEnv("CRM_BASE_URL", ""),
		CRMAPIKey:         getEnv("CRM_API_KEY", ""),
		R2AccountID:       getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2BucketName:      getEnv("R2_BUCKET_NAME", ""),
		R2PublicURL:       getEnv("R2_PUBLIC_URL", ""),
		StoreTimeout:      getEnvDuration("STORE_TIMEOUT", 5*time.Second),
		DispatchTimeout:   getEnvDuration("DISPATCH_TIMEOUT", 10*time.Second),
		DispatchWorkers:   getEnvInt("DISPATCH_WORKERS", 4),
		DispatchQueueSize: getEnvInt("DISPATCH_QUEUE_SIZE", 256),
		CacheTTL:          getEnvDuration("CACHE_TTL", 2*time.Minute),
		CacheSize:         getEnvInt("CACHE_SIZE", 1024),
		SearchLimit:       getEnvInt("SEARCH_LIMIT", 50),
		ReminderSchedule:  getEnv("REMINDER_SCHEDULE", "0 8 * * *"),
		ReminderTimezone:  getEnv("REMINDER_TIMEZONE", "UTC"),
		ChromePath:        os.Getenv("CHROME_PATH"),
	}
}

// Defaults returns a configuration with every default applied and no
// environment lookups. Useful for tests and tools.
func Defaults() *Config {
	return &Config{
		ServerPort:        "8080",
		DBPath:            "db/app.db",
		Environment:       "development",
		UploadDir:         "static/uploads",
		AppURL:            "http://localhost:8080",
		EmailFrom:         "noreply@lexlegalcloud.org",
		EmailFromName:     "Legal Matter Engine",
		EmailTestMode:     true,
		StoreTimeout:      5 * time.Second,
		DispatchTimeout:   10 * time.Second,
		DispatchWorkers:   4,
		DispatchQueueSize: 256,
		CacheTTL:          2 * time.Minute,
		CacheSize:         1024,
		SearchLimit:       50,
		ReminderSchedule:  "0 8 * * *",
		ReminderTimezone:  "UTC",
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		log.Printf("Using default value for %s: %s", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	// Accept common boolean representations
	switch strings.ToLower(value) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return defaultValue
	}
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		log.Printf("[WARNING] Invalid value for %s (%q), using default %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		log.Printf("[WARNING] Invalid duration for %s (%q), using default %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}
