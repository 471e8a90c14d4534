package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	Logger LoggerConfig

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int

	RedisAddr     string
	RedisPassword string

	StorageRoot string

	Commerce CommerceConfig
	Email    EmailConfig
	Invoice  InvoiceConfig
	Worker   WorkerConfig
}

type LoggerConfig struct {
	Level  string
	Format string
}

// CommerceConfig points at the host commerce platform that owns order
// and customer data.
type CommerceConfig struct {
	BaseURL     string
	AccessToken string
	Timeout     time.Duration
}

type EmailConfig struct {
	Enabled      bool
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
}

// InvoiceConfig carries invoice numbering defaults and tax constants.
type InvoiceConfig struct {
	NumberPrefix string
	StartNumber  int64
	DefaultHSN   string
}

type WorkerConfig struct {
	PollInterval   time.Duration
	ItemTimeout    time.Duration
	MaxJobRetries  int
	RetryBackoff   time.Duration
	SurfacePool    int
	PruneOlderThan time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "invoicepress"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		Logger: LoggerConfig{
			Level:  getenv("LOG_LEVEL", "info"),
			Format: getenv("LOG_FORMAT", "json"),
		},
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "invoicepress"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 3600),
		RedisAddr:         getenv("REDIS_ADDR", ""),
		RedisPassword:     getenv("REDIS_PASSWORD", ""),
		StorageRoot:       getenv("STORAGE_ROOT", "./data/artifacts"),
		Commerce: CommerceConfig{
			BaseURL:     strings.TrimRight(getenv("COMMERCE_BASE_URL", ""), "/"),
			AccessToken: strings.TrimSpace(getenv("COMMERCE_ACCESS_TOKEN", "")),
			Timeout:     getenvDuration("COMMERCE_TIMEOUT", 10*time.Second),
		},
		Email: EmailConfig{
			Enabled:      getenvBool("EMAIL_ENABLED", false),
			SMTPHost:     getenv("SMTP_HOST", ""),
			SMTPPort:     getenvInt("SMTP_PORT", 587),
			SMTPUsername: getenv("SMTP_USERNAME", ""),
			SMTPPassword: getenv("SMTP_PASSWORD", ""),
			SMTPFrom:     getenv("SMTP_FROM", ""),
		},
		Invoice: InvoiceConfig{
			NumberPrefix: getenv("INVOICE_NUMBER_PREFIX", "INV"),
			StartNumber:  getenvInt64("INVOICE_START_NUMBER", 1001),
			DefaultHSN:   getenv("INVOICE_DEFAULT_HSN", "6109"),
		},
		Worker: WorkerConfig{
			PollInterval:   getenvDuration("WORKER_POLL_INTERVAL", 2*time.Second),
			ItemTimeout:    getenvDuration("WORKER_ITEM_TIMEOUT", 45*time.Second),
			MaxJobRetries:  getenvInt("WORKER_MAX_JOB_RETRIES", 3),
			RetryBackoff:   getenvDuration("WORKER_RETRY_BACKOFF", 500*time.Millisecond),
			SurfacePool:    getenvInt("WORKER_SURFACE_POOL", 4),
			PruneOlderThan: getenvDuration("STORAGE_PRUNE_OLDER_THAN", 30*24*time.Hour),
		},
	}
}

// Module provides Config to the fx graph.
var Module = fx.Module("config",
	fx.Provide(Load),
)

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
