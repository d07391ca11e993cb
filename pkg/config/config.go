package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	AppEnv         string `envconfig:"APP_ENV" default:"dev"`
	HTTPAddr       string `envconfig:"HTTP_ADDR"`
	MigrationsPath string `envconfig:"MIGRATIONS_PATH"`

	// Hosted Postgres convenience:
	// - DATABASE_URL: runtime connection (often a pooler)
	// - DIRECT_URL: direct connection for migrations
	DatabaseURL string `envconfig:"DATABASE_URL"`
	DirectURL   string `envconfig:"DIRECT_URL"`

	DB DBConfig

	// StoreDriver selects the booking store: "postgres" or "memory".
	// The memory driver keeps everything in-process and reads rooms from RoomsSeedFile.
	StoreDriver   string `envconfig:"STORE_DRIVER" default:"postgres"`
	RoomsSeedFile string `envconfig:"ROOMS_SEED_FILE"`

	Auth AuthConfig

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	// CORSAllowedOrigins is a comma-separated allowlist of origins for the web client.
	// Example: https://rooms.example.edu,http://localhost:5173
	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:4173"`

	RateLimitRPS   float64 `envconfig:"RATE_LIMIT_RPS" default:"5"`
	RateLimitBurst int     `envconfig:"RATE_LIMIT_BURST" default:"10"`

	// AuditPurgePolicy decides what an administrative purge does with a booking's audit trail:
	// "preserve" keeps the entries, "purge" deletes them with the booking.
	AuditPurgePolicy string `envconfig:"AUDIT_PURGE_POLICY" default:"preserve"`

	LockRetryAttempts int           `envconfig:"LOCK_RETRY_ATTEMPTS" default:"5"`
	LockTimeout       time.Duration `envconfig:"LOCK_TIMEOUT" default:"2s"`
}

type DBConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"roombooking"`
	User     string `envconfig:"DB_USER" default:"roombooking"`
	Password string `envconfig:"DB_PASSWORD" default:"roombooking"`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
}

// AuthConfig describes how bearer tokens minted by the identity service are checked.
type AuthConfig struct {
	JWTSecret   string `envconfig:"JWT_SECRET"`
	JWTIssuer   string `envconfig:"JWT_ISSUER"`
	JWTAudience string `envconfig:"JWT_AUDIENCE"`
}

func Load() (Config, error) {
	// Convenience for local dev: load variables from .env if present.
	// In production, rely on real environment variables.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}

	// Cloud Run sets PORT. Prefer it when HTTP_ADDR isn't explicitly set.
	if cfg.HTTPAddr == "" {
		if port := os.Getenv("PORT"); port != "" {
			cfg.HTTPAddr = ":" + port
		} else {
			cfg.HTTPAddr = ":8081"
		}
	}

	origins := cfg.CORSAllowedOrigins[:0]
	for _, o := range cfg.CORSAllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	cfg.CORSAllowedOrigins = origins

	return cfg, nil
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "prod") || strings.EqualFold(c.AppEnv, "production")
}

func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func (c Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if strings.EqualFold(c.LogFormat, "text") {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
