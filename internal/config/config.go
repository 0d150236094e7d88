package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/laocai-wudi/chunmpre.cn/internal/asset"
	pkgconfig "github.com/laocai-wudi/chunmpre.cn/pkg/config"
	"github.com/laocai-wudi/chunmpre.cn/pkg/database"
	"github.com/laocai-wudi/chunmpre.cn/pkg/middleware"
)

// Storage drivers.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config holds all configuration for the catalog service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"CATALOG_HTTP_PORT" envDefault:"8080"`

	// Storage
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"postgres"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"catalog"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"catalog_secret"`
	PostgresDB   string `env:"CATALOG_DB_NAME" envDefault:"chunmpre_db"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Database pool
	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"2"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"30"`

	// Kafka
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Admin API
	AdminToken string `env:"ADMIN_API_TOKEN"`
	AdminID    string `env:"ADMIN_ID" envDefault:"admin"`

	// Catalog
	FeaturedCap       int `env:"CATALOG_FEATURED_CAP" envDefault:"6"`
	StorefrontPerPage int `env:"STOREFRONT_PER_PAGE" envDefault:"9"`
	AdminPerPage      int `env:"ADMIN_PER_PAGE" envDefault:"20"`

	// Uploads
	MaxImageMB        int      `env:"UPLOAD_MAX_IMAGE_MB" envDefault:"5"`
	MaxRequestMB      int      `env:"UPLOAD_MAX_REQUEST_MB" envDefault:"50"`
	AllowedExtensions []string `env:"UPLOAD_ALLOWED_EXTENSIONS" envDefault:"png,jpg,jpeg,gif" envSeparator:","`

	ImageCacheMaxAge time.Duration `env:"IMAGE_CACHE_MAX_AGE" envDefault:"1h"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Pprof debug endpoints (IP allowlist in CIDR notation)
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"127.0.0.0/8,::1/128" envSeparator:","`

	// Slow query logging
	SlowQueryThresholdMs int `env:"LOG_SLOW_QUERY_MS" envDefault:"500"`
}

// Load reads configuration from environment variables and an optional
// .env file.
func Load(dotenvFiles ...string) (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg, dotenvFiles...); err != nil {
		return nil, fmt.Errorf("load catalog config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and cross-field rules.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	switch c.StorageDriver {
	case StoragePostgres:
		if c.PostgresHost == "" {
			return fmt.Errorf("POSTGRES_HOST is required")
		}
		if c.PostgresUser == "" {
			return fmt.Errorf("POSTGRES_USER is required")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("STORAGE_DRIVER must be %q or %q, got %q", StoragePostgres, StorageMemory, c.StorageDriver)
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED is set")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	if c.Environment == "production" && c.AdminToken == "" {
		return fmt.Errorf("ADMIN_API_TOKEN is required in production")
	}
	if c.FeaturedCap < 1 {
		return fmt.Errorf("CATALOG_FEATURED_CAP must be positive, got %d", c.FeaturedCap)
	}
	if c.StorefrontPerPage < 1 || c.AdminPerPage < 1 {
		return fmt.Errorf("page sizes must be positive")
	}
	if c.MaxImageMB < 1 || c.MaxRequestMB < c.MaxImageMB {
		return fmt.Errorf("upload limits invalid: image %d MiB, request %d MiB", c.MaxImageMB, c.MaxRequestMB)
	}
	if len(c.AllowedExtensions) == 0 {
		return fmt.Errorf("UPLOAD_ALLOWED_EXTENSIONS must not be empty")
	}
	return nil
}

// UploadPolicy returns the image upload rules.
func (c *Config) UploadPolicy() asset.Policy {
	exts := make([]string, 0, len(c.AllowedExtensions))
	for _, e := range c.AllowedExtensions {
		if e = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), ".")); e != "" {
			exts = append(exts, e)
		}
	}
	return asset.Policy{
		MaxBytes:          int64(c.MaxImageMB) << 20,
		AllowedExtensions: exts,
	}
}

// CORS returns the CORS settings for the storefront.
func (c *Config) CORS() middleware.CORSConfig {
	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = c.CORSAllowedOrigins
	cors.Environment = c.Environment
	return cors
}

// MaxRequestBytes is the cap on one multipart request.
func (c *Config) MaxRequestBytes() int64 {
	return int64(c.MaxRequestMB) << 20
}

// PostgresConfig returns the connection pool settings.
func (c *Config) PostgresConfig() database.PostgresConfig {
	return database.PostgresConfig{
		Host:            c.PostgresHost,
		Port:            c.PostgresPort,
		User:            c.PostgresUser,
		Password:        c.PostgresPass,
		DBName:          c.PostgresDB,
		SSLMode:         c.PostgresSSL,
		MaxConns:        c.DBMaxConns,
		MinConns:        c.DBMinConns,
		MaxConnLifetime: time.Duration(c.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(c.DBMaxConnIdleTimeMins) * time.Minute,
	}
}
