package app

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/cache"
)

// Catalog sources understood by CATALOG_SOURCE.
const (
	CatalogSeed  = "seed"
	CatalogStore = "store"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	// LogLevel accepts debug, info, warn or error. Register notices log at debug.
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// PGDSN selects the Postgres record store; empty keeps records in memory.
	PGDSN string `envconfig:"PG_DSN"`

	// RedisAddr backs register sessions and the job queue; empty keeps
	// sessions in memory and disables sale recording.
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	RegisterSessionTTL          time.Duration `envconfig:"REGISTER_SESSION_TTL" default:"0"`
	RegisterKeyPrefix           string        `envconfig:"REGISTER_KEY_PREFIX" default:"odyssey"`
	RegisterRestoreStockOnClear bool          `envconfig:"REGISTER_RESTORE_STOCK_ON_CLEAR" default:"false"`

	CatalogSource string `envconfig:"CATALOG_SOURCE" default:"seed"`

	RBACEnforce      bool `envconfig:"RBAC_ENFORCE" default:"false"`
	RBACDemoFallback bool `envconfig:"RBAC_DEMO_FALLBACK" default:"false"`

	RateLimitPerMinute int    `envconfig:"RATE_LIMIT_PER_MINUTE" default:"600"`
	WorkerConcurrency  int    `envconfig:"WORKER_CONCURRENCY" default:"5"`
	WorkerMetricsAddr  string `envconfig:"WORKER_METRICS_ADDR" default:":9091"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.LogFormat {
	case "pretty", "text", "json":
	default:
		return fmt.Errorf("config: LOG_FORMAT must be pretty, text or json, got %q", c.LogFormat)
	}
	if _, ok := parseLevel(c.LogLevel); !ok {
		return fmt.Errorf("config: LOG_LEVEL must be debug, info, warn or error, got %q", c.LogLevel)
	}
	switch c.CatalogSource {
	case CatalogSeed:
	case CatalogStore:
		if c.PGDSN == "" {
			return fmt.Errorf("config: CATALOG_SOURCE=%s requires PG_DSN", CatalogStore)
		}
	default:
		return fmt.Errorf("config: CATALOG_SOURCE must be %s or %s, got %q", CatalogSeed, CatalogStore, c.CatalogSource)
	}
	if c.RegisterSessionTTL < 0 {
		return fmt.Errorf("config: REGISTER_SESSION_TTL must not be negative")
	}
	if c.RedisDB < 0 {
		return fmt.Errorf("config: REDIS_DB must not be negative")
	}
	if c.WorkerConcurrency < 1 {
		return fmt.Errorf("config: WORKER_CONCURRENCY must be at least 1")
	}
	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("config: RATE_LIMIT_PER_MINUTE must not be negative")
	}
	if c.RBACEnforce && c.IsProduction() && c.RBACDemoFallback {
		return fmt.Errorf("config: RBAC_DEMO_FALLBACK cannot be combined with RBAC_ENFORCE in production")
	}
	return nil
}

// Redis returns the connection settings for REDIS_*.
func (c *Config) Redis() cache.Options {
	return cache.Options{Addr: c.RedisAddr, Password: c.RedisPassword, DB: c.RedisDB}
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

const testModeEnv = "ODYSSEY_TEST_MODE"

var (
	testMode     atomic.Bool
	testModeOnce sync.Once
)

func detectTestMode() {
	on, _ := strconv.ParseBool(os.Getenv(testModeEnv))
	testMode.Store(on)
}

// InTestMode reports whether binaries should skip startup side effects.
func InTestMode() bool {
	testModeOnce.Do(detectTestMode)
	return testMode.Load()
}

// RefreshTestMode re-reads ODYSSEY_TEST_MODE.
func RefreshTestMode() {
	testModeOnce.Do(func() {})
	detectTestMode()
}
