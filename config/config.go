package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

/* Config is loaded from a .env file (TOML) in the working directory and
 * from the environment. Environment variables win over the file.
 */

type Config struct {
	Port     string `mapstructure:"PORT"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// Provider (WhatsApp Cloud API) webhook
	WhatsAppAppSecret   string `mapstructure:"WHATSAPP_APP_SECRET"`
	WhatsAppVerifyToken string `mapstructure:"WHATSAPP_VERIFY_TOKEN"`
	MaxBodyBytes        int64  `mapstructure:"MAX_BODY_BYTES"`

	// Outbound template sends
	WhatsAppAPIURL        string `mapstructure:"WHATSAPP_API_URL"`
	WhatsAppPhoneNumberID string `mapstructure:"WHATSAPP_PHONE_NUMBER_ID"`
	WhatsAppAccessToken   string `mapstructure:"WHATSAPP_ACCESS_TOKEN"`
	WhatsAppLanguage      string `mapstructure:"WHATSAPP_LANGUAGE"`

	// Relay fan-out
	RelaySecret         string `mapstructure:"RELAY_SECRET"`
	RelayTargetsFile    string `mapstructure:"RELAY_TARGETS_FILE"`
	RelayTimeoutSeconds int    `mapstructure:"RELAY_TIMEOUT_SECONDS"`

	// Idempotency ledger
	IdempotencyBackend  string `mapstructure:"IDEMPOTENCY_BACKEND"` // redis | memory
	IdempotencyTTLHours int    `mapstructure:"IDEMPOTENCY_TTL_HOURS"`
	IdempotencyFailOpen bool   `mapstructure:"IDEMPOTENCY_FAIL_OPEN"`
	IdempotencyPrefix   string `mapstructure:"IDEMPOTENCY_PREFIX"`
	IdempotencySweepSec int    `mapstructure:"IDEMPOTENCY_SWEEP_SECONDS"` // memory backend only
	RedisAddr           string `mapstructure:"REDIS_ADDR"`
	RedisPassword       string `mapstructure:"REDIS_PASSWORD"`
	RedisDB             int    `mapstructure:"REDIS_DB"`

	// Dispatch scheduler
	DispatchEnabled         bool   `mapstructure:"DISPATCH_ENABLED"`
	DispatchIntervalMinutes int    `mapstructure:"DISPATCH_INTERVAL_MINUTES"`
	DispatchToleranceMins   int    `mapstructure:"DISPATCH_TOLERANCE_MINUTES"`
	DispatchParallelism     int    `mapstructure:"DISPATCH_PARALLELISM"`
	DispatchCheckToken      string `mapstructure:"DISPATCH_CHECK_TOKEN"`
	PreOpenLeadMinutes      int    `mapstructure:"PREOPEN_LEAD_MINUTES"`
	PreOpenTemplate         string `mapstructure:"PREOPEN_TEMPLATE"`
	OpenTemplate            string `mapstructure:"OPEN_TEMPLATE"`
	DefaultTimezone         string `mapstructure:"DEFAULT_TIMEZONE"`
	VendorsFile             string `mapstructure:"VENDORS_FILE"`

	// Watchdog (backup caller)
	WatchdogAPIURL          string `mapstructure:"WATCHDOG_API_URL"`
	WatchdogIntervalMinutes int    `mapstructure:"WATCHDOG_INTERVAL_MINUTES"`

	// PostgreSQL (dispatch log and vendor listing). Empty host means in-memory log.
	PostgresHost              string `mapstructure:"POSTGRES_HOST"`
	PostgresPort              string `mapstructure:"POSTGRES_PORT"`
	PostgresUser              string `mapstructure:"POSTGRES_USER"`
	PostgresPassword          string `mapstructure:"POSTGRES_PASSWORD"`
	PostgresDB                string `mapstructure:"POSTGRES_DB"`
	PostgresSSLMode           string `mapstructure:"POSTGRES_SSLMODE"`
	PostgresMaxOpenConns      int    `mapstructure:"POSTGRES_MAX_OPEN_CONNS"`
	PostgresMaxIdleConns      int    `mapstructure:"POSTGRES_MAX_IDLE_CONNS"`
	PostgresConnMaxLifeMinute int    `mapstructure:"POSTGRES_CONN_MAX_LIFE_MINUTES"`
}

var defaults = map[string]any{
	"PORT":                           "8080",
	"LOG_LEVEL":                      "info",
	"WHATSAPP_APP_SECRET":            "",
	"WHATSAPP_VERIFY_TOKEN":          "",
	"MAX_BODY_BYTES":                 1 << 20,
	"WHATSAPP_API_URL":               "https://graph.facebook.com/v20.0",
	"WHATSAPP_PHONE_NUMBER_ID":       "",
	"WHATSAPP_ACCESS_TOKEN":          "",
	"WHATSAPP_LANGUAGE":              "en",
	"RELAY_SECRET":                   "",
	"RELAY_TARGETS_FILE":             "targets.yaml",
	"RELAY_TIMEOUT_SECONDS":          10,
	"IDEMPOTENCY_BACKEND":            "redis",
	"IDEMPOTENCY_TTL_HOURS":          24,
	"IDEMPOTENCY_FAIL_OPEN":          true,
	"IDEMPOTENCY_PREFIX":             "ledger:",
	"IDEMPOTENCY_SWEEP_SECONDS":      60,
	"REDIS_ADDR":                     "localhost:6379",
	"REDIS_PASSWORD":                 "",
	"REDIS_DB":                       0,
	"DISPATCH_ENABLED":               true,
	"DISPATCH_INTERVAL_MINUTES":      5,
	"DISPATCH_TOLERANCE_MINUTES":     0,
	"DISPATCH_PARALLELISM":           4,
	"DISPATCH_CHECK_TOKEN":           "",
	"PREOPEN_LEAD_MINUTES":           15,
	"PREOPEN_TEMPLATE":               "vendor_preopen_reminder",
	"OPEN_TEMPLATE":                  "vendor_open_reminder",
	"DEFAULT_TIMEZONE":               "Asia/Kolkata",
	"VENDORS_FILE":                   "vendors.yaml",
	"WATCHDOG_API_URL":               "http://localhost:8080",
	"WATCHDOG_INTERVAL_MINUTES":      15,
	"POSTGRES_HOST":                  "",
	"POSTGRES_PORT":                  "5432",
	"POSTGRES_USER":                  "",
	"POSTGRES_PASSWORD":              "",
	"POSTGRES_DB":                    "",
	"POSTGRES_SSLMODE":               "disable",
	"POSTGRES_MAX_OPEN_CONNS":        25,
	"POSTGRES_MAX_IDLE_CONNS":        5,
	"POSTGRES_CONN_MAX_LIFE_MINUTES": 5,
}

func GetConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	err := v.ReadInConfig()
	if err != nil {
		// env-only deployments have no .env file
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}
	var config Config
	err = v.Unmarshal(&config)
	if err != nil {
		return nil, fmt.Errorf("parsing config data: %w", err)
	}
	return &config, nil
}

// Validate checks the settings the webhook ingress cannot run without
func (c *Config) Validate() error {
	if c.WhatsAppAppSecret == "" {
		return fmt.Errorf("WHATSAPP_APP_SECRET is required")
	}
	if c.WhatsAppVerifyToken == "" {
		return fmt.Errorf("WHATSAPP_VERIFY_TOKEN is required")
	}
	if c.RelaySecret == "" {
		return fmt.Errorf("RELAY_SECRET is required")
	}
	switch c.IdempotencyBackend {
	case "redis", "memory":
	default:
		return fmt.Errorf("IDEMPOTENCY_BACKEND must be redis or memory (got %q)", c.IdempotencyBackend)
	}
	return nil
}

// ValidatePostgres checks the PostgreSQL settings when a host is configured
func (c *Config) ValidatePostgres() error {
	if c.PostgresHost == "" {
		return fmt.Errorf("POSTGRES_HOST is required")
	}
	if c.PostgresUser == "" {
		return fmt.Errorf("POSTGRES_USER is required")
	}
	if c.PostgresDB == "" {
		return fmt.Errorf("POSTGRES_DB is required")
	}
	return nil
}

// UsePostgres reports whether the dispatch log lives in PostgreSQL
func (c *Config) UsePostgres() bool {
	return c.PostgresHost != ""
}

// PostgresConnectionString builds a lib/pq connection string
func (c *Config) PostgresConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.GetPostgresSSLMode())
}

func (c *Config) GetPostgresSSLMode() string {
	if c.PostgresSSLMode == "" {
		return "disable"
	}
	return c.PostgresSSLMode
}

func (c *Config) GetPostgresMaxOpenConns() int {
	if c.PostgresMaxOpenConns <= 0 {
		return 25
	}
	return c.PostgresMaxOpenConns
}

func (c *Config) GetPostgresMaxIdleConns() int {
	if c.PostgresMaxIdleConns <= 0 {
		return 5
	}
	return c.PostgresMaxIdleConns
}

func (c *Config) GetPostgresConnMaxLifeMinutes() int {
	if c.PostgresConnMaxLifeMinute <= 0 {
		return 5
	}
	return c.PostgresConnMaxLifeMinute
}

// GetIdempotencyTTL returns the TTL for inbound message markers (default 24h)
func (c *Config) GetIdempotencyTTL() time.Duration {
	if c.IdempotencyTTLHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.IdempotencyTTLHours) * time.Hour
}

// GetIdempotencySweepInterval returns how often the memory ledger drops expired marks (default 1m)
func (c *Config) GetIdempotencySweepInterval() time.Duration {
	if c.IdempotencySweepSec <= 0 {
		return time.Minute
	}
	return time.Duration(c.IdempotencySweepSec) * time.Second
}

func (c *Config) GetRelayTimeout() time.Duration {
	if c.RelayTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.RelayTimeoutSeconds) * time.Second
}

func (c *Config) GetDispatchInterval() time.Duration {
	if c.DispatchIntervalMinutes <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.DispatchIntervalMinutes) * time.Minute
}

func (c *Config) GetDispatchTolerance() time.Duration {
	if c.DispatchToleranceMins < 0 {
		return 0
	}
	return time.Duration(c.DispatchToleranceMins) * time.Minute
}

func (c *Config) GetPreOpenLead() time.Duration {
	if c.PreOpenLeadMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(c.PreOpenLeadMinutes) * time.Minute
}

func (c *Config) GetWatchdogInterval() time.Duration {
	if c.WatchdogIntervalMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(c.WatchdogIntervalMinutes) * time.Minute
}

func (c *Config) GetMaxBodyBytes() int64 {
	if c.MaxBodyBytes <= 0 {
		return 1 << 20
	}
	return c.MaxBodyBytes
}

// GetDefaultLocation resolves DEFAULT_TIMEZONE, falling back to UTC
func (c *Config) GetDefaultLocation() *time.Location {
	if c.DefaultTimezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.DefaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
