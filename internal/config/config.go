package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	// Upstream listing feed
	CompetitionsEndpoint string        `envconfig:"CRICKET_COMPETITIONS_ENDPOINT" required:"true"`
	EventsEndpoint       string        `envconfig:"CRICKET_EVENTS_ENDPOINT" required:"true"`
	MarketsEndpoint      string        `envconfig:"CRICKET_MARKET_ENDPOINT" required:"true"`
	TimelineEndpoint     string        `envconfig:"CRICKET_TIMELINE_ENDPOINT" required:"true"`
	SportID              int           `envconfig:"CRICKET_SPORT_ID" default:"4"`
	FetchTimeout         time.Duration `envconfig:"FETCH_TIMEOUT" default:"30s"`

	// MongoDB
	MongoURI      string `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`
	MongoDatabase string `envconfig:"MONGO_DATABASE" default:"cricket"`

	// Redis (optional timeline snapshot cache)
	RedisHost        string        `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort        int           `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword    string        `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB          int           `envconfig:"REDIS_DB" default:"0"`
	TimelineCacheTTL time.Duration `envconfig:"TIMELINE_CACHE_TTL" default:"15s"`

	// Reconciliation periods
	CompetitionPollInterval time.Duration `envconfig:"COMPETITION_POLL_INTERVAL" default:"60s"`
	EventPollInterval       time.Duration `envconfig:"EVENT_POLL_INTERVAL" default:"300s"`
	MarketPollInterval      time.Duration `envconfig:"MARKET_POLL_INTERVAL" default:"300s"`
	SessionPollInterval     time.Duration `envconfig:"SESSION_POLL_INTERVAL" default:"30s"`
	ResyncCron              string        `envconfig:"RESYNC_CRON" default:"@every 5m"`

	// Resolver
	ResolverPoolSize  int `envconfig:"RESOLVER_POOL_SIZE" default:"64"`
	NotAvailableLimit int `envconfig:"NOT_AVAILABLE_LIMIT" default:"20"`

	// Notifier
	Subscribers []string `envconfig:"SUBSCRIBER_URLS" default:""`
	DigestCron  string   `envconfig:"DIGEST_CRON" default:"0 9 * * *"`
	SMTPHost    string   `envconfig:"SMTP_HOST" default:""`
	SMTPPort    int      `envconfig:"SMTP_PORT" default:"587"`
	SMTPUser    string   `envconfig:"SMTP_USER" default:""`
	SMTPPass    string   `envconfig:"SMTP_PASSWORD" default:""`
	NotifyEmail string   `envconfig:"NOTIFY_EMAIL" default:""`

	// Application
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Monitoring
	EnableMetrics bool `envconfig:"ENABLE_METRICS" default:"true"`
	MetricsPort   int  `envconfig:"METRICS_PORT" default:"9090"`
}

// Load loads configuration from environment variables
// It first attempts to load from .env file if in development mode
func Load() (*Config, error) {
	// Try to load .env file (ignore error if doesn't exist)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.SessionPollInterval <= 0 {
		return fmt.Errorf("SESSION_POLL_INTERVAL must be positive")
	}

	if c.ResolverPoolSize <= 0 {
		return fmt.Errorf("RESOLVER_POOL_SIZE must be positive")
	}

	if c.NotifyEmail != "" && c.SMTPHost == "" {
		return fmt.Errorf("SMTP_HOST is required when NOTIFY_EMAIL is set")
	}

	return nil
}

// RedisAddr returns the Redis address
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// DigestEnabled reports whether the backlog digest email can be scheduled.
func (c *Config) DigestEnabled() bool {
	return c.NotifyEmail != "" && c.SMTPHost != "" && c.DigestCron != ""
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// MustLoad loads configuration or panics on error
// Use this in main() where we want to fail fast
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
