package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

type Config struct {
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":5000"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	DB DB

	JWTSecret     string        `envconfig:"JWT_SECRET" default:"dev-secret-key-change-in-production"`
	JWTExpiration time.Duration `envconfig:"JWT_EXPIRATION" default:"24h"`

	CatalogCacheTTL time.Duration `envconfig:"CATALOG_CACHE_TTL" default:"30s"`
	CORSOrigins     []string      `envconfig:"CORS_ORIGINS" default:"*"`
	RateLimit       float64       `envconfig:"RATE_LIMIT" default:"20"`
	RateBurst       int           `envconfig:"RATE_BURST" default:"40"`

	RedisAddr      string        `envconfig:"REDIS_ADDR"`
	IdempotencyTTL time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"24h"`

	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"bookstore-orders"`

	SMTP SMTP

	StrictPaymentTransitions bool `envconfig:"STRICT_PAYMENT_TRANSITIONS" default:"false"`
}

type DB struct {
	Host           string `envconfig:"DB_HOST" default:"localhost"`
	Port           int    `envconfig:"DB_PORT" default:"3306"`
	User           string `envconfig:"DB_USER" default:"root"`
	Password       string `envconfig:"DB_PASSWORD"`
	Name           string `envconfig:"DB_NAME" default:"bookstore"`
	PoolSize       int    `envconfig:"DB_POOL_SIZE" default:"10"`
	ConnectRetries int    `envconfig:"DB_CONNECT_RETRIES" default:"10"`
}

type SMTP struct {
	Enabled  bool   `envconfig:"SMTP_ENABLED" default:"false"`
	Host     string `envconfig:"SMTP_HOST" default:"smtp.gmail.com"`
	Port     int    `envconfig:"SMTP_PORT" default:"587"`
	Username string `envconfig:"SMTP_USERNAME"`
	Password string `envconfig:"SMTP_PASSWORD"`
	From     string `envconfig:"SMTP_FROM"`
}

// Load reads the configuration from the environment. A .env file in the
// working directory is loaded first when present; real environment variables
// take precedence over it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn().Err(err).Msg("Error reading .env file")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.CORSOrigins = trimAll(cfg.CORSOrigins)
	cfg.KafkaBrokers = trimAll(cfg.KafkaBrokers)

	if cfg.DB.PoolSize <= 0 {
		return nil, errors.New("load config: DB_POOL_SIZE must be positive")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("load config: JWT_SECRET must not be empty")
	}
	return &cfg, nil
}

// SetupLogging applies LOG_LEVEL globally. Unknown levels fall back to info.
func (c *Config) SetupLogging() {
	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		logger.Warn().Str("level", c.LogLevel).Msg("Unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}
