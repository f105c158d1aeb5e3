package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

type Config struct {
	App struct {
		Env             string        `env:"APP_ENV" envDefault:"development"`
		Port            string        `env:"API_PORT" envDefault:"8080"`
		CORSOrigins     []string      `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
		RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
		ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	}

	Logger struct {
		Level string `env:"LOGGER_LEVEL" envDefault:"info"`
	}

	Store struct {
		Driver       string        `env:"STORE_DRIVER" envDefault:"mongo"`
		URI          string        `env:"MONGODB_URI" envDefault:"mongodb://localhost:27017"`
		Database     string        `env:"MONGODB_DB" envDefault:"clin"`
		Timeout      time.Duration `env:"MONGODB_TIMEOUT" envDefault:"8s"`
		Transactions bool          `env:"MONGODB_TRANSACTIONS" envDefault:"false"`
	}

	Auth struct {
		JWTSecret      string  `env:"JWT_SECRET"`
		JWTExpHours    int     `env:"JWT_EXP_HOURS" envDefault:"24"`
		LoginRateLimit float64 `env:"LOGIN_RATE_LIMIT" envDefault:"1"`
		LoginRateBurst int     `env:"LOGIN_RATE_BURST" envDefault:"5"`
	}

	Redis struct {
		Addr     string `env:"REDIS_ADDR"`
		Password string `env:"REDIS_PASSWORD"`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
		Channel  string `env:"REDIS_RELAY_CHANNEL" envDefault:"clinic:relay"`
	}

	RabbitMQ struct {
		URL      string `env:"RABBITMQ_URL"`
		SMSQueue string `env:"SMS_QUEUE" envDefault:"clinic.sms"`
	}

	Outbox struct {
		PollInterval time.Duration `env:"OUTBOX_POLL_INTERVAL" envDefault:"5s"`
		MaxAttempts  int           `env:"OUTBOX_MAX_ATTEMPTS" envDefault:"8"`
		BatchSize    int           `env:"OUTBOX_BATCH_SIZE" envDefault:"50"`
		RetryBackoff time.Duration `env:"OUTBOX_RETRY_BACKOFF" envDefault:"2s"`
		MaxBackoff   time.Duration `env:"OUTBOX_MAX_BACKOFF" envDefault:"5m"`
		LockTTL      time.Duration `env:"OUTBOX_LOCK_TTL" envDefault:"30s"`
	}

	DoctorCache struct {
		Size int           `env:"DOCTOR_CACHE_SIZE" envDefault:"256"`
		TTL  time.Duration `env:"DOCTOR_CACHE_TTL" envDefault:"5m"`
	}
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// .env is optional; real deployments set variables directly.
	_ = godotenv.Load()
	return Parse()
}

func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	cfg.App.Env = strings.ToLower(cfg.App.Env)
	cfg.Store.Driver = strings.ToLower(cfg.Store.Driver)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case DriverMongo, DriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}
	if c.Auth.JWTSecret == "" {
		if c.IsProduction() {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		c.Auth.JWTSecret = "dev-only-secret"
	}
	if c.Outbox.MaxAttempts < 1 {
		c.Outbox.MaxAttempts = 1
	}
	if c.Outbox.BatchSize < 1 {
		c.Outbox.BatchSize = 50
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Env == EnvProduction
}

func (c *Config) JWTExpiry() time.Duration {
	return time.Duration(c.Auth.JWTExpHours) * time.Hour
}
