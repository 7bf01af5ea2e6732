package config

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var ErrMissingJWTSecret = errors.New("no JWT_SECRET provided")

type Config struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	Database Database
	Auth     Auth
	Log      Log
	Email    Email
	Seed     Seed `envPrefix:"SEED_"`

	AutoMigrate       bool   `env:"AUTO_MIGRATE" envDefault:"true"`
	ReconcileSchedule string `env:"RECONCILE_SCHEDULE" envDefault:"@every 24h"`
}

type Database struct {
	URL             string        `env:"DB_CONNECTION_STRING"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"50"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"25"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"5m"`
}

type Auth struct {
	JWTSecret        string        `env:"JWT_SECRET"`
	AccessTokenTTL   time.Duration `env:"JWT_ACCESS_TTL" envDefault:"10m"`
	RefreshTokenTTL  time.Duration `env:"JWT_REFRESH_TTL" envDefault:"720h"`
	SessionTokenTTL  time.Duration `env:"SESSION_TOKEN_TTL" envDefault:"5m"`
	TOTPIssuer       string        `env:"TOTP_ISSUER" envDefault:"FinanceLedger"`
	LockoutThreshold int           `env:"LOCKOUT_THRESHOLD" envDefault:"5"`
	LockoutDuration  time.Duration `env:"LOCKOUT_DURATION" envDefault:"5m"`
	SecureCookies    bool          `env:"SECURE_COOKIES" envDefault:"false"`
}

// Email configures outgoing mail. An empty SMTPHost disables delivery and
// messages are only logged.
type Email struct {
	SMTPHost  string `env:"SMTP_HOST"`
	SMTPPort  int    `env:"SMTP_PORT" envDefault:"587"`
	From      string `env:"EMAIL_ADDRESS"`
	Password  string `env:"EMAIL_PASSWORD"`
	QueueSize int    `env:"EMAIL_QUEUE_SIZE" envDefault:"100"`

	CodeTTL        time.Duration `env:"EMAIL_CODE_TTL" envDefault:"10m"`
	ResendInterval time.Duration `env:"EMAIL_CODE_RESEND_INTERVAL" envDefault:"2m"`
	CheckHost      bool          `env:"EMAIL_CHECK_HOST" envDefault:"false"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"text"`
}

// Seed holds the passwords given to the accounts created by the seed
// migrations. Empty values make the migration pick a random password.
type Seed struct {
	AdminPassword string `env:"ADMIN_PASSWORD"`
	UserPassword  string `env:"USER_PASSWORD"`
	DemoPassword  string `env:"DEMO_PASSWORD"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Error loading .env file, continuing with system environment variables")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("missing DB_CONNECTION_STRING in environment variables")
	}
	return &cfg, nil
}

// Validate checks settings required by the HTTP server but not by the
// migration commands.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	if c.Auth.LockoutThreshold <= 0 {
		return fmt.Errorf("LOCKOUT_THRESHOLD must be positive, got %d", c.Auth.LockoutThreshold)
	}
	if c.Email.SMTPHost != "" && c.Email.From == "" {
		return errors.New("EMAIL_ADDRESS is required when SMTP_HOST is set")
	}
	return nil
}
