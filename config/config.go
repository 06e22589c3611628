package config

import (
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"

	envPrefix = "NATOURS_"
)

// Config is loaded from NATOURS_* environment variables. A double underscore
// separates nested keys: NATOURS_JWT__SECRET maps to jwt.secret.
type Config struct {
	Env       string          `koanf:"env" validate:"required,oneof=development production test"`
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	JWT       JWTConfig       `koanf:"jwt"`
	Email     EmailConfig     `koanf:"email"`
	Stripe    StripeConfig    `koanf:"stripe"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Uploads   UploadsConfig   `koanf:"uploads"`
	Seed      SeedConfig      `koanf:"seed"`
}

type ServerConfig struct {
	Port         string        `koanf:"port" validate:"required"`
	ReadTimeout  time.Duration `koanf:"read_timeout" validate:"required"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"required"`
	IdleTimeout  time.Duration `koanf:"idle_timeout" validate:"required"`
	CORSOrigins  []string      `koanf:"cors_origins"`
	PublicDir    string        `koanf:"public_dir" validate:"required"`
}

type DatabaseConfig struct {
	Driver          string        `koanf:"driver" validate:"required,oneof=mysql postgres sqlite"`
	URL             string        `koanf:"url"`
	Host            string        `koanf:"host"`
	Port            string        `koanf:"port"`
	User            string        `koanf:"user"`
	Password        string        `koanf:"password"`
	Name            string        `koanf:"name"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	Debug           bool          `koanf:"debug"`
}

// RedisConfig is optional. Without an address the email queue is disabled
// and rate limiting falls back to process memory.
type RedisConfig struct {
	Address  string `koanf:"address"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type JWTConfig struct {
	Secret          string        `koanf:"secret" validate:"required,min=32"`
	ExpiresIn       time.Duration `koanf:"expires_in" validate:"required"`
	CookieExpiresIn int           `koanf:"cookie_expires_in" validate:"required,min=1"`
}

type EmailConfig struct {
	From         string `koanf:"from" validate:"required,email"`
	FromName     string `koanf:"from_name"`
	SMTPHost     string `koanf:"smtp_host"`
	SMTPPort     string `koanf:"smtp_port"`
	SMTPUsername string `koanf:"smtp_username"`
	SMTPPassword string `koanf:"smtp_password"`
	ResendAPIKey string `koanf:"resend_api_key"`
}

type StripeConfig struct {
	SecretKey     string `koanf:"secret_key"`
	WebhookSecret string `koanf:"webhook_secret"`
	Currency      string `koanf:"currency" validate:"required,len=3"`
}

type RateLimitConfig struct {
	Max    int           `koanf:"max" validate:"required,min=1"`
	Window time.Duration `koanf:"window" validate:"required"`
}

type UploadsConfig struct {
	Dir string `koanf:"dir" validate:"required"`
}

type SeedConfig struct {
	AdminName     string `koanf:"admin_name"`
	AdminEmail    string `koanf:"admin_email" validate:"omitempty,email"`
	AdminPassword string `koanf:"admin_password" validate:"omitempty,min=8"`
}

// Default returns the configuration used when no variable overrides a key.
func Default() *Config {
	return &Config{
		Env: EnvDevelopment,
		Server: ServerConfig{
			Port:         "3000",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 20 * time.Second,
			IdleTimeout:  60 * time.Second,
			PublicDir:    "public",
		},
		Database: DatabaseConfig{
			Driver:          "mysql",
			Host:            "127.0.0.1",
			Port:            "3306",
			User:            "root",
			Name:            "natours",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		JWT: JWTConfig{
			ExpiresIn:       90 * 24 * time.Hour,
			CookieExpiresIn: 90,
		},
		Email: EmailConfig{
			From:     "hello@natours.io",
			FromName: "Natours",
		},
		Stripe: StripeConfig{
			Currency: "usd",
		},
		RateLimit: RateLimitConfig{
			Max:    100,
			Window: time.Hour,
		},
		Uploads: UploadsConfig{
			Dir: "public/img",
		},
		Seed: SeedConfig{
			AdminName: "Admin",
		},
	}
}

// Load reads the environment on top of Default and validates the result.
func Load() (*Config, error) {
	k := koanf.New(".")

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil)
	if err != nil {
		return nil, errors.Wrap(err, "load env")
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}

	// PORT and DATABASE_URL are what most hosts inject.
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" && !k.Exists("server.port") {
		cfg.Server.Port = port
	}
	if cfg.Database.URL == "" {
		cfg.Database.URL = firstEnv("MYSQL_URL", "DATABASE_URL")
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return cfg, nil
}

func (c *Config) IsDevelopment() bool { return c.Env == EnvDevelopment }
func (c *Config) IsProduction() bool  { return c.Env == EnvProduction }

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return ""
}
