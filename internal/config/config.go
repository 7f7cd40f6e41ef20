package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/pkg/errors"
)

// Config is read once at startup from the environment (and .env if present).
type Config struct {
	Port           string
	JWTSecret      []byte
	RedisAddr      string
	RequestTimeout time.Duration
	LogLevel       string
	LogFormat      string
	CORSOrigins    []string
	DB             DB
}

// DB describes the storage connection.
type DB struct {
	Driver   string // "postgres" or "sqlite"
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	Path     string // sqlite file
}

// DSN builds the Postgres connection string the way the database package expects it.
func (d DB) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode,
	)
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	timeout, err := time.ParseDuration(getenv("REQUEST_TIMEOUT", "10s"))
	if err != nil {
		return nil, errors.Wrap(err, "REQUEST_TIMEOUT")
	}

	cfg := &Config{
		Port:           getenv("PORT", "8080"), // local dev fallback
		JWTSecret:      []byte(os.Getenv("JWT_SECRET")),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RequestTimeout: timeout,
		LogLevel:       getenv("LOG_LEVEL", "info"),
		LogFormat:      getenv("LOG_FORMAT", "text"),
		CORSOrigins:    splitList(getenv("CORS_ORIGINS", "*")),
		DB: DB{
			Driver:   getenv("DB_DRIVER", "postgres"),
			Host:     getenv("DB_HOST", "localhost"),
			Port:     getenv("DB_PORT", "5432"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     os.Getenv("DB_NAME"),
			SSLMode:  getenv("DB_SSLMODE", "disable"),
			Path:     getenv("DB_PATH", "forum.db"),
		},
	}

	if len(cfg.JWTSecret) == 0 {
		return nil, errors.New("JWT_SECRET must be set")
	}
	if cfg.RequestTimeout <= 0 {
		return nil, errors.New("REQUEST_TIMEOUT must be positive")
	}
	switch cfg.DB.Driver {
	case "postgres":
		if cfg.DB.Name == "" {
			return nil, errors.New("DB_NAME must be set for postgres")
		}
	case "sqlite":
	default:
		return nil, errors.Errorf("unknown DB_DRIVER %q", cfg.DB.Driver)
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
