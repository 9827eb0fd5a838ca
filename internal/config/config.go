package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Name       string `envconfig:"APP_NAME" default:"Caja"`
		Port       int    `envconfig:"PORT" default:"8080"`
		RegisterID string `envconfig:"REGISTER_ID" default:"main"`
	}

	DB struct {
		Driver   string `envconfig:"DB_DRIVER" default:"postgres"`
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"caja"`
		// Path is the database file when Driver is sqlite.
		Path string `envconfig:"DB_PATH" default:"caja.db"`
	}

	Server struct {
		Timeout         time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
		ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
		AllowedOrigins  []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`
	}

	Auth struct {
		// Secret signs operator tokens. When empty the API trusts the operator
		// named in the request body.
		Secret   string        `envconfig:"AUTH_SECRET"`
		TokenTTL time.Duration `envconfig:"AUTH_TOKEN_TTL" default:"12h"`
	}

	Store struct {
		RetryMax     uint64        `envconfig:"STORE_RETRY_MAX" default:"3"`
		RetryInitial time.Duration `envconfig:"STORE_RETRY_INITIAL" default:"50ms"`
		RetryMaxWait time.Duration `envconfig:"STORE_RETRY_MAX_WAIT" default:"1s"`
	}

	Locale struct {
		Language string `envconfig:"LOCALE" default:"es-AR"`
	}
}

// ConnectionString returns the DSN for the configured driver.
func (c *Config) ConnectionString() string {
	if c.DB.Driver == "sqlite" {
		return SQLiteDSN(c.DB.Path)
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

// SQLiteDSN builds a go-sqlite3 DSN whose transactions take the write lock at BEGIN.
func SQLiteDSN(path string) string {
	return fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate", path)
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}
