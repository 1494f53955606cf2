package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"Payflow"`
		Port int    `envconfig:"PORT" default:"8080"`
	}

	DB struct {
		Host            string        `envconfig:"DB_HOST" default:"localhost"`
		Port            int           `envconfig:"DB_PORT" default:"5432"`
		User            string        `envconfig:"DB_USER" default:"postgres"`
		Password        string        `envconfig:"DB_PASSWORD" default:""`
		Name            string        `envconfig:"DB_NAME" default:"payflow"`
		MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
		MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
		ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
	}

	Redis struct {
		Addr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
		Password string `envconfig:"REDIS_PASSWORD" default:""`
		DB       int    `envconfig:"REDIS_DB" default:"0"`
	}

	Server struct {
		Timeout time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
	}

	Auth struct {
		JWTSecret string `envconfig:"JWT_SECRET"`
	}

	Xendit struct {
		APIKey         string `envconfig:"XENDIT_API_KEY"`
		CallbackSecret string `envconfig:"XENDIT_CALLBACK_SECRET"`
		BaseURL        string `envconfig:"XENDIT_BASE_URL" default:""`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}
