// Package config reads the application configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Simplici0/printdesk/internal/store"
)

const (
	defaultAppEnv = "development"
	defaultDBPath = "./dev.db"
	defaultPort   = "8080"
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	AppEnv        string
	Port          string
	DBPath        string
	SessionSecret string
	StateKey      string
	StatePath     string
	DefaultLocale string

	AdminName     string
	AdminEmail    string
	AdminPassword string
}

// Load applies envFile (if it exists) and reads the environment.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := loadDotEnv(envFile); err != nil {
			return Config{}, err
		}
	}

	cfg := Config{
		AppEnv:        getenv("APP_ENV", defaultAppEnv),
		Port:          getenv("PORT", defaultPort),
		DBPath:        getenv("DB_PATH", defaultDBPath),
		SessionSecret: os.Getenv("SESSION_SECRET"),
		StateKey:      getenv("STATE_KEY", store.StateKey),
		StatePath:     os.Getenv("STATE_PATH"),
		DefaultLocale: os.Getenv("DEFAULT_LOCALE"),
		AdminName:     getenv("ADMIN_NAME", "Administrador"),
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}
	return cfg, nil
}

// IsProduction reports whether APP_ENV names a production deployment.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// Warn logs the settings that are missing for a usable deployment.
func (c Config) Warn(logger *zap.Logger) {
	if c.SessionSecret == "" {
		logger.Warn("SESSION_SECRET is not set")
	}
	if c.AdminEmail == "" || c.AdminPassword == "" {
		logger.Warn("ADMIN_EMAIL or ADMIN_PASSWORD is not set; admin bootstrap skipped")
	}
}

// loadDotEnv copies the values of a dotenv file into the process
// environment. Variables that are already set and non-empty win.
func loadDotEnv(path string) error {
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	for k, v := range values {
		if os.Getenv(k) != "" {
			continue
		}
		if err := os.Setenv(k, v); err != nil {
			return fmt.Errorf("set %s: %w", k, err)
		}
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
