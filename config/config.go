// Package config reads the service and training configuration from the environment and an
// optional .env file.
package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

const (
	DefaultPort      = "8000"
	DefaultModelPath = "optimized_sales_pipeline.json"
	DefaultDataPath  = "sales_data_ready_dynamic.csv"
)

// Config holds the application configuration
type Config struct {
	Port      string
	ModelPath string
	DataPath  string
	GinMode   string
	// Holidays adds the is_holiday feature during training
	Holidays bool
}

// Load reads the given .env files, or .env in the working directory when none are given, and
// then the environment. A missing .env file is not an error, variables already set in the
// environment take precedence.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		slog.Debug("no .env file loaded", "files", envFiles)
	}
	return LoadConfig(), nil
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Port:      getEnv("PORT", DefaultPort),
		ModelPath: getEnv("MODEL_PATH", DefaultModelPath),
		DataPath:  getEnv("DATA_PATH", DefaultDataPath),
		GinMode:   getEnv("GIN_MODE", ""),
		Holidays:  cast.ToBool(getEnv("HOLIDAYS", "false")),
	}
}

// Addr is the listen address of the api
func (c *Config) Addr() string {
	return ":" + c.Port
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
