package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	BackendLocal = "local"
	BackendGCS   = "gcs"
)

// DefaultEnvFiles are loaded, when present, before the environment is parsed.
var DefaultEnvFiles = []string{".env", ".env.local"}

type Config struct {
	DatabaseURL     string `env:"DATABASE_URL" validate:"required"`
	APIPort         int    `env:"API_PORT" envDefault:"8080" validate:"min=1,max=65535"`
	MediaRoot       string `env:"MEDIA_ROOT" envDefault:"media" validate:"required"`
	MediaURL        string `env:"MEDIA_URL" envDefault:"/media/" validate:"required,startswith=/"`
	ArchiveBackend  string `env:"ARCHIVE_BACKEND" envDefault:"local" validate:"oneof=local gcs"`
	GCSBucket       string `env:"GCS_BUCKET" validate:"required_if=ArchiveBackend gcs"`
	MaxUploadSize   int64  `env:"MAX_UPLOAD_SIZE" envDefault:"33554432" validate:"gt=0"`
	MaxUploadMemory int64  `env:"MAX_UPLOAD_MEMORY" envDefault:"33554432" validate:"gt=0"`
	LogLevel        string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=trace debug info warn warning error fatal panic"`
	LogFormat       string `env:"LOG_FORMAT" envDefault:"text" validate:"oneof=text json"`
	MetricsEnabled  bool   `env:"METRICS_ENABLED" envDefault:"true"`
	MetricsPath     string `env:"METRICS_PATH" envDefault:"/metrics" validate:"startswith=/"`
	SchemaSpecsPath string `env:"SCHEMA_SPECS_PATH"`
}

// LoadEnv loads the env files that exist and returns how many were loaded.
// Variables already set in the process environment win.
func LoadEnv(envFiles []string) (int, error) {
	existingFiles := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if info, err := os.Stat(file); err == nil && !info.IsDir() {
			existingFiles = append(existingFiles, file)
		}
	}
	if len(existingFiles) == 0 {
		return 0, nil
	}
	return len(existingFiles), godotenv.Load(existingFiles...)
}

// New loads the default env files and parses the configuration.
func New() (*Config, error) {
	if _, err := LoadEnv(DefaultEnvFiles); err != nil {
		return nil, fmt.Errorf("failed to load env files: %w", err)
	}
	return Parse()
}

// Parse reads the configuration from the process environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Logger builds the root logger for the configured level and format.
func (c *Config) Logger(out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	if c.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

func (c *Config) Address() string {
	return fmt.Sprintf(":%d", c.APIPort)
}
