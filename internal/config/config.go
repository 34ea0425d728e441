package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	DefaultBaseURL = "https://openexchangerates.org/api/"
	DefaultPort    = "8081"
)

// Config holds all configuration for the CLI and the gateway
type Config struct {
	Port     string `validate:"required,numeric"`
	LogLevel string `validate:"oneof=debug info warn error"`

	// Open Exchange Rates API
	AppID   string        `validate:"required"`
	BaseURL string        `validate:"required,url"`
	Timeout time.Duration `validate:"gt=0"`

	MetricsEnabled  bool
	ShutdownTimeout time.Duration `validate:"gt=0"`
}

// envNames maps struct fields to the variables they are read from, for error messages
var envNames = map[string]string{
	"Port":            "PORT",
	"LogLevel":        "LOG_LEVEL",
	"AppID":           "OXR_APP_ID",
	"BaseURL":         "OXR_BASE_URL",
	"Timeout":         "OXR_TIMEOUT_SECONDS",
	"ShutdownTimeout": "SHUTDOWN_TIMEOUT_SECONDS",
}

var validate = validator.New()

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	timeoutSeconds, err := atoiEnv("OXR_TIMEOUT_SECONDS", 30)
	if err != nil {
		return nil, err
	}
	shutdownSeconds, err := atoiEnv("SHUTDOWN_TIMEOUT_SECONDS", 30)
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:     getEnv("PORT", DefaultPort),
		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),

		AppID:   getEnv("OXR_APP_ID", ""),
		BaseURL: getEnv("OXR_BASE_URL", DefaultBaseURL),
		Timeout: time.Duration(timeoutSeconds) * time.Second,

		MetricsEnabled:  getEnv("METRICS_ENABLED", "true") == "true",
		ShutdownTimeout: time.Duration(shutdownSeconds) * time.Second,
	}, nil
}

// Validate checks the configuration once flags and environment have been merged
func (cfg *Config) Validate() error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	problems := make([]string, 0, len(validationErrors))
	for _, fieldError := range validationErrors {
		problems = append(problems, fmt.Sprintf("%s failed %q (set %s)", fieldError.Field(), fieldError.Tag(), envNames[fieldError.Field()]))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func atoiEnv(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return parsed, nil
}
