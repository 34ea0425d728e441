package testutils

import (
	"bytes"
	"context"
	"time"

	"github.com/dalfonso89/openexchangerates/internal/config"
	"github.com/dalfonso89/openexchangerates/internal/logger"
)

// MockLogger creates a debug logger that writes into buffer
func MockLogger(buffer *bytes.Buffer) *logger.Logger {
	return logger.NewWithOutput("debug", buffer)
}

// MockConfig creates a valid configuration pointing at baseURL
func MockConfig(baseURL string) *config.Config {
	return &config.Config{
		Port:     "8081",
		LogLevel: "debug",

		AppID:   TestAppID,
		BaseURL: baseURL,
		Timeout: 5 * time.Second,

		MetricsEnabled:  true,
		ShutdownTimeout: 5 * time.Second,
	}
}

// MockContextWithTimeout creates a context with timeout for testing
func MockContextWithTimeout(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}
