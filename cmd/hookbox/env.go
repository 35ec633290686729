package main

import (
	"fmt"
	"os"

	"hookbox/internal/config"
)

// Helper functions for environment variables
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intVal int
		if _, err := fmt.Sscanf(value, "%d", &intVal); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// loadConfig loads path, or the first config found in the default locations.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		found, err := config.Find()
		if err != nil {
			return nil, fmt.Errorf("no configuration file found (use --config): %w", err)
		}
		path = found
	}
	return config.Load(path)
}
