// Package config centralises configuration parsing for the snapshot service.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config captures runtime configuration values for the snapshot service.
type Config struct {
	HTTPAddress      string
	GatewayURL       string
	GatewayToken     string
	GatewayRateLimit float64       // Requests per second against the health gateway.
	GatewayTimeout   time.Duration // Per-request timeout on gateway calls.
	Timezone         string        // IANA name of the user's local calendar.
	JWTSecret        string
	JWTIssuer        string
}

// Load reads environment variables into Config, applying sensible defaults
// for local dev.
func Load() Config {
	return Config{
		HTTPAddress:      getEnv("HTTP_ADDRESS", ":8080"),
		GatewayURL:       getEnv("GATEWAY_URL", "http://health-gateway:8090"),
		GatewayToken:     getEnv("GATEWAY_TOKEN", ""),
		GatewayRateLimit: getFloatEnv("GATEWAY_RATE_LIMIT", 5),
		GatewayTimeout:   getDurationEnv("GATEWAY_TIMEOUT", 30*time.Second),
		Timezone:         getEnv("TIMEZONE", "Local"),
		JWTSecret:        getEnv("JWT_SECRET", "dev-secret-change-me"),
		JWTIssuer:        getEnv("JWT_ISSUER", "i5e.identity"),
	}
}

// Location resolves the configured timezone, falling back to the system
// local zone when the name cannot be loaded.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getFloatEnv(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
