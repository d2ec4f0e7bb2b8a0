// Package config reads the process configuration from the environment,
// with defaults suiting local development. A .env file, if present, is
// loaded by the entrypoint before this runs.
package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port        int
	DatabaseURL string

	// StateTTL bounds orphaned room state; SweepInterval is how often the
	// in-memory store evicts expired keys.
	StateTTL      time.Duration
	SweepInterval time.Duration

	DisplayDelay time.Duration
	GraceDelay   time.Duration

	LogLevel  string
	LogPretty bool
}

func Load() Config {
	return Config{
		Port:          getEnvInt("PORT", 8080),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		StateTTL:      getEnvDuration("STATE_TTL", 2*time.Hour),
		SweepInterval: getEnvDuration("STATE_SWEEP_INTERVAL", time.Minute),
		DisplayDelay:  getEnvDuration("ROUND_DISPLAY_DELAY", 5*time.Second),
		GraceDelay:    getEnvDuration("DISCONNECT_GRACE", 10*time.Second),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogPretty:     getEnvBool("LOG_PRETTY", false),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return i
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return d
}

func getEnvBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return b
}
