package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config captures runtime configuration sourced from environment variables.
type Config struct {
	Environment  string
	HTTPPort     string
	DatabasePath string
	LogDir       string
	FrontendDir  string
	FixturesPath string
	Debug        bool
	Seed         bool

	// MonitorInterval paces schedule dispatch and worker heartbeat checks.
	// Zero disables the monitor.
	MonitorInterval time.Duration
}

// IsDevelopment reports whether the server runs in development mode.
func (c Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Load reads env vars and falls back to defaults so the server can boot with zero configuration.
func Load() (Config, error) {
	debug, err := getBool("DARKWATCH_DEBUG", false)
	if err != nil {
		return Config{}, err
	}
	seed, err := getBool("DARKWATCH_SEED", true)
	if err != nil {
		return Config{}, err
	}

	monitor, err := time.ParseDuration(getEnv("DARKWATCH_MONITOR_INTERVAL", "1m"))
	if err != nil || monitor < 0 {
		return Config{}, fmt.Errorf("DARKWATCH_MONITOR_INTERVAL: %q is not a duration", os.Getenv("DARKWATCH_MONITOR_INTERVAL"))
	}

	cfg := Config{
		Environment:  getEnv("DARKWATCH_ENV", "development"),
		HTTPPort:     getEnv("DARKWATCH_HTTP_PORT", "8080"),
		DatabasePath: getEnv("DARKWATCH_DB_PATH", filepath.Join("data", "darkwatch.db")),
		LogDir:       getEnv("DARKWATCH_LOG_DIR", filepath.Join("data", "logs")),
		FrontendDir:  getEnv("DARKWATCH_FRONTEND_DIR", filepath.Clean(filepath.Join("..", "frontend", "dist"))),
		FixturesPath: getEnv("DARKWATCH_FIXTURES", ""),
		Debug:        debug,
		Seed:         seed,

		MonitorInterval: monitor,
	}

	if _, err := strconv.Atoi(cfg.HTTPPort); err != nil {
		return Config{}, fmt.Errorf("DARKWATCH_HTTP_PORT: %q is not a port number", cfg.HTTPPort)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
		return Config{}, fmt.Errorf("ensure data directory: %w", err)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return fallback
}

func getBool(key string, fallback bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s: %q is not a boolean", key, raw)
	}
	return v, nil
}
