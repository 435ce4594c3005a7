// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Server   ServerConfig
	Database DatabaseConfig
	Events   EventsConfig
	Feed     FeedConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string        // Server port (default: 8080)
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
	CORSOrigins  []string      // Allowed CORS origins (default: *)
}

// DatabaseConfig holds Postgres connection configuration.
type DatabaseConfig struct {
	DSN             string        // Postgres connection string
	MaxOpenConns    int           // Connection pool size (default: 10)
	MaxIdleConns    int           // Idle connections kept (default: 5)
	ConnMaxLifetime time.Duration // Connection recycle interval (default: 1h)
}

// EventsConfig holds Ticketmaster Discovery API configuration.
type EventsConfig struct {
	APIKey    string
	BaseURL   string        // Override for tests (default: Ticketmaster v2)
	CacheTTL  time.Duration // Read-through cache entry lifetime (default: 30s)
	CacheSize int           // Max cached responses (default: 50)
}

// FeedConfig holds tunables for the blended "For You" feed.
type FeedConfig struct {
	PersonalCategoryCap int // Max listings per category from the personal bucket (default: 2)
	TopCategoryCap      int // Max listings per category from the top-rated bucket (default: 3)
	ExploreCategoryCap  int // Max listings per category from the explore bucket (default: 2)
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")

	serverPort := flag.String("port", "", "Server port (default: 8080)")
	readTimeout := flag.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := flag.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := flag.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	corsOrigins := flag.String("cors-origins", "", "Comma-separated allowed CORS origins")

	databaseDSN := flag.String("database-dsn", "", "Postgres connection string")
	eventsAPIKey := flag.String("events-api-key", "", "Ticketmaster Discovery API key")

	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Port:        getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			CORSOrigins: splitNonEmpty(getConfigValue(*corsOrigins, "CORS_ORIGINS", "*")),
		},
		Database: DatabaseConfig{
			DSN:          getConfigValue(*databaseDSN, "DATABASE_DSN", ""),
			MaxOpenConns: getIntConfigValue("", "DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns: getIntConfigValue("", "DATABASE_MAX_IDLE_CONNS", 5),
		},
		Events: EventsConfig{
			APIKey:    getConfigValue(*eventsAPIKey, "EVENTS_API_KEY", ""),
			BaseURL:   getConfigValue("", "EVENTS_BASE_URL", "https://app.ticketmaster.com/discovery/v2"),
			CacheSize: getIntConfigValue("", "EVENTS_CACHE_SIZE", 50),
		},
		Feed: FeedConfig{
			PersonalCategoryCap: getIntConfigValue("", "FEED_PERSONAL_CATEGORY_CAP", 2),
			TopCategoryCap:      getIntConfigValue("", "FEED_TOP_CATEGORY_CAP", 3),
			ExploreCategoryCap:  getIntConfigValue("", "FEED_EXPLORE_CATEGORY_CAP", 2),
		},
	}

	var err error
	if cfg.Server.ReadTimeout, err = parseDurationValue(*readTimeout, "SERVER_READ_TIMEOUT", "15s"); err != nil {
		return nil, fmt.Errorf("invalid read timeout: %w", err)
	}
	if cfg.Server.WriteTimeout, err = parseDurationValue(*writeTimeout, "SERVER_WRITE_TIMEOUT", "15s"); err != nil {
		return nil, fmt.Errorf("invalid write timeout: %w", err)
	}
	if cfg.Server.IdleTimeout, err = parseDurationValue(*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"); err != nil {
		return nil, fmt.Errorf("invalid idle timeout: %w", err)
	}
	if cfg.Database.ConnMaxLifetime, err = parseDurationValue("", "DATABASE_CONN_MAX_LIFETIME", "1h"); err != nil {
		return nil, fmt.Errorf("invalid connection lifetime: %w", err)
	}
	if cfg.Events.CacheTTL, err = parseDurationValue("", "EVENTS_CACHE_TTL", "30s"); err != nil {
		return nil, fmt.Errorf("invalid events cache TTL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Database.DSN == "" {
		return errors.New("DATABASE_DSN is required")
	}

	if c.Feed.PersonalCategoryCap < 1 || c.Feed.TopCategoryCap < 1 || c.Feed.ExploreCategoryCap < 1 {
		return errors.New("feed category caps must be at least 1")
	}

	// EVENTS_API_KEY can be empty - the events endpoint degrades to 503.

	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// parseDurationValue resolves a duration from flag, env var, or default.
func parseDurationValue(flagValue, envKey, defaultValue string) (time.Duration, error) {
	strValue := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(strValue)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", strValue, err)
	}
	return d, nil
}

// splitNonEmpty splits a comma-separated value, dropping empty entries.
func splitNonEmpty(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=value.
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		value = strings.Trim(value, `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
