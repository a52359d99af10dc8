// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

// Store backends.
const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
)

// Config holds the application configuration.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Data     DataConfig
	Store    StoreConfig
	Server   ServerConfig
	Tracking TrackingConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// DataConfig holds the on-disk location for course data.
type DataConfig struct {
	BasePath string
}

// StoreConfig selects the course store backend.
type StoreConfig struct {
	Backend string // sqlite (default) or badger
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port           string        // Server port (default: 8080)
	ReadTimeout    time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout   time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout    time.Duration // HTTP idle timeout (default: 60s)
	AllowedOrigins []string      // CORS origins; the extension origin in practice
	RateLimit      float64       // Requests per second per client IP, 0 disables (default: 20)
}

// TrackingConfig holds playback tracking and housekeeping settings.
type TrackingConfig struct {
	// TicksPerSecond bounds how often a session may report active playback.
	TicksPerSecond float64
	// StaleAfter is how long a course may go unwatched before cleanup removes it.
	StaleAfter time.Duration
	// CleanupSchedule is a cron spec for the stale-course sweep. Empty disables it.
	CleanupSchedule string
	// InboxPath is a directory watched for "<videoID>.txt" chapter imports. Empty disables it.
	InboxPath string
	// InboxSettleDelay is how long an inbox file must be quiet before import.
	InboxSettleDelay time.Duration
}

// LoadConfig loads configuration from the process arguments.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("tracker", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := fs.String("data-path", "", "Base path for course data")
	storeBackend := fs.String("store", "", "Course store backend (sqlite, badger)")

	// Server flags
	serverPort := fs.String("port", "", "Server port (default: 8080)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	allowedOrigins := fs.String("allowed-origins", "", "Comma-separated CORS origins (default: *)")
	rateLimit := fs.String("rate-limit", "", "API requests per second per client, 0 disables (default: 20)")

	// Tracking flags
	tickRate := fs.String("tick-rate", "", "Max playback ticks per second per session (default: 1)")
	staleAfter := fs.String("stale-after", "", "Remove courses not watched for this long (default: 720h)")
	cleanupSchedule := fs.String("cleanup-schedule", "", "Cron spec for stale course cleanup (default: @weekly)")
	inboxPath := fs.String("inbox-path", "", "Directory watched for chapter import files")
	inboxSettle := fs.String("inbox-settle", "", "Quiet period before an inbox file is imported (default: 2s)")

	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Load .env file if it exists. Already-set variables win.
	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load env file %s: %w", *envFile, err)
	}

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Data: DataConfig{
			BasePath: getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		Store: StoreConfig{
			Backend: strings.ToLower(getConfigValue(*storeBackend, "STORE_BACKEND", BackendSQLite)),
		},
		Server: ServerConfig{
			Port:           getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			AllowedOrigins: splitList(getConfigValue(*allowedOrigins, "ALLOWED_ORIGINS", "*")),
			RateLimit:      getFloatConfigValue(*rateLimit, "RATE_LIMIT", 20),
		},
		Tracking: TrackingConfig{
			TicksPerSecond:  getFloatConfigValue(*tickRate, "TICK_RATE", 1),
			CleanupSchedule: getConfigValue(*cleanupSchedule, "CLEANUP_SCHEDULE", "@weekly"),
			InboxPath:       getConfigValue(*inboxPath, "INBOX_PATH", ""),
		},
	}

	var err error
	if cfg.Server.ReadTimeout, err = getDurationConfigValue(*readTimeout, "SERVER_READ_TIMEOUT", 15*time.Second); err != nil {
		return nil, fmt.Errorf("invalid read timeout: %w", err)
	}
	if cfg.Server.WriteTimeout, err = getDurationConfigValue(*writeTimeout, "SERVER_WRITE_TIMEOUT", 15*time.Second); err != nil {
		return nil, fmt.Errorf("invalid write timeout: %w", err)
	}
	if cfg.Server.IdleTimeout, err = getDurationConfigValue(*idleTimeout, "SERVER_IDLE_TIMEOUT", 60*time.Second); err != nil {
		return nil, fmt.Errorf("invalid idle timeout: %w", err)
	}
	if cfg.Tracking.StaleAfter, err = getDurationConfigValue(*staleAfter, "STALE_AFTER", 30*24*time.Hour); err != nil {
		return nil, fmt.Errorf("invalid stale-after: %w", err)
	}
	if cfg.Tracking.InboxSettleDelay, err = getDurationConfigValue(*inboxSettle, "INBOX_SETTLE", 2*time.Second); err != nil {
		return nil, fmt.Errorf("invalid inbox settle delay: %w", err)
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
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

	if c.Data.BasePath == "" {
		return errors.New("data base path cannot be empty after expansion")
	}

	switch c.Store.Backend {
	case BackendSQLite, BackendBadger:
	default:
		return fmt.Errorf("invalid store backend: %s (must be sqlite or badger)", c.Store.Backend)
	}

	if c.Server.RateLimit < 0 {
		return fmt.Errorf("rate limit cannot be negative, got %v", c.Server.RateLimit)
	}

	if c.Tracking.TicksPerSecond <= 0 {
		return fmt.Errorf("tick rate must be positive, got %v", c.Tracking.TicksPerSecond)
	}

	if c.Tracking.StaleAfter <= 0 {
		return errors.New("stale-after must be positive")
	}

	return nil
}

// StorePath returns the location of the configured store backend.
func (c *Config) StorePath() string {
	if c.Store.Backend == BackendBadger {
		return filepath.Join(c.Data.BasePath, "courses.badger")
	}
	return filepath.Join(c.Data.BasePath, "courses.db")
}

// SearchIndexPath returns the directory of the course search index.
func (c *Config) SearchIndexPath() string {
	return filepath.Join(c.Data.BasePath, "search")
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

func (c *Config) expandPaths() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	if c.Data.BasePath, err = expandPath(c.Data.BasePath, filepath.Join(homeDir, "VideoTracker", "data")); err != nil {
		return err
	}

	// Inbox stays disabled when unset.
	if c.Tracking.InboxPath, err = expandPath(c.Tracking.InboxPath, ""); err != nil {
		return err
	}
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getFloatConfigValue returns a float from flag, env var, or default.
// Unparseable values fall back to the default.
func getFloatConfigValue(flagValue, envKey string, defaultValue float64) float64 {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	v, err := cast.ToFloat64E(strValue)
	if err != nil {
		return defaultValue
	}
	return v
}

// getDurationConfigValue returns a duration from flag, env var, or default.
func getDurationConfigValue(flagValue, envKey string, defaultValue time.Duration) (time.Duration, error) {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue, nil
	}
	d, err := cast.ToDurationE(strValue)
	if err != nil {
		return 0, fmt.Errorf("%s=%q: %w", envKey, strValue, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
