// Package cli holds the bootstrap steps shared by the binaries under cmd/.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"expensetracker/internal/config"
	applog "expensetracker/internal/log"
)

// LoadEnvFile loads .env for local development. A missing file is not an
// error.
func LoadEnvFile(paths ...string) {
	_ = godotenv.Load(paths...)
}

// SetupLogger builds the application logger from cfg, installs it as the
// slog default and returns it.
func SetupLogger(cfg *config.Config, w io.Writer) *applog.Logger {
	level, err := applog.ParseLevel(cfg.LogLevel)
	if w == nil {
		w = os.Stdout
	}
	logger := applog.New(applog.Config{
		Level:     level,
		Format:    cfg.LogFormat,
		Component: applog.ComponentApp,
		Output:    w,
	})
	applog.SetDefault(logger)
	if err != nil {
		logger.Warn("Unknown log level, using info", "error", err)
	}
	return logger
}

// LoadConfig reads the environment and applies command line overrides.
func LoadConfig(name string, args []string) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	BindFlags(fs, cfg)
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}
	return cfg, nil
}

// BindFlags registers overrides for the most commonly changed settings.
// The current cfg values are the flag defaults.
func BindFlags(fs *pflag.FlagSet, cfg *config.Config) {
	fs.StringVarP(&cfg.Port, "port", "p", cfg.Port, "listen port (PORT)")
	fs.StringVar(&cfg.DataBackend, "backend", cfg.DataBackend, "data backend: json, memory, sqlite or postgres (DATA_BACKEND)")
	fs.StringVar(&cfg.DataFile, "data-file", cfg.DataFile, "JSON data file (DATA_FILE)")
	fs.StringVar(&cfg.SQLiteDBPath, "sqlite-db", cfg.SQLiteDBPath, "SQLite database path (SQLITE_DB_PATH)")
	fs.StringVar(&cfg.PublicDir, "public-dir", cfg.PublicDir, "static assets directory (PUBLIC_DIR)")
	fs.StringVar(&cfg.AuditLogPath, "audit-log", cfg.AuditLogPath, "audit trail output (AUDIT_LOG_PATH)")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error (LOG_LEVEL)")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "text or json (LOG_FORMAT)")
	fs.BoolVar(&cfg.MetricsEnabled, "metrics", cfg.MetricsEnabled, "expose GET /metrics (METRICS_ENABLED)")
}

// LoadAndValidateConfig combines LoadConfig and Config.Validate.
func LoadAndValidateConfig(name string, args []string) (*config.Config, error) {
	cfg, err := LoadConfig(name, args)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
