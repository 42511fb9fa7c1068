package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"scout/internal/config"
	"scout/internal/embedding"
	scouterrors "scout/internal/errors"
	"scout/internal/github"
	"scout/internal/slogutil"
	"scout/internal/storage"
)

// app bundles what a command needs: config, logger and the open store.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	db        *storage.DB
	logCloser io.Closer
}

// loadConfig reads config from the working directory and applies the
// global flags on top.
func loadConfig() (*config.Config, error) {
	root, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadConfig(root)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if dbFlag != "" {
		cfg.DBPath = dbFlag
	}
	if logLevelFlag != "" {
		cfg.Logging.Level = logLevelFlag
	}
	if err := cfg.Validate(); err != nil {
		return nil, scouterrors.Wrap(scouterrors.ValidationError, err.Error(), err)
	}
	return cfg, nil
}

// newLogger builds the process logger. Logs always go to stderr so stdout
// stays parseable.
func newLogger(cfg *config.Config) (*slog.Logger, io.Closer, error) {
	level := slogutil.LevelFromVerbosity(verboseFlag, quietFlag, slogutil.LevelFromString(cfg.Logging.Level))
	return slogutil.Setup(os.Stderr, cfg.Logging, level)
}

func openApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, closer, err := newLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	db, err := storage.Open(cfg.DBPath, slogutil.Component(logger, "storage"))
	if err != nil {
		_ = closer.Close()
		return nil, err
	}
	logger.Debug("Opened knowledge store", "path", db.Path())
	return &app{cfg: cfg, logger: logger, db: db, logCloser: closer}, nil
}

// Close releases the store and the log file.
func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.logger.Warn("Failed to close database", "error", err)
	}
	_ = a.logCloser.Close()
}

// component returns the logger tagged for one subsystem.
func (a *app) component(name string) *slog.Logger {
	return slogutil.Component(a.logger, name)
}

func (a *app) embedder() (*embedding.Service, error) {
	logger := a.component("embedding")
	svc, err := embedding.NewFromConfig(a.cfg.Embedder, a.cfg.HTTPTimeout(), logger)
	if err != nil {
		return nil, err
	}
	logger.Debug("Embedding backends configured", "order", svc.Backends(), "dim", svc.Dim())
	return svc, nil
}

func (a *app) github() (*github.Client, error) {
	return github.NewClient(github.Options{
		Token:           a.cfg.GitHub.Token,
		BaseURL:         a.cfg.GitHub.BaseURL,
		Timeout:         a.cfg.HTTPTimeout(),
		SearchPerMinute: a.cfg.GitHub.SearchPerMinute,
	}, a.component("github"))
}

// newContext returns a context cancelled on interrupt.
func newContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// printResponse writes resp to stdout in the selected format.
func printResponse(resp interface{}) error {
	out, err := FormatResponse(resp, OutputFormat(formatFlag))
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}
