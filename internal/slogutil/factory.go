package slogutil

import (
	"io"
	"log/slog"

	"scout/internal/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Setup builds the process logger from config. Console output goes to w in
// the configured format. When cfg.File is set a rotating file receives the
// same records in scout's line format. The returned closer releases the file.
func Setup(w io.Writer, cfg config.LoggingConfig, level slog.Level) (*slog.Logger, io.Closer, error) {
	var console slog.Handler
	if cfg.Format == "json" {
		console = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	} else {
		console = NewScoutHandler(w, &slog.HandlerOptions{Level: level})
	}

	if cfg.File == "" {
		return slog.New(console), nopCloser{}, nil
	}

	rf, err := OpenRotatingFile(cfg.File, ParseSize(cfg.MaxSize), cfg.MaxBackups)
	if err != nil {
		return nil, nil, err
	}

	// The file keeps debug detail regardless of console verbosity.
	file := NewScoutHandler(rf, &slog.HandlerOptions{Level: min(level, slog.LevelDebug)})
	return slog.New(NewTeeHandler(console, file)), rf, nil
}
