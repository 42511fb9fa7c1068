package slogutil

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"scout/internal/config"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
	}{
		{"", 0},
		{"invalid", 0},
		{"100", 100},
		{"100B", 100},
		{"1KB", 1000},
		{"1KiB", 1024},
		{"10MB", 10 * 1000 * 1000},
		{"1MiB", 1024 * 1024},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseSize(tt.input); got != tt.expected {
				t.Errorf("ParseSize(%q) = %d, want %d", tt.input, got, tt.expected)
			}
		})
	}
}

func TestRotatingFile_Rotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "scout.log")

	rf, err := OpenRotatingFile(path, 50, 2)
	if err != nil {
		t.Fatalf("OpenRotatingFile failed: %v", err)
	}

	line := []byte(strings.Repeat("a", 29) + "\n")
	for i := 0; i < 6; i++ {
		if _, err := rf.Write(line); err != nil {
			t.Fatalf("Write %d failed: %v", i, err)
		}
	}
	if err := rf.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	for _, p := range []string{path, path + ".1", path + ".2"} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("%s should exist: %v", filepath.Base(p), err)
		}
	}
	if _, err := os.Stat(path + ".3"); !os.IsNotExist(err) {
		t.Error("backups beyond maxBackups should be removed")
	}
}

func TestSetup(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "scout.log")

	var console bytes.Buffer
	logger, closer, err := Setup(&console, config.LoggingConfig{
		Format:     "human",
		File:       logPath,
		MaxSize:    "1MB",
		MaxBackups: 1,
	}, slog.LevelWarn)
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	logger.Debug("only in file")
	logger.Warn("everywhere")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if strings.Contains(console.String(), "only in file") {
		t.Error("console should respect the requested level")
	}
	if !strings.Contains(console.String(), "everywhere") {
		t.Error("console should receive warn records")
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "only in file") {
		t.Error("log file should receive debug records")
	}
}

func TestSetup_JSON(t *testing.T) {
	var console bytes.Buffer
	logger, _, err := Setup(&console, config.LoggingConfig{Format: "json"}, slog.LevelInfo)
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	logger.Info("hello", "k", 1)

	if !strings.HasPrefix(console.String(), "{") || !strings.Contains(console.String(), `"msg":"hello"`) {
		t.Errorf("expected JSON output, got: %s", console.String())
	}
}
