// Package logging builds the zap logger shared by the CLI, TUI and API client.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects where logs go. The TUI owns the terminal, so interactive
// sessions log to a file; scripted commands may log to stderr.
type Options struct {
	Level  string
	File   string
	Stderr bool
}

// New returns a logger and a close func that flushes it. With neither File nor
// Stderr set it returns a no-op logger.
func New(opt Options) (*zap.Logger, func(), error) {
	level, err := zapcore.ParseLevel(strings.TrimSpace(strings.ToLower(opt.Level)))
	if err != nil || strings.TrimSpace(opt.Level) == "" {
		level = zapcore.InfoLevel
	}

	var cores []zapcore.Core
	var closers []func()

	if path := strings.TrimSpace(opt.File); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log dir: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		enc := zap.NewProductionEncoderConfig()
		enc.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(f), level))
		closers = append(closers, func() { _ = f.Close() })
	}
	if opt.Stderr {
		enc := zap.NewDevelopmentEncoderConfig()
		enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.Lock(os.Stderr), level))
	}

	if len(cores) == 0 {
		return zap.NewNop(), func() {}, nil
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	return logger, func() {
		_ = logger.Sync()
		for _, c := range closers {
			c()
		}
	}, nil
}
