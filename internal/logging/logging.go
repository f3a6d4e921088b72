// Package logging provides the structured logger shared by the service packages.
package logging

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the subset of zap's SugaredLogger used across the module.
type Logger interface {
	Debugw(msg string, keysAndValues ...any)
	Infow(msg string, keysAndValues ...any)
	Warnw(msg string, keysAndValues ...any)
	Errorw(msg string, keysAndValues ...any)
	Sync() error
}

var (
	mu     sync.RWMutex
	global Logger = zap.NewNop().Sugar()
	undo   func()
)

// ParseLevel converts debug, info, warn/warning or error into a zap level.
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zap.DebugLevel, nil
	case "", "info":
		return zap.InfoLevel, nil
	case "warn", "warning":
		return zap.WarnLevel, nil
	case "error":
		return zap.ErrorLevel, nil
	}
	return zap.InfoLevel, fmt.Errorf("unknown log level: %s", level)
}

// New builds a JSON production logger at the given level.
func New(level string) (*zap.SugaredLogger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger.Sugar(), nil
}

// Init replaces the global logger and redirects the standard library logger to it.
// It's safe to call more than once.
func Init(level string) (Logger, error) {
	sugar, err := New(level)
	if err != nil {
		return nil, err
	}

	mu.Lock()
	defer mu.Unlock()
	if undo != nil {
		undo()
	}
	undo = zap.RedirectStdLog(sugar.Desugar())
	global = sugar
	return sugar, nil
}

// L returns the global logger. Before Init it discards everything.
func L() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// Named returns a child of the global logger with the given name.
func Named(name string) Logger {
	if s, ok := L().(*zap.SugaredLogger); ok {
		return s.Named(name)
	}
	return L()
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return zap.NewNop().Sugar()
}
