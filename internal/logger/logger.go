// Package logger provides logging utilities for the pipeline commands.
package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger provides structured logging functionality.
type Logger struct {
	internal *zap.SugaredLogger
	level    zap.AtomicLevel
}

// Options configures a Logger.
type Options struct {
	Level string
	// Format is "console" or "json".
	Format      string
	OutputPaths []string
}

// New creates a logger from options.
func New(opts Options) (*Logger, error) {
	lvl := zap.NewAtomicLevelAt(ParseLevel(opts.Level))

	var cfg zap.Config
	if strings.EqualFold(opts.Format, "json") {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.DisableStacktrace = true
	}

	cfg.Level = lvl
	cfg.Sampling = nil
	cfg.OutputPaths = []string{"stderr"}

	if len(opts.OutputPaths) > 0 {
		cfg.OutputPaths = opts.OutputPaths
	}

	z, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build zap logger: %w", err)
	}

	return fromZap(z, lvl), nil
}

// NewNop returns a logger that discards everything. Used in tests.
func NewNop() *Logger {
	return fromZap(zap.NewNop(), zap.NewAtomicLevelAt(zapcore.InfoLevel))
}

// fromZap wraps z, skipping the wrapper's frame in caller annotations.
func fromZap(z *zap.Logger, lvl zap.AtomicLevel) *Logger {
	return &Logger{
		internal: z.WithOptions(zap.AddCallerSkip(1)).Sugar(),
		level:    lvl,
	}
}

// ParseLevel converts a level name to a zap level, defaulting to info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Info logs an info level message.
func (l *Logger) Info(msg string, args ...any) {
	l.internal.Infow(msg, args...)
}

// Error logs an error level message.
func (l *Logger) Error(msg string, args ...any) {
	l.internal.Errorw(msg, args...)
}

// Debug logs a debug level message.
func (l *Logger) Debug(msg string, args ...any) {
	l.internal.Debugw(msg, args...)
}

// Warn logs a warning level message.
func (l *Logger) Warn(msg string, args ...any) {
	l.internal.Warnw(msg, args...)
}

// With creates a child logger with the given attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		internal: l.internal.With(args...),
		level:    l.level,
	}
}

// SetLevel changes the level of this logger and all its children.
func (l *Logger) SetLevel(level string) {
	l.level.SetLevel(ParseLevel(level))
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.internal.Sync()
}
