// Package logger provides the process-wide operational logger for lexrag.
// Messages are structured with zap and written to stderr. Warnings and errors
// are always emitted; debug and info messages only appear in verbose mode.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Format selects the encoder used for log lines.
type Format string

const (
	// FormatConsole writes human-readable lines.
	FormatConsole Format = "console"

	// FormatJSON writes one JSON object per line.
	FormatJSON Format = "json"
)

var (
	mu      sync.RWMutex
	verbose bool
	format            = FormatConsole
	output  io.Writer = os.Stderr
	sugar             = build(FormatConsole, os.Stderr, false)
)

func build(f Format, w io.Writer, debug bool) *zap.SugaredLogger {
	encCfg := zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		NameKey:        "logger",
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}

	var enc zapcore.Encoder
	if f == FormatJSON {
		encCfg.TimeKey = "ts"
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encCfg.EncodeLevel = zapcore.LowercaseLevelEncoder
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.ConsoleSeparator = " "
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	level := zapcore.WarnLevel
	if debug {
		level = zapcore.DebugLevel
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(w), zap.NewAtomicLevelAt(level))
	return zap.New(core).Sugar()
}

func rebuild() {
	sugar = build(format, output, verbose)
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	rebuild()
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetFormat switches between console and JSON output.
// Unknown formats fall back to console.
func SetFormat(f Format) {
	mu.Lock()
	defer mu.Unlock()
	if f != FormatJSON {
		f = FormatConsole
	}
	format = f
	rebuild()
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	rebuild()
}

// L returns the underlying sugared logger, for components that want
// to attach their own fields with With.
func L() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

// Sync flushes any buffered log entries.
func Sync() {
	_ = L().Sync()
}

// Debug logs a formatted message if verbose mode is enabled.
func Debug(template string, args ...any) {
	L().Debugf(template, args...)
}

// Section logs a section header if verbose mode is enabled.
func Section(name string) {
	L().Debug(fmt.Sprintf("=== %s ===", name))
}

// Info logs a formatted message if verbose mode is enabled.
func Info(template string, args ...any) {
	L().Infof(template, args...)
}

// Warn logs a formatted warning.
func Warn(template string, args ...any) {
	L().Warnf(template, args...)
}

// Error logs a formatted error.
func Error(template string, args ...any) {
	L().Errorf(template, args...)
}

// Infow logs a message with structured key/value pairs if verbose mode is enabled.
func Infow(msg string, keysAndValues ...any) {
	L().Infow(msg, keysAndValues...)
}

// Warnw logs a warning with structured key/value pairs.
func Warnw(msg string, keysAndValues ...any) {
	L().Warnw(msg, keysAndValues...)
}

// Errorw logs an error with structured key/value pairs.
func Errorw(msg string, keysAndValues ...any) {
	L().Errorw(msg, keysAndValues...)
}
