// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds logging configuration.
type Config struct {
	// Level is the minimum log level: trace, debug, info, warn, error, fatal, panic.
	Level string `koanf:"level"`

	// Format is json or console.
	Format string `koanf:"format"`

	// Caller adds file:line to every entry.
	Caller bool `koanf:"caller"`

	// Timestamp adds the time field.
	Timestamp bool `koanf:"timestamp"`

	// Destination is stdout, stderr or a file path. Ignored when Output is set.
	Destination string `koanf:"destination"`

	// File configures rotation when Destination is a file path.
	File FileConfig `koanf:"file"`

	// Output overrides Destination. Used by tests.
	Output io.Writer `koanf:"-"`
}

// FileConfig controls lumberjack rotation of the log file.
type FileConfig struct {
	MaxSizeMB  int  `koanf:"max_size_mb"`
	MaxBackups int  `koanf:"max_backups"`
	MaxAgeDays int  `koanf:"max_age_days"`
	Compress   bool `koanf:"compress"`
}

// DefaultConfig returns JSON info-level logging to stderr.
func DefaultConfig() Config {
	return Config{
		Level:       "info",
		Format:      "json",
		Timestamp:   true,
		Destination: "stderr",
		File: FileConfig{
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Compress:   true,
		},
	}
}

func (c *Config) writer() io.Writer {
	if c.Output != nil {
		return c.Output
	}
	switch strings.ToLower(c.Destination) {
	case "", "stderr":
		return os.Stderr
	case "stdout":
		return os.Stdout
	}
	return &lumberjack.Logger{
		Filename:   c.Destination,
		MaxSize:    c.File.MaxSizeMB,
		MaxBackups: c.File.MaxBackups,
		MaxAge:     c.File.MaxAgeDays,
		Compress:   c.File.Compress,
	}
}

var (
	mu     sync.RWMutex
	global zerolog.Logger
)

//nolint:gochecknoinits // logging works before Init
func init() {
	global = build(DefaultConfig())
}

// Init replaces the global logger. It may be called more than once.
func Init(cfg Config) {
	l := build(cfg)
	mu.Lock()
	global = l
	mu.Unlock()
}

func build(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.TimestampFieldName = "time"
	zerolog.MessageFieldName = "message"
	zerolog.ErrorFieldName = "error"

	out := cfg.writer()
	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	zc := zerolog.New(out).With()
	if cfg.Timestamp {
		zc = zc.Timestamp()
	}
	if cfg.Caller {
		zc = zc.Caller()
	}
	return zc.Logger()
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	case "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Logger returns a copy of the global logger.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// SetLogger replaces the global logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func SetLogger(l zerolog.Logger) {
	mu.Lock()
	global = l
	mu.Unlock()
}

// With starts a child of the global logger.
//
//	logger := logging.With().Str("component", "trainer").Logger()
func With() zerolog.Context {
	l := Logger()
	return l.With()
}

// GetLevel returns the process-wide minimum level.
func GetLevel() zerolog.Level { return zerolog.GlobalLevel() }

// SetLevel changes the process-wide minimum level.
func SetLevel(level zerolog.Level) { zerolog.SetGlobalLevel(level) }

// Trace starts a trace entry on the global logger.
func Trace() *zerolog.Event { l := Logger(); return l.Trace() }

// Debug starts a debug entry on the global logger.
func Debug() *zerolog.Event { l := Logger(); return l.Debug() }

// Info starts an info entry on the global logger.
func Info() *zerolog.Event { l := Logger(); return l.Info() }

// Warn starts a warn entry on the global logger.
func Warn() *zerolog.Event { l := Logger(); return l.Warn() }

// Error starts an error entry on the global logger.
func Error() *zerolog.Event { l := Logger(); return l.Error() }

// Fatal starts a fatal entry. Msg exits the process.
func Fatal() *zerolog.Event { l := Logger(); return l.Fatal() }

// Err starts an error entry with err attached, or an info entry when err is nil.
func Err(err error) *zerolog.Event { l := Logger(); return l.Err(err) }

// NewTestLogger returns a JSON logger writing to w, for capturing output in
// tests.
func NewTestLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}
