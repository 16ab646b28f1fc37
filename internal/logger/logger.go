// Package logger provides structured logging for the PDF translator.
// It wraps zerolog with rotating file output and optional console echo,
// exposing package-level helpers so call sites stay terse.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Level names accepted by Config.Level and SetLevel.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Field represents a key-value pair for structured logging
type Field struct {
	Key   string
	Value interface{}
}

// String creates a string field
func String(key string, value string) Field {
	return Field{Key: key, Value: value}
}

// Int creates an integer field
func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

// Int64 creates an int64 field
func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

// Float64 creates a float64 field
func Float64(key string, value float64) Field {
	return Field{Key: key, Value: value}
}

// Bool creates a boolean field
func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

// Duration creates a duration field
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value}
}

// Err creates an error field
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Any creates a field with any value
func Any(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Config holds the configuration for the logger
type Config struct {
	// LogFilePath is the path to the log file. Empty disables file output.
	LogFilePath string
	// MaxSizeMB is the maximum size of the log file in megabytes before rotation
	MaxSizeMB int
	// MaxBackups is the maximum number of rotated log files to keep
	MaxBackups int
	// MaxAgeDays is the maximum age of rotated log files in days
	MaxAgeDays int
	// Compress enables gzip compression of rotated files
	Compress bool
	// Level is the minimum log level to output
	Level string
	// EnableConsole enables output to stderr in addition to file
	EnableConsole bool
	// Pretty switches console output to a human-readable format
	Pretty bool
}

// DefaultConfig returns a default logger configuration
func DefaultConfig() *Config {
	return &Config{
		LogFilePath: "pdf-translator.log",
		MaxSizeMB:   10,
		MaxBackups:  5,
		MaxAgeDays:  28,
		Level:       LevelInfo,
	}
}

var (
	mu       sync.RWMutex
	global   = zerolog.New(io.Discard)
	fileSink *lumberjack.Logger
)

// Init initializes the global logger with the given configuration.
func Init(config *Config) error {
	mu.Lock()
	defer mu.Unlock()

	if config == nil {
		config = DefaultConfig()
	}

	var writers []io.Writer
	if config.LogFilePath != "" {
		dir := filepath.Dir(config.LogFilePath)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create log directory: %w", err)
			}
		}
		if fileSink != nil {
			fileSink.Close()
		}
		fileSink = &lumberjack.Logger{
			Filename:   config.LogFilePath,
			MaxSize:    config.MaxSizeMB,
			MaxBackups: config.MaxBackups,
			MaxAge:     config.MaxAgeDays,
			Compress:   config.Compress,
		}
		writers = append(writers, fileSink)
	}
	if config.EnableConsole {
		if config.Pretty {
			writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
		} else {
			writers = append(writers, os.Stderr)
		}
	}
	if len(writers) == 0 {
		writers = append(writers, io.Discard)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	global = zerolog.New(io.MultiWriter(writers...)).Level(parseLevel(config.Level)).With().Timestamp().Logger()
	log.Logger = global
	return nil
}

// parseLevel maps a level name to a zerolog level, defaulting to info.
func parseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// SetLevel adjusts the minimum level of the global logger.
func SetLevel(level string) {
	mu.Lock()
	defer mu.Unlock()
	global = global.Level(parseLevel(level))
	log.Logger = global
}

// Close releases the rotating file sink and silences the global logger.
func Close() error {
	mu.Lock()
	defer mu.Unlock()

	global = zerolog.New(io.Discard)
	log.Logger = global
	if fileSink != nil {
		err := fileSink.Close()
		fileSink = nil
		return err
	}
	return nil
}

// Get returns a copy of the global zerolog logger for callers that want
// the native chained API.
func Get() *zerolog.Logger {
	l := current()
	return &l
}

func current() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// Debug logs a debug message using the global logger
func Debug(msg string, fields ...Field) {
	l := current()
	emit(l.Debug(), nil, fields, msg)
}

// Info logs an informational message using the global logger
func Info(msg string, fields ...Field) {
	l := current()
	emit(l.Info(), nil, fields, msg)
}

// Warn logs a warning message using the global logger
func Warn(msg string, fields ...Field) {
	l := current()
	emit(l.Warn(), nil, fields, msg)
}

// Error logs an error message using the global logger
func Error(msg string, err error, fields ...Field) {
	l := current()
	emit(l.Error(), err, fields, msg)
}

// emit attaches the error and fields to the event and writes it.
func emit(e *zerolog.Event, err error, fields []Field, msg string) {
	if err != nil {
		e = e.Err(err)
	}
	for _, f := range fields {
		switch v := f.Value.(type) {
		case nil:
			// Err(nil) and friends carry no value
		case string:
			e = e.Str(f.Key, v)
		case int:
			e = e.Int(f.Key, v)
		case int64:
			e = e.Int64(f.Key, v)
		case float64:
			e = e.Float64(f.Key, v)
		case bool:
			e = e.Bool(f.Key, v)
		case time.Duration:
			e = e.Dur(f.Key, v)
		default:
			e = e.Interface(f.Key, v)
		}
	}
	e.Msg(msg)
}
