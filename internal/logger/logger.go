// Package logger provides structured logging with console and optional file output.
package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog for structured logging.
type Logger struct {
	zerolog.Logger
}

// New creates a logger with the given level. An empty logFile disables file output.
func New(level string, logFile string) (*Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	writers := []io.Writer{
		zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"},
	}

	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0755); err != nil {
			return nil, err
		}

		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, err
		}
		writers = append(writers, file)
	}

	l := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(lvl).
		With().
		Timestamp().
		Str("service", "lexscout").
		Logger()

	return &Logger{l}, nil
}

// Component returns a child logger tagged with the component name.
func (l *Logger) Component(name string) *zerolog.Logger {
	child := l.With().Str("component", name).Logger()
	return &child
}

// Global is the process-wide logger.
var Global *Logger

// Init initializes the global logger.
func Init(level string, logFile string) error {
	l, err := New(level, logFile)
	if err != nil {
		return err
	}
	Global = l
	return nil
}

// Get returns the global logger, or a no-op logger if Init was never called.
func Get() *Logger {
	if Global == nil {
		return &Logger{zerolog.Nop()}
	}
	return Global
}

// Info logs an info message using the global logger.
func Info(msg string) {
	if Global != nil {
		Global.Info().Msg(msg)
	}
}

// Warn logs a warning using the global logger.
func Warn(msg string, err error) {
	if Global != nil {
		Global.Warn().Err(err).Msg(msg)
	}
}

// Error logs an error message using the global logger.
func Error(msg string, err error) {
	if Global != nil {
		Global.Error().Err(err).Msg(msg)
	}
}

// Debug logs a debug message using the global logger.
func Debug(msg string) {
	if Global != nil {
		Global.Debug().Msg(msg)
	}
}
