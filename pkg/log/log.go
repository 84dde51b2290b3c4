package log

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Logger defines the logging interface used by the verifier and its transport.
type Logger interface {
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})
	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Warn(args ...interface{})
	Warnf(format string, args ...interface{})
	Error(args ...interface{})
	Errorf(format string, args ...interface{})
	Fatal(args ...interface{})
	Fatalf(format string, args ...interface{})

	// WithField returns a logger that attaches key=value to every entry.
	WithField(key string, value interface{}) Logger
}

// DefaultLogger provides a default logger implementation using logrus.
type DefaultLogger struct {
	logger *logrus.Logger
	entry  *logrus.Entry
}

// NewDefaultLogger creates a new text logger at info level.
func NewDefaultLogger() *DefaultLogger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
		DisableColors: false,
	})
	logger.SetLevel(logrus.InfoLevel)

	return &DefaultLogger{
		logger: logger,
		entry:  logrus.NewEntry(logger),
	}
}

// NewLoggerWithLevel creates a new text logger with the specified level.
// Unknown levels fall back to info.
func NewLoggerWithLevel(level string) *DefaultLogger {
	logger := NewDefaultLogger()
	logger.SetLevel(level)
	return logger
}

// NewJSONLogger creates a logger emitting JSON lines, for running under a
// log collector.
func NewJSONLogger(level string) *DefaultLogger {
	logger := NewLoggerWithLevel(level)
	logger.logger.SetFormatter(&logrus.JSONFormatter{})
	return logger
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() *DefaultLogger {
	logger := NewDefaultLogger()
	logger.logger.SetOutput(io.Discard)
	return logger
}

func (l *DefaultLogger) Debug(args ...interface{}) {
	l.entry.Debug(args...)
}

func (l *DefaultLogger) Debugf(format string, args ...interface{}) {
	l.entry.Debugf(format, args...)
}

func (l *DefaultLogger) Info(args ...interface{}) {
	l.entry.Info(args...)
}

func (l *DefaultLogger) Infof(format string, args ...interface{}) {
	l.entry.Infof(format, args...)
}

func (l *DefaultLogger) Warn(args ...interface{}) {
	l.entry.Warn(args...)
}

func (l *DefaultLogger) Warnf(format string, args ...interface{}) {
	l.entry.Warnf(format, args...)
}

func (l *DefaultLogger) Error(args ...interface{}) {
	l.entry.Error(args...)
}

func (l *DefaultLogger) Errorf(format string, args ...interface{}) {
	l.entry.Errorf(format, args...)
}

// Fatal logs a message at fatal level and exits.
func (l *DefaultLogger) Fatal(args ...interface{}) {
	l.entry.Fatal(args...)
}

// Fatalf logs a formatted message at fatal level and exits.
func (l *DefaultLogger) Fatalf(format string, args ...interface{}) {
	l.entry.Fatalf(format, args...)
}

// WithField returns a child logger sharing the same output and level.
func (l *DefaultLogger) WithField(key string, value interface{}) Logger {
	return &DefaultLogger{
		logger: l.logger,
		entry:  l.entry.WithField(key, value),
	}
}

// SetLevel sets the log level. Invalid levels are ignored.
func (l *DefaultLogger) SetLevel(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return
	}
	l.logger.SetLevel(lvl)
}

// SetOutput redirects log output.
func (l *DefaultLogger) SetOutput(w io.Writer) {
	l.logger.SetOutput(w)
}

// GetLogrus returns the underlying logrus logger for advanced configuration.
func (l *DefaultLogger) GetLogrus() *logrus.Logger {
	return l.logger
}
