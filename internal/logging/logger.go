package logging

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	FormatConsole = "console"
	FormatSimple  = "simple"
	FormatJSON    = "json"
)

var logger = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)

	level, err := ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	return l
}

// GetLogger returns the process logger. Components get it passed in as a
// logrus.FieldLogger instead of reaching for the package functions.
func GetLogger() *logrus.Logger {
	return logger
}

// ParseLevel accepts the level names used in the configuration file.
// An empty value maps to info.
func ParseLevel(level string) (logrus.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "":
		return logrus.InfoLevel, nil
	case "critical", "fatal":
		return logrus.FatalLevel, nil
	case "warn":
		return logrus.WarnLevel, nil
	}

	return logrus.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
}

// Formatter returns the logrus formatter for one of the supported formats.
func Formatter(format string) (logrus.Formatter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatConsole:
		return &logrus.TextFormatter{
			FullTimestamp: true,
		}, nil
	case FormatSimple:
		return &logrus.TextFormatter{
			DisableTimestamp: true,
			DisableColors:    true,
		}, nil
	case FormatJSON:
		return &logrus.JSONFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported log format: %s", format)
	}
}

// Setup applies level and format to the process logger.
func Setup(level, format string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	formatter, err := Formatter(format)
	if err != nil {
		return err
	}

	logger.SetLevel(lvl)
	logger.SetFormatter(formatter)

	return nil
}

func Debug(args ...interface{}) {
	logger.Debug(args...)
}

func Debugf(format string, args ...interface{}) {
	logger.Debugf(format, args...)
}

func Info(args ...interface{}) {
	logger.Info(args...)
}

func Infof(format string, args ...interface{}) {
	logger.Infof(format, args...)
}

func Warn(args ...interface{}) {
	logger.Warn(args...)
}

func Warnf(format string, args ...interface{}) {
	logger.Warnf(format, args...)
}

func Error(args ...interface{}) {
	logger.Error(args...)
}

func Errorf(format string, args ...interface{}) {
	logger.Errorf(format, args...)
}

func WithField(key string, value interface{}) *logrus.Entry {
	return logger.WithField(key, value)
}

func WithFields(fields logrus.Fields) *logrus.Entry {
	return logger.WithFields(fields)
}
