// Package log provides a thread-safe, structured logging infrastructure with filesystem-based persistence.
package log

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/anisan-cli/adplay/filesystem"
	"github.com/anisan-cli/adplay/key"
	"github.com/anisan-cli/adplay/where"
	"github.com/samber/lo"
	logrus "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Fields is a set of structured key/value pairs attached to an entry.
type Fields = logrus.Fields

var (
	enabled bool
	logger  = logrus.New()
)

// Setup initializes the logging subsystem, including file handles, formatting, and severity levels based on global configuration.
// If logging is disabled, all subsequent log emissions are silently discarded.
func Setup() error {
	enabled = viper.GetBool(key.LogsWrite)
	if !enabled {
		return nil
	}

	dir := where.Logs()
	if dir == "" {
		return errors.New("log directory path is empty")
	}

	filename := fmt.Sprintf("%s.log", time.Now().Format("2006-01-02"))
	path := filepath.Join(dir, filename)

	if exists := lo.Must(filesystem.API().Exists(path)); !exists {
		lo.Must(filesystem.API().Create(path))
	}

	f, err := filesystem.API().OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	configure(f, viper.GetBool(key.LogsJson), viper.GetString(key.LogsLevel))
	return nil
}

// SetOutput enables logging to w at the given level, bypassing the log file.
func SetOutput(w io.Writer, level string) {
	enabled = true
	configure(w, false, level)
}

func configure(w io.Writer, json bool, level string) {
	logger.SetOutput(w)

	if json {
		logger.SetFormatter(&logrus.JSONFormatter{PrettyPrint: true})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{DisableColors: true})
	}

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)
}

// Entry is the subset of logrus.Entry used by callers that attach fields.
type Entry interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type nopEntry struct{}

func (nopEntry) Debugf(string, ...interface{}) {}
func (nopEntry) Infof(string, ...interface{})  {}
func (nopEntry) Warnf(string, ...interface{})  {}
func (nopEntry) Errorf(string, ...interface{}) {}

// WithFields returns an entry carrying fields; a no-op entry when logging is disabled.
func WithFields(fields Fields) Entry {
	if !enabled {
		return nopEntry{}
	}
	return logger.WithFields(fields)
}

// Severity-specific emissions, forwarded to the backend when logging is enabled.

func Error(args ...interface{}) {
	if enabled {
		logger.Error(args...)
	}
}
func Errorf(format string, args ...interface{}) {
	if enabled {
		logger.Errorf(format, args...)
	}
}
func Warn(args ...interface{}) {
	if enabled {
		logger.Warn(args...)
	}
}
func Warnf(format string, args ...interface{}) {
	if enabled {
		logger.Warnf(format, args...)
	}
}
func Info(args ...interface{}) {
	if enabled {
		logger.Info(args...)
	}
}
func Infof(format string, args ...interface{}) {
	if enabled {
		logger.Infof(format, args...)
	}
}
func Debug(args ...interface{}) {
	if enabled {
		logger.Debug(args...)
	}
}
func Debugf(format string, args ...interface{}) {
	if enabled {
		logger.Debugf(format, args...)
	}
}
