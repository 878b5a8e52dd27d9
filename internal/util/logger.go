// internal/util/logger.go
package util

import (
	"os"

	"github.com/sirupsen/logrus"
)

var logger *logrus.Logger

// InitLogger initializes the global structured logger.
// format is "json" for production-like logs, anything else gives text output.
func InitLogger(level, format string) {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	if format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	logger = l
}

// GetLogger returns the initialized global logger.
func GetLogger() *logrus.Logger {
	if logger == nil {
		InitLogger("info", "text")
	}
	return logger
}
