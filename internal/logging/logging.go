// Package logging configures the structured logger shared by the api and
// worker binaries.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New returns a logrus logger for the given level and environment.
// Development gets human-readable text; everything else gets JSON.
func New(level, env string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)

	if env == "development" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	if err != nil && level != "" {
		logger.WithField("level", level).Warn("unknown log level, defaulting to info")
	}

	return logger
}
