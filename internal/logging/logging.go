// Package logging configures the process-wide logrus logger, following the
// single-call-at-startup pattern in
// OpenTollGate-tollgate-module-basic-go/src/logger_init.go, generalized from
// a global logrus.SetLevel/SetFormatter call to a per-subsystem
// logrus.Fields convention used across every wardend package.
package logging

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// Init configures the global logrus logger with the given level ("debug",
// "info", "warn", "error", ...). Called once from cmd/wardend before any
// collaborator is constructed.
func Init(level string) *logrus.Logger {
	parsed, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		parsed = logrus.InfoLevel
		logrus.WithError(err).Warn("failed to parse log level, defaulting to info")
	}

	logrus.SetLevel(parsed)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	logrus.WithField("log_level", parsed.String()).Info("wardend logger initialized")
	return logrus.StandardLogger()
}

// For component-scoped fields, callers do logrus.WithField("component", name)
// once and pass the resulting *logrus.Entry down through a collaborator's
// constructor, matching the per-subsystem convention every internal package
// in this module follows.
