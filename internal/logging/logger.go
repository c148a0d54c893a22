// Package logging builds the logrus loggers shared by the server, the
// handlers and the queue consumer.
//
// Usage:
//
//	log := logging.NewLogger("wild-series", "info")
//	log.WithField("program_id", id).Info("program published")
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger creates a JSON logrus logger writing to stdout.  Unknown or
// empty levels fall back to info.  The service field is embedded in every
// log line.
func NewLogger(service, level string) *logrus.Entry {
	return newLogger(os.Stdout, service, level)
}

func newLogger(w io.Writer, service, level string) *logrus.Entry {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	log.SetOutput(w)

	lvl, err := logrus.ParseLevel(level)
	if err != nil || level == "" {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	return log.WithField("service", service)
}

// Discard returns a logger that drops everything, used by tests.
func Discard() *logrus.Entry {
	return newLogger(io.Discard, "test", "panic")
}
