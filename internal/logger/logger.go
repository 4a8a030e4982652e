// Package logger builds the logrus logger shared by the CLI and the
// generation pipeline.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Options configures a logger.
type Options struct {
	Level  string
	Output io.Writer
	JSON   bool
}

// New returns a logger writing to stderr (or Options.Output) at the given
// level. Unknown levels fall back to info.
func New(opts Options) *logrus.Logger {
	log := logrus.New()

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	log.SetOutput(out)

	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if opts.JSON {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
		return log
	}
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
		DisableQuote:    true,
		PadLevelText:    true,
	})
	return log
}


// Discard returns a logger that drops everything. Used by tests and by
// callers that pass no logger.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
