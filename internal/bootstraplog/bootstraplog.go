// Package bootstraplog provides the logrus-based diagnostic logger the Hub
// uses before pkg/flog exists to log with; pkg/hub logs its "hub
// initialized" line through it (spec.md §4.9). Grounded on the teacher's
// internal/app.App use of a process-wide *logrus.Logger for its own
// operational logging, one layer below the structured event pipeline it
// orchestrates.
package bootstraplog

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New returns a logrus logger configured the way the teacher configures
// its own bootstrap logger: JSON to stderr, info level by default.
func New() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetLevel(logrus.InfoLevel)
	return l
}
