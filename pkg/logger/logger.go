package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Log is the process-wide logger. It is usable before InitLogger runs so
// repositories and services can log from tests.
var Log = logrus.New()

// InitLogger configures Log for the server: JSON lines on stdout at the
// requested level, falling back to info for unknown levels.
func InitLogger(level string) {
	Log.Out = os.Stdout

	// Set JSON formatter for structured logging
	Log.SetFormatter(&logrus.JSONFormatter{})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)
}
