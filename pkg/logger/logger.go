package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// stdout is reserved for reports, so all logging goes to stderr.
var logger = New(os.Stderr)

// New builds a console logger writing to w at info level.
func New(w io.Writer) zerolog.Logger {
	_, isFile := w.(*os.File)
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
		NoColor:    !isFile,
	}).Level(zerolog.InfoLevel).With().Timestamp().Logger()
}

// SetOutput replaces the package logger, keeping its level.
func SetOutput(w io.Writer) {
	level := logger.GetLevel()
	logger = New(w).Level(level)
}

// SetDebug switches the package logger between debug and info level.
func SetDebug(enabled bool) {
	if enabled {
		logger = logger.Level(zerolog.DebugLevel)
		return
	}
	logger = logger.Level(zerolog.InfoLevel)
}

// SetLevel parses a level name such as "warn". Unknown names keep the current level.
func SetLevel(name string) {
	if name == "" {
		return
	}
	level, err := zerolog.ParseLevel(strings.ToLower(name))
	if err != nil {
		logger.Warn().Str("level", name).Msg("unknown log level, keeping current")
		return
	}
	logger = logger.Level(level)
}

// Component returns a child logger tagged with a component name.
func Component(name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}

func Debugf(format string, args ...interface{}) {
	logger.Debug().Msgf(format, args...)
}
