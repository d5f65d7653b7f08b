// Package logging sets up the server's zerolog logger. Output goes to
// stderr because stdout carries the MCP stream.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init builds the console logger for app at the given level, installs it as
// the global zerolog logger and returns it.
func Init(app, level string) (zerolog.Logger, error) {
	logger, err := New(os.Stderr, app, level)
	if err != nil {
		return zerolog.Nop(), err
	}
	log.Logger = logger
	return logger, nil
}

// New builds a console logger writing to w
func New(w io.Writer, app, level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), err
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
		NoColor:    true,
	}
	return zerolog.New(output).Level(lvl).With().Timestamp().Str("app", app).Logger(), nil
}
