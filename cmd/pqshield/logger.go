package main

import (
	"io"
	"os"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

const consoleTimeFormat = time.RFC3339

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}

// newLogger builds the command logger from --loglevel and --logformat.
// Logs go to w so that command output on stdout stays machine readable.
func newLogger(c *cli.Context, w io.Writer) *zerolog.Logger {
	if c.String(logFormatFlag) != "json" {
		w = consoleWriter(w)
	}

	levelName := c.String(logLevelFlag)
	level, levelErr := zerolog.ParseLevel(levelName)
	if levelErr != nil {
		level = zerolog.InfoLevel
	}

	log := zerolog.New(w).Level(level).With().Timestamp().Logger()
	if levelErr != nil {
		log.Error().Msgf("Failed to parse log level %q, using %q instead", levelName, level)
	}
	return &log
}

func consoleWriter(w io.Writer) io.Writer {
	f, ok := w.(*os.File)
	if !ok {
		return zerolog.ConsoleWriter{Out: w, NoColor: true, TimeFormat: consoleTimeFormat}
	}
	return zerolog.ConsoleWriter{
		Out:        colorable.NewColorable(f),
		NoColor:    !isatty.IsTerminal(f.Fd()),
		TimeFormat: consoleTimeFormat,
	}
}
