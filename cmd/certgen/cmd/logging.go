package cmd

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// levelFor maps the -v count to a log level.
func levelFor(verbose int) zerolog.Level {
	switch {
	case verbose <= 0:
		return zerolog.InfoLevel
	case verbose == 1:
		return zerolog.DebugLevel
	default:
		return zerolog.TraceLevel
	}
}

// newLogger returns a console logger writing to w. Colour is only used when
// w is a file, so captured output stays plain.
func newLogger(w io.Writer, verbose int) zerolog.Logger {
	_, isFile := w.(*os.File)
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly, NoColor: !isFile}
	return zerolog.New(out).Level(levelFor(verbose)).With().Timestamp().Logger()
}
