package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

var log zerolog.Logger

func init() {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(zerolog.ErrorLevel)

	log = newLogger(os.Stderr)
}

func newLogger(w io.Writer) zerolog.Logger {
	var output io.Writer = zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
	}

	return zerolog.New(output).
		With().
		Timestamp().
		Logger()
}

func GetLogger() *zerolog.Logger {
	return &log
}

// SetLogLevel maps the -v count onto the global zerolog level.
func SetLogLevel(verboseCount int) {
	var level zerolog.Level
	switch {
	case verboseCount == 1:
		level = zerolog.WarnLevel
	case verboseCount == 2:
		level = zerolog.InfoLevel
	case verboseCount == 3:
		level = zerolog.DebugLevel
	case verboseCount >= 4:
		level = zerolog.TraceLevel
	default:
		level = zerolog.ErrorLevel
	}
	zerolog.SetGlobalLevel(level)
}

// SetOutput swaps the writer behind the shared logger. Used by --log-file so
// the explorer can keep logging while it owns the terminal.
func SetOutput(w io.Writer) {
	log = newLogger(w)
}

// Disable silences the shared logger. The explorer calls this before taking
// over the screen unless a log file was requested.
func Disable() {
	zerolog.SetGlobalLevel(zerolog.Disabled)
}
