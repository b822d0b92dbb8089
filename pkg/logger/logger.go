package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ProgramField is the field every log line is tagged with
const ProgramField = "program"

// Init initializes the global logger with the specified level and format.
// Output goes to w (stderr when nil) and is tagged with the invoking
// program's name.
func Init(w io.Writer, level, format string) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	log.Logger = New(w, level, format, filepath.Base(os.Args[0]))
	return log.Logger
}

// New builds a logger writing to w. Levels are rendered upper-case (INFO, ERROR)
// in both formats.
func New(w io.Writer, level, format, program string) zerolog.Logger {
	zerolog.SetGlobalLevel(ParseLevel(level))
	zerolog.LevelFieldMarshalFunc = func(l zerolog.Level) string {
		return strings.ToUpper(l.String())
	}

	var out io.Writer = w
	if format != "json" {
		out = zerolog.ConsoleWriter{
			Out:        w,
			NoColor:    true,
			TimeFormat: "2006-01-02T15:04:05",
			PartsOrder: []string{
				zerolog.TimestampFieldName,
				ProgramField,
				zerolog.LevelFieldName,
				zerolog.MessageFieldName,
			},
			FieldsExclude: []string{ProgramField},
			FormatLevel: func(i interface{}) string {
				return strings.ToUpper(fmt.Sprintf("%s:", i))
			},
		}
	}

	return zerolog.New(out).With().Timestamp().Str(ProgramField, program).Logger()
}

// ParseLevel maps a configured level name to a zerolog level (default info)
func ParseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Get returns a reference to the global logger
func Get() *zerolog.Logger {
	return &log.Logger
}
