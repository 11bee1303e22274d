package logger

import (
	"io"
	stdlog "log"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// Init configures the global zerolog logger. Pretty output goes to stderr as
// colored console lines; otherwise one JSON object per line is written.
// Standard library log output is routed through the same logger.
func Init(level string, pretty bool) {
	lvl := zerolog.InfoLevel
	if l, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level))); err == nil && l != zerolog.NoLevel {
		lvl = l
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339

	var w io.Writer = os.Stderr
	if pretty {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	}

	zlog.Logger = zerolog.New(w).Level(lvl).With().Timestamp().Logger()

	stdlog.SetFlags(0)
	stdlog.SetOutput(zlog.Logger)
}
