// Package logging builds the structured logger shared by every stocksentiment
// component.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/phuslu/log"

	"github.com/seenimoa/stocksentiment/internal/config"
)

const timeFormat = "2006-01-02T15:04:05Z07:00"

// New returns a logger for cfg writing to w. A nil w means stderr.
// Format "json" emits one JSON object per line; anything else is the
// human-readable console form.
func New(cfg config.LoggingConfig, w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}

	var writer log.Writer
	if strings.EqualFold(cfg.Format, "json") {
		writer = &log.IOWriter{Writer: w}
	} else {
		writer = &log.ConsoleWriter{
			Writer:      w,
			ColorOutput: isTerminal(w),
			QuoteString: true,
		}
	}

	return &log.Logger{
		Level:      ParseLevel(cfg.Level),
		TimeFormat: timeFormat,
		Writer:     writer,
	}
}

// Nop returns a logger that discards everything. Used by tests and by
// library callers that did not supply a logger.
func Nop() *log.Logger {
	return &log.Logger{Level: log.PanicLevel + 1, Writer: &log.IOWriter{Writer: io.Discard}}
}

// ParseLevel maps a config level name to a phuslu level, defaulting to info.
func ParseLevel(level string) log.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return log.TraceLevel
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return log.IsTerminal(f.Fd())
}
