package logging

import (
	"io"
	"os"
	"strings"

	"github.com/phuslu/log"
)

// Output formats
const (
	FormatAuto    = "auto"
	FormatConsole = "console"
	FormatJSON    = "json"
)

// New builds a structured logger.
// format is "console", "json" or "auto" (console when stderr is a terminal).
func New(level, format string) *log.Logger {
	return NewWithWriter(level, format, os.Stderr)
}

// NewWithWriter is New with an explicit output
func NewWithWriter(level, format string, out io.Writer) *log.Logger {
	if level == "" {
		level = "info"
	}

	logger := &log.Logger{
		Level:      log.ParseLevel(strings.ToLower(level)),
		TimeFormat: "15:04:05",
	}

	console := false
	switch strings.ToLower(format) {
	case FormatConsole, "text":
		console = true
	case FormatJSON:
	default:
		if f, ok := out.(*os.File); ok {
			console = log.IsTerminal(f.Fd())
		}
	}

	if console {
		logger.Writer = &log.ConsoleWriter{
			Writer:         out,
			ColorOutput:    out == os.Stderr || out == os.Stdout,
			QuoteString:    true,
			EndWithMessage: true,
		}
	} else {
		logger.TimeFormat = ""
		logger.Writer = &log.IOWriter{Writer: out}
	}
	return logger
}

// Nop returns a logger that discards everything
func Nop() *log.Logger {
	return &log.Logger{
		Level:  log.PanicLevel,
		Writer: &log.IOWriter{Writer: io.Discard},
	}
}

// OrNop returns l, or a discarding logger when l is nil
func OrNop(l *log.Logger) *log.Logger {
	if l == nil {
		return Nop()
	}
	return l
}
