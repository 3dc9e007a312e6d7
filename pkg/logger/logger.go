// Package logger provides opinionated logging capabilities for the replay system
package logger

import (
	"io"
	"log/slog"
	"os"
	"time"

	charmlog "github.com/charmbracelet/log"
)

type config struct {
	level  slog.Level
	format Format
	source bool
	writer io.Writer
}

// New creates a *slog.Logger. By default it writes slog text output at Info
// level to os.Stdout.
func New(opts ...Option) *slog.Logger {
	c := &config{
		level:  slog.LevelInfo,
		format: FormatText,
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(c)
	}

	handlerOpts := &slog.HandlerOptions{
		Level:     c.level,
		AddSource: c.source,
	}

	switch c.format {
	case FormatPretty:
		return slog.New(newPrettyHandler(c))
	case FormatJSON:
		return slog.New(slog.NewJSONHandler(c.writer, handlerOpts))
	default:
		return slog.New(slog.NewTextHandler(c.writer, handlerOpts))
	}
}

// Nop returns a logger that discards everything.
func Nop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newPrettyHandler(c *config) *charmlog.Logger {
	level := charmlog.InfoLevel
	if c.level <= slog.LevelDebug {
		level = charmlog.DebugLevel
	}

	return charmlog.NewWithOptions(c.writer, charmlog.Options{
		Level:           level,
		ReportTimestamp: true,
		ReportCaller:    c.source,
		TimeFormat:      time.Kitchen,
	})
}
