package logger

import (
	"io"
	"log/slog"
)

// Format selects the slog handler New builds.
type Format int

const (
	// FormatText is slog's key=value text output, the default.
	FormatText Format = iota
	// FormatJSON is one JSON object per record, used for --log-file.
	FormatJSON
	// FormatPretty is the colorized charmbracelet/log output of the CLI.
	FormatPretty
)

// Option configures a Logger created with New.
type Option func(*config)

// WithDebug lowers the level to Debug when debug is set.
func WithDebug(debug bool) Option {
	return func(c *config) {
		c.level = slog.LevelInfo
		if debug {
			c.level = slog.LevelDebug
		}
	}
}

// WithFormat picks the output format. The last one given wins.
func WithFormat(f Format) Option {
	return func(c *config) {
		c.format = f
	}
}

// WithWriter sends output to w instead of os.Stdout. A nil w is ignored.
func WithWriter(w io.Writer) Option {
	return func(c *config) {
		if w != nil {
			c.writer = w
		}
	}
}

// WithSource records the caller's file and line on every record.
func WithSource(source bool) Option {
	return func(c *config) {
		c.source = source
	}
}
