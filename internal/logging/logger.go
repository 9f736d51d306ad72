// Package logging builds the loggers of the holon commands.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// New creates a configured application logger.
// It writes to Stderr, keeping Stdout for command output and line RPC.
// It standardizes common keys (e.g., "error" -> "err").
func New(level slog.Level) *slog.Logger {
	return NewWriter(os.Stderr, level)
}

// NewWriter is New with another destination.
func NewWriter(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == "error" {
				a.Key = "err"
			}
			return a
		},
	}))
}

// NewNop returns a no-op logger.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ParseLevel reads debug, info, warn or error. "off" returns ok=false.
func ParseLevel(s string) (level slog.Level, ok bool, err error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "none":
		return 0, false, nil
	case "":
		return slog.LevelInfo, true, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, false, fmt.Errorf("invalid log level %q: use debug, info, warn, error or off", s)
	}
	return level, true, nil
}

// FromLevel builds the logger for a configured level name.
func FromLevel(s string) (*slog.Logger, error) {
	level, ok, err := ParseLevel(s)
	if err != nil {
		return nil, err
	}
	if !ok {
		return NewNop(), nil
	}
	return New(level), nil
}
