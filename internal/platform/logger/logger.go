package logger

import (
	"io"
	"log/slog"
	"os"
)

// New returns a structured logger. "text" is easier to read locally; anything
// else produces JSON.
func New(format string) *slog.Logger {
	return newWithWriter(os.Stdout, format)
}

func newWithWriter(w io.Writer, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
