package observability

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger returns the process logger: JSON to stdout, debug in dev, with
// trace/span ids attached whenever the context carries a span.
func NewLogger(env string) *slog.Logger {
	return newLogger(env, os.Stdout)
}

func newLogger(env string, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if env == "dev" {
		level = slog.LevelDebug
	}

	base := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})

	return slog.New(NewTraceHandler(base)).With("service", "admissionhub")
}
