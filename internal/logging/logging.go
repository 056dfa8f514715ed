package logging

import (
	"io"
	"log/slog"
	"os"

	"github.com/aiwire/observatory/internal/config"
)

// New constructs the process logger on stdout. LOG_FORMAT is validated at
// config load, so an unrecognized format here falls back to JSON rather than
// failing boot.
func New(cfg config.LoggingConfig) *slog.Logger {
	return slog.New(handlerFor(cfg, os.Stdout))
}

func handlerFor(cfg config.LoggingConfig, w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{Level: cfg.Level}
	if cfg.Format == "text" {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}
