package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"log/slog"

	"github.com/aiwire/observatory/internal/config"
)

func TestNewConfiguresSupportedFormats(t *testing.T) {
	tests := []struct {
		name   string
		format string
		level  slog.Level
	}{
		{name: "json", format: "json", level: slog.LevelWarn},
		{name: "text", format: "text", level: slog.LevelDebug},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := New(config.LoggingConfig{Level: tt.level, Format: tt.format})
			if logger == nil {
				t.Fatal("expected non-nil logger")
			}

			levels := []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError}
			ctx := context.Background()
			for _, lvl := range levels {
				enabled := logger.Enabled(ctx, lvl)
				expected := lvl >= tt.level
				if enabled != expected {
					t.Fatalf("logger level %v enabled(%v)=%t, want %t", tt.level, lvl, enabled, expected)
				}
			}

			if logger.Handler() == nil {
				t.Fatal("expected handler to be configured")
			}
		})
	}
}

func TestUnknownFormatFallsBackToJSON(t *testing.T) {
	var buf bytes.Buffer
	h := handlerFor(config.LoggingConfig{Level: slog.LevelInfo, Format: "pretty"}, &buf)

	logger := slog.New(h)
	logger.Info("boot", "component", "server")

	out := buf.String()
	if !strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Fatalf("expected JSON output for unknown format, got %q", out)
	}
	if !strings.Contains(out, `"msg":"boot"`) {
		t.Fatalf("expected JSON record, got %q", out)
	}
}

func TestTextFormatWritesKeyValuePairs(t *testing.T) {
	var buf bytes.Buffer
	h := handlerFor(config.LoggingConfig{Level: slog.LevelInfo, Format: "text"}, &buf)

	slog.New(h).Info("boot", "component", "server")

	out := buf.String()
	if strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Fatalf("expected text output, got %q", out)
	}
	if !strings.Contains(out, "component=server") {
		t.Fatalf("expected key=value attrs, got %q", out)
	}
}
