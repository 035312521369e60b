// Swipedeck - Ranked Swipe Deck Builder and Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/swipedeck

package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
)

// captureGlobal redirects the global logger into a buffer for the test.
func captureGlobal(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := Logger()
	prevLevel := zerolog.GlobalLevel()
	SetLogger(NewTestLogger(&buf))
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	t.Cleanup(func() {
		SetLogger(prev)
		zerolog.SetGlobalLevel(prevLevel)
	})
	return &buf
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Level != "info" || cfg.Format != "json" || !cfg.Timestamp || cfg.Caller {
		t.Errorf("unexpected default config: %+v", cfg)
	}
}

func TestInit(t *testing.T) {
	prev := Logger()
	prevLevel := zerolog.GlobalLevel()
	t.Cleanup(func() {
		SetLogger(prev)
		zerolog.SetGlobalLevel(prevLevel)
	})

	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Timestamp: true, Output: &buf})

	Info().Msg("test message")
	Debug().Msg("debug message")

	output := buf.String()
	if !strings.Contains(output, "test message") || !strings.Contains(output, `"level":"info"`) {
		t.Errorf("unexpected output: %s", output)
	}
	if !strings.Contains(output, "debug message") {
		t.Errorf("debug level should be enabled, got: %s", output)
	}
}

func TestInit_Console(t *testing.T) {
	prev := Logger()
	prevLevel := zerolog.GlobalLevel()
	t.Cleanup(func() {
		SetLogger(prev)
		zerolog.SetGlobalLevel(prevLevel)
	})

	var buf bytes.Buffer
	Init(Config{Level: "info", Format: "console", Output: &buf})
	Info().Msg("console message")

	if strings.Contains(buf.String(), `"message"`) {
		t.Errorf("console format should not emit JSON, got: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "console message") {
		t.Errorf("expected message in output, got: %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"panic", zerolog.PanicLevel},
		{"disabled", zerolog.Disabled},
		{"DEBUG", zerolog.DebugLevel},
		{"invalid", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestWithComponent(t *testing.T) {
	buf := captureGlobal(t)

	logger := WithComponent("deckcache")
	logger.Info().Msg("hello")

	if !strings.Contains(buf.String(), `"component":"deckcache"`) {
		t.Errorf("expected component field, got: %s", buf.String())
	}
}

func TestErr(t *testing.T) {
	buf := captureGlobal(t)

	Err(errors.New("boom")).Msg("failed")

	if !strings.Contains(buf.String(), `"error":"boom"`) {
		t.Errorf("expected error field, got: %s", buf.String())
	}
}

func TestCtx(t *testing.T) {
	buf := captureGlobal(t)

	ctx := ContextWithCorrelationID(context.Background(), "abc12345")
	ctx = ContextWithRequestID(ctx, "req-1")
	Ctx(ctx).Info().Msg("with ids")

	out := buf.String()
	if !strings.Contains(out, `"correlation_id":"abc12345"`) || !strings.Contains(out, `"request_id":"req-1"`) {
		t.Errorf("expected context ids, got: %s", out)
	}
}

func TestCtx_NoIDs(t *testing.T) {
	buf := captureGlobal(t)

	Ctx(context.Background()).Info().Msg("plain")

	if strings.Contains(buf.String(), "correlation_id") {
		t.Errorf("unexpected correlation_id, got: %s", buf.String())
	}
}

func TestContextWithLogger(t *testing.T) {
	var buf bytes.Buffer
	custom := NewTestLogger(&buf).With().Str("viewer_id", "v1").Logger()

	ctx := ContextWithLogger(context.Background(), custom)
	Ctx(ctx).Info().Msg("custom")

	if !strings.Contains(buf.String(), `"viewer_id":"v1"`) {
		t.Errorf("expected stored logger to be used, got: %s", buf.String())
	}
}

func TestGenerateIDs(t *testing.T) {
	if id := GenerateCorrelationID(); len(id) != 8 {
		t.Errorf("GenerateCorrelationID() length = %d, want 8", len(id))
	}
	if a, b := GenerateRequestID(), GenerateRequestID(); a == b || len(a) != 36 {
		t.Errorf("GenerateRequestID() = %q, %q", a, b)
	}

	ctx := ContextWithNewCorrelationID(context.Background())
	if CorrelationIDFromContext(ctx) == "" {
		t.Error("expected correlation id in context")
	}
	if RequestIDFromContext(context.Background()) != "" {
		t.Error("expected empty request id")
	}
}

func TestSlogLogger(t *testing.T) {
	buf := captureGlobal(t)

	logger := NewSlogLogger("supervisor")
	logger.With("service", "scheduler").WithGroup("restart").Warn("service restarted",
		"attempt", 3,
		"backoff", 2*time.Second,
		slog.Group("failure", "terminate", true),
		"err", errors.New("crashed"),
	)

	out := buf.String()
	for _, want := range []string{
		`"component":"supervisor"`,
		`"level":"warn"`,
		`"service":"scheduler"`,
		`"restart.attempt":3`,
		`"restart.failure.terminate":true`,
		`"restart.err":"crashed"`,
		`"message":"service restarted"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in output, got: %s", want, out)
		}
	}
}

func TestSlogLogger_Enabled(t *testing.T) {
	captureGlobal(t)
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	h := NewSlogLogger("x").Handler()
	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should be disabled at warn level")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("error should be enabled at warn level")
	}
}

func TestSlogToZerologLevel(t *testing.T) {
	tests := []struct {
		in   slog.Level
		want zerolog.Level
	}{
		{slog.LevelDebug - 4, zerolog.TraceLevel},
		{slog.LevelDebug, zerolog.DebugLevel},
		{slog.LevelInfo, zerolog.InfoLevel},
		{slog.LevelWarn, zerolog.WarnLevel},
		{slog.LevelError, zerolog.ErrorLevel},
		{slog.LevelError + 4, zerolog.ErrorLevel},
	}
	for _, tt := range tests {
		if got := slogToZerologLevel(tt.in); got != tt.want {
			t.Errorf("slogToZerologLevel(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestWatermillLogger(t *testing.T) {
	buf := captureGlobal(t)

	logger := NewWatermillLogger("events").With(watermill.LogFields{"handler": "swipes"})
	logger.Info("Starting handler", watermill.LogFields{"topic": "swipes.created"})
	logger.Error("Handler failed", errors.New("nack"), watermill.LogFields{"message_uuid": "m1"})
	logger.Debug("debug", nil)
	logger.Trace("trace", nil)

	out := buf.String()
	for _, want := range []string{
		`"component":"events"`,
		`"handler":"swipes"`,
		`"topic":"swipes.created"`,
		`"error":"nack"`,
		`"message_uuid":"m1"`,
		`"level":"trace"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in output, got: %s", want, out)
		}
	}
}
