package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestHumanHandlerEnabled(t *testing.T) {
	h := NewHumanHandler(&bytes.Buffer{}, &HumanHandlerOptions{Level: slog.LevelWarn})

	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("Enabled(info) = true with warn threshold")
	}
	if !h.Enabled(context.Background(), slog.LevelWarn) {
		t.Error("Enabled(warn) = false with warn threshold")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("Enabled(error) = false with warn threshold")
	}
}

func TestHumanHandlerOutput(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHumanHandler(&buf, &HumanHandlerOptions{Level: slog.LevelDebug}))

	log.Info("conditions imported", "columns", 3)

	out := buf.String()
	if !strings.Contains(out, "conditions imported") {
		t.Errorf("output missing message: %q", out)
	}
	if !strings.Contains(out, "columns=3") {
		t.Errorf("output missing attribute: %q", out)
	}
	if !strings.Contains(out, "ℹ") {
		t.Errorf("output missing info prefix: %q", out)
	}
	if strings.Contains(out, "\033[") {
		t.Errorf("output contains ANSI codes without UseColors: %q", out)
	}
}

func TestHumanHandlerLevelPrefixes(t *testing.T) {
	tests := []struct {
		level  slog.Level
		prefix string
	}{
		{slog.LevelDebug, "·"},
		{slog.LevelInfo, "ℹ"},
		{slog.LevelWarn, "⚠"},
		{slog.LevelError, "✗"},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		log := slog.New(NewHumanHandler(&buf, &HumanHandlerOptions{Level: slog.LevelDebug}))
		log.Log(context.Background(), tt.level, "msg")

		if !strings.Contains(buf.String(), tt.prefix) {
			t.Errorf("level %v output %q missing prefix %q", tt.level, buf.String(), tt.prefix)
		}
	}
}

func TestHumanHandlerColors(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHumanHandler(&buf, &HumanHandlerOptions{
		Level:     slog.LevelDebug,
		UseColors: true,
	}))

	log.Error("boom")

	if !strings.Contains(buf.String(), "\033[31m") {
		t.Errorf("error output missing red color code: %q", buf.String())
	}
}

func TestHumanHandlerWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	base := NewHumanHandler(&buf, &HumanHandlerOptions{Level: slog.LevelDebug})
	log := slog.New(base).With("setId", "active-users")

	log.Info("set loaded")

	if !strings.Contains(buf.String(), "setId=active-users") {
		t.Errorf("output missing bound attribute: %q", buf.String())
	}
}

func TestHumanHandlerTruncatesAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHumanHandler(&buf, &HumanHandlerOptions{Level: slog.LevelDebug}))

	log.Info("msg", "a", 1, "b", 2, "c", 3, "d", 4, "e", 5, "f", 6, "g", 7)

	out := buf.String()
	if !strings.Contains(out, "(+2 more)") {
		t.Errorf("output %q missing overflow marker", out)
	}
	if strings.Contains(out, "f=6") {
		t.Errorf("output %q shows attribute beyond the inline limit", out)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{500 * time.Microsecond, "500µs"},
		{250 * time.Millisecond, "250ms"},
		{1500 * time.Millisecond, "1.50s"},
		{90 * time.Second, "1.5m"},
	}

	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestContextLoggers(t *testing.T) {
	if WithSet("s") == nil {
		t.Error("WithSet returned nil")
	}
	if WithColumn("c") == nil {
		t.Error("WithColumn returned nil")
	}
	if WithCondition("c", "isEqualTo") == nil {
		t.Error("WithCondition returned nil")
	}
}
