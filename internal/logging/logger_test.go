package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func reset() {
	mutex.Lock()
	defer mutex.Unlock()
	moduleLoggers = make(map[string]*slog.Logger)
	moduleLevels = make(map[string]*slog.LevelVar)
	config = Config{}
	isInitialized = false
	history = nil
}

func TestModuleLevelOverride(t *testing.T) {
	reset()
	Initialize(Config{
		Level:  "info",
		Format: "text",
		Modules: map[string]string{
			"led": "debug",
			"api": "warn",
		},
	})

	tests := []struct {
		module    string
		wantDebug bool
		wantInfo  bool
		wantWarn  bool
	}{
		{"led", true, true, true},
		{"api", false, false, true},
		{"other", false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.module, func(t *testing.T) {
			handler := GetLogger(tt.module).Handler()
			ctx := context.Background()

			if got := handler.Enabled(ctx, slog.LevelDebug); got != tt.wantDebug {
				t.Errorf("Debug enabled = %v, want %v", got, tt.wantDebug)
			}
			if got := handler.Enabled(ctx, slog.LevelInfo); got != tt.wantInfo {
				t.Errorf("Info enabled = %v, want %v", got, tt.wantInfo)
			}
			if got := handler.Enabled(ctx, slog.LevelWarn); got != tt.wantWarn {
				t.Errorf("Warn enabled = %v, want %v", got, tt.wantWarn)
			}
		})
	}
}

func TestGetLoggerBeforeInitialize(t *testing.T) {
	reset()

	before := GetLogger("led")
	if before.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("logger created before Initialize should default to info")
	}

	Initialize(Config{Level: "info", Modules: map[string]string{"led": "debug"}})

	if after := GetLogger("led"); after != before {
		t.Error("logger should be cached across Initialize")
	}
	if !before.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("cached logger should follow the configured module level")
	}
}

func TestLoggerWritesHistory(t *testing.T) {
	reset()
	Initialize(Config{Level: "debug"})

	logger := GetLogger("led")
	logger.Debug("LED on", "index", 3)
	logger.WithGroup("req").Warn("rejected", "path", "/api/leds", "error", errors.New("boom"))

	entries := GetHistory().Tail(0)
	if len(entries) != 2 {
		t.Fatalf("history has %d entries, want 2", len(entries))
	}

	first := entries[0]
	if first.Module != "led" || first.Level != "debug" || first.Message != "LED on" {
		t.Errorf("first entry = %+v", first)
	}
	if first.Attributes["index"] != int64(3) {
		t.Errorf("index attribute = %v (%T), want int64(3)", first.Attributes["index"], first.Attributes["index"])
	}

	second := entries[1]
	if second.Module != "led" {
		t.Errorf("grouped entry module = %q, want led", second.Module)
	}
	if second.Attributes["req.path"] != "/api/leds" {
		t.Errorf("req.path = %v", second.Attributes["req.path"])
	}
	if second.Attributes["req.error"] != "boom" {
		t.Errorf("req.error = %v", second.Attributes["req.error"])
	}
}

func TestHistoryHandlerBeforeInitialize(t *testing.T) {
	reset()

	logger := slog.New(newHistoryHandler(slog.LevelDebug))
	logger.Info("dropped")

	if GetHistory() != nil {
		t.Fatal("history should not exist before Initialize")
	}
}

func TestHistoryWraps(t *testing.T) {
	h := NewHistory(3)
	for i := range 5 {
		h.Add(Entry{Message: string(rune('a' + i))})
	}

	if h.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", h.Len())
	}

	var got []string
	for _, e := range h.Tail(0) {
		got = append(got, e.Message)
	}
	if strings.Join(got, "") != "cde" {
		t.Errorf("Tail(0) = %v, want [c d e]", got)
	}

	tail := h.Tail(2)
	if len(tail) != 2 || tail[0].Message != "d" || tail[1].Message != "e" {
		t.Errorf("Tail(2) = %+v", tail)
	}
}

func TestHistoryPartial(t *testing.T) {
	h := NewHistory(4)
	if got := h.Tail(10); len(got) != 0 {
		t.Errorf("empty history Tail = %+v", got)
	}

	h.Add(Entry{Message: "x"})
	h.Add(Entry{Message: "y"})
	got := h.Tail(10)
	if len(got) != 2 || got[0].Message != "x" || got[1].Message != "y" {
		t.Errorf("Tail(10) = %+v", got)
	}
}

func TestEntryString(t *testing.T) {
	e := Entry{
		Timestamp:  time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Level:      "warn",
		Module:     "led",
		Message:    "LED device error",
		Attributes: map[string]any{"index": 2, "error": "io"},
	}

	want := "2024-01-02T03:04:05Z [WARN] [led] LED device error error=io index=2"
	if got := e.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestFanoutDebugOutput(t *testing.T) {
	var buf bytes.Buffer

	debugHandler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	infoHandler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})

	logger := slog.New(fanout{debugHandler, infoHandler}).With("module", "test")
	logger.Debug("debug only message")
	logger.Info("info message")

	output := buf.String()
	if n := strings.Count(output, "debug only message"); n != 1 {
		t.Errorf("debug message written %d times, want 1. Output: %s", n, output)
	}
	if n := strings.Count(output, "info message"); n != 2 {
		t.Errorf("info message written %d times, want 2. Output: %s", n, output)
	}
	if !strings.Contains(output, "module=test") {
		t.Errorf("module attribute missing. Output: %s", output)
	}
}

func TestJournalFields(t *testing.T) {
	fields := make(map[string]string)

	journalFields(fields, nil, slog.Int("index", 4))
	journalFields(fields, nil, slog.Bool("on", true))
	journalFields(fields, []string{"http"}, slog.String("path", "/api/leds"))
	journalFields(fields, nil, slog.Group("preset", slog.String("name", "pong")))
	journalFields(fields, nil, slog.Attr{})

	want := map[string]string{
		"INDEX":       "4",
		"ON":          "true",
		"HTTP_PATH":   "/api/leds",
		"PRESET_NAME": "pong",
	}
	if len(fields) != len(want) {
		t.Errorf("fields = %v, want %v", fields, want)
	}
	for k, v := range want {
		if fields[k] != v {
			t.Errorf("fields[%q] = %q, want %q", k, fields[k], v)
		}
	}
}

func TestParseLevelValues(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
		isNil bool
	}{
		{"debug", slog.LevelDebug, false},
		{"DEBUG", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"invalid", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseLevel(tt.input)
			switch {
			case tt.isNil && got != nil:
				t.Errorf("parseLevel(%q) = %v, want nil", tt.input, *got)
			case !tt.isNil && got == nil:
				t.Errorf("parseLevel(%q) = nil, want %v", tt.input, tt.want)
			case !tt.isNil && *got != tt.want:
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, *got, tt.want)
			}
		})
	}
}
