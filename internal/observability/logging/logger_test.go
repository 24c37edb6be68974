package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/govgate/govgate/internal/observability"
)

func newTestLogger(buf *bytes.Buffer, level string) *zapLogger {
	return newZapLogger(buf, nil, FormatJSONL, level)
}

func decodeLine(t *testing.T, line string) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(line)), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v\nOutput: %s", err, line)
	}
	return entry
}

func TestZapLogger_RequiredFields(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf, LevelDebug)

	ctx := observability.WithOpID(context.Background())
	logger.Event(ctx, "gate.decision", nil)

	entry := decodeLine(t, buf.String())
	for _, field := range []string{"ts", "level", "event", "component", "op_id", "schema_version", "govgate_version", "go_version"} {
		if _, ok := entry[field]; !ok {
			t.Errorf("missing required field: %s", field)
		}
	}
	if entry["schema_version"] != SchemaVersion {
		t.Errorf("schema_version = %v", entry["schema_version"])
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v, want info", entry["level"])
	}
}

func TestZapLogger_EventNamespaceAndOpID(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf, LevelInfo)

	ctx := observability.WithOpID(context.Background())
	logger.Event(ctx, "scoreboard.validated", nil)

	entry := decodeLine(t, buf.String())
	if entry["event"] != "govgate.scoreboard.validated" {
		t.Errorf("event = %v", entry["event"])
	}
	if entry["op_id"] != observability.OpID(ctx) {
		t.Errorf("op_id = %v, want %v", entry["op_id"], observability.OpID(ctx))
	}
}

func TestZapLogger_PlainRecordsCarryNoOpID(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf, LevelInfo)

	logger.Info("config", "loaded", "root", ".")

	entry := decodeLine(t, buf.String())
	if _, ok := entry["op_id"]; ok {
		t.Errorf("op_id present on a plain record: %v", entry)
	}
	if entry["component"] != "config" {
		t.Errorf("component = %v, want config", entry["component"])
	}
}

func TestZapLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf, LevelInfo)

	logger.Event(context.Background(), "gate.decision", map[string]any{
		"duration_ms": 123,
		"result":      "PASS",
	})

	entry := decodeLine(t, buf.String())
	fields, ok := entry["fields"].(map[string]any)
	if !ok {
		t.Fatalf("fields is not a map: %v", entry)
	}
	if fields["duration_ms"] != float64(123) { // JSON numbers are float64
		t.Errorf("duration_ms = %v, want 123", fields["duration_ms"])
	}
	if fields["result"] != "PASS" {
		t.Errorf("result = %v, want PASS", fields["result"])
	}
}

func TestZapLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		minLevel string
		method   func(*zapLogger)
		want     bool
	}{
		{LevelInfo, func(l *zapLogger) { l.Debug("c", "m") }, false},
		{LevelInfo, func(l *zapLogger) { l.Info("c", "m") }, true},
		{LevelWarn, func(l *zapLogger) { l.Info("c", "m") }, false},
		{LevelError, func(l *zapLogger) { l.Warn("c", "m") }, false},
		{LevelDebug, func(l *zapLogger) { l.Error("c", "m", "k", "v") }, true},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		tt.method(newTestLogger(&buf, tt.minLevel))

		if got := buf.Len() > 0; got != tt.want {
			t.Errorf("minLevel=%s: got output=%v, want %v", tt.minLevel, got, tt.want)
		}
	}
}

func TestZapLogger_MultipleLines(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf, LevelDebug)

	logger.Info("config", "loaded", "path", ".govgate.yaml")
	logger.Warn("gitdiff", "fallback to HEAD~1")
	logger.Event(context.Background(), "gate.decision", nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	first := decodeLine(t, lines[0])
	if first["component"] != "config" || first["msg"] != "loaded" {
		t.Errorf("first line = %v", first)
	}
	if fields, _ := first["fields"].(map[string]any); fields["path"] != ".govgate.yaml" {
		t.Errorf("fields = %v", first["fields"])
	}
}

func TestNewLogger_Formats(t *testing.T) {
	tests := []struct {
		format string
		isZap  bool
	}{
		{FormatPretty, false},
		{"", false},
		{FormatJSONL, true},
		{FormatConsole, true},
	}
	for _, tt := range tests {
		logger, err := NewLogger(Config{Format: tt.format})
		if err != nil {
			t.Fatalf("NewLogger(%q) failed: %v", tt.format, err)
		}
		if _, ok := logger.(*zapLogger); ok != tt.isZap {
			t.Errorf("format %q: zap logger = %v, want %v", tt.format, ok, tt.isZap)
		}
		_ = logger.Close()
	}
}

func TestNewLogger_Invalid(t *testing.T) {
	if _, err := NewLogger(Config{Format: "xml"}); err == nil {
		t.Error("unknown format accepted")
	}
	if _, err := NewLogger(Config{Format: FormatJSONL, Level: "trace"}); err == nil {
		t.Error("unknown level accepted")
	}
}

func TestNewLogger_FileOutput(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "govgate.log")

	logger, err := NewLogger(Config{Format: FormatJSONL, Output: logFile})
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	logger.Event(observability.WithOpID(context.Background()), "gate.decision", nil)
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	decodeLine(t, string(data))
}

func TestNewLogger_ConsoleIsNotJSON(t *testing.T) {
	var buf bytes.Buffer
	newZapLogger(&buf, nil, FormatConsole, LevelInfo).Info("cli", "hello")
	if !strings.Contains(buf.String(), "hello") || strings.HasPrefix(buf.String(), "{") {
		t.Errorf("console output = %q", buf.String())
	}
}

func TestFromContext_NoLogger(t *testing.T) {
	ctx := context.Background()
	logger := From(ctx)
	if logger == nil {
		t.Fatal("From should never return nil")
	}

	// must not panic
	logger.Debug("test", "msg")
	logger.Info("test", "msg")
	logger.Warn("test", "msg")
	logger.Error("test", "msg")
	logger.Event(ctx, "test.event", nil)
}

func TestFromContext_WithLogger(t *testing.T) {
	var buf bytes.Buffer
	original := newTestLogger(&buf, LevelInfo)

	if From(WithLogger(context.Background(), original)) != Logger(original) {
		t.Error("From should return the logger stored in context")
	}
}
