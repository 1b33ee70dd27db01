package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestSetup_ReturnsJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	l := Setup(&buf)

	if l == nil {
		t.Fatal("expected non-nil logger")
	}

	l.Info("test message", slog.String("key", "value"))

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected valid JSON log output, got error: %v\nraw output: %s", err, buf.String())
	}

	if entry["msg"] != "test message" {
		t.Errorf("msg = %q, want %q", entry["msg"], "test message")
	}
	if entry["key"] != "value" {
		t.Errorf("key = %q, want %q", entry["key"], "value")
	}
}

func TestSetup_IncludesTimeField(t *testing.T) {
	var buf bytes.Buffer
	l := Setup(&buf)

	l.Info("test")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}

	if _, ok := entry["time"]; !ok {
		t.Error("expected 'time' field in JSON log output")
	}
}

func TestSetup_IncludesLevelField(t *testing.T) {
	var buf bytes.Buffer
	l := Setup(&buf)

	l.Warn("warning test")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}

	if entry["level"] != "WARN" {
		t.Errorf("level = %q, want %q", entry["level"], "WARN")
	}
}

func TestSetup_MultipleAttributes(t *testing.T) {
	var buf bytes.Buffer
	l := Setup(&buf)

	l.Info("cleanup completed",
		slog.String("user_id", "u-123"),
		slog.String("clinic_id", "c-456"),
		slog.String("path", "/api/patients"),
		slog.Int("http_status", 200),
		slog.Int("deleted_count", 25),
	)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}

	if entry["user_id"] != "u-123" {
		t.Errorf("user_id = %q, want %q", entry["user_id"], "u-123")
	}
	if entry["clinic_id"] != "c-456" {
		t.Errorf("clinic_id = %q, want %q", entry["clinic_id"], "c-456")
	}
	if entry["path"] != "/api/patients" {
		t.Errorf("path = %q, want %q", entry["path"], "/api/patients")
	}
	if entry["http_status"] != float64(200) {
		t.Errorf("http_status = %v, want %v", entry["http_status"], 200)
	}
	if entry["deleted_count"] != float64(25) {
		t.Errorf("deleted_count = %v, want %v", entry["deleted_count"], 25)
	}
}

func TestSetupDefault_SetsGlobalLogger(t *testing.T) {
	var buf bytes.Buffer
	SetupDefault(&buf)

	slog.Default().Info("global test", slog.String("test_key", "test_val"))

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON: %v\nraw: %s", err, buf.String())
	}

	if entry["msg"] != "global test" {
		t.Errorf("msg = %q, want %q", entry["msg"], "global test")
	}
	if entry["test_key"] != "test_val" {
		t.Errorf("test_key = %q, want %q", entry["test_key"], "test_val")
	}
}

func TestSetup_RedactsCredentials(t *testing.T) {
	var buf bytes.Buffer
	l := Setup(&buf)

	l.Info("login attempt",
		slog.String("email", "doc@example.com"),
		slog.String("password", "hunter22"),
		slog.String("Authorization", "Bearer abc.def.ghi"),
		slog.String("header", "bearer jkl.mno.pqr"),
	)

	if bytes.Contains(buf.Bytes(), []byte("hunter22")) || bytes.Contains(buf.Bytes(), []byte("abc.def.ghi")) ||
		bytes.Contains(buf.Bytes(), []byte("jkl.mno.pqr")) {
		t.Fatalf("credentials leaked into log: %s", buf.String())
	}

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}
	if entry["email"] != "doc@example.com" {
		t.Errorf("email = %q, want unredacted", entry["email"])
	}
	if entry["password"] != "[REDACTED]" {
		t.Errorf("password = %q, want [REDACTED]", entry["password"])
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSetupDefault_HonorsLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	var buf bytes.Buffer
	SetupDefault(&buf)

	slog.Default().Info("suppressed")
	if buf.Len() != 0 {
		t.Errorf("info log should be suppressed at warn level: %s", buf.String())
	}
}
