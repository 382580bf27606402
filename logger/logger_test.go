package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
	"time"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatal("expected a log line, got nothing")
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, line)
	}
	return m
}

func TestNewDefault(t *testing.T) {
	l := NewDefault("test-svc")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	if l.service != "test-svc" {
		t.Errorf("expected service 'test-svc', got %q", l.service)
	}
}

func TestNewInvalidLevel(t *testing.T) {
	l := New(&Config{Level: "invalid-level", Format: "json"}, "test")
	if l == nil {
		t.Fatal("expected logger to be created even with invalid level")
	}
}

func TestNewFromEnv(t *testing.T) {
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("LOG_FORMAT", "json")
	defer os.Unsetenv("LOG_LEVEL")
	defer os.Unsetenv("LOG_FORMAT")

	if l := NewFromEnv("env-svc"); l == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestWithBackendAndSession(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "debug").WithBackend("azure").WithSession("s1")
	l.Info("session open")

	m := decodeLine(t, &buf)
	if m[FieldBackend] != "azure" {
		t.Errorf("expected backend=azure, got %v", m[FieldBackend])
	}
	if m[FieldSessionID] != "s1" {
		t.Errorf("expected session_id=s1, got %v", m[FieldSessionID])
	}
	if m["message"] != "session open" {
		t.Errorf("unexpected message %v", m["message"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "warn")
	l.Debug("hidden")
	l.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected nothing below warn, got %q", buf.String())
	}
	l.Warn("shown", Fields(FieldUpdateKind, "error"))
	m := decodeLine(t, &buf)
	if m[FieldUpdateKind] != "error" {
		t.Errorf("expected update_kind field, got %v", m)
	}
}

func TestWithErrorAndFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "info").WithError(errors.New("boom")).WithFields(map[string]interface{}{"k": 1})
	l.Error("failed")
	m := decodeLine(t, &buf)
	if m["error"] != "boom" {
		t.Errorf("expected error=boom, got %v", m["error"])
	}
	if m["k"] != float64(1) {
		t.Errorf("expected k=1, got %v", m["k"])
	}
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Error("discarded")
	if l.WithSession("x") == nil {
		t.Fatal("expected chained nop logger")
	}
}

func TestSetGlobalLogger(t *testing.T) {
	orig := globalLogger
	defer func() { globalLogger = orig }()

	var buf bytes.Buffer
	SetGlobalLogger(NewWithWriter(&buf, "info"))
	Info("global", Fields("a", "b"))
	m := decodeLine(t, &buf)
	if m["a"] != "b" {
		t.Errorf("expected a=b, got %v", m["a"])
	}
}

func TestInit(t *testing.T) {
	orig := globalLogger
	defer func() { globalLogger = orig }()

	Init(Config{Level: "debug", Format: "json"})
	if GetGlobalLogger() == nil {
		t.Fatal("expected global logger after Init")
	}
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.Level != "info" || cfg.Format != "console" || cfg.Output != "stderr" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if !cfg.Timestamp {
		t.Error("expected timestamp enabled")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Level: "info", Format: "json"}, false},
		{"bad level", Config{Level: "loud", Format: "json"}, true},
		{"bad format", Config{Level: "info", Format: "xml"}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestRegisterAndGet(t *testing.T) {
	l := NewDefault("test")
	Register("my-component", l)
	if Get("my-component") != l {
		t.Error("expected registered logger")
	}
	if Get("unregistered-xyz") == nil {
		t.Error("expected fallback logger for unregistered name")
	}
}

func TestFieldHelpers(t *testing.T) {
	f := Fields("a", 1, "b")
	if len(f) != 1 || f["a"] != 1 {
		t.Errorf("unexpected Fields result %v", f)
	}
	ef := ErrorFields("connect", errors.New("refused"))
	if ef[FieldOperation] != "connect" || ef[FieldError] != "refused" {
		t.Errorf("unexpected ErrorFields result %v", ef)
	}
	df := DurationFields("poll", 1500*time.Millisecond)
	if df[FieldDuration] != int64(1500) {
		t.Errorf("expected 1500ms, got %v", df[FieldDuration])
	}
	mf := MergeWithError(nil, errors.New("x"))
	if mf[FieldError] != "x" {
		t.Errorf("unexpected MergeWithError result %v", mf)
	}
}
