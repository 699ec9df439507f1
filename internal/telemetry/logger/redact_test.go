package logger

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestRedactSensitive_SensitiveKeyName(t *testing.T) {
	var buf bytes.Buffer
	cfg := Config{
		Level:  "info",
		Format: "json",
		Output: &buf,
	}

	l, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	tests := []struct {
		key   string
		value any
	}{
		{"salt", "pepper"},
		{"fingerprint_salt", "pepper"},
		{"salt_bytes", []byte("pepper")},
		{"password", "hunter2"},
		{"api_key", "some-key-value"},
		{"auth_token", "bearer-xyz"},
		{"credential", "cred123"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			buf.Reset()
			l.Info("test", tt.key, tt.value)

			var logEntry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
				t.Fatalf("Failed to parse JSON log: %v", err)
			}

			val, ok := logEntry[tt.key].(string)
			if !ok {
				t.Fatalf("Expected %s field in log", tt.key)
			}
			if val != redactedValue {
				t.Errorf("Key %q should be redacted, got %q", tt.key, val)
			}
		})
	}
}

func TestRedactSensitive_NormalValues(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "info", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	l.Info("hashed",
		"table", "orders",
		"digest", "ab12",
		"primary_key", "id",
		"salted", true,
		"salt", "",
	)

	var logEntry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("Failed to parse JSON log: %v", err)
	}

	want := map[string]any{
		"table":       "orders",
		"digest":      "ab12",
		"primary_key": "id",
		"salted":      true,
		"salt":        "",
	}
	for k, v := range want {
		if logEntry[k] != v {
			t.Errorf("%s = %v, want %v", k, logEntry[k], v)
		}
	}
}

func TestRedactSensitive_Group(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "info", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	Slog(l).WithGroup("fingerprint").Info("config", "salt", "pepper", "algorithm", "sha256")

	var logEntry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("Failed to parse JSON log: %v", err)
	}
	group, ok := logEntry["fingerprint"].(map[string]any)
	if !ok {
		t.Fatalf("expected fingerprint group, got %v", logEntry)
	}
	if group["salt"] != redactedValue {
		t.Errorf("grouped salt = %v, want redacted", group["salt"])
	}
	if group["algorithm"] != "sha256" {
		t.Errorf("grouped algorithm = %v", group["algorithm"])
	}
}

func TestRedactString(t *testing.T) {
	if got := RedactString(""); got != "" {
		t.Errorf("RedactString(\"\") = %q", got)
	}
	if got := RedactString("pepper"); got != redactedValue {
		t.Errorf("RedactString(pepper) = %q", got)
	}
}

func TestIsSensitiveKey(t *testing.T) {
	tests := []struct {
		key      string
		expected bool
	}{
		{"salt", true},
		{"SALT", true},
		{"password", true},
		{"secret_value", true},
		{"token", true},
		{"api_key", true},
		{"primary_key", false},
		{"key_columns", false},
		{"salted", false},
		{"table", false},
		{"digest", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := IsSensitiveKey(tt.key); got != tt.expected {
				t.Errorf("IsSensitiveKey(%q) = %v, want %v", tt.key, got, tt.expected)
			}
		})
	}
}
