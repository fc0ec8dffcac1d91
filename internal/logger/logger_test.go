package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want string
		nil  bool
	}{
		{in: "debug", want: "debug"},
		{in: "info", want: "info"},
		{in: "warn", want: "warn"},
		{in: "error", want: "error"},
		{in: "verbose", nil: true},
		{in: "", nil: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := parseLevel(tt.in)
			if tt.nil {
				if got != nil {
					t.Fatalf("parseLevel(%q) = %v, want nil", tt.in, got)
				}
				return
			}
			if got == nil || got.String() != tt.want {
				t.Fatalf("parseLevel(%q) = %v, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestWithFileWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "smartmarks.log")
	log := New("info", false, WithFile(path))

	log.With(String("component", "test")).Info("hello", Int("n", 1))
	log.Debug("filtered out")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), data)
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["msg"] != "hello" || entry["component"] != "test" {
		t.Errorf("unexpected entry: %v", entry)
	}
}
