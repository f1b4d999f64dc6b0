package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"wikibasego/pkg/config"
)

func TestInit(t *testing.T) {
	tempDir := t.TempDir()
	clientLog := filepath.Join(tempDir, "wikibase.log")
	requestLog := filepath.Join(tempDir, "requests.log")

	// A previous run's log must be rotated, not appended to.
	if err := os.WriteFile(clientLog, []byte("previous run\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &config.LogConfig{
		Client:   config.LogSettings{Path: clientLog, Level: "DEBUG"},
		Requests: config.LogSettings{Path: requestLog, Level: "INFO"},
	}

	prev := slog.Default()
	defer slog.SetDefault(prev)

	cleanup, err := Init(cfg)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	RequestLogger.Info("API call", "action", "wbgetentities")
	cleanup()

	if _, err := os.Stat(clientLog + ".old"); err != nil {
		t.Errorf("previous client log not rotated: %v", err)
	}
	data, err := os.ReadFile(requestLog)
	if err != nil {
		t.Fatalf("request log not created: %v", err)
	}
	if !strings.Contains(string(data), "action=wbgetentities") {
		t.Errorf("request log missing record, got %q", string(data))
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"Warn", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
