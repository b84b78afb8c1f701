// ABOUTME: Tests for CLI helpers
// ABOUTME: Covers argument parsing, env fallbacks and log routing
package main

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseVolume(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"0", 0, false},
		{"55", 55, false},
		{"100", 100, false},
		{"12.5", 12.5, false},
		{"-1", 0, true},
		{"101", 0, true},
		{"loud", 0, true},
	}

	for _, tt := range tests {
		got, err := parseVolume(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseVolume(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseVolume(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseOnOff(t *testing.T) {
	for _, in := range []string{"on", "true", "1"} {
		if v, err := parseOnOff(in); err != nil || !v {
			t.Errorf("parseOnOff(%q) = %v, %v", in, v, err)
		}
	}
	for _, in := range []string{"off", "false", "0"} {
		if v, err := parseOnOff(in); err != nil || v {
			t.Errorf("parseOnOff(%q) = %v, %v", in, v, err)
		}
	}
	if _, err := parseOnOff("maybe"); err == nil {
		t.Error("expected error for maybe")
	}
}

func TestEnvInt(t *testing.T) {
	t.Setenv("MAHUB_TEST_PORT", "9000")
	if got := envInt("MAHUB_TEST_PORT", 8095); got != 9000 {
		t.Errorf("expected 9000, got %d", got)
	}

	t.Setenv("MAHUB_TEST_PORT", "nope")
	if got := envInt("MAHUB_TEST_PORT", 8095); got != 8095 {
		t.Errorf("expected fallback for invalid value, got %d", got)
	}

	if got := envInt("MAHUB_TEST_UNSET", 8095); got != 8095 {
		t.Errorf("expected fallback for unset value, got %d", got)
	}
}

func TestResolveHubUsesExplicitHost(t *testing.T) {
	opts := &globalOptions{host: "hub.local", port: 9000}
	host, port, err := resolveHub(context.Background(), opts)
	if err != nil {
		t.Fatalf("resolveHub failed: %v", err)
	}
	if host != "hub.local" || port != 9000 {
		t.Errorf("expected hub.local:9000, got %s:%d", host, port)
	}
}

func TestSetupLoggingWritesFile(t *testing.T) {
	defer log.SetOutput(os.Stderr)

	path := filepath.Join(t.TempDir(), "mahub.log")
	closer, err := setupLogging(&globalOptions{logFile: path}, false)
	if err != nil {
		t.Fatalf("setupLogging failed: %v", err)
	}
	log.Printf("hello from the test")
	closer.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log: %v", err)
	}
	if !strings.Contains(string(data), "hello from the test") {
		t.Errorf("log file missing message: %q", data)
	}
}

func TestSetupLoggingWithoutFile(t *testing.T) {
	defer log.SetOutput(os.Stderr)

	closer, err := setupLogging(&globalOptions{}, false)
	if err != nil {
		t.Fatalf("setupLogging failed: %v", err)
	}
	if closer != nil {
		t.Error("expected no closer without a log file")
	}
}

func TestSetupLoggingBadPath(t *testing.T) {
	defer log.SetOutput(os.Stderr)

	path := filepath.Join(t.TempDir(), "missing", "dir", "mahub.log")
	if _, err := setupLogging(&globalOptions{logFile: path}, false); err == nil {
		t.Error("expected error for unwritable log path")
	}
}
