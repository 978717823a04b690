package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

// TestLoadFileDefaults checks a missing file falls back to the defaults.
func TestLoadFileDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Port != 5000 {
		t.Errorf("Port = %d, want 5000", cfg.Port)
	}
	if cfg.PingPeriod != 54*time.Second {
		t.Errorf("PingPeriod = %v", cfg.PingPeriod)
	}
	if cfg.PongWait() != 60*time.Second {
		t.Errorf("PongWait = %v, want 60s", cfg.PongWait())
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "*" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if cfg.RequireMembership {
		t.Error("RequireMembership should default to false")
	}
	if cfg.JoinWindow != time.Minute || cfg.JoinAttempts != 10 {
		t.Errorf("join limiter = %d per %v", cfg.JoinAttempts, cfg.JoinWindow)
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFileOverrides(t *testing.T) {
	path := writeFile(t, `
mode: debug
port: 6000
ping_period: 10s
allowed_origins:
  - http://localhost:3000
require_membership: true
message_rate: 2.5
`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Mode != "debug" || cfg.Port != 6000 {
		t.Errorf("mode/port = %s/%d", cfg.Mode, cfg.Port)
	}
	if cfg.PingPeriod != 10*time.Second {
		t.Errorf("PingPeriod = %v", cfg.PingPeriod)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "http://localhost:3000" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if !cfg.RequireMembership || cfg.MessageRate != 2.5 {
		t.Errorf("RequireMembership=%v MessageRate=%v", cfg.RequireMembership, cfg.MessageRate)
	}
	if cfg.SendBuffer != 64 {
		t.Errorf("unset key lost its default: SendBuffer = %d", cfg.SendBuffer)
	}
}

func TestLoadFileEnvOverride(t *testing.T) {
	t.Setenv("CHAT_PORT", "7000")
	t.Setenv("CHAT_REQUIRE_MEMBERSHIP", "true")
	cfg, err := LoadFile(writeFile(t, "port: 6000\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 7000 {
		t.Errorf("Port = %d, want env value 7000", cfg.Port)
	}
	if !cfg.RequireMembership {
		t.Error("CHAT_REQUIRE_MEMBERSHIP ignored")
	}
}

func TestLoadFileErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed yaml", "port: [6000\n"},
		{"bad port", "port: 70000\n"},
		{"bad buffer", "send_buffer: 0\n"},
		{"zero burst with rate", "message_rate: 5\nmessage_burst: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadFile(writeFile(t, tt.body)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

// TestLoadFileUnlimitedRateNeedsNoBurst checks a disabled throttle may keep a zero burst.
func TestLoadFileUnlimitedRateNeedsNoBurst(t *testing.T) {
	cfg, err := LoadFile(writeFile(t, "message_rate: 0\nmessage_burst: 0\n"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.MessageRate != 0 || cfg.MessageBurst != 0 {
		t.Errorf("rate=%v burst=%d", cfg.MessageRate, cfg.MessageBurst)
	}
	if cfg.CookieSecure {
		t.Error("CookieSecure should default to false")
	}
}
