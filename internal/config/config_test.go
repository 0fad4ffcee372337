package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMergesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
server:
  port: "9090"
game:
  penalty: 75
hint:
  model: gemini-test
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Game.Penalty != 75 || cfg.Hint.Model != "gemini-test" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Game.Reward != 250 || cfg.Catalog.ID != "roma" || cfg.Hint.Temperature != 0.8 {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestLoadOrDefaultWithEnv(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "secret")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("HINTS_ENABLED", "false")

	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Hint.APIKey != "secret" || cfg.Log.Level != "debug" || cfg.Hint.Enabled {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected Load to fail for a missing file")
	}
}

func TestTTLDuration(t *testing.T) {
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback, got %s", got)
	}
	if got := TTLDuration("1500ms", time.Minute); got != 1500*time.Millisecond {
		t.Fatalf("expected 1.5s, got %s", got)
	}
	if got := TTLDuration("soon", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback on garbage, got %s", got)
	}
}
