package readdash

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig(viper.New())
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Addr != ":3000" {
		t.Errorf("Addr = %q, want :3000", cfg.Addr)
	}
	if cfg.DatabasePath != "data/readdash.db" {
		t.Errorf("DatabasePath = %q", cfg.DatabasePath)
	}
	if cfg.Fetch.Timeout != 10*time.Second {
		t.Errorf("Fetch.Timeout = %v, want 10s", cfg.Fetch.Timeout)
	}
	if cfg.Fetch.UserAgent != "readdash/"+Version {
		t.Errorf("Fetch.UserAgent = %q", cfg.Fetch.UserAgent)
	}
	if cfg.Limits.ActionsPerMinute != 30 {
		t.Errorf("Limits.ActionsPerMinute = %d, want 30", cfg.Limits.ActionsPerMinute)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "console" {
		t.Errorf("Log = %+v", cfg.Log)
	}
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.MkdirAll(filepath.Join(dir, "configs"), 0o755); err != nil {
		t.Fatal(err)
	}
	yaml := []byte("addr: \":8080\"\nfetch:\n  timeout: 3s\nlimits:\n  actions_per_minute: 5\n")
	if err := os.WriteFile(filepath.Join(dir, "configs", "readdash.yaml"), yaml, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("READDASH_DATABASE_PATH", "/tmp/other.db")
	t.Setenv("READDASH_LOG_FORMAT", "json")

	cfg, err := LoadConfig(viper.New())
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %q, want :8080 from file", cfg.Addr)
	}
	if cfg.Fetch.Timeout != 3*time.Second {
		t.Errorf("Fetch.Timeout = %v, want 3s from file", cfg.Fetch.Timeout)
	}
	if cfg.Limits.ActionsPerMinute != 5 {
		t.Errorf("Limits.ActionsPerMinute = %d, want 5", cfg.Limits.ActionsPerMinute)
	}
	if cfg.DatabasePath != "/tmp/other.db" {
		t.Errorf("DatabasePath = %q, want env override", cfg.DatabasePath)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want json from env", cfg.Log.Format)
	}
}

func TestLoadConfigRejectsBrokenFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile(filepath.Join(dir, "readdash.yaml"), []byte("addr: [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadConfig(viper.New()); err == nil {
		t.Fatal("expected error for malformed config file")
	}
}

func TestNewLogger(t *testing.T) {
	for _, lc := range []LogConfig{
		{Level: "debug", Format: "console"},
		{Level: "warn", Format: "json"},
		{Level: "info", Format: ""},
	} {
		l, err := NewLogger(lc)
		if err != nil {
			t.Errorf("NewLogger(%+v) failed: %v", lc, err)
			continue
		}
		_ = l.Sync()
	}

	if _, err := NewLogger(LogConfig{Level: "loud", Format: "json"}); err == nil {
		t.Error("expected error for unknown level")
	}
	if _, err := NewLogger(LogConfig{Level: "info", Format: "xml"}); err == nil {
		t.Error("expected error for unknown format")
	}
}
