package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("log level = %q, want info", cfg.Log.Level)
	}
	if cfg.Remote.Driver != "postgres" {
		t.Errorf("remote driver = %q, want postgres", cfg.Remote.Driver)
	}
	if cfg.Sync.MaxAttempts != 3 {
		t.Errorf("max attempts = %d, want 3", cfg.Sync.MaxAttempts)
	}
	if cfg.Sync.InitialDelay != time.Second {
		t.Errorf("initial delay = %v, want 1s", cfg.Sync.InitialDelay)
	}
	if cfg.Redis.Enabled {
		t.Error("redis should be disabled by default")
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "teamsync.yaml")
	content := `
log:
  level: debug
remote:
  driver: mysql
  dsn: user:pass@tcp(localhost:3306)/teamsync
sync:
  max_attempts: 5
  initial_delay: 2s
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Log.Level)
	}
	if cfg.Remote.Driver != "mysql" {
		t.Errorf("remote driver = %q, want mysql", cfg.Remote.Driver)
	}
	if cfg.Sync.MaxAttempts != 5 {
		t.Errorf("max attempts = %d, want 5", cfg.Sync.MaxAttempts)
	}
	if cfg.Sync.InitialDelay != 2*time.Second {
		t.Errorf("initial delay = %v, want 2s", cfg.Sync.InitialDelay)
	}
	// Unset sections keep their defaults.
	if cfg.Cache.Path != "teamsync.db" {
		t.Errorf("cache path = %q, want default", cfg.Cache.Path)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "teamsync.yaml")
	if err := os.WriteFile(path, []byte("log:\n  level: warn\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("TEAMSYNC_LOG_LEVEL", "debug")
	t.Setenv("TEAMSYNC_REMOTE_DSN", "host=remote dbname=teamsync")
	t.Setenv("TEAMSYNC_REDIS_ADDR", "redis:6379")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q, want env override", cfg.Log.Level)
	}
	if cfg.Remote.DSN != "host=remote dbname=teamsync" {
		t.Errorf("dsn = %q, want env override", cfg.Remote.DSN)
	}
	if !cfg.Redis.Enabled {
		t.Error("setting a redis addr should enable the async queue")
	}
	if cfg.Redis.Addr != "redis:6379" {
		t.Errorf("redis addr = %q, want redis:6379", cfg.Redis.Addr)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "teamsync.yaml")

	cfg := DefaultConfig()
	cfg.Remote.Driver = "mysql"
	cfg.Sync.CronSpec = "*/10 * * * *"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Remote.Driver != "mysql" {
		t.Errorf("remote driver = %q, want mysql", loaded.Remote.Driver)
	}
	if loaded.Sync.CronSpec != "*/10 * * * *" {
		t.Errorf("cron spec = %q, want saved value", loaded.Sync.CronSpec)
	}
}
