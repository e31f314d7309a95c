package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func unsetenv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad_Defaults(t *testing.T) {
	unsetenv(t, "CONFIG_PATH", "HTTP_PORT", "DB_DRIVER", "ACCESS_TTL", "SHEET_PATH")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPPort != "8081" {
		t.Errorf("HTTPPort = %q, want 8081", cfg.HTTPPort)
	}
	if cfg.DBDriver != "sqlite3" {
		t.Errorf("DBDriver = %q, want sqlite3", cfg.DBDriver)
	}
	if cfg.AccessTTL != 12*time.Hour {
		t.Errorf("AccessTTL = %s, want 12h", cfg.AccessTTL)
	}
	if cfg.SheetPath != "attendance_clean.csv" {
		t.Errorf("SheetPath = %q", cfg.SheetPath)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	unsetenv(t, "CONFIG_PATH")
	t.Setenv("HTTP_PORT", "9999")
	t.Setenv("RATE_LIMIT_PER_MIN", "7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPPort != "9999" || cfg.RateLimitPerMin != 7 {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "env: prod\nhttp_port: \"7000\"\nsheet_path: class.csv\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_PATH", path)
	unsetenv(t, "APP_ENV", "HTTP_PORT", "SHEET_PATH")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Env != "prod" || cfg.HTTPPort != "7000" || cfg.SheetPath != "class.csv" {
		t.Errorf("yaml values not applied: %+v", cfg)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "nope.yaml"))
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestAutoSendTime(t *testing.T) {
	day := time.Date(2025, time.March, 3, 9, 30, 0, 0, time.Local)

	if _, ok, err := (App{}).AutoSendTime(day); ok || err != nil {
		t.Fatalf("empty AutoSendAt: ok=%v err=%v", ok, err)
	}

	at, ok, err := App{AutoSendAt: "17:45"}.AutoSendTime(day)
	if err != nil || !ok {
		t.Fatalf("AutoSendTime: ok=%v err=%v", ok, err)
	}
	if at.Hour() != 17 || at.Minute() != 45 || at.Day() != 3 {
		t.Errorf("at = %s", at)
	}

	if _, _, err := (App{AutoSendAt: "5pm"}).AutoSendTime(day); err == nil {
		t.Error("expected parse error")
	}
}
