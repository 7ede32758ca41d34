package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// clearEnv blanks every variable fromEnv reads so host settings don't leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"RESTCOUNTRIES_API", "EXCHANGERATE_API", "HTTP_CONNECT_TIMEOUT", "HTTP_TIMEOUT",
		"CACHE_DIR", "HTTP_BIND", "PORT", "APP_DEBUG", "LOG_LEVEL", "LOG_PATH",
		"REFRESH_SCHEDULE", "REFRESH_PER_MINUTE", "DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS",
		"DISABLED_TOOLS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_DefaultWhenMissing(t *testing.T) {
	clearEnv(t)
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	def := DefaultConfig()
	if cfg.CountriesURL != def.CountriesURL {
		t.Fatalf("CountriesURL = %q, want %q", cfg.CountriesURL, def.CountriesURL)
	}
	if cfg.ExchangeRatesURL != def.ExchangeRatesURL {
		t.Fatalf("ExchangeRatesURL = %q, want %q", cfg.ExchangeRatesURL, def.ExchangeRatesURL)
	}
	if cfg.ConnectTimeout() != 10*time.Second {
		t.Fatalf("ConnectTimeout() = %v, want 10s", cfg.ConnectTimeout())
	}
	if cfg.RequestTimeout() != 30*time.Second {
		t.Fatalf("RequestTimeout() = %v, want 30s", cfg.RequestTimeout())
	}
	if cfg.Debug {
		t.Fatal("Debug = true, want false")
	}
}

func TestLoad_OverridesFromFile(t *testing.T) {
	clearEnv(t)
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{"port": 9090, "request_timeout_sec": 5, "refresh_schedule": "@every 6h"}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 9090 {
		t.Fatalf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.RequestTimeoutSec != 5 {
		t.Fatalf("RequestTimeoutSec = %d, want 5", cfg.RequestTimeoutSec)
	}
	if cfg.RefreshSchedule != "@every 6h" {
		t.Fatalf("RefreshSchedule = %q, want %q", cfg.RefreshSchedule, "@every 6h")
	}
	// Untouched keys keep defaults
	if cfg.ConnectTimeoutSec != 10 {
		t.Fatalf("ConnectTimeoutSec = %d, want 10", cfg.ConnectTimeoutSec)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	clearEnv(t)
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{not json}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := Load(tmpDir); err == nil {
		t.Fatalf("Load() expected error, got nil")
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{"port": 9090, "countries_url": "http://file.example/all"}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Setenv("PORT", "7070")
	t.Setenv("APP_DEBUG", "true")
	t.Setenv("DISABLED_TOOLS", "country_delete, country_refresh")

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 7070 {
		t.Fatalf("Port = %d, want 7070", cfg.Port)
	}
	if !cfg.Debug {
		t.Fatal("Debug = false, want true")
	}
	if cfg.CountriesURL != "http://file.example/all" {
		t.Fatalf("CountriesURL = %q, want file value", cfg.CountriesURL)
	}
	if len(cfg.DisabledTools) != 2 || cfg.DisabledTools[1] != "country_refresh" {
		t.Fatalf("DisabledTools = %v, want [country_delete country_refresh]", cfg.DisabledTools)
	}
}

func TestLoad_InvalidEnvIgnored(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "not-a-port")

	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 8080 {
		t.Fatalf("Port = %d, want default 8080", cfg.Port)
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	tmpDir := t.TempDir()

	// Missing file is fine
	if err := LoadDotEnv(filepath.Join(tmpDir, ".env")); err != nil {
		t.Fatalf("LoadDotEnv(missing) error = %v", err)
	}

	envPath := filepath.Join(tmpDir, ".env")
	if err := os.WriteFile(envPath, []byte("LOG_PATH=/tmp/countrycache-test.log\n"), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	// godotenv does not override variables that are already set, so unset first.
	os.Unsetenv("LOG_PATH")
	t.Cleanup(func() { os.Unsetenv("LOG_PATH") })

	if err := LoadDotEnv(envPath); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}
	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LogPath != "/tmp/countrycache-test.log" {
		t.Fatalf("LogPath = %q, want value from .env", cfg.LogPath)
	}
}

func TestResolveCacheDir(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.ResolveCacheDir("/data"); got != filepath.Join("/data", "cache") {
		t.Errorf("ResolveCacheDir() = %q, want /data/cache", got)
	}
	cfg.CacheDir = "/var/cache/cc"
	if got := cfg.ResolveCacheDir("/data"); got != "/var/cache/cc" {
		t.Errorf("ResolveCacheDir() = %q, want /var/cache/cc", got)
	}
}

func TestMerge_ArraysDeduplicated(t *testing.T) {
	base := &Config{DisabledTools: []string{"country_delete", " country_list "}}
	overlay := &Config{DisabledTools: []string{"country_list", "country_refresh"}}

	result := Merge(base, overlay)
	want := []string{"country_delete", "country_list", "country_refresh"}
	if len(result.DisabledTools) != len(want) {
		t.Fatalf("DisabledTools = %v, want %v", result.DisabledTools, want)
	}
	for i := range want {
		if result.DisabledTools[i] != want[i] {
			t.Errorf("DisabledTools[%d] = %q, want %q", i, result.DisabledTools[i], want[i])
		}
	}
}

func TestMerge_EmptyOverlayKeepsBase(t *testing.T) {
	base := DefaultConfig()
	result := Merge(base, &Config{})

	if result.Port != base.Port || result.LogLevel != base.LogLevel || result.RefreshPerMinute != base.RefreshPerMinute {
		t.Errorf("Merge(base, empty) = %+v, want base values", result)
	}
	if result.DisabledTools != nil {
		t.Errorf("DisabledTools = %v, want nil", result.DisabledTools)
	}
}
