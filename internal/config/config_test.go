package config

import (
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TVDEMO_PATH",
		"TVDEMO_AUTO",
		"TVDEMO_SV_FPS",
		"TVDEMO_MAX_CLIENTS",
		"TVDEMO_ADMIN_ADDR",
		"TVDEMO_RETENTION_MAX_AGE",
		"TVDEMO_RETENTION_MAX_FILES",
		"TVDEMO_RETENTION_INTERVAL",
		"TVDEMO_SEEK_RATE_WINDOW",
		"TVDEMO_SEEK_RATE_BURST",
		"TVDEMO_LOG_LEVEL",
		"TVDEMO_LOG_PATH",
		"TVDEMO_LOG_MAX_SIZE_MB",
		"TVDEMO_LOG_MAX_BACKUPS",
		"TVDEMO_LOG_MAX_AGE_DAYS",
		"TVDEMO_LOG_COMPRESS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.TVPath != DefaultTVPath {
		t.Fatalf("expected default path %q, got %q", DefaultTVPath, cfg.TVPath)
	}
	if cfg.TVAuto != DefaultTVAuto {
		t.Fatalf("expected default auto %t, got %t", DefaultTVAuto, cfg.TVAuto)
	}
	if cfg.SVFPS != DefaultSVFPS {
		t.Fatalf("expected default sv fps %d, got %d", DefaultSVFPS, cfg.SVFPS)
	}
	if cfg.MaxClients != DefaultMaxClients {
		t.Fatalf("expected default max clients %d, got %d", DefaultMaxClients, cfg.MaxClients)
	}
	if cfg.AdminAddr != DefaultAdminAddr {
		t.Fatalf("expected default admin addr %q, got %q", DefaultAdminAddr, cfg.AdminAddr)
	}
	if cfg.Retention.MaxAge != DefaultRetentionMaxAge {
		t.Fatalf("expected default retention max age %v, got %v", DefaultRetentionMaxAge, cfg.Retention.MaxAge)
	}
	if cfg.Retention.MaxFiles != DefaultRetentionMaxFiles {
		t.Fatalf("expected default retention max files %d, got %d", DefaultRetentionMaxFiles, cfg.Retention.MaxFiles)
	}
	if cfg.SeekRate.Burst != DefaultSeekRateBurst {
		t.Fatalf("expected default seek burst %d, got %d", DefaultSeekRateBurst, cfg.SeekRate.Burst)
	}
	if cfg.Logging.Level != DefaultLogLevel {
		t.Fatalf("expected default log level %q, got %q", DefaultLogLevel, cfg.Logging.Level)
	}
	if cfg.Logging.Path != DefaultLogPath {
		t.Fatalf("expected default log path %q, got %q", DefaultLogPath, cfg.Logging.Path)
	}
	if cfg.Logging.Compress != DefaultLogCompress {
		t.Fatalf("expected default log compress %t, got %t", DefaultLogCompress, cfg.Logging.Compress)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("TVDEMO_PATH", "/var/tvdemos")
	t.Setenv("TVDEMO_AUTO", "true")
	t.Setenv("TVDEMO_SV_FPS", "40")
	t.Setenv("TVDEMO_MAX_CLIENTS", "64")
	t.Setenv("TVDEMO_ADMIN_ADDR", "127.0.0.1:9100")
	t.Setenv("TVDEMO_RETENTION_MAX_AGE", "72h")
	t.Setenv("TVDEMO_RETENTION_MAX_FILES", "10")
	t.Setenv("TVDEMO_RETENTION_INTERVAL", "5m")
	t.Setenv("TVDEMO_SEEK_RATE_WINDOW", "30s")
	t.Setenv("TVDEMO_SEEK_RATE_BURST", "9")
	t.Setenv("TVDEMO_LOG_LEVEL", "debug")
	t.Setenv("TVDEMO_LOG_PATH", "/var/log/tvdemo.log")
	t.Setenv("TVDEMO_LOG_MAX_SIZE_MB", "512")
	t.Setenv("TVDEMO_LOG_MAX_BACKUPS", "4")
	t.Setenv("TVDEMO_LOG_MAX_AGE_DAYS", "2")
	t.Setenv("TVDEMO_LOG_COMPRESS", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.TVPath != "/var/tvdemos" {
		t.Fatalf("unexpected path %q", cfg.TVPath)
	}
	if !cfg.TVAuto {
		t.Fatalf("expected auto enabled")
	}
	if cfg.SVFPS != 40 {
		t.Fatalf("expected sv fps 40, got %d", cfg.SVFPS)
	}
	if cfg.MaxClients != 64 {
		t.Fatalf("expected max clients 64, got %d", cfg.MaxClients)
	}
	if cfg.AdminAddr != "127.0.0.1:9100" {
		t.Fatalf("unexpected admin addr %q", cfg.AdminAddr)
	}
	if cfg.Retention.MaxAge != 72*time.Hour {
		t.Fatalf("unexpected retention max age %v", cfg.Retention.MaxAge)
	}
	if cfg.Retention.MaxFiles != 10 {
		t.Fatalf("unexpected retention max files %d", cfg.Retention.MaxFiles)
	}
	if cfg.Retention.Interval != 5*time.Minute {
		t.Fatalf("unexpected retention interval %v", cfg.Retention.Interval)
	}
	if cfg.SeekRate.Window != 30*time.Second {
		t.Fatalf("unexpected seek rate window %v", cfg.SeekRate.Window)
	}
	if cfg.SeekRate.Burst != 9 {
		t.Fatalf("unexpected seek rate burst %d", cfg.SeekRate.Burst)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected log level %q", cfg.Logging.Level)
	}
	if cfg.Logging.MaxSizeMB != 512 {
		t.Fatalf("unexpected log max size %d", cfg.Logging.MaxSizeMB)
	}
	if cfg.Logging.Compress {
		t.Fatalf("expected log compression disabled")
	}
}

func TestLoadReturnsValidationErrors(t *testing.T) {
	clearEnv(t)
	t.Setenv("TVDEMO_AUTO", "notabool")
	t.Setenv("TVDEMO_SV_FPS", "0")
	t.Setenv("TVDEMO_MAX_CLIENTS", "-1")
	t.Setenv("TVDEMO_RETENTION_MAX_AGE", "-1h")
	t.Setenv("TVDEMO_SEEK_RATE_BURST", "0")
	t.Setenv("TVDEMO_LOG_MAX_SIZE_MB", "-1")
	t.Setenv("TVDEMO_LOG_COMPRESS", "notabool")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error from invalid configuration, got nil")
	}

	for _, want := range []string{
		"TVDEMO_AUTO",
		"TVDEMO_SV_FPS",
		"TVDEMO_MAX_CLIENTS",
		"TVDEMO_RETENTION_MAX_AGE",
		"TVDEMO_SEEK_RATE_BURST",
		"TVDEMO_LOG_MAX_SIZE_MB",
		"TVDEMO_LOG_COMPRESS",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected error to mention %s, got %q", want, err.Error())
		}
	}
}

func TestLoadRejectsEmptyPath(t *testing.T) {
	clearEnv(t)
	t.Setenv("TVDEMO_PATH", "   ")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "TVDEMO_PATH") {
		t.Fatalf("expected TVDEMO_PATH validation error, got %v", err)
	}
}
