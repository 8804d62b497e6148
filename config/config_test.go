package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load([]string{"--feed", "capture.itch"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Feed.Path != "capture.itch" {
		t.Fatalf("unexpected feed path %q", cfg.Feed.Path)
	}
	if cfg.Feed.CancelPayloadLen != 18 || cfg.Report.Output != "vwap.txt" || cfg.Report.Precision != 8 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.Report.Mode != "cumulative" || !cfg.Report.Echo {
		t.Fatalf("unexpected report defaults %+v", cfg.Report)
	}
	if cfg.Outbox.Interval != 250*time.Millisecond || cfg.Redis.TTL != 24*time.Hour {
		t.Fatalf("unexpected durations %+v %+v", cfg.Outbox, cfg.Redis)
	}
	if cfg.RunID == "" {
		t.Fatal("expected generated run id")
	}
}

func TestLoad_PositionalFeed(t *testing.T) {
	cfg, err := Load([]string{"capture.itch.gz"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Feed.Path != "capture.itch.gz" {
		t.Fatalf("unexpected feed path %q", cfg.Feed.Path)
	}
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("VWAP_FEED_PATH", "env.itch")
	t.Setenv("VWAP_REPORT_MODE", "window")
	t.Setenv("VWAP_FEED_CANCEL_PAYLOAD_LEN", "22")
	t.Setenv("VWAP_RUN_ID", "fixed")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Feed.Path != "env.itch" || cfg.Report.Mode != "window" || cfg.Feed.CancelPayloadLen != 22 {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if cfg.RunID != "fixed" {
		t.Fatalf("unexpected run id %q", cfg.RunID)
	}
}

func TestLoad_FlagBeatsEnv(t *testing.T) {
	t.Setenv("VWAP_REPORT_OUTPUT", "env.txt")
	cfg, err := Load([]string{"--feed", "f", "--output", "flag.txt"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Report.Output != "flag.txt" {
		t.Fatalf("expected flag to win, got %q", cfg.Report.Output)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vwap.yaml")
	body := "feed:\n  path: file.itch\nreport:\n  precision: 4\nredis:\n  enabled: true\n  ttl: 1h\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load([]string{"--config", path})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Feed.Path != "file.itch" || cfg.Report.Precision != 4 || !cfg.Redis.Enabled || cfg.Redis.TTL != time.Hour {
		t.Fatalf("config file not applied: %+v", cfg)
	}
}

func TestLoad_MissingFeed(t *testing.T) {
	if _, err := Load(nil); !errors.Is(err, ErrMissingFeed) {
		t.Fatalf("expected ErrMissingFeed, got %v", err)
	}
}

func TestValidate_CancelLength(t *testing.T) {
	cfg := &Config{Feed: FeedConfig{Path: "x", CancelPayloadLen: 10}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for short cancel payload")
	}
}

func TestNewLogger(t *testing.T) {
	if _, err := NewLogger(LoggerConfig{Level: "debug", Encoding: "json"}); err != nil {
		t.Fatalf("json logger: %v", err)
	}
	if _, err := NewLogger(LoggerConfig{Level: "info"}); err != nil {
		t.Fatalf("console logger: %v", err)
	}
	if _, err := NewLogger(LoggerConfig{Level: "loud"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
	if _, err := NewLogger(LoggerConfig{Level: "info", Encoding: "xml"}); err == nil {
		t.Fatal("expected error for unknown encoding")
	}
}
