package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServerURL != "ws://localhost:3030/api" {
		t.Fatalf("unexpected server url %q", cfg.ServerURL)
	}
	if cfg.BeepInterval != time.Second {
		t.Fatalf("expected 1s beep interval, got %s", cfg.BeepInterval)
	}
	if cfg.HistoryCapacity != 100 {
		t.Fatalf("expected capacity 100, got %d", cfg.HistoryCapacity)
	}
	if !cfg.Bell {
		t.Fatal("expected bell on by default")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SHENGJI_ROOM", "room1")
	t.Setenv("SHENGJI_NAME", "alice")
	t.Setenv("SHENGJI_BEEP_INTERVAL", "2500ms")
	t.Setenv("SHENGJI_HISTORY_CAPACITY", "20")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Room != "room1" || cfg.Name != "alice" {
		t.Fatalf("unexpected identity %+v", cfg)
	}
	if cfg.BeepInterval != 2500*time.Millisecond || cfg.HistoryCapacity != 20 {
		t.Fatalf("unexpected tuning %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestParseEnvError(t *testing.T) {
	t.Setenv("SHENGJI_HISTORY_CAPACITY", "lots")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	valid := Config{
		ServerURL:       "wss://example.com/api",
		Room:            "room1",
		Name:            "alice",
		HistoryCapacity: 100,
		BeepInterval:    time.Second,
	}
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"valid", func(*Config) {}, ""},
		{"http scheme", func(c *Config) { c.ServerURL = "http://example.com" }, "scheme"},
		{"no room", func(c *Config) { c.Room = "" }, "room"},
		{"no name", func(c *Config) { c.Name = "" }, "name"},
		{"zero capacity", func(c *Config) { c.HistoryCapacity = 0 }, "capacity"},
		{"negative interval", func(c *Config) { c.BeepInterval = -time.Second }, "interval"},
	}
	for _, tt := range tests {
		cfg := valid
		tt.mutate(&cfg)
		err := cfg.Validate()
		if tt.want == "" {
			if err != nil {
				t.Errorf("%s: unexpected error %v", tt.name, err)
			}
			continue
		}
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: expected error containing %q, got %v", tt.name, tt.want, err)
		}
	}
}
