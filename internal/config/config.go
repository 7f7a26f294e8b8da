// Package config loads client settings from the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"
)

// Config holds everything needed to start a client session.
type Config struct {
	ServerURL       string        `env:"SHENGJI_SERVER_URL" envDefault:"ws://localhost:3030/api"`
	Room            string        `env:"SHENGJI_ROOM"`
	Name            string        `env:"SHENGJI_NAME"`
	ViewAddr        string        `env:"SHENGJI_VIEW_ADDR" envDefault:"127.0.0.1:8080"`
	BeepInterval    time.Duration `env:"SHENGJI_BEEP_INTERVAL" envDefault:"1s"`
	HistoryCapacity int           `env:"SHENGJI_HISTORY_CAPACITY" envDefault:"100"`
	Bell            bool          `env:"SHENGJI_BELL" envDefault:"true"`
	LogDev          bool          `env:"SHENGJI_LOG_DEV"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses the environment into a Config. Call Validate once flags have
// been applied.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first setting that cannot start a session.
func (c Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return fmt.Errorf("server url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("server url: scheme must be ws or wss, got %q", u.Scheme)
	}
	if c.Room == "" {
		return errors.New("room is required")
	}
	if c.Name == "" {
		return errors.New("name is required")
	}
	if c.HistoryCapacity <= 0 {
		return fmt.Errorf("history capacity must be positive, got %d", c.HistoryCapacity)
	}
	if c.BeepInterval < 0 {
		return fmt.Errorf("beep interval must not be negative, got %s", c.BeepInterval)
	}
	return nil
}

// NewLogger builds the process logger.
func (c Config) NewLogger() (*zap.Logger, error) {
	if c.LogDev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// Exitf writes a formatted error message to stderr and exits with code 1.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
