package config

import (
	"strings"
	"testing"
	"time"
)

type envTestConfig struct {
	DBPath        string        `env:"MUSTERPOINT_TEST_DB_PATH" envDefault:"muster.db"`
	RefreshPeriod time.Duration `env:"MUSTERPOINT_TEST_REFRESH_PERIOD" envDefault:"30s"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envTestConfig

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.DBPath != "muster.db" {
		t.Fatalf("expected default db path, got %q", cfg.DBPath)
	}
	if cfg.RefreshPeriod != 30*time.Second {
		t.Fatalf("expected default refresh period, got %v", cfg.RefreshPeriod)
	}
}

func TestParseEnvOverride(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("MUSTERPOINT_TEST_REFRESH_PERIOD", "250ms")

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.RefreshPeriod != 250*time.Millisecond {
		t.Fatalf("expected overridden refresh period, got %v", cfg.RefreshPeriod)
	}
}

func TestParseEnvError(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("MUSTERPOINT_TEST_REFRESH_PERIOD", "not-a-duration")

	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}
