package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/sim")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Sim.EventProbability != 0.04 {
		t.Errorf("expected event probability 0.04, got %v", cfg.Sim.EventProbability)
	}
	if cfg.Sim.EventMinBusinessDays != 14 {
		t.Errorf("expected 14 minimum business days, got %d", cfg.Sim.EventMinBusinessDays)
	}
	if cfg.Sim.MaturityDays != 90 || cfg.Sim.MaturityFloor != 0.05 {
		t.Errorf("unexpected maturity defaults: %d / %v", cfg.Sim.MaturityDays, cfg.Sim.MaturityFloor)
	}
	if cfg.Sim.LockTTL != 2*time.Minute {
		t.Errorf("expected lock TTL 2m, got %s", cfg.Sim.LockTTL)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected log level info, got %q", cfg.LogLevel)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SIM_EVENT_PROBABILITY", "0.25")
	t.Setenv("SIM_SEED", "42")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Sim.EventProbability != 0.25 {
		t.Errorf("expected 0.25, got %v", cfg.Sim.EventProbability)
	}
	if cfg.Sim.Seed != 42 {
		t.Errorf("expected seed 42, got %d", cfg.Sim.Seed)
	}
}

func TestLoad_RejectsBadProbability(t *testing.T) {
	t.Setenv("SIM_EVENT_PROBABILITY", "1.5")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for probability above 1, got nil")
	}
}
