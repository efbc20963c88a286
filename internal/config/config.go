package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the process configuration for the simulation engine.
// Values come from the environment, optionally seeded from a .env file.
type Config struct {
	DatabaseURL  string `env:"DATABASE_URL"`
	RedisAddress string `env:"REDIS_ADDRESS"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat    string `env:"LOG_FORMAT" envDefault:"json"`

	Sim SimConfig
}

// SimConfig holds the tuning knobs of the demand model and the event engine.
type SimConfig struct {
	// Seed for the random source; 0 means seed from the clock.
	Seed uint64 `env:"SIM_SEED" envDefault:"0"`

	EventProbability     float64 `env:"SIM_EVENT_PROBABILITY" envDefault:"0.04"`
	EventMinBusinessDays int     `env:"SIM_EVENT_MIN_BUSINESS_DAYS" envDefault:"14"`

	MaturityDays      int     `env:"SIM_MATURITY_DAYS" envDefault:"90"`
	MaturityFloor     float64 `env:"SIM_MATURITY_FLOOR" envDefault:"0.05"`
	AnnualGrowth      float64 `env:"SIM_ANNUAL_GROWTH" envDefault:"1.10"`
	SeasonalAmplitude float64 `env:"SIM_SEASONAL_AMPLITUDE" envDefault:"0.30"`
	SeasonalPhaseDay  int     `env:"SIM_SEASONAL_PHASE_DAY" envDefault:"80"`

	MaxAdvanceDays int           `env:"SIM_MAX_ADVANCE_DAYS" envDefault:"30"`
	LockTTL        time.Duration `env:"SIM_LOCK_TTL" envDefault:"2m"`
}

// Load reads .env (if present) and parses the environment into a Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Sim.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects tuning values the engine cannot run with.
func (c SimConfig) Validate() error {
	if c.EventProbability < 0 || c.EventProbability > 1 {
		return fmt.Errorf("SIM_EVENT_PROBABILITY must be within [0, 1], got %v", c.EventProbability)
	}
	if c.EventMinBusinessDays < 0 {
		return fmt.Errorf("SIM_EVENT_MIN_BUSINESS_DAYS cannot be negative, got %d", c.EventMinBusinessDays)
	}
	if c.MaturityDays <= 0 {
		return fmt.Errorf("SIM_MATURITY_DAYS must be positive, got %d", c.MaturityDays)
	}
	if c.MaturityFloor < 0 || c.MaturityFloor > 1 {
		return fmt.Errorf("SIM_MATURITY_FLOOR must be within [0, 1], got %v", c.MaturityFloor)
	}
	if c.AnnualGrowth <= 0 {
		return fmt.Errorf("SIM_ANNUAL_GROWTH must be positive, got %v", c.AnnualGrowth)
	}
	if c.MaxAdvanceDays <= 0 {
		return fmt.Errorf("SIM_MAX_ADVANCE_DAYS must be positive, got %d", c.MaxAdvanceDays)
	}
	return nil
}
