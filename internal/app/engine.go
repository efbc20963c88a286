package app

import (
	"harvest-engine/internal/config"
	"harvest-engine/internal/core"
	"harvest-engine/internal/lock"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// DemandParamsFrom overlays the configured tuning on the default demand model.
func DemandParamsFrom(c config.SimConfig) core.DemandParams {
	p := core.DefaultDemandParams()
	p.MaturityDays = c.MaturityDays
	p.MaturityFloor = c.MaturityFloor
	p.AnnualGrowth = c.AnnualGrowth
	p.SeasonalAmplitude = c.SeasonalAmplitude
	p.SeasonalPhaseDay = c.SeasonalPhaseDay
	return p
}

func EventParamsFrom(c config.SimConfig) core.EventParams {
	return core.EventParams{
		Probability:     c.EventProbability,
		MinBusinessDays: c.EventMinBusinessDays,
	}
}

// RandomSourceFrom returns a seeded source, or a clock-seeded one when Seed is 0.
func RandomSourceFrom(c config.SimConfig) core.RandomSource {
	if c.Seed == 0 {
		return core.NewRandomSource()
	}
	return core.NewSeededSource(c.Seed)
}

// NewEngine wires the core services and the simulator behind an ApplicationService.
func NewEngine(pool *pgxpool.Pool, cfg config.SimConfig, locker lock.Locker, logger logrus.FieldLogger) ApplicationService {
	svc := core.NewServices(pool, EventParamsFrom(cfg), logger)
	sim := core.NewSimulator(pool, svc, DemandParamsFrom(cfg), RandomSourceFrom(cfg), logger)
	return NewAppService(pool, svc, sim, locker, cfg, logger)
}
