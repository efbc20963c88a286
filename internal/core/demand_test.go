package core_test

import (
	"testing"
	"time"

	"harvest-engine/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flatParams() core.DemandParams {
	p := core.DefaultDemandParams()
	p.AnnualGrowth = 1.0
	p.SeasonalAmplitude = 0
	p.WeeklyFactors = [7]float64{1, 1, 1, 1, 1, 1, 1}
	return p
}

func TestMaturityFactor_Bounds(t *testing.T) {
	p := core.DefaultDemandParams()

	assert.Equal(t, 0.05, p.MaturityFactor(0))
	assert.Equal(t, 0.05, p.MaturityFactor(-3))
	assert.Equal(t, 1.0, p.MaturityFactor(90))
	assert.Equal(t, 1.0, p.MaturityFactor(400))

	prev := p.MaturityFactor(0)
	for d := 1; d <= 120; d++ {
		f := p.MaturityFactor(d)
		require.GreaterOrEqual(t, f, prev, "maturity decreased at day %d", d)
		require.GreaterOrEqual(t, f, 0.05)
		require.LessOrEqual(t, f, 1.0)
		prev = f
	}
}

func TestWeeklyFactor_MondayFirst(t *testing.T) {
	p := core.DefaultDemandParams()
	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	saturday := monday.AddDate(0, 0, 5)
	sunday := monday.AddDate(0, 0, 6)

	assert.Equal(t, 0.90, p.WeeklyFactor(monday))
	assert.Equal(t, 1.50, p.WeeklyFactor(saturday))
	assert.Equal(t, 1.20, p.WeeklyFactor(sunday))
}

func TestTrendFactor_OneYear(t *testing.T) {
	p := core.DefaultDemandParams()
	assert.Equal(t, 1.0, p.TrendFactor(0))
	assert.InDelta(t, 1.10, p.TrendFactor(365), 0.001)
}

func TestSeasonalFactor_PeaksAfterPhase(t *testing.T) {
	p := core.DefaultDemandParams()
	phase := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 79) // day-of-year 80
	assert.InDelta(t, 1.0, p.SeasonalFactor(phase), 1e-9)

	peak := phase.AddDate(0, 0, 91)
	assert.InDelta(t, 1.30, p.SeasonalFactor(peak), 0.001)
}

func TestPriceFactor(t *testing.T) {
	ten := decimal.NewFromInt(10)

	assert.Equal(t, 1.0, core.PriceFactor(ten, ten, 1.5))
	assert.InDelta(t, 0.85, core.PriceFactor(decimal.NewFromInt(11), ten, 1.5), 1e-9)
	assert.InDelta(t, 1.15, core.PriceFactor(decimal.NewFromInt(9), ten, 1.5), 1e-9)
	assert.Equal(t, 0.0, core.PriceFactor(decimal.NewFromInt(100), ten, 1.5))
	assert.Equal(t, 1.0, core.PriceFactor(ten, decimal.Zero, 1.5), "zero default price must not divide")
}

func TestCompute_SimpleSaleScenario(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	in := core.DemandInput{
		Product: core.Product{
			ID: 1, BaseDemand: 100, PriceSensitivity: 1.0, DefaultPrice: decimal.NewFromInt(10),
		},
		StartDate:  start,
		Date:       start.AddDate(0, 0, 120),
		Price:      decimal.NewFromInt(10),
		Volatility: core.VolatilityMedium,
	}

	b := flatParams().Compute(in, core.ConstantSource(1.0))

	assert.Equal(t, 100, b.Units)
	assert.Equal(t, 1.0, b.Maturity)
	assert.Equal(t, 1.0, b.Campaign)
	assert.Equal(t, 1.0, b.Event)
}

func TestCompute_BoostsMultiply(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	in := core.DemandInput{
		Product:       core.Product{BaseDemand: 100, PriceSensitivity: 1.0, DefaultPrice: decimal.NewFromInt(10)},
		StartDate:     start,
		Date:          start.AddDate(0, 0, 200),
		Price:         decimal.NewFromInt(10),
		CampaignBoost: 1.5,
		EventBoost:    2.0,
	}

	b := flatParams().Compute(in, core.ConstantSource(1.0))
	assert.Equal(t, 300, b.Units)
}

func TestCompute_NeverNegative(t *testing.T) {
	params := core.DefaultDemandParams()
	rng := core.NewSeededSource(7)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	prices := []int64{0, 5, 10, 25, 1000}
	for day := 0; day < 400; day += 13 {
		for _, price := range prices {
			in := core.DemandInput{
				Product: core.Product{
					BaseDemand: 50, PriceSensitivity: 2.5, DefaultPrice: decimal.NewFromInt(10),
				},
				StartDate:  start,
				Date:       start.AddDate(0, 0, day),
				Price:      decimal.NewFromInt(price),
				Volatility: core.VolatilityHigh,
			}
			b := params.Compute(in, rng)
			require.GreaterOrEqual(t, b.Units, 0, "day %d price %d", day, price)
		}
	}
}

func TestCompute_VarianceBandByVolatility(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	in := core.DemandInput{
		Product:    core.Product{BaseDemand: 1000, PriceSensitivity: 1, DefaultPrice: decimal.NewFromInt(10)},
		StartDate:  start,
		Date:       start.AddDate(0, 0, 100),
		Price:      decimal.NewFromInt(10),
		Volatility: core.VolatilityLow,
	}
	rng := core.NewSeededSource(99)
	params := flatParams()

	for i := 0; i < 200; i++ {
		b := params.Compute(in, rng)
		require.GreaterOrEqual(t, b.Variance, 0.95)
		require.Less(t, b.Variance, 1.05)
	}
}

func TestSeededSource_Deterministic(t *testing.T) {
	a := core.NewSeededSource(42)
	b := core.NewSeededSource(42)
	for i := 0; i < 50; i++ {
		require.Equal(t, a.Float64Range(0.85, 1.15), b.Float64Range(0.85, 1.15))
	}
}
