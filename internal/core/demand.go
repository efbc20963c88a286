package core

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// DemandParams holds the tunable constants of the demand model.
type DemandParams struct {
	MaturityDays      int
	MaturityFloor     float64
	MaturityExponent  float64
	AnnualGrowth      float64
	SeasonalAmplitude float64
	SeasonalPhaseDay  int
	// WeeklyFactors is indexed Monday first.
	WeeklyFactors [7]float64
	VarianceBands map[Volatility][2]float64
	DefaultBand   [2]float64
}

func DefaultDemandParams() DemandParams {
	return DemandParams{
		MaturityDays:      90,
		MaturityFloor:     0.05,
		MaturityExponent:  0.6,
		AnnualGrowth:      1.10,
		SeasonalAmplitude: 0.30,
		SeasonalPhaseDay:  80,
		WeeklyFactors:     [7]float64{0.90, 0.95, 1.00, 1.10, 1.40, 1.50, 1.20},
		VarianceBands: map[Volatility][2]float64{
			VolatilityLow:    {0.95, 1.05},
			VolatilityMedium: {0.85, 1.15},
			VolatilityHigh:   {0.85, 1.15},
		},
		DefaultBand: [2]float64{0.90, 1.10},
	}
}

// DemandInput is everything the model needs for one product on one day.
type DemandInput struct {
	Product       Product
	Date          time.Time
	StartDate     time.Time
	Price         decimal.Decimal
	CampaignBoost float64
	EventBoost    float64
	Volatility    Volatility
}

// DemandBreakdown keeps each factor for logging and the day result.
type DemandBreakdown struct {
	Maturity float64
	Trend    float64
	Seasonal float64
	Weekly   float64
	Price    float64
	Campaign float64
	Event    float64
	Variance float64
	Units    int
}

// MaturityFactor ramps from the floor to 1.0 over the maturity window.
func (p DemandParams) MaturityFactor(daysElapsed int) float64 {
	if daysElapsed <= 0 {
		return p.MaturityFloor
	}
	if p.MaturityDays <= 0 || daysElapsed >= p.MaturityDays {
		return 1.0
	}
	progress := float64(daysElapsed) / float64(p.MaturityDays)
	f := p.MaturityFloor + (1.0-p.MaturityFloor)*math.Pow(progress, p.MaturityExponent)
	return math.Min(1.0, math.Max(p.MaturityFloor, f))
}

func (p DemandParams) TrendFactor(daysElapsed int) float64 {
	if daysElapsed <= 0 {
		return 1.0
	}
	return math.Pow(p.AnnualGrowth, float64(daysElapsed)/365.25)
}

func (p DemandParams) SeasonalFactor(date time.Time) float64 {
	doy := float64(date.YearDay() - p.SeasonalPhaseDay)
	return 1.0 + p.SeasonalAmplitude*math.Sin(2*math.Pi*doy/365.25)
}

func (p DemandParams) WeeklyFactor(date time.Time) float64 {
	monday0 := (int(date.Weekday()) + 6) % 7
	return p.WeeklyFactors[monday0]
}

// PriceFactor is linear elasticity around the default price, floored at zero.
func PriceFactor(price, defaultPrice decimal.Decimal, sensitivity float64) float64 {
	if defaultPrice.IsZero() {
		return 1.0
	}
	delta := price.Sub(defaultPrice).Div(defaultPrice).InexactFloat64()
	return math.Max(0, 1.0-sensitivity*delta)
}

func (p DemandParams) band(v Volatility) [2]float64 {
	if b, ok := p.VarianceBands[v]; ok {
		return b
	}
	return p.DefaultBand
}

// Compute returns raw demand, not yet limited by stock. It draws exactly one variance value.
func (p DemandParams) Compute(in DemandInput, rng RandomSource) DemandBreakdown {
	days := DaysBetween(in.StartDate, in.Date)
	if days < 0 {
		days = 0
	}
	band := p.band(in.Volatility)

	b := DemandBreakdown{
		Maturity: p.MaturityFactor(days),
		Trend:    p.TrendFactor(days),
		Seasonal: p.SeasonalFactor(in.Date),
		Weekly:   p.WeeklyFactor(in.Date),
		Price:    PriceFactor(in.Price, in.Product.DefaultPrice, in.Product.PriceSensitivity),
		Campaign: orOne(in.CampaignBoost),
		Event:    orOne(in.EventBoost),
		Variance: rng.Float64Range(band[0], band[1]),
	}

	raw := float64(in.Product.BaseDemand) * b.Maturity * b.Trend * b.Seasonal * b.Weekly *
		b.Price * b.Campaign * b.Event * b.Variance
	// Absorb representation error so 99.9999999 floors to 100.
	units := math.Floor(raw + 1e-9)
	if units < 0 || math.IsNaN(units) {
		units = 0
	}
	b.Units = int(units)
	return b
}

func orOne(f float64) float64 {
	if f == 0 {
		return 1.0
	}
	return f
}
