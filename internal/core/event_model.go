package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type TargetType string

const (
	TargetProduct   TargetType = "PRODUCT"
	TargetCategory  TargetType = "CATEGORY"
	TargetAttribute TargetType = "ATTRIBUTE"
	TargetAll       TargetType = "ALL"
)

// Targeting selects the products a boost applies to.
type Targeting struct {
	Type      TargetType `json:"target_type"`
	TargetID  *int       `json:"target_id,omitempty"`
	Attribute *string    `json:"target_attribute,omitempty"`
	Value     *string    `json:"target_value,omitempty"`
}

// Matches reports whether p is targeted. Attribute values compare case-insensitively.
func (t Targeting) Matches(p Product) bool {
	switch t.Type {
	case TargetAll:
		return true
	case TargetProduct:
		return t.TargetID != nil && *t.TargetID == p.ID
	case TargetCategory:
		return t.TargetID != nil && *t.TargetID == p.CategoryID
	case TargetAttribute:
		if t.Attribute == nil || t.Value == nil {
			return false
		}
		v := p.Attribute(*t.Attribute)
		return v != "" && strings.EqualFold(v, *t.Value)
	}
	return false
}

func (t Targeting) validate() error {
	switch t.Type {
	case TargetAll:
		return nil
	case TargetProduct, TargetCategory:
		if t.TargetID == nil {
			return invalid("target_id", "required for %s targeting", t.Type)
		}
		return nil
	case TargetAttribute:
		if t.Attribute == nil || t.Value == nil {
			return invalid("target_attribute", "attribute and value are required")
		}
		if !isAttributeColumn(*t.Attribute) {
			return invalid("target_attribute", "unknown attribute %q", *t.Attribute)
		}
		return nil
	}
	return invalid("target_type", "unknown target type %q", t.Type)
}

func isAttributeColumn(name string) bool {
	switch strings.ToLower(name) {
	case "attribute_1", "attribute_2", "attribute_3":
		return true
	}
	return false
}

// Boost is the demand-relevant part of an event or campaign.
type Boost struct {
	Name       string
	StartDate  time.Time
	EndDate    time.Time
	Multiplier decimal.Decimal
	Target     Targeting
}

// ActiveOn reports whether date falls in [StartDate, EndDate].
func (b Boost) ActiveOn(date time.Time) bool {
	d := Date(date)
	return !d.Before(Date(b.StartDate)) && !d.After(Date(b.EndDate))
}

// CombinedBoost multiplies every active, matching boost. No match yields 1.0.
func CombinedBoost(boosts []Boost, p Product, date time.Time) float64 {
	combined := 1.0
	for _, b := range boosts {
		if b.ActiveOn(date) && b.Target.Matches(p) {
			combined *= b.Multiplier.InexactFloat64()
		}
	}
	return combined
}

type MarketEvent struct {
	ID              int             `json:"id"`
	OwnerID         int             `json:"owner_id"`
	BusinessID      int             `json:"business_id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	StartDate       time.Time       `json:"start_date"`
	EndDate         time.Time       `json:"end_date"`
	BoostMultiplier decimal.Decimal `json:"boost_multiplier"`
	Targeting
}

func (e MarketEvent) Boost() Boost {
	return Boost{Name: e.Name, StartDate: e.StartDate, EndDate: e.EndDate, Multiplier: e.BoostMultiplier, Target: e.Targeting}
}

type Campaign struct {
	ID              int             `json:"id"`
	OwnerID         int             `json:"owner_id"`
	BusinessID      int             `json:"business_id"`
	Name            string          `json:"name"`
	StartDate       time.Time       `json:"start_date"`
	EndDate         time.Time       `json:"end_date"`
	BoostMultiplier decimal.Decimal `json:"boost_multiplier"`
	Cost            decimal.Decimal `json:"cost"`
	Targeting
}

func (c Campaign) Boost() Boost {
	return Boost{Name: c.Name, StartDate: c.StartDate, EndDate: c.EndDate, Multiplier: c.BoostMultiplier, Target: c.Targeting}
}

// CampaignInput describes a player-launched campaign starting on the current game date.
type CampaignInput struct {
	OwnerID         int
	BusinessID      int
	Name            string
	DurationDays    int
	BoostMultiplier decimal.Decimal
	Cost            decimal.Decimal
	Target          Targeting
}

func (in CampaignInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return invalid("name", "campaign must have a name")
	}
	if in.DurationDays < 1 {
		return invalid("duration_days", "must be at least 1, got %d", in.DurationDays)
	}
	if !in.BoostMultiplier.IsPositive() {
		return invalid("boost_multiplier", "must be positive, got %s", in.BoostMultiplier)
	}
	if in.Cost.IsNegative() || !isCents(in.Cost) {
		return invalid("cost", "must be a non-negative amount in cents, got %s", in.Cost)
	}
	if in.Target.Type == TargetAttribute {
		return invalid("target_type", "campaigns target a product, a category or all products")
	}
	return in.Target.validate()
}

// EventTemplate is a catalog entry for a random market event.
type EventTemplate struct {
	Name         string
	Description  string
	Attribute    string
	Value        string
	Boost        decimal.Decimal
	DurationDays int
}

// EventParams controls random event triggering.
type EventParams struct {
	Probability     float64
	MinBusinessDays int
}

func DefaultEventParams() EventParams {
	return EventParams{Probability: 0.04, MinBusinessDays: 14}
}

// RollEvent decides whether an event starts today and, if so, builds it from one of
// templates. No draw is made before the business reaches MinBusinessDays. The duration is
// the template's scaled by a factor in [0.75, 1.25), at least one day. The event ends that
// many days after it starts and the end date is inclusive, so it is active for duration+1 days.
func (p EventParams) RollEvent(templates []EventTemplate, daysElapsed int, date time.Time, rng RandomSource) *MarketEvent {
	if len(templates) == 0 || daysElapsed < p.MinBusinessDays {
		return nil
	}
	if rng.Float64Range(0, 1) >= p.Probability {
		return nil
	}

	tpl := templates[pickIndex(rng, len(templates))]
	duration := int(float64(tpl.DurationDays) * rng.Float64Range(0.75, 1.25))
	if duration < 1 {
		duration = 1
	}

	attr, val := tpl.Attribute, tpl.Value
	start := Date(date)
	return &MarketEvent{
		Name:            tpl.Name,
		Description:     tpl.Description,
		StartDate:       start,
		EndDate:         start.AddDate(0, 0, duration),
		BoostMultiplier: tpl.Boost,
		Targeting:       Targeting{Type: TargetAttribute, Attribute: &attr, Value: &val},
	}
}
