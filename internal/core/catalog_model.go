package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

type Volatility string

const (
	VolatilityLow    Volatility = "LOW"
	VolatilityMedium Volatility = "MEDIUM"
	VolatilityHigh   Volatility = "HIGH"
)

// Business is a business type players can run. Code selects the event catalog.
type Business struct {
	ID           int
	Code         string
	Name         string
	Volatility   Volatility
	StartingCash decimal.Decimal
}

type ProductStatus string

const (
	ProductLocked   ProductStatus = "LOCKED"
	ProductUnlocked ProductStatus = "UNLOCKED"
)

type Product struct {
	ID               int
	BusinessID       int
	CategoryID       int
	SKU              string
	Name             string
	BaseDemand       int
	PriceSensitivity float64
	DefaultPrice     decimal.Decimal
	Status           ProductStatus
	Attribute1       *string
	Attribute2       *string
	Attribute3       *string
}

// Attribute returns the targeting attribute by column name ("attribute_1".."attribute_3").
func (p Product) Attribute(name string) string {
	var v *string
	switch strings.ToLower(name) {
	case "attribute_1":
		v = p.Attribute1
	case "attribute_2":
		v = p.Attribute2
	case "attribute_3":
		v = p.Attribute3
	}
	if v == nil {
		return ""
	}
	return *v
}

type VendorStatus string

const (
	VendorAvailable   VendorStatus = "AVAILABLE"
	VendorProspective VendorStatus = "PROSPECTIVE"
	VendorLocked      VendorStatus = "LOCKED"
)

type Vendor struct {
	ID                int
	BusinessID        int
	Name              string
	LeadTimeDays      int
	Reliability       float64
	MinimumOrderValue decimal.Decimal
	PaymentTermsDays  int
	ShippingFee       decimal.Decimal
	Status            VendorStatus
}

// VolumeTier overrides the offer's unit cost when MinQuantity <= qty <= MaxQuantity.
// A nil MaxQuantity is unbounded.
type VolumeTier struct {
	MinQuantity int
	MaxQuantity *int
	UnitCost    decimal.Decimal
}

type VendorOffer struct {
	ID                   int
	VendorID             int
	ProductID            int
	UnitCost             decimal.Decimal
	MinimumOrderQuantity int
	Tiers                []VolumeTier
}
