package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// InventoryLayer is one receipt of a product at one cost. Layers are never deleted.
type InventoryLayer struct {
	ID                  int
	OwnerID             int
	ProductID           int
	QuantityReceived    int
	QuantityRemaining   int
	UnitCost            decimal.Decimal
	ReceivedDate        time.Time
	SourcePurchaseOrder *int
}

// LayerTake is the part of one layer used by a consumption.
type LayerTake struct {
	LayerID  int
	Quantity int
	UnitCost decimal.Decimal
}

// Consumption is the FIFO result of removing units from stock.
type Consumption struct {
	OwnerID   int
	ProductID int
	Quantity  int
	TotalCost decimal.Decimal
	Takes     []LayerTake
}

// StockLevel is a per-product read view across layers.
type StockLevel struct {
	ProductID int
	OnHand    int
	Value     decimal.Decimal
}
