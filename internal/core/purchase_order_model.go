package core

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderInTransit OrderStatus = "IN_TRANSIT"
	OrderDelivered OrderStatus = "DELIVERED"
	OrderCancelled OrderStatus = "CANCELLED"
)

// Terminal reports whether no further transition is allowed.
func (s OrderStatus) Terminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

// CanTransition allows only forward moves: PENDING -> IN_TRANSIT, and any non-terminal
// state -> DELIVERED or CANCELLED.
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	switch s {
	case OrderPending:
		return to == OrderInTransit || to == OrderDelivered || to == OrderCancelled
	case OrderInTransit:
		return to == OrderDelivered || to == OrderCancelled
	}
	return false
}

// PurchaseOrder represents a purchase order header.
type PurchaseOrder struct {
	ID                  int
	OwnerID             int
	BusinessID          int
	VendorID            int
	OrderDate           time.Time
	ExpectedArrivalDate time.Time
	ActualArrivalDate   *time.Time
	Status              OrderStatus
	GoodsAmount         decimal.Decimal
	ShippingAmount      decimal.Decimal
	TotalAmount         decimal.Decimal
	CreatedAt           time.Time
	Lines               []PurchaseOrderLine
}

// PurchaseOrderLine represents a single line on a purchase order.
// UnitCost is fixed at order time; receipt uses it rather than the vendor's current price.
type PurchaseOrderLine struct {
	ID         int
	OrderID    int
	LineNumber int
	ProductID  int
	Quantity   int
	UnitCost   decimal.Decimal
	LineTotal  decimal.Decimal
}

// OrderRequest asks a vendor for quantities keyed by product id.
type OrderRequest struct {
	OwnerID    int
	BusinessID int
	VendorID   int
	Quantities map[int]int
}

// OrderQuote is the priced, validated form of an OrderRequest.
type OrderQuote struct {
	Lines       []PurchaseOrderLine
	Goods       decimal.Decimal
	Shipping    decimal.Decimal
	Total       decimal.Decimal
	ArrivalDate time.Time
}

type PayableStatus string

const (
	PayableUnpaid PayableStatus = "UNPAID"
	PayablePaid   PayableStatus = "PAID"
)

// AccountsPayable is the bill created when a purchase order is delivered.
type AccountsPayable struct {
	ID              int
	OwnerID         int
	BusinessID      int
	VendorID        int
	PurchaseOrderID int
	AmountDue       decimal.Decimal
	CreationDate    time.Time
	DueDate         time.Time
	PaidDate        *time.Time
	Status          PayableStatus
}

// Delivery summarizes one order received during a day.
type Delivery struct {
	OrderID     int
	VendorID    int
	Units       int
	GoodsAmount decimal.Decimal
	Shipping    decimal.Decimal
	Total       decimal.Decimal
	PayableID   int
	DueDate     time.Time
}

// BillPayment summarizes one payable settled during a day.
type BillPayment struct {
	PayableID       int
	PurchaseOrderID int
	Amount          decimal.Decimal
	Shortfall       bool
}
