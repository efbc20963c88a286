package app

import (
	"context"
)

// ApplicationService is the single interface host adapters (CLI, web) call.
// Monetary values and dates cross it as strings; implementations contain no display logic.
type ApplicationService interface {
	// StartGame creates the owner's game for a business and posts its starting cash.
	// Calling it again returns the existing game.
	StartGame(ctx context.Context, req StartGameRequest) (*GameResult, error)

	// PlaceOrder prices and records a purchase order on the current simulated date.
	PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*OrderResult, error)

	// CancelOrder cancels an order that has not arrived yet.
	CancelOrder(ctx context.Context, ownerID, orderID int) (*OrderResult, error)

	// ListOrders returns the owner's purchase orders, optionally filtered by status ("" for all).
	ListOrders(ctx context.Context, ownerID, businessID int, status string) (*OrderListResult, error)

	// AdvanceTime simulates days one at a time under the per-game lease.
	// On failure the result still lists the days committed before the failing one.
	AdvanceTime(ctx context.Context, ownerID, businessID, days int) (*AdvanceResult, error)

	// CurrentStock returns on-hand units and FIFO value per product.
	CurrentStock(ctx context.Context, ownerID, businessID int) (*StockResult, error)

	// GetCashBalance returns the Cash account balance as of the current simulated date.
	GetCashBalance(ctx context.Context, ownerID, businessID int) (*CashResult, error)

	// GetInventoryValue returns the total FIFO cost of remaining stock.
	GetInventoryValue(ctx context.Context, ownerID, businessID int) (*InventoryValueResult, error)

	// ActiveEventsFor lists market events and campaigns in effect on date.
	ActiveEventsFor(ctx context.Context, ownerID, businessID int, date string) (*ActiveEventsResult, error)

	// SalesSummary returns daily sales rows between from and to inclusive.
	SalesSummary(ctx context.Context, ownerID, businessID int, from, to string) (*SalesSummaryResult, error)

	SetSellingPrice(ctx context.Context, req SetPriceRequest) error
	LaunchCampaign(ctx context.Context, req LaunchCampaignRequest) (*CampaignResult, error)
	CreateRecurring(ctx context.Context, req CreateRecurringRequest) (*RecurringResult, error)

	// ReverseTransaction posts the mirror of one of the owner's ledger transactions.
	ReverseTransaction(ctx context.Context, ownerID int, transactionID, reason string) (*ReversalResult, error)

	AccountStatement(ctx context.Context, ownerID, businessID int, account, from, to string) (*AccountStatementResult, error)
	CashShortfalls(ctx context.Context, ownerID, businessID int, from, to string) (*ShortfallsResult, error)

	// RebuildSummaries recomputes the daily sales cache from consumption history.
	// It returns the number of rows written.
	RebuildSummaries(ctx context.Context, ownerID, businessID int, from, to string) (int64, error)
}
