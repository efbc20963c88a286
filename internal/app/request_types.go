package app

// Requests carry money and dates as strings; the service parses them with the same
// rules the engine uses internally (at most two decimal places, YYYY-MM-DD).

// StartGameRequest starts an owner's simulation of a business.
type StartGameRequest struct {
	OwnerID    int
	BusinessID int
	StartDate  string // YYYY-MM-DD
}

// PlaceOrderRequest orders products from one vendor.
type PlaceOrderRequest struct {
	OwnerID    int
	BusinessID int
	VendorID   int
	Lines      []OrderLineInput
}

// OrderLineInput is a single line within a PlaceOrderRequest.
type OrderLineInput struct {
	ProductID int
	Quantity  int
}

// SetPriceRequest overrides a product's selling price for one owner.
type SetPriceRequest struct {
	OwnerID   int
	ProductID int
	Price     string
}

// LaunchCampaignRequest pays for a marketing campaign starting the next simulated day.
type LaunchCampaignRequest struct {
	OwnerID      int
	BusinessID   int
	Name         string
	DurationDays int
	Multiplier   string
	Cost         string
	TargetType   string // PRODUCT, CATEGORY or ALL
	TargetID     *int
}

// CreateRecurringRequest schedules a recurring expense or income item.
type CreateRecurringRequest struct {
	OwnerID     int
	BusinessID  int
	Kind        string // EXPENSE or INCOME
	Description string
	Amount      string
	Frequency   string
	DueDay      int
	Account     string // optional; defaults by kind
}
