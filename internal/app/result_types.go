package app

// Every amount in these types is a fixed-point decimal string with two places ("1234.50")
// and every date is YYYY-MM-DD. Nothing crosses the boundary as a float.

// GameResult is returned by StartGame.
type GameResult struct {
	OwnerID     int    `json:"owner_id"`
	BusinessID  int    `json:"business_id"`
	StartDate   string `json:"start_date" jsonschema_description:"First day of the simulation; never changes"`
	CurrentDate string `json:"current_date" jsonschema_description:"Last simulated day"`
	Cash        string `json:"cash"`
}

// OrderLineResult is one line of a purchase order.
type OrderLineResult struct {
	ProductID int    `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitCost  string `json:"unit_cost" jsonschema_description:"Unit cost after volume tiers"`
	LineTotal string `json:"line_total"`
}

// OrderResult is returned by purchase order operations.
type OrderResult struct {
	OrderID             int               `json:"order_id"`
	VendorID            int               `json:"vendor_id"`
	Status              string            `json:"status" jsonschema:"enum=PENDING,enum=IN_TRANSIT,enum=DELIVERED,enum=CANCELLED"`
	OrderDate           string            `json:"order_date"`
	ExpectedArrivalDate string            `json:"expected_arrival_date"`
	ActualArrivalDate   string            `json:"actual_arrival_date,omitempty"`
	Goods               string            `json:"goods"`
	Shipping            string            `json:"shipping"`
	Total               string            `json:"total" jsonschema_description:"Goods plus shipping; becomes the payable on delivery"`
	Lines               []OrderLineResult `json:"lines"`
}

// OrderListResult is returned by ListOrders.
type OrderListResult struct {
	Orders []OrderResult `json:"orders"`
}

// StockLine is one product's on-hand position.
type StockLine struct {
	ProductID int    `json:"product_id"`
	OnHand    int    `json:"on_hand"`
	Value     string `json:"value" jsonschema_description:"FIFO cost of the remaining units"`
}

// StockResult is returned by CurrentStock.
type StockResult struct {
	Products []StockLine `json:"products"`
}

// CashResult is returned by GetCashBalance.
type CashResult struct {
	AsOf    string `json:"as_of"`
	Balance string `json:"balance" jsonschema_description:"May be negative after a shortfall"`
}

// InventoryValueResult is returned by GetInventoryValue.
type InventoryValueResult struct {
	Value string `json:"value"`
}

// BoostResult describes one active market event or campaign.
type BoostResult struct {
	ID         int    `json:"id"`
	Kind       string `json:"kind" jsonschema:"enum=EVENT,enum=CAMPAIGN"`
	Name       string `json:"name"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date" jsonschema_description:"Inclusive"`
	Multiplier string `json:"multiplier"`
	TargetType string `json:"target_type" jsonschema:"enum=PRODUCT,enum=CATEGORY,enum=ATTRIBUTE,enum=ALL"`
}

// ActiveEventsResult is returned by ActiveEventsFor.
type ActiveEventsResult struct {
	Date      string        `json:"date"`
	Events    []BoostResult `json:"events"`
	Campaigns []BoostResult `json:"campaigns"`
}

// SalesRow is one product-day of the sales summary.
type SalesRow struct {
	Date        string `json:"date"`
	ProductID   int    `json:"product_id"`
	UnitsSold   int    `json:"units_sold"`
	Revenue     string `json:"revenue"`
	COGS        string `json:"cost_of_goods_sold"`
	GrossProfit string `json:"gross_profit"`
}

// SalesSummaryResult is returned by SalesSummary.
type SalesSummaryResult struct {
	From    string     `json:"from"`
	To      string     `json:"to"`
	Rows    []SalesRow `json:"rows"`
	Units   int        `json:"units"`
	Revenue string     `json:"revenue"`
	COGS    string     `json:"cost_of_goods_sold"`
}

// SaleLine is one product's sales on a simulated day.
type SaleLine struct {
	ProductID      int    `json:"product_id"`
	SKU            string `json:"sku"`
	Demand         int    `json:"demand" jsonschema_description:"Units customers wanted before the stock limit"`
	UnitsSold      int    `json:"units_sold"`
	Price          string `json:"price"`
	Revenue        string `json:"revenue"`
	COGS           string `json:"cost_of_goods_sold"`
	StockRemaining int    `json:"stock_remaining"`
}

// ShortfallLine is a payment made without enough cash.
type ShortfallLine struct {
	Date          string `json:"date"`
	Kind          string `json:"kind" jsonschema:"enum=BILL,enum=RECURRING"`
	Reference     string `json:"reference"`
	AmountDue     string `json:"amount_due"`
	CashAvailable string `json:"cash_available"`
}

// DaySummary is the host-facing view of one processed day.
type DaySummary struct {
	Date         string          `json:"date"`
	Deliveries   []int           `json:"deliveries" jsonschema_description:"Purchase order ids received"`
	Sales        []SaleLine      `json:"sales"`
	BillsPaid    []int           `json:"bills_paid" jsonschema_description:"Payable ids settled"`
	Recurring    []string        `json:"recurring" jsonschema_description:"Descriptions of recurring items applied"`
	Shortfalls   []ShortfallLine `json:"shortfalls"`
	EventStarted string          `json:"event_started,omitempty"`
	Cash         string          `json:"cash"`
}

// AdvanceResult is returned by AdvanceTime.
type AdvanceResult struct {
	CurrentDate string       `json:"current_date"`
	Days        []DaySummary `json:"days"`
}

// CampaignResult is returned by LaunchCampaign.
type CampaignResult struct {
	CampaignID int    `json:"campaign_id"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	Cost       string `json:"cost"`
}

// RecurringResult is returned by CreateRecurring.
type RecurringResult struct {
	ID        int    `json:"id"`
	Kind      string `json:"kind" jsonschema:"enum=EXPENSE,enum=INCOME"`
	Frequency string `json:"frequency"`
	Amount    string `json:"amount"`
	Account   string `json:"account"`
}

// ReversalResult is returned by ReverseTransaction.
type ReversalResult struct {
	OriginalID string `json:"original_id"`
	ReversalID string `json:"reversal_id"`
}

// StatementLineResult is a line of an account statement.
type StatementLineResult struct {
	Date           string `json:"date"`
	TransactionID  string `json:"transaction_id"`
	Description    string `json:"description"`
	Debit          string `json:"debit"`
	Credit         string `json:"credit"`
	RunningBalance string `json:"running_balance" jsonschema_description:"Net debit after this line"`
}

// AccountStatementResult is returned by AccountStatement.
type AccountStatementResult struct {
	Account string                `json:"account"`
	Lines   []StatementLineResult `json:"lines"`
}

// ShortfallsResult is returned by CashShortfalls.
type ShortfallsResult struct {
	Shortfalls []ShortfallLine `json:"shortfalls"`
}

// SchemaTypes lists the published result types by name, for schema generation.
func SchemaTypes() map[string]any {
	return map[string]any{
		"game":              &GameResult{},
		"order":             &OrderResult{},
		"orders":            &OrderListResult{},
		"stock":             &StockResult{},
		"cash":              &CashResult{},
		"inventory-value":   &InventoryValueResult{},
		"events":            &ActiveEventsResult{},
		"sales-summary":     &SalesSummaryResult{},
		"advance":           &AdvanceResult{},
		"campaign":          &CampaignResult{},
		"recurring":         &RecurringResult{},
		"reversal":          &ReversalResult{},
		"account-statement": &AccountStatementResult{},
		"shortfalls":        &ShortfallsResult{},
	}
}
