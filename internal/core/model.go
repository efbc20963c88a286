package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Chart of accounts used by the engine. Accounts are plain names; there is no account table.
const (
	AccountCash             = "Cash"
	AccountInventory        = "Inventory"
	AccountAccountsPayable  = "Accounts Payable"
	AccountOwnerEquity      = "Owner Equity"
	AccountSalesRevenue     = "Sales Revenue"
	AccountCOGS             = "Cost of Goods Sold"
	AccountShippingExpense  = "Shipping Expense"
	AccountMarketingExpense = "Marketing Expense"
	AccountOperatingExpense = "Operating Expenses"
	AccountOtherIncome      = "Other Income"
)

// PostingLine is one debit or credit line. Exactly one of Debit and Credit is non-zero.
type PostingLine struct {
	Account     string          `json:"account"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description"`
	CategoryID  *int            `json:"category_id,omitempty"`
}

// Posting is a request to append one balanced transaction to the ledger.
// IdempotencyKey, when set, makes a second posting with the same key fail with ErrDuplicatePosting.
type Posting struct {
	OwnerID        int           `json:"owner_id"`
	BusinessID     int           `json:"business_id"`
	Date           time.Time     `json:"date"`
	Description    string        `json:"description"`
	IdempotencyKey string        `json:"idempotency_key,omitempty"`
	Lines          []PostingLine `json:"lines"`
}

func Debit(account string, amount decimal.Decimal, description string) PostingLine {
	return PostingLine{Account: account, Debit: amount, Description: description}
}

func Credit(account string, amount decimal.Decimal, description string) PostingLine {
	return PostingLine{Account: account, Credit: amount, Description: description}
}

// LedgerTransaction is a posted transaction header with its lines.
type LedgerTransaction struct {
	TransactionID  string        `json:"transaction_id"`
	OwnerID        int           `json:"owner_id"`
	BusinessID     int           `json:"business_id"`
	SimulatedDate  time.Time     `json:"simulated_date"`
	Description    string        `json:"description"`
	IdempotencyKey *string       `json:"idempotency_key,omitempty"`
	IsReversal     bool          `json:"is_reversal"`
	ReversalOf     *string       `json:"reversal_of,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	Entries        []LedgerEntry `json:"entries"`
}

// LedgerEntry is one persisted ledger line.
type LedgerEntry struct {
	ID            int             `json:"id"`
	TransactionID string          `json:"transaction_id"`
	LineNumber    int             `json:"line_number"`
	OwnerID       int             `json:"owner_id"`
	BusinessID    int             `json:"business_id"`
	SimulatedDate time.Time       `json:"simulated_date"`
	AccountName   string          `json:"account_name"`
	DebitAmount   decimal.Decimal `json:"debit_amount"`
	CreditAmount  decimal.Decimal `json:"credit_amount"`
	Description   string          `json:"description"`
	CategoryID    *int            `json:"category_id,omitempty"`
	IsReversal    bool            `json:"is_reversal"`
	ReversalOf    *string         `json:"reversal_of,omitempty"`
}

// GameState anchors one owner's simulation of one business.
type GameState struct {
	OwnerID     int       `json:"owner_id"`
	BusinessID  int       `json:"business_id"`
	CurrentDate time.Time `json:"current_date"`
	StartDate   time.Time `json:"start_date"`
	CreatedAt   time.Time `json:"created_at"`
}

// CashShortfall records a payment made while cash could not cover it.
type CashShortfall struct {
	ID            int             `json:"id"`
	OwnerID       int             `json:"owner_id"`
	BusinessID    int             `json:"business_id"`
	Date          time.Time       `json:"date"`
	Kind          string          `json:"kind"`
	Reference     string          `json:"reference"`
	AmountDue     decimal.Decimal `json:"amount_due"`
	CashAvailable decimal.Decimal `json:"cash_available"`
}

const (
	ShortfallBill      = "BILL"
	ShortfallRecurring = "RECURRING"
)
