package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Frequency string

const (
	FrequencyDaily     Frequency = "DAILY"
	FrequencyWeekly    Frequency = "WEEKLY"
	FrequencyBiWeekly  Frequency = "BI_WEEKLY"
	FrequencyMonthly   Frequency = "MONTHLY"
	FrequencyQuarterly Frequency = "QUARTERLY"
	FrequencyYearly    Frequency = "YEARLY"
)

type RecurringKind string

const (
	RecurringExpense RecurringKind = "EXPENSE"
	RecurringIncome  RecurringKind = "INCOME"
)

// RecurringCharge is a scheduled expense or income item. DueDay is a weekday (1 = Monday)
// for weekly frequencies and a day of month otherwise, clamped to the month's length.
type RecurringCharge struct {
	ID                int
	OwnerID           int
	BusinessID        int
	Kind              RecurringKind
	Description       string
	Amount            decimal.Decimal
	Frequency         Frequency
	DueDay            int
	AccountName       *string
	CategoryID        *int
	LastProcessedDate *time.Time
}

// RecurringApplication reports one charge applied during a day.
type RecurringApplication struct {
	ChargeID      int
	Kind          RecurringKind
	Description   string
	Amount        decimal.Decimal
	Period        string
	TransactionID string
}

// Account returns the income or expense account, falling back to the kind's default.
func (r RecurringCharge) Account() string {
	if r.AccountName != nil && strings.TrimSpace(*r.AccountName) != "" {
		return strings.TrimSpace(*r.AccountName)
	}
	if r.Kind == RecurringIncome {
		return AccountOtherIncome
	}
	return AccountOperatingExpense
}

func (r RecurringCharge) Validate() error {
	if r.Kind != RecurringExpense && r.Kind != RecurringIncome {
		return invalid("kind", "must be EXPENSE or INCOME, got %q", r.Kind)
	}
	if strings.TrimSpace(r.Description) == "" {
		return invalid("description", "is required")
	}
	if !r.Amount.IsPositive() || !isCents(r.Amount) {
		return invalid("amount", "must be a positive amount in cents, got %s", r.Amount)
	}
	switch r.Frequency {
	case FrequencyDaily:
	case FrequencyWeekly, FrequencyBiWeekly:
		if r.DueDay < 1 || r.DueDay > 7 {
			return invalid("due_day", "must be a weekday 1-7 for %s, got %d", r.Frequency, r.DueDay)
		}
	case FrequencyMonthly, FrequencyQuarterly, FrequencyYearly:
		if r.DueDay < 1 || r.DueDay > 31 {
			return invalid("due_day", "must be 1-31 for %s, got %d", r.Frequency, r.DueDay)
		}
	default:
		return invalid("frequency", "unknown frequency %q", r.Frequency)
	}
	return nil
}

// biWeeklyEpoch is a Monday; fortnights are counted from it.
var biWeeklyEpoch = time.Date(1970, 1, 5, 0, 0, 0, 0, time.UTC)

func isoWeekday(t time.Time) int {
	return (int(t.Weekday())+6)%7 + 1
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (r RecurringCharge) dayOfMonthMatches(date time.Time) bool {
	return date.Day() == min(r.DueDay, daysIn(date.Year(), date.Month()))
}

// IsScheduled reports whether date is a due day for the charge's frequency.
func (r RecurringCharge) IsScheduled(date time.Time) bool {
	date = Date(date)
	switch r.Frequency {
	case FrequencyDaily:
		return true
	case FrequencyWeekly:
		return isoWeekday(date) == r.DueDay
	case FrequencyBiWeekly:
		week := DaysBetween(biWeeklyEpoch, date) / 7
		return isoWeekday(date) == r.DueDay && week%2 == 0
	case FrequencyMonthly:
		return r.dayOfMonthMatches(date)
	case FrequencyQuarterly:
		return (date.Month()-1)%3 == 0 && r.dayOfMonthMatches(date)
	case FrequencyYearly:
		return date.Month() == time.January && r.dayOfMonthMatches(date)
	}
	return false
}

// PeriodKey names the billing period containing date. Two dates in the same period never
// both apply the charge.
func (r RecurringCharge) PeriodKey(date time.Time) string {
	date = Date(date)
	switch r.Frequency {
	case FrequencyWeekly:
		y, w := date.ISOWeek()
		return fmt.Sprintf("%d-W%02d", y, w)
	case FrequencyBiWeekly:
		return fmt.Sprintf("F%d", DaysBetween(biWeeklyEpoch, date)/14)
	case FrequencyMonthly:
		return date.Format("2006-01")
	case FrequencyQuarterly:
		return fmt.Sprintf("%d-Q%d", date.Year(), (int(date.Month())-1)/3+1)
	case FrequencyYearly:
		return fmt.Sprintf("%d", date.Year())
	}
	return FormatDate(date)
}

// DueOn reports whether the charge applies on date: scheduled, and not already applied
// in date's period.
func (r RecurringCharge) DueOn(date time.Time) bool {
	if !r.IsScheduled(date) {
		return false
	}
	if r.LastProcessedDate == nil {
		return true
	}
	return r.PeriodKey(*r.LastProcessedDate) != r.PeriodKey(date)
}

// Posting builds the ledger transaction for one application of the charge.
func (r RecurringCharge) Posting(date time.Time) Posting {
	key := fmt.Sprintf("recurring:%d:%s", r.ID, r.PeriodKey(date))
	var lines []PostingLine
	if r.Kind == RecurringIncome {
		lines = []PostingLine{
			Debit(AccountCash, r.Amount, r.Description),
			Credit(r.Account(), r.Amount, r.Description),
		}
	} else {
		lines = []PostingLine{
			Debit(r.Account(), r.Amount, r.Description),
			Credit(AccountCash, r.Amount, r.Description),
		}
	}
	for i := range lines {
		lines[i].CategoryID = r.CategoryID
	}
	return Posting{
		OwnerID:        r.OwnerID,
		BusinessID:     r.BusinessID,
		Date:           date,
		Description:    r.Description,
		IdempotencyKey: key,
		Lines:          lines,
	}
}
