package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Normalize trims text fields, truncates the date to a day and drops lines with no amount.
func (p *Posting) Normalize() {
	p.Description = strings.TrimSpace(p.Description)
	p.IdempotencyKey = strings.TrimSpace(p.IdempotencyKey)
	p.Date = Date(p.Date)

	lines := p.Lines[:0]
	for _, line := range p.Lines {
		line.Account = strings.TrimSpace(line.Account)
		line.Description = strings.TrimSpace(line.Description)
		if line.Debit.IsZero() && line.Credit.IsZero() {
			continue
		}
		lines = append(lines, line)
	}
	p.Lines = lines
}

// Validate enforces double-entry rules: at least two lines, one positive side per line,
// cent precision, and total debits exactly equal to total credits.
func (p *Posting) Validate() error {
	if p.OwnerID <= 0 {
		return invalid("owner_id", "must be positive")
	}
	if p.BusinessID <= 0 {
		return invalid("business_id", "must be positive")
	}
	if p.Date.IsZero() {
		return invalid("date", "posting must have a date")
	}
	if p.Description == "" {
		return invalid("description", "posting must have a description")
	}
	if len(p.Lines) < 2 {
		return invalid("lines", "transaction must have at least 2 lines")
	}

	debits, credits := decimal.Zero, decimal.Zero
	for i, line := range p.Lines {
		if line.Account == "" {
			return invalid("lines", "line %d has no account", i+1)
		}
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return invalid("lines", "line %d (%s) has a negative amount", i+1, line.Account)
		}
		if !line.Debit.IsZero() && !line.Credit.IsZero() {
			return invalid("lines", "line %d (%s) has both debit and credit", i+1, line.Account)
		}
		if line.Debit.IsZero() && line.Credit.IsZero() {
			return invalid("lines", "line %d (%s) has no amount", i+1, line.Account)
		}
		if !isCents(line.Debit) || !isCents(line.Credit) {
			return invalid("lines", "line %d (%s) has more than two decimal places", i+1, line.Account)
		}
		debits = debits.Add(line.Debit)
		credits = credits.Add(line.Credit)
	}

	if !debits.Equal(credits) {
		return &ImbalanceError{Debits: debits, Credits: credits}
	}
	return nil
}

// Total returns the sum of debits.
func (p *Posting) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range p.Lines {
		total = total.Add(line.Debit)
	}
	return total
}

// mirrorLines builds reversal lines: same sides, negated amounts, so the pair nets to zero.
func mirrorLines(entries []LedgerEntry) []PostingLine {
	out := make([]PostingLine, 0, len(entries))
	for _, e := range entries {
		out = append(out, PostingLine{
			Account:     e.AccountName,
			Debit:       e.DebitAmount.Neg(),
			Credit:      e.CreditAmount.Neg(),
			Description: e.Description,
			CategoryID:  e.CategoryID,
		})
	}
	return out
}
