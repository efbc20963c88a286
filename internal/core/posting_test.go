package core_test

import (
	"testing"
	"time"

	"harvest-engine/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func basePosting(lines ...core.PostingLine) core.Posting {
	return core.Posting{
		OwnerID:     1,
		BusinessID:  1,
		Date:        time.Date(2026, 3, 1, 15, 4, 5, 0, time.UTC),
		Description: "  test posting ",
		Lines:       lines,
	}
}

func TestPosting_NormalizeAndValidate(t *testing.T) {
	tests := []struct {
		name      string
		lines     []core.PostingLine
		expectErr error
	}{
		{
			name: "Happy path",
			lines: []core.PostingLine{
				core.Debit("Cash", money("200.00"), ""),
				core.Credit("Sales Revenue", money("200.00"), ""),
			},
		},
		{
			name: "Four lines sale",
			lines: []core.PostingLine{
				core.Debit("Cash", money("500.00"), ""),
				core.Credit("Sales Revenue", money("500.00"), ""),
				core.Debit("Cost of Goods Sold", money("212.50"), ""),
				core.Credit("Inventory", money("212.50"), ""),
			},
		},
		{
			name: "Zero lines are dropped leaving too few",
			lines: []core.PostingLine{
				core.Debit("Cash", decimal.Zero, ""),
				core.Credit("Sales Revenue", decimal.Zero, ""),
			},
			expectErr: core.ErrValidation,
		},
		{
			name: "Imbalanced",
			lines: []core.PostingLine{
				core.Debit("Cash", money("100.00"), ""),
				core.Credit("Sales Revenue", money("99.99"), ""),
			},
			expectErr: core.ErrImbalancedTransaction,
		},
		{
			name: "Negative amount",
			lines: []core.PostingLine{
				core.Debit("Cash", money("-10.00"), ""),
				core.Credit("Sales Revenue", money("-10.00"), ""),
			},
			expectErr: core.ErrValidation,
		},
		{
			name: "Both sides on one line",
			lines: []core.PostingLine{
				{Account: "Cash", Debit: money("10.00"), Credit: money("10.00")},
				core.Credit("Sales Revenue", money("10.00"), ""),
				core.Debit("Inventory", money("10.00"), ""),
			},
			expectErr: core.ErrValidation,
		},
		{
			name: "Sub-cent precision",
			lines: []core.PostingLine{
				core.Debit("Cash", money("10.005"), ""),
				core.Credit("Sales Revenue", money("10.005"), ""),
			},
			expectErr: core.ErrValidation,
		},
		{
			name: "Missing account",
			lines: []core.PostingLine{
				core.Debit("  ", money("10.00"), ""),
				core.Credit("Sales Revenue", money("10.00"), ""),
			},
			expectErr: core.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := basePosting(tt.lines...)
			p.Normalize()
			err := p.Validate()
			if tt.expectErr == nil {
				require.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.expectErr)
		})
	}
}

func TestPosting_NormalizeTruncatesDate(t *testing.T) {
	p := basePosting(core.Debit("Cash", money("1.00"), ""), core.Credit("Owner Equity", money("1.00"), ""))
	p.Normalize()
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), p.Date)
	assert.Equal(t, "test posting", p.Description)
}

func TestImbalanceError_CarriesTotals(t *testing.T) {
	p := basePosting(core.Debit("Cash", money("100.00"), ""), core.Credit("Sales Revenue", money("90.00"), ""))
	p.Normalize()

	var imb *core.ImbalanceError
	require.ErrorAs(t, p.Validate(), &imb)
	assert.Equal(t, "100.00", imb.Debits.StringFixed(2))
	assert.Equal(t, "90.00", imb.Credits.StringFixed(2))
}

// Random valid postings always pass and always balance to the cent.
func TestPosting_RandomBalancedTransactions(t *testing.T) {
	rng := core.NewSeededSource(2024)
	accounts := []string{"Cash", "Inventory", "Sales Revenue", "Cost of Goods Sold", "Accounts Payable"}

	for round := 0; round < 200; round++ {
		n := 1 + int(rng.Float64Range(0, 4))
		var lines []core.PostingLine
		total := decimal.Zero
		for i := 0; i < n; i++ {
			cents := 1 + int64(rng.Float64Range(0, 1_000_000))
			amt := decimal.New(cents, -2)
			total = total.Add(amt)
			lines = append(lines, core.Debit(accounts[i%len(accounts)], amt, ""))
		}
		lines = append(lines, core.Credit("Owner Equity", total, ""))

		p := basePosting(lines...)
		p.Normalize()
		require.NoError(t, p.Validate(), "round %d", round)
		assert.True(t, p.Total().Equal(total))
	}
}

func TestParseMoney(t *testing.T) {
	d, err := core.ParseMoney("price", " 12.50 ")
	require.NoError(t, err)
	assert.Equal(t, "12.50", core.FormatMoney(d))

	_, err = core.ParseMoney("price", "12.345")
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = core.ParseMoney("price", "twelve")
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = core.ParseMoney("price", "")
	assert.ErrorIs(t, err, core.ErrValidation)
}
