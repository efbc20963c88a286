package core_test

import (
	"testing"
	"time"

	"harvest-engine/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ymd(y int, m time.Month, day int) time.Time { return time.Date(y, m, day, 0, 0, 0, 0, time.UTC) }

func TestRecurring_MonthlyClampsToMonthEnd(t *testing.T) {
	r := core.RecurringCharge{Frequency: core.FrequencyMonthly, DueDay: 31}

	assert.True(t, r.IsScheduled(ymd(2026, 1, 31)))
	assert.True(t, r.IsScheduled(ymd(2026, 2, 28)))
	assert.True(t, r.IsScheduled(ymd(2028, 2, 29)))
	assert.False(t, r.IsScheduled(ymd(2028, 2, 28)))
	assert.True(t, r.IsScheduled(ymd(2026, 4, 30)))
	assert.False(t, r.IsScheduled(ymd(2026, 4, 29)))
}

func TestRecurring_WeeklyAndBiWeekly(t *testing.T) {
	weekly := core.RecurringCharge{Frequency: core.FrequencyWeekly, DueDay: 1}
	monday := ymd(2026, 3, 2)
	assert.True(t, weekly.IsScheduled(monday))
	assert.False(t, weekly.IsScheduled(monday.AddDate(0, 0, 1)))
	assert.True(t, weekly.IsScheduled(monday.AddDate(0, 0, 7)))

	bi := core.RecurringCharge{Frequency: core.FrequencyBiWeekly, DueDay: 1}
	count := 0
	for i := 0; i < 28; i++ {
		if bi.IsScheduled(monday.AddDate(0, 0, i)) {
			count++
		}
	}
	assert.Equal(t, 2, count, "two due days in four weeks")
	assert.NotEqual(t, bi.IsScheduled(monday), bi.IsScheduled(monday.AddDate(0, 0, 7)))
}

func TestRecurring_QuarterlyAndYearly(t *testing.T) {
	q := core.RecurringCharge{Frequency: core.FrequencyQuarterly, DueDay: 1}
	assert.True(t, q.IsScheduled(ymd(2026, 1, 1)))
	assert.True(t, q.IsScheduled(ymd(2026, 4, 1)))
	assert.True(t, q.IsScheduled(ymd(2026, 10, 1)))
	assert.False(t, q.IsScheduled(ymd(2026, 5, 1)))
	assert.Equal(t, "2026-Q2", q.PeriodKey(ymd(2026, 5, 17)))

	y := core.RecurringCharge{Frequency: core.FrequencyYearly, DueDay: 15}
	assert.True(t, y.IsScheduled(ymd(2027, 1, 15)))
	assert.False(t, y.IsScheduled(ymd(2027, 2, 15)))
}

func TestRecurring_DueOncePerPeriod(t *testing.T) {
	r := core.RecurringCharge{Frequency: core.FrequencyMonthly, DueDay: 1}
	first := ymd(2026, 6, 1)
	require.True(t, r.DueOn(first))

	r.LastProcessedDate = &first
	assert.False(t, r.DueOn(first), "same day re-run")
	assert.True(t, r.DueOn(ymd(2026, 7, 1)))

	daily := core.RecurringCharge{Frequency: core.FrequencyDaily}
	daily.LastProcessedDate = &first
	assert.False(t, daily.DueOn(first))
	assert.True(t, daily.DueOn(first.AddDate(0, 0, 1)))
}

func TestRecurring_PostingSides(t *testing.T) {
	expense := core.RecurringCharge{
		ID: 3, OwnerID: 1, BusinessID: 1, Kind: core.RecurringExpense,
		Description: "Rent", Amount: money("1200.00"), Frequency: core.FrequencyMonthly, DueDay: 1,
	}
	p := expense.Posting(ymd(2026, 6, 1))
	require.Len(t, p.Lines, 2)
	assert.Equal(t, "Operating Expenses", p.Lines[0].Account)
	assert.True(t, p.Lines[0].Debit.Equal(money("1200.00")))
	assert.Equal(t, "Cash", p.Lines[1].Account)
	assert.Equal(t, "recurring:3:2026-06", p.IdempotencyKey)

	acct := "Consulting Income"
	income := expense
	income.Kind = core.RecurringIncome
	income.AccountName = &acct
	p = income.Posting(ymd(2026, 6, 1))
	assert.Equal(t, "Cash", p.Lines[0].Account)
	assert.Equal(t, "Consulting Income", p.Lines[1].Account)
	assert.True(t, p.Lines[1].Credit.Equal(money("1200.00")))

	p.Normalize()
	assert.NoError(t, p.Validate())
}

func TestRecurring_Validate(t *testing.T) {
	ok := core.RecurringCharge{
		Kind: core.RecurringExpense, Description: "Internet", Amount: money("60.00"),
		Frequency: core.FrequencyWeekly, DueDay: 5,
	}
	require.NoError(t, ok.Validate())

	bad := ok
	bad.DueDay = 8
	assert.ErrorIs(t, bad.Validate(), core.ErrValidation)

	bad = ok
	bad.Frequency = "HOURLY"
	assert.ErrorIs(t, bad.Validate(), core.ErrValidation)

	bad = ok
	bad.Amount = money("0.00")
	assert.ErrorIs(t, bad.Validate(), core.ErrValidation)
}
