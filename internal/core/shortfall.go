package core

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// checkCashTx compares amount with the cash balance as of date. When cash cannot cover it,
// the shortfall is persisted and returned; the payment still goes ahead and cash goes negative.
func checkCashTx(ctx context.Context, tx pgx.Tx, ledger LedgerService, logger logrus.FieldLogger,
	ownerID, businessID int, date time.Time, kind, reference string, amount decimal.Decimal) (*CashShortfall, error) {

	cash, err := ledger.BalanceAsOfTx(ctx, tx, ownerID, businessID, AccountCash, date)
	if err != nil {
		return nil, err
	}
	if cash.GreaterThanOrEqual(amount) {
		return nil, nil
	}

	sf := &CashShortfall{
		OwnerID:       ownerID,
		BusinessID:    businessID,
		Date:          Date(date),
		Kind:          kind,
		Reference:     reference,
		AmountDue:     amount,
		CashAvailable: cash,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO cash_shortfalls (owner_id, business_id, simulated_date, kind, reference, amount_due, cash_available)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, ownerID, businessID, sf.Date, kind, reference, amount, cash).Scan(&sf.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to record cash shortfall: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"owner_id":       ownerID,
		"business_id":    businessID,
		"date":           FormatDate(date),
		"kind":           kind,
		"reference":      reference,
		"amount_due":     FormatMoney(amount),
		"cash_available": FormatMoney(cash),
	}).Warn("payment exceeds available cash")
	return sf, nil
}

func listShortfalls(ctx context.Context, q querier, ownerID, businessID int, from, to time.Time) ([]CashShortfall, error) {
	rows, err := q.Query(ctx, `
		SELECT id, owner_id, business_id, simulated_date, kind, reference, amount_due, cash_available
		FROM cash_shortfalls
		WHERE owner_id = $1 AND business_id = $2 AND simulated_date BETWEEN $3 AND $4
		ORDER BY simulated_date, id
	`, ownerID, businessID, Date(from), Date(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query cash shortfalls: %w", err)
	}
	defer rows.Close()

	var out []CashShortfall
	for rows.Next() {
		var sf CashShortfall
		if err := rows.Scan(&sf.ID, &sf.OwnerID, &sf.BusinessID, &sf.Date, &sf.Kind, &sf.Reference,
			&sf.AmountDue, &sf.CashAvailable); err != nil {
			return nil, fmt.Errorf("failed to scan cash shortfall: %w", err)
		}
		out = append(out, sf)
	}
	return out, rows.Err()
}
