package core

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ── Report types ──────────────────────────────────────────────────────────────

// DailySales is one product's sales on one simulated day. The row is a derived cache of
// the ledger and the consumption audit, and may be rebuilt from them at any time.
type DailySales struct {
	OwnerID         int             `json:"owner_id"`
	BusinessID      int             `json:"business_id"`
	ProductID       int             `json:"product_id"`
	Date            time.Time       `json:"date"`
	UnitsSold       int             `json:"units_sold"`
	Revenue         decimal.Decimal `json:"revenue"`
	CostOfGoodsSold decimal.Decimal `json:"cost_of_goods_sold"`
}

// GrossProfit is revenue less cost of goods sold.
func (d DailySales) GrossProfit() decimal.Decimal {
	return d.Revenue.Sub(d.CostOfGoodsSold)
}

// StatementLine is a single ledger line in an account statement.
// RunningBalance is the cumulative net-debit position after this line
// (positive = net debit, negative = net credit).
type StatementLine struct {
	Date           time.Time
	TransactionID  string
	Description    string
	Debit          decimal.Decimal
	Credit         decimal.Decimal
	RunningBalance decimal.Decimal
}

// ── Interface ─────────────────────────────────────────────────────────────────

// SummaryService maintains the daily sales cache and answers read-side queries over it
// and over the ledger.
type SummaryService interface {
	// UpsertTx writes or overwrites the (owner, product, date) summary row.
	UpsertTx(ctx context.Context, tx pgx.Tx, row DailySales) error

	// SalesSummary returns summary rows for the inclusive date range, ordered by date then product.
	SalesSummary(ctx context.Context, ownerID, businessID int, from, to time.Time) ([]DailySales, error)

	// RebuildTx recomputes the summary rows in range from consumption history and sale postings.
	RebuildTx(ctx context.Context, tx pgx.Tx, ownerID, businessID int, from, to time.Time) (int64, error)

	// AccountStatement returns one account's ledger lines in range with a running balance
	// that starts from the balance carried in before from.
	AccountStatement(ctx context.Context, ownerID, businessID int, account string, from, to time.Time) ([]StatementLine, error)

	// CashShortfalls lists the recorded payment shortfalls in range.
	CashShortfalls(ctx context.Context, ownerID, businessID int, from, to time.Time) ([]CashShortfall, error)
}

// ── Implementation ────────────────────────────────────────────────────────────

type summaryService struct {
	pool *pgxpool.Pool
}

// NewSummaryService constructs a SummaryService backed by the given pool.
func NewSummaryService(pool *pgxpool.Pool) SummaryService {
	return &summaryService{pool: pool}
}

const upsertSummarySQL = `
	INSERT INTO daily_sales_summary (owner_id, business_id, product_id, sale_date, units_sold, revenue, cost_of_goods_sold)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (owner_id, product_id, sale_date) DO UPDATE
	SET units_sold         = EXCLUDED.units_sold,
	    revenue            = EXCLUDED.revenue,
	    cost_of_goods_sold = EXCLUDED.cost_of_goods_sold`

func (s *summaryService) UpsertTx(ctx context.Context, tx pgx.Tx, row DailySales) error {
	if row.UnitsSold < 0 {
		return invalid("units_sold", "must not be negative, got %d", row.UnitsSold)
	}
	_, err := tx.Exec(ctx, upsertSummarySQL,
		row.OwnerID, row.BusinessID, row.ProductID, Date(row.Date),
		row.UnitsSold, row.Revenue.StringFixed(2), row.CostOfGoodsSold.StringFixed(2))
	if err != nil {
		return fmt.Errorf("failed to write sales summary for product %d: %w", row.ProductID, err)
	}
	return nil
}

func (s *summaryService) SalesSummary(ctx context.Context, ownerID, businessID int, from, to time.Time) ([]DailySales, error) {
	if Date(to).Before(Date(from)) {
		return nil, invalid("to", "must not be before from")
	}
	rows, err := s.pool.Query(ctx, `
		SELECT owner_id, business_id, product_id, sale_date, units_sold, revenue, cost_of_goods_sold
		FROM daily_sales_summary
		WHERE owner_id = $1 AND business_id = $2 AND sale_date BETWEEN $3 AND $4
		ORDER BY sale_date, product_id`,
		ownerID, businessID, Date(from), Date(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query sales summary: %w", err)
	}
	defer rows.Close()

	var out []DailySales
	for rows.Next() {
		var d DailySales
		if err := rows.Scan(&d.OwnerID, &d.BusinessID, &d.ProductID, &d.Date,
			&d.UnitsSold, &d.Revenue, &d.CostOfGoodsSold); err != nil {
			return nil, fmt.Errorf("failed to scan sales summary row: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sales summary row iteration error: %w", err)
	}
	return out, nil
}

// rebuildSQL aggregates one row per (product, day) from the sale transactions that consumed
// stock. Each sale transaction covers a single product.
const rebuildSQL = `
	WITH sold AS (
	    SELECT ic.transaction_id, l.product_id, SUM(ic.quantity) AS units
	    FROM inventory_consumptions ic
	    JOIN inventory_layers l ON l.id = ic.layer_id
	    JOIN products p         ON p.id = l.product_id
	    WHERE l.owner_id = $1 AND p.business_id = $2
	      AND ic.consumed_date BETWEEN $3 AND $4
	    GROUP BY ic.transaction_id, l.product_id
	)
	SELECT s.product_id, t.simulated_date,
	       SUM(s.units)::int,
	       COALESCE(SUM(m.revenue), 0),
	       COALESCE(SUM(m.cogs), 0)
	FROM sold s
	JOIN ledger_transactions t ON t.transaction_id = s.transaction_id
	LEFT JOIN LATERAL (
	    SELECT SUM(CASE WHEN e.account_name = $5 THEN e.credit_amount ELSE 0 END) AS revenue,
	           SUM(CASE WHEN e.account_name = $6 THEN e.debit_amount  ELSE 0 END) AS cogs
	    FROM ledger_entries e
	    WHERE e.transaction_id = s.transaction_id
	) m ON TRUE
	GROUP BY s.product_id, t.simulated_date`

func (s *summaryService) RebuildTx(ctx context.Context, tx pgx.Tx, ownerID, businessID int, from, to time.Time) (int64, error) {
	from, to = Date(from), Date(to)
	if to.Before(from) {
		return 0, invalid("to", "must not be before from")
	}

	if _, err := tx.Exec(ctx, `
		UPDATE daily_sales_summary
		SET units_sold = 0, revenue = 0, cost_of_goods_sold = 0
		WHERE owner_id = $1 AND business_id = $2 AND sale_date BETWEEN $3 AND $4`,
		ownerID, businessID, from, to,
	); err != nil {
		return 0, fmt.Errorf("failed to reset sales summary: %w", err)
	}

	rows, err := tx.Query(ctx, rebuildSQL, ownerID, businessID, from, to, AccountSalesRevenue, AccountCOGS)
	if err != nil {
		return 0, fmt.Errorf("failed to aggregate sales history: %w", err)
	}
	var rebuilt []DailySales
	for rows.Next() {
		d := DailySales{OwnerID: ownerID, BusinessID: businessID}
		if err := rows.Scan(&d.ProductID, &d.Date, &d.UnitsSold, &d.Revenue, &d.CostOfGoodsSold); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan sales history row: %w", err)
		}
		rebuilt = append(rebuilt, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("sales history row iteration error: %w", err)
	}

	for _, d := range rebuilt {
		if err := s.UpsertTx(ctx, tx, d); err != nil {
			return 0, err
		}
	}
	return int64(len(rebuilt)), nil
}

func (s *summaryService) AccountStatement(ctx context.Context, ownerID, businessID int, account string, from, to time.Time) ([]StatementLine, error) {
	from, to = Date(from), Date(to)

	var running decimal.Decimal
	if err := s.pool.QueryRow(ctx, balanceQuery,
		ownerID, businessID, account, from.AddDate(0, 0, -1),
	).Scan(&running); err != nil {
		return nil, fmt.Errorf("failed to compute opening balance: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT simulated_date, transaction_id, description, debit_amount, credit_amount
		FROM ledger_entries
		WHERE owner_id = $1 AND business_id = $2 AND account_name = $3
		  AND simulated_date BETWEEN $4 AND $5
		ORDER BY simulated_date, id`,
		ownerID, businessID, account, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query account statement: %w", err)
	}
	defer rows.Close()

	var lines []StatementLine
	for rows.Next() {
		var sl StatementLine
		if err := rows.Scan(&sl.Date, &sl.TransactionID, &sl.Description, &sl.Debit, &sl.Credit); err != nil {
			return nil, fmt.Errorf("failed to scan statement line: %w", err)
		}
		running = running.Add(sl.Debit).Sub(sl.Credit)
		sl.RunningBalance = running
		lines = append(lines, sl)
	}
	return lines, rows.Err()
}

func (s *summaryService) CashShortfalls(ctx context.Context, ownerID, businessID int, from, to time.Time) ([]CashShortfall, error) {
	return listShortfalls(ctx, s.pool, ownerID, businessID, from, to)
}
