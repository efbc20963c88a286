package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type LedgerService interface {
	Post(ctx context.Context, p Posting) (string, error)
	// PostTx appends p inside the caller's transaction so it commits or rolls back with the day.
	PostTx(ctx context.Context, tx pgx.Tx, p Posting) (string, error)
	// HasPostingTx reports whether a transaction with this idempotency key already exists.
	HasPostingTx(ctx context.Context, tx pgx.Tx, idempotencyKey string) (bool, error)
	Reverse(ctx context.Context, transactionID, reason string) (string, error)
	GetTransaction(ctx context.Context, transactionID string) (*LedgerTransaction, error)
	ListEntries(ctx context.Context, ownerID, businessID int, from, to time.Time) ([]LedgerEntry, error)
	// BalanceAsOf returns debits minus credits for account up to and including asOf.
	BalanceAsOf(ctx context.Context, ownerID, businessID int, account string, asOf time.Time) (decimal.Decimal, error)
	BalanceAsOfTx(ctx context.Context, tx pgx.Tx, ownerID, businessID int, account string, asOf time.Time) (decimal.Decimal, error)
}

type Ledger struct {
	pool   *pgxpool.Pool
	logger logrus.FieldLogger
}

func NewLedger(pool *pgxpool.Pool, logger logrus.FieldLogger) *Ledger {
	return &Ledger{pool: pool, logger: logger}
}

func NewTransactionID() string {
	return "TXN-" + uuid.NewString()
}

func (l *Ledger) Post(ctx context.Context, p Posting) (string, error) {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	id, err := l.PostTx(ctx, tx, p)
	if err != nil {
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}
	return id, nil
}

func (l *Ledger) PostTx(ctx context.Context, tx pgx.Tx, p Posting) (string, error) {
	p.Normalize()
	if err := p.Validate(); err != nil {
		return "", fmt.Errorf("posting %q rejected: %w", p.Description, err)
	}
	return l.insertTx(ctx, tx, p, nil)
}

// insertTx writes the header and lines without validation. Reversals come through here
// with negated amounts; every other caller goes through PostTx.
func (l *Ledger) insertTx(ctx context.Context, tx pgx.Tx, p Posting, reversalOf *string) (string, error) {
	txnID := NewTransactionID()
	var key *string
	if p.IdempotencyKey != "" {
		key = &p.IdempotencyKey
	}
	isReversal := reversalOf != nil

	var inserted string
	err := tx.QueryRow(ctx, `
		INSERT INTO ledger_transactions (transaction_id, owner_id, business_id, simulated_date, description,
		                                 idempotency_key, is_reversal, reversal_of)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (idempotency_key) DO NOTHING
		RETURNING transaction_id
	`, txnID, p.OwnerID, p.BusinessID, p.Date, p.Description, key, isReversal, reversalOf).Scan(&inserted)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("%w: idempotency key %s already exists", ErrDuplicatePosting, p.IdempotencyKey)
		}
		return "", fmt.Errorf("failed to insert ledger transaction: %w", err)
	}

	for i, line := range p.Lines {
		_, err := tx.Exec(ctx, `
			INSERT INTO ledger_entries (transaction_id, line_number, owner_id, business_id, simulated_date,
			                            account_name, debit_amount, credit_amount, description, category_id,
			                            is_reversal, reversal_of)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`, txnID, i+1, p.OwnerID, p.BusinessID, p.Date, line.Account,
			line.Debit.StringFixed(2), line.Credit.StringFixed(2), line.Description, line.CategoryID,
			isReversal, reversalOf)
		if err != nil {
			return "", fmt.Errorf("failed to insert ledger line %d: %w", i+1, err)
		}
	}

	l.logger.WithFields(logrus.Fields{
		"transaction_id": txnID,
		"owner_id":       p.OwnerID,
		"business_id":    p.BusinessID,
		"date":           FormatDate(p.Date),
		"lines":          len(p.Lines),
	}).Debug(p.Description)

	return txnID, nil
}

func (l *Ledger) HasPostingTx(ctx context.Context, tx pgx.Tx, idempotencyKey string) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM ledger_transactions WHERE idempotency_key = $1)",
		idempotencyKey,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check idempotency key %s: %w", idempotencyKey, err)
	}
	return exists, nil
}

// Reverse posts a mirror of transactionID with negated amounts on the original date.
// A transaction can be reversed once; reversals cannot themselves be reversed.
func (l *Ledger) Reverse(ctx context.Context, transactionID, reason string) (string, error) {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		p          Posting
		isReversal bool
	)
	err = tx.QueryRow(ctx, `
		SELECT owner_id, business_id, simulated_date, description, is_reversal
		FROM ledger_transactions WHERE transaction_id = $1
		FOR UPDATE
	`, transactionID).Scan(&p.OwnerID, &p.BusinessID, &p.Date, &p.Description, &isReversal)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("transaction %s: %w", transactionID, ErrNotFound)
		}
		return "", fmt.Errorf("failed to fetch transaction %s: %w", transactionID, err)
	}
	if isReversal {
		return "", invalid("transaction_id", "%s is itself a reversal", transactionID)
	}

	var already bool
	if err := tx.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM ledger_transactions WHERE reversal_of = $1)", transactionID,
	).Scan(&already); err != nil {
		return "", fmt.Errorf("failed to check reversal status: %w", err)
	}
	if already {
		return "", fmt.Errorf("transaction %s: %w", transactionID, ErrAlreadyReversed)
	}

	entries, err := l.entriesTx(ctx, tx, transactionID)
	if err != nil {
		return "", err
	}

	p.Description = fmt.Sprintf("Reversal of %s: %s (%s)", transactionID, p.Description, reason)
	p.Lines = mirrorLines(entries)

	newID, err := l.insertTx(ctx, tx, p, &transactionID)
	if err != nil {
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit reversal: %w", err)
	}
	return newID, nil
}

func (l *Ledger) GetTransaction(ctx context.Context, transactionID string) (*LedgerTransaction, error) {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var t LedgerTransaction
	err = tx.QueryRow(ctx, `
		SELECT transaction_id, owner_id, business_id, simulated_date, description,
		       idempotency_key, is_reversal, reversal_of, created_at
		FROM ledger_transactions WHERE transaction_id = $1
	`, transactionID).Scan(&t.TransactionID, &t.OwnerID, &t.BusinessID, &t.SimulatedDate, &t.Description,
		&t.IdempotencyKey, &t.IsReversal, &t.ReversalOf, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("transaction %s: %w", transactionID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch transaction %s: %w", transactionID, err)
	}

	t.Entries, err = l.entriesTx(ctx, tx, transactionID)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

const entryColumns = `id, transaction_id, line_number, owner_id, business_id, simulated_date, account_name,
	debit_amount, credit_amount, description, category_id, is_reversal, reversal_of`

func scanEntries(rows pgx.Rows) ([]LedgerEntry, error) {
	defer rows.Close()
	var entries []LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		if err := rows.Scan(&e.ID, &e.TransactionID, &e.LineNumber, &e.OwnerID, &e.BusinessID, &e.SimulatedDate,
			&e.AccountName, &e.DebitAmount, &e.CreditAmount, &e.Description, &e.CategoryID,
			&e.IsReversal, &e.ReversalOf); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger entries: %w", err)
	}
	return entries, nil
}

func (l *Ledger) entriesTx(ctx context.Context, tx pgx.Tx, transactionID string) ([]LedgerEntry, error) {
	rows, err := tx.Query(ctx,
		"SELECT "+entryColumns+" FROM ledger_entries WHERE transaction_id = $1 ORDER BY line_number",
		transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch lines for %s: %w", transactionID, err)
	}
	return scanEntries(rows)
}

func (l *Ledger) ListEntries(ctx context.Context, ownerID, businessID int, from, to time.Time) ([]LedgerEntry, error) {
	rows, err := l.pool.Query(ctx, "SELECT "+entryColumns+`
		FROM ledger_entries
		WHERE owner_id = $1 AND business_id = $2 AND simulated_date BETWEEN $3 AND $4
		ORDER BY simulated_date, id
	`, ownerID, businessID, Date(from), Date(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger entries: %w", err)
	}
	return scanEntries(rows)
}

const balanceQuery = `
	SELECT COALESCE(SUM(debit_amount), 0) - COALESCE(SUM(credit_amount), 0)
	FROM ledger_entries
	WHERE owner_id = $1 AND business_id = $2 AND account_name = $3 AND simulated_date <= $4
`

func (l *Ledger) BalanceAsOf(ctx context.Context, ownerID, businessID int, account string, asOf time.Time) (decimal.Decimal, error) {
	var balance decimal.Decimal
	if err := l.pool.QueryRow(ctx, balanceQuery, ownerID, businessID, account, Date(asOf)).Scan(&balance); err != nil {
		return decimal.Zero, fmt.Errorf("failed to compute %s balance: %w", account, err)
	}
	return balance, nil
}

func (l *Ledger) BalanceAsOfTx(ctx context.Context, tx pgx.Tx, ownerID, businessID int, account string, asOf time.Time) (decimal.Decimal, error) {
	var balance decimal.Decimal
	if err := tx.QueryRow(ctx, balanceQuery, ownerID, businessID, account, Date(asOf)).Scan(&balance); err != nil {
		return decimal.Zero, fmt.Errorf("failed to compute %s balance: %w", account, err)
	}
	return balance, nil
}
