package core

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// RecurringService schedules recurring expenses and income.
type RecurringService interface {
	CreateRecurring(ctx context.Context, r RecurringCharge) (*RecurringCharge, error)
	ListRecurring(ctx context.Context, ownerID, businessID int) ([]RecurringCharge, error)
	// ProcessDueTx applies every charge due on date. last_processed_date and the posting's
	// idempotency key both guard against applying a charge twice in one period.
	ProcessDueTx(ctx context.Context, tx pgx.Tx, ownerID, businessID int, date time.Time) ([]RecurringApplication, []CashShortfall, error)
}

type recurringService struct {
	pool   *pgxpool.Pool
	ledger LedgerService
	logger logrus.FieldLogger
}

func NewRecurringService(pool *pgxpool.Pool, ledger LedgerService, logger logrus.FieldLogger) RecurringService {
	return &recurringService{pool: pool, ledger: ledger, logger: logger}
}

func (s *recurringService) CreateRecurring(ctx context.Context, r RecurringCharge) (*RecurringCharge, error) {
	if r.Frequency == FrequencyDaily && r.DueDay == 0 {
		r.DueDay = 1
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}

	err := s.pool.QueryRow(ctx, `
		INSERT INTO recurring_charges (owner_id, business_id, kind, description, amount, frequency,
		                               due_day, account_name, category_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		r.OwnerID, r.BusinessID, r.Kind, r.Description, r.Amount, r.Frequency,
		r.DueDay, r.AccountName, r.CategoryID,
	).Scan(&r.ID)
	if err != nil {
		return nil, fmt.Errorf("create recurring charge: %w", err)
	}
	return &r, nil
}

const recurringColumns = `id, owner_id, business_id, kind, description, amount, frequency, due_day,
	account_name, category_id, last_processed_date`

func scanRecurring(rows pgx.Rows) ([]RecurringCharge, error) {
	defer rows.Close()
	var out []RecurringCharge
	for rows.Next() {
		var r RecurringCharge
		if err := rows.Scan(&r.ID, &r.OwnerID, &r.BusinessID, &r.Kind, &r.Description, &r.Amount,
			&r.Frequency, &r.DueDay, &r.AccountName, &r.CategoryID, &r.LastProcessedDate); err != nil {
			return nil, fmt.Errorf("scan recurring charge: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *recurringService) ListRecurring(ctx context.Context, ownerID, businessID int) ([]RecurringCharge, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+recurringColumns+`
		FROM recurring_charges
		WHERE owner_id = $1 AND business_id = $2
		ORDER BY id`, ownerID, businessID)
	if err != nil {
		return nil, fmt.Errorf("list recurring charges: %w", err)
	}
	return scanRecurring(rows)
}

func (s *recurringService) ProcessDueTx(ctx context.Context, tx pgx.Tx, ownerID, businessID int, date time.Time) ([]RecurringApplication, []CashShortfall, error) {
	date = Date(date)
	rows, err := tx.Query(ctx, "SELECT "+recurringColumns+`
		FROM recurring_charges
		WHERE owner_id = $1 AND business_id = $2
		ORDER BY id
		FOR UPDATE`, ownerID, businessID)
	if err != nil {
		return nil, nil, fmt.Errorf("lock recurring charges: %w", err)
	}
	charges, err := scanRecurring(rows)
	if err != nil {
		return nil, nil, err
	}

	var (
		applied    []RecurringApplication
		shortfalls []CashShortfall
	)
	for _, r := range charges {
		if !r.DueOn(date) {
			continue
		}
		p := r.Posting(date)
		done, err := s.ledger.HasPostingTx(ctx, tx, p.IdempotencyKey)
		if err != nil {
			return nil, nil, err
		}
		if !done {
			if r.Kind == RecurringExpense {
				sf, err := checkCashTx(ctx, tx, s.ledger, s.logger, ownerID, businessID, date,
					ShortfallRecurring, "RC-"+strconv.Itoa(r.ID), r.Amount)
				if err != nil {
					return nil, nil, err
				}
				if sf != nil {
					shortfalls = append(shortfalls, *sf)
				}
			}

			txnID, err := s.ledger.PostTx(ctx, tx, p)
			if err != nil {
				return nil, nil, fmt.Errorf("apply recurring charge %d: %w", r.ID, err)
			}
			applied = append(applied, RecurringApplication{
				ChargeID:      r.ID,
				Kind:          r.Kind,
				Description:   r.Description,
				Amount:        r.Amount,
				Period:        r.PeriodKey(date),
				TransactionID: txnID,
			})
		}

		if _, err := tx.Exec(ctx,
			"UPDATE recurring_charges SET last_processed_date = $1 WHERE id = $2", date, r.ID,
		); err != nil {
			return nil, nil, fmt.Errorf("stamp recurring charge %d: %w", r.ID, err)
		}
	}
	return applied, shortfalls, nil
}
