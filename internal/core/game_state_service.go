package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// GameStateService owns the per-(owner, business) simulation clock and player settings.
type GameStateService interface {
	// StartGame creates the game state and posts starting capital. Calling it again returns
	// the existing state unchanged.
	StartGame(ctx context.Context, ownerID, businessID int, startDate time.Time) (*GameState, error)
	GetGameState(ctx context.Context, ownerID, businessID int) (*GameState, error)
	// LockTx reads the game state with a row lock held until tx ends.
	LockTx(ctx context.Context, tx pgx.Tx, ownerID, businessID int) (*GameState, error)
	// SetCurrentDateTx moves the clock forward; moving it backward is ErrInvalidTransition.
	SetCurrentDateTx(ctx context.Context, tx pgx.Tx, ownerID, businessID int, date time.Time) error

	SetSellingPrice(ctx context.Context, ownerID, productID int, price decimal.Decimal) error
	// SellingPricesTx returns the owner's overrides keyed by product id.
	SellingPricesTx(ctx context.Context, tx pgx.Tx, ownerID, businessID int) (map[int]decimal.Decimal, error)
}

type gameStateService struct {
	pool    *pgxpool.Pool
	catalog CatalogProvider
	ledger  LedgerService
	logger  logrus.FieldLogger
}

func NewGameStateService(pool *pgxpool.Pool, catalog CatalogProvider, ledger LedgerService, logger logrus.FieldLogger) GameStateService {
	return &gameStateService{pool: pool, catalog: catalog, ledger: ledger, logger: logger}
}

func startingCapitalKey(ownerID, businessID int) string {
	return fmt.Sprintf("start:%d:%d", ownerID, businessID)
}

func (s *gameStateService) StartGame(ctx context.Context, ownerID, businessID int, startDate time.Time) (*GameState, error) {
	if ownerID <= 0 {
		return nil, invalid("owner_id", "must be positive")
	}
	if startDate.IsZero() {
		return nil, invalid("start_date", "is required")
	}
	startDate = Date(startDate)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	business, err := s.catalog.GetBusinessTx(ctx, tx, businessID)
	if err != nil {
		return nil, err
	}

	tag, err := tx.Exec(ctx, `
		INSERT INTO game_state (owner_id, business_id, sim_date, start_date)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (owner_id, business_id) DO NOTHING
	`, ownerID, businessID, startDate)
	if err != nil {
		return nil, fmt.Errorf("failed to create game state: %w", err)
	}

	if tag.RowsAffected() == 1 && business.StartingCash.IsPositive() {
		_, err := s.ledger.PostTx(ctx, tx, Posting{
			OwnerID:        ownerID,
			BusinessID:     businessID,
			Date:           startDate,
			Description:    "Starting capital",
			IdempotencyKey: startingCapitalKey(ownerID, businessID),
			Lines: []PostingLine{
				Debit(AccountCash, business.StartingCash, "Starting capital"),
				Credit(AccountOwnerEquity, business.StartingCash, "Owner investment"),
			},
		})
		if err != nil {
			return nil, err
		}
		s.logger.WithFields(logrus.Fields{
			"owner_id":    ownerID,
			"business_id": businessID,
			"start_date":  FormatDate(startDate),
			"capital":     FormatMoney(business.StartingCash),
		}).Info("game started")
	}

	gs, err := getGameState(ctx, tx, ownerID, businessID, false)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit game start: %w", err)
	}
	return gs, nil
}

func getGameState(ctx context.Context, q querier, ownerID, businessID int, forUpdate bool) (*GameState, error) {
	query := `
		SELECT owner_id, business_id, sim_date, start_date, created_at
		FROM game_state
		WHERE owner_id = $1 AND business_id = $2`
	if forUpdate {
		query += " FOR UPDATE"
	}

	gs := &GameState{}
	err := q.QueryRow(ctx, query, ownerID, businessID).
		Scan(&gs.OwnerID, &gs.BusinessID, &gs.CurrentDate, &gs.StartDate, &gs.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("owner %d business %d: %w", ownerID, businessID, ErrGameNotStarted)
		}
		return nil, fmt.Errorf("failed to read game state: %w", err)
	}
	return gs, nil
}

func (s *gameStateService) GetGameState(ctx context.Context, ownerID, businessID int) (*GameState, error) {
	return getGameState(ctx, s.pool, ownerID, businessID, false)
}

func (s *gameStateService) LockTx(ctx context.Context, tx pgx.Tx, ownerID, businessID int) (*GameState, error) {
	return getGameState(ctx, tx, ownerID, businessID, true)
}

func (s *gameStateService) SetCurrentDateTx(ctx context.Context, tx pgx.Tx, ownerID, businessID int, date time.Time) error {
	tag, err := tx.Exec(ctx, `
		UPDATE game_state SET sim_date = $3
		WHERE owner_id = $1 AND business_id = $2 AND sim_date <= $3
	`, ownerID, businessID, Date(date))
	if err != nil {
		return fmt.Errorf("failed to update current date: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("cannot move owner %d business %d to %s: %w",
			ownerID, businessID, FormatDate(date), ErrInvalidTransition)
	}
	return nil
}

func (s *gameStateService) SetSellingPrice(ctx context.Context, ownerID, productID int, price decimal.Decimal) error {
	if price.IsNegative() {
		return invalid("price", "cannot be negative, got %s", FormatMoney(price))
	}
	if !isCents(price) {
		return invalid("price", "%s has more than two decimal places", price)
	}
	if _, err := s.catalog.GetProduct(ctx, productID); err != nil {
		return err
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO selling_prices (owner_id, product_id, price, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (owner_id, product_id) DO UPDATE SET price = EXCLUDED.price, updated_at = NOW()
	`, ownerID, productID, price)
	if err != nil {
		return fmt.Errorf("failed to set selling price: %w", err)
	}
	return nil
}

func (s *gameStateService) SellingPricesTx(ctx context.Context, tx pgx.Tx, ownerID, businessID int) (map[int]decimal.Decimal, error) {
	rows, err := tx.Query(ctx, `
		SELECT sp.product_id, sp.price
		FROM selling_prices sp
		JOIN products p ON p.id = sp.product_id
		WHERE sp.owner_id = $1 AND p.business_id = $2
	`, ownerID, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to query selling prices: %w", err)
	}
	defer rows.Close()

	prices := make(map[int]decimal.Decimal)
	for rows.Next() {
		var id int
		var price decimal.Decimal
		if err := rows.Scan(&id, &price); err != nil {
			return nil, fmt.Errorf("failed to scan selling price: %w", err)
		}
		prices[id] = price
	}
	return prices, rows.Err()
}
