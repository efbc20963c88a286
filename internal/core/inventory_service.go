package core

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// InventoryService manages FIFO cost layers per owner and product.
type InventoryService interface {
	// Standalone reads.
	CurrentStock(ctx context.Context, ownerID, productID int) (int, error)
	GetLayers(ctx context.Context, ownerID, productID int) ([]InventoryLayer, error)
	GetStockLevels(ctx context.Context, ownerID, businessID int) ([]StockLevel, error)
	// InventoryValue is the cost of all remaining units across the business's products.
	InventoryValue(ctx context.Context, ownerID, businessID int) (decimal.Decimal, error)

	// TX-scoped operations: used by the day simulator so stock moves with the day's ledger rows.

	// ReceiveTx creates a new layer and returns its id.
	ReceiveTx(ctx context.Context, tx pgx.Tx, ownerID, productID, qty int, unitCost decimal.Decimal,
		receivedDate time.Time, sourcePO *int) (int, error)
	CurrentStockTx(ctx context.Context, tx pgx.Tx, ownerID, productID int) (int, error)
	// ConsumeTx takes qty units oldest layer first and returns the exact cost taken.
	// Fails with *InsufficientStockError if layers hold fewer than qty units; nothing is written then.
	ConsumeTx(ctx context.Context, tx pgx.Tx, ownerID, productID, qty int) (*Consumption, error)
	// RecordConsumptionTx writes the audit trail linking each take to the ledger transaction.
	RecordConsumptionTx(ctx context.Context, tx pgx.Tx, c *Consumption, date time.Time, transactionID string) error
}

type inventoryService struct {
	pool *pgxpool.Pool
}

func NewInventoryService(pool *pgxpool.Pool) InventoryService {
	return &inventoryService{pool: pool}
}

// ── Standalone operations ─────────────────────────────────────────────────────

const stockQuery = `
	SELECT COALESCE(SUM(quantity_remaining), 0)
	FROM inventory_layers
	WHERE owner_id = $1 AND product_id = $2`

func (s *inventoryService) CurrentStock(ctx context.Context, ownerID, productID int) (int, error) {
	var stock int
	if err := s.pool.QueryRow(ctx, stockQuery, ownerID, productID).Scan(&stock); err != nil {
		return 0, fmt.Errorf("failed to read stock for product %d: %w", productID, err)
	}
	return stock, nil
}

func (s *inventoryService) GetLayers(ctx context.Context, ownerID, productID int) ([]InventoryLayer, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, owner_id, product_id, quantity_received, quantity_remaining, unit_cost,
		       received_date, source_purchase_order
		FROM inventory_layers
		WHERE owner_id = $1 AND product_id = $2
		ORDER BY received_date, id
	`, ownerID, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to query layers: %w", err)
	}
	return scanLayers(rows)
}

func scanLayers(rows pgx.Rows) ([]InventoryLayer, error) {
	defer rows.Close()
	var layers []InventoryLayer
	for rows.Next() {
		var l InventoryLayer
		if err := rows.Scan(&l.ID, &l.OwnerID, &l.ProductID, &l.QuantityReceived, &l.QuantityRemaining,
			&l.UnitCost, &l.ReceivedDate, &l.SourcePurchaseOrder); err != nil {
			return nil, fmt.Errorf("failed to scan layer: %w", err)
		}
		layers = append(layers, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating layers: %w", err)
	}
	return layers, nil
}

func (s *inventoryService) GetStockLevels(ctx context.Context, ownerID, businessID int) ([]StockLevel, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT l.product_id,
		       SUM(l.quantity_remaining),
		       SUM(l.quantity_remaining * l.unit_cost)
		FROM inventory_layers l
		JOIN products p ON p.id = l.product_id
		WHERE l.owner_id = $1 AND p.business_id = $2
		GROUP BY l.product_id
		ORDER BY l.product_id
	`, ownerID, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock levels: %w", err)
	}
	defer rows.Close()

	var levels []StockLevel
	for rows.Next() {
		var sl StockLevel
		if err := rows.Scan(&sl.ProductID, &sl.OnHand, &sl.Value); err != nil {
			return nil, fmt.Errorf("failed to scan stock level: %w", err)
		}
		levels = append(levels, sl)
	}
	return levels, rows.Err()
}

func (s *inventoryService) InventoryValue(ctx context.Context, ownerID, businessID int) (decimal.Decimal, error) {
	var value decimal.Decimal
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(l.quantity_remaining * l.unit_cost), 0)
		FROM inventory_layers l
		JOIN products p ON p.id = l.product_id
		WHERE l.owner_id = $1 AND p.business_id = $2
	`, ownerID, businessID).Scan(&value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to compute inventory value: %w", err)
	}
	return RoundMoney(value), nil
}

// ── TX-scoped operations ──────────────────────────────────────────────────────

func (s *inventoryService) ReceiveTx(ctx context.Context, tx pgx.Tx, ownerID, productID, qty int,
	unitCost decimal.Decimal, receivedDate time.Time, sourcePO *int) (int, error) {

	if qty <= 0 {
		return 0, invalid("quantity", "receive quantity must be positive, got %d", qty)
	}
	if unitCost.IsNegative() {
		return 0, invalid("unit_cost", "cannot be negative, got %s", unitCost)
	}

	var layerID int
	err := tx.QueryRow(ctx, `
		INSERT INTO inventory_layers (owner_id, product_id, quantity_received, quantity_remaining,
		                              unit_cost, received_date, source_purchase_order)
		VALUES ($1, $2, $3, $3, $4, $5, $6)
		RETURNING id
	`, ownerID, productID, qty, unitCost, Date(receivedDate), sourcePO).Scan(&layerID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert inventory layer: %w", err)
	}
	return layerID, nil
}

func (s *inventoryService) CurrentStockTx(ctx context.Context, tx pgx.Tx, ownerID, productID int) (int, error) {
	var stock int
	if err := tx.QueryRow(ctx, stockQuery, ownerID, productID).Scan(&stock); err != nil {
		return 0, fmt.Errorf("failed to read stock for product %d: %w", productID, err)
	}
	return stock, nil
}

func (s *inventoryService) ConsumeTx(ctx context.Context, tx pgx.Tx, ownerID, productID, qty int) (*Consumption, error) {
	// Lock open layers so the plan and the decrements see the same quantities.
	rows, err := tx.Query(ctx, `
		SELECT id, owner_id, product_id, quantity_received, quantity_remaining, unit_cost,
		       received_date, source_purchase_order
		FROM inventory_layers
		WHERE owner_id = $1 AND product_id = $2 AND quantity_remaining > 0
		ORDER BY received_date, id
		FOR UPDATE
	`, ownerID, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock layers for product %d: %w", productID, err)
	}
	layers, err := scanLayers(rows)
	if err != nil {
		return nil, err
	}

	c, err := PlanConsumption(ownerID, productID, layers, qty)
	if err != nil {
		return nil, err
	}

	for _, take := range c.Takes {
		tag, err := tx.Exec(ctx, `
			UPDATE inventory_layers
			SET quantity_remaining = quantity_remaining - $1
			WHERE id = $2 AND quantity_remaining >= $1
		`, take.Quantity, take.LayerID)
		if err != nil {
			return nil, fmt.Errorf("failed to decrement layer %d: %w", take.LayerID, err)
		}
		if tag.RowsAffected() != 1 {
			return nil, fmt.Errorf("layer %d changed during consumption: %w", take.LayerID, ErrInsufficientStock)
		}
	}
	return c, nil
}

func (s *inventoryService) RecordConsumptionTx(ctx context.Context, tx pgx.Tx, c *Consumption, date time.Time, transactionID string) error {
	var txn *string
	if transactionID != "" {
		txn = &transactionID
	}
	for _, take := range c.Takes {
		_, err := tx.Exec(ctx, `
			INSERT INTO inventory_consumptions (layer_id, quantity, unit_cost, consumed_date, transaction_id)
			VALUES ($1, $2, $3, $4, $5)
		`, take.LayerID, take.Quantity, take.UnitCost, Date(date), txn)
		if err != nil {
			return fmt.Errorf("failed to record consumption of layer %d: %w", take.LayerID, err)
		}
	}
	return nil
}
