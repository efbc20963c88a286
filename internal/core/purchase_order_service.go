package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// PurchaseOrderService provides the purchase order and accounts payable lifecycle.
// Cash never moves at order time: delivery creates the payable, the due date pays it.
type PurchaseOrderService interface {
	// PlaceOrder validates and prices the request, then persists an IN_TRANSIT order dated
	// on the current game date. Validation failures leave no rows behind.
	PlaceOrder(ctx context.Context, req OrderRequest) (*PurchaseOrder, error)
	// CancelOrder cancels a non-terminal order. No ledger rows are written.
	CancelOrder(ctx context.Context, ownerID, orderID int) error
	GetOrder(ctx context.Context, orderID int) (*PurchaseOrder, error)
	// ListOrders returns the owner's orders; an empty status returns all of them.
	ListOrders(ctx context.Context, ownerID, businessID int, status OrderStatus) ([]PurchaseOrder, error)
	ListPayables(ctx context.Context, ownerID, businessID int) ([]AccountsPayable, error)

	// ProcessArrivalsTx receives every non-terminal order expected on or before date.
	ProcessArrivalsTx(ctx context.Context, tx pgx.Tx, ownerID, businessID int, date time.Time) ([]Delivery, error)
	// ProcessBillsDueTx pays every unpaid payable due on or before date, recording shortfalls.
	ProcessBillsDueTx(ctx context.Context, tx pgx.Tx, ownerID, businessID int, date time.Time) ([]BillPayment, []CashShortfall, error)
}

type purchaseOrderService struct {
	pool      *pgxpool.Pool
	catalog   CatalogProvider
	inventory InventoryService
	ledger    LedgerService
	gameState GameStateService
	logger    logrus.FieldLogger
}

// NewPurchaseOrderService constructs a PurchaseOrderService backed by PostgreSQL.
func NewPurchaseOrderService(pool *pgxpool.Pool, catalog CatalogProvider, inventory InventoryService,
	ledger LedgerService, gameState GameStateService, logger logrus.FieldLogger) PurchaseOrderService {
	return &purchaseOrderService{
		pool:      pool,
		catalog:   catalog,
		inventory: inventory,
		ledger:    ledger,
		gameState: gameState,
		logger:    logger,
	}
}

func (s *purchaseOrderService) PlaceOrder(ctx context.Context, req OrderRequest) (*PurchaseOrder, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	gs, err := s.gameState.LockTx(ctx, tx, req.OwnerID, req.BusinessID)
	if err != nil {
		return nil, err
	}

	vendor, err := s.catalog.GetVendorTx(ctx, tx, req.VendorID)
	if err != nil {
		return nil, err
	}
	if vendor.BusinessID != req.BusinessID {
		return nil, invalid("vendor_id", "vendor %d does not supply business %d", vendor.ID, req.BusinessID)
	}

	offers := make(map[int]VendorOffer, len(req.Quantities))
	for productID := range req.Quantities {
		offer, err := s.catalog.GetOfferTx(ctx, tx, vendor.ID, productID)
		if errors.Is(err, ErrNotFound) {
			continue // QuoteOrder reports the missing offer
		}
		if err != nil {
			return nil, err
		}
		offers[productID] = *offer
	}

	quote, err := QuoteOrder(*vendor, offers, req.Quantities, gs.CurrentDate)
	if err != nil {
		return nil, err
	}

	var poID int
	if err := tx.QueryRow(ctx, `
		INSERT INTO purchase_orders (owner_id, business_id, vendor_id, order_date, expected_arrival_date,
		                             status, goods_amount, shipping_amount, total_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		req.OwnerID, req.BusinessID, vendor.ID, gs.CurrentDate, quote.ArrivalDate,
		OrderInTransit, quote.Goods, quote.Shipping, quote.Total,
	).Scan(&poID); err != nil {
		return nil, fmt.Errorf("insert purchase order: %w", err)
	}

	for _, line := range quote.Lines {
		if _, err := tx.Exec(ctx, `
			INSERT INTO purchase_order_lines (order_id, line_number, product_id, quantity, unit_cost, line_total)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			poID, line.LineNumber, line.ProductID, line.Quantity, line.UnitCost, line.LineTotal,
		); err != nil {
			return nil, fmt.Errorf("insert PO line %d: %w", line.LineNumber, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit purchase order: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"owner_id":         req.OwnerID,
		"purchase_order":   poID,
		"vendor_id":        vendor.ID,
		"total":            FormatMoney(quote.Total),
		"expected_arrival": FormatDate(quote.ArrivalDate),
	}).Info("purchase order placed")

	return s.GetOrder(ctx, poID)
}

func (s *purchaseOrderService) CancelOrder(ctx context.Context, ownerID, orderID int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var owner int
	var status OrderStatus
	err = tx.QueryRow(ctx,
		"SELECT owner_id, status FROM purchase_orders WHERE id = $1 FOR UPDATE", orderID,
	).Scan(&owner, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("purchase order %d: %w", orderID, ErrNotFound)
		}
		return fmt.Errorf("lock purchase order %d: %w", orderID, err)
	}
	if owner != ownerID {
		return fmt.Errorf("purchase order %d: %w", orderID, ErrNotFound)
	}
	if !status.CanTransition(OrderCancelled) {
		return fmt.Errorf("purchase order %d is %s: %w", orderID, status, ErrInvalidTransition)
	}

	if _, err := tx.Exec(ctx,
		"UPDATE purchase_orders SET status = $1 WHERE id = $2", OrderCancelled, orderID,
	); err != nil {
		return fmt.Errorf("cancel purchase order %d: %w", orderID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit cancellation: %w", err)
	}
	return nil
}

const orderColumns = `id, owner_id, business_id, vendor_id, order_date, expected_arrival_date, actual_arrival_date,
	status, goods_amount, shipping_amount, total_amount, created_at`

func scanOrder(row pgx.Row, po *PurchaseOrder) error {
	return row.Scan(&po.ID, &po.OwnerID, &po.BusinessID, &po.VendorID, &po.OrderDate, &po.ExpectedArrivalDate,
		&po.ActualArrivalDate, &po.Status, &po.GoodsAmount, &po.ShippingAmount, &po.TotalAmount, &po.CreatedAt)
}

func orderLines(ctx context.Context, q querier, orderID int) ([]PurchaseOrderLine, error) {
	rows, err := q.Query(ctx, `
		SELECT id, order_id, line_number, product_id, quantity, unit_cost, line_total
		FROM purchase_order_lines
		WHERE order_id = $1
		ORDER BY line_number`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query PO lines: %w", err)
	}
	defer rows.Close()

	var lines []PurchaseOrderLine
	for rows.Next() {
		var l PurchaseOrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.LineNumber, &l.ProductID, &l.Quantity, &l.UnitCost, &l.LineTotal); err != nil {
			return nil, fmt.Errorf("scan PO line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// GetOrder returns a purchase order by its internal ID, including all lines.
func (s *purchaseOrderService) GetOrder(ctx context.Context, orderID int) (*PurchaseOrder, error) {
	po := &PurchaseOrder{}
	err := scanOrder(s.pool.QueryRow(ctx, "SELECT "+orderColumns+" FROM purchase_orders WHERE id = $1", orderID), po)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("purchase order %d: %w", orderID, ErrNotFound)
		}
		return nil, fmt.Errorf("get purchase order %d: %w", orderID, err)
	}
	po.Lines, err = orderLines(ctx, s.pool, orderID)
	if err != nil {
		return nil, err
	}
	return po, nil
}

func (s *purchaseOrderService) ListOrders(ctx context.Context, ownerID, businessID int, status OrderStatus) ([]PurchaseOrder, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+orderColumns+`
		FROM purchase_orders
		WHERE owner_id = $1 AND business_id = $2 AND ($3 = '' OR status = $3)
		ORDER BY order_date, id`,
		ownerID, businessID, string(status))
	if err != nil {
		return nil, fmt.Errorf("list purchase orders: %w", err)
	}

	var orders []PurchaseOrder
	for rows.Next() {
		var po PurchaseOrder
		if err := scanOrder(rows, &po); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan purchase order: %w", err)
		}
		orders = append(orders, po)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate purchase orders: %w", err)
	}

	for i := range orders {
		if orders[i].Lines, err = orderLines(ctx, s.pool, orders[i].ID); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

const payableColumns = `id, owner_id, business_id, vendor_id, purchase_order_id, amount_due,
	creation_date, due_date, paid_date, status`

func scanPayables(rows pgx.Rows) ([]AccountsPayable, error) {
	defer rows.Close()
	var out []AccountsPayable
	for rows.Next() {
		var ap AccountsPayable
		if err := rows.Scan(&ap.ID, &ap.OwnerID, &ap.BusinessID, &ap.VendorID, &ap.PurchaseOrderID, &ap.AmountDue,
			&ap.CreationDate, &ap.DueDate, &ap.PaidDate, &ap.Status); err != nil {
			return nil, fmt.Errorf("scan payable: %w", err)
		}
		out = append(out, ap)
	}
	return out, rows.Err()
}

func (s *purchaseOrderService) ListPayables(ctx context.Context, ownerID, businessID int) ([]AccountsPayable, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+payableColumns+`
		FROM accounts_payable
		WHERE owner_id = $1 AND business_id = $2
		ORDER BY due_date, id`,
		ownerID, businessID)
	if err != nil {
		return nil, fmt.Errorf("list payables: %w", err)
	}
	return scanPayables(rows)
}

// ── Day phases ────────────────────────────────────────────────────────────────

func (s *purchaseOrderService) ProcessArrivalsTx(ctx context.Context, tx pgx.Tx, ownerID, businessID int, date time.Time) ([]Delivery, error) {
	date = Date(date)
	rows, err := tx.Query(ctx, "SELECT "+orderColumns+`
		FROM purchase_orders
		WHERE owner_id = $1 AND business_id = $2
		  AND expected_arrival_date <= $3
		  AND status IN ('PENDING', 'IN_TRANSIT')
		ORDER BY expected_arrival_date, id
		FOR UPDATE`,
		ownerID, businessID, date)
	if err != nil {
		return nil, fmt.Errorf("query arriving orders: %w", err)
	}
	var arriving []PurchaseOrder
	for rows.Next() {
		var po PurchaseOrder
		if err := scanOrder(rows, &po); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan arriving order: %w", err)
		}
		arriving = append(arriving, po)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate arriving orders: %w", err)
	}

	deliveries := make([]Delivery, 0, len(arriving))
	for _, po := range arriving {
		d, err := s.receiveOrderTx(ctx, tx, po, date)
		if err != nil {
			return nil, fmt.Errorf("receive purchase order %d: %w", po.ID, err)
		}
		deliveries = append(deliveries, *d)
	}
	return deliveries, nil
}

func (s *purchaseOrderService) receiveOrderTx(ctx context.Context, tx pgx.Tx, po PurchaseOrder, date time.Time) (*Delivery, error) {
	if !po.Status.CanTransition(OrderDelivered) {
		return nil, fmt.Errorf("order is %s: %w", po.Status, ErrInvalidTransition)
	}

	vendor, err := s.catalog.GetVendorTx(ctx, tx, po.VendorID)
	if err != nil {
		return nil, err
	}
	lines, err := orderLines(ctx, tx, po.ID)
	if err != nil {
		return nil, err
	}

	d := &Delivery{
		OrderID:     po.ID,
		VendorID:    po.VendorID,
		GoodsAmount: po.GoodsAmount,
		Shipping:    po.ShippingAmount,
		Total:       po.TotalAmount,
		DueDate:     date.AddDate(0, 0, vendor.PaymentTermsDays),
	}

	source := po.ID
	for _, line := range lines {
		if _, err := s.inventory.ReceiveTx(ctx, tx, po.OwnerID, line.ProductID, line.Quantity, line.UnitCost, date, &source); err != nil {
			return nil, err
		}
		d.Units += line.Quantity
	}

	if _, err := tx.Exec(ctx, `
		UPDATE purchase_orders SET status = $1, actual_arrival_date = $2 WHERE id = $3`,
		OrderDelivered, date, po.ID,
	); err != nil {
		return nil, fmt.Errorf("mark delivered: %w", err)
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO accounts_payable (owner_id, business_id, vendor_id, purchase_order_id, amount_due,
		                              creation_date, due_date, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		po.OwnerID, po.BusinessID, po.VendorID, po.ID, po.TotalAmount, date, d.DueDate, PayableUnpaid,
	).Scan(&d.PayableID)
	if err != nil {
		return nil, fmt.Errorf("create payable: %w", err)
	}

	if _, err := s.ledger.PostTx(ctx, tx, ArrivalPosting(po, date)); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"owner_id":       po.OwnerID,
		"purchase_order": po.ID,
		"units":          d.Units,
		"payable_id":     d.PayableID,
		"due_date":       FormatDate(d.DueDate),
	}).Info("purchase order delivered")
	return d, nil
}

func (s *purchaseOrderService) ProcessBillsDueTx(ctx context.Context, tx pgx.Tx, ownerID, businessID int, date time.Time) ([]BillPayment, []CashShortfall, error) {
	date = Date(date)
	rows, err := tx.Query(ctx, "SELECT "+payableColumns+`
		FROM accounts_payable
		WHERE owner_id = $1 AND business_id = $2 AND due_date <= $3 AND status = 'UNPAID'
		ORDER BY due_date, id
		FOR UPDATE`,
		ownerID, businessID, date)
	if err != nil {
		return nil, nil, fmt.Errorf("query due payables: %w", err)
	}
	due, err := scanPayables(rows)
	if err != nil {
		return nil, nil, err
	}

	var (
		payments   []BillPayment
		shortfalls []CashShortfall
	)
	for _, ap := range due {
		sf, err := checkCashTx(ctx, tx, s.ledger, s.logger, ownerID, businessID, date,
			ShortfallBill, "AP-"+strconv.Itoa(ap.ID), ap.AmountDue)
		if err != nil {
			return nil, nil, err
		}
		if sf != nil {
			shortfalls = append(shortfalls, *sf)
		}

		if _, err := s.ledger.PostTx(ctx, tx, BillPosting(ap, date)); err != nil {
			return nil, nil, fmt.Errorf("pay payable %d: %w", ap.ID, err)
		}
		if _, err := tx.Exec(ctx, `
			UPDATE accounts_payable SET status = $1, paid_date = $2 WHERE id = $3 AND status = 'UNPAID'`,
			PayablePaid, date, ap.ID,
		); err != nil {
			return nil, nil, fmt.Errorf("mark payable %d paid: %w", ap.ID, err)
		}

		payments = append(payments, BillPayment{
			PayableID:       ap.ID,
			PurchaseOrderID: ap.PurchaseOrderID,
			Amount:          ap.AmountDue,
			Shortfall:       sf != nil,
		})
	}
	return payments, shortfalls, nil
}
