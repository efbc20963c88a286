package app_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"harvest-engine/internal/app"
	"harvest-engine/internal/config"
	"harvest-engine/internal/core"
	"harvest-engine/internal/lock"
	"harvest-engine/internal/logging"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

var ctx = context.Background()

func testConfig() config.SimConfig {
	return config.SimConfig{
		Seed:                 7,
		EventProbability:     0,
		EventMinBusinessDays: 14,
		MaturityDays:         90,
		MaturityFloor:        0.05,
		AnnualGrowth:         1.10,
		SeasonalAmplitude:    0.30,
		SeasonalPhaseDay:     80,
		MaxAdvanceDays:       30,
		LockTTL:              time.Minute,
	}
}

func setupEngine(t *testing.T) (*pgxpool.Pool, app.ApplicationService) {
	_ = godotenv.Load("../../.env")

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test to protect live database")
	}

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	t.Cleanup(pool.Close)

	schema, err := os.ReadFile("../../migrations/001_simulation_schema.sql")
	if err != nil {
		t.Fatalf("Failed to read schema: %v", err)
	}
	if _, err := pool.Exec(ctx, string(schema)); err != nil {
		t.Fatalf("Failed to apply schema: %v", err)
	}

	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE daily_sales_summary, campaigns, market_events, cash_shortfalls, recurring_charges,
		               accounts_payable, inventory_consumptions, inventory_layers, purchase_order_lines,
		               purchase_orders, ledger_entries, ledger_transactions, selling_prices, game_state,
		               volume_discounts, vendor_offers, vendors, products, product_categories, businesses
		RESTART IDENTITY CASCADE;

		INSERT INTO businesses (id, code, name, volatility, starting_cash)
		VALUES (1, 'keyboards', 'Test Keyboards', 'LOW', 10000.00);

		INSERT INTO product_categories (id, business_id, name) VALUES (1, 1, 'Switches');

		INSERT INTO products (id, business_id, category_id, sku, name, base_demand, price_sensitivity,
		                      default_price, status, attribute_1, attribute_2) VALUES
		(1, 1, 1, 'SW-RED', 'Red Linear Switch', 100, 1.5, 2.00, 'UNLOCKED', 'linear', 'red');

		INSERT INTO vendors (id, business_id, name, lead_time_days, reliability, minimum_order_value,
		                     payment_terms_days, shipping_fee, status) VALUES
		(1, 1, 'Switchworks', 7, 0.95, 400.00, 30, 25.00, 'AVAILABLE');

		INSERT INTO vendor_offers (id, vendor_id, product_id, unit_cost, minimum_order_quantity) VALUES
		(1, 1, 1, 1.00, 10);
	`)
	if err != nil {
		t.Fatalf("Failed to seed test database: %v", err)
	}

	engine := app.NewEngine(pool, testConfig(), lock.NewAdvisoryLocker(pool), logging.Discard())
	return pool, engine
}

func TestEngine_OrderArrivesDuringAdvance(t *testing.T) {
	_, engine := setupEngine(t)

	game, err := engine.StartGame(ctx, app.StartGameRequest{OwnerID: 1, BusinessID: 1, StartDate: "2026-01-01"})
	if err != nil {
		t.Fatalf("StartGame failed: %v", err)
	}
	if game.Cash != "10000.00" || game.CurrentDate != "2026-01-01" {
		t.Fatalf("unexpected game %+v", game)
	}

	order, err := engine.PlaceOrder(ctx, app.PlaceOrderRequest{
		OwnerID: 1, BusinessID: 1, VendorID: 1,
		Lines: []app.OrderLineInput{{ProductID: 1, Quantity: 250}, {ProductID: 1, Quantity: 150}},
	})
	if err != nil {
		t.Fatalf("PlaceOrder failed: %v", err)
	}
	if order.Goods != "400.00" || order.Total != "425.00" || order.ExpectedArrivalDate != "2026-01-08" {
		t.Fatalf("unexpected order %+v", order)
	}
	if len(order.Lines) != 1 || order.Lines[0].Quantity != 400 {
		t.Fatalf("expected merged single line of 400, got %+v", order.Lines)
	}

	res, err := engine.AdvanceTime(ctx, 1, 1, 8)
	if err != nil {
		t.Fatalf("AdvanceTime failed: %v", err)
	}
	if res.CurrentDate != "2026-01-09" || len(res.Days) != 8 {
		t.Fatalf("expected 8 days ending 2026-01-09, got %d ending %s", len(res.Days), res.CurrentDate)
	}
	arrival := res.Days[6]
	if arrival.Date != "2026-01-08" || len(arrival.Deliveries) != 1 || arrival.Deliveries[0] != order.OrderID {
		t.Errorf("expected delivery of order %d on 2026-01-08, got %+v", order.OrderID, arrival)
	}

	orders, err := engine.ListOrders(ctx, 1, 1, "delivered")
	if err != nil {
		t.Fatalf("ListOrders failed: %v", err)
	}
	if len(orders.Orders) != 1 || orders.Orders[0].ActualArrivalDate != "2026-01-08" {
		t.Errorf("expected one delivered order, got %+v", orders.Orders)
	}

	stock, err := engine.CurrentStock(ctx, 1, 1)
	if err != nil {
		t.Fatalf("CurrentStock failed: %v", err)
	}
	sold := 0
	for _, d := range res.Days {
		for _, s := range d.Sales {
			sold += s.UnitsSold
		}
	}
	if len(stock.Products) != 1 || stock.Products[0].OnHand != 400-sold {
		t.Errorf("expected %d on hand, got %+v", 400-sold, stock.Products)
	}

	cash, err := engine.GetCashBalance(ctx, 1, 1)
	if err != nil {
		t.Fatalf("GetCashBalance failed: %v", err)
	}
	if cash.AsOf != "2026-01-09" || cash.Balance != res.Days[len(res.Days)-1].Cash {
		t.Errorf("cash balance %+v disagrees with last day %s", cash, res.Days[len(res.Days)-1].Cash)
	}

	summary, err := engine.SalesSummary(ctx, 1, 1, "2026-01-01", "2026-01-31")
	if err != nil {
		t.Fatalf("SalesSummary failed: %v", err)
	}
	if summary.Units != sold {
		t.Errorf("summary units %d, simulated %d", summary.Units, sold)
	}
}

func TestEngine_AdvanceRefusedWhileLeaseHeld(t *testing.T) {
	pool, engine := setupEngine(t)
	if _, err := engine.StartGame(ctx, app.StartGameRequest{OwnerID: 1, BusinessID: 1, StartDate: "2026-01-01"}); err != nil {
		t.Fatalf("StartGame failed: %v", err)
	}

	lease, err := lock.NewAdvisoryLocker(pool).Obtain(ctx, lock.SimulationKey(1, 1), time.Minute)
	if err != nil {
		t.Fatalf("Obtain failed: %v", err)
	}

	if _, err := engine.AdvanceTime(ctx, 1, 1, 1); !errors.Is(err, lock.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if err := lease.Release(ctx); err != nil {
		t.Fatal(err)
	}

	res, err := engine.AdvanceTime(ctx, 1, 1, 1)
	if err != nil {
		t.Fatalf("AdvanceTime after release failed: %v", err)
	}
	if res.CurrentDate != "2026-01-02" {
		t.Errorf("expected 2026-01-02, got %s", res.CurrentDate)
	}
}

// refreshCounter wraps a Locker and counts Refresh calls on the leases it hands out.
type refreshCounter struct {
	lock.Locker
	refreshes int
}

func (c *refreshCounter) Obtain(ctx context.Context, key string, ttl time.Duration) (lock.Lease, error) {
	lease, err := c.Locker.Obtain(ctx, key, ttl)
	if err != nil {
		return nil, err
	}
	return &countedLease{Lease: lease, c: c}, nil
}

type countedLease struct {
	lock.Lease
	c *refreshCounter
}

func (l *countedLease) Refresh(ctx context.Context, ttl time.Duration) error {
	l.c.refreshes++
	return l.Lease.Refresh(ctx, ttl)
}

func TestEngine_AdvanceRefreshesLeaseEachDay(t *testing.T) {
	pool, _ := setupEngine(t)
	locker := &refreshCounter{Locker: lock.NewAdvisoryLocker(pool)}
	engine := app.NewEngine(pool, testConfig(), locker, logging.Discard())

	if _, err := engine.StartGame(ctx, app.StartGameRequest{OwnerID: 1, BusinessID: 1, StartDate: "2026-01-01"}); err != nil {
		t.Fatalf("StartGame failed: %v", err)
	}
	if _, err := engine.AdvanceTime(ctx, 1, 1, 5); err != nil {
		t.Fatalf("AdvanceTime failed: %v", err)
	}
	if locker.refreshes != 5 {
		t.Errorf("expected 5 lease refreshes, got %d", locker.refreshes)
	}
}

func TestEngine_ReverseChecksOwner(t *testing.T) {
	_, engine := setupEngine(t)
	if _, err := engine.StartGame(ctx, app.StartGameRequest{OwnerID: 1, BusinessID: 1, StartDate: "2026-01-01"}); err != nil {
		t.Fatalf("StartGame failed: %v", err)
	}

	stmt, err := engine.AccountStatement(ctx, 1, 1, core.AccountCash, "2026-01-01", "2026-01-01")
	if err != nil {
		t.Fatalf("AccountStatement failed: %v", err)
	}
	if len(stmt.Lines) != 1 || stmt.Lines[0].Debit != "10000.00" || stmt.Lines[0].RunningBalance != "10000.00" {
		t.Fatalf("expected the starting capital line, got %+v", stmt.Lines)
	}
	txnID := stmt.Lines[0].TransactionID

	if _, err := engine.ReverseTransaction(ctx, 2, txnID, "not mine"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound for another owner, got %v", err)
	}

	rev, err := engine.ReverseTransaction(ctx, 1, txnID, "test reversal")
	if err != nil {
		t.Fatalf("ReverseTransaction failed: %v", err)
	}
	if rev.ReversalID == "" || rev.ReversalID == txnID {
		t.Errorf("unexpected reversal %+v", rev)
	}

	cash, err := engine.GetCashBalance(ctx, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if cash.Balance != "0.00" {
		t.Errorf("expected 0.00 after reversing capital, got %s", cash.Balance)
	}
}

func TestEngine_RebuildSummariesMatchesStoredRows(t *testing.T) {
	_, engine := setupEngine(t)
	if _, err := engine.StartGame(ctx, app.StartGameRequest{OwnerID: 1, BusinessID: 1, StartDate: "2026-01-01"}); err != nil {
		t.Fatal(err)
	}
	if _, err := engine.PlaceOrder(ctx, app.PlaceOrderRequest{
		OwnerID: 1, BusinessID: 1, VendorID: 1, Lines: []app.OrderLineInput{{ProductID: 1, Quantity: 400}},
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := engine.AdvanceTime(ctx, 1, 1, 12); err != nil {
		t.Fatal(err)
	}

	before, err := engine.SalesSummary(ctx, 1, 1, "2026-01-01", "2026-01-31")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := engine.RebuildSummaries(ctx, 1, 1, "2026-01-01", "2026-01-31"); err != nil {
		t.Fatalf("RebuildSummaries failed: %v", err)
	}
	after, err := engine.SalesSummary(ctx, 1, 1, "2026-01-01", "2026-01-31")
	if err != nil {
		t.Fatal(err)
	}
	if before.Units != after.Units || before.Revenue != after.Revenue || before.COGS != after.COGS {
		t.Errorf("rebuild changed totals: before %+v after %+v", before, after)
	}
}
