package core_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"harvest-engine/internal/core"
	"harvest-engine/internal/logging"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

var (
	day0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ctx  = context.Background()
)

const (
	testOwner    = 1
	testBusiness = 1
	redSwitch    = 1
	blueSwitch   = 2
	lockedKeycap = 3
	switchworks  = 1
	prospectCo   = 2
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	_ = godotenv.Load("../../.env")

	// Use a dedicated TEST database to avoid wiping the live app database.
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

	// Clean and seed test DB
	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE daily_sales_summary, campaigns, market_events, cash_shortfalls, recurring_charges,
		               accounts_payable, inventory_consumptions, inventory_layers, purchase_order_lines,
		               purchase_orders, ledger_entries, ledger_transactions, selling_prices, game_state,
		               volume_discounts, vendor_offers, vendors, products, product_categories, businesses
		RESTART IDENTITY CASCADE;

		INSERT INTO businesses (id, code, name, volatility, starting_cash)
		VALUES (1, 'keyboards', 'Test Keyboards', 'LOW', 10000.00);

		INSERT INTO product_categories (id, business_id, name) VALUES (1, 1, 'Switches'), (2, 1, 'Keycaps');

		INSERT INTO products (id, business_id, category_id, sku, name, base_demand, price_sensitivity,
		                      default_price, status, attribute_1, attribute_2) VALUES
		(1, 1, 1, 'SW-RED', 'Red Linear Switch',   100, 1.5, 2.00, 'UNLOCKED', 'linear', 'red'),
		(2, 1, 1, 'SW-BLU', 'Blue Clicky Switch',   50, 1.5, 3.00, 'UNLOCKED', 'clicky', 'blue'),
		(3, 1, 2, 'KC-PBT', 'PBT Keycap Set',       20, 1.0, 60.00, 'LOCKED',  'pbt',    NULL);

		INSERT INTO vendors (id, business_id, name, lead_time_days, reliability, minimum_order_value,
		                     payment_terms_days, shipping_fee, status) VALUES
		(1, 1, 'Switchworks', 7, 0.95, 400.00, 30, 25.00, 'AVAILABLE'),
		(2, 1, 'Prospect Co', 3, 0.90, 100.00, 15,  0.00, 'PROSPECTIVE');

		INSERT INTO vendor_offers (id, vendor_id, product_id, unit_cost, minimum_order_quantity) VALUES
		(1, 1, 1, 1.00, 10),
		(2, 1, 2, 1.50, 10),
		(3, 2, 1, 0.90, 1);

		INSERT INTO volume_discounts (offer_id, min_quantity, max_quantity, unit_cost) VALUES
		(1, 10, 999, 1.00),
		(1, 1000, NULL, 0.80);
	`)
	if err != nil {
		t.Fatalf("Failed to seed test database: %v", err)
	}

	return pool
}

func newServices(pool *pgxpool.Pool) core.Services {
	return core.NewServices(pool, core.DefaultEventParams(), logging.Discard())
}

func newSimulator(pool *pgxpool.Pool, svc core.Services, params core.DemandParams, rng core.RandomSource) *core.Simulator {
	return core.NewSimulator(pool, svc, params, rng, logging.Discard())
}

// matureParams is flatParams with no ramp-up, so day one sells at base demand.
func matureParams() core.DemandParams {
	p := flatParams()
	p.MaturityDays = 0
	return p
}

func startGame(t *testing.T, svc core.Services, owner int) {
	t.Helper()
	if _, err := svc.GameState.StartGame(ctx, owner, testBusiness, day0); err != nil {
		t.Fatalf("StartGame failed: %v", err)
	}
}

func cashBalance(t *testing.T, svc core.Services, owner int, asOf time.Time) string {
	t.Helper()
	bal, err := svc.Ledger.BalanceAsOf(ctx, owner, testBusiness, core.AccountCash, asOf)
	if err != nil {
		t.Fatalf("BalanceAsOf failed: %v", err)
	}
	return bal.StringFixed(2)
}

func TestLedger_StartGamePostsCapitalOnce(t *testing.T) {
	pool := setupTestDB(t)
	svc := newServices(pool)

	startGame(t, svc, testOwner)
	startGame(t, svc, testOwner)

	if got := cashBalance(t, svc, testOwner, day0); got != "10000.00" {
		t.Errorf("expected starting cash 10000.00, got %s", got)
	}
	gs, err := svc.GameState.GetGameState(ctx, testOwner, testBusiness)
	if err != nil {
		t.Fatalf("GetGameState failed: %v", err)
	}
	if !gs.CurrentDate.Equal(day0) || !gs.StartDate.Equal(day0) {
		t.Errorf("expected current and start date %s, got %s / %s",
			core.FormatDate(day0), core.FormatDate(gs.CurrentDate), core.FormatDate(gs.StartDate))
	}
}

func TestLedger_Idempotency(t *testing.T) {
	pool := setupTestDB(t)
	svc := newServices(pool)

	posting := core.Posting{
		OwnerID:        testOwner,
		BusinessID:     testBusiness,
		Date:           day0,
		Description:    "Test Idempotent Transaction",
		IdempotencyKey: uuid.NewString(),
		Lines: []core.PostingLine{
			core.Debit(core.AccountCash, money("150.00"), ""),
			core.Credit(core.AccountOtherIncome, money("150.00"), ""),
		},
	}

	if _, err := svc.Ledger.Post(ctx, posting); err != nil {
		t.Fatalf("First post failed: %v", err)
	}
	_, err := svc.Ledger.Post(ctx, posting)
	if !errors.Is(err, core.ErrDuplicatePosting) {
		t.Fatalf("expected ErrDuplicatePosting on second post, got %v", err)
	}

	var count int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM ledger_entries").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("expected 2 ledger lines, got %d", count)
	}
}

func TestLedger_RejectsImbalanceWithoutWriting(t *testing.T) {
	pool := setupTestDB(t)
	svc := newServices(pool)

	_, err := svc.Ledger.Post(ctx, core.Posting{
		OwnerID:     testOwner,
		BusinessID:  testBusiness,
		Date:        day0,
		Description: "Broken",
		Lines: []core.PostingLine{
			core.Debit(core.AccountCash, money("100.00"), ""),
			core.Credit(core.AccountSalesRevenue, money("99.99"), ""),
		},
	})
	var imb *core.ImbalanceError
	if !errors.As(err, &imb) {
		t.Fatalf("expected *ImbalanceError, got %v", err)
	}
	if imb.Debits.StringFixed(2) != "100.00" || imb.Credits.StringFixed(2) != "99.99" {
		t.Errorf("unexpected totals in error: %v", imb)
	}

	var count int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM ledger_transactions").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("expected no transactions, got %d", count)
	}
}

func TestLedger_ReverseOnce(t *testing.T) {
	pool := setupTestDB(t)
	svc := newServices(pool)

	txnID, err := svc.Ledger.Post(ctx, core.Posting{
		OwnerID:     testOwner,
		BusinessID:  testBusiness,
		Date:        day0,
		Description: "Mistaken income",
		Lines: []core.PostingLine{
			core.Debit(core.AccountCash, money("75.50"), ""),
			core.Credit(core.AccountOtherIncome, money("75.50"), ""),
		},
	})
	if err != nil {
		t.Fatalf("Post failed: %v", err)
	}

	revID, err := svc.Ledger.Reverse(ctx, txnID, "entered twice")
	if err != nil {
		t.Fatalf("Reverse failed: %v", err)
	}
	if got := cashBalance(t, svc, testOwner, day0); got != "0.00" {
		t.Errorf("expected cash back to 0.00 after reversal, got %s", got)
	}

	rev, err := svc.Ledger.GetTransaction(ctx, revID)
	if err != nil {
		t.Fatalf("GetTransaction failed: %v", err)
	}
	if !rev.IsReversal || rev.ReversalOf == nil || *rev.ReversalOf != txnID {
		t.Errorf("reversal not linked to original: %+v", rev)
	}
	if len(rev.Entries) != 2 || !rev.Entries[0].DebitAmount.Equal(money("-75.50")) {
		t.Errorf("expected mirrored negative debit, got %+v", rev.Entries)
	}

	if _, err := svc.Ledger.Reverse(ctx, txnID, "again"); !errors.Is(err, core.ErrAlreadyReversed) {
		t.Errorf("expected ErrAlreadyReversed, got %v", err)
	}
	if _, err := svc.Ledger.Reverse(ctx, revID, "undo the undo"); !errors.Is(err, core.ErrValidation) {
		t.Errorf("expected ErrValidation reversing a reversal, got %v", err)
	}
	if _, err := svc.Ledger.Reverse(ctx, "TXN-missing", "x"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLedger_BalanceAsOfHonoursDate(t *testing.T) {
	pool := setupTestDB(t)
	svc := newServices(pool)
	startGame(t, svc, testOwner)

	later := day0.AddDate(0, 0, 5)
	_, err := svc.Ledger.Post(ctx, core.Posting{
		OwnerID:     testOwner,
		BusinessID:  testBusiness,
		Date:        later,
		Description: "Grant",
		Lines: []core.PostingLine{
			core.Debit(core.AccountCash, money("500.00"), ""),
			core.Credit(core.AccountOtherIncome, money("500.00"), ""),
		},
	})
	if err != nil {
		t.Fatalf("Post failed: %v", err)
	}

	if got := cashBalance(t, svc, testOwner, later.AddDate(0, 0, -1)); got != "10000.00" {
		t.Errorf("balance before grant: expected 10000.00, got %s", got)
	}
	if got := cashBalance(t, svc, testOwner, later); got != "10500.00" {
		t.Errorf("balance on grant date: expected 10500.00, got %s", got)
	}
}

func TestLedger_EntriesAreAppendOnly(t *testing.T) {
	pool := setupTestDB(t)
	svc := newServices(pool)
	startGame(t, svc, testOwner)

	if _, err := pool.Exec(ctx, "UPDATE ledger_entries SET debit_amount = 1"); err == nil {
		t.Error("expected update of ledger_entries to be rejected")
	}
	if _, err := pool.Exec(ctx, "DELETE FROM ledger_entries"); err == nil {
		t.Error("expected delete of ledger_entries to be rejected")
	}
}
