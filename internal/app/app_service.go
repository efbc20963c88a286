package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"harvest-engine/internal/config"
	"harvest-engine/internal/core"
	"harvest-engine/internal/db"
	"harvest-engine/internal/lock"
	"harvest-engine/internal/logging"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type appService struct {
	pool   *pgxpool.Pool
	svc    core.Services
	sim    *core.Simulator
	locker lock.Locker
	cfg    config.SimConfig
	logger logrus.FieldLogger
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(
	pool *pgxpool.Pool,
	svc core.Services,
	sim *core.Simulator,
	locker lock.Locker,
	cfg config.SimConfig,
	logger logrus.FieldLogger,
) ApplicationService {
	return &appService{
		pool:   pool,
		svc:    svc,
		sim:    sim,
		locker: locker,
		cfg:    cfg,
		logger: logger,
	}
}

// StartGame creates the game state on the requested start date.
func (s *appService) StartGame(ctx context.Context, req StartGameRequest) (*GameResult, error) {
	start, err := core.ParseDate("start_date", req.StartDate)
	if err != nil {
		return nil, err
	}
	gs, err := s.svc.GameState.StartGame(ctx, req.OwnerID, req.BusinessID, start)
	if err != nil {
		return nil, err
	}
	cash, err := s.svc.Ledger.BalanceAsOf(ctx, gs.OwnerID, gs.BusinessID, core.AccountCash, gs.CurrentDate)
	if err != nil {
		return nil, err
	}
	return toGameResult(gs, cash), nil
}

// PlaceOrder merges repeated product lines and hands the order to the supply chain.
func (s *appService) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*OrderResult, error) {
	quantities, err := mergeLines(req.Lines)
	if err != nil {
		return nil, err
	}
	po, err := s.svc.Orders.PlaceOrder(ctx, core.OrderRequest{
		OwnerID:    req.OwnerID,
		BusinessID: req.BusinessID,
		VendorID:   req.VendorID,
		Quantities: quantities,
	})
	if err != nil {
		return nil, err
	}
	return toOrderResult(po), nil
}

func mergeLines(lines []OrderLineInput) (map[int]int, error) {
	if len(lines) == 0 {
		return nil, &core.ValidationError{Field: "lines", Reason: "order must contain at least one line"}
	}
	quantities := make(map[int]int, len(lines))
	for _, l := range lines {
		if l.Quantity <= 0 {
			return nil, &core.ValidationError{
				Field:  "lines",
				Reason: fmt.Sprintf("product %d: quantity must be positive, got %d", l.ProductID, l.Quantity),
			}
		}
		quantities[l.ProductID] += l.Quantity
	}
	return quantities, nil
}

// CancelOrder cancels and returns the updated order.
func (s *appService) CancelOrder(ctx context.Context, ownerID, orderID int) (*OrderResult, error) {
	if err := s.svc.Orders.CancelOrder(ctx, ownerID, orderID); err != nil {
		return nil, err
	}
	po, err := s.svc.Orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return toOrderResult(po), nil
}

// ListOrders returns orders filtered by status when one is given.
func (s *appService) ListOrders(ctx context.Context, ownerID, businessID int, status string) (*OrderListResult, error) {
	st, err := parseStatus(status)
	if err != nil {
		return nil, err
	}
	orders, err := s.svc.Orders.ListOrders(ctx, ownerID, businessID, st)
	if err != nil {
		return nil, err
	}
	out := &OrderListResult{Orders: make([]OrderResult, 0, len(orders))}
	for i := range orders {
		out.Orders = append(out.Orders, *toOrderResult(&orders[i]))
	}
	return out, nil
}

func parseStatus(status string) (core.OrderStatus, error) {
	st := core.OrderStatus(strings.ToUpper(strings.TrimSpace(status)))
	switch st {
	case "", core.OrderPending, core.OrderInTransit, core.OrderDelivered, core.OrderCancelled:
		return st, nil
	}
	return "", &core.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown order status %q", status)}
}

// AdvanceTime holds the simulation lease for the whole run so two advances of the same
// game cannot interleave days.
func (s *appService) AdvanceTime(ctx context.Context, ownerID, businessID, days int) (*AdvanceResult, error) {
	if days < 1 || days > s.cfg.MaxAdvanceDays {
		return nil, &core.ValidationError{
			Field:  "days",
			Reason: fmt.Sprintf("must be between 1 and %d, got %d", s.cfg.MaxAdvanceDays, days),
		}
	}

	var result *core.AdvanceResult
	started := time.Now()
	err := lock.With(ctx, s.locker, lock.SimulationKey(ownerID, businessID), s.cfg.LockTTL, func(ctx context.Context, lease lock.Lease) error {
		var err error
		result, err = s.sim.AdvanceTimeFunc(ctx, ownerID, businessID, days, refreshEachDay(lease, s.cfg.LockTTL))
		return err
	})
	if err != nil {
		if !errors.Is(err, lock.ErrLocked) && !errors.Is(err, core.ErrValidation) {
			logging.LogError(s.logger, "app", "AdvanceTime", "advance simulation",
				map[string]int{"owner_id": ownerID, "business_id": businessID, "days": days}, err)
		}
		return toAdvanceResult(result), err
	}

	s.logger.WithFields(logrus.Fields{
		"owner_id":     ownerID,
		"business_id":  businessID,
		"days":         len(result.Days),
		"current_date": core.FormatDate(result.CurrentDate),
		"elapsed_ms":   time.Since(started).Milliseconds(),
	}).Info("advanced simulation")
	return toAdvanceResult(result), nil
}

// refreshEachDay extends the lease after every committed day, so the TTL bounds one day
// of work rather than the whole advance.
func refreshEachDay(lease lock.Lease, ttl time.Duration) func(context.Context, *core.DayResult) error {
	return func(ctx context.Context, _ *core.DayResult) error {
		return lease.Refresh(ctx, ttl)
	}
}

func (s *appService) CurrentStock(ctx context.Context, ownerID, businessID int) (*StockResult, error) {
	levels, err := s.svc.Inventory.GetStockLevels(ctx, ownerID, businessID)
	if err != nil {
		return nil, err
	}
	out := &StockResult{Products: make([]StockLine, 0, len(levels))}
	for _, l := range levels {
		out.Products = append(out.Products, StockLine{
			ProductID: l.ProductID,
			OnHand:    l.OnHand,
			Value:     core.FormatMoney(l.Value),
		})
	}
	return out, nil
}

// GetCashBalance reads the balance as of the game's current date.
func (s *appService) GetCashBalance(ctx context.Context, ownerID, businessID int) (*CashResult, error) {
	gs, err := s.svc.GameState.GetGameState(ctx, ownerID, businessID)
	if err != nil {
		return nil, err
	}
	cash, err := s.svc.Ledger.BalanceAsOf(ctx, ownerID, businessID, core.AccountCash, gs.CurrentDate)
	if err != nil {
		return nil, err
	}
	return &CashResult{AsOf: core.FormatDate(gs.CurrentDate), Balance: core.FormatMoney(cash)}, nil
}

func (s *appService) GetInventoryValue(ctx context.Context, ownerID, businessID int) (*InventoryValueResult, error) {
	value, err := s.svc.Inventory.InventoryValue(ctx, ownerID, businessID)
	if err != nil {
		return nil, err
	}
	return &InventoryValueResult{Value: core.FormatMoney(value)}, nil
}

func (s *appService) ActiveEventsFor(ctx context.Context, ownerID, businessID int, date string) (*ActiveEventsResult, error) {
	d, err := core.ParseDate("date", date)
	if err != nil {
		return nil, err
	}
	events, err := s.svc.Events.ActiveEvents(ctx, ownerID, businessID, d)
	if err != nil {
		return nil, err
	}
	campaigns, err := s.svc.Events.ActiveCampaigns(ctx, ownerID, businessID, d)
	if err != nil {
		return nil, err
	}

	out := &ActiveEventsResult{
		Date:      core.FormatDate(d),
		Events:    make([]BoostResult, 0, len(events)),
		Campaigns: make([]BoostResult, 0, len(campaigns)),
	}
	for _, e := range events {
		out.Events = append(out.Events, eventBoost(e))
	}
	for _, c := range campaigns {
		out.Campaigns = append(out.Campaigns, campaignBoost(c))
	}
	return out, nil
}

func (s *appService) SalesSummary(ctx context.Context, ownerID, businessID int, from, to string) (*SalesSummaryResult, error) {
	f, t, err := parseRange(from, to)
	if err != nil {
		return nil, err
	}
	rows, err := s.svc.Summaries.SalesSummary(ctx, ownerID, businessID, f, t)
	if err != nil {
		return nil, err
	}
	return toSalesSummary(core.FormatDate(f), core.FormatDate(t), rows), nil
}

func parseRange(from, to string) (time.Time, time.Time, error) {
	f, err := core.ParseDate("from", from)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	t, err := core.ParseDate("to", to)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if t.Before(f) {
		return time.Time{}, time.Time{}, &core.ValidationError{
			Field:  "to",
			Reason: fmt.Sprintf("%s is before %s", core.FormatDate(t), core.FormatDate(f)),
		}
	}
	return f, t, nil
}

func (s *appService) SetSellingPrice(ctx context.Context, req SetPriceRequest) error {
	price, err := core.ParseMoney("price", req.Price)
	if err != nil {
		return err
	}
	return s.svc.GameState.SetSellingPrice(ctx, req.OwnerID, req.ProductID, price)
}

func (s *appService) LaunchCampaign(ctx context.Context, req LaunchCampaignRequest) (*CampaignResult, error) {
	in, err := campaignInput(req)
	if err != nil {
		return nil, err
	}
	c, err := s.svc.Events.LaunchCampaign(ctx, in)
	if err != nil {
		return nil, err
	}
	return &CampaignResult{
		CampaignID: c.ID,
		StartDate:  core.FormatDate(c.StartDate),
		EndDate:    core.FormatDate(c.EndDate),
		Cost:       core.FormatMoney(c.Cost),
	}, nil
}

func campaignInput(req LaunchCampaignRequest) (core.CampaignInput, error) {
	mult, err := decimal.NewFromString(strings.TrimSpace(req.Multiplier))
	if err != nil {
		return core.CampaignInput{}, &core.ValidationError{
			Field:  "multiplier",
			Reason: fmt.Sprintf("invalid multiplier %q", req.Multiplier),
		}
	}
	cost, err := core.ParseMoney("cost", req.Cost)
	if err != nil {
		return core.CampaignInput{}, err
	}
	target := core.TargetType(strings.ToUpper(strings.TrimSpace(req.TargetType)))
	if target == "" {
		target = core.TargetAll
	}
	in := core.CampaignInput{
		OwnerID:         req.OwnerID,
		BusinessID:      req.BusinessID,
		Name:            req.Name,
		DurationDays:    req.DurationDays,
		BoostMultiplier: mult,
		Cost:            cost,
		Target:          core.Targeting{Type: target, TargetID: req.TargetID},
	}
	return in, in.Validate()
}

func (s *appService) CreateRecurring(ctx context.Context, req CreateRecurringRequest) (*RecurringResult, error) {
	charge, err := recurringCharge(req)
	if err != nil {
		return nil, err
	}
	created, err := s.svc.Recurring.CreateRecurring(ctx, charge)
	if err != nil {
		return nil, err
	}
	return &RecurringResult{
		ID:        created.ID,
		Kind:      string(created.Kind),
		Frequency: string(created.Frequency),
		Amount:    core.FormatMoney(created.Amount),
		Account:   created.Account(),
	}, nil
}

func recurringCharge(req CreateRecurringRequest) (core.RecurringCharge, error) {
	amount, err := core.ParseMoney("amount", req.Amount)
	if err != nil {
		return core.RecurringCharge{}, err
	}
	charge := core.RecurringCharge{
		OwnerID:     req.OwnerID,
		BusinessID:  req.BusinessID,
		Kind:        core.RecurringKind(strings.ToUpper(strings.TrimSpace(req.Kind))),
		Description: req.Description,
		Amount:      amount,
		Frequency:   core.Frequency(strings.ToUpper(strings.TrimSpace(req.Frequency))),
		DueDay:      req.DueDay,
	}
	if acct := strings.TrimSpace(req.Account); acct != "" {
		charge.AccountName = &acct
	}
	return charge, nil
}

// ReverseTransaction refuses to reverse another owner's transaction; it reports it as missing.
func (s *appService) ReverseTransaction(ctx context.Context, ownerID int, transactionID, reason string) (*ReversalResult, error) {
	txn, err := s.svc.Ledger.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if txn.OwnerID != ownerID {
		return nil, fmt.Errorf("transaction %s: %w", transactionID, core.ErrNotFound)
	}
	reversalID, err := s.svc.Ledger.Reverse(ctx, transactionID, reason)
	if err != nil {
		return nil, err
	}
	return &ReversalResult{OriginalID: transactionID, ReversalID: reversalID}, nil
}

func (s *appService) AccountStatement(ctx context.Context, ownerID, businessID int, account, from, to string) (*AccountStatementResult, error) {
	f, t, err := parseRange(from, to)
	if err != nil {
		return nil, err
	}
	lines, err := s.svc.Summaries.AccountStatement(ctx, ownerID, businessID, account, f, t)
	if err != nil {
		return nil, err
	}
	return toStatement(account, lines), nil
}

func (s *appService) CashShortfalls(ctx context.Context, ownerID, businessID int, from, to string) (*ShortfallsResult, error) {
	f, t, err := parseRange(from, to)
	if err != nil {
		return nil, err
	}
	list, err := s.svc.Summaries.CashShortfalls(ctx, ownerID, businessID, f, t)
	if err != nil {
		return nil, err
	}
	return &ShortfallsResult{Shortfalls: toShortfallLines(list)}, nil
}

// RebuildSummaries runs under the simulation lease so a concurrent advance cannot
// write rows the rebuild is about to replace.
func (s *appService) RebuildSummaries(ctx context.Context, ownerID, businessID int, from, to string) (int64, error) {
	f, t, err := parseRange(from, to)
	if err != nil {
		return 0, err
	}

	var n int64
	err = lock.With(ctx, s.locker, lock.SimulationKey(ownerID, businessID), s.cfg.LockTTL, func(ctx context.Context, _ lock.Lease) error {
		return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
			var err error
			n, err = s.svc.Summaries.RebuildTx(ctx, tx, ownerID, businessID, f, t)
			return err
		})
	})
	if err != nil {
		return 0, err
	}
	s.logger.WithFields(logrus.Fields{
		"owner_id":    ownerID,
		"business_id": businessID,
		"from":        core.FormatDate(f),
		"to":          core.FormatDate(t),
		"rows":        n,
	}).Info("rebuilt sales summaries")
	return n, nil
}
