package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"harvest-engine/internal/logging"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// DayResult is everything that happened on one simulated day.
type DayResult struct {
	Date         time.Time              `json:"date"`
	Deliveries   []Delivery             `json:"deliveries"`
	Sales        []SaleResult           `json:"sales"`
	BillsPaid    []BillPayment          `json:"bills_paid"`
	Recurring    []RecurringApplication `json:"recurring"`
	Shortfalls   []CashShortfall        `json:"shortfalls"`
	EventStarted *MarketEvent           `json:"event_started,omitempty"`
	CashBalance  decimal.Decimal        `json:"cash_balance"`
}

func (r *DayResult) UnitsSold() int {
	n := 0
	for _, s := range r.Sales {
		n += s.UnitsSold
	}
	return n
}

func (r *DayResult) Revenue() decimal.Decimal {
	total := decimal.Zero
	for _, s := range r.Sales {
		total = total.Add(s.Revenue)
	}
	return total
}

// AdvanceResult collects the days processed by AdvanceTime. On failure it holds the days
// committed before the failing one, and CurrentDate is the last committed date.
type AdvanceResult struct {
	Days        []DayResult `json:"days"`
	CurrentDate time.Time   `json:"current_date"`
}

// Simulator runs the daily batch: arrivals, sales, bills due, recurring charges,
// summaries and the random event roll, in that order, in one database transaction per day.
type Simulator struct {
	pool   *pgxpool.Pool
	svc    Services
	demand DemandParams
	rng    RandomSource
	logger logrus.FieldLogger
}

func NewSimulator(pool *pgxpool.Pool, svc Services, demand DemandParams, rng RandomSource, logger logrus.FieldLogger) *Simulator {
	return &Simulator{pool: pool, svc: svc, demand: demand, rng: rng, logger: logger}
}

// AdvanceTime processes the next days one at a time. Each day commits on its own, so a
// failure leaves every earlier day in place and a retry resumes from the last committed date.
func (s *Simulator) AdvanceTime(ctx context.Context, ownerID, businessID, days int) (*AdvanceResult, error) {
	return s.AdvanceTimeFunc(ctx, ownerID, businessID, days, nil)
}

// AdvanceTimeFunc is AdvanceTime with a hook run after each committed day. A hook error
// stops the run; the day it followed stays committed and is included in the result.
func (s *Simulator) AdvanceTimeFunc(ctx context.Context, ownerID, businessID, days int, afterDay func(ctx context.Context, day *DayResult) error) (*AdvanceResult, error) {
	if days < 1 {
		return nil, invalid("days", "must be at least 1, got %d", days)
	}
	gs, err := s.svc.GameState.GetGameState(ctx, ownerID, businessID)
	if err != nil {
		return nil, err
	}

	res := &AdvanceResult{CurrentDate: gs.CurrentDate}
	for i := 0; i < days; i++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		date := res.CurrentDate.AddDate(0, 0, 1)
		day, err := s.ProcessDay(ctx, ownerID, businessID, date)
		if err != nil {
			return res, fmt.Errorf("day %s: %w", FormatDate(date), err)
		}
		res.Days = append(res.Days, *day)
		res.CurrentDate = date
		if afterDay != nil {
			if err := afterDay(ctx, day); err != nil {
				return res, fmt.Errorf("after day %s: %w", FormatDate(date), err)
			}
		}
	}
	return res, nil
}

// ProcessDay runs one day. date must be the day after the current game date; the current
// date moves to date only if the whole day commits.
func (s *Simulator) ProcessDay(ctx context.Context, ownerID, businessID int, date time.Time) (*DayResult, error) {
	date = Date(date)
	log := s.logger.WithFields(logrus.Fields{
		"owner_id":    ownerID,
		"business_id": businessID,
		"date":        FormatDate(date),
	})

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin day: %w", err)
	}
	defer tx.Rollback(ctx)

	gs, err := s.svc.GameState.LockTx(ctx, tx, ownerID, businessID)
	if err != nil {
		return nil, err
	}
	if want := gs.CurrentDate.AddDate(0, 0, 1); !date.Equal(want) {
		return nil, fmt.Errorf("next day is %s, not %s: %w", FormatDate(want), FormatDate(date), ErrInvalidTransition)
	}
	business, err := s.svc.Catalog.GetBusinessTx(ctx, tx, businessID)
	if err != nil {
		return nil, err
	}

	res := &DayResult{Date: date}

	// 1. arrivals
	if res.Deliveries, err = s.svc.Orders.ProcessArrivalsTx(ctx, tx, ownerID, businessID, date); err != nil {
		return nil, err
	}

	// 2. sales
	products, err := s.svc.Catalog.ListUnlockedProductsTx(ctx, tx, businessID)
	if err != nil {
		return nil, err
	}
	if res.Sales, err = s.sellTx(ctx, tx, gs, business, products, date); err != nil {
		return nil, err
	}

	// 3. bills due
	var shortfalls []CashShortfall
	if res.BillsPaid, shortfalls, err = s.svc.Orders.ProcessBillsDueTx(ctx, tx, ownerID, businessID, date); err != nil {
		return nil, err
	}
	res.Shortfalls = append(res.Shortfalls, shortfalls...)

	// 4. recurring charges
	if res.Recurring, shortfalls, err = s.svc.Recurring.ProcessDueTx(ctx, tx, ownerID, businessID, date); err != nil {
		return nil, err
	}
	res.Shortfalls = append(res.Shortfalls, shortfalls...)

	// 5. summaries
	for _, sale := range res.Sales {
		row := DailySales{
			OwnerID:         ownerID,
			BusinessID:      businessID,
			ProductID:       sale.ProductID,
			Date:            date,
			UnitsSold:       sale.UnitsSold,
			Revenue:         sale.Revenue,
			CostOfGoodsSold: sale.CostOfGoods,
		}
		if err := s.svc.Summaries.UpsertTx(ctx, tx, row); err != nil {
			return nil, err
		}
	}

	// 6. random event
	if res.EventStarted, err = s.svc.Events.MaybeTriggerTx(ctx, tx, gs, business, date, s.rng); err != nil {
		return nil, err
	}

	if res.CashBalance, err = s.svc.Ledger.BalanceAsOfTx(ctx, tx, ownerID, businessID, AccountCash, date); err != nil {
		return nil, err
	}
	if err := s.svc.GameState.SetCurrentDateTx(ctx, tx, ownerID, businessID, date); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit day: %w", err)
	}

	log.WithFields(logrus.Fields{
		"deliveries": len(res.Deliveries),
		"units_sold": res.UnitsSold(),
		"revenue":    FormatMoney(res.Revenue()),
		"bills_paid": len(res.BillsPaid),
		"recurring":  len(res.Recurring),
		"shortfalls": len(res.Shortfalls),
		"cash":       FormatMoney(res.CashBalance),
	}).Info("day processed")
	return res, nil
}

func (s *Simulator) sellTx(ctx context.Context, tx pgx.Tx, gs *GameState, business *Business,
	products []Product, date time.Time) ([]SaleResult, error) {

	prices, err := s.svc.GameState.SellingPricesTx(ctx, tx, gs.OwnerID, business.ID)
	if err != nil {
		return nil, err
	}
	campaigns, events, err := s.svc.Events.ActiveBoostsTx(ctx, tx, gs.OwnerID, business.ID, date)
	if err != nil {
		return nil, err
	}

	sales := make([]SaleResult, 0, len(products))
	for _, p := range products {
		price, ok := prices[p.ID]
		if !ok {
			price = p.DefaultPrice
		}
		demand := s.demand.Compute(DemandInput{
			Product:       p,
			Date:          date,
			StartDate:     gs.StartDate,
			Price:         price,
			CampaignBoost: CombinedBoost(campaigns, p, date),
			EventBoost:    CombinedBoost(events, p, date),
			Volatility:    business.Volatility,
		}, s.rng)

		stock, err := s.svc.Inventory.CurrentStockTx(ctx, tx, gs.OwnerID, p.ID)
		if err != nil {
			return nil, err
		}
		sale := SaleResult{
			ProductID:      p.ID,
			SKU:            p.SKU,
			Demand:         demand.Units,
			UnitsSold:      min(demand.Units, stock),
			Price:          price,
			Revenue:        decimal.Zero,
			CostOfGoods:    decimal.Zero,
			StockRemaining: stock,
			Factors:        demand,
		}
		if sale.UnitsSold == 0 {
			sales = append(sales, sale)
			continue
		}

		key := saleKey(gs.OwnerID, business.ID, date, p.ID)
		posted, err := s.svc.Ledger.HasPostingTx(ctx, tx, key)
		if err != nil {
			return nil, err
		}
		if posted {
			s.logger.WithField("idempotency_key", key).Warn("sale already posted, skipping")
			sale.UnitsSold = 0
			sales = append(sales, sale)
			continue
		}

		c, err := s.svc.Inventory.ConsumeTx(ctx, tx, gs.OwnerID, p.ID, sale.UnitsSold)
		if err != nil {
			if errors.Is(err, ErrInsufficientStock) {
				logging.LogError(s.logger, "core", "sellTx", "demand was clamped to stock but consumption failed",
					map[string]any{"product_id": p.ID, "units": sale.UnitsSold, "stock": stock}, err)
			}
			return nil, err
		}
		sale.Revenue = RoundMoney(price.Mul(decimal.NewFromInt(int64(sale.UnitsSold))))
		sale.CostOfGoods = c.TotalCost
		sale.StockRemaining = stock - sale.UnitsSold

		posting := SalePosting(gs.OwnerID, business.ID, p, date, sale.UnitsSold, sale.Revenue, sale.CostOfGoods)
		posting.Normalize()
		if len(posting.Lines) > 0 {
			if sale.TransactionID, err = s.svc.Ledger.PostTx(ctx, tx, posting); err != nil {
				if errors.Is(err, ErrImbalancedTransaction) {
					logging.LogError(s.logger, "core", "sellTx", "sale posting does not balance",
						map[string]any{"product_id": p.ID, "key": key}, err)
				}
				return nil, err
			}
		}
		if err := s.svc.Inventory.RecordConsumptionTx(ctx, tx, c, date, sale.TransactionID); err != nil {
			return nil, err
		}
		sales = append(sales, sale)
	}
	return sales, nil
}
