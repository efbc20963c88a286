package core

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// EventService stores market events and campaigns and answers which boosts apply on a date.
type EventService interface {
	ActiveEvents(ctx context.Context, ownerID, businessID int, date time.Time) ([]MarketEvent, error)
	ActiveCampaigns(ctx context.Context, ownerID, businessID int, date time.Time) ([]Campaign, error)
	// ActiveBoostsTx returns campaign boosts and event boosts active on date, in that order.
	ActiveBoostsTx(ctx context.Context, tx pgx.Tx, ownerID, businessID int, date time.Time) (campaigns, events []Boost, err error)
	// MaybeTriggerTx rolls for a random event and persists it when one fires.
	MaybeTriggerTx(ctx context.Context, tx pgx.Tx, gs *GameState, business *Business, date time.Time, rng RandomSource) (*MarketEvent, error)
	// LaunchCampaign pays the campaign cost on the current game date; the boost starts the next day.
	LaunchCampaign(ctx context.Context, in CampaignInput) (*Campaign, error)
}

type eventService struct {
	pool      *pgxpool.Pool
	ledger    LedgerService
	gameState GameStateService
	params    EventParams
	logger    logrus.FieldLogger
}

func NewEventService(pool *pgxpool.Pool, ledger LedgerService, gameState GameStateService, params EventParams, logger logrus.FieldLogger) EventService {
	return &eventService{pool: pool, ledger: ledger, gameState: gameState, params: params, logger: logger}
}

const eventColumns = `id, owner_id, business_id, name, description, start_date, end_date,
	boost_multiplier, target_type, target_id, target_attribute, target_value`

func scanEvents(rows pgx.Rows) ([]MarketEvent, error) {
	defer rows.Close()
	var out []MarketEvent
	for rows.Next() {
		var e MarketEvent
		if err := rows.Scan(&e.ID, &e.OwnerID, &e.BusinessID, &e.Name, &e.Description, &e.StartDate, &e.EndDate,
			&e.BoostMultiplier, &e.Type, &e.TargetID, &e.Attribute, &e.Value); err != nil {
			return nil, fmt.Errorf("scan market event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

const campaignColumns = `id, owner_id, business_id, name, start_date, end_date,
	boost_multiplier, cost, target_type, target_id, target_attribute, target_value`

func scanCampaigns(rows pgx.Rows) ([]Campaign, error) {
	defer rows.Close()
	var out []Campaign
	for rows.Next() {
		var c Campaign
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.BusinessID, &c.Name, &c.StartDate, &c.EndDate,
			&c.BoostMultiplier, &c.Cost, &c.Type, &c.TargetID, &c.Attribute, &c.Value); err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func activeEvents(ctx context.Context, q querier, ownerID, businessID int, date time.Time) ([]MarketEvent, error) {
	rows, err := q.Query(ctx, "SELECT "+eventColumns+`
		FROM market_events
		WHERE owner_id = $1 AND business_id = $2 AND start_date <= $3 AND end_date >= $3
		ORDER BY id`,
		ownerID, businessID, Date(date))
	if err != nil {
		return nil, fmt.Errorf("query active events: %w", err)
	}
	return scanEvents(rows)
}

func activeCampaigns(ctx context.Context, q querier, ownerID, businessID int, date time.Time) ([]Campaign, error) {
	rows, err := q.Query(ctx, "SELECT "+campaignColumns+`
		FROM campaigns
		WHERE owner_id = $1 AND business_id = $2 AND start_date <= $3 AND end_date >= $3
		ORDER BY id`,
		ownerID, businessID, Date(date))
	if err != nil {
		return nil, fmt.Errorf("query active campaigns: %w", err)
	}
	return scanCampaigns(rows)
}

func (s *eventService) ActiveEvents(ctx context.Context, ownerID, businessID int, date time.Time) ([]MarketEvent, error) {
	return activeEvents(ctx, s.pool, ownerID, businessID, date)
}

func (s *eventService) ActiveCampaigns(ctx context.Context, ownerID, businessID int, date time.Time) ([]Campaign, error) {
	return activeCampaigns(ctx, s.pool, ownerID, businessID, date)
}

func (s *eventService) ActiveBoostsTx(ctx context.Context, tx pgx.Tx, ownerID, businessID int, date time.Time) ([]Boost, []Boost, error) {
	cs, err := activeCampaigns(ctx, tx, ownerID, businessID, date)
	if err != nil {
		return nil, nil, err
	}
	es, err := activeEvents(ctx, tx, ownerID, businessID, date)
	if err != nil {
		return nil, nil, err
	}

	campaigns := make([]Boost, 0, len(cs))
	for _, c := range cs {
		campaigns = append(campaigns, c.Boost())
	}
	events := make([]Boost, 0, len(es))
	for _, e := range es {
		events = append(events, e.Boost())
	}
	return campaigns, events, nil
}

func (s *eventService) MaybeTriggerTx(ctx context.Context, tx pgx.Tx, gs *GameState, business *Business, date time.Time, rng RandomSource) (*MarketEvent, error) {
	days := DaysBetween(gs.StartDate, date)
	ev := s.params.RollEvent(EventTemplates(business.Code), days, date, rng)
	if ev == nil {
		return nil, nil
	}
	ev.OwnerID = gs.OwnerID
	ev.BusinessID = business.ID

	err := tx.QueryRow(ctx, `
		INSERT INTO market_events (owner_id, business_id, name, description, start_date, end_date,
		                           boost_multiplier, target_type, target_id, target_attribute, target_value)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`, ev.OwnerID, ev.BusinessID, ev.Name, ev.Description, ev.StartDate, ev.EndDate,
		ev.BoostMultiplier, ev.Type, ev.TargetID, ev.Attribute, ev.Value).Scan(&ev.ID)
	if err != nil {
		return nil, fmt.Errorf("insert market event: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"owner_id":    ev.OwnerID,
		"business_id": ev.BusinessID,
		"event":       ev.Name,
		"start_date":  FormatDate(ev.StartDate),
		"end_date":    FormatDate(ev.EndDate),
		"boost":       ev.BoostMultiplier.String(),
	}).Info("market event started")
	return ev, nil
}

func (s *eventService) LaunchCampaign(ctx context.Context, in CampaignInput) (*Campaign, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	gs, err := s.gameState.LockTx(ctx, tx, in.OwnerID, in.BusinessID)
	if err != nil {
		return nil, err
	}

	if in.Cost.IsPositive() {
		cash, err := s.ledger.BalanceAsOfTx(ctx, tx, in.OwnerID, in.BusinessID, AccountCash, gs.CurrentDate)
		if err != nil {
			return nil, err
		}
		if cash.LessThan(in.Cost) {
			return nil, invalid("cost", "campaign costs %s but only %s cash is available",
				FormatMoney(in.Cost), FormatMoney(cash))
		}
	}

	// The current date is already simulated, so the campaign runs from the next day.
	start := gs.CurrentDate.AddDate(0, 0, 1)
	c := &Campaign{
		OwnerID:         in.OwnerID,
		BusinessID:      in.BusinessID,
		Name:            in.Name,
		StartDate:       start,
		EndDate:         start.AddDate(0, 0, in.DurationDays-1),
		BoostMultiplier: in.BoostMultiplier,
		Cost:            in.Cost,
		Targeting:       in.Target,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO campaigns (owner_id, business_id, name, start_date, end_date, boost_multiplier, cost,
		                       target_type, target_id, target_attribute, target_value)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`, c.OwnerID, c.BusinessID, c.Name, c.StartDate, c.EndDate, c.BoostMultiplier, c.Cost,
		c.Type, c.TargetID, c.Attribute, c.Value).Scan(&c.ID)
	if err != nil {
		return nil, fmt.Errorf("insert campaign: %w", err)
	}

	if c.Cost.IsPositive() {
		_, err := s.ledger.PostTx(ctx, tx, Posting{
			OwnerID:        c.OwnerID,
			BusinessID:     c.BusinessID,
			Date:           gs.CurrentDate,
			Description:    "Marketing campaign: " + c.Name,
			IdempotencyKey: fmt.Sprintf("campaign:%d", c.ID),
			Lines: []PostingLine{
				Debit(AccountMarketingExpense, c.Cost, c.Name),
				Credit(AccountCash, c.Cost, c.Name),
			},
		})
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit campaign: %w", err)
	}
	return c, nil
}

