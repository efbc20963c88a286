package core

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// Services holds one instance of every store, wired to a shared pool and logger.
type Services struct {
	Catalog   CatalogProvider
	Ledger    *Ledger
	Inventory InventoryService
	GameState GameStateService
	Events    EventService
	Orders    PurchaseOrderService
	Recurring RecurringService
	Summaries SummaryService
}

func NewServices(pool *pgxpool.Pool, events EventParams, logger logrus.FieldLogger) Services {
	catalog := NewCatalogService(pool)
	ledger := NewLedger(pool, logger)
	inventory := NewInventoryService(pool)
	gameState := NewGameStateService(pool, catalog, ledger, logger)
	return Services{
		Catalog:   catalog,
		Ledger:    ledger,
		Inventory: inventory,
		GameState: gameState,
		Events:    NewEventService(pool, ledger, gameState, events, logger),
		Orders:    NewPurchaseOrderService(pool, catalog, inventory, ledger, gameState, logger),
		Recurring: NewRecurringService(pool, ledger, logger),
		Summaries: NewSummaryService(pool),
	}
}
