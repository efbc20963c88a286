package core

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// SaleResult reports one product's sales for one day.
type SaleResult struct {
	ProductID      int             `json:"product_id"`
	SKU            string          `json:"sku"`
	Demand         int             `json:"demand"`
	UnitsSold      int             `json:"units_sold"`
	Price          decimal.Decimal `json:"price"`
	Revenue        decimal.Decimal `json:"revenue"`
	CostOfGoods    decimal.Decimal `json:"cost_of_goods"`
	StockRemaining int             `json:"stock_remaining"`
	TransactionID  string          `json:"transaction_id,omitempty"`
	Factors        DemandBreakdown `json:"factors"`
}

// Lost is demand that stock could not cover.
func (r SaleResult) Lost() int {
	return r.Demand - r.UnitsSold
}

func saleKey(ownerID, businessID int, date time.Time, productID int) string {
	return fmt.Sprintf("sale:%d:%d:%s:%d", ownerID, businessID, FormatDate(date), productID)
}

// SalePosting books a day's sales of one product: cash against revenue, and the FIFO cost
// of the units moved from Inventory to Cost of Goods Sold.
func SalePosting(ownerID, businessID int, p Product, date time.Time, units int, revenue, cogs decimal.Decimal) Posting {
	desc := fmt.Sprintf("Sales of %d x %s", units, p.SKU)
	return Posting{
		OwnerID:        ownerID,
		BusinessID:     businessID,
		Date:           date,
		Description:    desc,
		IdempotencyKey: saleKey(ownerID, businessID, date, p.ID),
		Lines: []PostingLine{
			Debit(AccountCash, revenue, desc),
			Credit(AccountSalesRevenue, revenue, desc),
			Debit(AccountCOGS, cogs, desc),
			Credit(AccountInventory, cogs, desc),
		},
	}
}
