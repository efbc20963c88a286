package app

import (
	"harvest-engine/internal/core"

	"github.com/shopspring/decimal"
)

func toGameResult(gs *core.GameState, cash decimal.Decimal) *GameResult {
	return &GameResult{
		OwnerID:     gs.OwnerID,
		BusinessID:  gs.BusinessID,
		StartDate:   core.FormatDate(gs.StartDate),
		CurrentDate: core.FormatDate(gs.CurrentDate),
		Cash:        core.FormatMoney(cash),
	}
}

func toOrderResult(po *core.PurchaseOrder) *OrderResult {
	r := &OrderResult{
		OrderID:             po.ID,
		VendorID:            po.VendorID,
		Status:              string(po.Status),
		OrderDate:           core.FormatDate(po.OrderDate),
		ExpectedArrivalDate: core.FormatDate(po.ExpectedArrivalDate),
		Goods:               core.FormatMoney(po.GoodsAmount),
		Shipping:            core.FormatMoney(po.ShippingAmount),
		Total:               core.FormatMoney(po.TotalAmount),
		Lines:               make([]OrderLineResult, 0, len(po.Lines)),
	}
	if po.ActualArrivalDate != nil {
		r.ActualArrivalDate = core.FormatDate(*po.ActualArrivalDate)
	}
	for _, l := range po.Lines {
		r.Lines = append(r.Lines, OrderLineResult{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitCost:  core.FormatMoney(l.UnitCost),
			LineTotal: core.FormatMoney(l.LineTotal),
		})
	}
	return r
}

func toShortfallLines(in []core.CashShortfall) []ShortfallLine {
	out := make([]ShortfallLine, 0, len(in))
	for _, sf := range in {
		out = append(out, ShortfallLine{
			Date:          core.FormatDate(sf.Date),
			Kind:          sf.Kind,
			Reference:     sf.Reference,
			AmountDue:     core.FormatMoney(sf.AmountDue),
			CashAvailable: core.FormatMoney(sf.CashAvailable),
		})
	}
	return out
}

func toDaySummary(d core.DayResult) DaySummary {
	s := DaySummary{
		Date:       core.FormatDate(d.Date),
		Deliveries: make([]int, 0, len(d.Deliveries)),
		Sales:      make([]SaleLine, 0, len(d.Sales)),
		BillsPaid:  make([]int, 0, len(d.BillsPaid)),
		Recurring:  make([]string, 0, len(d.Recurring)),
		Shortfalls: toShortfallLines(d.Shortfalls),
		Cash:       core.FormatMoney(d.CashBalance),
	}
	for _, del := range d.Deliveries {
		s.Deliveries = append(s.Deliveries, del.OrderID)
	}
	for _, sale := range d.Sales {
		s.Sales = append(s.Sales, SaleLine{
			ProductID:      sale.ProductID,
			SKU:            sale.SKU,
			Demand:         sale.Demand,
			UnitsSold:      sale.UnitsSold,
			Price:          core.FormatMoney(sale.Price),
			Revenue:        core.FormatMoney(sale.Revenue),
			COGS:           core.FormatMoney(sale.CostOfGoods),
			StockRemaining: sale.StockRemaining,
		})
	}
	for _, bill := range d.BillsPaid {
		s.BillsPaid = append(s.BillsPaid, bill.PayableID)
	}
	for _, rc := range d.Recurring {
		s.Recurring = append(s.Recurring, rc.Description)
	}
	if d.EventStarted != nil {
		s.EventStarted = d.EventStarted.Name
	}
	return s
}

func toAdvanceResult(r *core.AdvanceResult) *AdvanceResult {
	if r == nil {
		return nil
	}
	out := &AdvanceResult{
		CurrentDate: core.FormatDate(r.CurrentDate),
		Days:        make([]DaySummary, 0, len(r.Days)),
	}
	for _, d := range r.Days {
		out.Days = append(out.Days, toDaySummary(d))
	}
	return out
}

func eventBoost(e core.MarketEvent) BoostResult {
	return BoostResult{
		ID:         e.ID,
		Kind:       "EVENT",
		Name:       e.Name,
		StartDate:  core.FormatDate(e.StartDate),
		EndDate:    core.FormatDate(e.EndDate),
		Multiplier: e.BoostMultiplier.String(),
		TargetType: string(e.Type),
	}
}

func campaignBoost(c core.Campaign) BoostResult {
	return BoostResult{
		ID:         c.ID,
		Kind:       "CAMPAIGN",
		Name:       c.Name,
		StartDate:  core.FormatDate(c.StartDate),
		EndDate:    core.FormatDate(c.EndDate),
		Multiplier: c.BoostMultiplier.String(),
		TargetType: string(c.Type),
	}
}

func toSalesSummary(from, to string, rows []core.DailySales) *SalesSummaryResult {
	out := &SalesSummaryResult{From: from, To: to, Rows: make([]SalesRow, 0, len(rows))}
	revenue, cogs := decimal.Zero, decimal.Zero
	for _, r := range rows {
		out.Rows = append(out.Rows, SalesRow{
			Date:        core.FormatDate(r.Date),
			ProductID:   r.ProductID,
			UnitsSold:   r.UnitsSold,
			Revenue:     core.FormatMoney(r.Revenue),
			COGS:        core.FormatMoney(r.CostOfGoodsSold),
			GrossProfit: core.FormatMoney(r.GrossProfit()),
		})
		out.Units += r.UnitsSold
		revenue = revenue.Add(r.Revenue)
		cogs = cogs.Add(r.CostOfGoodsSold)
	}
	out.Revenue = core.FormatMoney(revenue)
	out.COGS = core.FormatMoney(cogs)
	return out
}

func toStatement(account string, lines []core.StatementLine) *AccountStatementResult {
	out := &AccountStatementResult{Account: account, Lines: make([]StatementLineResult, 0, len(lines))}
	for _, l := range lines {
		out.Lines = append(out.Lines, StatementLineResult{
			Date:           core.FormatDate(l.Date),
			TransactionID:  l.TransactionID,
			Description:    l.Description,
			Debit:          core.FormatMoney(l.Debit),
			Credit:         core.FormatMoney(l.Credit),
			RunningBalance: core.FormatMoney(l.RunningBalance),
		})
	}
	return out
}
