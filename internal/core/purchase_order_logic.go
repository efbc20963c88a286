package core

import (
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// UnitCostFor resolves the unit cost for qty under an offer's volume tiers.
// Without tiers the offer's unit cost applies; with tiers, qty must fall inside one.
func UnitCostFor(offer VendorOffer, qty int) (decimal.Decimal, error) {
	if qty < offer.MinimumOrderQuantity {
		return decimal.Zero, invalid("quantity", "product %d: %d is below the minimum order quantity %d",
			offer.ProductID, qty, offer.MinimumOrderQuantity)
	}
	if len(offer.Tiers) == 0 {
		return offer.UnitCost, nil
	}
	for _, tier := range offer.Tiers {
		if qty >= tier.MinQuantity && (tier.MaxQuantity == nil || qty <= *tier.MaxQuantity) {
			return tier.UnitCost, nil
		}
	}
	return decimal.Zero, invalid("quantity", "product %d: %d is outside every volume tier", offer.ProductID, qty)
}

// QuoteOrder prices an order against a vendor's offers without touching storage.
// offers is keyed by product id. Lines come out in product id order.
func QuoteOrder(vendor Vendor, offers map[int]VendorOffer, quantities map[int]int, orderDate time.Time) (*OrderQuote, error) {
	if vendor.Status != VendorAvailable {
		return nil, invalid("vendor_id", "vendor %d is %s and does not accept orders", vendor.ID, vendor.Status)
	}
	if len(quantities) == 0 {
		return nil, invalid("quantities", "order must contain at least one product")
	}

	productIDs := make([]int, 0, len(quantities))
	for id := range quantities {
		productIDs = append(productIDs, id)
	}
	sort.Ints(productIDs)

	q := &OrderQuote{Goods: decimal.Zero, Shipping: vendor.ShippingFee}
	for i, productID := range productIDs {
		qty := quantities[productID]
		if qty <= 0 {
			return nil, invalid("quantities", "product %d: quantity must be positive, got %d", productID, qty)
		}
		offer, ok := offers[productID]
		if !ok {
			return nil, invalid("quantities", "vendor %d does not offer product %d", vendor.ID, productID)
		}
		unitCost, err := UnitCostFor(offer, qty)
		if err != nil {
			return nil, err
		}
		lineTotal := RoundMoney(unitCost.Mul(decimal.NewFromInt(int64(qty))))
		q.Lines = append(q.Lines, PurchaseOrderLine{
			LineNumber: i + 1,
			ProductID:  productID,
			Quantity:   qty,
			UnitCost:   unitCost,
			LineTotal:  lineTotal,
		})
		q.Goods = q.Goods.Add(lineTotal)
	}

	if q.Goods.LessThan(vendor.MinimumOrderValue) {
		return nil, invalid("total", "order total %s is below vendor minimum %s",
			FormatMoney(q.Goods), FormatMoney(vendor.MinimumOrderValue))
	}

	q.Total = q.Goods.Add(q.Shipping)
	if !q.Total.IsPositive() {
		return nil, invalid("total", "order total must be positive, got %s", FormatMoney(q.Total))
	}
	q.ArrivalDate = Date(orderDate).AddDate(0, 0, vendor.LeadTimeDays)
	return q, nil
}

// ArrivalPosting books a delivery: inventory and shipping against accounts payable.
func ArrivalPosting(po PurchaseOrder, date time.Time) Posting {
	desc := "Goods received: purchase order " + strconv.Itoa(po.ID)
	return Posting{
		OwnerID:        po.OwnerID,
		BusinessID:     po.BusinessID,
		Date:           date,
		Description:    desc,
		IdempotencyKey: "arrival:" + strconv.Itoa(po.ID),
		Lines: []PostingLine{
			Debit(AccountInventory, po.GoodsAmount, desc),
			Debit(AccountShippingExpense, po.ShippingAmount, "Shipping fee"),
			Credit(AccountAccountsPayable, po.TotalAmount, desc),
		},
	}
}

// BillPosting settles a payable in cash.
func BillPosting(ap AccountsPayable, date time.Time) Posting {
	desc := "Bill payment: purchase order " + strconv.Itoa(ap.PurchaseOrderID)
	return Posting{
		OwnerID:        ap.OwnerID,
		BusinessID:     ap.BusinessID,
		Date:           date,
		Description:    desc,
		IdempotencyKey: "bill:" + strconv.Itoa(ap.ID),
		Lines: []PostingLine{
			Debit(AccountAccountsPayable, ap.AmountDue, desc),
			Credit(AccountCash, ap.AmountDue, desc),
		},
	}
}
