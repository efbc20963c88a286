package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// SortFIFO orders layers oldest first, breaking same-day ties by layer id.
func SortFIFO(layers []InventoryLayer) {
	sort.SliceStable(layers, func(i, j int) bool {
		if !layers[i].ReceivedDate.Equal(layers[j].ReceivedDate) {
			return layers[i].ReceivedDate.Before(layers[j].ReceivedDate)
		}
		return layers[i].ID < layers[j].ID
	})
}

// PlanConsumption decides which layers satisfy qty. layers must already be in FIFO order.
// It fails with *InsufficientStockError when the layers hold fewer than qty units and
// never returns a take larger than a layer's remaining quantity.
func PlanConsumption(ownerID, productID int, layers []InventoryLayer, qty int) (*Consumption, error) {
	if qty <= 0 {
		return nil, invalid("quantity", "must be positive, got %d", qty)
	}

	available := 0
	for _, l := range layers {
		available += l.QuantityRemaining
	}
	if available < qty {
		return nil, &InsufficientStockError{OwnerID: ownerID, ProductID: productID, Requested: qty, Available: available}
	}

	c := &Consumption{OwnerID: ownerID, ProductID: productID, Quantity: qty, TotalCost: decimal.Zero}
	need := qty
	for _, l := range layers {
		if need == 0 {
			break
		}
		if l.QuantityRemaining <= 0 {
			continue
		}
		take := min(need, l.QuantityRemaining)
		c.Takes = append(c.Takes, LayerTake{LayerID: l.ID, Quantity: take, UnitCost: l.UnitCost})
		c.TotalCost = c.TotalCost.Add(l.UnitCost.Mul(decimal.NewFromInt(int64(take))))
		need -= take
	}
	c.TotalCost = RoundMoney(c.TotalCost)
	return c, nil
}
