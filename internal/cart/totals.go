package cart

import (
	"github.com/shopspring/decimal"

	"github.com/chopbox/api/internal/enum"
)

// DeliveryFeePolicy prices delivery for a cart subtotal.
type DeliveryFeePolicy func(subtotal decimal.Decimal) decimal.Decimal

// NoDeliveryFee charges nothing for delivery.
func NoDeliveryFee(decimal.Decimal) decimal.Decimal { return decimal.Zero }

// Policy configures how totals are derived from lines. A zero TaxRate
// disables tax; a nil DeliveryFee is treated as NoDeliveryFee.
type Policy struct {
	TaxRate     decimal.Decimal
	DeliveryFee DeliveryFeePolicy
}

type Totals struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	Tax         decimal.Decimal `json:"tax"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	Total       decimal.Decimal `json:"total"`
}

// Totals sums line subtotals and applies tax and the delivery fee. The fee
// only applies to delivery orders.
func (c *Cart) Totals(p Policy) Totals {
	t := Totals{Subtotal: decimal.Zero, Tax: decimal.Zero, DeliveryFee: decimal.Zero}
	for _, l := range c.lines {
		t.Subtotal = t.Subtotal.Add(l.Subtotal)
	}
	if p.TaxRate.IsPositive() {
		t.Tax = t.Subtotal.Mul(p.TaxRate).Round(2)
	}
	if c.OrderType == enum.OrderTypeDelivery {
		fee := p.DeliveryFee
		if fee == nil {
			fee = NoDeliveryFee
		}
		t.DeliveryFee = fee(t.Subtotal)
	}
	t.Total = t.Subtotal.Add(t.Tax).Add(t.DeliveryFee)
	return t
}
