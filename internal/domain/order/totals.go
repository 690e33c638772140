package order

import (
	"github.com/shopspring/decimal"
	"github.com/your-org/storefront-backend/internal/config"
)

// Totals is the money breakdown of an order. OrderTotal is always
// Subtotal + ShippingFee + Tax - Discount.
type Totals struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	ShippingFee decimal.Decimal `json:"shipping_fee"`
	Tax         decimal.Decimal `json:"tax"`
	Discount    decimal.Decimal `json:"discount"`
	OrderTotal  decimal.Decimal `json:"order_total"`
}

// Adjustments are optional charges supplied by the caller. Nil fields fall
// back to the configured shipping rule and zero tax/discount.
type Adjustments struct {
	ShippingFee *decimal.Decimal `json:"shipping_fee,omitempty"`
	Tax         *decimal.Decimal `json:"tax,omitempty"`
	Discount    *decimal.Decimal `json:"discount,omitempty"`
}

// ShippingFeeFor applies the flat fee unless the subtotal reaches the
// free-shipping threshold. A zero threshold disables free shipping.
func ShippingFeeFor(subtotal decimal.Decimal, cfg config.CheckoutConfig) decimal.Decimal {
	if cfg.FreeShippingAbove.IsPositive() && subtotal.GreaterThanOrEqual(cfg.FreeShippingAbove) {
		return decimal.Zero
	}
	return cfg.ShippingFee
}

// ComputeTotals derives the order total from a subtotal and adjustments.
func ComputeTotals(subtotal decimal.Decimal, adj Adjustments, cfg config.CheckoutConfig) (Totals, error) {
	totals := Totals{
		Subtotal:    subtotal.Round(2),
		ShippingFee: ShippingFeeFor(subtotal, cfg).Round(2),
		Tax:         decimal.Zero,
		Discount:    decimal.Zero,
	}
	if adj.ShippingFee != nil {
		totals.ShippingFee = adj.ShippingFee.Round(2)
	}
	if adj.Tax != nil {
		totals.Tax = adj.Tax.Round(2)
	}
	if adj.Discount != nil {
		totals.Discount = adj.Discount.Round(2)
	}

	for field, v := range map[string]decimal.Decimal{
		"shipping_fee": totals.ShippingFee,
		"tax":          totals.Tax,
		"discount":     totals.Discount,
	} {
		if v.IsNegative() {
			return Totals{}, invalid(field, "cannot be negative")
		}
	}

	totals.OrderTotal = totals.Subtotal.Add(totals.ShippingFee).Add(totals.Tax).Sub(totals.Discount)
	if totals.OrderTotal.IsNegative() {
		return Totals{}, invalid("discount", "exceeds the order value")
	}
	return totals, nil
}
