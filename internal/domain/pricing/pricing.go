// Package pricing computes monetary amounts for checkout.
//
// All amounts are rounded to 2 decimal places, half away from zero, at the
// point of computation. Repeated rounding therefore reproduces the exact
// stored values.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/solmercado/orders-api/internal/domain/product"
)

var hundred = decimal.NewFromInt(100)

// UnitPrice returns the effective unit price of a product. Products flagged
// as discounted with a positive percentage get the reduced price; everything
// else sells at list price. The result is never negative.
func UnitPrice(p product.Product) decimal.Decimal {
	if !p.Discounted || !p.DiscountPct.IsPositive() {
		return p.Price
	}
	price := p.Price.Sub(p.Price.Mul(p.DiscountPct).Div(hundred)).Round(2)
	if price.IsNegative() {
		return decimal.Zero
	}
	return price
}

// LineSubtotal returns unit price times quantity, rounded.
func LineSubtotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}

// CouponDiscount returns the discount a percentage coupon takes off the given
// subtotal. Percentages above 100 are capped; a non-positive percentage or
// subtotal yields zero.
func CouponDiscount(subtotal, percentage decimal.Decimal) decimal.Decimal {
	if !percentage.IsPositive() || !subtotal.IsPositive() {
		return decimal.Zero
	}
	pct := decimal.Min(percentage, hundred)
	return subtotal.Mul(pct).Div(hundred).Round(2)
}

// Total returns subtotal minus discount, floored at zero and rounded.
func Total(subtotal, discount decimal.Decimal) decimal.Decimal {
	total := subtotal.Sub(discount)
	if total.IsNegative() {
		return decimal.Zero
	}
	return total.Round(2)
}
