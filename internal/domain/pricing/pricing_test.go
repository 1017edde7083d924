package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/solmercado/orders-api/internal/domain/product"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestUnitPrice(t *testing.T) {
	tests := []struct {
		name        string
		price       string
		discounted  bool
		discountPct string
		want        string
	}{
		{"list price", "100.00", false, "0", "100.00"},
		{"discount flag without pct", "100.00", true, "0", "100.00"},
		{"pct without discount flag", "100.00", false, "10", "100.00"},
		{"ten percent off", "145.50", true, "10", "130.95"},
		{"rounds half away from zero", "10.01", true, "2.5", "9.76"},
		{"full discount", "80.00", true, "100", "0.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := product.Product{
				Price:       d(tt.price),
				Discounted:  tt.discounted,
				DiscountPct: d(tt.discountPct),
			}
			assert.True(t, d(tt.want).Equal(UnitPrice(p)), "got %s", UnitPrice(p))
		})
	}
}

func TestLineSubtotal(t *testing.T) {
	assert.True(t, d("30.00").Equal(LineSubtotal(d("10.00"), 3)))
	assert.True(t, d("0.03").Equal(LineSubtotal(d("0.01"), 3)))
	assert.True(t, d("393.00").Equal(LineSubtotal(d("131.00"), 3)))
}

func TestCouponDiscount(t *testing.T) {
	tests := []struct {
		name       string
		subtotal   string
		percentage string
		want       string
	}{
		{"ten percent", "200.00", "10", "20.00"},
		{"rounds half away from zero", "10.01", "2.5", "0.25"},
		{"zero percentage", "200.00", "0", "0"},
		{"negative percentage", "200.00", "-5", "0"},
		{"zero subtotal", "0", "10", "0"},
		{"capped at one hundred", "50.00", "150", "50.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CouponDiscount(d(tt.subtotal), d(tt.percentage))
			assert.True(t, d(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestTotal(t *testing.T) {
	assert.True(t, d("180.00").Equal(Total(d("200.00"), d("20.00"))))
	assert.True(t, d("0").Equal(Total(d("20.00"), d("20.00"))))
	assert.True(t, d("0").Equal(Total(d("10.00"), d("999.00"))), "total never goes negative")
}
