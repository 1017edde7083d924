package coupon

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	byCode map[string]*Coupon
	err    error
}

func (m *mockRepo) FindActiveByCode(_ context.Context, code string) (*Coupon, error) {
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.byCode[code]
	if !ok {
		return nil, ErrInvalidCoupon
	}
	return c, nil
}

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func newTestResolver(coupons ...*Coupon) *Resolver {
	byCode := make(map[string]*Coupon, len(coupons))
	for _, c := range coupons {
		byCode[c.Code] = c
	}
	r := NewResolver(&mockRepo{byCode: byCode})
	r.now = func() time.Time { return testNow }
	return r
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "VERANO25", Normalize("  verano25\t"))
	assert.Equal(t, "", Normalize("   "))
}

func TestResolve_EmptyCodeIsNotAnError(t *testing.T) {
	r := newTestResolver()

	c, err := r.Resolve(context.Background(), "   ")
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestResolve_MalformedCode(t *testing.T) {
	r := newTestResolver()

	for _, code := range []string{"SAVE-10", "DESC UENTO", "ÑANDÚ10", "10%OFF"} {
		_, err := r.Resolve(context.Background(), code)
		assert.ErrorIs(t, err, ErrInvalidCoupon, "code %q", code)
	}
}

func TestResolve_UnknownCode(t *testing.T) {
	r := newTestResolver()

	_, err := r.Resolve(context.Background(), "NOSUCHCODE")
	require.ErrorIs(t, err, ErrInvalidCoupon)
}

func TestResolve_ExpiredCoupon(t *testing.T) {
	r := newTestResolver(&Coupon{
		Code:               "VIEJO10",
		DiscountPercentage: decimal.NewFromInt(10),
		ExpiresAt:          testNow.Add(-time.Minute),
		Active:             true,
	})

	_, err := r.Resolve(context.Background(), "VIEJO10")
	require.ErrorIs(t, err, ErrCouponExpired)
}

func TestResolve_ExpiryBoundaryIsExpired(t *testing.T) {
	r := newTestResolver(&Coupon{
		Code:               "JUSTO10",
		DiscountPercentage: decimal.NewFromInt(10),
		ExpiresAt:          testNow,
		Active:             true,
	})

	_, err := r.Resolve(context.Background(), "JUSTO10")
	require.ErrorIs(t, err, ErrCouponExpired)
}

func TestResolve_ValidCoupon(t *testing.T) {
	r := newTestResolver(&Coupon{
		Code:               "VERANO25",
		DiscountPercentage: decimal.NewFromInt(25),
		ExpiresAt:          testNow.Add(24 * time.Hour),
		Active:             true,
	})

	c, err := r.Resolve(context.Background(), "  verano25 ")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "VERANO25", c.Code)
	assert.True(t, decimal.NewFromInt(25).Equal(c.DiscountPercentage))
}
