package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidCoupon is returned when a coupon code is malformed, unknown,
	// or inactive.
	ErrInvalidCoupon = errors.New("invalid coupon code")
	// ErrCouponExpired is returned when a coupon exists but is past its
	// expiry time.
	ErrCouponExpired = errors.New("coupon expired")
)

// Coupon is a named, time-bounded percentage discount.
type Coupon struct {
	Code               string
	DiscountPercentage decimal.Decimal
	ExpiresAt          time.Time
	Active             bool
}

// Repository provides lookup of coupons by code.
type Repository interface {
	// FindActiveByCode returns the active coupon with the given normalized
	// code, or ErrInvalidCoupon when none exists.
	FindActiveByCode(ctx context.Context, code string) (*Coupon, error)
}
