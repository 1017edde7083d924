package coupon

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/go-faster/errors"
)

var codePattern = regexp.MustCompile(`^[A-Z0-9]+$`)

// Normalize strips surrounding whitespace and uppercases a coupon code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Resolver looks up and validates coupon codes at checkout time.
type Resolver struct {
	repo Repository
	now  func() time.Time
}

// NewResolver creates a Resolver backed by the given Repository.
func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo, now: time.Now}
}

// Resolve normalizes and validates the given code and returns the usable
// coupon. An empty code is not an error: the checkout simply proceeds without
// a coupon, so Resolve returns (nil, nil). A malformed or unknown code yields
// ErrInvalidCoupon; an inactive coupon is indistinguishable from an unknown
// one, while a known-but-expired coupon yields ErrCouponExpired.
func (r *Resolver) Resolve(ctx context.Context, code string) (*Coupon, error) {
	code = Normalize(code)
	if code == "" {
		return nil, nil
	}
	if !codePattern.MatchString(code) {
		return nil, ErrInvalidCoupon
	}

	c, err := r.repo.FindActiveByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrInvalidCoupon) {
			return nil, ErrInvalidCoupon
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	if !c.ExpiresAt.After(r.now()) {
		return nil, ErrCouponExpired
	}
	return c, nil
}
