package order

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/solmercado/orders-api/internal/domain/coupon"
	"github.com/solmercado/orders-api/internal/domain/pricing"
	"github.com/solmercado/orders-api/internal/domain/product"
)

// Sentinel errors for order operations.
var (
	ErrEmptyItems   = fmt.Errorf("items required")
	ErrNotFound     = fmt.Errorf("order not found")
	ErrDuplicateKey = fmt.Errorf("duplicate key")
)

// ValidationError indicates a required customer field is missing or blank.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// ProductNotFoundError indicates a referenced product does not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InvalidStatusError indicates a requested target status is unknown or must
// go through the dedicated cancel operation.
type InvalidStatusError struct {
	Status Status
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("invalid status %q", e.Status)
}

// CouponResolver resolves an optional coupon code at checkout time.
type CouponResolver interface {
	Resolve(ctx context.Context, code string) (*coupon.Coupon, error)
}

// CreateRequest holds the input for a WhatsApp checkout.
type CreateRequest struct {
	Items        []CreateItem
	CustomerName string
	Phone        string
	Address      string
	CouponCode   string
}

// CreateItem is one requested cart line.
type CreateItem struct {
	ProductID string
	Quantity  int
}

// Service implements the order lifecycle: creation, status transitions,
// cancellation, and operator listing.
type Service struct {
	products  product.Repository
	coupons   CouponResolver
	orders    Repository
	sequencer Sequencer
	now       func() time.Time
}

// NewService creates an order Service with the required dependencies.
func NewService(
	products product.Repository,
	coupons CouponResolver,
	orders Repository,
	sequencer Sequencer,
) *Service {
	return &Service{
		products:  products,
		coupons:   coupons,
		orders:    orders,
		sequencer: sequencer,
		now:       time.Now,
	}
}

// Create builds and persists a new order from cart-like input.
//
// The order is captured optimistically: status starts at paid_whatsapp with
// paidAt set, and reconciliationNeeded stays true until the order is
// delivered. The order number comes from the sequencer before the write, so
// a failed persist leaves a gap in the sequence, never a duplicate.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	name := strings.TrimSpace(req.CustomerName)
	phone := normalizePhone(req.Phone)
	address := strings.TrimSpace(req.Address)
	switch {
	case name == "":
		return nil, &ValidationError{Field: "customerName"}
	case phone == "":
		return nil, &ValidationError{Field: "phone"}
	case address == "":
		return nil, &ValidationError{Field: "address"}
	}

	ids := make([]string, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: item.ProductID}
		}
		ids[i] = item.ProductID
	}

	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	productMap := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		productMap[p.ID] = p
	}

	// Build order lines. Lines referencing the same product stay separate.
	items := make([]Item, len(req.Items))
	subtotal := decimal.Zero
	for i, item := range req.Items {
		p, ok := productMap[item.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: item.ProductID}
		}
		unit := pricing.UnitPrice(p)
		line := pricing.LineSubtotal(unit, item.Quantity)
		items[i] = Item{
			ProductID:    p.ID,
			Name:         p.Name,
			UnitPrice:    unit,
			Quantity:     item.Quantity,
			LineSubtotal: line,
		}
		subtotal = subtotal.Add(line)
	}
	subtotal = subtotal.Round(2)

	var applied *AppliedCoupon
	discount := decimal.Zero
	c, err := s.coupons.Resolve(ctx, req.CouponCode)
	if err != nil {
		return nil, fmt.Errorf("resolve coupon: %w", err)
	}
	if c != nil {
		discount = pricing.CouponDiscount(subtotal, c.DiscountPercentage)
		applied = &AppliedCoupon{
			Code:               c.Code,
			DiscountPercentage: c.DiscountPercentage,
			DiscountAmount:     discount,
		}
	}
	total := pricing.Total(subtotal, discount)

	number, err := s.sequencer.Next(ctx)
	if err != nil {
		return nil, fmt.Errorf("next order number: %w", err)
	}

	now := s.now()
	o := &Order{
		ID:                   uuid.New().String(),
		OrderNumber:          number,
		Items:                items,
		Subtotal:             subtotal,
		Coupon:               applied,
		DiscountAmount:       discount,
		Total:                total,
		CustomerName:         name,
		Phone:                phone,
		Address:              address,
		Status:               StatusPaidWhatsApp,
		OptimisticPaid:       true,
		ReconciliationNeeded: true,
		PaidAt:               &now,
		Log: []LogEntry{{
			Timestamp:   now,
			Action:      "created",
			StatusAfter: StatusPaidWhatsApp,
			Reason:      "Order captured via WhatsApp checkout",
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	return o, nil
}

// Transition moves an order to a new status and appends an audit log entry.
//
// Requesting the current status is an accepted no-op; so is any request
// against a cancelled order, which is terminal. Cancellation itself must go
// through Cancel and is rejected here.
func (s *Service) Transition(ctx context.Context, id string, target Status, reason string, actor Actor) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	switch canTransition(o.Status, target) {
	case transitionDenied:
		return nil, &InvalidStatusError{Status: target}
	case transitionNoop:
		return o, nil
	}

	now := s.now()
	before := o.Status
	o.Status = target
	if target.IsPaidLike() && o.PaidAt == nil {
		o.PaidAt = &now
	}
	if target == StatusDelivered {
		o.ReconciliationNeeded = false
	}
	o.Log = append(o.Log, LogEntry{
		Timestamp:     now,
		Action:        "status_changed",
		StatusBefore:  before,
		StatusAfter:   target,
		Reason:        reason,
		ChangedBy:     actor.ID,
		ChangedByName: actor.Name,
	})
	o.UpdatedAt = now

	if err := s.orders.Update(ctx, o); err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}
	return o, nil
}

// Cancel moves an order to the terminal cancelled state. Cancelling an
// already-cancelled order is an accepted no-op. The payment flag is cleared
// and the order goes back to needing reconciliation.
func (s *Service) Cancel(ctx context.Context, id, reason string, actor Actor) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Status == StatusCancelled {
		return o, nil
	}

	now := s.now()
	before := o.Status
	o.Status = StatusCancelled
	o.OptimisticPaid = false
	o.ReconciliationNeeded = true
	o.CanceledAt = &now
	o.CanceledBy = actor.ID
	o.CanceledByName = actor.Name
	o.Log = append(o.Log, LogEntry{
		Timestamp:     now,
		Action:        "cancelled",
		StatusBefore:  before,
		StatusAfter:   StatusCancelled,
		Reason:        reason,
		ChangedBy:     actor.ID,
		ChangedByName: actor.Name,
	})
	o.UpdatedAt = now

	if err := s.orders.Update(ctx, o); err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}
	return o, nil
}

// List returns orders for operator views, newest first. An unrecognized
// status filter is silently dropped, and the search term is reduced to
// letters, digits, spaces, and hyphens before it reaches the store.
func (s *Service) List(ctx context.Context, f Filter) ([]Order, error) {
	if !f.Status.IsValid() {
		f.Status = ""
	}
	f.Search = sanitizeSearch(f.Search)
	return s.orders.List(ctx, f)
}

// normalizePhone keeps only the digits of a phone number.
func normalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// sanitizeSearch strips characters outside letters, digits, space, and
// hyphen so the term cannot act as a pattern-matching metacharacter
// sequence in the store. Letters are Unicode letters: customer names here
// are mostly Spanish, and an accent-stripping filter would make them
// unsearchable.
func sanitizeSearch(term string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(term) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
