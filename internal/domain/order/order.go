package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// BaseOrderNumber is the first order number ever handed out.
const BaseOrderNumber = 10001

// Order is a customer's checked-out purchase request with its pricing,
// status history, and reconciliation flags.
type Order struct {
	ID          string
	OrderNumber int64
	Items       []Item

	Subtotal       decimal.Decimal
	Coupon         *AppliedCoupon
	DiscountAmount decimal.Decimal
	Total          decimal.Decimal

	CustomerName string
	Phone        string
	Address      string

	Status               Status
	OptimisticPaid       bool
	ReconciliationNeeded bool
	PaidAt               *time.Time

	CanceledAt     *time.Time
	CanceledBy     string
	CanceledByName string

	Log []LogEntry

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Item is a single order line. Repeated references to the same product stay
// separate lines; no deduplication happens at checkout.
type Item struct {
	ProductID    string          `json:"productId"`
	Name         string          `json:"name"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	Quantity     int             `json:"quantity"`
	LineSubtotal decimal.Decimal `json:"lineSubtotal"`
}

// AppliedCoupon snapshots the coupon that was applied at checkout.
type AppliedCoupon struct {
	Code               string          `json:"code"`
	DiscountPercentage decimal.Decimal `json:"discountPercentage"`
	DiscountAmount     decimal.Decimal `json:"discountAmount"`
}

// LogEntry is one immutable audit record. The log is append-only: exactly one
// entry per accepted status change, including the creating event.
type LogEntry struct {
	Timestamp     time.Time `json:"timestamp"`
	Action        string    `json:"action"`
	StatusBefore  Status    `json:"statusBefore,omitempty"`
	StatusAfter   Status    `json:"statusAfter"`
	Reason        string    `json:"reason,omitempty"`
	ChangedBy     string    `json:"changedBy,omitempty"`
	ChangedByName string    `json:"changedByName,omitempty"`
}

// Actor identifies who performed an operator action.
type Actor struct {
	ID   string
	Name string
}

// Filter narrows the order listing. A Status outside the known set is
// ignored; Search matches customer name, digits-normalized phone, or the
// exact order number.
type Filter struct {
	Status Status
	Search string
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	Update(ctx context.Context, o *Order) error
	List(ctx context.Context, f Filter) ([]Order, error)
}

// Sequencer hands out globally unique, strictly increasing order numbers.
// Next must be atomic against the store: two concurrent callers never
// receive the same value.
type Sequencer interface {
	Next(ctx context.Context) (int64, error)
}
