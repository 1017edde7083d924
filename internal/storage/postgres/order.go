package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/solmercado/orders-api/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders (
		id, order_number, customer_name, phone, address, items,
		subtotal, discount_amount, total, coupon, status,
		optimistic_paid, reconciliation_needed, paid_at,
		canceled_at, canceled_by, canceled_by_name, log, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

	updateOrderSQL = `UPDATE orders SET
		status = $2, optimistic_paid = $3, reconciliation_needed = $4,
		paid_at = $5, canceled_at = $6, canceled_by = $7, canceled_by_name = $8,
		log = $9, updated_at = $10
	WHERE id = $1`

	orderColumns = `id, order_number, customer_name, phone, address, items,
		subtotal, discount_amount, total, coupon, status,
		optimistic_paid, reconciliation_needed, paid_at,
		canceled_at, canceled_by, canceled_by_name, log, created_at, updated_at`

	getOrderByIDSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	// The search term reaches this query already sanitized (letters, digits,
	// space, hyphen only), so it cannot smuggle LIKE metacharacters.
	listOrdersSQL = `SELECT ` + orderColumns + ` FROM orders
	WHERE ($1 = '' OR status = $1)
	  AND ($2 = ''
		OR customer_name ILIKE '%' || $2 || '%'
		OR ($3 <> '' AND phone LIKE '%' || $3 || '%')
		OR ($4::bigint > 0 AND order_number = $4))
	ORDER BY created_at DESC`

	uniqueViolationCode = "23505"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Items,
// the coupon snapshot, and the audit log are stored as JSONB documents on
// the order row.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order. A unique violation on order_number surfaces
// as order.ErrDuplicateKey.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	itemsJSON, couponJSON, logJSON, err := marshalDocs(o)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, createOrderSQL,
		o.ID, o.OrderNumber, o.CustomerName, o.Phone, o.Address, itemsJSON,
		o.Subtotal, o.DiscountAmount, o.Total, couponJSON, string(o.Status),
		o.OptimisticPaid, o.ReconciliationNeeded, o.PaidAt,
		o.CanceledAt, o.CanceledBy, o.CanceledByName, logJSON, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return fmt.Errorf("creating order %q: %w", o.ID, order.ErrDuplicateKey)
		}
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// GetByID returns a single order, or order.ErrNotFound.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return &o, nil
}

// Update writes the mutable order fields and the full audit log back to the
// row. The write is one statement, so concurrent updates to the same order
// rely on the store's per-row atomicity.
func (r *OrderRepository) Update(ctx context.Context, o *order.Order) error {
	logJSON, err := json.Marshal(o.Log)
	if err != nil {
		return fmt.Errorf("marshaling order log: %w", err)
	}

	tag, err := r.pool.Exec(ctx, updateOrderSQL,
		o.ID, string(o.Status), o.OptimisticPaid, o.ReconciliationNeeded,
		o.PaidAt, o.CanceledAt, o.CanceledBy, o.CanceledByName,
		logJSON, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("updating order %q: %w", o.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// List returns orders matching the filter, newest first.
func (r *OrderRepository) List(ctx context.Context, f order.Filter) ([]order.Order, error) {
	// Order numbers start at order.BaseOrderNumber, so a parsed term below
	// that can never match; the $4 > 0 guard in the query keeps non-positive
	// parses (e.g. "0") out of the order-number arm entirely.
	number := int64(0)
	if n, err := strconv.ParseInt(f.Search, 10, 64); err == nil {
		number = n
	}
	digits := keepDigits(f.Search)

	rows, err := r.pool.Query(ctx, listOrdersSQL, string(f.Status), f.Search, digits, number)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

func marshalDocs(o *order.Order) (items, coupon, log []byte, err error) {
	items, err = json.Marshal(o.Items)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshaling order items: %w", err)
	}
	if o.Coupon != nil {
		coupon, err = json.Marshal(o.Coupon)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("marshaling order coupon: %w", err)
		}
	}
	log, err = json.Marshal(o.Log)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshaling order log: %w", err)
	}
	return items, coupon, log, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o          order.Order
		status     string
		itemsJSON  []byte
		couponJSON []byte
		logJSON    []byte
	)
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.CustomerName, &o.Phone, &o.Address, &itemsJSON,
		&o.Subtotal, &o.DiscountAmount, &o.Total, &couponJSON, &status,
		&o.OptimisticPaid, &o.ReconciliationNeeded, &o.PaidAt,
		&o.CanceledAt, &o.CanceledBy, &o.CanceledByName, &logJSON, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return o, err
	}
	o.Status = order.Status(status)

	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return o, fmt.Errorf("unmarshaling order items: %w", err)
	}
	if err := json.Unmarshal(logJSON, &o.Log); err != nil {
		return o, fmt.Errorf("unmarshaling order log: %w", err)
	}
	if len(couponJSON) > 0 {
		c, err := unmarshalCoupon(couponJSON)
		if err != nil {
			return o, err
		}
		o.Coupon = c
	}
	return o, nil
}

// unmarshalCoupon reads the coupon snapshot. Rows written before the
// single-coupon migration hold an array of coupons; only its first element
// was ever applied, so that is what surfaces.
func unmarshalCoupon(data []byte) (*order.AppliedCoupon, error) {
	if data[0] == '[' {
		var legacy []order.AppliedCoupon
		if err := json.Unmarshal(data, &legacy); err != nil {
			return nil, fmt.Errorf("unmarshaling legacy order coupons: %w", err)
		}
		if len(legacy) == 0 {
			return nil, nil
		}
		return &legacy[0], nil
	}

	var c order.AppliedCoupon
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshaling order coupon: %w", err)
	}
	return &c, nil
}

func keepDigits(s string) string {
	out := make([]byte, 0, len(s))
	for i := range len(s) {
		if s[i] >= '0' && s[i] <= '9' {
			out = append(out, s[i])
		}
	}
	return string(out)
}
