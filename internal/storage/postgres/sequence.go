package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/solmercado/orders-api/internal/domain/order"
)

// orderNumberCounter is the fixed name of the counter row backing order
// numbers. The sequencer never caches values in process memory; the row is
// the single source of truth.
const orderNumberCounter = "order_number"

// nextOrderNumberSQL is a single atomic statement covering both bootstrap
// and steady state. On first call the row is inserted with a value seeded
// from the highest existing order number (or the base), already incremented.
// Any later call — including a bootstrap race loser landing on the conflict
// arm — increments the existing row and returns the new value, so two
// concurrent callers can never see the same number.
const nextOrderNumberSQL = `INSERT INTO order_counters (name, value)
	VALUES ($1, GREATEST($2::bigint - 1, COALESCE((SELECT MAX(order_number) FROM orders), 0)) + 1)
	ON CONFLICT (name) DO UPDATE SET value = order_counters.value + 1
	RETURNING value`

var _ order.Sequencer = (*OrderNumberSequencer)(nil)

// OrderNumberSequencer implements order.Sequencer on a named counter row.
type OrderNumberSequencer struct {
	pool *pgxpool.Pool
}

// NewOrderNumberSequencer returns a sequencer that uses the given pool.
func NewOrderNumberSequencer(pool *pgxpool.Pool) *OrderNumberSequencer {
	return &OrderNumberSequencer{pool: pool}
}

// Next atomically increments the counter and returns the new value. Values
// are strictly increasing but not necessarily contiguous: a failed order
// write after a successful Next leaves a harmless gap.
func (s *OrderNumberSequencer) Next(ctx context.Context) (int64, error) {
	var value int64
	err := s.pool.QueryRow(ctx, nextOrderNumberSQL, orderNumberCounter, order.BaseOrderNumber).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("incrementing order number counter: %w", err)
	}
	return value, nil
}
