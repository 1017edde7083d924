//go:build integration

package postgres

import (
	"context"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/sync/errgroup"

	"github.com/solmercado/orders-api/internal/domain/auth"
	"github.com/solmercado/orders-api/internal/domain/coupon"
	"github.com/solmercado/orders-api/internal/domain/order"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("shop"),
		tcpostgres.WithUsername("shop"),
		tcpostgres.WithPassword("shop"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	if err != nil {
		log.Fatalf("start postgres container: %v", err)
	}
	defer func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			log.Printf("terminate container: %v", err)
		}
	}()

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		log.Fatalf("connection string: %v", err)
	}

	testPool, err = NewPool(ctx, connStr)
	if err != nil {
		log.Fatalf("create pool: %v", err)
	}
	defer testPool.Close()

	if err := RunMigrations(ctx, testPool); err != nil {
		log.Fatalf("run migrations: %v", err)
	}

	return m.Run()
}

func newTestOrder(number int64) *order.Order {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &order.Order{
		ID:          uuid.New().String(),
		OrderNumber: number,
		Items: []order.Item{{
			ProductID:    "p1",
			Name:         "Widget",
			UnitPrice:    decimal.RequireFromString("100.00"),
			Quantity:     2,
			LineSubtotal: decimal.RequireFromString("200.00"),
		}},
		Subtotal:             decimal.RequireFromString("200.00"),
		DiscountAmount:       decimal.Zero,
		Total:                decimal.RequireFromString("200.00"),
		CustomerName:         "María García",
		Phone:                "525551234567",
		Address:              "Av. Insurgentes Sur 123",
		Status:               order.StatusPaidWhatsApp,
		OptimisticPaid:       true,
		ReconciliationNeeded: true,
		PaidAt:               &now,
		Log: []order.LogEntry{{
			Timestamp:   now,
			Action:      "created",
			StatusAfter: order.StatusPaidWhatsApp,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestOrderNumberSequencer(t *testing.T) {
	ctx := context.Background()
	seq := NewOrderNumberSequencer(testPool)

	first, err := seq.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(order.BaseOrderNumber), first, "fresh store starts at the base number")

	second, err := seq.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, first+1, second)
}

func TestOrderNumberSequencer_Concurrent(t *testing.T) {
	ctx := context.Background()
	seq := NewOrderNumberSequencer(testPool)

	const n = 50
	var (
		mu      sync.Mutex
		numbers = make(map[int64]struct{}, n)
	)

	g, ctx := errgroup.WithContext(ctx)
	for range n {
		g.Go(func() error {
			v, err := seq.Next(ctx)
			if err != nil {
				return err
			}
			mu.Lock()
			numbers[v] = struct{}{}
			mu.Unlock()
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Len(t, numbers, n, "every caller must get a distinct number")
}

func TestOrderRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository(testPool)

	o := newTestOrder(900001)
	o.Coupon = &order.AppliedCoupon{
		Code:               "DESCUENTO10",
		DiscountPercentage: decimal.NewFromInt(10),
		DiscountAmount:     decimal.RequireFromString("20.00"),
	}
	o.DiscountAmount = decimal.RequireFromString("20.00")
	o.Total = decimal.RequireFromString("180.00")
	require.NoError(t, repo.Create(ctx, o))

	got, err := repo.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.OrderNumber, got.OrderNumber)
	assert.Equal(t, o.CustomerName, got.CustomerName)
	assert.Equal(t, order.StatusPaidWhatsApp, got.Status)
	assert.True(t, o.Subtotal.Equal(got.Subtotal))
	assert.True(t, o.Total.Equal(got.Total))
	require.Len(t, got.Items, 1)
	assert.Equal(t, "p1", got.Items[0].ProductID)
	assert.True(t, o.Items[0].UnitPrice.Equal(got.Items[0].UnitPrice))
	require.NotNil(t, got.Coupon)
	assert.Equal(t, "DESCUENTO10", got.Coupon.Code)
	require.Len(t, got.Log, 1)
	assert.Equal(t, "created", got.Log[0].Action)
	require.NotNil(t, got.PaidAt)
}

func TestOrderRepository_DuplicateOrderNumber(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository(testPool)

	first := newTestOrder(900002)
	require.NoError(t, repo.Create(ctx, first))

	dup := newTestOrder(900002)
	err := repo.Create(ctx, dup)
	require.ErrorIs(t, err, order.ErrDuplicateKey)
}

func TestOrderRepository_Update(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository(testPool)

	o := newTestOrder(900003)
	require.NoError(t, repo.Create(ctx, o))

	now := time.Now().UTC().Truncate(time.Microsecond)
	o.Status = order.StatusCancelled
	o.OptimisticPaid = false
	o.CanceledAt = &now
	o.CanceledBy = "admin-1"
	o.CanceledByName = "Ana"
	o.Log = append(o.Log, order.LogEntry{
		Timestamp:    now,
		Action:       "cancelled",
		StatusBefore: order.StatusPaidWhatsApp,
		StatusAfter:  order.StatusCancelled,
		ChangedBy:    "admin-1",
	})
	o.UpdatedAt = now
	require.NoError(t, repo.Update(ctx, o))

	got, err := repo.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusCancelled, got.Status)
	assert.False(t, got.OptimisticPaid)
	assert.Equal(t, "Ana", got.CanceledByName)
	require.Len(t, got.Log, 2)
	assert.Equal(t, "cancelled", got.Log[1].Action)
}

func TestOrderRepository_UpdateMissing(t *testing.T) {
	repo := NewOrderRepository(testPool)

	o := newTestOrder(900004)
	o.ID = uuid.New().String()
	err := repo.Update(context.Background(), o)
	require.ErrorIs(t, err, order.ErrNotFound)
}

func TestOrderRepository_GetMissing(t *testing.T) {
	repo := NewOrderRepository(testPool)

	_, err := repo.GetByID(context.Background(), uuid.New().String())
	require.ErrorIs(t, err, order.ErrNotFound)
}

func TestOrderRepository_List(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository(testPool)

	o := newTestOrder(900005)
	o.CustomerName = "Searchable Pérez"
	o.Phone = "527770001111"
	require.NoError(t, repo.Create(ctx, o))

	t.Run("by status", func(t *testing.T) {
		orders, err := repo.List(ctx, order.Filter{Status: order.StatusPaidWhatsApp})
		require.NoError(t, err)
		assert.NotEmpty(t, orders)
		for _, got := range orders {
			assert.Equal(t, order.StatusPaidWhatsApp, got.Status)
		}
	})

	t.Run("by name fragment", func(t *testing.T) {
		orders, err := repo.List(ctx, order.Filter{Search: "searchable"})
		require.NoError(t, err)
		require.Len(t, orders, 1)
		assert.Equal(t, o.ID, orders[0].ID)
	})

	t.Run("by phone digits", func(t *testing.T) {
		orders, err := repo.List(ctx, order.Filter{Search: "777-000"})
		require.NoError(t, err)
		require.Len(t, orders, 1)
		assert.Equal(t, o.ID, orders[0].ID)
	})

	t.Run("by order number", func(t *testing.T) {
		orders, err := repo.List(ctx, order.Filter{Search: "900005"})
		require.NoError(t, err)
		require.Len(t, orders, 1)
		assert.Equal(t, o.ID, orders[0].ID)
	})

	t.Run("no match", func(t *testing.T) {
		orders, err := repo.List(ctx, order.Filter{Search: "zzzznope"})
		require.NoError(t, err)
		assert.Empty(t, orders)
	})
}

func TestOrderRepository_LegacyCouponArray(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository(testPool)

	o := newTestOrder(900006)
	require.NoError(t, repo.Create(ctx, o))

	// Rows written before the single-coupon migration hold an array.
	_, err := testPool.Exec(ctx,
		`UPDATE orders SET coupon = $2 WHERE id = $1`,
		o.ID, `[{"code":"VIEJO5","discountPercentage":"5","discountAmount":"10.00"},{"code":"IGNORADO","discountPercentage":"50","discountAmount":"0"}]`,
	)
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, o.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Coupon)
	assert.Equal(t, "VIEJO5", got.Coupon.Code, "only the first legacy coupon surfaces")
}

func TestCouponRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewCouponRepository(testPool)

	expires := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Microsecond)
	_, err := testPool.Exec(ctx,
		`INSERT INTO coupons (code, discount_percentage, expires_at, active) VALUES
			('ACTIVO10', 10, $1, TRUE),
			('INACTIVO20', 20, $1, FALSE)`,
		expires,
	)
	require.NoError(t, err)

	c, err := repo.FindActiveByCode(ctx, "ACTIVO10")
	require.NoError(t, err)
	assert.Equal(t, "ACTIVO10", c.Code)
	assert.True(t, decimal.NewFromInt(10).Equal(c.DiscountPercentage))
	assert.Equal(t, expires, c.ExpiresAt.UTC())

	_, err = repo.FindActiveByCode(ctx, "INACTIVO20")
	require.ErrorIs(t, err, coupon.ErrInvalidCoupon, "inactive coupons look unknown")

	_, err = repo.FindActiveByCode(ctx, "NOSUCHCODE")
	require.ErrorIs(t, err, coupon.ErrInvalidCoupon)
}

func TestProductRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepository(testPool)

	_, err := testPool.Exec(ctx,
		`INSERT INTO products (id, name, price, discounted, discount_pct, category, image_thumbnail, image_desktop) VALUES
			('prod-a', 'Producto A', 100.00, FALSE, 0, 'test', '/a-thumb.jpg', '/a.jpg'),
			('prod-b', 'Producto B', 145.50, TRUE, 10, 'test', '/b-thumb.jpg', '/b.jpg')
		ON CONFLICT (id) DO NOTHING`,
	)
	require.NoError(t, err)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(all), 2)

	got, err := repo.GetByIDs(ctx, []string{"prod-a", "prod-b", "missing"})
	require.NoError(t, err)
	require.Len(t, got, 2, "missing IDs are simply absent")
	byID := make(map[string]bool, len(got))
	for _, p := range got {
		byID[p.ID] = true
	}
	assert.True(t, byID["prod-a"])
	assert.True(t, byID["prod-b"])
}

func TestAdminKeyRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewAdminKeyRepository(testPool)

	_, err := testPool.Exec(ctx,
		`INSERT INTO admin_keys (id, key_hash, name, role, active) VALUES
			('adm-1', 'hash-active', 'Ana', 'admin', TRUE),
			('adm-2', 'hash-revoked', 'Luis', 'admin', FALSE)`,
	)
	require.NoError(t, err)

	a, err := repo.FindByKeyHash(ctx, "hash-active")
	require.NoError(t, err)
	assert.Equal(t, "adm-1", a.ID)
	assert.Equal(t, "Ana", a.Name)

	_, err = repo.FindByKeyHash(ctx, "hash-revoked")
	require.ErrorIs(t, err, auth.ErrUnauthorized, "revoked keys do not authenticate")

	_, err = repo.FindByKeyHash(ctx, "no-such-hash")
	require.ErrorIs(t, err, auth.ErrUnauthorized)
}
