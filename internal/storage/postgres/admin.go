package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/solmercado/orders-api/internal/domain/auth"
)

const getAdminByKeyHashSQL = `SELECT id, key_hash, name, role
	FROM admin_keys WHERE key_hash = $1 AND active = TRUE`

var _ auth.Repository = (*AdminKeyRepository)(nil)

// AdminKeyRepository provides admin identity lookups backed by PostgreSQL.
type AdminKeyRepository struct {
	pool *pgxpool.Pool
}

// NewAdminKeyRepository returns an AdminKeyRepository that uses the given pool.
func NewAdminKeyRepository(pool *pgxpool.Pool) *AdminKeyRepository {
	return &AdminKeyRepository{pool: pool}
}

// FindByKeyHash looks up an active admin by the HMAC-SHA256 hash of its key.
func (r *AdminKeyRepository) FindByKeyHash(ctx context.Context, hash string) (*auth.Admin, error) {
	var a auth.Admin
	err := r.pool.QueryRow(ctx, getAdminByKeyHashSQL, hash).Scan(
		&a.ID, &a.KeyHash, &a.Name, &a.Role,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrUnauthorized
		}
		return nil, fmt.Errorf("finding admin key by hash: %w", err)
	}
	return &a, nil
}
