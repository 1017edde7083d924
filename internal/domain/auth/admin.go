// Package auth holds the admin identity model used to authenticate
// operator endpoints and attribute order transitions.
package auth

import (
	"context"
	"fmt"
)

// ErrUnauthorized indicates the presented API key does not map to an active
// admin.
var ErrUnauthorized = fmt.Errorf("unauthorized")

// Admin is the identity behind a validated admin API key. Its ID and Name
// are recorded on every status transition and cancellation.
type Admin struct {
	ID      string
	KeyHash string
	Name    string
	Role    string
}

// Repository provides lookup of admin identities by API key hash.
type Repository interface {
	FindByKeyHash(ctx context.Context, hash string) (*Admin, error)
}
