package httpapi

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/solmercado/orders-api/internal/domain/auth"
	"github.com/solmercado/orders-api/internal/domain/order"
)

type adminKey struct{}

// actorFromContext returns the authenticated admin as an order actor. On
// public routes it yields a zero Actor.
func actorFromContext(ctx context.Context) order.Actor {
	if a, ok := ctx.Value(adminKey{}).(*auth.Admin); ok {
		return order.Actor{ID: a.ID, Name: a.Name}
	}
	return order.Actor{}
}

// AdminAuth returns a middleware authenticating operator endpoints via the
// X-API-Key header. The key is HMAC-SHA256 hashed with the pepper, looked
// up, and compared in constant time; the resolved admin identity lands in
// the request context for transition attribution.
func AdminAuth(admins auth.Repository, pepper []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized", "missing API key")
				return
			}

			mac := hmac.New(sha256.New, pepper)
			mac.Write([]byte(key))
			hash := mac.Sum(nil)

			admin, err := admins.FindByKeyHash(r.Context(), hex.EncodeToString(hash))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid API key")
				return
			}

			// Constant-time compare guards against a repository returning a
			// stale or wrong row.
			stored, err := hex.DecodeString(admin.KeyHash)
			if err != nil || subtle.ConstantTimeCompare(hash, stored) != 1 {
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid API key")
				return
			}

			ctx := context.WithValue(r.Context(), adminKey{}, admin)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
