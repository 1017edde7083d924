package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/solmercado/orders-api/internal/domain/auth"
)

// NewRouter mounts all API routes. Checkout and the product catalog are
// public; order listing and status operations require an admin API key.
func NewRouter(h *Handler, admins auth.Repository, pepper []byte) http.Handler {
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.ListProducts)
		r.Post("/orders/whatsapp-checkout", h.WhatsAppCheckout)

		r.Group(func(r chi.Router) {
			r.Use(AdminAuth(admins, pepper))
			r.Get("/orders", h.ListOrders)
			r.Patch("/orders/{id}/status", h.UpdateOrderStatus)
			r.Patch("/orders/{id}/cancel", h.CancelOrder)
		})
	})

	return r
}
