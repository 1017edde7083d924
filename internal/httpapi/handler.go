// Package httpapi exposes the order service over HTTP.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/solmercado/orders-api/internal/domain/coupon"
	"github.com/solmercado/orders-api/internal/domain/order"
	"github.com/solmercado/orders-api/internal/domain/product"
)

// Handler carries the dependencies shared by all HTTP endpoints.
type Handler struct {
	products     product.Repository
	orders       *order.Service
	imageBaseURL string
}

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// ImageBaseURL is prepended to relative image paths in product
	// responses. When empty, paths are returned as stored.
	ImageBaseURL string
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(cfg HandlerConfig, products product.Repository, orders *order.Service) *Handler {
	return &Handler{
		products:     products,
		orders:       orders,
		imageBaseURL: cfg.ImageBaseURL,
	}
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: code, Message: msg})
}

// writeDomainError maps domain errors onto the HTTP error taxonomy. Anything
// unrecognized is treated as a store failure: logged and surfaced as a
// generic 500 without internal detail.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *order.ValidationError
		quantityErr   *order.InvalidQuantityError
		productErr    *order.ProductNotFoundError
		statusErr     *order.InvalidStatusError
	)
	switch {
	case errors.Is(err, order.ErrEmptyItems):
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, "validation_error", validationErr.Error())
	case errors.As(err, &quantityErr):
		writeError(w, http.StatusBadRequest, "validation_error", quantityErr.Error())
	case errors.As(err, &productErr):
		writeError(w, http.StatusBadRequest, "invalid_product", productErr.Error())
	case errors.Is(err, coupon.ErrInvalidCoupon):
		writeError(w, http.StatusBadRequest, "invalid_coupon", "invalid coupon code")
	case errors.Is(err, coupon.ErrCouponExpired):
		writeError(w, http.StatusBadRequest, "invalid_coupon", "coupon expired")
	case errors.As(err, &statusErr):
		writeError(w, http.StatusBadRequest, "invalid_status", statusErr.Error())
	case errors.Is(err, order.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "order not found")
	case errors.Is(err, order.ErrDuplicateKey):
		writeError(w, http.StatusConflict, "duplicate_key", "conflicting write, retry")
	default:
		zctx.From(r.Context()).Error("internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
