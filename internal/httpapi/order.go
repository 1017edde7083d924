package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/solmercado/orders-api/internal/domain/order"
)

type checkoutItemDTO struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type checkoutRequest struct {
	Items        []checkoutItemDTO `json:"items"`
	CustomerName string            `json:"customerName"`
	Phone        string            `json:"phone"`
	Address      string            `json:"address"`
	CouponCode   string            `json:"couponCode"`
	// CouponCodes is the legacy array form. Only the first entry is applied;
	// the rest are ignored.
	CouponCodes []string `json:"couponCodes"`
}

func (req *checkoutRequest) couponCode() string {
	if req.CouponCode != "" {
		return req.CouponCode
	}
	if len(req.CouponCodes) > 0 {
		return req.CouponCodes[0]
	}
	return ""
}

type checkoutResponse struct {
	OrderID             string            `json:"orderId"`
	OrderNumber         int64             `json:"orderNumber"`
	Subtotal            decimal.Decimal   `json:"subtotal"`
	Total               decimal.Decimal   `json:"total"`
	TotalDiscountAmount decimal.Decimal   `json:"totalDiscountAmount"`
	Coupon              *appliedCouponDTO `json:"coupon,omitempty"`
}

type appliedCouponDTO struct {
	Code               string          `json:"code"`
	DiscountPercentage decimal.Decimal `json:"discountPercentage"`
	DiscountAmount     decimal.Decimal `json:"discountAmount"`
}

type orderItemDTO struct {
	ProductID    string          `json:"productId"`
	Name         string          `json:"name"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	Quantity     int             `json:"quantity"`
	LineSubtotal decimal.Decimal `json:"lineSubtotal"`
}

type logEntryDTO struct {
	Timestamp     time.Time `json:"timestamp"`
	Action        string    `json:"action"`
	StatusBefore  string    `json:"statusBefore,omitempty"`
	StatusAfter   string    `json:"statusAfter"`
	Reason        string    `json:"reason,omitempty"`
	ChangedBy     string    `json:"changedBy,omitempty"`
	ChangedByName string    `json:"changedByName,omitempty"`
}

type orderDTO struct {
	ID                   string            `json:"id"`
	OrderNumber          int64             `json:"orderNumber"`
	Items                []orderItemDTO    `json:"items"`
	Subtotal             decimal.Decimal   `json:"subtotal"`
	Coupon               *appliedCouponDTO `json:"coupon,omitempty"`
	TotalDiscountAmount  decimal.Decimal   `json:"totalDiscountAmount"`
	Total                decimal.Decimal   `json:"total"`
	CustomerName         string            `json:"customerName"`
	Phone                string            `json:"phone"`
	Address              string            `json:"address"`
	Status               string            `json:"status"`
	OptimisticPaid       bool              `json:"optimisticPaid"`
	ReconciliationNeeded bool              `json:"reconciliationNeeded"`
	PaidAt               *time.Time        `json:"paidAt,omitempty"`
	CanceledAt           *time.Time        `json:"canceledAt,omitempty"`
	CanceledBy           string            `json:"canceledBy,omitempty"`
	CanceledByName       string            `json:"canceledByName,omitempty"`
	Log                  []logEntryDTO     `json:"log"`
	CreatedAt            time.Time         `json:"createdAt"`
	UpdatedAt            time.Time         `json:"updatedAt"`
}

// WhatsAppCheckout handles POST /api/orders/whatsapp-checkout.
func (h *Handler) WhatsAppCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	items := make([]order.CreateItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = order.CreateItem{ProductID: it.ProductID, Quantity: it.Quantity}
	}

	o, err := h.orders.Create(r.Context(), order.CreateRequest{
		Items:        items,
		CustomerName: req.CustomerName,
		Phone:        req.Phone,
		Address:      req.Address,
		CouponCode:   req.couponCode(),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, checkoutResponse{
		OrderID:             o.ID,
		OrderNumber:         o.OrderNumber,
		Subtotal:            o.Subtotal,
		Total:               o.Total,
		TotalDiscountAmount: o.DiscountAmount,
		Coupon:              mapCoupon(o.Coupon),
	})
}

// ListOrders handles GET /api/orders.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.List(r.Context(), order.Filter{
		Status: order.Status(r.URL.Query().Get("status")),
		Search: r.URL.Query().Get("search"),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]orderDTO, len(orders))
	for i := range orders {
		out[i] = mapOrder(&orders[i])
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": out})
}

type transitionRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// UpdateOrderStatus handles PATCH /api/orders/{id}/status. Cancellation has
// its own endpoint and is rejected here.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	o, err := h.orders.Transition(r.Context(),
		chi.URLParam(r, "id"), order.Status(req.Status), req.Reason, actorFromContext(r.Context()))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": mapOrder(o)})
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// CancelOrder handles PATCH /api/orders/{id}/cancel.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if r.Body != nil {
		// Body is optional; decode errors on an empty body are ignored.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	o, err := h.orders.Cancel(r.Context(), chi.URLParam(r, "id"), req.Reason, actorFromContext(r.Context()))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": mapOrder(o)})
}

func mapCoupon(c *order.AppliedCoupon) *appliedCouponDTO {
	if c == nil {
		return nil
	}
	return &appliedCouponDTO{
		Code:               c.Code,
		DiscountPercentage: c.DiscountPercentage,
		DiscountAmount:     c.DiscountAmount,
	}
}

func mapOrder(o *order.Order) orderDTO {
	items := make([]orderItemDTO, len(o.Items))
	for i, it := range o.Items {
		items[i] = orderItemDTO{
			ProductID:    it.ProductID,
			Name:         it.Name,
			UnitPrice:    it.UnitPrice,
			Quantity:     it.Quantity,
			LineSubtotal: it.LineSubtotal,
		}
	}
	log := make([]logEntryDTO, len(o.Log))
	for i, e := range o.Log {
		log[i] = logEntryDTO{
			Timestamp:     e.Timestamp,
			Action:        e.Action,
			StatusBefore:  string(e.StatusBefore),
			StatusAfter:   string(e.StatusAfter),
			Reason:        e.Reason,
			ChangedBy:     e.ChangedBy,
			ChangedByName: e.ChangedByName,
		}
	}
	return orderDTO{
		ID:                   o.ID,
		OrderNumber:          o.OrderNumber,
		Items:                items,
		Subtotal:             o.Subtotal,
		Coupon:               mapCoupon(o.Coupon),
		TotalDiscountAmount:  o.DiscountAmount,
		Total:                o.Total,
		CustomerName:         o.CustomerName,
		Phone:                o.Phone,
		Address:              o.Address,
		Status:               string(o.Status),
		OptimisticPaid:       o.OptimisticPaid,
		ReconciliationNeeded: o.ReconciliationNeeded,
		PaidAt:               o.PaidAt,
		CanceledAt:           o.CanceledAt,
		CanceledBy:           o.CanceledBy,
		CanceledByName:       o.CanceledByName,
		Log:                  log,
		CreatedAt:            o.CreatedAt,
		UpdatedAt:            o.UpdatedAt,
	}
}
