package httpapi

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
)

type productDTO struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Discounted  bool            `json:"discounted"`
	DiscountPct decimal.Decimal `json:"discountPct"`
	Category    string          `json:"category"`
	Image       productImageDTO `json:"image"`
}

type productImageDTO struct {
	Thumbnail string `json:"thumbnail"`
	Desktop   string `json:"desktop"`
}

// ListProducts handles GET /api/products.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]productDTO, len(products))
	for i, p := range products {
		out[i] = productDTO{
			ID:          p.ID,
			Name:        p.Name,
			Price:       p.Price,
			Discounted:  p.Discounted,
			DiscountPct: p.DiscountPct,
			Category:    p.Category,
			Image: productImageDTO{
				Thumbnail: h.imageURL(p.Image.Thumbnail),
				Desktop:   h.imageURL(p.Image.Desktop),
			},
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": out})
}

// imageURL prepends the configured base URL to relative image paths.
func (h *Handler) imageURL(path string) string {
	if h.imageBaseURL == "" || path == "" || strings.Contains(path, "://") {
		return path
	}
	return strings.TrimSuffix(h.imageBaseURL, "/") + "/" + strings.TrimPrefix(path, "/")
}
