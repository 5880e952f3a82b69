package cart

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/noah-isme/kasir-api/internal/catalog"
	"github.com/noah-isme/kasir-api/internal/common"
	"github.com/noah-isme/kasir-api/internal/pricing"
	"github.com/noah-isme/kasir-api/internal/region"
)

// ProductLookup resolves catalog products by id.
type ProductLookup interface {
	Get(ctx context.Context, id string) (catalog.Product, error)
}

// QuoteItem is a requested cart line.
type QuoteItem struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gte=1"`
}

// QuoteRequest prices a cart for display. An empty item list is valid and
// yields zero totals.
type QuoteRequest struct {
	RegionID string      `json:"regionId"`
	Items    []QuoteItem `json:"items" validate:"dive"`
}

// Line is a priced cart line.
type Line struct {
	Product   catalog.Product `json:"product"`
	Quantity  int             `json:"quantity"`
	LineTotal pricing.Money   `json:"lineTotal"`
	LineTax   pricing.Money   `json:"lineTax"`
}

// Formatted carries display strings in the region's currency.
type Formatted struct {
	Subtotal string `json:"subtotal"`
	Tax      string `json:"tax"`
	Total    string `json:"total"`
}

// Quote is the priced cart.
type Quote struct {
	RegionID  string        `json:"regionId"`
	Currency  string        `json:"currency"`
	TaxName   string        `json:"taxName"`
	Items     []Line        `json:"items"`
	ItemCount int           `json:"itemCount"`
	Subtotal  pricing.Money `json:"subtotal"`
	Tax       pricing.Money `json:"tax"`
	Total     pricing.Money `json:"total"`
	Formatted Formatted     `json:"formatted"`
}

// Quoter prices carts against the live catalog.
type Quoter struct {
	Products ProductLookup
	Regions  *region.Registry
}

// Quote builds a cart from req and prices it. Unknown regions fall back to the
// default region; unknown or inactive products are rejected.
func (q *Quoter) Quote(ctx context.Context, req QuoteRequest) (Quote, error) {
	if err := common.Validate(req); err != nil {
		return Quote{}, err
	}
	reg := q.Regions.Get(strings.TrimSpace(req.RegionID))
	var c Cart
	for i, it := range req.Items {
		field := fmt.Sprintf("items[%d].productId", i)
		p, err := q.Products.Get(ctx, strings.TrimSpace(it.ProductID))
		if errors.Is(err, catalog.ErrNotFound) {
			return Quote{}, common.ValidationError(field, fmt.Sprintf("unknown product %q", it.ProductID))
		}
		if err != nil {
			return Quote{}, fmt.Errorf("load product %s: %w", it.ProductID, err)
		}
		if !p.Active() {
			return Quote{}, common.ValidationError(field, fmt.Sprintf("product %q is not available", it.ProductID))
		}
		c.AddQuantity(p, it.Quantity)
	}

	summary := c.Summary()
	lines := make([]Line, 0, len(c.lines))
	for _, l := range c.Items() {
		item := pricing.Item{Price: l.Product.Price, TaxRate: l.Product.TaxRate, Quantity: l.Quantity}
		lines = append(lines, Line{
			Product:   l.Product,
			Quantity:  l.Quantity,
			LineTotal: pricing.LineTotal(item),
			LineTax:   pricing.LineTax(item),
		})
	}
	return Quote{
		RegionID:  reg.ID,
		Currency:  reg.Currency,
		TaxName:   reg.TaxName,
		Items:     lines,
		ItemCount: c.Count(),
		Subtotal:  summary.Subtotal,
		Tax:       summary.Tax,
		Total:     summary.Total,
		Formatted: Formatted{
			Subtotal: q.Regions.FormatMoney(summary.Subtotal, reg.ID),
			Tax:      q.Regions.FormatMoney(summary.Tax, reg.ID),
			Total:    q.Regions.FormatMoney(summary.Total, reg.ID),
		},
	}, nil
}

// Handler exposes POST /api/cart/quote.
type Handler struct {
	Quoter *Quoter
}

// Quote handles POST /api/cart/quote.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, r, err)
		return
	}
	quote, err := h.Quoter.Quote(r.Context(), req)
	if err != nil {
		common.WriteError(w, r, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"quote": quote})
}
