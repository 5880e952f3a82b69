package cart

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/kasir-api/internal/catalog"
	"github.com/noah-isme/kasir-api/internal/pricing"
	"github.com/noah-isme/kasir-api/internal/region"
)

func product(id string, price, rate float64) catalog.Product {
	return catalog.Product{ID: id, Name: "P" + id, Price: price, TaxRate: rate, Status: catalog.StatusActive, RegionID: "in"}
}

func TestCartAddIncrements(t *testing.T) {
	var c Cart
	c.Add(product("1", 10, 5))
	c.Add(product("1", 10, 5))
	c.Add(product("2", 56, 12))

	items := c.Items()
	require.Len(t, items, 2)
	require.Equal(t, 2, items[0].Quantity)
	require.Equal(t, 3, c.Count())
}

func TestCartUpdateRemovesAtZero(t *testing.T) {
	var c Cart
	c.Add(product("1", 10, 5))
	c.Update("1", 2)
	require.Equal(t, 3, c.Items()[0].Quantity)

	c.Update("1", -3)
	require.True(t, c.Empty())

	c.Add(product("2", 1, 0))
	c.Update("2", -10)
	require.True(t, c.Empty())

	c.Update("missing", 1)
	require.True(t, c.Empty())
}

func TestCartRemoveAndClear(t *testing.T) {
	var c Cart
	c.Add(product("1", 10, 5))
	c.Add(product("2", 56, 12))
	c.Remove("1")
	require.Len(t, c.Items(), 1)
	require.Equal(t, "2", c.Items()[0].Product.ID)

	c.Clear()
	require.True(t, c.Empty())
}

func TestCartSummary(t *testing.T) {
	var c Cart
	require.True(t, c.Summary().Total.IsZero())

	c.AddQuantity(product("1", 10, 5), 2)
	c.Add(product("2", 56, 12))
	summary := c.Summary()
	require.True(t, summary.Subtotal.Equal(pricing.MustParseMoney("76")))
	require.True(t, summary.Tax.Equal(pricing.MustParseMoney("7.72")))
	require.True(t, summary.Total.Equal(pricing.MustParseMoney("83.72")))
}

func newQuoter(t *testing.T) *Quoter {
	t.Helper()
	store := catalog.NewMemoryStore()
	require.NoError(t, catalog.Seed(context.Background(), store, catalog.SeedProducts(time.Now())))
	return &Quoter{Products: store, Regions: region.MustDefault()}
}

func TestQuoteMergesDuplicateLines(t *testing.T) {
	q := newQuoter(t)
	quote, err := q.Quote(context.Background(), QuoteRequest{
		RegionID: "in",
		Items:    []QuoteItem{{ProductID: "1", Quantity: 1}, {ProductID: "2", Quantity: 1}, {ProductID: "1", Quantity: 1}},
	})
	require.NoError(t, err)
	require.Len(t, quote.Items, 2)
	require.Equal(t, 3, quote.ItemCount)
	require.Equal(t, "₹83.72", quote.Formatted.Total)
	require.Equal(t, "₹7.72", quote.Formatted.Tax)
	require.Equal(t, "GST", quote.TaxName)
	require.True(t, quote.Items[0].LineTax.Equal(pricing.MustParseMoney("1")))
}

func TestQuoteEmptyCart(t *testing.T) {
	q := newQuoter(t)
	quote, err := q.Quote(context.Background(), QuoteRequest{RegionID: "jp"})
	require.NoError(t, err)
	require.True(t, quote.Total.IsZero())
	require.Equal(t, "¥0.00", quote.Formatted.Total)
	require.Equal(t, "Consumption Tax", quote.TaxName)
}

func TestQuoteUnknownRegionFallsBack(t *testing.T) {
	q := newQuoter(t)
	quote, err := q.Quote(context.Background(), QuoteRequest{RegionID: "zz"})
	require.NoError(t, err)
	require.Equal(t, "in", quote.RegionID)
}

func TestQuoteHandler(t *testing.T) {
	h := &Handler{Quoter: newQuoter(t)}

	rec := httptest.NewRecorder()
	h.Quote(rec, httptest.NewRequest(http.MethodPost, "/api/cart/quote", strings.NewReader(`{"regionId":"uk","items":[{"productId":"10","quantity":4}]}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Quote struct {
			Total     float64   `json:"total"`
			Formatted Formatted `json:"formatted"`
		} `json:"quote"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 6.0, resp.Quote.Total)
	require.Equal(t, "£6.00", resp.Quote.Formatted.Total)

	rec = httptest.NewRecorder()
	h.Quote(rec, httptest.NewRequest(http.MethodPost, "/api/cart/quote", strings.NewReader(`{"regionId":"uk","items":[{"productId":"nope","quantity":1}]}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.Quote(rec, httptest.NewRequest(http.MethodPost, "/api/cart/quote", strings.NewReader(`{"regionId":"uk","items":[{"productId":"10","quantity":0}]}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
