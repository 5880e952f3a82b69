package analytics_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/kasir-api/internal/analytics"
	"github.com/noah-isme/kasir-api/internal/catalog"
	"github.com/noah-isme/kasir-api/internal/ledger"
	"github.com/noah-isme/kasir-api/internal/pricing"
)

type countingLedger struct {
	ledger.Store
	listCalls int
}

func (c *countingLedger) List(ctx context.Context, regionID string) ([]ledger.Transaction, error) {
	c.listCalls++
	return c.Store.List(ctx, regionID)
}

var day = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func seedLedger(t *testing.T) *countingLedger {
	t.Helper()
	clock := day
	store := ledger.NewMemoryStore(func() time.Time {
		clock = clock.Add(6 * time.Hour)
		return clock
	})
	biscuits := catalog.Product{ID: "1", Name: "Parle-G Biscuits", Price: 10, TaxRate: 5, RegionID: "in"}
	butter := catalog.Product{ID: "2", Name: "Amul Butter", Price: 56, TaxRate: 12, RegionID: "in"}
	salt := catalog.Product{ID: "3", Name: "Tata Salt", Price: 28, TaxRate: 5, RegionID: "in"}
	tea := catalog.Product{ID: "11", Name: "PG Tips Tea", Price: 3, TaxRate: 0, RegionID: "uk"}

	record := func(method ledger.PaymentMethod, regionID string, items ...ledger.Item) {
		priced := make([]pricing.Item, 0, len(items))
		for _, it := range items {
			priced = append(priced, pricing.Item{Price: it.Product.Price, TaxRate: it.Product.TaxRate, Quantity: it.Quantity})
		}
		sum := pricing.Compute(priced)
		_, err := store.Append(context.Background(), ledger.Transaction{
			Items: items, Subtotal: sum.Subtotal, Tax: sum.Tax, Total: sum.Total,
			PaymentMethod: method, RegionID: regionID,
		})
		require.NoError(t, err)
	}
	record(ledger.PaymentCash, "in", ledger.Item{Product: biscuits, Quantity: 2}, ledger.Item{Product: butter, Quantity: 1})
	record(ledger.PaymentUPI, "in", ledger.Item{Product: biscuits, Quantity: 3})
	record(ledger.PaymentCard, "in", ledger.Item{Product: salt, Quantity: 1})
	record(ledger.PaymentCash, "uk", ledger.Item{Product: tea, Quantity: 10})
	return &countingLedger{Store: store}
}

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestOverviewAggregatesRegion(t *testing.T) {
	svc := &analytics.Service{Ledger: seedLedger(t)}
	overview, err := svc.Overview(context.Background(), "in", 2)
	require.NoError(t, err)

	require.Equal(t, 3, overview.Stats.TotalTransactions)
	// 83.72 + 31.5 + 29.4
	require.True(t, overview.Stats.TotalRevenue.Equal(pricing.MustParseMoney("144.62")), overview.Stats.TotalRevenue.String())

	require.Len(t, overview.ByPaymentMethod, 3)
	require.Equal(t, ledger.PaymentCash, overview.ByPaymentMethod[0].PaymentMethod)
	require.True(t, overview.ByPaymentMethod[0].Revenue.Equal(pricing.MustParseMoney("83.72")))
	require.Equal(t, 1, overview.ByPaymentMethod[1].Transactions)

	require.Len(t, overview.TopProducts, 2)
	require.Equal(t, "1", overview.TopProducts[0].ProductID)
	require.Equal(t, 5, overview.TopProducts[0].Quantity)
	require.True(t, overview.TopProducts[0].Revenue.Equal(pricing.MustParseMoney("50")))
	require.Equal(t, "2", overview.TopProducts[1].ProductID)
}

func TestOverviewAllRegions(t *testing.T) {
	svc := &analytics.Service{Ledger: seedLedger(t)}
	overview, err := svc.Overview(context.Background(), "", 1)
	require.NoError(t, err)
	require.Equal(t, 4, overview.Stats.TotalTransactions)
	require.Equal(t, "11", overview.TopProducts[0].ProductID)
}

func TestOverviewCached(t *testing.T) {
	lg := seedLedger(t)
	svc := &analytics.Service{Ledger: lg, R: newRedis(t), TTL: time.Minute}
	first, err := svc.Overview(context.Background(), "in", 5)
	require.NoError(t, err)
	second, err := svc.Overview(context.Background(), "in", 5)
	require.NoError(t, err)
	require.Equal(t, 1, lg.listCalls)
	require.True(t, first.Stats.TotalRevenue.Equal(second.Stats.TotalRevenue))
	require.Equal(t, first.TopProducts[0].ProductID, second.TopProducts[0].ProductID)
}

func TestTopProductsPaging(t *testing.T) {
	svc := &analytics.Service{Ledger: seedLedger(t)}
	rows, err := svc.TopProducts(context.Background(), "in", 2, 1)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "2", rows[0].ProductID)

	rows, err = svc.TopProducts(context.Background(), "in", 2, 10)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestSalesRangeGroupsByDay(t *testing.T) {
	lg := seedLedger(t)
	svc := &analytics.Service{Ledger: lg, R: newRedis(t), TTL: time.Minute}
	from := day.Truncate(24 * time.Hour)
	to := from.AddDate(0, 0, 3)

	rows, err := svc.SalesRange(context.Background(), "", from, to)
	require.NoError(t, err)
	// 15:00 and 21:00 on day one, 03:00 and 09:00 on day two.
	require.Len(t, rows, 2)
	require.Equal(t, 2, rows[0].Transactions)
	require.Equal(t, 2, rows[1].Transactions)

	_, err = svc.SalesRange(context.Background(), "", from, to)
	require.NoError(t, err)
	require.Equal(t, 1, lg.listCalls)
}

func TestHandlers(t *testing.T) {
	h := &analytics.Handler{Svc: &analytics.Service{Ledger: seedLedger(t), Now: func() time.Time { return day.AddDate(0, 0, 2) }}}

	rec := httptest.NewRecorder()
	h.Overview(rec, httptest.NewRequest(http.MethodGet, "/api/analytics/overview?regionId=uk", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var overview struct {
		Stats struct {
			TotalRevenue float64 `json:"totalRevenue"`
		} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &overview))
	require.Equal(t, 30.0, overview.Stats.TotalRevenue)

	rec = httptest.NewRecorder()
	h.Sales(rec, httptest.NewRequest(http.MethodGet, "/api/analytics/sales?days=7", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.Sales(rec, httptest.NewRequest(http.MethodGet, "/api/analytics/sales?from=2024-05-02T00:00:00Z&to=2024-05-01T00:00:00Z", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.TopProducts(rec, httptest.NewRequest(http.MethodGet, "/api/analytics/top-products?regionId=in&limit=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"productId":"1"`)
}
