package analytics

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/kasir-api/internal/ledger"
	"github.com/noah-isme/kasir-api/internal/pricing"
)

// TransactionLister defines the ledger access required for analytics.
type TransactionLister interface {
	List(ctx context.Context, regionID string) ([]ledger.Transaction, error)
}

// Service computes dashboard aggregates over the ledger and caches them in
// Redis for TTL. Cached values may lag new transactions by up to TTL.
type Service struct {
	Ledger       TransactionLister
	R            *redis.Client
	TTL          time.Duration
	DefaultRange int
	Now          func() time.Time
}

// MethodRevenue is the revenue collected through one payment method.
type MethodRevenue struct {
	PaymentMethod ledger.PaymentMethod `json:"paymentMethod"`
	Transactions  int                  `json:"transactions"`
	Revenue       pricing.Money        `json:"revenue"`
}

// TopProduct ranks a product by units sold. Revenue excludes tax.
type TopProduct struct {
	ProductID string        `json:"productId"`
	Name      string        `json:"name"`
	Quantity  int           `json:"quantity"`
	Revenue   pricing.Money `json:"revenue"`
}

// DailySales aggregates one UTC day.
type DailySales struct {
	Day          time.Time     `json:"day"`
	Transactions int           `json:"transactions"`
	Revenue      pricing.Money `json:"revenue"`
	Tax          pricing.Money `json:"tax"`
}

// Overview is the analytics dashboard payload.
type Overview struct {
	RegionID        string          `json:"regionId,omitempty"`
	Stats           ledger.Stats    `json:"stats"`
	ByPaymentMethod []MethodRevenue `json:"byPaymentMethod"`
	TopProducts     []TopProduct    `json:"topProducts"`
	GeneratedAt     time.Time       `json:"generatedAt"`
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func cacheKey(parts ...any) string {
	formatted := make([]string, 0, len(parts))
	for _, part := range parts {
		formatted = append(formatted, fmt.Sprint(part))
	}
	return strings.Join(formatted, ":")
}

// Overview returns stats, revenue by payment method and the top topN products
// of a region. An empty regionID covers every region.
func (s *Service) Overview(ctx context.Context, regionID string, topN int) (Overview, error) {
	if s == nil || s.Ledger == nil {
		return Overview{}, fmt.Errorf("analytics service not configured")
	}
	if topN <= 0 {
		topN = 5
	}
	key := cacheKey("an", "overview", regionOrAll(regionID), topN)
	var cached Overview
	if s.load(ctx, key, &cached) {
		return cached, nil
	}
	txs, err := s.Ledger.List(ctx, regionID)
	if err != nil {
		return Overview{}, fmt.Errorf("list transactions: %w", err)
	}
	out := Overview{
		RegionID:        regionID,
		Stats:           ledger.Summarize(txs),
		ByPaymentMethod: revenueByMethod(txs),
		TopProducts:     rankProducts(txs, topN, 0),
		GeneratedAt:     s.now().UTC(),
	}
	s.store(ctx, key, out)
	return out, nil
}

// TopProducts returns a page of products ordered by units sold.
func (s *Service) TopProducts(ctx context.Context, regionID string, limit, offset int) ([]TopProduct, error) {
	if s == nil || s.Ledger == nil {
		return nil, fmt.Errorf("analytics service not configured")
	}
	if limit <= 0 {
		limit = 10
	}
	offset = max(offset, 0)
	key := cacheKey("an", "top", regionOrAll(regionID), limit, offset)
	var cached []TopProduct
	if s.load(ctx, key, &cached) {
		return cached, nil
	}
	txs, err := s.Ledger.List(ctx, regionID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	rows := rankProducts(txs, limit, offset)
	s.store(ctx, key, rows)
	return rows, nil
}

// SalesRange returns per-day sales between from (inclusive) and to
// (exclusive). Days without sales are omitted.
func (s *Service) SalesRange(ctx context.Context, regionID string, from, to time.Time) ([]DailySales, error) {
	if s == nil || s.Ledger == nil {
		return nil, fmt.Errorf("analytics service not configured")
	}
	key := cacheKey("an", "sales", regionOrAll(regionID), from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339))
	var cached []DailySales
	if s.load(ctx, key, &cached) {
		return cached, nil
	}
	txs, err := s.Ledger.List(ctx, regionID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	rows := dailySales(txs, from, to)
	s.store(ctx, key, rows)
	return rows, nil
}

func revenueByMethod(txs []ledger.Transaction) []MethodRevenue {
	methods := []ledger.PaymentMethod{ledger.PaymentCash, ledger.PaymentUPI, ledger.PaymentCard}
	out := make([]MethodRevenue, len(methods))
	for i, m := range methods {
		out[i] = MethodRevenue{PaymentMethod: m, Revenue: pricing.Zero}
	}
	for _, tx := range txs {
		idx := slices.Index(methods, tx.PaymentMethod)
		if idx < 0 {
			continue
		}
		out[idx].Transactions++
		out[idx].Revenue = out[idx].Revenue.Add(tx.Total)
	}
	return out
}

func rankProducts(txs []ledger.Transaction, limit, offset int) []TopProduct {
	index := map[string]int{}
	var rows []TopProduct
	for _, tx := range txs {
		for _, it := range tx.Items {
			line := pricing.LineTotal(pricing.Item{Price: it.Product.Price, TaxRate: it.Product.TaxRate, Quantity: it.Quantity})
			idx, ok := index[it.Product.ID]
			if !ok {
				idx = len(rows)
				index[it.Product.ID] = idx
				rows = append(rows, TopProduct{ProductID: it.Product.ID, Name: it.Product.Name})
			}
			rows[idx].Quantity += it.Quantity
			rows[idx].Revenue = rows[idx].Revenue.Add(line)
		}
	}
	slices.SortStableFunc(rows, func(a, b TopProduct) int {
		if c := cmp.Compare(b.Quantity, a.Quantity); c != 0 {
			return c
		}
		if c := b.Revenue.Decimal().Cmp(a.Revenue.Decimal()); c != 0 {
			return c
		}
		return cmp.Compare(a.ProductID, b.ProductID)
	})
	if offset >= len(rows) {
		return []TopProduct{}
	}
	rows = rows[offset:]
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}

func dailySales(txs []ledger.Transaction, from, to time.Time) []DailySales {
	index := map[time.Time]int{}
	rows := []DailySales{}
	for _, tx := range txs {
		if tx.CreatedAt.Before(from) || !tx.CreatedAt.Before(to) {
			continue
		}
		day := tx.CreatedAt.UTC().Truncate(24 * time.Hour)
		idx, ok := index[day]
		if !ok {
			idx = len(rows)
			index[day] = idx
			rows = append(rows, DailySales{Day: day})
		}
		rows[idx].Transactions++
		rows[idx].Revenue = rows[idx].Revenue.Add(tx.Total)
		rows[idx].Tax = rows[idx].Tax.Add(tx.Tax)
	}
	slices.SortFunc(rows, func(a, b DailySales) int { return a.Day.Compare(b.Day) })
	return rows
}

func regionOrAll(regionID string) string {
	if regionID == "" {
		return "all"
	}
	return regionID
}

func (s *Service) load(ctx context.Context, key string, dst any) bool {
	if s.R == nil || s.TTL <= 0 {
		return false
	}
	data, err := s.R.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

func (s *Service) store(ctx context.Context, key string, value any) {
	if s.R == nil || s.TTL <= 0 {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = s.R.Set(ctx, key, data, s.TTL).Err()
}
