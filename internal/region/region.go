package region

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/kasir-api/internal/pricing"
)

// Region is a tax jurisdiction with its own currency and tax-rate menu.
type Region struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Currency       string    `json:"currency"`
	CurrencySymbol string    `json:"currencySymbol"`
	TaxName        string    `json:"taxName"`
	TaxRates       []float64 `json:"taxRates"`
	DefaultTaxRate float64   `json:"defaultTaxRate"`
}

// HasRate reports whether rate is part of the region's tax menu.
func (r Region) HasRate(rate float64) bool {
	return slices.Contains(r.TaxRates, rate)
}

// Registry is an immutable, ordered set of regions. The first entry is the
// fallback for unknown ids.
type Registry struct {
	ordered []Region
	byID    map[string]int
}

// Defaults returns the built-in regions in selector order.
func Defaults() []Region {
	return []Region{
		{ID: "in", Name: "India", Currency: "INR", CurrencySymbol: "₹", TaxName: "GST", TaxRates: []float64{0, 5, 12, 18, 28}, DefaultTaxRate: 18},
		{ID: "us", Name: "United States", Currency: "USD", CurrencySymbol: "$", TaxName: "Sales Tax", TaxRates: []float64{0, 5, 7, 8.25, 10}, DefaultTaxRate: 8.25},
		{ID: "uk", Name: "United Kingdom", Currency: "GBP", CurrencySymbol: "£", TaxName: "VAT", TaxRates: []float64{0, 5, 20}, DefaultTaxRate: 20},
		{ID: "eu", Name: "European Union", Currency: "EUR", CurrencySymbol: "€", TaxName: "VAT", TaxRates: []float64{0, 5, 10, 20, 25}, DefaultTaxRate: 20},
		{ID: "ae", Name: "UAE", Currency: "AED", CurrencySymbol: "د.إ", TaxName: "VAT", TaxRates: []float64{0, 5}, DefaultTaxRate: 5},
		{ID: "jp", Name: "Japan", Currency: "JPY", CurrencySymbol: "¥", TaxName: "Consumption Tax", TaxRates: []float64{0, 8, 10}, DefaultTaxRate: 10},
	}
}

// NewRegistry validates regions and builds a Registry. Ids must be unique and
// every default rate must appear in its rate list.
func NewRegistry(regions []Region) (*Registry, error) {
	if len(regions) == 0 {
		return nil, fmt.Errorf("region: at least one region is required")
	}
	reg := &Registry{
		ordered: make([]Region, 0, len(regions)),
		byID:    make(map[string]int, len(regions)),
	}
	for _, r := range regions {
		if r.ID == "" {
			return nil, fmt.Errorf("region: empty id")
		}
		if _, dup := reg.byID[r.ID]; dup {
			return nil, fmt.Errorf("region: duplicate id %q", r.ID)
		}
		if !r.HasRate(r.DefaultTaxRate) {
			return nil, fmt.Errorf("region %s: default tax rate %s not in %v", r.ID, strconv.FormatFloat(r.DefaultTaxRate, 'f', -1, 64), r.TaxRates)
		}
		r.TaxRates = slices.Clone(r.TaxRates)
		reg.byID[r.ID] = len(reg.ordered)
		reg.ordered = append(reg.ordered, r)
	}
	return reg, nil
}

// MustDefault returns a registry over Defaults.
func MustDefault() *Registry {
	reg, err := NewRegistry(Defaults())
	if err != nil {
		panic(err)
	}
	return reg
}

// List returns every region in registry order.
func (g *Registry) List() []Region {
	out := make([]Region, len(g.ordered))
	for i, r := range g.ordered {
		r.TaxRates = slices.Clone(r.TaxRates)
		out[i] = r
	}
	return out
}

// Get returns the region for id, or the first region when id is unknown or
// empty.
func (g *Registry) Get(id string) Region {
	if r, ok := g.Lookup(id); ok {
		return r
	}
	r := g.ordered[0]
	r.TaxRates = slices.Clone(r.TaxRates)
	return r
}

// Lookup is the strict form of Get.
func (g *Registry) Lookup(id string) (Region, bool) {
	idx, ok := g.byID[id]
	if !ok {
		return Region{}, false
	}
	r := g.ordered[idx]
	r.TaxRates = slices.Clone(r.TaxRates)
	return r, true
}

// Known reports whether id names a registered region.
func (g *Registry) Known(id string) bool {
	_, ok := g.byID[id]
	return ok
}

// Format renders amount with the region's symbol and exactly two decimals.
// Currencies without a minor unit (JPY) still get two decimals.
func (g *Registry) Format(amount float64, regionID string) string {
	return g.Get(regionID).CurrencySymbol + decimal.NewFromFloat(amount).StringFixed(2)
}

// FormatMoney is Format for exact amounts.
func (g *Registry) FormatMoney(amount pricing.Money, regionID string) string {
	return g.Get(regionID).CurrencySymbol + amount.StringFixed(2)
}
