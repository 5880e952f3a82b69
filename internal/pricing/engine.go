package pricing

import "github.com/shopspring/decimal"

// Item describes a line item used for pricing calculation. TaxRate is a
// percentage (18 means 18%).
type Item struct {
	Price    float64
	TaxRate  float64
	Quantity int
}

// Summary aggregates computed pricing components.
type Summary struct {
	Subtotal Money `json:"subtotal"`
	Tax      Money `json:"tax"`
	Total    Money `json:"total"`
}

// LineTotal returns price × quantity for a single item.
func LineTotal(it Item) Money {
	return Money{d: lineAmount(it)}
}

// LineTax returns price × quantity × rate / 100 for a single item.
func LineTax(it Item) Money {
	return Money{d: lineTax(lineAmount(it), it.TaxRate)}
}

// Compute calculates cart totals. Every line is taxed at its own rate and the
// per-line taxes are summed; there is no blended cart rate. Values are not
// validated here, callers reject negative input before pricing.
func Compute(items []Item) Summary {
	subtotal := decimal.Zero
	tax := decimal.Zero
	for _, it := range items {
		amount := lineAmount(it)
		subtotal = subtotal.Add(amount)
		tax = tax.Add(lineTax(amount, it.TaxRate))
	}
	return Summary{
		Subtotal: Money{d: subtotal},
		Tax:      Money{d: tax},
		Total:    Money{d: subtotal.Add(tax)},
	}
}

func lineAmount(it Item) decimal.Decimal {
	return decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.Quantity)))
}

func lineTax(amount decimal.Decimal, rate float64) decimal.Decimal {
	// Shift(-2) divides by 100 without a rounding step.
	return amount.Mul(decimal.NewFromFloat(rate)).Shift(-2)
}
