package cart

import (
	"github.com/noah-isme/kasir-api/internal/catalog"
	"github.com/noah-isme/kasir-api/internal/ledger"
	"github.com/noah-isme/kasir-api/internal/pricing"
)

// Cart is a transient, single-owner basket. A line never has a quantity
// below one; reaching zero removes it.
type Cart struct {
	lines []ledger.Item
}

// Add puts one unit of p in the cart, incrementing an existing line.
func (c *Cart) Add(p catalog.Product) {
	c.AddQuantity(p, 1)
}

// AddQuantity adds qty units of p. Non-positive quantities are ignored.
func (c *Cart) AddQuantity(p catalog.Product, qty int) {
	if qty <= 0 {
		return
	}
	if idx := c.indexOf(p.ID); idx >= 0 {
		c.lines[idx].Quantity += qty
		return
	}
	c.lines = append(c.lines, ledger.Item{Product: p, Quantity: qty})
}

// Update changes the quantity of a line by delta and drops it when the
// quantity falls to zero or below. Unknown ids are ignored.
func (c *Cart) Update(productID string, delta int) {
	idx := c.indexOf(productID)
	if idx < 0 {
		return
	}
	qty := c.lines[idx].Quantity + delta
	if qty <= 0 {
		c.Remove(productID)
		return
	}
	c.lines[idx].Quantity = qty
}

// Remove drops a line.
func (c *Cart) Remove(productID string) {
	if idx := c.indexOf(productID); idx >= 0 {
		c.lines = append(c.lines[:idx], c.lines[idx+1:]...)
	}
}

// Clear empties the cart.
func (c *Cart) Clear() { c.lines = nil }

// Items returns a copy of the lines in insertion order.
func (c *Cart) Items() []ledger.Item {
	out := make([]ledger.Item, len(c.lines))
	copy(out, c.lines)
	return out
}

// Count returns the total number of units.
func (c *Cart) Count() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

// Empty reports whether the cart has no lines.
func (c *Cart) Empty() bool { return len(c.lines) == 0 }

// Summary prices the cart, taxing each line at its own rate.
func (c *Cart) Summary() pricing.Summary {
	items := make([]pricing.Item, 0, len(c.lines))
	for _, l := range c.lines {
		items = append(items, pricing.Item{Price: l.Product.Price, TaxRate: l.Product.TaxRate, Quantity: l.Quantity})
	}
	return pricing.Compute(items)
}

func (c *Cart) indexOf(productID string) int {
	for i, l := range c.lines {
		if l.Product.ID == productID {
			return i
		}
	}
	return -1
}
