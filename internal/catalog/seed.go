package catalog

import (
	"context"
	"fmt"
	"time"
)

// SeedProducts returns the demo catalog used for fresh installations.
func SeedProducts(now time.Time) []Product {
	now = now.UTC()
	p := func(id, name, category string, price, taxRate float64, image, regionID string) Product {
		return Product{
			ID:        id,
			Name:      name,
			Category:  category,
			Price:     price,
			TaxRate:   taxRate,
			Image:     image,
			Status:    StatusActive,
			RegionID:  regionID,
			CreatedAt: now,
		}
	}
	return []Product{
		p("1", "Parle-G Biscuits", "Snacks", 10, 5, "/parle-g-biscuits-packet.jpg", "in"),
		p("2", "Amul Butter", "Dairy", 56, 12, "/amul-butter-yellow-packet.jpg", "in"),
		p("3", "Tata Salt", "Grocery", 28, 5, "/tata-salt-packet.jpg", "in"),
		p("4", "Maggi Noodles", "Snacks", 14, 18, "/maggi-noodles-packet.jpg", "in"),
		p("5", "Coca Cola 500ml", "Beverages", 40, 28, "/classic-coca-cola.png", "in"),
		p("6", "Lays Chips", "Snacks", 20, 12, "/lays-chips-packet.jpg", "in"),
		p("7", "Oreo Cookies", "Snacks", 4.99, 8.25, "/oreo-cookies-pack.jpg", "us"),
		p("8", "Milk Gallon", "Dairy", 3.49, 0, "/milk-gallon-jug.jpg", "us"),
		p("9", "Pepsi 2L", "Beverages", 2.99, 8.25, "/pepsi-2-liter-bottle.jpg", "us"),
		p("10", "Digestive Biscuits", "Snacks", 1.5, 0, "/mcvities-digestive-biscuits.jpg", "uk"),
		p("11", "PG Tips Tea", "Beverages", 3.0, 0, "/pg-tips-tea-box.jpg", "uk"),
		p("12", "Nutella 400g", "Snacks", 4.5, 20, "/nutella-jar.jpg", "eu"),
		p("13", "San Pellegrino", "Beverages", 2.2, 20, "/san-pellegrino-bottle.jpg", "eu"),
	}
}

// Seed writes products into store. Existing ids are overwritten.
func Seed(ctx context.Context, store Store, products []Product) error {
	for _, p := range products {
		if _, err := store.Create(ctx, p); err != nil {
			return fmt.Errorf("seed product %s: %w", p.ID, err)
		}
	}
	return nil
}
