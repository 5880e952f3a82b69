package catalog

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by stores when a product id is unknown.
var ErrNotFound = errors.New("catalog: product not found")

// Status controls whether a product is offered at the checkout.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// DefaultImage is used when a product is created without an image.
const DefaultImage = "/diverse-products-still-life.png"

// Product is a sellable item scoped to one region. TaxRate is a percentage.
type Product struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Price     float64   `json:"price"`
	TaxRate   float64   `json:"taxRate"`
	Image     string    `json:"image"`
	Status    Status    `json:"status"`
	RegionID  string    `json:"regionId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Active reports whether the product is offered at the checkout.
func (p Product) Active() bool { return p.Status == StatusActive }

// Patch is a partial update; nil fields are left untouched.
type Patch struct {
	Name     *string
	Category *string
	Price    *float64
	TaxRate  *float64
	Image    *string
	Status   *Status
	RegionID *string
}

// Apply merges the patch into p and returns the result.
func (patch Patch) Apply(p Product) Product {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Category != nil {
		p.Category = *patch.Category
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.TaxRate != nil {
		p.TaxRate = *patch.TaxRate
	}
	if patch.Image != nil {
		p.Image = *patch.Image
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	if patch.RegionID != nil {
		p.RegionID = *patch.RegionID
	}
	return p
}

// Store persists products. Implementations assign ids and creation times on
// Create when they are empty, and return ErrNotFound for unknown ids.
type Store interface {
	List(ctx context.Context, regionID string) ([]Product, error)
	ListActive(ctx context.Context, regionID string) ([]Product, error)
	Get(ctx context.Context, id string) (Product, error)
	Create(ctx context.Context, p Product) (Product, error)
	Update(ctx context.Context, id string, patch Patch) (Product, error)
	Delete(ctx context.Context, id string) (bool, error)
}
