package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/kasir-api/internal/common"
	"github.com/noah-isme/kasir-api/internal/region"
)

// Service validates catalog writes and caches per-region active listings.
type Service struct {
	store   Store
	regions *region.Registry
	cache   *Cache
	logger  zerolog.Logger
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store   Store
	Regions *region.Registry
	Cache   *Cache
	Logger  zerolog.Logger
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("catalog: store is required")
	}
	if cfg.Regions == nil {
		return nil, errors.New("catalog: region registry is required")
	}
	return &Service{
		store:   cfg.Store,
		regions: cfg.Regions,
		cache:   cfg.Cache,
		logger:  cfg.Logger,
	}, nil
}

// CreateInput is the payload accepted when adding a product.
type CreateInput struct {
	Name     string   `json:"name" validate:"required"`
	Category string   `json:"category" validate:"required"`
	Price    *float64 `json:"price" validate:"required,gte=0"`
	TaxRate  *float64 `json:"taxRate" validate:"required,gte=0"`
	Image    string   `json:"image"`
	Status   Status   `json:"status" validate:"omitempty,oneof=active inactive"`
	RegionID string   `json:"regionId" validate:"required"`
}

// UpdateInput is a partial update; omitted fields keep their value.
type UpdateInput struct {
	Name     *string  `json:"name" validate:"omitnil,min=1"`
	Category *string  `json:"category" validate:"omitnil,min=1"`
	Price    *float64 `json:"price" validate:"omitnil,gte=0"`
	TaxRate  *float64 `json:"taxRate" validate:"omitnil,gte=0"`
	Image    *string  `json:"image"`
	Status   *Status  `json:"status" validate:"omitnil,oneof=active inactive"`
	RegionID *string  `json:"regionId" validate:"omitnil,min=1"`
}

// List returns every product, optionally restricted to a region, including
// inactive ones.
func (s *Service) List(ctx context.Context, regionID string) ([]Product, error) {
	products, err := s.store.List(ctx, strings.TrimSpace(regionID))
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// ListActive returns the products offered at the checkout of a region.
func (s *Service) ListActive(ctx context.Context, regionID string) ([]Product, error) {
	regionID = strings.TrimSpace(regionID)
	products, err := s.cache.ActiveList(ctx, s.logger, regionID, func(ctx context.Context) ([]Product, error) {
		return s.store.ListActive(ctx, regionID)
	})
	if err != nil {
		return nil, fmt.Errorf("list active products: %w", err)
	}
	return products, nil
}

// Get returns a single product.
func (s *Service) Get(ctx context.Context, id string) (Product, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return Product{}, mapStoreError(err)
	}
	return p, nil
}

// Create validates the input and stores a new product.
func (s *Service) Create(ctx context.Context, in CreateInput) (Product, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.TrimSpace(in.Category)
	in.RegionID = strings.TrimSpace(in.RegionID)
	if err := common.Validate(in); err != nil {
		return Product{}, err
	}
	if !s.regions.Known(in.RegionID) {
		return Product{}, unknownRegion(in.RegionID)
	}
	p := Product{
		Name:     in.Name,
		Category: in.Category,
		Price:    *in.Price,
		TaxRate:  *in.TaxRate,
		Image:    strings.TrimSpace(in.Image),
		Status:   in.Status,
		RegionID: in.RegionID,
	}
	if p.Image == "" {
		p.Image = DefaultImage
	}
	if p.Status == "" {
		p.Status = StatusActive
	}
	created, err := s.store.Create(ctx, p)
	if err != nil {
		return Product{}, fmt.Errorf("create product: %w", err)
	}
	s.invalidate(ctx, created.RegionID)
	return created, nil
}

// Update merges in into the stored product.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (Product, error) {
	in.Name = trimPtr(in.Name)
	in.Category = trimPtr(in.Category)
	in.RegionID = trimPtr(in.RegionID)
	if err := common.Validate(in); err != nil {
		return Product{}, err
	}
	if in.RegionID != nil && !s.regions.Known(*in.RegionID) {
		return Product{}, unknownRegion(*in.RegionID)
	}
	before, err := s.store.Get(ctx, id)
	if err != nil {
		return Product{}, mapStoreError(err)
	}
	updated, err := s.store.Update(ctx, id, Patch{
		Name:     in.Name,
		Category: in.Category,
		Price:    in.Price,
		TaxRate:  in.TaxRate,
		Image:    in.Image,
		Status:   in.Status,
		RegionID: in.RegionID,
	})
	if err != nil {
		return Product{}, mapStoreError(err)
	}
	s.invalidate(ctx, before.RegionID, updated.RegionID)
	return updated, nil
}

// Delete removes a product. It reports NOT_FOUND for unknown ids.
func (s *Service) Delete(ctx context.Context, id string) error {
	before, err := s.store.Get(ctx, id)
	if err != nil {
		return mapStoreError(err)
	}
	ok, err := s.store.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if !ok {
		return common.NotFound("product not found", ErrNotFound)
	}
	s.invalidate(ctx, before.RegionID)
	return nil
}

func (s *Service) invalidate(ctx context.Context, regionIDs ...string) {
	if err := s.cache.Forget(ctx, regionIDs...); err != nil {
		s.logger.Warn().Err(err).Strs("regions", regionIDs).Msg("catalog cache invalidation failed")
	}
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func mapStoreError(err error) error {
	if errors.Is(err, ErrNotFound) {
		return common.NotFound("product not found", err)
	}
	return err
}

func unknownRegion(id string) *common.AppError {
	return common.ValidationError("regionId", fmt.Sprintf("unknown region %q", id))
}
