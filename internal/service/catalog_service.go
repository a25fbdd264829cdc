package service

import (
	"context"
	"strings"
	"time"

	"warehouse-service/internal/models"
	"warehouse-service/internal/store"
	"warehouse-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultReorderPoint    = 10
	defaultReorderQuantity = 50
)

// CatalogService manages product definitions and their reorder policy
type CatalogService struct {
	repo   store.Repository
	cache  LevelCache
	logger *zap.Logger
}

// NewCatalogService creates a new catalog service. cache may be nil.
func NewCatalogService(repo store.Repository, cache LevelCache) *CatalogService {
	return &CatalogService{
		repo:   repo,
		cache:  cache,
		logger: util.Named("catalog"),
	}
}

// ProductSpec is the writable shape of a product. ID 0 creates a product;
// nil policy fields take the defaults on create and keep the stored value on update.
type ProductSpec struct {
	ID              int64            `json:"id"`
	SKU             string           `json:"sku" validate:"required,max=50"`
	Name            string           `json:"name" validate:"required,max=200"`
	Description     string           `json:"description"`
	ReorderPoint    *int             `json:"reorder_point" validate:"omitempty,min=0"`
	ReorderQuantity *int             `json:"reorder_quantity" validate:"omitempty,gt=0"`
	UnitPrice       *decimal.Decimal `json:"unit_price"`
}

func (p *ProductSpec) normalize() {
	p.SKU = strings.TrimSpace(p.SKU)
	p.Name = strings.TrimSpace(p.Name)
	p.Description = strings.TrimSpace(p.Description)
}

func (p *ProductSpec) validate() error {
	p.normalize()
	if err := validateStruct(p); err != nil {
		return err
	}
	if p.UnitPrice != nil && p.UnitPrice.IsNegative() {
		return fieldError("unit_price", "must be at least 0")
	}
	return nil
}

// GetProduct retrieves a product by ID
func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.GetProduct")
	defer span.End()

	return s.repo.GetProductByID(ctx, id)
}

// GetProductBySKU retrieves a product by SKU
func (s *CatalogService) GetProductBySKU(ctx context.Context, sku string) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.GetProductBySKU")
	defer span.End()

	return s.repo.GetProductBySKU(ctx, strings.TrimSpace(sku))
}

// ListProducts returns the whole catalog ordered by ID
func (s *CatalogService) ListProducts(ctx context.Context) ([]models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.ListProducts")
	defer span.End()

	return s.repo.ListProducts(ctx)
}

// UpsertProduct validates spec and creates or updates the product it describes
func (s *CatalogService) UpsertProduct(ctx context.Context, spec *ProductSpec) (product *models.Product, err error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.UpsertProduct")
	defer func() { util.EndSpan(span, err) }()

	if err := spec.validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	err = s.repo.InTx(ctx, func(tx store.Repository) error {
		if spec.ID == 0 {
			product = &models.Product{
				ReorderPoint:    defaultReorderPoint,
				ReorderQuantity: defaultReorderQuantity,
				CreatedAt:       now,
			}
			spec.applyTo(product, now)
			return tx.CreateProduct(ctx, product)
		}

		existing, err := tx.GetProductByID(ctx, spec.ID)
		if err != nil {
			return err
		}
		spec.applyTo(existing, now)
		product = existing
		return tx.UpdateProduct(ctx, product)
	})
	if err != nil {
		s.logger.Warn("Product upsert failed", zap.String("sku", spec.SKU), zap.Int64("id", spec.ID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("Product saved", zap.Int64("product_id", product.ID), zap.String("sku", product.SKU))
	invalidateLevels(ctx, s.cache, s.logger)
	return product, nil
}

func (p *ProductSpec) applyTo(product *models.Product, now time.Time) {
	product.SKU = p.SKU
	product.Name = p.Name
	product.Description = p.Description
	if p.ReorderPoint != nil {
		product.ReorderPoint = *p.ReorderPoint
	}
	if p.ReorderQuantity != nil {
		product.ReorderQuantity = *p.ReorderQuantity
	}
	if p.UnitPrice != nil {
		product.UnitPrice = decimal.NewNullDecimal(*p.UnitPrice)
	}
	product.UpdatedAt = now
}
