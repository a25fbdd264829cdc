package store

import (
	"context"

	"warehouse-service/internal/apperr"
	"warehouse-service/internal/models"
)

const productColumns = `id, sku, name, description, reorder_point, reorder_quantity, unit_price, created_at, updated_at`

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := s.get(ctx, &product, "SELECT "+productColumns+" FROM products WHERE id = ?", id)
	if err != nil {
		return nil, notFound(err, "product", id)
	}
	return &product, nil
}

// GetProductBySKU retrieves a product by SKU
func (s *Store) GetProductBySKU(ctx context.Context, sku string) (*models.Product, error) {
	var product models.Product
	err := s.get(ctx, &product, "SELECT "+productColumns+" FROM products WHERE sku = ?", sku)
	if err != nil {
		return nil, notFound(err, "product", sku)
	}
	return &product, nil
}

// ListProducts retrieves all products
func (s *Store) ListProducts(ctx context.Context) ([]models.Product, error) {
	products := []models.Product{}
	err := s.selectAll(ctx, &products, "SELECT "+productColumns+" FROM products ORDER BY id")
	if err != nil {
		return nil, classify(err, "list products")
	}
	return products, nil
}

// CreateProduct inserts a product and fills in its ID
func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (sku, name, description, reorder_point, reorder_quantity, unit_price, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`

	err := s.get(ctx, &product.ID, query,
		product.SKU, product.Name, product.Description, product.ReorderPoint,
		product.ReorderQuantity, product.UnitPrice, product.CreatedAt, product.UpdatedAt)
	return classify(err, "create product")
}

// UpdateProduct overwrites the editable fields of an existing product
func (s *Store) UpdateProduct(ctx context.Context, product *models.Product) error {
	res, err := s.exec(ctx, `
		UPDATE products
		SET sku = ?, name = ?, description = ?, reorder_point = ?, reorder_quantity = ?, unit_price = ?, updated_at = ?
		WHERE id = ?`,
		product.SKU, product.Name, product.Description, product.ReorderPoint,
		product.ReorderQuantity, product.UnitPrice, product.UpdatedAt, product.ID)
	if err != nil {
		return classify(err, "update product")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return classify(err, "update product")
	}
	if n == 0 {
		return apperr.Newf(apperr.CodeNotFound, "product not found: %d", product.ID)
	}
	return nil
}

// LockProducts takes row locks on the whole catalog so that concurrent alert
// refreshes serialize. It is a no-op on drivers without row locking.
func (s *Store) LockProducts(ctx context.Context) error {
	lock := s.forUpdate()
	if lock == "" {
		return nil
	}

	var ids []int64
	err := s.selectAll(ctx, &ids, "SELECT id FROM products ORDER BY id"+lock)
	return classify(err, "lock products")
}
