package service

import (
	"context"
	"strings"
	"testing"

	"warehouse-service/internal/apperr"
	"warehouse-service/internal/store/storetest"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestUpsertProductCreatesWithDefaults(t *testing.T) {
	cache := &memoryCache{}
	svc := NewCatalogService(storetest.New(t), cache)
	ctx := context.Background()

	product, err := svc.UpsertProduct(ctx, &ProductSpec{SKU: " KEY001 ", Name: "Mechanical Keyboard"})
	require.NoError(t, err)
	assert.NotZero(t, product.ID)
	assert.Equal(t, "KEY001", product.SKU)
	assert.Equal(t, defaultReorderPoint, product.ReorderPoint)
	assert.Equal(t, defaultReorderQuantity, product.ReorderQuantity)
	assert.False(t, product.UnitPrice.Valid)
	assert.Equal(t, 1, cache.invalidated)

	got, err := svc.GetProductBySKU(ctx, "KEY001")
	require.NoError(t, err)
	assert.Equal(t, product.ID, got.ID)
}

func TestUpsertProductUpdatesExisting(t *testing.T) {
	svc := NewCatalogService(storetest.New(t), nil)
	ctx := context.Background()

	price := decimal.RequireFromString("129.99")
	created, err := svc.UpsertProduct(ctx, &ProductSpec{
		SKU: "KEY001", Name: "Keyboard", ReorderPoint: intPtr(4), ReorderQuantity: intPtr(15), UnitPrice: &price,
	})
	require.NoError(t, err)

	updated, err := svc.UpsertProduct(ctx, &ProductSpec{ID: created.ID, SKU: "KEY001", Name: "Mechanical Keyboard"})
	require.NoError(t, err)
	assert.Equal(t, "Mechanical Keyboard", updated.Name)
	assert.Equal(t, 4, updated.ReorderPoint, "unset policy fields keep stored values")
	assert.Equal(t, 15, updated.ReorderQuantity)
	assert.True(t, updated.UnitPrice.Decimal.Equal(price))
	assert.Equal(t, created.CreatedAt.Unix(), updated.CreatedAt.Unix())

	list, err := svc.ListProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestUpsertProductErrors(t *testing.T) {
	svc := NewCatalogService(storetest.New(t), nil)
	ctx := context.Background()

	_, err := svc.UpsertProduct(ctx, &ProductSpec{SKU: "LAP001", Name: "Laptop"})
	require.NoError(t, err)

	_, err = svc.UpsertProduct(ctx, &ProductSpec{SKU: "LAP001", Name: "Other"})
	assert.True(t, apperr.Is(err, apperr.CodeConflict), "duplicate sku, got %v", err)

	_, err = svc.UpsertProduct(ctx, &ProductSpec{ID: 999, SKU: "X1", Name: "Ghost"})
	assert.True(t, apperr.Is(err, apperr.CodeNotFound), "got %v", err)

	negative := decimal.RequireFromString("-1")
	invalid := []ProductSpec{
		{SKU: "", Name: "No SKU"},
		{SKU: "S1", Name: "  "},
		{SKU: "S2", Name: "Bad point", ReorderPoint: intPtr(-1)},
		{SKU: "S3", Name: "Bad quantity", ReorderQuantity: intPtr(0)},
		{SKU: "S4", Name: "Bad price", UnitPrice: &negative},
		{SKU: "S5", Name: strings.Repeat("n", 201)},
		{SKU: strings.Repeat("S", 51), Name: "Long SKU"},
	}
	for _, spec := range invalid {
		spec := spec
		_, err := svc.UpsertProduct(ctx, &spec)
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.CodeValidation), "spec %+v: got %v", spec, err)
		assert.NotNil(t, apperr.As(err).Details())
	}

	list, err := svc.ListProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1, "invalid specs must not write")
}

func TestGetProductNotFound(t *testing.T) {
	svc := NewCatalogService(storetest.New(t), nil)

	_, err := svc.GetProduct(context.Background(), 1)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}
