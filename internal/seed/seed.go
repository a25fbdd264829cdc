// Package seed loads the sample warehouse catalog used in development.
package seed

import (
	"context"
	"fmt"

	"warehouse-service/internal/apperr"
	"warehouse-service/internal/service"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type sampleItem struct {
	tag  string
	sku  string
	zone string
}

func intPtr(v int) *int { return &v }

func price(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

var products = []service.ProductSpec{
	{SKU: "LAP001", Name: "Dell XPS 13", Description: "13-inch laptop, 16GB RAM", ReorderPoint: intPtr(3), ReorderQuantity: intPtr(10), UnitPrice: price("999.99")},
	{SKU: "MOU001", Name: "Logitech MX Master 3", Description: "Wireless mouse", ReorderPoint: intPtr(5), ReorderQuantity: intPtr(20), UnitPrice: price("79.99")},
	{SKU: "KEY001", Name: "Mechanical Keyboard", Description: "RGB mechanical keyboard", ReorderPoint: intPtr(4), ReorderQuantity: intPtr(15), UnitPrice: price("129.99")},
	{SKU: "MON001", Name: `Samsung 27" Monitor`, Description: "4K UHD Monitor", ReorderPoint: intPtr(2), ReorderQuantity: intPtr(5), UnitPrice: price("299.99")},
}

var items = []sampleItem{
	{"RFID001", "LAP001", "Aisle A-01"},
	{"RFID002", "LAP001", "Aisle A-01"},
	{"RFID003", "MOU001", "Aisle B-02"},
	{"RFID004", "MOU001", "Aisle B-02"},
	{"RFID005", "KEY001", "Aisle C-01"},
	{"RFID006", "MON001", "Aisle D-03"},
}

// Result counts what Apply created
type Result struct {
	Products int
	Items    int
}

// Apply creates the sample products and items that do not exist yet.
// Running it again changes nothing.
func Apply(ctx context.Context, catalog *service.CatalogService, ledger *service.LedgerService, logger *zap.Logger) (Result, error) {
	var res Result

	for i := range products {
		spec := products[i]
		_, err := catalog.GetProductBySKU(ctx, spec.SKU)
		if err == nil {
			logger.Debug("Product already present", zap.String("sku", spec.SKU))
			continue
		}
		if !apperr.Is(err, apperr.CodeNotFound) {
			return res, fmt.Errorf("look up product %s: %w", spec.SKU, err)
		}

		if _, err := catalog.UpsertProduct(ctx, &spec); err != nil {
			return res, fmt.Errorf("create product %s: %w", spec.SKU, err)
		}
		res.Products++
	}

	for _, it := range items {
		_, err := ledger.GetItem(ctx, it.tag)
		if err == nil {
			logger.Debug("Item already present", zap.String("rfid_tag", it.tag))
			continue
		}
		if !apperr.Is(err, apperr.CodeUnknownTag) {
			return res, fmt.Errorf("look up item %s: %w", it.tag, err)
		}

		req := &service.ProvisionItemRequest{RFIDTag: it.tag, SKU: it.sku, LocationZone: it.zone}
		if _, err := ledger.ProvisionItem(ctx, req); err != nil {
			return res, fmt.Errorf("provision item %s: %w", it.tag, err)
		}
		res.Items++
	}

	return res, nil
}
