package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"warehouse-service/internal/models"
	"warehouse-service/internal/store"
	"warehouse-service/internal/store/storetest"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type memoryCache struct {
	mu          sync.Mutex
	levels      []models.InventoryLevel
	ok          bool
	version     int64
	getErr      error
	invalidated int
}

func (c *memoryCache) GetLevels(ctx context.Context) ([]models.InventoryLevel, int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, 0, false, c.getErr
	}
	return c.levels, c.version, c.ok, nil
}

func (c *memoryCache) SetLevels(ctx context.Context, version int64, levels []models.InventoryLevel) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if version != c.version {
		return false, nil
	}
	c.levels = levels
	c.ok = true
	return true, nil
}

func (c *memoryCache) InvalidateLevels(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.levels = nil
	c.ok = false
	c.version++
	c.invalidated++
	return nil
}

func (c *memoryCache) cached() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ok
}

// concurrentScanRepo invalidates the cache right after levels are read, as a
// scan committing in between would.
type concurrentScanRepo struct {
	store.Repository
	cache *memoryCache
}

func (r concurrentScanRepo) InventoryLevels(ctx context.Context) ([]models.InventoryLevel, error) {
	levels, err := r.Repository.InventoryLevels(ctx)
	_ = r.cache.InvalidateLevels(ctx)
	return levels, err
}

type recordingPublisher struct {
	mu     sync.Mutex
	scans  []*models.ScanRecordedEvent
	alerts []*models.AlertEvent
	err    error
}

func (p *recordingPublisher) PublishScanRecorded(ctx context.Context, event *models.ScanRecordedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scans = append(p.scans, event)
	return p.err
}

func (p *recordingPublisher) PublishAlertEvent(ctx context.Context, event *models.AlertEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alerts = append(p.alerts, event)
	return p.err
}

// failingTxRepo fails every transaction with err before running it
type failingTxRepo struct {
	store.Repository
	err error
}

func (r failingTxRepo) InTx(ctx context.Context, fn func(store.Repository) error) error {
	return r.err
}

var errDBDown = errors.New("connection refused")

// seedCatalog loads the sample warehouse: LAP001 (reorder point 3) with
// RFID001 and RFID002, MOU001 (reorder point 5) with RFID003 and RFID004.
func seedCatalog(t *testing.T, repo store.Repository) map[string]*models.Product {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	products := map[string]*models.Product{
		"LAP001": {SKU: "LAP001", Name: "Dell XPS 13", ReorderPoint: 3, ReorderQuantity: 10,
			UnitPrice: decimal.NewNullDecimal(decimal.RequireFromString("999.99")), CreatedAt: now, UpdatedAt: now},
		"MOU001": {SKU: "MOU001", Name: "Logitech MX Master 3", ReorderPoint: 5, ReorderQuantity: 20,
			UnitPrice: decimal.NewNullDecimal(decimal.RequireFromString("79.99")), CreatedAt: now, UpdatedAt: now},
	}
	for _, sku := range []string{"LAP001", "MOU001"} {
		require.NoError(t, repo.CreateProduct(ctx, products[sku]))
	}

	items := []struct {
		tag, sku, zone string
	}{
		{"RFID001", "LAP001", "Aisle A-01"},
		{"RFID002", "LAP001", "Aisle A-01"},
		{"RFID003", "MOU001", "Aisle B-02"},
		{"RFID004", "MOU001", "Aisle B-02"},
	}
	for _, it := range items {
		require.NoError(t, repo.CreateItem(ctx, &models.InventoryItem{
			RFIDTag:      it.tag,
			ProductID:    products[it.sku].ID,
			Status:       models.ItemStatusInStock,
			LocationZone: it.zone,
			CreatedAt:    now,
		}))
	}
	return products
}

func newSeededStore(t *testing.T) (*store.Store, map[string]*models.Product) {
	t.Helper()
	s := storetest.New(t)
	return s, seedCatalog(t, s)
}
