package store

import (
	"context"

	"warehouse-service/internal/apperr"
	"warehouse-service/internal/models"
)

const (
	itemColumns        = `id, rfid_tag, product_id, status, location_zone, last_scanned_at, created_at`
	transactionColumns = `id, rfid_tag, action, location, scanned_by, created_at`
)

// CreateItem provisions a tagged unit and fills in its ID
func (s *Store) CreateItem(ctx context.Context, item *models.InventoryItem) error {
	query := `
		INSERT INTO inventory_items (rfid_tag, product_id, status, location_zone, last_scanned_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`

	err := s.get(ctx, &item.ID, query,
		item.RFIDTag, item.ProductID, item.Status, item.LocationZone, item.LastScannedAt, item.CreatedAt)
	return classify(err, "create inventory item")
}

// GetItemByTag retrieves an item by RFID tag
func (s *Store) GetItemByTag(ctx context.Context, tag string) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := s.get(ctx, &item, "SELECT "+itemColumns+" FROM inventory_items WHERE rfid_tag = ?", tag)
	if err != nil {
		return nil, notFound(err, "inventory item", tag)
	}
	return &item, nil
}

// GetItemByTagForUpdate retrieves an item and locks its row until the
// enclosing transaction ends
func (s *Store) GetItemByTagForUpdate(ctx context.Context, tag string) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := s.get(ctx, &item,
		"SELECT "+itemColumns+" FROM inventory_items WHERE rfid_tag = ?"+s.forUpdate(), tag)
	if err != nil {
		return nil, notFound(err, "inventory item", tag)
	}
	return &item, nil
}

// UpdateItemScan persists the location, status and scan time of an item
func (s *Store) UpdateItemScan(ctx context.Context, item *models.InventoryItem) error {
	res, err := s.exec(ctx,
		"UPDATE inventory_items SET location_zone = ?, status = ?, last_scanned_at = ? WHERE id = ?",
		item.LocationZone, item.Status, item.LastScannedAt, item.ID)
	if err != nil {
		return classify(err, "update inventory item")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return classify(err, "update inventory item")
	}
	if n == 0 {
		return apperr.Newf(apperr.CodeNotFound, "inventory item not found: %s", item.RFIDTag)
	}
	return nil
}

// CountInStock counts in-stock items of a product
func (s *Store) CountInStock(ctx context.Context, productID int64) (int, error) {
	var count int
	err := s.get(ctx, &count,
		"SELECT COUNT(*) FROM inventory_items WHERE product_id = ? AND status = ?",
		productID, models.ItemStatusInStock)
	return count, classify(err, "count in-stock items")
}

// CreateTransaction appends a scan record to the audit log
func (s *Store) CreateTransaction(ctx context.Context, txn *models.Transaction) error {
	query := `
		INSERT INTO transactions (rfid_tag, action, location, scanned_by, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`

	err := s.get(ctx, &txn.ID, query, txn.RFIDTag, txn.Action, txn.Location, txn.ScannedBy, txn.CreatedAt)
	return classify(err, "create transaction")
}

// RecentTransactions returns the newest transactions first
func (s *Store) RecentTransactions(ctx context.Context, limit int) ([]models.Transaction, error) {
	txns := []models.Transaction{}
	err := s.selectAll(ctx, &txns,
		"SELECT "+transactionColumns+" FROM transactions ORDER BY created_at DESC, id DESC LIMIT ?", limit)
	if err != nil {
		return nil, classify(err, "list recent transactions")
	}
	return txns, nil
}

// TransactionsByTag returns the audit trail of one item, newest first
func (s *Store) TransactionsByTag(ctx context.Context, tag string, limit int) ([]models.Transaction, error) {
	txns := []models.Transaction{}
	err := s.selectAll(ctx, &txns,
		"SELECT "+transactionColumns+" FROM transactions WHERE rfid_tag = ? ORDER BY created_at DESC, id DESC LIMIT ?",
		tag, limit)
	if err != nil {
		return nil, classify(err, "list transactions for tag")
	}
	return txns, nil
}
