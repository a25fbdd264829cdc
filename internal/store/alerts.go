package store

import (
	"context"

	"warehouse-service/internal/apperr"
	"warehouse-service/internal/models"
)

const alertColumns = `a.id, a.product_id, a.current_quantity, a.reorder_point, a.status, a.baseline_quantity, a.created_at, a.resolved_at`

// InventoryLevels counts in-stock items for every product in one aggregation
func (s *Store) InventoryLevels(ctx context.Context) ([]models.InventoryLevel, error) {
	query := `
		SELECT p.id AS product_id, p.sku, p.name, p.reorder_point, p.reorder_quantity,
		       COUNT(i.id) AS current_quantity
		FROM products p
		LEFT JOIN inventory_items i ON i.product_id = p.id AND i.status = ?
		GROUP BY p.id, p.sku, p.name, p.reorder_point, p.reorder_quantity
		ORDER BY p.id`

	levels := []models.InventoryLevel{}
	if err := s.selectAll(ctx, &levels, query, models.ItemStatusInStock); err != nil {
		return nil, classify(err, "compute inventory levels")
	}

	for i := range levels {
		levels[i].NeedsReorder = models.NeedsReorderAt(levels[i].CurrentQuantity, levels[i].ReorderPoint)
	}
	return levels, nil
}

// CreateAlert inserts a reorder alert and fills in its ID
func (s *Store) CreateAlert(ctx context.Context, alert *models.ReorderAlert) error {
	query := `
		INSERT INTO reorder_alerts (product_id, current_quantity, reorder_point, status, baseline_quantity, created_at, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id`

	err := s.get(ctx, &alert.ID, query,
		alert.ProductID, alert.CurrentQuantity, alert.ReorderPoint, alert.Status,
		alert.BaselineQuantity, alert.CreatedAt, alert.ResolvedAt)
	return classify(err, "create reorder alert")
}

// GetAlertByIDForUpdate retrieves an alert and locks its row
func (s *Store) GetAlertByIDForUpdate(ctx context.Context, id int64) (*models.ReorderAlert, error) {
	var alert models.ReorderAlert
	err := s.get(ctx, &alert, "SELECT "+alertColumns+" FROM reorder_alerts a WHERE a.id = ?"+s.forUpdate(), id)
	if err != nil {
		return nil, notFound(err, "reorder alert", id)
	}
	return &alert, nil
}

// LatestAlertsByProduct returns the most recent alert of every product that has one
func (s *Store) LatestAlertsByProduct(ctx context.Context) (map[int64]models.ReorderAlert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM reorder_alerts a
		WHERE a.id = (SELECT MAX(b.id) FROM reorder_alerts b WHERE b.product_id = a.product_id)`

	var alerts []models.ReorderAlert
	if err := s.selectAll(ctx, &alerts, query); err != nil {
		return nil, classify(err, "list latest alerts")
	}

	latest := make(map[int64]models.ReorderAlert, len(alerts))
	for _, a := range alerts {
		latest[a.ProductID] = a
	}
	return latest, nil
}

// UpdateAlert persists the lifecycle fields of an alert
func (s *Store) UpdateAlert(ctx context.Context, alert *models.ReorderAlert) error {
	res, err := s.exec(ctx,
		"UPDATE reorder_alerts SET status = ?, baseline_quantity = ?, resolved_at = ? WHERE id = ?",
		alert.Status, alert.BaselineQuantity, alert.ResolvedAt, alert.ID)
	if err != nil {
		return classify(err, "update reorder alert")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return classify(err, "update reorder alert")
	}
	if n == 0 {
		return apperr.Newf(apperr.CodeNotFound, "reorder alert not found: %d", alert.ID)
	}
	return nil
}

// RaiseAlertBaseline moves the re-alert watermark of an ordered alert up to quantity
func (s *Store) RaiseAlertBaseline(ctx context.Context, alertID int64, quantity int) error {
	_, err := s.exec(ctx, `
		UPDATE reorder_alerts SET baseline_quantity = ?
		WHERE id = ? AND status = ? AND (baseline_quantity IS NULL OR baseline_quantity < ?)`,
		quantity, alertID, models.AlertStatusOrdered, quantity)
	return classify(err, "raise alert baseline")
}

// ListAlerts returns alerts joined with their product, newest first. A nil
// status lists every alert.
func (s *Store) ListAlerts(ctx context.Context, status *models.AlertStatus) ([]models.AlertView, error) {
	query := `
		SELECT ` + alertColumns + `, p.sku, p.name AS product_name
		FROM reorder_alerts a
		JOIN products p ON p.id = a.product_id`

	var args []interface{}
	if status != nil {
		query += " WHERE a.status = ?"
		args = append(args, *status)
	}
	query += " ORDER BY a.created_at DESC, a.id DESC"

	views := []models.AlertView{}
	if err := s.selectAll(ctx, &views, query, args...); err != nil {
		return nil, classify(err, "list reorder alerts")
	}
	return views, nil
}
