package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"warehouse-service/internal/apperr"
	"warehouse-service/internal/models"
	"warehouse-service/internal/store"
	"warehouse-service/internal/util"

	"go.uber.org/zap"
)

// AlertStatusAll lists alerts regardless of status
const AlertStatusAll = "all"

// AlertService derives stock levels and maintains the reorder alert lifecycle
type AlertService struct {
	repo      store.Repository
	cache     LevelCache
	publisher EventPublisher
	logger    *zap.Logger
}

// NewAlertService creates a new alert service. cache and publisher may be nil.
func NewAlertService(repo store.Repository, cache LevelCache, publisher EventPublisher) *AlertService {
	return &AlertService{
		repo:      repo,
		cache:     cache,
		publisher: publisher,
		logger:    util.Named("alerts"),
	}
}

// RefreshResult reports the alerts created by one refresh and the number of
// alerts pending once it committed.
type RefreshResult struct {
	Created []models.ReorderAlert `json:"created"`
	Pending int                   `json:"pending"`
}

// ComputeInventoryLevels returns the in-stock count and reorder flag of every
// product. Levels come from the cache when it holds them.
func (s *AlertService) ComputeInventoryLevels(ctx context.Context) ([]models.InventoryLevel, error) {
	ctx, span := util.StartSpan(ctx, "AlertService.ComputeInventoryLevels")
	defer span.End()

	cacheable := false
	var version int64
	if s.cache != nil {
		levels, v, ok, err := s.cache.GetLevels(ctx)
		switch {
		case err != nil:
			util.LevelCacheRequestsTotal.WithLabelValues("error").Inc()
			s.logger.Warn("Inventory level cache read failed, using database", zap.Error(err))
		case ok:
			util.LevelCacheRequestsTotal.WithLabelValues("hit").Inc()
			return levels, nil
		default:
			util.LevelCacheRequestsTotal.WithLabelValues("miss").Inc()
			cacheable, version = true, v
		}
	}

	levels, err := s.repo.InventoryLevels(ctx)
	if err != nil {
		return nil, err
	}

	if cacheable {
		s.storeLevels(ctx, version, levels)
	}
	return levels, nil
}

func (s *AlertService) storeLevels(ctx context.Context, version int64, levels []models.InventoryLevel) {
	stored, err := s.cache.SetLevels(ctx, version, levels)
	switch {
	case err != nil:
		util.LevelCacheRequestsTotal.WithLabelValues("store_error").Inc()
		s.logger.Warn("Failed to cache inventory levels", zap.Error(err))
	case !stored:
		util.LevelCacheRequestsTotal.WithLabelValues("stale").Inc()
		s.logger.Debug("Inventory levels changed while computing, not cached")
	}
}

// WarmLevelCache loads current levels from the database into the cache
func (s *AlertService) WarmLevelCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}

	s.logger.Info("Starting inventory level cache warm-up")
	_, version, _, err := s.cache.GetLevels(ctx)
	if err != nil {
		return fmt.Errorf("failed to read cache version: %w", err)
	}

	levels, err := s.repo.InventoryLevels(ctx)
	if err != nil {
		return fmt.Errorf("failed to compute levels: %w", err)
	}

	stored, err := s.cache.SetLevels(ctx, version, levels)
	if err != nil {
		return fmt.Errorf("failed to cache levels: %w", err)
	}

	s.logger.Info("Inventory level cache warmed", zap.Int("products", len(levels)), zap.Bool("stored", stored))
	return nil
}

// RefreshAlerts creates a pending alert for every product at or below its
// reorder point that has none. A product whose latest alert was ordered is
// alerted again only after its stock fell below the highest count seen since
// the order. Pending alerts are never closed automatically.
func (s *AlertService) RefreshAlerts(ctx context.Context) (result *RefreshResult, err error) {
	ctx, span := util.StartSpan(ctx, "AlertService.RefreshAlerts")
	defer func() { util.EndSpan(span, err) }()

	start := time.Now()
	defer func() {
		util.AlertRefreshLatency.Observe(time.Since(start).Seconds())
	}()

	result = &RefreshResult{Created: []models.ReorderAlert{}}
	err = s.repo.InTx(ctx, func(tx store.Repository) error {
		if err := tx.LockProducts(ctx); err != nil {
			return err
		}

		levels, err := tx.InventoryLevels(ctx)
		if err != nil {
			return err
		}

		latest, err := tx.LatestAlertsByProduct(ctx)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		for _, level := range levels {
			last, hasAlert := latest[level.ProductID]
			if hasAlert && last.Status == models.AlertStatusPending {
				result.Pending++
				continue
			}

			if hasAlert && last.Status == models.AlertStatusOrdered {
				suppressed, err := s.trackBaseline(ctx, tx, last, level)
				if err != nil {
					return err
				}
				if suppressed {
					continue
				}
			}

			if !level.NeedsReorder {
				continue
			}

			alert := models.ReorderAlert{
				ProductID:       level.ProductID,
				CurrentQuantity: level.CurrentQuantity,
				ReorderPoint:    level.ReorderPoint,
				Status:          models.AlertStatusPending,
				CreatedAt:       now,
			}
			if err := tx.CreateAlert(ctx, &alert); err != nil {
				return err
			}
			result.Created = append(result.Created, alert)
			result.Pending++
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Alert refresh failed", zap.Error(err))
		return nil, err
	}

	util.AlertsRaisedTotal.Add(float64(len(result.Created)))
	util.PendingAlerts.Set(float64(result.Pending))
	s.logger.Info("Alerts refreshed", zap.Int("created", len(result.Created)), zap.Int("pending", result.Pending))

	for i := range result.Created {
		s.publishAlert(ctx, models.EventTypeAlertRaised, &result.Created[i])
	}
	return result, nil
}

// trackBaseline raises the re-alert watermark of an ordered alert to the
// current count and reports whether a new alert is still suppressed.
func (s *AlertService) trackBaseline(ctx context.Context, tx store.Repository, last models.ReorderAlert, level models.InventoryLevel) (bool, error) {
	if last.BaselineQuantity == nil {
		return false, nil
	}

	baseline := *last.BaselineQuantity
	if level.CurrentQuantity > baseline {
		if err := tx.RaiseAlertBaseline(ctx, last.ID, level.CurrentQuantity); err != nil {
			return false, err
		}
		baseline = level.CurrentQuantity
	}
	return level.CurrentQuantity >= baseline, nil
}

// ResolveAlert marks a pending alert as ordered and records the in-stock
// count at that moment as its re-alert baseline.
func (s *AlertService) ResolveAlert(ctx context.Context, id int64) (alert *models.ReorderAlert, err error) {
	ctx, span := util.StartSpan(ctx, "AlertService.ResolveAlert")
	defer func() { util.EndSpan(span, err) }()

	err = s.repo.InTx(ctx, func(tx store.Repository) error {
		alert, err = s.closePending(ctx, tx, id, models.AlertStatusOrdered)
		return err
	})
	if err != nil {
		s.logger.Warn("Alert resolve failed", zap.Int64("alert_id", id), zap.Error(err))
		return nil, err
	}

	util.AlertsClosedTotal.WithLabelValues(string(alert.Status)).Inc()
	s.logger.Info("Alert resolved", zap.Int64("alert_id", alert.ID), zap.Int64("product_id", alert.ProductID))
	s.publishAlert(ctx, models.EventTypeAlertResolved, alert)
	return alert, nil
}

// CancelAlert closes a pending alert without ordering
func (s *AlertService) CancelAlert(ctx context.Context, id int64) (alert *models.ReorderAlert, err error) {
	ctx, span := util.StartSpan(ctx, "AlertService.CancelAlert")
	defer func() { util.EndSpan(span, err) }()

	err = s.repo.InTx(ctx, func(tx store.Repository) error {
		alert, err = s.closePending(ctx, tx, id, models.AlertStatusCancelled)
		return err
	})
	if err != nil {
		s.logger.Warn("Alert cancel failed", zap.Int64("alert_id", id), zap.Error(err))
		return nil, err
	}

	util.AlertsClosedTotal.WithLabelValues(string(alert.Status)).Inc()
	s.logger.Info("Alert cancelled", zap.Int64("alert_id", alert.ID), zap.Int64("product_id", alert.ProductID))
	s.publishAlert(ctx, models.EventTypeAlertCancelled, alert)
	return alert, nil
}

func (s *AlertService) closePending(ctx context.Context, tx store.Repository, id int64, next models.AlertStatus) (*models.ReorderAlert, error) {
	alert, err := tx.GetAlertByIDForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if alert.Status != models.AlertStatusPending {
		return nil, apperr.Newf(apperr.CodeStateConflict, "alert %d is %s; only pending alerts can be %s",
			alert.ID, alert.Status, next).
			WithDetails(map[string]string{"status": string(alert.Status)})
	}

	now := time.Now().UTC()
	alert.Status = next
	alert.ResolvedAt = &now
	if next == models.AlertStatusOrdered {
		count, err := tx.CountInStock(ctx, alert.ProductID)
		if err != nil {
			return nil, err
		}
		alert.BaselineQuantity = &count
	}

	if err := tx.UpdateAlert(ctx, alert); err != nil {
		return nil, err
	}
	return alert, nil
}

// ListAlerts returns alerts with their product, newest first. status is one
// of pending (the default), ordered, cancelled or all.
func (s *AlertService) ListAlerts(ctx context.Context, status string) ([]models.AlertView, error) {
	ctx, span := util.StartSpan(ctx, "AlertService.ListAlerts")
	defer span.End()

	status = strings.ToLower(strings.TrimSpace(status))
	switch status {
	case "":
		pending := models.AlertStatusPending
		return s.repo.ListAlerts(ctx, &pending)
	case AlertStatusAll:
		return s.repo.ListAlerts(ctx, nil)
	}

	filter := models.AlertStatus(status)
	if !filter.Valid() {
		return nil, fieldError("status", "must be one of [pending ordered cancelled all]")
	}
	return s.repo.ListAlerts(ctx, &filter)
}

func (s *AlertService) publishAlert(ctx context.Context, eventType string, alert *models.ReorderAlert) {
	if s.publisher == nil {
		return
	}

	event := &models.AlertEvent{
		BaseEvent:       newBaseEvent(eventType),
		AlertID:         alert.ID,
		ProductID:       alert.ProductID,
		CurrentQuantity: alert.CurrentQuantity,
		ReorderPoint:    alert.ReorderPoint,
		Status:          alert.Status,
	}
	if err := s.publisher.PublishAlertEvent(ctx, event); err != nil {
		util.EventsPublishFailedTotal.WithLabelValues(eventType).Inc()
		s.logger.Error("Failed to publish alert event",
			zap.String("event_type", eventType),
			zap.Int64("alert_id", alert.ID),
			zap.Error(err))
	}
}
