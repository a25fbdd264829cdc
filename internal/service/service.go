package service

import (
	"context"
	"time"

	"warehouse-service/internal/models"
	"warehouse-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LevelCache stores computed inventory levels for a short time. A miss
// returns ok == false with a nil error. Every invalidation bumps the version,
// and SetLevels only writes when the version read before computing the levels
// is still current.
type LevelCache interface {
	GetLevels(ctx context.Context) (levels []models.InventoryLevel, version int64, ok bool, err error)
	SetLevels(ctx context.Context, version int64, levels []models.InventoryLevel) (stored bool, err error)
	InvalidateLevels(ctx context.Context) error
}

// EventPublisher announces committed warehouse changes
type EventPublisher interface {
	PublishScanRecorded(ctx context.Context, event *models.ScanRecordedEvent) error
	PublishAlertEvent(ctx context.Context, event *models.AlertEvent) error
}

// ScanLimits bounds the size of transaction listings
type ScanLimits struct {
	Default int
	Max     int
}

// DefaultScanLimits returns the stock listing limits
func DefaultScanLimits() ScanLimits {
	return ScanLimits{Default: 50, Max: 200}
}

// Normalize maps a requested limit into [1, Max], using Default when unset
func (l ScanLimits) Normalize(limit int) int {
	if limit <= 0 {
		return l.Default
	}
	if limit > l.Max {
		return l.Max
	}
	return limit
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
	}
}

// invalidateLevels drops cached levels after a committed write. Failures are
// logged, not returned.
func invalidateLevels(ctx context.Context, cache LevelCache, logger *zap.Logger) {
	if cache == nil {
		return
	}
	if err := cache.InvalidateLevels(ctx); err != nil {
		util.LevelCacheRequestsTotal.WithLabelValues("invalidate_error").Inc()
		logger.Warn("Failed to invalidate inventory level cache", zap.Error(err))
	}
}
