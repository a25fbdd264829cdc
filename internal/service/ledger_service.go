package service

import (
	"context"
	"strings"
	"time"

	"warehouse-service/internal/apperr"
	"warehouse-service/internal/models"
	"warehouse-service/internal/store"
	"warehouse-service/internal/util"

	"go.uber.org/zap"
)

// LedgerService owns RFID-tagged items and the append-only scan log
type LedgerService struct {
	repo      store.Repository
	cache     LevelCache
	publisher EventPublisher
	limits    ScanLimits
	logger    *zap.Logger
}

// NewLedgerService creates a new ledger service. cache and publisher may be nil.
func NewLedgerService(repo store.Repository, cache LevelCache, publisher EventPublisher, limits ScanLimits) *LedgerService {
	return &LedgerService{
		repo:      repo,
		cache:     cache,
		publisher: publisher,
		limits:    limits,
		logger:    util.Named("ledger"),
	}
}

// ScanRequest is a single RFID read
type ScanRequest struct {
	RFIDTag   string `json:"rfid_tag" validate:"required,max=50"`
	Location  string `json:"location" validate:"required,max=50"`
	ScannerID string `json:"scanner_id,omitempty" validate:"max=100"`
	Status    string `json:"status,omitempty" validate:"omitempty,oneof=in_stock reserved shipped damaged"`
}

func (r *ScanRequest) normalize() {
	r.RFIDTag = strings.TrimSpace(r.RFIDTag)
	r.Location = strings.TrimSpace(r.Location)
	r.ScannerID = strings.TrimSpace(r.ScannerID)
	r.Status = strings.ToLower(strings.TrimSpace(r.Status))
}

// ScanResult describes the committed effect of a scan
type ScanResult struct {
	RFIDTag       string            `json:"rfid_tag"`
	OldLocation   string            `json:"old_location"`
	NewLocation   string            `json:"new_location"`
	Status        models.ItemStatus `json:"status"`
	Action        string            `json:"action"`
	TransactionID int64             `json:"transaction_id"`
}

// ProvisionItemRequest registers a new tagged unit of a product
type ProvisionItemRequest struct {
	RFIDTag      string `json:"rfid_tag" validate:"required,max=50"`
	SKU          string `json:"sku" validate:"required,max=50"`
	LocationZone string `json:"location_zone" validate:"required,max=50"`
}

// ProcessScan moves the scanned item to the reported location, applies an
// optional status change and appends the audit transaction, all in one
// database transaction. An unknown tag writes nothing.
func (s *LedgerService) ProcessScan(ctx context.Context, req *ScanRequest) (result *ScanResult, err error) {
	ctx, span := util.StartSpan(ctx, "LedgerService.ProcessScan")
	defer func() { util.EndSpan(span, err) }()

	start := time.Now()
	defer func() {
		util.ScanProcessingLatency.Observe(time.Since(start).Seconds())
	}()

	req.normalize()
	if err := validateStruct(req); err != nil {
		util.ScansRejectedTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	var event *models.ScanRecordedEvent
	err = s.repo.InTx(ctx, func(tx store.Repository) error {
		item, err := tx.GetItemByTagForUpdate(ctx, req.RFIDTag)
		if err != nil {
			if apperr.Is(err, apperr.CodeNotFound) {
				return apperr.Newf(apperr.CodeUnknownTag, "unknown rfid tag: %s", req.RFIDTag).
					WithDetails(map[string]string{"rfid_tag": req.RFIDTag})
			}
			return err
		}

		action := models.ActionScanned
		if req.Status != "" {
			target := models.ItemStatus(req.Status)
			if !item.Status.CanTransitionTo(target) {
				return apperr.Newf(apperr.CodeStateConflict, "item %s cannot move from %s to %s",
					item.RFIDTag, item.Status, target)
			}
			if target != item.Status {
				action = models.ActionForStatus(target)
				item.Status = target
			}
		}

		now := time.Now().UTC()
		oldLocation := item.LocationZone
		item.LocationZone = req.Location
		item.LastScannedAt = &now
		if err := tx.UpdateItemScan(ctx, item); err != nil {
			return err
		}

		txn := &models.Transaction{
			RFIDTag:   item.RFIDTag,
			Action:    action,
			Location:  models.LocationChange(oldLocation, req.Location),
			CreatedAt: now,
		}
		if req.ScannerID != "" {
			scannedBy := req.ScannerID
			txn.ScannedBy = &scannedBy
		}
		if err := tx.CreateTransaction(ctx, txn); err != nil {
			return err
		}

		result = &ScanResult{
			RFIDTag:       item.RFIDTag,
			OldLocation:   oldLocation,
			NewLocation:   item.LocationZone,
			Status:        item.Status,
			Action:        action,
			TransactionID: txn.ID,
		}
		event = &models.ScanRecordedEvent{
			BaseEvent:     newBaseEvent(models.EventTypeScanRecorded),
			TransactionID: txn.ID,
			RFIDTag:       item.RFIDTag,
			ProductID:     item.ProductID,
			Action:        action,
			FromLocation:  oldLocation,
			ToLocation:    item.LocationZone,
			Status:        item.Status,
			ScannedBy:     req.ScannerID,
		}
		return nil
	})
	if err != nil {
		s.recordRejection(req, err)
		return nil, err
	}

	util.ScansProcessedTotal.WithLabelValues(result.Action).Inc()
	s.logger.Info("Scan recorded",
		zap.String("rfid_tag", result.RFIDTag),
		zap.String("action", result.Action),
		zap.String("from", result.OldLocation),
		zap.String("to", result.NewLocation),
		zap.Int64("transaction_id", result.TransactionID))

	invalidateLevels(ctx, s.cache, s.logger)
	s.publishScan(ctx, event)
	return result, nil
}

func (s *LedgerService) recordRejection(req *ScanRequest, err error) {
	code := apperr.CodeOf(err)
	switch code {
	case apperr.CodeUnknownTag:
		util.ScansRejectedTotal.WithLabelValues("unknown_tag").Inc()
		s.logger.Warn("Scan for unknown RFID tag",
			zap.String("rfid_tag", req.RFIDTag),
			zap.String("location", req.Location),
			zap.String("scanner_id", req.ScannerID))
	case apperr.CodeStateConflict:
		util.ScansRejectedTotal.WithLabelValues("state_conflict").Inc()
		s.logger.Warn("Scan rejected", zap.String("rfid_tag", req.RFIDTag), zap.Error(err))
	default:
		util.ScansRejectedTotal.WithLabelValues("error").Inc()
		s.logger.Error("Scan processing failed", zap.String("rfid_tag", req.RFIDTag), zap.Error(err))
	}
}

func (s *LedgerService) publishScan(ctx context.Context, event *models.ScanRecordedEvent) {
	if s.publisher == nil || event == nil {
		return
	}
	if err := s.publisher.PublishScanRecorded(ctx, event); err != nil {
		util.EventsPublishFailedTotal.WithLabelValues(event.EventType).Inc()
		s.logger.Error("Failed to publish ScanRecorded event",
			zap.Int64("transaction_id", event.TransactionID),
			zap.Error(err))
	}
}

// RecentTransactions returns the newest scan transactions first. limit is
// normalized into the configured bounds.
func (s *LedgerService) RecentTransactions(ctx context.Context, limit int) ([]models.Transaction, error) {
	ctx, span := util.StartSpan(ctx, "LedgerService.RecentTransactions")
	defer span.End()

	return s.repo.RecentTransactions(ctx, s.limits.Normalize(limit))
}

// ProvisionItem creates an in-stock item for the product with the given SKU
func (s *LedgerService) ProvisionItem(ctx context.Context, req *ProvisionItemRequest) (item *models.InventoryItem, err error) {
	ctx, span := util.StartSpan(ctx, "LedgerService.ProvisionItem")
	defer func() { util.EndSpan(span, err) }()

	req.RFIDTag = strings.TrimSpace(req.RFIDTag)
	req.SKU = strings.TrimSpace(req.SKU)
	req.LocationZone = strings.TrimSpace(req.LocationZone)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	err = s.repo.InTx(ctx, func(tx store.Repository) error {
		product, err := tx.GetProductBySKU(ctx, req.SKU)
		if err != nil {
			return err
		}

		item = &models.InventoryItem{
			RFIDTag:      req.RFIDTag,
			ProductID:    product.ID,
			Status:       models.ItemStatusInStock,
			LocationZone: req.LocationZone,
			CreatedAt:    time.Now().UTC(),
		}
		return tx.CreateItem(ctx, item)
	})
	if err != nil {
		s.logger.Warn("Item provisioning failed", zap.String("rfid_tag", req.RFIDTag), zap.String("sku", req.SKU), zap.Error(err))
		return nil, err
	}

	util.ItemsProvisionedTotal.Inc()
	s.logger.Info("Item provisioned",
		zap.String("rfid_tag", item.RFIDTag),
		zap.Int64("product_id", item.ProductID),
		zap.String("location", item.LocationZone))

	invalidateLevels(ctx, s.cache, s.logger)
	return item, nil
}

// GetItem looks up an item by RFID tag
func (s *LedgerService) GetItem(ctx context.Context, tag string) (*models.InventoryItem, error) {
	ctx, span := util.StartSpan(ctx, "LedgerService.GetItem")
	defer span.End()

	item, err := s.repo.GetItemByTag(ctx, strings.TrimSpace(tag))
	if err != nil {
		return nil, unknownTag(err, tag)
	}
	return item, nil
}

// TransactionsForTag returns the audit trail of one item, newest first
func (s *LedgerService) TransactionsForTag(ctx context.Context, tag string, limit int) ([]models.Transaction, error) {
	ctx, span := util.StartSpan(ctx, "LedgerService.TransactionsForTag")
	defer span.End()

	tag = strings.TrimSpace(tag)
	if _, err := s.repo.GetItemByTag(ctx, tag); err != nil {
		return nil, unknownTag(err, tag)
	}
	return s.repo.TransactionsByTag(ctx, tag, s.limits.Normalize(limit))
}

func unknownTag(err error, tag string) error {
	if apperr.Is(err, apperr.CodeNotFound) {
		return apperr.Newf(apperr.CodeUnknownTag, "unknown rfid tag: %s", tag)
	}
	return err
}
