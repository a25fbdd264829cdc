package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"warehouse-service/internal/apperr"
	"warehouse-service/internal/broker"
	"warehouse-service/internal/models"
	"warehouse-service/internal/service"
	"warehouse-service/internal/util"

	"go.uber.org/zap"
)

// ScanProcessor records a single scan
type ScanProcessor interface {
	ProcessScan(ctx context.Context, req *service.ScanRequest) (*service.ScanResult, error)
}

// MessageConsumer is the Kafka consumer loop driven by a worker
type MessageConsumer interface {
	StartConsuming(ctx context.Context, handler broker.MessageHandler) error
	Close() error
}

// ScanWorker feeds scans from the RFID reader topic into the ledger
type ScanWorker struct {
	consumer     MessageConsumer
	eventHandler *broker.EventHandler
	ledger       ScanProcessor
	logger       *zap.Logger
}

// NewScanWorker creates a new scan worker
func NewScanWorker(consumer MessageConsumer, ledger ScanProcessor) *ScanWorker {
	w := &ScanWorker{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
		ledger:       ledger,
		logger:       util.Named("scan-worker"),
	}
	w.eventHandler.OnScanRequested(w.handleScan)
	return w
}

// Start consumes scans until ctx is cancelled
func (w *ScanWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting scan worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *ScanWorker) Stop() error {
	w.logger.Info("Stopping scan worker")
	return w.consumer.Close()
}

// handleScan records one scan event. Rejected scans are logged and skipped;
// storage failures are handed back to the consumer for a retry.
func (w *ScanWorker) handleScan(ctx context.Context, event *models.ScanRequestedEvent) error {
	result, err := w.ledger.ProcessScan(ctx, &service.ScanRequest{
		RFIDTag:   event.RFIDTag,
		Location:  event.Location,
		ScannerID: event.ScannerID,
		Status:    event.Status,
	})
	if err != nil {
		if apperr.Is(err, apperr.CodeUnavailable) {
			return fmt.Errorf("process scan %s: %v: %w", event.RFIDTag, err, broker.ErrRetry)
		}
		w.logger.Warn("Skipping scan event",
			zap.String("event_id", event.EventID),
			zap.String("rfid_tag", event.RFIDTag),
			zap.String("code", string(apperr.CodeOf(err))),
			zap.Error(err))
		return nil
	}

	w.logger.Debug("Scan event processed",
		zap.String("event_id", event.EventID),
		zap.Int64("transaction_id", result.TransactionID))
	return nil
}

// AlertRefreshRunner recomputes reorder alerts
type AlertRefreshRunner interface {
	RefreshAlerts(ctx context.Context) (*service.RefreshResult, error)
}

// Locker guards a job across service instances
type Locker interface {
	AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (token string, ok bool, err error)
	ReleaseLock(ctx context.Context, lockKey, token string) error
}

const refreshLockKey = "alert-refresh"

// AlertRefresher periodically refreshes reorder alerts
type AlertRefresher struct {
	alerts   AlertRefreshRunner
	locker   Locker
	interval time.Duration
	logger   *zap.Logger
	stopCh   chan struct{}
	stopOnce sync.Once
	started  atomic.Bool
	done     chan struct{}
}

// NewAlertRefresher creates a refresher running every interval. locker may be nil.
func NewAlertRefresher(alerts AlertRefreshRunner, locker Locker, interval time.Duration) *AlertRefresher {
	return &AlertRefresher{
		alerts:   alerts,
		locker:   locker,
		interval: interval,
		logger:   util.Named("alert-refresher"),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs a refresh immediately and then on every tick, in the background
func (r *AlertRefresher) Start(ctx context.Context) {
	if !r.started.CompareAndSwap(false, true) {
		return
	}
	r.logger.Info("Starting alert refresher", zap.Duration("interval", r.interval))
	go r.run(ctx)
}

// Stop stops the refresher and waits for a running refresh to finish
func (r *AlertRefresher) Stop() {
	r.stopOnce.Do(func() {
		r.logger.Info("Stopping alert refresher")
		close(r.stopCh)
	})
	if r.started.Load() {
		<-r.done
	}
}

func (r *AlertRefresher) run(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	if err := r.RunOnce(ctx); err != nil {
		r.logger.Error("Initial alert refresh failed", zap.Error(err))
	}

	for {
		select {
		case <-ticker.C:
			if err := r.RunOnce(ctx); err != nil {
				r.logger.Error("Alert refresh failed", zap.Error(err))
			}
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// RunOnce refreshes alerts now. With a locker, the run is skipped when
// another instance holds the refresh lock.
func (r *AlertRefresher) RunOnce(ctx context.Context) error {
	if r.locker != nil {
		token, ok, err := r.locker.AcquireLock(ctx, refreshLockKey, r.interval)
		if err != nil {
			r.logger.Warn("Refresh lock unavailable, refreshing anyway", zap.Error(err))
		} else if !ok {
			r.logger.Debug("Alert refresh already running elsewhere")
			return nil
		} else {
			defer func() {
				if err := r.locker.ReleaseLock(context.Background(), refreshLockKey, token); err != nil {
					r.logger.Warn("Failed to release refresh lock", zap.Error(err))
				}
			}()
		}
	}

	result, err := r.alerts.RefreshAlerts(ctx)
	if err != nil {
		return err
	}
	if len(result.Created) > 0 {
		r.logger.Info("Reorder alerts raised", zap.Int("created", len(result.Created)), zap.Int("pending", result.Pending))
	}
	return nil
}
