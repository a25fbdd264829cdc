package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ScansProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rfid_scans_processed_total",
		Help: "Total number of RFID scans recorded, by transaction action",
	}, []string{"action"})

	ScansRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rfid_scans_rejected_total",
		Help: "Total number of RFID scans that were not recorded",
	}, []string{"reason"})

	ScanProcessingLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rfid_scan_processing_latency_seconds",
		Help:    "Latency of scan processing including the database transaction",
		Buckets: prometheus.DefBuckets,
	})

	ItemsProvisionedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inventory_items_provisioned_total",
		Help: "Total number of RFID-tagged items provisioned",
	})

	AlertsRaisedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reorder_alerts_raised_total",
		Help: "Total number of reorder alerts created",
	})

	AlertsClosedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reorder_alerts_closed_total",
		Help: "Total number of reorder alerts moved out of pending",
	}, []string{"status"})

	PendingAlerts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "reorder_alerts_pending",
		Help: "Number of pending reorder alerts after the last refresh",
	})

	AlertRefreshLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "reorder_alert_refresh_latency_seconds",
		Help:    "Latency of alert refresh runs",
		Buckets: prometheus.DefBuckets,
	})

	LevelCacheRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_level_cache_requests_total",
		Help: "Inventory level cache lookups by result",
	}, []string{"result"})

	EventsPublishFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warehouse_events_publish_failed_total",
		Help: "Total number of warehouse events that could not be published",
	}, []string{"event_type"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
