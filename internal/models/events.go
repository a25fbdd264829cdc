package models

import "time"

// Event types
const (
	EventTypeScanRequested  = "SCAN_REQUESTED"
	EventTypeScanRecorded   = "SCAN_RECORDED"
	EventTypeAlertRaised    = "ALERT_RAISED"
	EventTypeAlertResolved  = "ALERT_RESOLVED"
	EventTypeAlertCancelled = "ALERT_CANCELLED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// ScanRequestedEvent is emitted by reader gateways onto the scans topic
type ScanRequestedEvent struct {
	BaseEvent
	RFIDTag   string `json:"rfid_tag"`
	Location  string `json:"location"`
	ScannerID string `json:"scanner_id,omitempty"`
	Status    string `json:"status,omitempty"`
}

// ScanRecordedEvent published after a scan is committed
type ScanRecordedEvent struct {
	BaseEvent
	TransactionID int64      `json:"transaction_id"`
	RFIDTag       string     `json:"rfid_tag"`
	ProductID     int64      `json:"product_id"`
	Action        string     `json:"action"`
	FromLocation  string     `json:"from_location"`
	ToLocation    string     `json:"to_location"`
	Status        ItemStatus `json:"status"`
	ScannedBy     string     `json:"scanned_by,omitempty"`
}

// AlertEvent published when an alert is raised, resolved or cancelled
type AlertEvent struct {
	BaseEvent
	AlertID         int64       `json:"alert_id"`
	ProductID       int64       `json:"product_id"`
	CurrentQuantity int         `json:"current_quantity"`
	ReorderPoint    int         `json:"reorder_point"`
	Status          AlertStatus `json:"status"`
}
