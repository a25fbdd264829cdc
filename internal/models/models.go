package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a catalog entry and its reorder policy
type Product struct {
	ID              int64               `db:"id" json:"id"`
	SKU             string              `db:"sku" json:"sku"`
	Name            string              `db:"name" json:"name"`
	Description     string              `db:"description" json:"description"`
	ReorderPoint    int                 `db:"reorder_point" json:"reorder_point"`
	ReorderQuantity int                 `db:"reorder_quantity" json:"reorder_quantity"`
	UnitPrice       decimal.NullDecimal `db:"unit_price" json:"unit_price"`
	CreatedAt       time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time           `db:"updated_at" json:"updated_at"`
}

// InventoryItem is one physical RFID-tagged unit
type InventoryItem struct {
	ID            int64      `db:"id" json:"id"`
	RFIDTag       string     `db:"rfid_tag" json:"rfid_tag"`
	ProductID     int64      `db:"product_id" json:"product_id"`
	Status        ItemStatus `db:"status" json:"status"`
	LocationZone  string     `db:"location_zone" json:"location_zone"`
	LastScannedAt *time.Time `db:"last_scanned_at" json:"last_scanned_at"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// Transaction is an immutable scan audit record
type Transaction struct {
	ID        int64     `db:"id" json:"id"`
	RFIDTag   string    `db:"rfid_tag" json:"rfid_tag"`
	Action    string    `db:"action" json:"action"`
	Location  string    `db:"location" json:"location"`
	ScannedBy *string   `db:"scanned_by" json:"scanned_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ReorderAlert records a replenishment need for a product
type ReorderAlert struct {
	ID              int64       `db:"id" json:"id"`
	ProductID       int64       `db:"product_id" json:"product_id"`
	CurrentQuantity int         `db:"current_quantity" json:"current_quantity"`
	ReorderPoint    int         `db:"reorder_point" json:"reorder_point"`
	Status          AlertStatus `db:"status" json:"status"`
	// BaselineQuantity is the highest in-stock count seen since the alert was ordered.
	BaselineQuantity *int       `db:"baseline_quantity" json:"baseline_quantity,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	ResolvedAt       *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
}

// AlertView is a ReorderAlert joined with its product for display
type AlertView struct {
	ReorderAlert
	SKU         string `db:"sku" json:"sku"`
	ProductName string `db:"product_name" json:"product_name"`
}

// InventoryLevel is the derived stock view for one product
type InventoryLevel struct {
	ProductID       int64  `db:"product_id" json:"id"`
	SKU             string `db:"sku" json:"sku"`
	Name            string `db:"name" json:"name"`
	CurrentQuantity int    `db:"current_quantity" json:"current_quantity"`
	ReorderPoint    int    `db:"reorder_point" json:"reorder_point"`
	ReorderQuantity int    `db:"reorder_quantity" json:"reorder_quantity"`
	NeedsReorder    bool   `db:"-" json:"needs_reorder"`
}

// NeedsReorderAt reports whether a product at quantity has reached its reorder point.
func NeedsReorderAt(quantity, reorderPoint int) bool {
	return quantity <= reorderPoint
}

// ItemStatus is the lifecycle state of an inventory item
type ItemStatus string

// Item statuses
const (
	ItemStatusInStock  ItemStatus = "in_stock"
	ItemStatusReserved ItemStatus = "reserved"
	ItemStatusShipped  ItemStatus = "shipped"
	ItemStatusDamaged  ItemStatus = "damaged"
)

func (s ItemStatus) Valid() bool {
	switch s {
	case ItemStatusInStock, ItemStatusReserved, ItemStatusShipped, ItemStatusDamaged:
		return true
	}
	return false
}

// CanTransitionTo reports whether a scan may move an item from s to next.
// Forward flow is in_stock -> reserved -> shipped; damaged is reachable from
// anywhere and is terminal. Staying in the same status is always allowed.
func (s ItemStatus) CanTransitionTo(next ItemStatus) bool {
	if !next.Valid() {
		return false
	}
	if s == next {
		return true
	}
	if s == ItemStatusDamaged {
		return false
	}
	if next == ItemStatusDamaged {
		return true
	}
	switch s {
	case ItemStatusInStock:
		return next == ItemStatusReserved
	case ItemStatusReserved:
		return next == ItemStatusShipped
	}
	return false
}

// AlertStatus is the lifecycle state of a reorder alert
type AlertStatus string

// Alert statuses
const (
	AlertStatusPending   AlertStatus = "pending"
	AlertStatusOrdered   AlertStatus = "ordered"
	AlertStatusCancelled AlertStatus = "cancelled"
)

func (s AlertStatus) Valid() bool {
	switch s {
	case AlertStatusPending, AlertStatusOrdered, AlertStatusCancelled:
		return true
	}
	return false
}

// Transaction actions
const (
	ActionScanned = "SCANNED"
)

// ActionForStatus is the audit label written when a scan moves an item into status.
func ActionForStatus(status ItemStatus) string {
	return strings.ToUpper(string(status))
}

// LocationChange renders the audit location of a move from one zone to another.
func LocationChange(from, to string) string {
	return fmt.Sprintf("%s -> %s", from, to)
}
