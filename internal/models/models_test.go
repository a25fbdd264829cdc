package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestItemStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to ItemStatus
		allowed  bool
	}{
		{ItemStatusInStock, ItemStatusInStock, true},
		{ItemStatusInStock, ItemStatusReserved, true},
		{ItemStatusReserved, ItemStatusShipped, true},
		{ItemStatusInStock, ItemStatusDamaged, true},
		{ItemStatusReserved, ItemStatusDamaged, true},
		{ItemStatusShipped, ItemStatusDamaged, true},
		{ItemStatusInStock, ItemStatusShipped, false},
		{ItemStatusReserved, ItemStatusInStock, false},
		{ItemStatusShipped, ItemStatusInStock, false},
		{ItemStatusDamaged, ItemStatusInStock, false},
		{ItemStatusDamaged, ItemStatusDamaged, true},
		{ItemStatusInStock, ItemStatus("lost"), false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestNeedsReorderAtIncludesThreshold(t *testing.T) {
	assert.True(t, NeedsReorderAt(2, 3))
	assert.True(t, NeedsReorderAt(3, 3))
	assert.False(t, NeedsReorderAt(4, 3))
	assert.True(t, NeedsReorderAt(0, 0))
}

func TestLocationChange(t *testing.T) {
	assert.Equal(t, "Aisle A-01 -> Shipping Bay", LocationChange("Aisle A-01", "Shipping Bay"))
}

func TestActionForStatus(t *testing.T) {
	assert.Equal(t, "SHIPPED", ActionForStatus(ItemStatusShipped))
	assert.Equal(t, "IN_STOCK", ActionForStatus(ItemStatusInStock))
}

func TestAlertStatusValid(t *testing.T) {
	assert.True(t, AlertStatusPending.Valid())
	assert.True(t, AlertStatusCancelled.Valid())
	assert.False(t, AlertStatus("all").Valid())
}
