package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"warehouse-service/internal/apperr"
	"warehouse-service/internal/models"
	"warehouse-service/internal/store/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanLimitsNormalize(t *testing.T) {
	limits := DefaultScanLimits()

	assert.Equal(t, 50, limits.Normalize(0))
	assert.Equal(t, 50, limits.Normalize(-3))
	assert.Equal(t, 5, limits.Normalize(5))
	assert.Equal(t, 200, limits.Normalize(200))
	assert.Equal(t, 200, limits.Normalize(1000))
}

func TestProcessScanMovesItemAndAppendsTransaction(t *testing.T) {
	repo, products := newSeededStore(t)
	cache := &memoryCache{}
	pub := &recordingPublisher{}
	svc := NewLedgerService(repo, cache, pub, DefaultScanLimits())
	ctx := context.Background()

	result, err := svc.ProcessScan(ctx, &ScanRequest{RFIDTag: "RFID001", Location: "Shipping Bay", ScannerID: "dock-1"})
	require.NoError(t, err)
	assert.Equal(t, "RFID001", result.RFIDTag)
	assert.Equal(t, "Shipping Bay", result.NewLocation)
	assert.Equal(t, models.ItemStatusInStock, result.Status)
	assert.Equal(t, models.ActionScanned, result.Action)
	assert.NotZero(t, result.TransactionID)

	item, err := svc.GetItem(ctx, "RFID001")
	require.NoError(t, err)
	assert.Equal(t, "Shipping Bay", item.LocationZone)
	assert.NotNil(t, item.LastScannedAt)

	txns, err := svc.TransactionsForTag(ctx, "RFID001", 0)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, models.ActionScanned, txns[0].Action)
	assert.Equal(t, "Aisle A-01 -> Shipping Bay", txns[0].Location)
	require.NotNil(t, txns[0].ScannedBy)
	assert.Equal(t, "dock-1", *txns[0].ScannedBy)

	assert.Equal(t, 1, cache.invalidated)
	require.Len(t, pub.scans, 1)
	assert.Equal(t, models.EventTypeScanRecorded, pub.scans[0].EventType)
	assert.Equal(t, products["LAP001"].ID, pub.scans[0].ProductID)
	assert.Equal(t, "Aisle A-01", pub.scans[0].FromLocation)
	assert.Equal(t, "Shipping Bay", pub.scans[0].ToLocation)
}

func TestProcessScanUnknownTagWritesNothing(t *testing.T) {
	repo, _ := newSeededStore(t)
	pub := &recordingPublisher{}
	svc := NewLedgerService(repo, nil, pub, DefaultScanLimits())
	ctx := context.Background()

	_, err := svc.ProcessScan(ctx, &ScanRequest{RFIDTag: "RFID999", Location: "Dock"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeUnknownTag), "got %v", err)

	txns, err := svc.RecentTransactions(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, txns)
	assert.Empty(t, pub.scans)
}

func TestProcessScanValidation(t *testing.T) {
	repo, _ := newSeededStore(t)
	svc := NewLedgerService(repo, nil, nil, DefaultScanLimits())
	ctx := context.Background()

	cases := []ScanRequest{
		{RFIDTag: "", Location: "Dock"},
		{RFIDTag: "RFID001", Location: "   "},
		{RFIDTag: "RFID001", Location: "Dock", Status: "lost"},
		{RFIDTag: strings.Repeat("T", 51), Location: "Dock"},
		{RFIDTag: "RFID001", Location: strings.Repeat("Z", 60)},
	}
	for _, req := range cases {
		req := req
		_, err := svc.ProcessScan(ctx, &req)
		assert.True(t, apperr.Is(err, apperr.CodeValidation), "request %+v: got %v", req, err)
	}

	txns, err := svc.RecentTransactions(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, txns)
}

func TestProcessScanStatusTransitions(t *testing.T) {
	repo, products := newSeededStore(t)
	svc := NewLedgerService(repo, nil, nil, DefaultScanLimits())
	ctx := context.Background()

	result, err := svc.ProcessScan(ctx, &ScanRequest{RFIDTag: "RFID001", Location: "Packing", Status: "RESERVED"})
	require.NoError(t, err)
	assert.Equal(t, models.ItemStatusReserved, result.Status)
	assert.Equal(t, "RESERVED", result.Action)

	result, err = svc.ProcessScan(ctx, &ScanRequest{RFIDTag: "RFID001", Location: "Packing", Status: "reserved"})
	require.NoError(t, err)
	assert.Equal(t, models.ActionScanned, result.Action, "same status is a plain scan")

	result, err = svc.ProcessScan(ctx, &ScanRequest{RFIDTag: "RFID001", Location: "Shipping Bay", Status: "shipped"})
	require.NoError(t, err)
	assert.Equal(t, "SHIPPED", result.Action)

	_, err = svc.ProcessScan(ctx, &ScanRequest{RFIDTag: "RFID001", Location: "Aisle A-01", Status: "in_stock"})
	assert.True(t, apperr.Is(err, apperr.CodeStateConflict), "got %v", err)

	item, err := svc.GetItem(ctx, "RFID001")
	require.NoError(t, err)
	assert.Equal(t, "Shipping Bay", item.LocationZone, "rejected scan must not move the item")
	assert.Equal(t, models.ItemStatusShipped, item.Status)

	count, err := repo.CountInStock(ctx, products["LAP001"].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	txns, err := svc.TransactionsForTag(ctx, "RFID001", 10)
	require.NoError(t, err)
	assert.Len(t, txns, 3)
}

func TestProcessScanIsAtomic(t *testing.T) {
	repo, _ := newSeededStore(t)
	svc := NewLedgerService(failingTxRepo{Repository: repo, err: apperr.Wrap(apperr.CodeUnavailable, errDBDown, "begin transaction")},
		nil, nil, DefaultScanLimits())
	ctx := context.Background()

	_, err := svc.ProcessScan(ctx, &ScanRequest{RFIDTag: "RFID001", Location: "Dock"})
	require.Error(t, err)
	assert.True(t, apperr.IsRetryable(err))

	item, err := repo.GetItemByTag(ctx, "RFID001")
	require.NoError(t, err)
	assert.Equal(t, "Aisle A-01", item.LocationZone)
}

func TestPublishFailureDoesNotFailScan(t *testing.T) {
	repo, _ := newSeededStore(t)
	pub := &recordingPublisher{err: fmt.Errorf("broker down")}
	svc := NewLedgerService(repo, nil, pub, DefaultScanLimits())

	_, err := svc.ProcessScan(context.Background(), &ScanRequest{RFIDTag: "RFID002", Location: "Dock"})
	assert.NoError(t, err)
	assert.Len(t, pub.scans, 1)
}

func TestRecentTransactionsLimit(t *testing.T) {
	repo, _ := newSeededStore(t)
	svc := NewLedgerService(repo, nil, nil, DefaultScanLimits())
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		_, err := svc.ProcessScan(ctx, &ScanRequest{RFIDTag: "RFID003", Location: fmt.Sprintf("Zone %02d", i)})
		require.NoError(t, err)
	}

	txns, err := svc.RecentTransactions(ctx, 5)
	require.NoError(t, err)
	require.Len(t, txns, 5)
	assert.Equal(t, "Zone 18 -> Zone 19", txns[0].Location)
	for i := 1; i < len(txns); i++ {
		assert.Greater(t, txns[i-1].ID, txns[i].ID)
		assert.False(t, txns[i].CreatedAt.After(txns[i-1].CreatedAt))
	}

	all, err := svc.RecentTransactions(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 20)
}

func TestProvisionItem(t *testing.T) {
	repo, products := newSeededStore(t)
	cache := &memoryCache{}
	svc := NewLedgerService(repo, cache, nil, DefaultScanLimits())
	ctx := context.Background()

	item, err := svc.ProvisionItem(ctx, &ProvisionItemRequest{RFIDTag: " RFID010 ", SKU: "MOU001", LocationZone: "Aisle B-02"})
	require.NoError(t, err)
	assert.Equal(t, "RFID010", item.RFIDTag)
	assert.Equal(t, products["MOU001"].ID, item.ProductID)
	assert.Equal(t, models.ItemStatusInStock, item.Status)
	assert.Equal(t, 1, cache.invalidated)

	_, err = svc.ProvisionItem(ctx, &ProvisionItemRequest{RFIDTag: "RFID010", SKU: "MOU001", LocationZone: "Aisle B-02"})
	assert.True(t, apperr.Is(err, apperr.CodeConflict), "got %v", err)

	_, err = svc.ProvisionItem(ctx, &ProvisionItemRequest{RFIDTag: "RFID011", SKU: "NOPE", LocationZone: "Aisle B-02"})
	assert.True(t, apperr.Is(err, apperr.CodeNotFound), "got %v", err)

	_, err = svc.ProvisionItem(ctx, &ProvisionItemRequest{RFIDTag: "RFID011", SKU: "MOU001"})
	assert.True(t, apperr.Is(err, apperr.CodeValidation), "got %v", err)

	_, err = svc.ProvisionItem(ctx, &ProvisionItemRequest{RFIDTag: strings.Repeat("T", 51), SKU: "MOU001", LocationZone: "Aisle B-02"})
	assert.True(t, apperr.Is(err, apperr.CodeValidation), "got %v", err)

	_, err = svc.ProvisionItem(ctx, &ProvisionItemRequest{RFIDTag: "RFID011", SKU: "MOU001", LocationZone: strings.Repeat("Z", 51)})
	assert.True(t, apperr.Is(err, apperr.CodeValidation), "got %v", err)
}

func TestItemLookupUnknownTag(t *testing.T) {
	svc := NewLedgerService(storetest.New(t), nil, nil, DefaultScanLimits())
	ctx := context.Background()

	_, err := svc.GetItem(ctx, "RFID404")
	assert.True(t, apperr.Is(err, apperr.CodeUnknownTag))

	_, err = svc.TransactionsForTag(ctx, "RFID404", 10)
	assert.True(t, apperr.Is(err, apperr.CodeUnknownTag))
}
