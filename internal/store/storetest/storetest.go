// Package storetest opens throwaway in-memory SQLite stores carrying the
// warehouse schema, for tests of the store and the layers above it.
package storetest

import (
	"fmt"
	"testing"

	"warehouse-service/internal/store"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE products (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    sku              TEXT     NOT NULL UNIQUE CHECK (length(sku) <= 50),
    name             TEXT     NOT NULL CHECK (length(name) <= 200),
    description      TEXT     NOT NULL DEFAULT '',
    reorder_point    INTEGER  NOT NULL DEFAULT 10 CHECK (reorder_point >= 0),
    reorder_quantity INTEGER  NOT NULL DEFAULT 50 CHECK (reorder_quantity > 0),
    unit_price       NUMERIC,
    created_at       DATETIME NOT NULL,
    updated_at       DATETIME NOT NULL
);

CREATE TABLE inventory_items (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    rfid_tag        TEXT     NOT NULL UNIQUE CHECK (length(rfid_tag) <= 50),
    product_id      INTEGER  NOT NULL REFERENCES products(id),
    status          TEXT     NOT NULL DEFAULT 'in_stock' CHECK (status IN ('in_stock', 'reserved', 'shipped', 'damaged')),
    location_zone   TEXT     NOT NULL CHECK (length(location_zone) <= 50),
    last_scanned_at DATETIME,
    created_at      DATETIME NOT NULL
);

CREATE TABLE transactions (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    rfid_tag   TEXT     NOT NULL REFERENCES inventory_items(rfid_tag),
    action     TEXT     NOT NULL,
    location   TEXT     NOT NULL CHECK (length(location) <= 120),
    scanned_by TEXT     CHECK (length(scanned_by) <= 100),
    created_at DATETIME NOT NULL
);

CREATE TABLE reorder_alerts (
    id                INTEGER PRIMARY KEY AUTOINCREMENT,
    product_id        INTEGER  NOT NULL REFERENCES products(id),
    current_quantity  INTEGER  NOT NULL,
    reorder_point     INTEGER  NOT NULL,
    status            TEXT     NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'ordered', 'cancelled')),
    baseline_quantity INTEGER,
    created_at        DATETIME NOT NULL,
    resolved_at       DATETIME
);

CREATE UNIQUE INDEX ux_reorder_alerts_one_pending ON reorder_alerts (product_id) WHERE status = 'pending';
`

// New returns a Store backed by a private in-memory database that is closed
// when the test finishes.
func New(t testing.TB) *store.Store {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", uuid.NewString())
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// a single connection keeps the in-memory database alive and serializes writers
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("apply schema: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return store.NewStoreFromDB(db)
}
