package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"warehouse-service/internal/apperr"
	"warehouse-service/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Repository is the persistence surface used by the services. Every method
// runs against the enclosing transaction when called inside InTx.
type Repository interface {
	InTx(ctx context.Context, fn func(Repository) error) error
	Ping(ctx context.Context) error

	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	GetProductBySKU(ctx context.Context, sku string) (*models.Product, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
	CreateProduct(ctx context.Context, product *models.Product) error
	UpdateProduct(ctx context.Context, product *models.Product) error
	LockProducts(ctx context.Context) error

	CreateItem(ctx context.Context, item *models.InventoryItem) error
	GetItemByTag(ctx context.Context, tag string) (*models.InventoryItem, error)
	GetItemByTagForUpdate(ctx context.Context, tag string) (*models.InventoryItem, error)
	UpdateItemScan(ctx context.Context, item *models.InventoryItem) error
	CountInStock(ctx context.Context, productID int64) (int, error)

	CreateTransaction(ctx context.Context, txn *models.Transaction) error
	RecentTransactions(ctx context.Context, limit int) ([]models.Transaction, error)
	TransactionsByTag(ctx context.Context, tag string, limit int) ([]models.Transaction, error)

	InventoryLevels(ctx context.Context) ([]models.InventoryLevel, error)
	CreateAlert(ctx context.Context, alert *models.ReorderAlert) error
	GetAlertByIDForUpdate(ctx context.Context, id int64) (*models.ReorderAlert, error)
	LatestAlertsByProduct(ctx context.Context) (map[int64]models.ReorderAlert, error)
	UpdateAlert(ctx context.Context, alert *models.ReorderAlert) error
	RaiseAlertBaseline(ctx context.Context, alertID int64, quantity int) error
	ListAlerts(ctx context.Context, status *models.AlertStatus) ([]models.AlertView, error)
}

type Store struct {
	db *sqlx.DB
	q  sqlx.ExtContext
	tx *sqlx.Tx
}

var _ Repository = (*Store)(nil)

// Options tunes the connection pool
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewStore creates a new database store
func NewStore(databaseURL string, opts Options) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return NewStoreFromDB(db), nil
}

// NewStoreFromDB wraps an already opened connection
func NewStoreFromDB(db *sqlx.DB) *Store {
	return &Store{db: db, q: db}
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// Ping checks database connectivity
func (s *Store) Ping(ctx context.Context) error {
	return classify(s.db.PingContext(ctx), "ping database")
}

// InTx runs fn inside a single database transaction. Nested calls reuse the
// outer transaction.
func (s *Store) InTx(ctx context.Context, fn func(Repository) error) error {
	if s.tx != nil {
		return fn(s)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return classify(err, "begin transaction")
	}
	defer tx.Rollback()

	if err := fn(&Store{db: s.db, q: tx, tx: tx}); err != nil {
		return err
	}

	return classify(tx.Commit(), "commit transaction")
}

func (s *Store) rebind(query string) string {
	return s.q.Rebind(query)
}

// forUpdate returns the row lock clause for drivers that support it.
func (s *Store) forUpdate() string {
	if s.q.DriverName() == "postgres" {
		return " FOR UPDATE"
	}
	return ""
}

func (s *Store) get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return sqlx.GetContext(ctx, s.q, dest, s.rebind(query), args...)
}

func (s *Store) selectAll(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return sqlx.SelectContext(ctx, s.q, dest, s.rebind(query), args...)
}

func (s *Store) exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return s.q.ExecContext(ctx, s.rebind(query), args...)
}

// classify maps driver errors onto application error codes.
func classify(err error, op string) error {
	if err == nil {
		return nil
	}
	if apperr.As(err) != nil {
		return err
	}

	switch {
	case isUniqueViolation(err), isForeignKeyViolation(err):
		return apperr.Wrap(apperr.CodeConflict, err, op)
	case isCheckViolation(err), isValueTooLong(err):
		return apperr.Wrap(apperr.CodeValidation, err, op)
	case isTransient(err):
		return apperr.Wrap(apperr.CodeUnavailable, err, op)
	}

	return fmt.Errorf("%s: %w", op, err)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23503"
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

func isCheckViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23514"
	}
	return strings.Contains(err.Error(), "CHECK constraint failed")
}

// isValueTooLong reports string_data_right_truncation, raised when a value
// exceeds its VARCHAR column.
func isValueTooLong(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "22001"
	}
	return false
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) ||
		errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// connection exceptions, admin shutdown, serialization failure, deadlock
		return pqErr.Code.Class() == "08" || pqErr.Code == "57P01" ||
			pqErr.Code == "40001" || pqErr.Code == "40P01"
	}

	return false
}

// notFound converts sql.ErrNoRows into a typed not found error for what/key.
func notFound(err error, what string, key interface{}) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.Newf(apperr.CodeNotFound, "%s not found: %v", what, key)
	}
	return classify(err, "get "+what)
}
