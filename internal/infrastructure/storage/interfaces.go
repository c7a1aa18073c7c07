package storage

import (
	"errors"
	"time"
)

// ErrNoToken is returned when no token pair has ever been persisted
var ErrNoToken = errors.New("no token stored")

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("not found")

// TokenRepository persists OAuth token pairs. Pairs are append-only; reads
// always return the most recent pair.
type TokenRepository interface {
	SaveToken(accessToken, refreshToken string) error
	LatestToken() (*Token, error)
}

// OrderRepository persists order aggregates with replace-on-write semantics:
// every save deletes the previous rows for the order id before inserting, so
// re-syncing an order never accumulates duplicates.
type OrderRepository interface {
	SaveOrder(order *Order) error
	SaveItems(orderID int64, items []OrderItem) error
	SaveTaxes(orderID int64, taxes []OrderTax) error
	GetOrder(id int64) (*Order, error)
	ListOrders(q ListOrdersQuery) ([]Order, int, error)

	// PruneWindow deletes stored orders dated inside [start, end] whose id is
	// not in keep. Orders outside the window are untouched.
	PruneWindow(start, end time.Time, keep []int64) (int64, error)
}

// ReferenceRepository persists the department/city reference list
type ReferenceRepository interface {
	SaveDepartmentCity(department, city string) error
	CountDepartmentCities() (int, error)
}

// RunRepository records sync run history
type RunRepository interface {
	StartSyncRun(lookbackDays int) (int64, error)
	CompleteSyncRun(runID int64, found, processed, defaulted, errored int) error
	ListSyncRuns(limit int) ([]SyncRun, error)
}

// Repository is the full persistence contract
type Repository interface {
	TokenRepository
	OrderRepository
	ReferenceRepository
	RunRepository

	Close() error
}
