package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

// Storage provides SQLite database access for the order sync pipeline.
// It implements the Repository interface.
type Storage struct {
	db *sql.DB
}

// Compile-time check that Storage implements Repository
var _ Repository = (*Storage)(nil)

// NewStorage creates a new storage instance with SQLite database
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign key constraints (SQLite-specific)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Storage{db: db}

	// Run all pending migrations
	if err := s.runMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// ================================================================
// Tokens
// ================================================================

// SaveToken appends a new token pair. Superseded pairs are kept.
func (s *Storage) SaveToken(accessToken, refreshToken string) error {
	_, err := s.db.Exec(`
		INSERT INTO tokens (access_token, refresh_token) VALUES (?, ?)
	`, accessToken, refreshToken)
	return err
}

// LatestToken returns the most recently persisted token pair
func (s *Storage) LatestToken() (*Token, error) {
	token := &Token{}
	err := s.db.QueryRow(`
		SELECT id, access_token, refresh_token, created_at
		FROM tokens ORDER BY id DESC LIMIT 1
	`).Scan(&token.ID, &token.AccessToken, &token.RefreshToken, &token.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, err
	}
	return token, nil
}

// ================================================================
// Orders
// ================================================================

// SaveOrder replaces the order aggregate header: previous tax, item and header
// rows for the id are deleted before the new header is inserted, all in one
// transaction.
func (s *Storage) SaveOrder(order *Order) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	for _, stmt := range []string{
		`DELETE FROM order_taxes WHERE order_id = ?`,
		`DELETE FROM order_items WHERE order_id = ?`,
		`DELETE FROM orders WHERE id = ?`,
	} {
		if _, err := tx.Exec(stmt, order.ID); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to clear order %d: %w", order.ID, err)
		}
	}

	var dateCreated any
	if order.DateCreated != nil {
		dateCreated = *order.DateCreated
	}

	_, err = tx.Exec(`
		INSERT INTO orders (
			id, status, date_created, buyer_name,
			billing_name, billing_id_type, billing_id_number, billing_address, billing_email,
			seller_fee_total, shipping_cost, city, department
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		order.ID,
		order.Status,
		dateCreated,
		order.BuyerName,
		order.BillingName,
		order.BillingIDType,
		order.BillingIDNum,
		order.BillingAddress,
		order.BillingEmail,
		order.SellerFeeTotal.String(),
		order.ShippingCost.String(),
		order.City,
		order.Department,
	)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to insert order %d: %w", order.ID, err)
	}

	return tx.Commit()
}

// SaveItems replaces all line items for an order
func (s *Storage) SaveItems(orderID int64, items []OrderItem) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM order_items WHERE order_id = ?`, orderID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to clear items for order %d: %w", orderID, err)
	}

	for _, item := range items {
		_, err := tx.Exec(`
			INSERT INTO order_items (order_id, sku_seller, sku_marketplace, title, quantity, unit_price)
			VALUES (?, ?, ?, ?, ?, ?)
		`, orderID, item.SKUSeller, item.SKUMarketplace, item.Title, item.Quantity, item.UnitPrice.String())
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert item for order %d: %w", orderID, err)
		}
	}

	return tx.Commit()
}

// SaveTaxes replaces all computed tax lines for an order
func (s *Storage) SaveTaxes(orderID int64, taxes []OrderTax) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM order_taxes WHERE order_id = ?`, orderID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to clear taxes for order %d: %w", orderID, err)
	}

	for _, tax := range taxes {
		_, err := tx.Exec(`
			INSERT INTO order_taxes (order_id, name, value) VALUES (?, ?, ?)
		`, orderID, tax.Name, tax.Value.String())
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert tax for order %d: %w", orderID, err)
		}
	}

	return tx.Commit()
}

// GetOrder retrieves an order aggregate with its items and taxes
func (s *Storage) GetOrder(id int64) (*Order, error) {
	order := &Order{}
	var dateCreated sql.NullTime
	var fee, shipping string

	err := s.db.QueryRow(`
		SELECT id, status, date_created, buyer_name,
		       billing_name, billing_id_type, billing_id_number, billing_address, billing_email,
		       seller_fee_total, shipping_cost, city, department
		FROM orders WHERE id = ?
	`, id).Scan(
		&order.ID,
		&order.Status,
		&dateCreated,
		&order.BuyerName,
		&order.BillingName,
		&order.BillingIDType,
		&order.BillingIDNum,
		&order.BillingAddress,
		&order.BillingEmail,
		&fee,
		&shipping,
		&order.City,
		&order.Department,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if dateCreated.Valid {
		t := dateCreated.Time
		order.DateCreated = &t
	}
	order.SellerFeeTotal = parseStoredDecimal(fee)
	order.ShippingCost = parseStoredDecimal(shipping)

	if order.Items, err = s.itemsForOrder(id); err != nil {
		return nil, err
	}
	if order.Taxes, err = s.taxesForOrder(id); err != nil {
		return nil, err
	}

	return order, nil
}

func (s *Storage) itemsForOrder(orderID int64) ([]OrderItem, error) {
	rows, err := s.db.Query(`
		SELECT order_id, sku_seller, sku_marketplace, title, quantity, unit_price
		FROM order_items WHERE order_id = ? ORDER BY id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []OrderItem
	for rows.Next() {
		var item OrderItem
		var price string
		if err := rows.Scan(&item.OrderID, &item.SKUSeller, &item.SKUMarketplace, &item.Title, &item.Quantity, &price); err != nil {
			return nil, err
		}
		item.UnitPrice = parseStoredDecimal(price)
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *Storage) taxesForOrder(orderID int64) ([]OrderTax, error) {
	rows, err := s.db.Query(`
		SELECT order_id, name, value FROM order_taxes WHERE order_id = ? ORDER BY id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var taxes []OrderTax
	for rows.Next() {
		var tax OrderTax
		var value string
		if err := rows.Scan(&tax.OrderID, &tax.Name, &value); err != nil {
			return nil, err
		}
		tax.Value = parseStoredDecimal(value)
		taxes = append(taxes, tax)
	}
	return taxes, rows.Err()
}

// ListOrders returns order headers matching the query plus the total count
func (s *Storage) ListOrders(q ListOrdersQuery) ([]Order, int, error) {
	if q.Limit <= 0 {
		q.Limit = 50
	}

	where := ""
	args := []any{}
	if q.Search != "" {
		where = `WHERE buyer_name LIKE ? OR billing_name LIKE ? OR status LIKE ?`
		pattern := "%" + q.Search + "%"
		args = append(args, pattern, pattern, pattern)
	}

	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM orders `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.Query(`
		SELECT id, status, date_created, buyer_name,
		       billing_name, billing_id_type, billing_id_number, billing_address, billing_email,
		       seller_fee_total, shipping_cost, city, department
		FROM orders `+where+`
		ORDER BY date_created DESC, id DESC
		LIMIT ? OFFSET ?
	`, append(args, q.Limit, q.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = rows.Close() }()

	var orders []Order
	for rows.Next() {
		var order Order
		var dateCreated sql.NullTime
		var fee, shipping string
		if err := rows.Scan(
			&order.ID,
			&order.Status,
			&dateCreated,
			&order.BuyerName,
			&order.BillingName,
			&order.BillingIDType,
			&order.BillingIDNum,
			&order.BillingAddress,
			&order.BillingEmail,
			&fee,
			&shipping,
			&order.City,
			&order.Department,
		); err != nil {
			return nil, 0, err
		}
		if dateCreated.Valid {
			t := dateCreated.Time
			order.DateCreated = &t
		}
		order.SellerFeeTotal = parseStoredDecimal(fee)
		order.ShippingCost = parseStoredDecimal(shipping)
		orders = append(orders, order)
	}

	return orders, total, rows.Err()
}

// PruneWindow deletes stored orders dated inside [start, end] whose id is not
// in keep, along with their items and taxes. Returns the number of deleted
// order headers.
func (s *Storage) PruneWindow(start, end time.Time, keep []int64) (int64, error) {
	query := `SELECT id FROM orders WHERE date_created IS NOT NULL AND date_created >= ? AND date_created <= ?`
	args := []any{start, end}

	if len(keep) > 0 {
		placeholders := strings.Repeat("?,", len(keep))
		query += ` AND id NOT IN (` + placeholders[:len(placeholders)-1] + `)`
		for _, id := range keep {
			args = append(args, id)
		}
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return 0, err
	}

	var stale []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return 0, err
		}
		stale = append(stale, id)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return 0, err
	}
	_ = rows.Close()

	if len(stale) == 0 {
		return 0, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}

	for _, id := range stale {
		for _, stmt := range []string{
			`DELETE FROM order_taxes WHERE order_id = ?`,
			`DELETE FROM order_items WHERE order_id = ?`,
			`DELETE FROM orders WHERE id = ?`,
		} {
			if _, err := tx.Exec(stmt, id); err != nil {
				_ = tx.Rollback()
				return 0, fmt.Errorf("failed to prune order %d: %w", id, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return int64(len(stale)), nil
}

// ================================================================
// Reference data
// ================================================================

// SaveDepartmentCity inserts one department/city pair, ignoring duplicates
func (s *Storage) SaveDepartmentCity(department, city string) error {
	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO department_cities (department, city) VALUES (?, ?)
	`, department, city)
	return err
}

// CountDepartmentCities returns the number of stored reference rows
func (s *Storage) CountDepartmentCities() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM department_cities`).Scan(&count)
	return count, err
}

// ================================================================
// Sync runs
// ================================================================

// StartSyncRun records the start of a sync run
func (s *Storage) StartSyncRun(lookbackDays int) (int64, error) {
	result, err := s.db.Exec(`
		INSERT INTO sync_runs (lookback_days, status) VALUES (?, 'running')
	`, lookbackDays)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// CompleteSyncRun records the completion of a sync run
func (s *Storage) CompleteSyncRun(runID int64, found, processed, defaulted, errored int) error {
	_, err := s.db.Exec(`
		UPDATE sync_runs
		SET completed_at = CURRENT_TIMESTAMP,
		    orders_found = ?,
		    orders_processed = ?,
		    orders_defaulted = ?,
		    orders_errored = ?,
		    status = CASE WHEN ? > 0 THEN 'completed_with_errors' ELSE 'completed' END
		WHERE id = ?
	`, found, processed, defaulted, errored, errored, runID)
	return err
}

// ListSyncRuns returns the most recent sync runs
func (s *Storage) ListSyncRuns(limit int) ([]SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`
		SELECT id, lookback_days, started_at, completed_at,
		       orders_found, orders_processed, orders_defaulted, orders_errored, status
		FROM sync_runs ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var runs []SyncRun
	for rows.Next() {
		var run SyncRun
		var completed sql.NullTime
		if err := rows.Scan(
			&run.ID,
			&run.LookbackDays,
			&run.StartedAt,
			&completed,
			&run.OrdersFound,
			&run.OrdersProcessed,
			&run.OrdersDefaulted,
			&run.OrdersErrored,
			&run.Status,
		); err != nil {
			return nil, err
		}
		if completed.Valid {
			t := completed.Time
			run.CompletedAt = &t
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// parseStoredDecimal converts a stored TEXT amount back to a decimal.
// Stored values are written by decimal.String so parse failures mean a
// corrupted row; zero is returned rather than failing the read.
func parseStoredDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
