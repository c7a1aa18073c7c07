package storage

import (
	"sort"
	"sync"
	"time"
)

// MockRepository is an in-memory Repository for tests
type MockRepository struct {
	mu      sync.Mutex
	tokens  []Token
	orders  map[int64]*Order
	items   map[int64][]OrderItem
	taxes   map[int64][]OrderTax
	refRows []DepartmentCity
	runs    []SyncRun
	nextRun int64
}

// Compile-time check that MockRepository implements Repository
var _ Repository = (*MockRepository)(nil)

// NewMockRepository creates an empty in-memory repository
func NewMockRepository() *MockRepository {
	return &MockRepository{
		orders: make(map[int64]*Order),
		items:  make(map[int64][]OrderItem),
		taxes:  make(map[int64][]OrderTax),
	}
}

func (m *MockRepository) SaveToken(accessToken, refreshToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = append(m.tokens, Token{
		ID:           int64(len(m.tokens) + 1),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		CreatedAt:    time.Now(),
	})
	return nil
}

func (m *MockRepository) LatestToken() (*Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.tokens) == 0 {
		return nil, ErrNoToken
	}
	token := m.tokens[len(m.tokens)-1]
	return &token, nil
}

// Tokens returns every persisted pair, oldest first
func (m *MockRepository) Tokens() []Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Token, len(m.tokens))
	copy(out, m.tokens)
	return out
}

func (m *MockRepository) SaveOrder(order *Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *order
	m.orders[order.ID] = &clone
	delete(m.items, order.ID)
	delete(m.taxes, order.ID)
	return nil
}

func (m *MockRepository) SaveItems(orderID int64, items []OrderItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[orderID] = append([]OrderItem(nil), items...)
	return nil
}

func (m *MockRepository) SaveTaxes(orderID int64, taxes []OrderTax) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.taxes[orderID] = append([]OrderTax(nil), taxes...)
	return nil
}

func (m *MockRepository) GetOrder(id int64) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *order
	clone.Items = append([]OrderItem(nil), m.items[id]...)
	clone.Taxes = append([]OrderTax(nil), m.taxes[id]...)
	return &clone, nil
}

func (m *MockRepository) ListOrders(q ListOrdersQuery) ([]Order, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if q.Limit <= 0 {
		q.Limit = 50
	}

	ids := make([]int64, 0, len(m.orders))
	for id := range m.orders {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })

	var all []Order
	for _, id := range ids {
		all = append(all, *m.orders[id])
	}

	total := len(all)
	if q.Offset >= total {
		return nil, total, nil
	}
	end := q.Offset + q.Limit
	if end > total {
		end = total
	}
	return all[q.Offset:end], total, nil
}

func (m *MockRepository) PruneWindow(start, end time.Time, keep []int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	keepSet := make(map[int64]bool, len(keep))
	for _, id := range keep {
		keepSet[id] = true
	}

	var pruned int64
	for id, order := range m.orders {
		if keepSet[id] || order.DateCreated == nil {
			continue
		}
		if order.DateCreated.Before(start) || order.DateCreated.After(end) {
			continue
		}
		delete(m.orders, id)
		delete(m.items, id)
		delete(m.taxes, id)
		pruned++
	}
	return pruned, nil
}

func (m *MockRepository) SaveDepartmentCity(department, city string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.refRows {
		if row.Department == department && row.City == city {
			return nil
		}
	}
	m.refRows = append(m.refRows, DepartmentCity{Department: department, City: city})
	return nil
}

func (m *MockRepository) CountDepartmentCities() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.refRows), nil
}

func (m *MockRepository) StartSyncRun(lookbackDays int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextRun++
	m.runs = append(m.runs, SyncRun{
		ID:           m.nextRun,
		LookbackDays: lookbackDays,
		StartedAt:    time.Now(),
		Status:       "running",
	})
	return m.nextRun, nil
}

func (m *MockRepository) CompleteSyncRun(runID int64, found, processed, defaulted, errored int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.runs {
		if m.runs[i].ID != runID {
			continue
		}
		now := time.Now()
		m.runs[i].CompletedAt = &now
		m.runs[i].OrdersFound = found
		m.runs[i].OrdersProcessed = processed
		m.runs[i].OrdersDefaulted = defaulted
		m.runs[i].OrdersErrored = errored
		if errored > 0 {
			m.runs[i].Status = "completed_with_errors"
		} else {
			m.runs[i].Status = "completed"
		}
	}
	return nil
}

func (m *MockRepository) ListSyncRuns(limit int) ([]SyncRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > len(m.runs) {
		limit = len(m.runs)
	}
	out := make([]SyncRun, 0, limit)
	for i := len(m.runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.runs[i])
	}
	return out, nil
}

func (m *MockRepository) Close() error {
	return nil
}
