package sync

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ordersync/meli-sync-backend/internal/infrastructure/config"
	"github.com/ordersync/meli-sync-backend/internal/infrastructure/storage"
	"github.com/ordersync/meli-sync-backend/internal/meli"
)

func newTestOrchestrator(api MarketplaceAPI, repo storage.Repository) *Orchestrator {
	o := NewOrchestrator(api, repo, config.DefaultTaxRules(), bogota, nil)
	o.now = func() time.Time {
		return time.Date(2024, 6, 10, 18, 0, 0, 0, bogota)
	}
	return o
}

func TestRun_IdentityCheckFailureAborts(t *testing.T) {
	api := fullStub()
	api.me = func(ctx context.Context) (*meli.User, error) {
		return nil, errors.New("token rejected")
	}
	repo := storage.NewMockRepository()

	result, err := newTestOrchestrator(api, repo).Run(context.Background(), Options{})

	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "identity check failed")
}

func TestRun_SearchFailureAborts(t *testing.T) {
	api := fullStub()
	api.searchOrders = func(ctx context.Context, sellerID int64, from, to time.Time) ([]meli.OrderSummary, error) {
		return nil, errors.New("page 2 failed")
	}
	repo := storage.NewMockRepository()

	result, err := newTestOrchestrator(api, repo).Run(context.Background(), Options{})

	require.Error(t, err)
	assert.Nil(t, result)

	// Nothing persisted and nothing pruned on an aborted run
	_, total, listErr := repo.ListOrders(storage.ListOrdersQuery{})
	require.NoError(t, listErr)
	assert.Zero(t, total)
}

func TestRun_FullRunPersistsAndCounts(t *testing.T) {
	first := summaryFixture()
	second := summaryFixture()
	second.ID = 2000002
	second.Buyer = &meli.Buyer{Nickname: "BUYER02"}

	api := fullStub()
	api.searchOrders = func(ctx context.Context, sellerID int64, from, to time.Time) ([]meli.OrderSummary, error) {
		assert.Equal(t, int64(1), sellerID)
		return []meli.OrderSummary{first, second}, nil
	}
	repo := storage.NewMockRepository()

	result, err := newTestOrchestrator(api, repo).Run(context.Background(), Options{LookbackDays: 3})

	require.NoError(t, err)
	assert.Equal(t, 2, result.OrdersFound)
	assert.Equal(t, 2, result.OrdersProcessed)
	assert.Equal(t, 0, result.OrdersDefaulted)
	assert.Empty(t, result.Errors)
	require.Len(t, result.Reports, 2)

	stored, err := repo.GetOrder(first.ID)
	require.NoError(t, err)
	assert.Equal(t, "BUYER01", stored.BuyerName)
	require.Len(t, stored.Items, 1)
	require.Len(t, stored.Taxes, 1)
	assert.Equal(t, "IVA", stored.Taxes[0].Name)
	// 19% of 150000
	assert.Equal(t, "28500", stored.Taxes[0].Value.String())

	runs, err := repo.ListSyncRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "completed", runs[0].Status)
	assert.Equal(t, 2, runs[0].OrdersProcessed)
}

func TestRun_OutOfWindowOrdersAreDropped(t *testing.T) {
	inWindow := summaryFixture()
	stale := summaryFixture()
	stale.ID = 1999999
	stale.DateCreated = "2024-06-01T10:00:00.000-05:00"

	api := fullStub()
	api.searchOrders = func(ctx context.Context, sellerID int64, from, to time.Time) ([]meli.OrderSummary, error) {
		return []meli.OrderSummary{inWindow, stale}, nil
	}
	repo := storage.NewMockRepository()

	result, err := newTestOrchestrator(api, repo).Run(context.Background(), Options{LookbackDays: 3})

	require.NoError(t, err)
	assert.Equal(t, 1, result.OrdersFound)
	assert.Equal(t, 1, result.OrdersProcessed)

	_, err = repo.GetOrder(stale.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRun_DefaultedOrdersStillPersist(t *testing.T) {
	api := fullStub()
	api.searchOrders = func(ctx context.Context, sellerID int64, from, to time.Time) ([]meli.OrderSummary, error) {
		return []meli.OrderSummary{summaryFixture()}, nil
	}
	api.getBilling = func(ctx context.Context, orderID int64) (*meli.BillingInfo, error) {
		return nil, errors.New("billing down")
	}
	repo := storage.NewMockRepository()

	result, err := newTestOrchestrator(api, repo).Run(context.Background(), Options{})

	require.NoError(t, err)
	assert.Equal(t, 1, result.OrdersProcessed)
	assert.Equal(t, 1, result.OrdersDefaulted)
	assert.Empty(t, result.Errors)

	stored, err := repo.GetOrder(2000001)
	require.NoError(t, err)
	assert.Equal(t, SentinelUnavailable, stored.BillingName)

	runs, err := repo.ListSyncRuns(1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 1, runs[0].OrdersDefaulted)
	assert.Equal(t, "completed", runs[0].Status)
}

func TestRun_PrunesStaleRowsInsideWindow(t *testing.T) {
	repo := storage.NewMockRepository()

	// A previously synced order inside the window that the marketplace no
	// longer returns.
	goneDate := time.Date(2024, 6, 9, 10, 0, 0, 0, bogota)
	require.NoError(t, repo.SaveOrder(&storage.Order{ID: 111, Status: "cancelled", DateCreated: &goneDate}))

	// An old order outside the window must survive.
	oldDate := time.Date(2024, 5, 1, 10, 0, 0, 0, bogota)
	require.NoError(t, repo.SaveOrder(&storage.Order{ID: 222, Status: "paid", DateCreated: &oldDate}))

	api := fullStub()
	api.searchOrders = func(ctx context.Context, sellerID int64, from, to time.Time) ([]meli.OrderSummary, error) {
		return []meli.OrderSummary{summaryFixture()}, nil
	}

	result, err := newTestOrchestrator(api, repo).Run(context.Background(), Options{LookbackDays: 3})

	require.NoError(t, err)
	assert.Equal(t, int64(1), result.OrdersPruned)

	_, err = repo.GetOrder(111)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = repo.GetOrder(222)
	assert.NoError(t, err)
}

func TestRun_ConcurrencyIsBounded(t *testing.T) {
	var current, peak atomic.Int32

	summaries := make([]meli.OrderSummary, 20)
	for i := range summaries {
		s := summaryFixture()
		s.ID = int64(3000000 + i)
		summaries[i] = s
	}

	api := fullStub()
	api.searchOrders = func(ctx context.Context, sellerID int64, from, to time.Time) ([]meli.OrderSummary, error) {
		return summaries, nil
	}
	api.getOrder = func(ctx context.Context, orderID int64) (*meli.OrderDetail, error) {
		n := current.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		current.Add(-1)
		return &meli.OrderDetail{ID: orderID, DateCreated: "2024-06-10T14:30:45.000-04:00"}, nil
	}
	repo := storage.NewMockRepository()

	result, err := newTestOrchestrator(api, repo).Run(context.Background(), Options{Concurrency: 3})

	require.NoError(t, err)
	assert.Equal(t, 20, result.OrdersProcessed)
	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.Greater(t, peak.Load(), int32(1))
}

func TestResult_ErrorMessages(t *testing.T) {
	r := &Result{Errors: []error{errors.New("a"), errors.New("b")}}
	assert.Equal(t, []string{"a", "b"}, r.ErrorMessages())
}
