package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ordersync/meli-sync-backend/internal/api/dto"
	"github.com/ordersync/meli-sync-backend/internal/api/handlers"
	"github.com/ordersync/meli-sync-backend/internal/application/service"
	appsync "github.com/ordersync/meli-sync-backend/internal/application/sync"
)

// immediateRunner completes instantly with a fixed result
type immediateRunner struct {
	result *appsync.Result
	err    error
}

func (r *immediateRunner) Run(context.Context, appsync.Options) (*appsync.Result, error) {
	return r.result, r.err
}

// blockedRunner never finishes until its channel is closed
type blockedRunner struct {
	release chan struct{}
}

func (r *blockedRunner) Run(ctx context.Context, _ appsync.Options) (*appsync.Result, error) {
	select {
	case <-r.release:
		return &appsync.Result{}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestSyncHandler_StartSync(t *testing.T) {
	t.Run("accepts and returns a job id", func(t *testing.T) {
		svc := service.NewSyncService(&immediateRunner{result: &appsync.Result{OrdersProcessed: 1}}, nil)
		handler := handlers.NewSyncHandler(svc)

		req := httptest.NewRequest(http.MethodPost, "/api/sync", nil)
		rec := httptest.NewRecorder()

		handler.StartSync(rec, req)

		assert.Equal(t, http.StatusAccepted, rec.Code)

		var response dto.StartSyncResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.NotEmpty(t, response.JobID)
		assert.Equal(t, "pending", response.Status)
	})

	t.Run("second concurrent start is 409", func(t *testing.T) {
		runner := &blockedRunner{release: make(chan struct{})}
		defer close(runner.release)
		svc := service.NewSyncService(runner, nil)
		handler := handlers.NewSyncHandler(svc)

		rec := httptest.NewRecorder()
		handler.StartSync(rec, httptest.NewRequest(http.MethodPost, "/api/sync", nil))
		require.Equal(t, http.StatusAccepted, rec.Code)

		rec = httptest.NewRecorder()
		handler.StartSync(rec, httptest.NewRequest(http.MethodPost, "/api/sync", nil))
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestSyncHandler_GetSyncStatus(t *testing.T) {
	svc := service.NewSyncService(&immediateRunner{result: &appsync.Result{
		OrdersFound:     3,
		OrdersProcessed: 3,
	}}, nil)
	handler := handlers.NewSyncHandler(svc)

	jobID, err := svc.StartSync(context.Background(), service.SyncRequest{})
	require.NoError(t, err)

	// Wait for the background job to complete
	require.Eventually(t, func() bool {
		job, err := svc.GetSyncJob(jobID)
		return err == nil && job.Status == service.StatusCompleted
	}, 2*time.Second, 5*time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/api/sync/"+jobID, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("jobId", jobID)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	rec := httptest.NewRecorder()

	handler.GetSyncStatus(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response dto.SyncJobResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, "completed", response.Status)
	require.NotNil(t, response.Result)
	assert.Equal(t, 3, response.Result.OrdersProcessed)
}

func TestSyncHandler_GetSyncStatus_Unknown(t *testing.T) {
	svc := service.NewSyncService(&immediateRunner{result: &appsync.Result{}}, nil)
	handler := handlers.NewSyncHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/sync/nope", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("jobId", "nope")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	rec := httptest.NewRecorder()

	handler.GetSyncStatus(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSyncHandler_TriggerSync(t *testing.T) {
	svc := service.NewSyncService(&immediateRunner{result: &appsync.Result{
		OrdersFound:     2,
		OrdersProcessed: 2,
		OrdersDefaulted: 1,
	}}, nil)
	handler := handlers.NewSyncHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/orders?days=2", nil)
	rec := httptest.NewRecorder()

	handler.TriggerSync(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response dto.SyncResultResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, 2, response.OrdersProcessed)
	assert.Equal(t, 1, response.OrdersDefaulted)
}
