package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ordersync/meli-sync-backend/internal/api/dto"
	"github.com/ordersync/meli-sync-backend/internal/api/handlers"
	"github.com/ordersync/meli-sync-backend/internal/infrastructure/storage"
)

func TestRunsHandler_List(t *testing.T) {
	repo := storage.NewMockRepository()

	runID, err := repo.StartSyncRun(3)
	require.NoError(t, err)
	require.NoError(t, repo.CompleteSyncRun(runID, 10, 9, 2, 1))

	handler := handlers.NewRunsHandler(repo)

	req := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
	rec := httptest.NewRecorder()

	handler.List(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response dto.SyncRunListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))

	require.Equal(t, 1, response.Count)
	run := response.Runs[0]
	assert.Equal(t, 3, run.LookbackDays)
	assert.Equal(t, 10, run.OrdersFound)
	assert.Equal(t, 9, run.OrdersProcessed)
	assert.Equal(t, "completed_with_errors", run.Status)
	require.NotNil(t, run.CompletedAt)
}

func TestRunsHandler_List_Empty(t *testing.T) {
	handler := handlers.NewRunsHandler(storage.NewMockRepository())

	req := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
	rec := httptest.NewRecorder()

	handler.List(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response dto.SyncRunListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Zero(t, response.Count)
	assert.Empty(t, response.Runs)
}
