package handlers

import (
	"net/http"
	"time"

	"github.com/ordersync/meli-sync-backend/internal/api/dto"
	"github.com/ordersync/meli-sync-backend/internal/infrastructure/storage"
)

// RunsHandler serves the sync run history.
type RunsHandler struct {
	*Base
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(repo storage.Repository) *RunsHandler {
	return &RunsHandler{
		Base: NewBase(repo),
	}
}

// List handles GET /api/runs - returns recent sync runs, newest first.
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := ParseIntParam(r, "limit", 20)

	runs, err := h.repo.ListSyncRuns(limit)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.SyncRunListResponse{
		Runs:  make([]dto.SyncRunResponse, 0, len(runs)),
		Count: len(runs),
	}
	for _, run := range runs {
		response.Runs = append(response.Runs, toSyncRunResponse(run))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

func toSyncRunResponse(run storage.SyncRun) dto.SyncRunResponse {
	response := dto.SyncRunResponse{
		ID:              run.ID,
		LookbackDays:    run.LookbackDays,
		StartedAt:       run.StartedAt.Format(time.RFC3339),
		OrdersFound:     run.OrdersFound,
		OrdersProcessed: run.OrdersProcessed,
		OrdersDefaulted: run.OrdersDefaulted,
		OrdersErrored:   run.OrdersErrored,
		Status:          run.Status,
	}
	if run.CompletedAt != nil {
		completed := run.CompletedAt.Format(time.RFC3339)
		response.CompletedAt = &completed
	}
	return response
}
