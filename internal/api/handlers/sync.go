package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ordersync/meli-sync-backend/internal/api/dto"
	"github.com/ordersync/meli-sync-backend/internal/application/service"
	appsync "github.com/ordersync/meli-sync-backend/internal/application/sync"
)

// SyncHandler handles sync job HTTP requests.
type SyncHandler struct {
	*Base
	syncService *service.SyncService
}

// NewSyncHandler creates a new sync handler.
func NewSyncHandler(syncService *service.SyncService) *SyncHandler {
	return &SyncHandler{
		Base:        &Base{},
		syncService: syncService,
	}
}

// StartSync handles POST /api/sync - starts a new sync job.
func (h *SyncHandler) StartSync(w http.ResponseWriter, r *http.Request) {
	var req dto.StartSyncRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
			return
		}
	}

	jobID, err := h.syncService.StartSync(r.Context(), service.SyncRequest{
		LookbackDays: req.LookbackDays,
		Concurrency:  req.Concurrency,
	})
	if errors.Is(err, service.ErrSyncInProgress) {
		h.WriteError(w, http.StatusConflict, dto.ConflictError(err.Error()))
		return
	}
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusAccepted, dto.StartSyncResponse{
		JobID:  jobID,
		Status: string(service.StatusPending),
	})
}

// TriggerSync handles GET /orders?days= - the synchronous trigger kept for
// callers of the original surface. It runs the sync inline and returns the
// run summary.
func (h *SyncHandler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	days := ParseIntParam(r, "days", 0)

	result, err := h.syncService.RunSyncNow(r.Context(), service.SyncRequest{
		LookbackDays: days,
	})
	if errors.Is(err, service.ErrSyncInProgress) {
		h.WriteError(w, http.StatusConflict, dto.ConflictError(err.Error()))
		return
	}
	if err != nil {
		h.WriteError(w, http.StatusBadGateway, dto.UpstreamError(err.Error()))
		return
	}

	h.WriteJSON(w, http.StatusOK, toSyncResultResponse(result))
}

// GetSyncStatus handles GET /api/sync/{jobId} - gets sync job status.
func (h *SyncHandler) GetSyncStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	if jobID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("job ID is required"))
		return
	}

	job, err := h.syncService.GetSyncJob(jobID)
	if err != nil {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("sync job"))
		return
	}

	h.WriteJSON(w, http.StatusOK, toSyncJobResponse(job))
}

// ListSyncs handles GET /api/sync - lists all known sync jobs.
func (h *SyncHandler) ListSyncs(w http.ResponseWriter, r *http.Request) {
	jobs := h.syncService.ListSyncJobs()

	response := dto.SyncJobListResponse{
		Jobs:  make([]dto.SyncJobResponse, 0, len(jobs)),
		Count: len(jobs),
	}
	for _, job := range jobs {
		response.Jobs = append(response.Jobs, toSyncJobResponse(job))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// CancelSync handles DELETE /api/sync/{jobId} - cancels a running sync job.
func (h *SyncHandler) CancelSync(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	if jobID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("job ID is required"))
		return
	}

	if err := h.syncService.CancelSync(jobID); err != nil {
		h.WriteError(w, http.StatusConflict, dto.ConflictError(err.Error()))
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.MessageResponse{
		Message: "sync job cancelled",
	})
}

// toSyncJobResponse converts a service model to an API response.
func toSyncJobResponse(job *service.SyncJob) dto.SyncJobResponse {
	response := dto.SyncJobResponse{
		JobID:     job.ID,
		Status:    string(job.Status),
		StartedAt: job.StartedAt.Format(time.RFC3339),
	}

	if job.CompletedAt != nil {
		completedAt := job.CompletedAt.Format(time.RFC3339)
		response.CompletedAt = &completedAt
	}
	if job.Result != nil {
		result := toSyncResultResponse(job.Result)
		response.Result = &result
	}
	if job.Error != nil {
		errMsg := job.Error.Error()
		response.Error = &errMsg
	}

	return response
}

func toSyncResultResponse(result *appsync.Result) dto.SyncResultResponse {
	response := dto.SyncResultResponse{
		OrdersFound:     result.OrdersFound,
		OrdersProcessed: result.OrdersProcessed,
		OrdersDefaulted: result.OrdersDefaulted,
		OrdersPruned:    result.OrdersPruned,
		Errors:          result.ErrorMessages(),
		Reports:         make([]dto.OrderReportResponse, 0, len(result.Reports)),
	}

	for _, report := range result.Reports {
		enrichment := make(map[string]dto.OutcomeResponse, len(report.Enrichment))
		for field, outcome := range report.Enrichment {
			enrichment[string(field)] = dto.OutcomeResponse{
				OK:     outcome.OK,
				Reason: outcome.Reason,
			}
		}
		response.Reports = append(response.Reports, dto.OrderReportResponse{
			OrderID:    report.OrderID,
			Persisted:  report.Persisted,
			Enrichment: enrichment,
		})
	}

	return response
}
