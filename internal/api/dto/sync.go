package dto

// StartSyncResponse acknowledges an accepted sync job.
type StartSyncResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// OrderReportResponse describes how one order fared during a run.
type OrderReportResponse struct {
	OrderID    int64                      `json:"order_id"`
	Persisted  bool                       `json:"persisted"`
	Enrichment map[string]OutcomeResponse `json:"enrichment"`
}

// OutcomeResponse is one enrichment sub-fetch outcome.
type OutcomeResponse struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// SyncResultResponse summarizes a finished run.
type SyncResultResponse struct {
	OrdersFound     int                   `json:"orders_found"`
	OrdersProcessed int                   `json:"orders_processed"`
	OrdersDefaulted int                   `json:"orders_defaulted"`
	OrdersPruned    int64                 `json:"orders_pruned"`
	Errors          []string              `json:"errors"`
	Reports         []OrderReportResponse `json:"reports"`
}

// SyncJobResponse is the state of one sync job.
type SyncJobResponse struct {
	JobID       string              `json:"job_id"`
	Status      string              `json:"status"`
	StartedAt   string              `json:"started_at"`
	CompletedAt *string             `json:"completed_at,omitempty"`
	Result      *SyncResultResponse `json:"result,omitempty"`
	Error       *string             `json:"error,omitempty"`
}

// SyncJobListResponse lists known sync jobs.
type SyncJobListResponse struct {
	Jobs  []SyncJobResponse `json:"jobs"`
	Count int               `json:"count"`
}
