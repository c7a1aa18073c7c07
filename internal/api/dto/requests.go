package dto

// StartSyncRequest is the body of POST /api/sync.
type StartSyncRequest struct {
	LookbackDays int `json:"lookback_days"`
	Concurrency  int `json:"concurrency"`
}
