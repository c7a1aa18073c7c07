package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	appsync "github.com/ordersync/meli-sync-backend/internal/application/sync"
)

// SyncStatus represents the current state of a sync job.
type SyncStatus string

const (
	StatusPending   SyncStatus = "pending"
	StatusRunning   SyncStatus = "running"
	StatusCompleted SyncStatus = "completed"
	StatusFailed    SyncStatus = "failed"
	StatusCancelled SyncStatus = "cancelled"
)

// ErrSyncInProgress is returned when a run is requested while another one is
// still active. Overlapping runs would race on the shared window prune.
var ErrSyncInProgress = errors.New("a sync run is already in progress")

// SyncRequest holds parameters for starting a sync.
type SyncRequest struct {
	LookbackDays int
	Concurrency  int
}

// SyncJob represents a running or completed sync job.
type SyncJob struct {
	ID          string
	Status      SyncStatus
	Request     SyncRequest
	StartedAt   time.Time
	CompletedAt *time.Time
	Result      *appsync.Result
	Error       error
	cancelFunc  context.CancelFunc
}

// Runner is the sync pipeline the service drives. *appsync.Orchestrator
// satisfies it.
type Runner interface {
	Run(ctx context.Context, opts appsync.Options) (*appsync.Result, error)
}

// SyncService manages sync jobs. Only one run may be in flight at a time.
type SyncService struct {
	runner Runner
	logger *slog.Logger

	jobs      map[string]*SyncJob
	jobsMutex sync.RWMutex

	runLock sync.Mutex
}

// NewSyncService creates a new sync service.
func NewSyncService(runner Runner, logger *slog.Logger) *SyncService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncService{
		runner: runner,
		logger: logger,
		jobs:   make(map[string]*SyncJob),
	}
}

// StartSync starts a new sync job asynchronously.
// Note: The passed context is NOT used as the parent for the background job.
// Background jobs use context.Background() so they survive the HTTP request
// that started them. Use CancelSync() to cancel a running job.
func (s *SyncService) StartSync(_ context.Context, req SyncRequest) (string, error) {
	if !s.runLock.TryLock() {
		return "", ErrSyncInProgress
	}

	jobID := uuid.NewString()
	jobCtx, cancel := context.WithCancel(context.Background())

	job := &SyncJob{
		ID:         jobID,
		Status:     StatusPending,
		Request:    req,
		StartedAt:  time.Now(),
		cancelFunc: cancel,
	}

	s.jobsMutex.Lock()
	s.jobs[jobID] = job
	s.jobsMutex.Unlock()

	go s.runSyncJob(jobCtx, job)

	s.logger.Info("Sync job started",
		"job_id", jobID,
		"lookback_days", req.LookbackDays,
	)

	return jobID, nil
}

// RunSyncNow runs a sync synchronously, holding the single-run lock for the
// whole call. The CLI and the legacy trigger endpoint use this path.
func (s *SyncService) RunSyncNow(ctx context.Context, req SyncRequest) (*appsync.Result, error) {
	if !s.runLock.TryLock() {
		return nil, ErrSyncInProgress
	}
	defer s.runLock.Unlock()

	return s.runner.Run(ctx, appsync.Options{
		LookbackDays: req.LookbackDays,
		Concurrency:  req.Concurrency,
	})
}

// GetSyncJob retrieves a sync job by ID.
func (s *SyncService) GetSyncJob(jobID string) (*SyncJob, error) {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}
	return job, nil
}

// ListSyncJobs returns all known jobs, newest first.
func (s *SyncService) ListSyncJobs() []*SyncJob {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()

	jobs := make([]*SyncJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job)
	}
	return jobs
}

// CancelSync cancels a running sync job.
func (s *SyncService) CancelSync(jobID string) error {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}
	if job.Status != StatusPending && job.Status != StatusRunning {
		return fmt.Errorf("job cannot be cancelled: status=%s", job.Status)
	}

	job.cancelFunc()
	job.Status = StatusCancelled
	now := time.Now()
	job.CompletedAt = &now

	s.logger.Info("Sync job cancelled", "job_id", jobID)
	return nil
}

// CleanupOldJobs removes finished jobs older than maxAge.
func (s *SyncService) CleanupOldJobs(maxAge time.Duration) int {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for id, job := range s.jobs {
		if job.Status == StatusPending || job.Status == StatusRunning {
			continue
		}
		if job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed
}

// runSyncJob executes the sync in a background goroutine.
func (s *SyncService) runSyncJob(ctx context.Context, job *SyncJob) {
	defer s.runLock.Unlock()

	s.setStatus(job.ID, StatusRunning)

	result, err := s.runner.Run(ctx, appsync.Options{
		LookbackDays: job.Request.LookbackDays,
		Concurrency:  job.Request.Concurrency,
	})

	if err != nil {
		if ctx.Err() == context.Canceled {
			// Already marked as cancelled in CancelSync
			return
		}
		s.failJob(job.ID, err)
		return
	}

	s.completeJob(job.ID, result)
}

func (s *SyncService) setStatus(jobID string, status SyncStatus) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	if job, exists := s.jobs[jobID]; exists {
		job.Status = status
	}
}

func (s *SyncService) completeJob(jobID string, result *appsync.Result) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	if job, exists := s.jobs[jobID]; exists {
		now := time.Now()
		job.Status = StatusCompleted
		job.CompletedAt = &now
		job.Result = result
		s.logger.Info("Sync job completed",
			"job_id", jobID,
			"orders_found", result.OrdersFound,
			"orders_processed", result.OrdersProcessed,
			"orders_defaulted", result.OrdersDefaulted,
			"errors", len(result.Errors),
		)
	}
}

func (s *SyncService) failJob(jobID string, err error) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	if job, exists := s.jobs[jobID]; exists {
		now := time.Now()
		job.Status = StatusFailed
		job.CompletedAt = &now
		job.Error = err
		s.logger.Error("Sync job failed", "job_id", jobID, "error", err)
	}
}
