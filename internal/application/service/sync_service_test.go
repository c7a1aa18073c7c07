package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appsync "github.com/ordersync/meli-sync-backend/internal/application/sync"
)

// stubRunner blocks until released, then returns the configured result
type stubRunner struct {
	mu      sync.Mutex
	calls   int
	release chan struct{}
	result  *appsync.Result
	err     error
}

func newStubRunner() *stubRunner {
	return &stubRunner{
		release: make(chan struct{}),
		result:  &appsync.Result{OrdersFound: 2, OrdersProcessed: 2},
	}
}

func (r *stubRunner) Run(ctx context.Context, opts appsync.Options) (*appsync.Result, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()

	select {
	case <-r.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return r.result, r.err
}

func (r *stubRunner) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func waitForStatus(t *testing.T, svc *SyncService, jobID string, want SyncStatus) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		job, err := svc.GetSyncJob(jobID)
		require.NoError(t, err)
		if job.Status == want {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("job %s never reached %s (stuck at %s)", jobID, want, job.Status)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestStartSync_RunsToCompletion(t *testing.T) {
	runner := newStubRunner()
	svc := NewSyncService(runner, nil)

	jobID, err := svc.StartSync(context.Background(), SyncRequest{LookbackDays: 3})
	require.NoError(t, err)
	require.NotEmpty(t, jobID)

	waitForStatus(t, svc, jobID, StatusRunning)
	close(runner.release)
	waitForStatus(t, svc, jobID, StatusCompleted)

	job, err := svc.GetSyncJob(jobID)
	require.NoError(t, err)
	require.NotNil(t, job.Result)
	assert.Equal(t, 2, job.Result.OrdersProcessed)
	assert.NotNil(t, job.CompletedAt)
}

func TestStartSync_RejectsOverlappingRuns(t *testing.T) {
	runner := newStubRunner()
	svc := NewSyncService(runner, nil)

	jobID, err := svc.StartSync(context.Background(), SyncRequest{})
	require.NoError(t, err)
	waitForStatus(t, svc, jobID, StatusRunning)

	_, err = svc.StartSync(context.Background(), SyncRequest{})
	assert.ErrorIs(t, err, ErrSyncInProgress)

	close(runner.release)
	waitForStatus(t, svc, jobID, StatusCompleted)

	// The lock is released once the first job finishes
	second, err := svc.StartSync(context.Background(), SyncRequest{})
	require.NoError(t, err)
	waitForStatus(t, svc, second, StatusCompleted)
	assert.Equal(t, 2, runner.callCount())
}

func TestStartSync_FailureMarksJobFailed(t *testing.T) {
	runner := newStubRunner()
	runner.err = errors.New("identity check failed")
	runner.result = nil
	svc := NewSyncService(runner, nil)

	jobID, err := svc.StartSync(context.Background(), SyncRequest{})
	require.NoError(t, err)

	close(runner.release)
	waitForStatus(t, svc, jobID, StatusFailed)

	job, err := svc.GetSyncJob(jobID)
	require.NoError(t, err)
	require.Error(t, job.Error)
	assert.Contains(t, job.Error.Error(), "identity check failed")
}

func TestCancelSync(t *testing.T) {
	runner := newStubRunner()
	svc := NewSyncService(runner, nil)

	jobID, err := svc.StartSync(context.Background(), SyncRequest{})
	require.NoError(t, err)
	waitForStatus(t, svc, jobID, StatusRunning)

	require.NoError(t, svc.CancelSync(jobID))

	job, err := svc.GetSyncJob(jobID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, job.Status)

	// Cancelling a finished job is an error
	assert.Error(t, svc.CancelSync(jobID))
}

func TestGetSyncJob_Unknown(t *testing.T) {
	svc := NewSyncService(newStubRunner(), nil)
	_, err := svc.GetSyncJob("no-such-job")
	assert.Error(t, err)
}

func TestRunSyncNow(t *testing.T) {
	runner := newStubRunner()
	close(runner.release)
	svc := NewSyncService(runner, nil)

	result, err := svc.RunSyncNow(context.Background(), SyncRequest{LookbackDays: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, result.OrdersProcessed)

	// The lock is free again afterwards
	_, err = svc.RunSyncNow(context.Background(), SyncRequest{})
	assert.NoError(t, err)
}

func TestCleanupOldJobs(t *testing.T) {
	runner := newStubRunner()
	close(runner.release)
	svc := NewSyncService(runner, nil)

	jobID, err := svc.StartSync(context.Background(), SyncRequest{})
	require.NoError(t, err)
	waitForStatus(t, svc, jobID, StatusCompleted)

	// Too recent to remove
	assert.Zero(t, svc.CleanupOldJobs(time.Hour))
	// Old enough
	assert.Equal(t, 1, svc.CleanupOldJobs(0))
	assert.Empty(t, svc.ListSyncJobs())
}
