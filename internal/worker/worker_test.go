package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/akolanti/MedIngest/internal/domain/jobModel"
	"github.com/akolanti/MedIngest/internal/job"
	"github.com/akolanti/MedIngest/pkg/logger_i"
)

type MockRagService struct {
	ProcessedCount int32
	OnIngest       func(ctx context.Context, j jobModel.Job) (jobModel.Job, []string)
}

func (m *MockRagService) IngestDocuments(ctx context.Context, j jobModel.Job) (jobModel.Job, []string) {
	atomic.AddInt32(&m.ProcessedCount, 1)
	if m.OnIngest != nil {
		return m.OnIngest(ctx, j)
	}
	j.Status = jobModel.JobStatusComplete
	return j, nil
}

type MockJobStore struct {
	OnSaveJob func(ctx context.Context, job jobModel.Job) error
}

func (m *MockJobStore) GetJob(ctx context.Context, jobId string) (jobModel.Job, bool) {
	return jobModel.Job{}, false
}

func (m *MockJobStore) DeleteJob(ctx context.Context, jobID string) {}

func (m *MockJobStore) SaveJob(ctx context.Context, j jobModel.Job) error {
	if m.OnSaveJob != nil {
		return m.OnSaveJob(ctx, j)
	}
	return nil
}

type MockManifestStore struct {
	mu     sync.Mutex
	saved  map[string][]string
	OnSave func(jobId string, ids []string) error
}

func (m *MockManifestStore) AppendDocIDs(ctx context.Context, jobId string, docIDs []string) error {
	if m.OnSave != nil {
		if err := m.OnSave(jobId, docIDs); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved == nil {
		m.saved = make(map[string][]string)
	}
	m.saved[jobId] = append(m.saved[jobId], docIDs...)
	return nil
}

func (m *MockManifestStore) GetDocIDs(ctx context.Context, jobId string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saved[jobId], nil
}

func resetPool(t *testing.T) {
	t.Helper()
	atomic.StoreInt64(&currentWorkerCount, 0)
	prevMin, prevIdle := atomic.LoadInt64(&minWorkerCount), idleTimeout
	t.Cleanup(func() {
		atomic.StoreInt64(&minWorkerCount, prevMin)
		idleTimeout = prevIdle
	})
}

func waitForStatus(t *testing.T, statuses <-chan jobModel.Job, want jobModel.JobStatus) jobModel.Job {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case j := <-statuses:
			if j.Status == want {
				return j
			}
		case <-deadline:
			t.Fatalf("job never reached %s", want)
			return jobModel.Job{}
		}
	}
}

func TestWorkerPool_Flow(t *testing.T) {
	resetPool(t)
	saved := make(chan jobModel.Job, 20)
	manifests := &MockManifestStore{}
	jobSvc := &job.Service{
		JobChannel:        make(chan jobModel.Job, 10),
		DispatcherChannel: make(chan bool, 10),
		JobStore: &MockJobStore{OnSaveJob: func(ctx context.Context, j jobModel.Job) error {
			saved <- j
			return nil
		}},
		ManifestStore: manifests,
	}
	mockRag := &MockRagService{OnIngest: func(ctx context.Context, j jobModel.Job) (jobModel.Job, []string) {
		if trace := logger_i.TraceID(ctx); trace != "trace-1" {
			t.Errorf("trace id not carried into the job context: %q", trace)
		}
		if _, ok := ctx.Deadline(); !ok {
			t.Error("job context has no deadline")
		}
		j.Status = jobModel.JobStatusComplete
		j.JobPayload.UpsertedCount = 2
		return j, []string{"6789_VITAL_SIGNS_0", "6789_LAB_RESULTS_0"}
	}}
	stopChan := make(chan bool)
	wg := &sync.WaitGroup{}

	InitServices(jobSvc, mockRag)
	InitWorkerPool(stopChan, wg)

	t.Run("Pool starts with one worker", func(t *testing.T) {
		if count := atomic.LoadInt64(&currentWorkerCount); count != 1 {
			t.Errorf("Expected 1 worker, got %d", count)
		}
	})

	t.Run("Dispatcher creates worker on signal", func(t *testing.T) {
		jobSvc.DispatcherChannel <- true

		deadline := time.Now().Add(time.Second)
		for atomic.LoadInt64(&currentWorkerCount) < 2 && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}
		if count := atomic.LoadInt64(&currentWorkerCount); count != 2 {
			t.Errorf("Expected 2 workers, got %d", count)
		}
	})

	t.Run("Worker processes a job", func(t *testing.T) {
		jobSvc.JobChannel <- jobModel.Job{Id: "test-1", TraceId: "trace-1", Status: jobModel.JobStatusQueued}

		waitForStatus(t, saved, jobModel.JobStatusRunning)
		final := waitForStatus(t, saved, jobModel.JobStatusComplete)

		if final.EndTime.IsZero() {
			t.Error("final state has no end time")
		}
		if processed := atomic.LoadInt32(&mockRag.ProcessedCount); processed != 1 {
			t.Errorf("Expected 1 job processed, got %d", processed)
		}
		ids, _ := manifests.GetDocIDs(context.Background(), "test-1")
		if len(ids) != 2 {
			t.Errorf("manifest = %v", ids)
		}
	})

	t.Run("Stop signal retires workers", func(t *testing.T) {
		close(stopChan)

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("Workers did not stop within timeout")
		}
		if count := atomic.LoadInt64(&currentWorkerCount); count != 0 {
			t.Errorf("worker count after stop = %d", count)
		}
	})
}

func TestWorker_ManifestFailureKeepsJobState(t *testing.T) {
	resetPool(t)
	saved := make(chan jobModel.Job, 10)
	jobSvc := &job.Service{
		JobChannel: make(chan jobModel.Job, 1),
		JobStore: &MockJobStore{OnSaveJob: func(ctx context.Context, j jobModel.Job) error {
			saved <- j
			return nil
		}},
		ManifestStore: &MockManifestStore{OnSave: func(string, []string) error {
			return errors.New("redis down")
		}},
	}
	InitServices(jobSvc, &MockRagService{OnIngest: func(ctx context.Context, j jobModel.Job) (jobModel.Job, []string) {
		j.Status = jobModel.JobStatusPartial
		return j, []string{"1_LAB_RESULTS_0"}
	}})

	executeJob(jobModel.Job{Id: "job-2"})

	waitForStatus(t, saved, jobModel.JobStatusRunning)
	waitForStatus(t, saved, jobModel.JobStatusPartial)
}

func TestWorker_IdleTimeout(t *testing.T) {
	resetPool(t)
	atomic.StoreInt64(&minWorkerCount, 1)
	idleTimeout = 20 * time.Millisecond

	jobSvc := &job.Service{
		JobChannel: make(chan jobModel.Job),
	}
	InitServices(jobSvc, &MockRagService{})

	wg := &sync.WaitGroup{}
	stopChan := make(chan bool)
	workerWaitGroup = wg
	stopWorkerChannel = stopChan

	createWorker()
	createWorker()
	createWorker()

	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt64(&currentWorkerCount) > 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	// let any further idle ticks pass; the last worker must stay
	time.Sleep(100 * time.Millisecond)
	if count := atomic.LoadInt64(&currentWorkerCount); count != 1 {
		t.Errorf("Expected idle workers to shrink the pool to 1, got %d", count)
	}

	close(stopChan)
	wg.Wait()
	if count := atomic.LoadInt64(&currentWorkerCount); count != 0 {
		t.Errorf("worker count after stop = %d", count)
	}
}
