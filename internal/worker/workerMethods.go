package worker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/akolanti/MedIngest/internal/config"
	jobmodel "github.com/akolanti/MedIngest/internal/domain/jobModel"
	"github.com/akolanti/MedIngest/internal/metrics"
	"github.com/akolanti/MedIngest/pkg/logger_i"
)

func executeJob(job jobmodel.Job) {
	start := time.Now()
	defer func() {
		metrics.CaptureJobMetrics(string(job.Status), time.Since(start))
	}()
	ctxTrace := context.WithValue(context.Background(), config.TRACE_ID_KEY, job.TraceId)
	ctx, cancel := context.WithTimeout(ctxTrace, jobTimeout)
	defer cancel()
	log := logger.WithTrace(ctx).With("jobId", job.Id)
	log.Debug("Processing job", "type", job.JobType)

	job.Status = jobmodel.JobStatusRunning
	saveJobState(ctx, job, log)

	job = ingestDocuments(ctx, job, log)

	job.EndTime = time.Now()
	// the job may have used up its own deadline, the final state must still land
	saveCtx, saveCancel := context.WithTimeout(context.WithoutCancel(ctx), config.ShutdownContextTimeout)
	defer saveCancel()
	saveJobState(saveCtx, job, log)
	log.Info("Job finished", "status", job.Status, "upserted", job.JobPayload.UpsertedCount)
}

// removeWorker releases a worker whose slot has already been given back.
func removeWorker(reason string) {
	workerWaitGroup.Done()
	logger.Info("Removed worker", "reason", reason, "workerCount", atomic.LoadInt64(&currentWorkerCount))
	metrics.DecrementActiveWorkerCount()
}

func ingestDocuments(ctx context.Context, job jobmodel.Job, log *logger_i.Logger) jobmodel.Job {
	job, docIDs := _ragService.IngestDocuments(ctx, job)
	if len(docIDs) == 0 || _jobService.ManifestStore == nil {
		return job
	}
	manifestCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), config.ShutdownContextTimeout)
	defer cancel()
	if err := _jobService.ManifestStore.AppendDocIDs(manifestCtx, job.Id, docIDs); err != nil {
		log.Error("Failed to save manifest", "err", err, "docCount", len(docIDs))
	}
	return job
}

func saveJobState(ctx context.Context, job jobmodel.Job, log *logger_i.Logger) {
	if err := _jobService.JobStore.SaveJob(ctx, job); err != nil {
		log.Error("Failed to save job state", "err", err, "status", job.Status)
	}
}
