package handlers

import (
	"context"
	"os"
	"sync/atomic"
	"time"

	"github.com/akolanti/MedIngest/internal/config"
	"github.com/akolanti/MedIngest/internal/domain/jobModel"
	"github.com/akolanti/MedIngest/internal/job"
	"github.com/akolanti/MedIngest/internal/metrics"
	"github.com/akolanti/MedIngest/pkg/logger_i"
)

var (
	handlerInstance *JobHandler
	logJH           = logger_i.NewLogger("JobHandler")
)

type JobHandler struct {
	service *job.Service
}

// InitJobHandler points every handler at jobService. Calling it again
// replaces the previous service.
func InitJobHandler(jobService *job.Service) {
	handlerInstance = &JobHandler{service: jobService}
	logJH.Info("Starting job handler")
}

// CreateNewJob queues a job. It gives up when ctx is done before the queue
// has room, dropping the job record and its parked uploads.
func CreateNewJob(ctx context.Context, newJob newJobData) error {
	log := logJH.WithTrace(ctx).With("jobId", newJob.id)
	log.Info("To create new job", "type", newJob.jobType)
	return handlerInstance.pushToJobChannel(ctx, newJob, log)
}

func GetJobStatus(ctx context.Context, id string) (result jobModel.Job, isFound bool) {
	if handlerInstance != nil {
		return handlerInstance.service.JobStore.GetJob(ctx, id)
	}
	return result, false
}

// GetJobManifest returns the doc ids upserted so far for a job.
func GetJobManifest(ctx context.Context, id string) []string {
	if handlerInstance == nil || handlerInstance.service.ManifestStore == nil {
		return nil
	}
	ids, err := handlerInstance.service.ManifestStore.GetDocIDs(ctx, id)
	if err != nil {
		logJH.WithTrace(ctx).Error("Error reading manifest", "jobId", id, "error", err)
		return nil
	}
	return ids
}

func uploadDir() string {
	if handlerInstance == nil {
		return ""
	}
	return handlerInstance.service.UploadDir
}

func (h *JobHandler) pushToJobChannel(ctx context.Context, newJob newJobData, log *logger_i.Logger) error {
	_job := jobModel.Job{
		Id:          newJob.id,
		TraceId:     logger_i.TraceID(ctx),
		JobType:     newJob.jobType,
		CreatedTime: time.Now(),
		Status:      jobModel.JobStatusQueued,
		CurrentStep: jobModel.IngestInit,
		JobPayload: jobModel.JobPayload{
			Files:     newJob.files,
			Records:   newJob.records,
			PatientID: newJob.patientID,
			DocType:   newJob.docType,
		},
	}

	// queued jobs are visible to /status before a worker picks them up
	if err := h.service.JobStore.SaveJob(ctx, _job); err != nil {
		log.Error("Error saving queued job", "error", err)
	}

	metrics.IncrementJobsInQueue()

	//blocking send keeps the queue bounded
	select {
	case h.service.JobChannel <- _job:
	case <-ctx.Done():
		metrics.DecrementJobsInQueue()
		h.abandonJob(context.WithoutCancel(ctx), _job, log)
		return ctx.Err()
	}
	log.Info("Created new job")

	// a large upload gets its own worker, otherwise grow the pool every few requests
	accurateCount := atomic.AddInt64(&h.service.RequestCount, 1)
	if accurateCount%config.RequestsPerNewWorkerCount == 0 || len(_job.JobPayload.Files) > 1 {
		select {
		case h.service.DispatcherChannel <- true:
			metrics.StartDispatcherSignalCount()
			log.Debug("Requested new worker", "requestCount", accurateCount)
		default:
			log.Debug("Dispatcher busy, skipping worker request")
		}
	}
	return nil
}

func (h *JobHandler) abandonJob(ctx context.Context, _job jobModel.Job, log *logger_i.Logger) {
	log.Warn("Request gone before the job was queued", "files", len(_job.JobPayload.Files))
	h.service.JobStore.DeleteJob(ctx, _job.Id)
	for _, f := range _job.JobPayload.Files {
		if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
			log.Error("Error removing parked upload", "path", f.Path, "error", err)
		}
	}
}
