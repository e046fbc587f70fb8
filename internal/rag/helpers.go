package rag

import (
	"net/http"

	"github.com/akolanti/MedIngest/internal/domain/jobModel"
	"github.com/akolanti/MedIngest/pkg/logger_i"
)

func logOutput(job jobModel.Job, status jobModel.InternalStatus, log *logger_i.Logger) jobModel.Job {
	job.CurrentStep = status
	log.Debug("IngestDocuments", "Current Status", job.CurrentStep)
	return job
}

// finishJob maps the outcome onto a status: everything in, some in, or
// nothing in.
func finishJob(job jobModel.Job) jobModel.Job {
	job.CurrentStep = jobModel.Complete
	switch {
	case len(job.JobPayload.Failures) == 0:
		job.Status = jobModel.JobStatusComplete
	case job.JobPayload.UpsertedCount > 0:
		job.Status = jobModel.JobStatusPartial
	default:
		job.Status = jobModel.JobStatusError
		job.CurrentStep = jobModel.Error
		job.Error = jobModel.JobError{
			Code:    http.StatusUnprocessableEntity,
			Message: "No document could be ingested",
			Retry:   false,
		}
	}
	return job
}

func (s *service) jobError(job jobModel.Job, err error, message string, canRetry bool) jobModel.Job {
	s.logger.Error(message, "error", err, "JobId", job.Id)

	job.Error = jobModel.JobError{
		Code:    http.StatusInternalServerError,
		Message: message,
		Retry:   canRetry,
	}
	job.Status = jobModel.JobStatusError
	job.CurrentStep = jobModel.Error
	return job
}
