package rag

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/akolanti/MedIngest/internal/domain/commonModels"
	"github.com/akolanti/MedIngest/internal/domain/jobModel"
	"github.com/akolanti/MedIngest/internal/metrics"
	"github.com/akolanti/MedIngest/internal/rag/ingest"
	"github.com/akolanti/MedIngest/internal/report"
	"github.com/akolanti/MedIngest/pkg/logger_i"
)

// Service is the only thing the worker calls; it hides the pipeline and
// its clients so tests can swap them out.
type Service interface {
	// IngestDocuments runs the job and returns it updated, plus the doc ids
	// that reached the index.
	IngestDocuments(ctx context.Context, job jobModel.Job) (jobModel.Job, []string)
}

type service struct {
	pipeline  *ingest.Pipeline
	reportDir string
	clock     func() time.Time
	logger    *logger_i.Logger
}

// NewService wires a pipeline; an empty reportDir disables review reports.
func NewService(pipeline *ingest.Pipeline, reportDir string) Service {
	return &service{
		pipeline:  pipeline,
		reportDir: reportDir,
		clock:     time.Now,
		logger:    logger_i.NewLogger("Ingest Service"),
	}
}

func (s *service) IngestDocuments(ctx context.Context, jobt jobModel.Job) (jobModel.Job, []string) {
	log := s.logger.WithTrace(ctx).With("JobId", jobt.Id)
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("document_ingestion", time.Since(start)) }()

	jobt = logOutput(jobt, jobModel.IngestLoading, log)
	docs, loadFailures := loadDocuments(jobt, log)
	for _, f := range loadFailures {
		jobt.JobPayload.Failures = append(jobt.JobPayload.Failures, f.String())
	}
	if len(docs) == 0 {
		return s.jobError(jobt, errors.New("no readable documents"), "NO_DOCUMENTS", false), nil
	}

	jobt = logOutput(jobt, jobModel.IngestUpserting, log)
	result, err := s.pipeline.Run(ctx, docs)
	if err != nil {
		return s.jobError(jobt, err, "INDEX_FAILURE", true), nil
	}

	for _, f := range result.Failures {
		jobt.JobPayload.Failures = append(jobt.JobPayload.Failures, f.String())
	}
	jobt.JobPayload.ChunkCount = len(result.Chunks)
	jobt.JobPayload.UpsertedCount = len(result.Upserted)

	if s.reportDir != "" && len(result.Chunks) > 0 {
		path, err := report.WriteToDir(s.reportDir, result.Chunks, s.clock())
		if err != nil {
			log.Error("Error writing review report", "error", err)
		} else {
			jobt.JobPayload.ReportPath = path
		}
	}

	return finishJob(jobt), result.Upserted
}

// loadDocuments reads uploaded files, removing them once read, and applies
// the job-wide identity overrides.
func loadDocuments(job jobModel.Job, log *logger_i.Logger) ([]commonModels.SourceDocument, []ingest.DocumentFailure) {
	var docs []commonModels.SourceDocument
	var failures []ingest.DocumentFailure

	for _, f := range job.JobPayload.Files {
		doc, err := ingest.ReadDocument(f.Path)
		if rmErr := os.Remove(f.Path); rmErr != nil {
			log.Error("Error removing file", "path", f.Path, "error", rmErr)
		}
		if err != nil {
			failures = append(failures, ingest.DocumentFailure{Source: f.Name, Stage: "read", Err: err})
			continue
		}
		// keep the client's file name, not the temp path
		doc.Name = f.Name
		docs = append(docs, doc)
	}
	docs = append(docs, job.JobPayload.Records...)

	for i := range docs {
		if docs[i].PatientID == "" {
			docs[i].PatientID = job.JobPayload.PatientID
		}
		if docs[i].DocType == "" {
			docs[i].DocType = job.JobPayload.DocType
		}
	}
	return docs, failures
}
