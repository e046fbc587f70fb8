package jobModel

import (
	"context"
	"time"

	"github.com/akolanti/MedIngest/internal/domain/commonModels"
)

type JobStatus string
type InternalStatus string

type JobType string

const (
	JobStatusQueued   JobStatus = "QUEUED"
	JobStatusRunning  JobStatus = "RUNNING"
	JobStatusComplete JobStatus = "COMPLETE"
	JobStatusPartial  JobStatus = "PARTIAL"
	JobStatusError    JobStatus = "Error"

	IngestInit      InternalStatus = "IngestInit"
	IngestLoading   InternalStatus = "IngestLoading"
	IngestUpserting InternalStatus = "IngestUpserting"
	RedisCall       InternalStatus = "Redis"
	Error           InternalStatus = "Error"

	Complete InternalStatus = "Complete"

	JobTypeIngestFiles   JobType = "IngestFiles"
	JobTypeIngestRecords JobType = "IngestRecords"
)

type Job struct {
	Id          string         `json:"id"`
	TraceId     string         `json:"trace_id"`
	JobType     JobType        `json:"job_type"`
	JobPayload  JobPayload     `json:"job_payload"`
	Error       JobError       `json:"error,omitempty"`
	CreatedTime time.Time      `json:"created_time"`
	EndTime     time.Time      `json:"end_time,omitempty"`
	Status      JobStatus      `json:"status"`
	CurrentStep InternalStatus `json:"current_step"`
}

type JobError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Retry   bool   `json:"retry"`
}

// UploadedFile is a multipart upload parked on disk until its job runs.
type UploadedFile struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

type JobPayload struct {
	Files     []UploadedFile                `json:"files,omitempty"`
	Records   []commonModels.SourceDocument `json:"records,omitempty"`
	PatientID string                        `json:"patient_id,omitempty"`
	DocType   string                        `json:"doc_type,omitempty"`

	ChunkCount    int      `json:"chunk_count"`
	UpsertedCount int      `json:"upserted_count"`
	Failures      []string `json:"failures,omitempty"`
	ReportPath    string   `json:"report_path,omitempty"`
}

type JobStore interface {
	GetJob(ctx context.Context, jobId string) (Job, bool)
	SaveJob(ctx context.Context, job Job) error
	DeleteJob(ctx context.Context, jobID string)
}

// ManifestStore keeps the doc ids each job upserted.
type ManifestStore interface {
	AppendDocIDs(ctx context.Context, jobId string, docIDs []string) error
	GetDocIDs(ctx context.Context, jobId string) ([]string, error)
}
