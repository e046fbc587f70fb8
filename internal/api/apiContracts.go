package api

import "time"

type JobExternalStatus string

const (
	JobStatusError JobExternalStatus = "Error"
)

type JobResponse struct {
	Id        string            `json:"id" example:"job_cz109"`
	Result    Result            `json:"result"`
	Error     *JobOutgoingError `json:"error,omitempty"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time,omitempty"`
}

type JobOutgoingError struct {
	Code    int    `json:"code" example:"400"`
	Message string `json:"message" example:"Job not found"`
	Retry   bool   `json:"can_retry" example:"false"`
}

type IngestResponse struct {
	ChunkCount    int      `json:"chunk_count" example:"12"`
	UpsertedCount int      `json:"upserted_count" example:"12"`
	Failures      []string `json:"failures,omitempty"`
	DocIDs        []string `json:"doc_ids,omitempty"`
	ReportPath    string   `json:"report_path,omitempty"`
}

type Result struct {
	Status string          `json:"status"`
	Step   string          `json:"step,omitempty"`
	Ingest *IngestResponse `json:"ingest,omitempty"`
}

type InitJobResponse struct {
	Id        string `json:"id"`
	StatusURL string `json:"status_url"`
}

// requests---------------------

type IngestRecord struct {
	PatientID  string `json:"patient_id,omitempty" example:"6789"`
	Type       string `json:"type,omitempty" example:"Vital Signs"`
	Text       string `json:"text" validate:"required"`
	SourceFile string `json:"source_file,omitempty" example:"6789_vitals.md"`
}

type IngestRecordsRequest struct {
	Records []IngestRecord `json:"records" validate:"required"`
}
