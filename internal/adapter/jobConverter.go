package adapter

import (
	"fmt"
	"time"

	"github.com/akolanti/MedIngest/internal/api"
	"github.com/akolanti/MedIngest/internal/domain/commonModels"
	"github.com/akolanti/MedIngest/internal/domain/jobModel"
)

func ToInitJobResponse(id string) api.InitJobResponse {
	return api.InitJobResponse{
		Id:        id,
		StatusURL: fmt.Sprintf("status/%s", id),
	}
}

// ToAPIResponse renders a job; docIDs is the manifest, nil when not loaded.
func ToAPIResponse(job jobModel.Job, docIDs []string) api.JobResponse {

	var errorPtr *api.JobOutgoingError
	if job.Error.Message != "" || job.Error.Code != 0 {
		errorPtr = &api.JobOutgoingError{
			Code:    job.Error.Code,
			Message: job.Error.Message,
			Retry:   job.Error.Retry,
		}
	}

	result := api.Result{
		Status: string(job.Status),
		Step:   string(job.CurrentStep),
		Ingest: ToIngestResponse(job.JobPayload, docIDs),
	}

	return api.JobResponse{
		Id:        job.Id,
		StartTime: job.CreatedTime,
		EndTime:   job.EndTime,
		Error:     errorPtr,
		Result:    result,
	}
}

func ToIngestResponse(payload jobModel.JobPayload, docIDs []string) *api.IngestResponse {
	if payload.ChunkCount == 0 && len(payload.Failures) == 0 && len(docIDs) == 0 {
		return nil
	}

	return &api.IngestResponse{
		ChunkCount:    payload.ChunkCount,
		UpsertedCount: payload.UpsertedCount,
		Failures:      payload.Failures,
		DocIDs:        docIDs,
		ReportPath:    payload.ReportPath,
	}
}

// ToSourceDocuments maps request records onto builder inputs. Records
// without a source file get a positional name so failures stay traceable.
func ToSourceDocuments(records []api.IngestRecord) []commonModels.SourceDocument {
	docs := make([]commonModels.SourceDocument, 0, len(records))
	for i, r := range records {
		name := r.SourceFile
		if name == "" {
			name = fmt.Sprintf("record_%d", i)
		}
		docs = append(docs, commonModels.SourceDocument{
			Name:      name,
			Text:      r.Text,
			PatientID: r.PatientID,
			DocType:   r.Type,
		})
	}
	return docs
}

func BadRequest(id string, error string, code int) api.JobResponse {
	return api.JobResponse{
		Id:        id,
		StartTime: time.Time{},
		EndTime:   time.Time{},
		Result: api.Result{
			Status: string(api.JobStatusError),
		},
		Error: &api.JobOutgoingError{
			Code:    code,
			Message: error,
			Retry:   false,
		},
	}
}
