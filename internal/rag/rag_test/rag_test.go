package rag_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/akolanti/MedIngest/internal/domain/commonModels"
	"github.com/akolanti/MedIngest/internal/domain/jobModel"
	"github.com/akolanti/MedIngest/internal/rag"
	"github.com/akolanti/MedIngest/internal/rag/chunker"
	"github.com/akolanti/MedIngest/internal/rag/ingest"
	"github.com/akolanti/MedIngest/internal/rag/tokenizer"
)

var wordTokenizer = tokenizer.Func(func(s string) (int, error) {
	return len(strings.Fields(s)), nil
})

func newService(t *testing.T, v *MockVectorDB, e *MockEmbedder, reportDir string) rag.Service {
	t.Helper()
	b, err := chunker.NewBuilder(wordTokenizer, chunker.Options{ChunkSize: 50, ChunkOverlap: 5})
	if err != nil {
		t.Fatalf("NewBuilder() error = %v", err)
	}
	p, err := ingest.NewPipeline(b, e, v, ingest.Settings{IndexName: "client-documents", BatchSize: 10, Workers: 2})
	if err != nil {
		t.Fatalf("NewPipeline() error = %v", err)
	}
	return rag.NewService(p, reportDir)
}

func recordsJob(records ...commonModels.SourceDocument) jobModel.Job {
	return jobModel.Job{
		Id:         "job-1",
		JobType:    jobModel.JobTypeIngestRecords,
		Status:     jobModel.JobStatusRunning,
		JobPayload: jobModel.JobPayload{Records: records},
	}
}

func TestIngestDocuments_Scenarios(t *testing.T) {
	vitals := commonModels.SourceDocument{Name: "6789_vitals.md", Text: "BP 145/92 mmHg"}
	labs := commonModels.SourceDocument{Name: "1111_lab.md", Text: "Troponin elevated"}

	tests := []struct {
		name           string
		setupMocks     func(e *MockEmbedder, v *MockVectorDB)
		job            jobModel.Job
		expectedStatus jobModel.JobStatus
		expectedIDs    int
		expectedErr    string
	}{
		{
			name:           "Success_All_Records",
			setupMocks:     func(e *MockEmbedder, v *MockVectorDB) {},
			job:            recordsJob(vitals, labs),
			expectedStatus: jobModel.JobStatusComplete,
			expectedIDs:    2,
		},
		{
			name: "Failure_Index",
			setupMocks: func(e *MockEmbedder, v *MockVectorDB) {
				v.OnEnsureIndex = func(ctx context.Context, name string, dim int) error {
					return errors.New("qdrant down")
				}
			},
			job:            recordsJob(vitals),
			expectedStatus: jobModel.JobStatusError,
			expectedErr:    "INDEX_FAILURE",
		},
		{
			name: "Partial_One_Namespace_Rejected",
			setupMocks: func(e *MockEmbedder, v *MockVectorDB) {
				v.OnUpsert = func(ctx context.Context, index, ns string, c []commonModels.DocumentChunk, vec [][]float32) error {
					if ns == "1111" {
						return errors.New("rejected")
					}
					return nil
				}
			},
			job:            recordsJob(vitals, labs),
			expectedStatus: jobModel.JobStatusPartial,
			expectedIDs:    1,
		},
		{
			name: "Failure_Embedding_Everywhere",
			setupMocks: func(e *MockEmbedder, v *MockVectorDB) {
				e.OnBatchEmbedding = func(ctx context.Context, texts []string) ([][]float32, error) {
					return nil, errors.New("api limit")
				}
			},
			job:            recordsJob(vitals),
			expectedStatus: jobModel.JobStatusError,
			expectedErr:    "No document could be ingested",
		},
		{
			name:           "Failure_No_Documents",
			setupMocks:     func(e *MockEmbedder, v *MockVectorDB) {},
			job:            recordsJob(),
			expectedStatus: jobModel.JobStatusError,
			expectedErr:    "NO_DOCUMENTS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, v := &MockEmbedder{}, &MockVectorDB{}
			tt.setupMocks(e, v)
			svc := newService(t, v, e, "")

			got, ids := svc.IngestDocuments(context.Background(), tt.job)

			if got.Status != tt.expectedStatus {
				t.Errorf("status = %s, want %s (failures %v)", got.Status, tt.expectedStatus, got.JobPayload.Failures)
			}
			if len(ids) != tt.expectedIDs {
				t.Errorf("ids = %v, want %d", ids, tt.expectedIDs)
			}
			if tt.expectedErr != "" && got.Error.Message != tt.expectedErr {
				t.Errorf("error message = %q, want %q", got.Error.Message, tt.expectedErr)
			}
			if got.JobPayload.UpsertedCount != len(ids) {
				t.Errorf("UpsertedCount = %d, ids = %d", got.JobPayload.UpsertedCount, len(ids))
			}
		})
	}
}

func TestIngestDocuments_UploadedFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "upload-123.md")
	if err := os.WriteFile(path, []byte("# Intake\nPatient: John Smith"), 0o644); err != nil {
		t.Fatal(err)
	}
	reportDir := filepath.Join(dir, "reports")

	var namespaces []string
	v := &MockVectorDB{OnUpsert: func(ctx context.Context, index, ns string, c []commonModels.DocumentChunk, vec [][]float32) error {
		namespaces = append(namespaces, ns)
		if c[0].Title != "Intake" || c[0].SourceFile != "intake.md" {
			t.Errorf("chunk = %+v", c[0])
		}
		return nil
	}}
	svc := newService(t, v, &MockEmbedder{}, reportDir)

	job := jobModel.Job{
		Id: "job-2",
		JobPayload: jobModel.JobPayload{
			Files:     []jobModel.UploadedFile{{Name: "intake.md", Path: path}},
			PatientID: "6789",
		},
	}
	got, ids := svc.IngestDocuments(context.Background(), job)

	if got.Status != jobModel.JobStatusComplete {
		t.Fatalf("status = %s, failures %v", got.Status, got.JobPayload.Failures)
	}
	if len(ids) != 1 || ids[0] != "6789_PATIENT_INFORMATION_0" {
		t.Errorf("ids = %v", ids)
	}
	if len(namespaces) != 1 || namespaces[0] != "6789" {
		t.Errorf("namespaces = %v", namespaces)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("uploaded file was not removed")
	}
	if got.JobPayload.ReportPath == "" {
		t.Fatal("no report written")
	}
	if _, err := os.Stat(got.JobPayload.ReportPath); err != nil {
		t.Errorf("report missing: %v", err)
	}
}

func TestIngestDocuments_UnreadableFile(t *testing.T) {
	svc := newService(t, &MockVectorDB{}, &MockEmbedder{}, "")
	job := recordsJob(commonModels.SourceDocument{Name: "6789_vitals.md", Text: "BP 120/80"})
	job.JobPayload.Files = []jobModel.UploadedFile{{Name: "scan.png", Path: filepath.Join(t.TempDir(), "scan.png")}}

	got, ids := svc.IngestDocuments(context.Background(), job)
	if got.Status != jobModel.JobStatusPartial || len(ids) != 1 {
		t.Errorf("status = %s, ids = %v", got.Status, ids)
	}
	if len(got.JobPayload.Failures) != 1 || !strings.Contains(got.JobPayload.Failures[0], "scan.png") {
		t.Errorf("failures = %v", got.JobPayload.Failures)
	}
}
