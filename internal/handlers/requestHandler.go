package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/akolanti/MedIngest/internal/adapter"
	"github.com/akolanti/MedIngest/internal/adapter/utils"
	"github.com/akolanti/MedIngest/internal/api"
	"github.com/akolanti/MedIngest/internal/config"
	"github.com/akolanti/MedIngest/internal/domain/commonModels"
	"github.com/akolanti/MedIngest/internal/domain/jobModel"
	"github.com/akolanti/MedIngest/internal/rag/ingest"
	"github.com/akolanti/MedIngest/pkg/logger_i"
)

var logRH = logger_i.NewLogger("RequestHandler")

type newJobData struct {
	id        string
	jobType   jobModel.JobType
	files     []jobModel.UploadedFile
	records   []commonModels.SourceDocument
	patientID string
	docType   string
}

// GetHandler godoc
// @Summary      Health check
// @Tags         Health
// @Success      200
// @Router       /health [get]
func GetHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// GetStatusHandler godoc
// @Summary      Get job status
// @Description  Retrieves the status of an ingest job, its counts, failures and the doc ids upserted so far.
// @Tags         Job Status
// @Produce      json
// @Param        id   path      string  true  "Job ID"
// @Success      200  {object}  api.JobResponse  "The current status of the job"
// @Failure      404  {object}  api.JobResponse  "Job not found"
// @Router       /status/{id} [get]
func GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r) {
		return
	}
	idString := utils.GetChiURLParam(r, "id")
	result, isFound := validateId(r, idString)

	logRH.WithTrace(r.Context()).Debug("Get Status Request", "URL path", r.URL.Path)
	if !isFound {
		WriteErrorResponse(w, http.StatusNotFound, idString, "Job not found")
		return
	}

	writeJsonResponse(w, http.StatusOK, adapter.ToAPIResponse(result, GetJobManifest(r.Context(), idString)))
}

// PostIngestHandler godoc
// @Summary      Upload documents for ingestion
// @Description  Receives one or more files via multipart/form-data, parks them on disk and queues an ingest job.
// @Tags         Ingestion
// @Accept       multipart/form-data
// @Produce      json
// @Param        document    formData  file    true   "Markdown, text, PDF or DOCX file (repeatable)"
// @Param        patient_id  formData  string  false  "Overrides the patient id inferred from file names"
// @Param        doc_type    formData  string  false  "Overrides the document type inferred from file names"
// @Success      202  {object}  api.InitJobResponse  "Job queued"
// @Failure      400  {object}  api.JobResponse      "Missing or unsupported file"
// @Failure      500  {object}  api.JobResponse      "Storage error"
// @Failure      503  {object}  api.JobResponse      "Queue full and the client went away"
// @Router       /ingest [post]
func PostIngestHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r) {
		return
	}
	log := logRH.WithTrace(r.Context())

	targetDir, errString := getTargetDirectory(uploadDir())
	if errString != "" {
		log.Error("Couldn't get target directory", "err", errString)
		WriteErrorResponse(w, http.StatusInternalServerError, "", errString)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, config.MaxUploadSize)
	if err := r.ParseMultipartForm(config.MaxUploadSize); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", "File too large or bad request")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File["document"]
	if len(headers) == 0 {
		WriteErrorResponse(w, http.StatusBadRequest, "", "document is required")
		return
	}
	for _, h := range headers {
		if !ingest.IsSupported(h.Filename) {
			WriteErrorResponse(w, http.StatusBadRequest, h.Filename, "Unsupported file type")
			return
		}
	}

	files := make([]jobModel.UploadedFile, 0, len(headers))
	for _, h := range headers {
		uploaded, err := saveUpload(targetDir, h)
		if err != nil {
			log.Error("Error saving upload", "file", h.Filename, "error", err)
			removeUploads(files)
			WriteErrorResponse(w, http.StatusInternalServerError, h.Filename, "Storage error")
			return
		}
		files = append(files, uploaded)
	}

	queueJob(w, r, newJobData{
		jobType:   jobModel.JobTypeIngestFiles,
		files:     files,
		patientID: strings.TrimSpace(r.FormValue("patient_id")),
		docType:   strings.TrimSpace(r.FormValue("doc_type")),
	})
}

// PostIngestRecordsHandler godoc
// @Summary      Ingest JSON records
// @Description  Queues an ingest job for records that already carry text, such as the output of another system.
// @Tags         Ingestion
// @Accept       json
// @Produce      json
// @Param        request  body      api.IngestRecordsRequest  true  "Records to chunk and upsert"
// @Success      202      {object}  api.InitJobResponse       "Job queued"
// @Failure      400      {object}  api.JobResponse           "Invalid request body"
// @Failure      503      {object}  api.JobResponse           "Queue full and the client went away"
// @Router       /ingest/records [post]
func PostIngestRecordsHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r) {
		return
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			logRH.Error("Couldn't close the records reader", "error", err)
		}
	}(r.Body)

	var requestData api.IngestRecordsRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, config.MaxUploadSize)).Decode(&requestData); err != nil {
		logRH.WithTrace(r.Context()).Warn("Bad records request", "error", err)
		WriteErrorResponse(w, http.StatusBadRequest, "", "Bad Request")
		return
	}
	if len(requestData.Records) == 0 {
		WriteErrorResponse(w, http.StatusBadRequest, "", "records is required")
		return
	}
	for i, rec := range requestData.Records {
		if strings.TrimSpace(rec.Text) == "" {
			WriteErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("record_%d", i), "record text is required")
			return
		}
	}

	queueJob(w, r, newJobData{
		jobType: jobModel.JobTypeIngestRecords,
		records: adapter.ToSourceDocuments(requestData.Records),
	})
}

func saveUpload(targetDir string, header *multipart.FileHeader) (jobModel.UploadedFile, error) {
	name := filepath.Base(header.Filename)
	src, err := header.Open()
	if err != nil {
		return jobModel.UploadedFile{}, err
	}
	defer src.Close()

	tempFilePath := filepath.Join(targetDir, fmt.Sprintf("%d-%s", time.Now().UnixNano(), name))
	dst, err := os.Create(tempFilePath)
	if err != nil {
		return jobModel.UploadedFile{}, err
	}
	if _, err = io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(tempFilePath)
		return jobModel.UploadedFile{}, err
	}
	if err = dst.Close(); err != nil {
		_ = os.Remove(tempFilePath)
		return jobModel.UploadedFile{}, err
	}
	return jobModel.UploadedFile{Name: name, Path: tempFilePath}, nil
}

func removeUploads(files []jobModel.UploadedFile) {
	for _, f := range files {
		_ = os.Remove(f.Path)
	}
}
