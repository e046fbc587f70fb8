package handlers

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"

	"github.com/akolanti/MedIngest/internal/adapter"
	"github.com/akolanti/MedIngest/internal/adapter/utils"
	"github.com/akolanti/MedIngest/internal/config"
	"github.com/akolanti/MedIngest/internal/domain/jobModel"
)

func writeJsonResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// headers are already out, so only log
		logRH.Error("Error encoding response", "error", err)
	}
}

func validateId(r *http.Request, id string) (result jobModel.Job, isFound bool) {
	if id == "" {
		logRH.WithTrace(r.Context()).Warn("Empty Job ID")
		return jobModel.Job{}, false
	}
	return GetJobStatus(r.Context(), id)
}

func validateContext(r *http.Request) bool {
	if err := r.Context().Err(); err != nil {
		logRH.WithTrace(r.Context()).Warn("context error", "error", err, "remote", r.RemoteAddr)
		return false
	}
	return true
}

func WriteErrorResponse(w http.ResponseWriter, httpCode int, id string, error string) {
	writeJsonResponse(w, httpCode, adapter.BadRequest(id, error, httpCode))
}

// getTargetDirectory resolves dir, defaulting to temporary_data under the
// working directory, and makes sure it exists.
func getTargetDirectory(dir string) (string, string) {
	if dir == "" {
		root, err := os.Getwd()
		if err != nil {
			return "", "Storage Error"
		}
		dir = filepath.Join(root, config.UploadDirName)
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", "Storage Error"
	}
	return dir, ""
}

func queueJob(w http.ResponseWriter, r *http.Request, data newJobData) {
	data.id = utils.GetNewUUID()
	if err := CreateNewJob(r.Context(), data); err != nil {
		WriteErrorResponse(w, http.StatusServiceUnavailable, data.id, "job queue unavailable")
		return
	}
	writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(data.id))
}
