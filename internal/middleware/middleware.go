package middleware

import (
	"net/http"
	"strconv"

	"github.com/akolanti/MedIngest/internal/handlers"
	"github.com/akolanti/MedIngest/internal/metrics"
	"github.com/akolanti/MedIngest/pkg/logger_i"
)

type requestResponseStruct struct {
	writer     http.ResponseWriter
	req        *http.Request
	badRequest failureStruct
	logger     *logger_i.Logger
}

type failureStruct struct {
	isBadRequest bool
	httpCode     int
	errorMessage string
}

// authSettings is set once at startup by Configure.
var authSettings struct {
	token  string
	bypass bool
}

// Configure sets the bearer token every wrapped route expects. bypass
// turns authentication off entirely.
func Configure(authToken string, bypass bool) {
	authSettings.token = authToken
	authSettings.bypass = bypass
}

var GetHandler = Wrap(handlers.GetHandler)
var GetStatusHandler = Wrap(handlers.GetStatusHandler)
var PostIngestHandler = Wrap(handlers.PostIngestHandler)
var PostIngestRecordsHandler = Wrap(handlers.PostIngestRecordsHandler)

func Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &metrics.HttpStatusRecorder{ResponseWriter: w, Status: http.StatusOK}
		re := processRequest(requestResponseStruct{req: r, writer: rec})

		if !handleBadRequest(re) {
			metrics.HttpRequestsTotal.WithLabelValues(r.URL.Path, strconv.Itoa(rec.Status)).Inc()
			return
		}
		next(rec, re.req)

		metrics.HttpRequestsTotal.WithLabelValues(r.URL.Path, strconv.Itoa(rec.Status)).Inc()
	}
}

// processRequest runs the checks in order and stops at the first failure.
// The failure is written by the caller.
func processRequest(re requestResponseStruct) requestResponseStruct {
	re.logger = logger_i.NewLogger("middleware")
	re.logger.Debug("New request received", "path", re.req.URL.Path)

	for _, step := range []func(requestResponseStruct) requestResponseStruct{injectTrace, authenticate, rateLimiter} {
		re = step(re)
		if re.badRequest.isBadRequest {
			return re
		}
	}
	return re
}
