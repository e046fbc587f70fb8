package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var HttpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "http_requests_total",
	Help: "Total number of requests labelled by path and status",
}, []string{"path", "status"})

var countJobsInQueue = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "count_jobs_in_queue",
	Help: "Number of jobs in queue",
})

var dispatcherSignalCount = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "dispatcher_signal_count",
	Help: "How often the dispatcher has signaled to start worker",
})

var activeWorkerCount = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "active_worker_count",
	Help: "Number of active workers",
})

//ingest

var chunksBuilt = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ingest_chunks_built_total",
	Help: "Chunks produced by the builder, by whether the document was split",
}, []string{"split"})

var documentsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ingest_documents_total",
	Help: "Documents seen by the pipeline, by outcome",
}, []string{"outcome"})

var chunksUpserted = promauto.NewCounter(prometheus.CounterOpts{
	Name: "ingest_chunks_upserted_total",
	Help: "Chunks written to the vector index",
})

var DependencyRetries = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "dependency_retries_total",
	Help: "Retries issued against an external dependency",
}, []string{"service"})

var BreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "dependency_breaker_state",
	Help: "Circuit breaker state per dependency (0 closed, 1 half-open, 2 open)",
}, []string{"service"})

type HttpStatusRecorder struct {
	http.ResponseWriter
	Status int
}

func (r *HttpStatusRecorder) WriteHeader(code int) {
	r.Status = code
	r.ResponseWriter.WriteHeader(code)
}

func IncrementJobsInQueue() {
	countJobsInQueue.Inc()
}

func DecrementJobsInQueue() {
	countJobsInQueue.Dec()
}

func StartDispatcherSignalCount() {
	dispatcherSignalCount.Inc()
}

func IncrementActiveWorkerCount() {
	activeWorkerCount.Inc()
}
func DecrementActiveWorkerCount() {
	activeWorkerCount.Dec()
}

func RecordChunks(count int, split bool) {
	label := "false"
	if split {
		label = "true"
	}
	chunksBuilt.WithLabelValues(label).Add(float64(count))
}

// RecordDocument outcome is one of built, failed_build, upserted, failed_upsert.
func RecordDocument(outcome string) {
	documentsProcessed.WithLabelValues(outcome).Inc()
}

func RecordUpserted(count int) {
	chunksUpserted.Add(float64(count))
}

var jobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "ingest_job_duration_seconds",
	Help:    "Total time spent running an ingest job.",
	Buckets: []float64{.5, 1, 5, 15, 30, 60, 300, 600},
}, []string{"status"})

var dependencyLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "dependency_latency_seconds",
	Help:    "Latency of external service calls.",
	Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10},
}, []string{"service"})

func CaptureExecutionMetrics(label string, timeElapsed time.Duration) {
	dependencyLatency.WithLabelValues(label).Observe(timeElapsed.Seconds())
}

func CaptureJobMetrics(label string, timeElapsed time.Duration) {
	jobDuration.WithLabelValues(label).Observe(timeElapsed.Seconds())
}
