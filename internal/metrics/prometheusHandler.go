package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var HttpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "http_requests_total",
	Help: "Total number of requests labelled by path and status",
}, []string{"path", "status"})

var countTasksInQueue = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "count_tasks_in_queue",
	Help: "Number of pipeline and indexing tasks waiting for a worker",
})

var dispatcherSignalCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "dispatcher_signal_count",
	Help: "How often the dispatcher has signaled to start worker",
})

var activeWorkerCount = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "active_worker_count",
	Help: "Number of active workers",
})

var pipelineStageLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "document_pipeline_stage_seconds",
	Help:    "Time spent in each document pipeline stage.",
	Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10, 30},
}, []string{"stage"})

var documentsTerminal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "documents_terminal_total",
	Help: "Documents that reached a terminal status",
}, []string{"status"})

var storeWrites = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "store_writes_total",
	Help: "Writes to the storage backend by partition and result",
}, []string{"backend", "partition", "result"})

var notificationsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "notifications_published_total",
	Help: "Change notifications published by topic and origin",
}, []string{"topic", "origin"})

var indexEntries = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "search_index_entries",
	Help: "Documents currently held by the search index",
})

var llmFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "llm_fallbacks_total",
	Help: "Completion calls answered with a degraded fallback",
}, []string{"operation"})

var dependencyLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "dependency_latency_seconds",
	Help:    "Latency of external service calls.",
	Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10},
}, []string{"service"})

type HttpStatusRecorder struct {
	http.ResponseWriter
	Status int
}

func (r *HttpStatusRecorder) WriteHeader(code int) {
	r.Status = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the hijacker for websockets.
func (r *HttpStatusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Flush keeps streaming responses such as SSE working behind the recorder.
func (r *HttpStatusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *HttpStatusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.Status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func IncrementTasksInQueue() {
	countTasksInQueue.Inc()
}

func DecrementTasksInQueue() {
	countTasksInQueue.Dec()
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

func CaptureExecutionMetrics(label string, timeElapsed time.Duration) {
	dependencyLatency.WithLabelValues(label).Observe(timeElapsed.Seconds())
}

func CaptureStageMetrics(stage string, timeElapsed time.Duration) {
	pipelineStageLatency.WithLabelValues(stage).Observe(timeElapsed.Seconds())
}

func CaptureTerminalStatus(status string) {
	documentsTerminal.WithLabelValues(status).Inc()
}

func CaptureStoreWrite(backend, partition string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	storeWrites.WithLabelValues(backend, partition, result).Inc()
}

func CaptureNotification(topic string, remote bool) {
	origin := "local"
	if remote {
		origin = "remote"
	}
	notificationsPublished.WithLabelValues(topic, origin).Inc()
}

func SetIndexEntries(n int) {
	indexEntries.Set(float64(n))
}

func CaptureLLMFallback(operation string) {
	llmFallbacks.WithLabelValues(operation).Inc()
}
