package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EndpointResponses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "endpoint_responses_total",
		Help: "The total number of endpoint responses",
	}, []string{"endpoint", "status_code"})

	EndpointDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "endpoint_duration_seconds",
		Help:    "Time spent serving a request, by endpoint",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	// Matrix addition metrics
	MatrixAddDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "matrix_add_duration_ms",
		Help:    "Duration of the device round trip of a matrix addition in milliseconds",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 20), // 10µs to ~5s
	})

	MatrixAddElements = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "matrix_add_elements",
		Help: "Number of elements in the last matrix addition",
	})

	MatrixAddBackend = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matrix_add_backend_total",
		Help: "Total number of completed matrix additions by backend",
	}, []string{"backend"})

	MatrixAddFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matrix_add_failures_total",
		Help: "Total number of failed matrix additions by backend",
	}, []string{"backend"})

	MatrixRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matrix_rejected_total",
		Help: "Uploads rejected before reaching the device, by reason",
	}, []string{"reason"})

	// GPU Metrics
	GPUMemoryUsedMB = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gpu_memory_used_megabytes",
		Help: "GPU memory currently in use in MB, as reported by the device query",
	}, []string{"gpu"})

	GPUMemoryTotalMB = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gpu_memory_total_megabytes",
		Help: "Total GPU memory in MB, as reported by the device query",
	}, []string{"gpu"})

	GPUQueryFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gpu_query_failures_total",
		Help: "Total number of failed device queries by kind",
	}, []string{"kind"})
)
