package api

import (
	"net/http"
	"time"

	"github.com/fxnlabs/matrix-node/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Options configures NewRouter.
type Options struct {
	MaxUploadBytes int64
}

// NewRouter registers every endpoint of the service. Each route records the
// endpoint metrics and a request log line.
func NewRouter(log *zap.Logger, adder Adder, querier DeviceQuerier, opts Options) http.Handler {
	mux := http.NewServeMux()

	handle := func(pattern, endpoint string, h http.Handler) {
		mux.Handle(pattern, RequestLogger(log, metrics.Middleware(h, endpoint)))
	}

	handle("GET /health", "/health", HealthHandler())
	handle("POST /add", "/add", AddHandler(log.Named("add"), adder, opts.MaxUploadBytes))
	handle("GET /gpu-info", "/gpu-info", GPUInfoHandler(log.Named("gpu-info"), querier))
	handle("GET /metrics", "/metrics", promhttp.Handler())

	return mux
}

// RequestLogger logs one line per request once it has been served.
func RequestLogger(log *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		interceptor := metrics.NewResponseWriterInterceptor(w)
		next.ServeHTTP(interceptor, r)
		log.Debug("Served request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", interceptor.StatusCode),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote", r.RemoteAddr))
	})
}
