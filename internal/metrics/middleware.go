package metrics

import (
	"net/http"
	"strconv"
	"time"
)

// ResponseWriterInterceptor is a wrapper around http.ResponseWriter to capture the status code.
type ResponseWriterInterceptor struct {
	http.ResponseWriter
	StatusCode  int
	wroteHeader bool
}

// NewResponseWriterInterceptor creates a new ResponseWriterInterceptor.
func NewResponseWriterInterceptor(w http.ResponseWriter) *ResponseWriterInterceptor {
	// Default to 200 OK if WriteHeader is not called.
	return &ResponseWriterInterceptor{ResponseWriter: w, StatusCode: http.StatusOK}
}

// WriteHeader captures the first status code and calls the original WriteHeader.
func (rwi *ResponseWriterInterceptor) WriteHeader(code int) {
	if !rwi.wroteHeader {
		rwi.StatusCode = code
		rwi.wroteHeader = true
	}
	rwi.ResponseWriter.WriteHeader(code)
}

func (rwi *ResponseWriterInterceptor) Write(b []byte) (int, error) {
	rwi.wroteHeader = true
	return rwi.ResponseWriter.Write(b)
}

// Middleware wraps an http.Handler to record endpoint responses and latency.
func Middleware(next http.Handler, endpointPath string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		interceptor := NewResponseWriterInterceptor(w)
		next.ServeHTTP(interceptor, r)
		EndpointDuration.WithLabelValues(endpointPath).Observe(time.Since(start).Seconds())
		EndpointResponses.WithLabelValues(endpointPath, strconv.Itoa(interceptor.StatusCode)).Inc()
	})
}
