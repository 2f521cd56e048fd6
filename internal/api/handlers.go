// Package api serves the matrix addition service over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/fxnlabs/matrix-node/internal/gpu"
	"github.com/fxnlabs/matrix-node/internal/inventory"
	"github.com/fxnlabs/matrix-node/internal/matrix"
	"github.com/fxnlabs/matrix-node/internal/metrics"
	"go.uber.org/zap"
)

// Form fields of a POST /add request.
const (
	FieldA = "file_a"
	FieldB = "file_b"
)

// multipartMemory is how much of a multipart body is kept in memory before
// spilling to temporary files.
const multipartMemory = 32 << 20

// Adder runs a validated addition.
type Adder interface {
	Add(ctx context.Context, pair matrix.Pair) (*gpu.Result, error)
}

// DeviceQuerier reports the installed accelerators.
type DeviceQuerier interface {
	Query(ctx context.Context) (*inventory.Report, error)
}

// AddResponse is the body of a successful POST /add.
type AddResponse struct {
	MatrixShape [2]int  `json:"matrix_shape"`
	ElapsedTime float64 `json:"elapsed_time"`
	Device      string  `json:"device"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, ErrorResponse{Detail: detail})
}

// HealthHandler always reports ok.
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
	}
}

// AddHandler decodes file_a and file_b, checks that their shapes match and
// adds them on the accelerator. Only metadata about the result is returned.
func AddHandler(log *zap.Logger, adder Adder, maxUploadBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if maxUploadBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		}
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			metrics.MatrixRejected.WithLabelValues("form").Inc()
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("Request body exceeds %d bytes", maxErr.Limit))
				return
			}
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid multipart form: %v", err))
			return
		}
		defer r.MultipartForm.RemoveAll()

		payloadA, err := readFormFile(r, FieldA)
		if err != nil {
			metrics.MatrixRejected.WithLabelValues("form").Inc()
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid upload: %v", err))
			return
		}
		payloadB, err := readFormFile(r, FieldB)
		if err != nil {
			metrics.MatrixRejected.WithLabelValues("form").Inc()
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid upload: %v", err))
			return
		}

		a, err := matrix.DecodeMatrix(payloadA)
		if err != nil {
			rejectDecode(log, w, FieldA, err)
			return
		}
		b, err := matrix.DecodeMatrix(payloadB)
		if err != nil {
			rejectDecode(log, w, FieldB, err)
			return
		}

		pair, err := matrix.Validate(a, b)
		if err != nil {
			var mismatch *matrix.ShapeMismatchError
			if errors.As(err, &mismatch) {
				metrics.MatrixRejected.WithLabelValues("shape").Inc()
				log.Info("Rejected mismatched shapes", zap.Stringer("a", mismatch.A), zap.Stringer("b", mismatch.B))
				writeError(w, http.StatusBadRequest, mismatch.Error())
				return
			}
			rejectDecode(log, w, "", err)
			return
		}

		result, err := adder.Add(r.Context(), pair)
		if err != nil {
			log.Error("Matrix addition failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("Error processing matrices: %v", err))
			return
		}

		shape := result.Matrix.Shape()
		writeJSON(w, http.StatusOK, AddResponse{
			MatrixShape: [2]int{shape.Rows, shape.Cols},
			ElapsedTime: result.ElapsedSeconds(),
			Device:      result.Device,
		})
	}
}

func rejectDecode(log *zap.Logger, w http.ResponseWriter, field string, err error) {
	metrics.MatrixRejected.WithLabelValues("decode").Inc()
	log.Info("Rejected undecodable upload", zap.String("field", field), zap.Error(err))
	writeError(w, http.StatusBadRequest, fmt.Sprintf("Error processing matrices: %v", err))
}

func readFormFile(r *http.Request, field string) ([]byte, error) {
	f, _, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, fmt.Errorf("missing form field %s", field)
		}
		return nil, fmt.Errorf("form field %s: %w", field, err)
	}
	defer f.Close()
	return io.ReadAll(f)
}

// GPUInfoHandler runs a fresh device query on every request.
func GPUInfoHandler(log *zap.Logger, querier DeviceQuerier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := querier.Query(r.Context())
		if err != nil {
			var queryErr *inventory.DeviceQueryError
			if !errors.As(err, &queryErr) {
				log.Error("GPU query failed", zap.Error(err))
				writeError(w, http.StatusInternalServerError, fmt.Sprintf("Error getting GPU info: %v", err))
				return
			}
			writeError(w, http.StatusInternalServerError, queryErr.Error())
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}
