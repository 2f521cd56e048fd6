package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fxnlabs/matrix-node/internal/gpu"
	"github.com/fxnlabs/matrix-node/internal/inventory"
	"github.com/fxnlabs/matrix-node/internal/matrix"
	"github.com/fxnlabs/matrix-node/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type formFile struct {
	field   string
	content []byte
}

func npz(t *testing.T, m *matrix.Matrix) []byte {
	t.Helper()
	data, err := matrix.EncodeBytes(matrix.Named{Name: "arr_0", Matrix: m})
	require.NoError(t, err)
	return data
}

func multipartRequest(t *testing.T, files ...formFile) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, f := range files {
		part, err := mw.CreateFormFile(f.field, f.field+".npz")
		require.NoError(t, err)
		_, err = part.Write(f.content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/add", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// countingAdder records how many additions reached the device layer.
type countingAdder struct {
	calls   atomic.Int32
	err     error
	elapsed time.Duration
}

func (c *countingAdder) Add(ctx context.Context, pair matrix.Pair) (*gpu.Result, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	shape := pair.Shape()
	return &gpu.Result{
		Matrix:  matrix.Filled(shape.Rows, shape.Cols, 0),
		Elapsed: c.elapsed,
		Device:  "GPU",
		Backend: "fake",
	}, nil
}

type fakeQuerier struct {
	report *inventory.Report
	err    error
}

func (f *fakeQuerier) Query(ctx context.Context) (*inventory.Report, error) {
	return f.report, f.err
}

func newCPUManager(t *testing.T) *gpu.Manager {
	t.Helper()
	mgr, err := gpu.NewManager(gpu.Options{Backend: gpu.BackendCPU}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Cleanup() })
	return mgr
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeDetail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Detail
}

func TestHealthHandler(t *testing.T) {
	router := NewRouter(zap.NewNop(), &countingAdder{}, &fakeQuerier{}, Options{})

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAddHandlerOnesPlusTwos(t *testing.T) {
	router := NewRouter(zap.NewNop(), newCPUManager(t), &fakeQuerier{}, Options{MaxUploadBytes: 10 << 20})

	req := multipartRequest(t,
		formFile{FieldA, npz(t, matrix.Filled(100, 100, 1))},
		formFile{FieldB, npz(t, matrix.Filled(100, 100, 2))},
	)
	rec := serve(router, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp AddResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, [2]int{100, 100}, resp.MatrixShape)
	assert.GreaterOrEqual(t, resp.ElapsedTime, 0.0)
	assert.Equal(t, "CPU", resp.Device)
}

func TestAddHandlerRoundsElapsedTime(t *testing.T) {
	adder := &countingAdder{elapsed: 1234567 * time.Nanosecond}
	handler := AddHandler(zap.NewNop(), adder, 0)

	req := multipartRequest(t,
		formFile{FieldA, npz(t, matrix.Filled(2, 3, 1))},
		formFile{FieldB, npz(t, matrix.Filled(2, 3, 1))},
	)
	rec := serve(handler, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"matrix_shape":[2,3],"elapsed_time":0.001235,"device":"GPU"}`, rec.Body.String())
}

func TestAddHandlerShapeMismatch(t *testing.T) {
	adder := &countingAdder{}
	router := NewRouter(zap.NewNop(), adder, &fakeQuerier{}, Options{})

	counter := metrics.EndpointResponses.WithLabelValues("/add", "400")
	before := testutil.ToFloat64(counter)

	req := multipartRequest(t,
		formFile{FieldA, npz(t, matrix.Filled(100, 100, 1))},
		formFile{FieldB, npz(t, matrix.Filled(50, 50, 1))},
	)
	rec := serve(router, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	detail := decodeDetail(t, rec)
	assert.Equal(t, "Matrix shapes do not match: (100, 100) vs (50, 50)", detail)
	assert.Equal(t, int32(0), adder.calls.Load(), "mismatched operands must never reach the device")
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestAddHandlerClientErrors(t *testing.T) {
	valid := npz(t, matrix.Filled(2, 2, 1))

	tests := []struct {
		name       string
		files      []formFile
		wantPrefix string
	}{
		{
			name:       "not an npz",
			files:      []formFile{{FieldA, []byte("definitely not a zip")}, {FieldB, valid}},
			wantPrefix: "Error processing matrices: ",
		},
		{
			name:       "second operand empty",
			files:      []formFile{{FieldA, valid}, {FieldB, nil}},
			wantPrefix: "Error processing matrices: ",
		},
		{
			name:       "missing file_b",
			files:      []formFile{{FieldA, valid}},
			wantPrefix: "Invalid upload: missing form field file_b",
		},
		{
			name:       "missing file_a",
			files:      []formFile{{FieldB, valid}},
			wantPrefix: "Invalid upload: missing form field file_a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adder := &countingAdder{}
			rec := serve(AddHandler(zap.NewNop(), adder, 0), multipartRequest(t, tt.files...))

			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.True(t, strings.HasPrefix(decodeDetail(t, rec), tt.wantPrefix), decodeDetail(t, rec))
			assert.Equal(t, int32(0), adder.calls.Load())
		})
	}
}

func TestAddHandlerNotMultipart(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/add", strings.NewReader(`{"a":1}`))
	req.Header.Set("Content-Type", "application/json")

	rec := serve(AddHandler(zap.NewNop(), &countingAdder{}, 0), req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddHandlerUploadLimit(t *testing.T) {
	adder := &countingAdder{}
	req := multipartRequest(t,
		formFile{FieldA, npz(t, matrix.Filled(64, 64, 1))},
		formFile{FieldB, npz(t, matrix.Filled(64, 64, 1))},
	)

	rec := serve(AddHandler(zap.NewNop(), adder, 1024), req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, int32(0), adder.calls.Load())
}

func TestAddHandlerComputeError(t *testing.T) {
	adder := &countingAdder{err: &gpu.ComputeError{Type: gpu.ErrTypeMemory, Op: "Malloc", Message: "out of device memory"}}

	req := multipartRequest(t,
		formFile{FieldA, npz(t, matrix.Filled(4, 4, 1))},
		formFile{FieldB, npz(t, matrix.Filled(4, 4, 1))},
	)
	rec := serve(AddHandler(zap.NewNop(), adder, 0), req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Error processing matrices: memory error in Malloc: out of device memory", decodeDetail(t, rec))
}

func TestAddHandlerMethodNotAllowed(t *testing.T) {
	router := NewRouter(zap.NewNop(), &countingAdder{}, &fakeQuerier{}, Options{})
	rec := serve(router, httptest.NewRequest(http.MethodGet, "/add", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestGPUInfoHandler(t *testing.T) {
	tests := []struct {
		name       string
		querier    *fakeQuerier
		wantStatus int
		wantBody   string
	}{
		{
			name: "two devices",
			querier: &fakeQuerier{report: &inventory.Report{GPUs: []inventory.GPU{
				{Index: "0", MemoryUsedMB: 1024, MemoryTotalMB: 24576},
				{Index: "1", MemoryUsedMB: 0, MemoryTotalMB: 24576},
			}}},
			wantStatus: http.StatusOK,
			wantBody:   `{"gpus":[{"gpu":"0","memory_used_MB":1024,"memory_total_MB":24576},{"gpu":"1","memory_used_MB":0,"memory_total_MB":24576}]}`,
		},
		{
			name:       "no devices",
			querier:    &fakeQuerier{report: &inventory.Report{GPUs: []inventory.GPU{}}},
			wantStatus: http.StatusOK,
			wantBody:   `{"gpus":[]}`,
		},
		{
			name: "utility missing",
			querier: &fakeQuerier{err: &inventory.DeviceQueryError{
				Kind: inventory.ToolNotFound, Command: "nvidia-smi", Err: errors.New("executable file not found in $PATH"),
			}},
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"detail":"nvidia-smi not found. Is NVIDIA driver installed?"}`,
		},
		{
			name: "utility failed",
			querier: &fakeQuerier{err: &inventory.DeviceQueryError{
				Kind: inventory.ToolFailed, Command: "nvidia-smi", Err: errors.New("exit status 9"),
			}},
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"detail":"Failed to query GPU: exit status 9"}`,
		},
		{
			name:       "unexpected error",
			querier:    &fakeQuerier{err: errors.New("boom")},
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"detail":"Error getting GPU info: boom"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := NewRouter(zap.NewNop(), &countingAdder{}, tt.querier, Options{})
			rec := serve(router, httptest.NewRequest(http.MethodGet, "/gpu-info", nil))
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router := NewRouter(zap.NewNop(), &countingAdder{}, &fakeQuerier{}, Options{})
	serve(router, httptest.NewRequest(http.MethodGet, "/health", nil))

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `endpoint_responses_total{endpoint="/health",status_code="200"}`)
}
