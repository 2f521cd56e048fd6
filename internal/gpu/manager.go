package gpu

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fxnlabs/matrix-node/internal/matrix"
	"github.com/fxnlabs/matrix-node/internal/metrics"
	"github.com/fxnlabs/matrix-node/internal/verify"
	"go.uber.org/zap"
)

// Backend selection values for Options.Backend.
const (
	BackendAuto = "auto"
	BackendCPU  = "cpu"
	BackendCUDA = "cuda"
)

// Options configures backend selection and the element-wise kernel.
type Options struct {
	// Backend is one of "auto", "cpu" or "cuda". Empty means auto.
	Backend string
	// Block is the thread block used for launches. Zero means DefaultBlock.
	Block Dim3
	// DeviceMemoryBytes caps the emulated device memory. Zero means unlimited.
	DeviceMemoryBytes int64
	// DeviceLabel, when set, is reported instead of the backend's own label.
	DeviceLabel string
	// VerifyResults checks every result against a host-side sum.
	VerifyResults   bool
	VerifyTolerance float64
}

// Result is the output of one addition.
type Result struct {
	Matrix  *matrix.Matrix
	Elapsed time.Duration
	Device  string
	Backend string
}

// ElapsedSeconds returns the elapsed time in seconds rounded to 6 decimals.
func (r *Result) ElapsedSeconds() float64 {
	return roundMicro(r.Elapsed.Seconds())
}

// Manager handles backend selection and lifecycle, and runs additions on the
// selected backend.
type Manager struct {
	backend GPUBackend
	opts    Options
	mu      sync.RWMutex
	logger  *zap.Logger
}

// NewManager creates a new manager and selects the best available backend
func NewManager(opts Options, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Block.X == 0 {
		opts.Block = DefaultBlock
	}
	if err := ValidateBlock(opts.Block); err != nil {
		return nil, err
	}

	m := &Manager{
		opts:   opts,
		logger: logger,
	}

	if err := m.detectAndInitialize(); err != nil {
		return nil, err
	}

	info := m.GetDeviceInfo()
	logger.Info("Compute backend initialized",
		zap.String("backend", m.GetBackendType()),
		zap.String("device", info.Name),
		zap.String("label", m.DeviceLabel()),
		zap.String("compute_capability", info.ComputeCapability))

	return m, nil
}

// NewManagerWithBackend wraps an already constructed backend.
func NewManagerWithBackend(backend GPUBackend, opts Options, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := backend.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize backend: %w", err)
	}
	return &Manager{backend: backend, opts: opts, logger: logger}, nil
}

// detectAndInitialize detects available backends and initializes the best one
func (m *Manager) detectAndInitialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.opts.Backend {
	case "", BackendAuto, BackendCUDA:
	case BackendCPU:
		return m.initializeCPU()
	default:
		return fmt.Errorf("unknown backend %q", m.opts.Backend)
	}

	// Try CUDA first (only if build tag is enabled)
	if cudaBackend := m.tryCreateCUDABackend(); cudaBackend != nil {
		if cudaBackend.IsAvailable() {
			err := cudaBackend.Initialize()
			if err == nil {
				m.backend = cudaBackend
				return nil
			}
			m.logger.Warn("CUDA backend failed to initialize", zap.Error(err))
			// If initialization failed, try cleanup
			_ = cudaBackend.Cleanup()
		}
	}

	if m.opts.Backend == BackendCUDA {
		return fmt.Errorf("CUDA backend requested but no CUDA device is available")
	}

	// Fall back to CPU
	return m.initializeCPU()
}

func (m *Manager) initializeCPU() error {
	cpuBackend := NewCPUBackend(m.logger, m.opts)
	if err := cpuBackend.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize CPU backend: %w", err)
	}
	m.backend = cpuBackend
	return nil
}

// GetBackend returns the current backend
func (m *Manager) GetBackend() GPUBackend {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.backend
}

// Add computes the element-wise sum of a validated pair. The elapsed time
// covers the device round trip: transfer in, kernel, transfer out.
func (m *Manager) Add(ctx context.Context, pair matrix.Pair) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	backend := m.GetBackend()
	if backend == nil {
		return nil, newComputeError(ErrTypeDevice, "Add", "no backend available", nil)
	}
	backendType := m.GetBackendType()
	shape := pair.Shape()

	start := time.Now()
	data, err := backend.MatrixAdd(pair.A().Data, pair.B().Data, shape.Rows, shape.Cols)
	elapsed := time.Since(start)

	if err != nil {
		metrics.MatrixAddFailures.WithLabelValues(backendType).Inc()
		var computeErr *ComputeError
		if !errors.As(err, &computeErr) {
			err = newComputeError(ErrTypeDevice, "MatrixAdd", fmt.Sprintf("%s backend failed", backendType), err)
		}
		m.logger.Error("Matrix addition failed",
			zap.String("backend", backendType),
			zap.Int("rows", shape.Rows),
			zap.Int("cols", shape.Cols),
			zap.Error(err))
		return nil, err
	}

	out := &matrix.Matrix{Rows: shape.Rows, Cols: shape.Cols, Data: data}
	if m.opts.VerifyResults {
		if err := verify.VerifySum(pair.A(), pair.B(), out, m.opts.VerifyTolerance); err != nil {
			metrics.MatrixAddFailures.WithLabelValues(backendType).Inc()
			return nil, newComputeError(ErrTypeVerification, "Add", "result failed host-side verification", err)
		}
	}

	metrics.MatrixAddDuration.Observe(float64(elapsed.Microseconds()) / 1000)
	metrics.MatrixAddElements.Set(float64(shape.Elements()))
	metrics.MatrixAddBackend.WithLabelValues(backendType).Inc()

	m.logger.Debug("Matrix addition completed",
		zap.String("backend", backendType),
		zap.Int("rows", shape.Rows),
		zap.Int("cols", shape.Cols),
		zap.Duration("elapsed", elapsed))

	return &Result{
		Matrix:  out,
		Elapsed: elapsed,
		Device:  m.DeviceLabel(),
		Backend: backendType,
	}, nil
}

// GetDeviceInfo returns device information from the current backend
func (m *Manager) GetDeviceInfo() DeviceInfo {
	backend := m.GetBackend()
	if backend == nil {
		return DeviceInfo{Name: "No backend available"}
	}
	return backend.GetDeviceInfo()
}

// IsGPUAvailable returns true if a GPU backend is active
func (m *Manager) IsGPUAvailable() bool {
	backend := m.GetBackend()
	if backend == nil {
		return false
	}
	// Check if it's not the CPU backend
	_, isCPU := backend.(*CPUBackend)
	return !isCPU
}

// DeviceLabel is the device name reported with each result: the configured
// label if any, otherwise "GPU" or "CPU" depending on where the kernel runs.
func (m *Manager) DeviceLabel() string {
	if m.opts.DeviceLabel != "" {
		return m.opts.DeviceLabel
	}
	if m.IsGPUAvailable() {
		return "GPU"
	}
	return "CPU"
}

// Cleanup releases resources held by the current backend
func (m *Manager) Cleanup() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.backend != nil {
		if err := m.backend.Cleanup(); err != nil {
			return err
		}
		m.backend = nil
	}
	return nil
}

// GetBackendType returns a string describing the current backend type
func (m *Manager) GetBackendType() string {
	backend := m.GetBackend()
	if backend == nil {
		return "none"
	}

	switch backend.(type) {
	case *CPUBackend:
		return BackendCPU
	case *CUDABackend:
		return BackendCUDA
	}
	return "custom"
}
