//go:build !cuda

package gpu

import "go.uber.org/zap"

// CUDABackend is a stub type when CUDA is not available
type CUDABackend struct {
	logger *zap.Logger
}

// NewCUDABackend returns a backend that reports itself unavailable
func NewCUDABackend(logger *zap.Logger, opts Options) *CUDABackend {
	return &CUDABackend{logger: logger}
}

// Stub implementations to satisfy GPUBackend interface
func (c *CUDABackend) MatrixAdd(a, b []float32, rows, cols int) ([]float32, error) {
	return nil, newComputeError(ErrTypeDevice, "MatrixAdd", "CUDA backend not available", nil)
}

func (c *CUDABackend) GetDeviceInfo() DeviceInfo {
	return DeviceInfo{Name: "CUDA not available"}
}

func (c *CUDABackend) IsAvailable() bool {
	return false
}

func (c *CUDABackend) Initialize() error {
	return newComputeError(ErrTypeDevice, "Initialize", "CUDA backend not available", nil)
}

func (c *CUDABackend) Cleanup() error {
	return nil
}
