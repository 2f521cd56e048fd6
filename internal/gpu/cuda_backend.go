//go:build cuda

package gpu

/*
#cgo CFLAGS: -I../../cuda
#cgo LDFLAGS: -L../../cuda -lmatadd_cuda -lcudart
#include "matadd.h"
#include <stdlib.h>
*/
import "C"
import (
	"fmt"
	"sync"
	"unsafe"

	"go.uber.org/zap"
)

// CUDABackend implements GPUBackend using NVIDIA CUDA
type CUDABackend struct {
	logger      *zap.Logger
	block       Dim3
	mu          sync.RWMutex
	initialized bool
	deviceInfo  DeviceInfo
	available   bool
}

// NewCUDABackend creates a new CUDA backend instance
func NewCUDABackend(logger *zap.Logger, opts Options) *CUDABackend {
	block := opts.Block
	if block.X == 0 {
		block = DefaultBlock
	}
	backend := &CUDABackend{
		logger: logger,
		block:  block.normalize(),
	}

	// Check if CUDA is available
	if err := backend.checkDevice(); err != nil {
		logger.Warn("CUDA device not available", zap.Error(err))
		backend.available = false
	} else {
		backend.available = true
	}

	return backend
}

// Initialize prepares the CUDA backend for use
func (c *CUDABackend) Initialize() error {
	if !c.available {
		return fmt.Errorf("CUDA device not available")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.initialized {
		return nil
	}

	c.logger.Debug("Initializing CUDA backend")

	result := C.cuda_init()
	if result != C.cudaSuccess {
		return fmt.Errorf("failed to initialize CUDA: %s", cudaErrorString(result))
	}

	var info C.CudaDeviceInfo
	result = C.cuda_get_device_info(&info)
	if result != C.cudaSuccess {
		return fmt.Errorf("failed to get device info: %s", cudaErrorString(result))
	}

	c.deviceInfo = DeviceInfo{
		Name:              C.GoString(&info.name[0]),
		TotalMemory:       int64(info.total_memory),
		AvailableMemory:   int64(info.free_memory),
		ComputeCapability: fmt.Sprintf("%d.%d", int(info.major), int(info.minor)),
		DriverVersion:     formatCUDAVersion(int(info.driver_version)),
		CUDAVersion:       formatCUDAVersion(int(info.runtime_version)),
	}

	c.initialized = true
	c.logger.Info("CUDA backend initialized",
		zap.String("device", c.deviceInfo.Name),
		zap.String("compute_capability", c.deviceInfo.ComputeCapability),
		zap.Float64("total_memory_gb", float64(c.deviceInfo.TotalMemory)/(1<<30)))

	return nil
}

// MatrixAdd computes C = A + B on the GPU. matadd_cuda allocates the three
// device buffers, copies A and B in, launches the 2D kernel, copies C back and
// frees the buffers before returning, on success and on failure.
func (c *CUDABackend) MatrixAdd(a, b []float32, rows, cols int) ([]float32, error) {
	c.mu.RLock()
	initialized := c.initialized
	c.mu.RUnlock()
	if !initialized {
		if err := c.Initialize(); err != nil {
			return nil, newComputeError(ErrTypeDevice, "MatrixAdd", "failed to initialize CUDA backend", err)
		}
	}

	if err := checkNativeDims(rows, cols); err != nil {
		return nil, err
	}
	n := rows * cols
	if len(a) != n {
		return nil, newComputeError(ErrTypeTransfer, "MatrixAdd", fmt.Sprintf("matrix A size mismatch: expected %d, got %d", n, len(a)), nil)
	}
	if len(b) != n {
		return nil, newComputeError(ErrTypeTransfer, "MatrixAdd", fmt.Sprintf("matrix B size mismatch: expected %d, got %d", n, len(b)), nil)
	}

	result := make([]float32, n)

	aPtr := (*C.float)(unsafe.Pointer(&a[0]))
	bPtr := (*C.float)(unsafe.Pointer(&b[0]))
	cPtr := (*C.float)(unsafe.Pointer(&result[0]))

	grid := GridFor(rows, cols, c.block)
	c.logger.Debug("Launching CUDA matrix add kernel",
		zap.Int("rows", rows),
		zap.Int("cols", cols),
		zap.Int("grid_x", grid.X),
		zap.Int("grid_y", grid.Y))

	var stage C.int
	cudaResult := C.matadd_cuda(aPtr, bPtr, cPtr, C.int(rows), C.int(cols), C.int(c.block.X), C.int(c.block.Y), &stage)
	if cudaResult != C.cudaSuccess {
		return nil, newComputeError(stageErrorType(int(stage)), "matadd_cuda", "CUDA matrix addition failed", fmt.Errorf("%s", cudaErrorString(cudaResult)))
	}

	return result, nil
}

// GetDeviceInfo returns information about the CUDA device
func (c *CUDABackend) GetDeviceInfo() DeviceInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.deviceInfo
}

// IsAvailable checks if CUDA is available
func (c *CUDABackend) IsAvailable() bool {
	return c.available
}

// Cleanup releases CUDA resources
func (c *CUDABackend) Cleanup() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized {
		return nil
	}

	c.logger.Debug("Cleaning up CUDA backend")

	result := C.cuda_cleanup()
	if result != C.cudaSuccess {
		return fmt.Errorf("failed to cleanup CUDA: %s", cudaErrorString(result))
	}

	c.initialized = false
	return nil
}

// checkDevice verifies CUDA device availability
func (c *CUDABackend) checkDevice() error {
	result := C.cuda_check_device()
	if result != C.cudaSuccess {
		return fmt.Errorf("CUDA device check failed: %s", cudaErrorString(result))
	}
	return nil
}

// stageErrorType maps the failing matadd_cuda stage to an error category
func stageErrorType(stage int) ErrorType {
	switch stage {
	case C.MATADD_STAGE_ALLOC:
		return ErrTypeMemory
	case C.MATADD_STAGE_COPY_IN, C.MATADD_STAGE_COPY_OUT:
		return ErrTypeTransfer
	case C.MATADD_STAGE_LAUNCH:
		return ErrTypeLaunch
	case C.MATADD_STAGE_EXECUTE:
		return ErrTypeExecution
	default:
		return ErrTypeDevice
	}
}

// cudaErrorString converts a CUDA error code to its runtime description
func cudaErrorString(err C.cudaError_t) string {
	return C.GoString(C.cudaGetErrorString(err))
}

// formatCUDAVersion turns 12040 into "12.4"
func formatCUDAVersion(v int) string {
	if v <= 0 {
		return "Unknown"
	}
	return fmt.Sprintf("%d.%d", v/1000, (v%1000)/10)
}
