package gpu

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"go.uber.org/zap"
)

// CPUBackend implements GPUBackend on an emulated device for fallback. It
// follows the device pipeline step by step, so allocation, transfer and
// launch failures surface the same way they would on real hardware.
type CPUBackend struct {
	logger      *zap.Logger
	block       Dim3
	memoryLimit int64
	device      atomic.Pointer[Device]
}

// NewCPUBackend creates a new CPU backend instance
func NewCPUBackend(logger *zap.Logger, opts Options) *CPUBackend {
	block := opts.Block
	if block.X == 0 {
		block = DefaultBlock
	}
	return &CPUBackend{
		logger:      logger,
		block:       block,
		memoryLimit: opts.DeviceMemoryBytes,
	}
}

// Initialize prepares the CPU backend for use
func (c *CPUBackend) Initialize() error {
	if c.device.Load() != nil {
		return nil
	}
	if err := ValidateBlock(c.block); err != nil {
		return fmt.Errorf("failed to initialize CPU backend: %w", err)
	}
	c.device.Store(NewDevice(fmt.Sprintf("CPU (%s)", runtime.GOARCH), c.memoryLimit))
	c.logger.Info("CPU backend initialized",
		zap.Int("block_x", c.block.X),
		zap.Int("block_y", c.block.Y),
		zap.Int64("device_memory_bytes", c.memoryLimit))
	return nil
}

// Cleanup drops the emulated device
func (c *CPUBackend) Cleanup() error {
	c.device.Store(nil)
	return nil
}

// IsAvailable checks if the backend is available (always true for CPU)
func (c *CPUBackend) IsAvailable() bool {
	return true
}

// Device returns the emulated device, or nil before Initialize.
func (c *CPUBackend) Device() *Device {
	return c.device.Load()
}

// GetDeviceInfo returns device information for CPU
func (c *CPUBackend) GetDeviceInfo() DeviceInfo {
	total, available := systemMemory()
	return DeviceInfo{
		Name:              fmt.Sprintf("CPU (%s)", runtime.GOARCH),
		TotalMemory:       total,
		AvailableMemory:   available,
		ComputeCapability: "N/A",
		DriverVersion:     runtime.Version(),
		Features:          cpuFeatures(),
	}
}

// MatrixAdd computes C = A + B on the emulated device
func (c *CPUBackend) MatrixAdd(a, b []float32, rows, cols int) (result []float32, err error) {
	device := c.device.Load()
	if device == nil {
		return nil, newComputeError(ErrTypeDevice, "MatrixAdd", "CPU backend not initialized", nil)
	}

	n := rows * cols
	if rows <= 0 || cols <= 0 {
		return nil, newComputeError(ErrTypeLaunch, "MatrixAdd", fmt.Sprintf("invalid dimensions %dx%d", rows, cols), nil)
	}
	if len(a) != n {
		return nil, newComputeError(ErrTypeTransfer, "MatrixAdd", fmt.Sprintf("matrix A size mismatch: expected %d, got %d", n, len(a)), nil)
	}
	if len(b) != n {
		return nil, newComputeError(ErrTypeTransfer, "MatrixAdd", fmt.Sprintf("matrix B size mismatch: expected %d, got %d", n, len(b)), nil)
	}

	var buffers []DevicePtr
	defer func() {
		for _, ptr := range buffers {
			if freeErr := device.Free(ptr); freeErr != nil {
				c.logger.Error("failed to release device buffer", zap.Error(freeErr))
				if err == nil {
					result, err = nil, freeErr
				}
			}
		}
	}()

	alloc := func() (DevicePtr, error) {
		ptr, err := device.Malloc(n)
		if err == nil {
			buffers = append(buffers, ptr)
		}
		return ptr, err
	}

	dA, err := alloc()
	if err != nil {
		return nil, err
	}
	dB, err := alloc()
	if err != nil {
		return nil, err
	}
	dC, err := alloc()
	if err != nil {
		return nil, err
	}

	if err := device.MemcpyHtoD(dA, a); err != nil {
		return nil, err
	}
	if err := device.MemcpyHtoD(dB, b); err != nil {
		return nil, err
	}

	grid := GridFor(rows, cols, c.block)
	c.logger.Debug("Launching matrix add kernel",
		zap.Int("rows", rows),
		zap.Int("cols", cols),
		zap.Int("grid_x", grid.X),
		zap.Int("grid_y", grid.Y))

	if err := Launch(matrixAddKernel(dA, dB, dC, rows, cols), grid, c.block); err != nil {
		return nil, err
	}

	result = make([]float32, n)
	if err := device.MemcpyDtoH(result, dC); err != nil {
		return nil, err
	}
	return result, nil
}
