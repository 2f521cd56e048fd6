//go:build !cuda

package gpu

import "go.uber.org/zap"

// NewGPUBackend creates an appropriate backend based on available hardware
// Without GPU support, it will always return CPU backend
func NewGPUBackend(logger *zap.Logger, opts Options) GPUBackend {
	logger.Info("Using CPU backend (compiled without GPU support)")
	return NewCPUBackend(logger, opts)
}
