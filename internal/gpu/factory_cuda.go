//go:build cuda

package gpu

import "go.uber.org/zap"

// NewGPUBackend creates an appropriate backend based on available hardware
// It will try CUDA first, then fall back to CPU
func NewGPUBackend(logger *zap.Logger, opts Options) GPUBackend {
	cudaBackend := NewCUDABackend(logger, opts)
	if cudaBackend.IsAvailable() {
		logger.Info("Using CUDA GPU backend")
		return cudaBackend
	}

	logger.Info("Using CPU backend (no GPU available)")
	return NewCPUBackend(logger, opts)
}
