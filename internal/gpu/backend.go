package gpu

// DeviceInfo contains information about the compute device
type DeviceInfo struct {
	Name              string   `json:"name"`
	TotalMemory       int64    `json:"totalMemory"`     // in bytes
	AvailableMemory   int64    `json:"availableMemory"` // in bytes
	ComputeCapability string   `json:"computeCapability"`
	DriverVersion     string   `json:"driverVersion"`
	CUDAVersion       string   `json:"cudaVersion,omitempty"`
	Features          []string `json:"features,omitempty"`
}

// GPUBackend defines the interface for compute backends.
// Every implementation runs the same pipeline for MatrixAdd: allocate device
// buffers, copy both operands in, launch the element-wise kernel, copy the
// result out, release the buffers.
//
// Implementation notes:
// - Backends own device memory for the duration of a single call only
// - Fallback to CPU is handled by the Manager, not the backend
// - Backends must be safe for concurrent MatrixAdd calls
// - Device buffers must be released on every path, including failures
type GPUBackend interface {
	// MatrixAdd computes C = A + B element-wise where A, B and C are
	// rows×cols matrices in row-major order.
	//
	// Errors are *ComputeError values carrying the device-layer message.
	MatrixAdd(a, b []float32, rows, cols int) ([]float32, error)

	// GetDeviceInfo returns information about the device
	GetDeviceInfo() DeviceInfo

	// IsAvailable checks if the backend can be used.
	// This should be a quick check without heavy initialization.
	IsAvailable() bool

	// Initialize prepares the backend for use. Should be called once before first use.
	Initialize() error

	// Cleanup releases any resources held by the backend.
	Cleanup() error
}
