package gpu

import (
	"fmt"
	"sync"
)

// MemcpyKind specifies the direction of a memory transfer.
type MemcpyKind int

const (
	MemcpyHostToDevice MemcpyKind = iota
	MemcpyDeviceToHost
)

func (k MemcpyKind) String() string {
	if k == MemcpyHostToDevice {
		return "host-to-device"
	}
	return "device-to-host"
}

const float32Size = 4

// DevicePtr refers to a float32 buffer owned by a Device. Kernels access the
// buffer through Float32; the host must go through Memcpy.
type DevicePtr struct {
	id  uint64
	mem []float32
}

// Float32 returns the device-side view of the buffer.
func (d DevicePtr) Float32() []float32 {
	return d.mem
}

// Len returns the number of float32 elements in the buffer.
func (d DevicePtr) Len() int {
	return len(d.mem)
}

// MemoryStats summarizes the allocations of a Device.
type MemoryStats struct {
	LiveAllocations int
	LiveBytes       int64
	PeakBytes       int64
	TotalAllocs     int64
}

// Device is an emulated accelerator: a separate memory space with explicit
// transfers, used by the CPU backend so the device pipeline can run anywhere.
type Device struct {
	Name string

	mu        sync.Mutex
	capacity  int64
	nextID    uint64
	allocated map[uint64]int64
	stats     MemoryStats
}

// NewDevice creates a device. A capacity of zero means unlimited.
func NewDevice(name string, capacity int64) *Device {
	return &Device{
		Name:      name,
		capacity:  capacity,
		allocated: make(map[uint64]int64),
	}
}

// Malloc allocates a buffer of elems float32 values.
func (d *Device) Malloc(elems int) (DevicePtr, error) {
	if elems <= 0 {
		return DevicePtr{}, newComputeError(ErrTypeMemory, "Malloc", fmt.Sprintf("invalid allocation size %d", elems), nil)
	}
	size := int64(elems) * float32Size

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.capacity > 0 && d.stats.LiveBytes+size > d.capacity {
		return DevicePtr{}, newComputeError(ErrTypeMemory, "Malloc",
			fmt.Sprintf("out of device memory: requested %d bytes, %d of %d in use", size, d.stats.LiveBytes, d.capacity), nil)
	}

	d.nextID++
	id := d.nextID
	d.allocated[id] = size
	d.stats.LiveAllocations++
	d.stats.LiveBytes += size
	d.stats.TotalAllocs++
	if d.stats.LiveBytes > d.stats.PeakBytes {
		d.stats.PeakBytes = d.stats.LiveBytes
	}

	return DevicePtr{id: id, mem: make([]float32, elems)}, nil
}

// Free releases a buffer. Freeing a zero DevicePtr is a no-op.
func (d *Device) Free(ptr DevicePtr) error {
	if ptr.id == 0 {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	size, ok := d.allocated[ptr.id]
	if !ok {
		return newComputeError(ErrTypeMemory, "Free", "pointer not allocated or already freed", nil)
	}
	delete(d.allocated, ptr.id)
	d.stats.LiveAllocations--
	d.stats.LiveBytes -= size
	return nil
}

// MemcpyHtoD copies src from host memory into dst. The copy is complete when
// the call returns.
func (d *Device) MemcpyHtoD(dst DevicePtr, src []float32) error {
	if err := d.checkTransfer(dst, len(src), MemcpyHostToDevice); err != nil {
		return err
	}
	copy(dst.mem, src)
	return nil
}

// MemcpyDtoH copies src from device memory into dst. The copy is complete when
// the call returns.
func (d *Device) MemcpyDtoH(dst []float32, src DevicePtr) error {
	if err := d.checkTransfer(src, len(dst), MemcpyDeviceToHost); err != nil {
		return err
	}
	copy(dst, src.mem)
	return nil
}

func (d *Device) checkTransfer(ptr DevicePtr, hostLen int, kind MemcpyKind) error {
	d.mu.Lock()
	_, ok := d.allocated[ptr.id]
	d.mu.Unlock()
	if !ok {
		return newComputeError(ErrTypeTransfer, "Memcpy", fmt.Sprintf("%s copy with an unallocated device pointer", kind), nil)
	}
	if hostLen != len(ptr.mem) {
		return newComputeError(ErrTypeTransfer, "Memcpy",
			fmt.Sprintf("%s size mismatch: host %d elements, device %d elements", kind, hostLen, len(ptr.mem)), nil)
	}
	return nil
}

// Stats returns a snapshot of the device's allocation counters.
func (d *Device) Stats() MemoryStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}
