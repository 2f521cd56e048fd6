package gpu

import (
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// MaxThreadsPerBlock mirrors the CUDA limit for a single thread block.
const MaxThreadsPerBlock = 1024

// DefaultBlock is the 16×16 tile (256 threads) used for 2D launches.
var DefaultBlock = Dim3{X: 16, Y: 16, Z: 1}

// Dim3 represents grid and block dimensions, matching CUDA's dim3.
// A zero Y or Z is treated as 1.
type Dim3 struct {
	X, Y, Z int
}

// Size returns the number of elements covered by d.
func (d Dim3) Size() int {
	d = d.normalize()
	return d.X * d.Y * d.Z
}

func (d Dim3) normalize() Dim3 {
	if d.Y == 0 {
		d.Y = 1
	}
	if d.Z == 0 {
		d.Z = 1
	}
	return d
}

// ThreadID identifies a thread's position within the launch, with the same
// semantics as CUDA's blockIdx, threadIdx, blockDim and gridDim.
type ThreadID struct {
	BlockIdx  Dim3
	ThreadIdx Dim3
	BlockDim  Dim3
	GridDim   Dim3
}

// GlobalX returns the global X index, the row for 2D matrix kernels.
func (tid ThreadID) GlobalX() int {
	return tid.BlockIdx.X*tid.BlockDim.X + tid.ThreadIdx.X
}

// GlobalY returns the global Y index, the column for 2D matrix kernels.
func (tid ThreadID) GlobalY() int {
	return tid.BlockIdx.Y*tid.BlockDim.Y + tid.ThreadIdx.Y
}

// KernelFunc is executed once per thread of a launch. Implementations run
// concurrently and must only write to cells owned by their own thread.
type KernelFunc func(tid ThreadID)

// GridFor returns the grid covering a rows×cols index space with the given
// block: rows are split along X and cols along Y, both ceil-divided.
func GridFor(rows, cols int, block Dim3) Dim3 {
	block = block.normalize()
	return Dim3{
		X: ceilDiv(rows, block.X),
		Y: ceilDiv(cols, block.Y),
		Z: 1,
	}
}

// ValidateBlock checks a block configuration against the launch limits.
func ValidateBlock(block Dim3) error {
	if block.X <= 0 || block.Y < 0 || block.Z < 0 {
		return fmt.Errorf("block dimensions must be positive, got %dx%dx%d", block.X, block.Y, block.Z)
	}
	if block.Size() > MaxThreadsPerBlock {
		return fmt.Errorf("block has %d threads, limit is %d", block.Size(), MaxThreadsPerBlock)
	}
	return nil
}

// Launch runs fn for every thread of every block in grid and returns once
// all of them have finished. Blocks are spread over up to runtime.NumCPU()
// workers; threads inside a block run sequentially on their worker.
func Launch(fn KernelFunc, grid, block Dim3) error {
	if err := ValidateBlock(block); err != nil {
		return newComputeError(ErrTypeLaunch, "Launch", "invalid block configuration", err)
	}
	if grid.X < 0 || grid.Y < 0 || grid.Z < 0 {
		return newComputeError(ErrTypeLaunch, "Launch", fmt.Sprintf("invalid grid %dx%dx%d", grid.X, grid.Y, grid.Z), nil)
	}
	grid = grid.normalize()
	block = block.normalize()

	gridSize := grid.Size()
	if gridSize == 0 {
		return nil
	}
	blockSize := block.Size()

	numWorkers := runtime.NumCPU()
	if gridSize < numWorkers {
		numWorkers = gridSize
	}
	blocksPerWorker := ceilDiv(gridSize, numWorkers)

	var g errgroup.Group
	g.SetLimit(numWorkers)
	for startBlock := 0; startBlock < gridSize; startBlock += blocksPerWorker {
		endBlock := min(startBlock+blocksPerWorker, gridSize)
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = newComputeError(ErrTypeExecution, "Launch", "kernel panicked", fmt.Errorf("%v", r))
				}
			}()
			for blockID := startBlock; blockID < endBlock; blockID++ {
				tid := ThreadID{
					BlockIdx: linearTo3D(blockID, grid),
					BlockDim: block,
					GridDim:  grid,
				}
				for threadID := 0; threadID < blockSize; threadID++ {
					tid.ThreadIdx = linearTo3D(threadID, block)
					fn(tid)
				}
			}
			return nil
		})
	}
	return g.Wait()
}

func linearTo3D(id int, dim Dim3) Dim3 {
	return Dim3{
		X: id % dim.X,
		Y: (id / dim.X) % dim.Y,
		Z: id / (dim.X * dim.Y),
	}
}
