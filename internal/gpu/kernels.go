package gpu

// matrixAddKernel computes C[i,j] = A[i,j] + B[i,j] for the thread's (i, j).
// Threads of boundary blocks that fall outside rows×cols write nothing.
func matrixAddKernel(a, b, c DevicePtr, rows, cols int) KernelFunc {
	da, db, dc := a.Float32(), b.Float32(), c.Float32()
	return func(tid ThreadID) {
		i, j := tid.GlobalX(), tid.GlobalY()
		if i < rows && j < cols {
			idx := i*cols + j
			dc[idx] = da[idx] + db[idx]
		}
	}
}
