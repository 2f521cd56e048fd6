package gpu

import "golang.org/x/sys/cpu"

const (
	defaultTotalMemory     = 8 * 1024 * 1024 * 1024 // 8GB
	defaultAvailableMemory = 4 * 1024 * 1024 * 1024 // 4GB
)

// cpuFeatures lists the SIMD extensions of the host CPU
func cpuFeatures() []string {
	var features []string
	add := func(ok bool, name string) {
		if ok {
			features = append(features, name)
		}
	}
	add(cpu.X86.HasSSE41, "sse4.1")
	add(cpu.X86.HasAVX, "avx")
	add(cpu.X86.HasAVX2, "avx2")
	add(cpu.X86.HasFMA, "fma")
	add(cpu.X86.HasAVX512F, "avx512f")
	add(cpu.ARM64.HasASIMD, "asimd")
	add(cpu.ARM64.HasSVE, "sve")
	return features
}
