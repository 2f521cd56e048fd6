package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/common-nighthawk/go-figure"
	"github.com/fxnlabs/matrix-node/internal/gpu"
)

// printBanner renders title in ASCII art followed by a rule.
func printBanner(w io.Writer, title string) {
	fig := figure.NewFigure(title, "", true)
	fmt.Fprintln(w, fig.String())
	fmt.Fprintln(w, strings.Repeat("-", 50))
}

func printDeviceInfo(w io.Writer, backend string, info gpu.DeviceInfo) {
	fmt.Fprintf(w, "Backend:            %s\n", backend)
	fmt.Fprintf(w, "Device:             %s\n", info.Name)
	fmt.Fprintf(w, "Compute capability: %s\n", info.ComputeCapability)
	fmt.Fprintf(w, "Total memory:       %.2f GB\n", float64(info.TotalMemory)/(1<<30))
	fmt.Fprintf(w, "Available memory:   %.2f GB\n", float64(info.AvailableMemory)/(1<<30))
	if info.DriverVersion != "" {
		fmt.Fprintf(w, "Driver version:     %s\n", info.DriverVersion)
	}
	if info.CUDAVersion != "" {
		fmt.Fprintf(w, "CUDA version:       %s\n", info.CUDAVersion)
	}
	if len(info.Features) > 0 {
		fmt.Fprintf(w, "Features:           %s\n", strings.Join(info.Features, ", "))
	}
}
