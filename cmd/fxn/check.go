package main

import (
	"fmt"

	"github.com/fxnlabs/matrix-node/internal/gpu"
	"github.com/fxnlabs/matrix-node/internal/node"
	"github.com/urfave/cli/v2"
)

func checkCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "Run a sanity addition on the selected backend",
		Action: func(c *cli.Context) error {
			printBanner(e.stdout, "Sanity Check")

			mgr, err := gpu.NewManager(node.GPUOptions(e.cfg), e.log.Named("gpu"))
			if err != nil {
				fmt.Fprintf(e.stdout, "FAIL: no usable backend: %v\n", err)
				return err
			}
			defer mgr.Cleanup()

			printDeviceInfo(e.stdout, mgr.GetBackendType(), mgr.GetDeviceInfo())
			fmt.Fprintln(e.stdout)

			report, err := gpu.SanityCheck(c.Context, mgr)
			if err != nil {
				fmt.Fprintf(e.stdout, "FAIL: %v\n", err)
				return err
			}

			fmt.Fprintf(e.stdout, "Kernel execution verified on %s (%d elements, %.6f s)\n",
				report.Label, gpu.SanityLength, report.Result.ElapsedSeconds())
			fmt.Fprintf(e.stdout, "First values: %v\n", report.First)
			fmt.Fprintln(e.stdout, "PASS")
			return nil
		},
	}
}
