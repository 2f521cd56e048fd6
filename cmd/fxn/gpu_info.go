package main

import (
	"encoding/json"

	"github.com/fxnlabs/matrix-node/internal/inventory"
	"github.com/urfave/cli/v2"
)

func gpuInfoCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "gpu-info",
		Usage: "Print the GPUs reported by the device query utility",
		Action: func(c *cli.Context) error {
			querier := inventory.New(e.cfg.Inventory.Command, e.cfg.Inventory.Timeout, e.log.Named("inventory"))
			report, err := querier.Query(c.Context)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(e.stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
}
