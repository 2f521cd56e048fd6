package main

import (
	"github.com/fxnlabs/matrix-node/internal/node"
	"github.com/urfave/cli/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func startCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "start",
		Usage: "Start the matrix node",
		Action: func(c *cli.Context) error {
			printBanner(e.stdout, "Matrix Node")
			e.log.Info("Starting node", zap.String("address", e.cfg.Address()), zap.String("backend", e.cfg.GPU.Backend))

			app := fx.New(node.Options(e.cfg))
			if err := app.Err(); err != nil {
				return err
			}
			app.Run()
			return nil
		},
	}
}
