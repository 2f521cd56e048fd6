package main

import (
	"fmt"
	"os"

	"github.com/fxnlabs/matrix-node/fixtures"
	"github.com/fxnlabs/matrix-node/internal/config"
	"github.com/urfave/cli/v2"
)

func initCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Write a default config.yaml into the home directory",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "force", Usage: "Overwrite an existing config"},
		},
		Action: func(c *cli.Context) error {
			path := config.PathIn(e.home)
			if _, err := os.Stat(path); err == nil && !c.Bool("force") {
				return fmt.Errorf("%s already exists, use --force to overwrite", path)
			}
			if err := os.MkdirAll(e.home, 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(path, fixtures.ConfigTemplate, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(e.stdout, "Wrote %s\n", path)
			return nil
		},
	}
}
