package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fxnlabs/matrix-node/internal/api"
	"github.com/fxnlabs/matrix-node/internal/gpu"
	"github.com/fxnlabs/matrix-node/internal/matrix"
	"github.com/fxnlabs/matrix-node/internal/node"
	"github.com/urfave/cli/v2"
)

func loadMatrix(path string) (*matrix.Matrix, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := matrix.DecodeMatrix(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

func addCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Add two .npz matrices locally and print the result summary",
		ArgsUsage: "<a.npz> <b.npz>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Write the sum to this .npz file"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return fmt.Errorf("expected 2 arguments, got %d", c.NArg())
			}

			a, err := loadMatrix(c.Args().Get(0))
			if err != nil {
				return err
			}
			b, err := loadMatrix(c.Args().Get(1))
			if err != nil {
				return err
			}
			pair, err := matrix.Validate(a, b)
			if err != nil {
				return err
			}

			mgr, err := gpu.NewManager(node.GPUOptions(e.cfg), e.log.Named("gpu"))
			if err != nil {
				return err
			}
			defer mgr.Cleanup()

			res, err := mgr.Add(c.Context, pair)
			if err != nil {
				return err
			}

			if out := c.String("output"); out != "" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				if err := matrix.Encode(f, matrix.Named{Name: "arr_0", Matrix: res.Matrix}); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
			}

			shape := res.Matrix.Shape()
			return json.NewEncoder(e.stdout).Encode(api.AddResponse{
				MatrixShape: [2]int{shape.Rows, shape.Cols},
				ElapsedTime: res.ElapsedSeconds(),
				Device:      res.Device,
			})
		},
	}
}
