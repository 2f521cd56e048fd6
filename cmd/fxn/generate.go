package main

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/fxnlabs/matrix-node/internal/matrix"
	"github.com/urfave/cli/v2"
)

// sampleFiles are the matrices written by generate, as name and shape.
var sampleFiles = []struct {
	name       string
	rows, cols int
}{
	{"test_matrix_a.npz", 100, 100},
	{"test_matrix_b.npz", 100, 100},
	{"test_matrix_mismatch.npz", 50, 50},
	{"matrix1.npz", 512, 512},
	{"matrix2.npz", 512, 512},
}

func randomMatrix(rng *rand.Rand, rows, cols int) *matrix.Matrix {
	m := matrix.Filled(rows, cols, 0)
	for i := range m.Data {
		m.Data[i] = rng.Float32()
	}
	return m
}

func writeSamples(dir string, seed int64) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	rng := rand.New(rand.NewSource(seed))
	for _, s := range sampleFiles {
		data, err := matrix.EncodeBytes(matrix.Named{Name: "arr_0", Matrix: randomMatrix(rng, s.rows, s.cols)})
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dir, s.name), data, 0o644); err != nil {
			return err
		}
	}
	return nil
}

func generateCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "generate",
		Usage: "Write random sample matrices for exercising the API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Value: ".", Usage: "Output directory"},
			&cli.Int64Flag{Name: "seed", Value: 1, Usage: "Random seed"},
		},
		Action: func(c *cli.Context) error {
			dir := c.String("dir")
			if err := writeSamples(dir, c.Int64("seed")); err != nil {
				return err
			}
			for _, s := range sampleFiles {
				fmt.Fprintf(e.stdout, "Created %s: shape=(%d, %d)\n", filepath.Join(dir, s.name), s.rows, s.cols)
			}
			return nil
		},
	}
}
