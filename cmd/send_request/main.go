package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/fxnlabs/matrix-node/internal/matrix"
	"github.com/fxnlabs/matrix-node/pkg/matrixclient"
	"github.com/urfave/cli/v2"
)

// check is one step of the smoke suite.
type check struct {
	name string
	run  func(ctx context.Context, c *matrixclient.Client, out io.Writer) error
}

type outcome struct {
	name string
	err  error
}

func randomNPZ(rng *rand.Rand, rows, cols int) ([]byte, error) {
	m := matrix.Filled(rows, cols, 0)
	for i := range m.Data {
		m.Data[i] = rng.Float32()
	}
	return matrix.EncodeBytes(matrix.Named{Name: "arr_0", Matrix: m})
}

func addCheck(rng *rand.Rand, rowsA, colsA, rowsB, colsB int, expectSuccess bool) func(context.Context, *matrixclient.Client, io.Writer) error {
	return func(ctx context.Context, c *matrixclient.Client, out io.Writer) error {
		a, err := randomNPZ(rng, rowsA, colsA)
		if err != nil {
			return err
		}
		b, err := randomNPZ(rng, rowsB, colsB)
		if err != nil {
			return err
		}

		start := time.Now()
		res, err := c.Add(ctx, "a.npz", bytes.NewReader(a), "b.npz", bytes.NewReader(b))
		fmt.Fprintf(out, "  Request took: %.4f seconds\n", time.Since(start).Seconds())

		if !expectSuccess {
			var apiErr *matrixclient.APIError
			if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest {
				fmt.Fprintf(out, "  Correctly rejected with status: %d\n", apiErr.StatusCode)
				fmt.Fprintf(out, "  Error message: %s\n", apiErr.Detail)
				return nil
			}
			if err != nil {
				return err
			}
			return fmt.Errorf("should have failed but succeeded")
		}
		if err != nil {
			return err
		}
		if len(res.MatrixShape) != 2 || res.MatrixShape[0] != rowsA || res.MatrixShape[1] != colsA {
			return fmt.Errorf("unexpected matrix shape %v", res.MatrixShape)
		}
		fmt.Fprintf(out, "  Matrix shape: %v\n", res.MatrixShape)
		fmt.Fprintf(out, "  GPU elapsed time: %v seconds\n", res.ElapsedTime)
		fmt.Fprintf(out, "  Device: %s\n", res.Device)
		return nil
	}
}

func suite(seed int64) []check {
	rng := rand.New(rand.NewSource(seed))
	return []check{
		{"Health Check", func(ctx context.Context, c *matrixclient.Client, out io.Writer) error {
			status, err := c.Health(ctx)
			if err != nil {
				return err
			}
			if status != "ok" {
				return fmt.Errorf("unexpected status %q", status)
			}
			fmt.Fprintf(out, "  Status: %s\n", status)
			return nil
		}},
		{"GPU Info", func(ctx context.Context, c *matrixclient.Client, out io.Writer) error {
			gpus, err := c.GPUInfo(ctx)
			if err != nil {
				return err
			}
			for _, g := range gpus {
				fmt.Fprintf(out, "  GPU %s: %d MB / %d MB\n", g.Index, g.MemoryUsedMB, g.MemoryTotalMB)
			}
			return nil
		}},
		{"Matrix Add (100x100)", addCheck(rng, 100, 100, 100, 100, true)},
		{"Matrix Add (512x512)", addCheck(rng, 512, 512, 512, 512, true)},
		{"Error Handling", addCheck(rng, 100, 100, 50, 50, false)},
	}
}

// runSuite runs every check and prints a summary. It returns the outcomes in
// order.
func runSuite(ctx context.Context, c *matrixclient.Client, checks []check, out io.Writer) []outcome {
	results := make([]outcome, 0, len(checks))
	for i, chk := range checks {
		fmt.Fprintf(out, "\n%s\nTEST %d: %s\n%s\n", strings.Repeat("=", 60), i+1, chk.name, strings.Repeat("=", 60))
		err := chk.run(ctx, c, out)
		if err != nil {
			fmt.Fprintf(out, "  Error: %v\n", err)
		}
		results = append(results, outcome{name: chk.name, err: err})
	}

	passed := 0
	fmt.Fprintf(out, "\n%s\nTEST SUMMARY\n%s\n", strings.Repeat("=", 60), strings.Repeat("=", 60))
	for _, r := range results {
		status := "PASS"
		if r.err != nil {
			status = "FAIL"
		} else {
			passed++
		}
		fmt.Fprintf(out, "%-6s - %s\n", status, r.name)
	}
	fmt.Fprintf(out, "\nResults: %d/%d tests passed\n", passed, len(results))
	return results
}

func allPassed(results []outcome) bool {
	for _, r := range results {
		if r.err != nil {
			return false
		}
	}
	return true
}

func main() {
	app := &cli.App{
		Name:  "send_request",
		Usage: "Run the API smoke tests against a running node",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8020", Usage: "Base URL of the node", EnvVars: []string{"NODE_URL"}},
			&cli.DurationFlag{Name: "timeout", Value: 30 * time.Second, Usage: "Per request timeout"},
			&cli.Int64Flag{Name: "seed", Value: 1, Usage: "Random seed for generated matrices"},
		},
		Action: func(c *cli.Context) error {
			client := matrixclient.New(c.String("url"), &http.Client{Timeout: c.Duration("timeout")})
			fmt.Fprintf(c.App.Writer, "Target: %s\n", c.String("url"))
			if !allPassed(runSuite(c.Context, client, suite(c.Int64("seed")), c.App.Writer)) {
				return cli.Exit("some tests failed", 1)
			}
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
