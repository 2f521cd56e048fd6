// Package inventory reports the accelerators installed on the host by running
// the vendor's query utility.
package inventory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"
	"time"

	"github.com/fxnlabs/matrix-node/internal/metrics"
	"go.uber.org/zap"
)

// DefaultCommand is the utility queried when none is configured.
const DefaultCommand = "nvidia-smi"

// Report is the result of a device query.
type Report struct {
	GPUs []GPU `json:"gpus"`
}

// Runner executes a command and returns its standard output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && stderr.Len() > 0 {
			return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return nil, err
	}
	return out, nil
}

// Querier runs the device query. The zero value is not usable; use New.
type Querier struct {
	Command string
	Timeout time.Duration
	Runner  Runner

	logger *zap.Logger
}

// New returns a Querier for command using os/exec.
func New(command string, timeout time.Duration, logger *zap.Logger) *Querier {
	if command == "" {
		command = DefaultCommand
	}
	return &Querier{
		Command: command,
		Timeout: timeout,
		Runner:  ExecRunner{},
		logger:  logger,
	}
}

// Args returns the arguments passed to the query utility.
func Args() []string {
	return []string{"--query-gpu=" + QueryFields, "--format=csv,noheader,nounits"}
}

// Query runs the utility and parses its output. Every call starts a fresh
// process; nothing is cached.
func (q *Querier) Query(ctx context.Context) (*Report, error) {
	if q.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.Timeout)
		defer cancel()
	}

	q.logger.Debug("Querying GPU inventory", zap.String("command", q.Command))
	output, err := q.Runner.Run(ctx, q.Command, Args()...)
	if err != nil {
		return nil, q.fail(classify(err), err)
	}

	gpus, err := Parse(output)
	if err != nil {
		return nil, q.fail(Unparsable, err)
	}

	for _, g := range gpus {
		metrics.GPUMemoryUsedMB.WithLabelValues(g.Index).Set(float64(g.MemoryUsedMB))
		metrics.GPUMemoryTotalMB.WithLabelValues(g.Index).Set(float64(g.MemoryTotalMB))
	}
	q.logger.Debug("GPU inventory queried", zap.Int("gpus", len(gpus)))
	return &Report{GPUs: gpus}, nil
}

func (q *Querier) fail(kind ErrorKind, err error) error {
	metrics.GPUQueryFailures.WithLabelValues(kind.String()).Inc()
	queryErr := &DeviceQueryError{Kind: kind, Command: q.Command, Err: err}
	if kind == ToolNotFound {
		q.logger.Warn("GPU query utility not found", zap.String("command", q.Command))
	} else {
		q.logger.Error("GPU query failed", zap.String("kind", kind.String()), zap.Error(err))
	}
	return queryErr
}

func classify(err error) ErrorKind {
	if errors.Is(err, exec.ErrNotFound) {
		return ToolNotFound
	}
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) && errors.Is(pathErr.Err, fs.ErrNotExist) {
		return ToolNotFound
	}
	return ToolFailed
}
