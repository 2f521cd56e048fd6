package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/fxnlabs/matrix-node/internal/metrics"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRunner struct {
	output []byte
	err    error

	name string
	args []string
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.name = name
	f.args = args
	return f.output, f.err
}

func readTestdata(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return data
}

func TestParse(t *testing.T) {
	tests := []struct {
		file    string
		want    []GPU
		wantErr string
	}{
		{
			file: "two_gpus.txt",
			want: []GPU{
				{Index: "0", MemoryUsedMB: 1024, MemoryTotalMB: 24576},
				{Index: "1", MemoryUsedMB: 512, MemoryTotalMB: 24576},
			},
		},
		{
			file: "single_gpu_trailing_blank.txt",
			want: []GPU{{Index: "0", MemoryUsedMB: 0, MemoryTotalMB: 81920}},
		},
		{
			file: "empty.txt",
			want: []GPU{},
		},
		{
			file:    "garbage_line.txt",
			wantErr: "line 2: expected 3 fields",
		},
		{
			file:    "not_supported.txt",
			wantErr: `invalid memory.used "[N/A]"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			got, err := Parse(readTestdata(t, tt.file))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestQueryGolden(t *testing.T) {
	runner := &fakeRunner{output: readTestdata(t, "two_gpus.txt")}
	q := New("", time.Second, zap.NewNop())
	q.Runner = runner

	report, err := q.Query(context.Background())
	require.NoError(t, err)

	assert.Equal(t, DefaultCommand, runner.name)
	assert.Equal(t, []string{"--query-gpu=index,memory.used,memory.total", "--format=csv,noheader,nounits"}, runner.args)

	got, err := json.MarshalIndent(report, "", "  ")
	require.NoError(t, err)
	assert.JSONEq(t, string(readTestdata(t, "two_gpus.golden.json")), string(got))

	assert.Equal(t, float64(512), testutil.ToFloat64(metrics.GPUMemoryUsedMB.WithLabelValues("1")))
	assert.Equal(t, float64(24576), testutil.ToFloat64(metrics.GPUMemoryTotalMB.WithLabelValues("0")))
}

func TestQueryErrors(t *testing.T) {
	tests := []struct {
		name     string
		runner   *fakeRunner
		wantKind ErrorKind
		wantMsg  string
	}{
		{
			name:     "tool missing",
			runner:   &fakeRunner{err: &exec.Error{Name: "nvidia-smi", Err: exec.ErrNotFound}},
			wantKind: ToolNotFound,
			wantMsg:  "nvidia-smi not found. Is NVIDIA driver installed?",
		},
		{
			name:     "tool failed",
			runner:   &fakeRunner{err: errors.New("exit status 9")},
			wantKind: ToolFailed,
			wantMsg:  "Failed to query GPU: exit status 9",
		},
		{
			name:     "unparsable output",
			runner:   &fakeRunner{output: []byte("0, 10\n")},
			wantKind: Unparsable,
			wantMsg:  "Error getting GPU info: line 1: expected 3 fields, got 2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := New("nvidia-smi", time.Second, zap.NewNop())
			q.Runner = tt.runner

			before := testutil.ToFloat64(metrics.GPUQueryFailures.WithLabelValues(tt.wantKind.String()))
			_, err := q.Query(context.Background())
			require.Error(t, err)

			var queryErr *DeviceQueryError
			require.ErrorAs(t, err, &queryErr)
			assert.Equal(t, tt.wantKind, queryErr.Kind)
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.Equal(t, before+1, testutil.ToFloat64(metrics.GPUQueryFailures.WithLabelValues(tt.wantKind.String())))
		})
	}
}

func TestExecRunner(t *testing.T) {
	t.Run("missing tool", func(t *testing.T) {
		q := New("definitely-not-an-installed-gpu-tool", time.Second, zap.NewNop())
		_, err := q.Query(context.Background())
		require.Error(t, err)

		var queryErr *DeviceQueryError
		require.ErrorAs(t, err, &queryErr)
		assert.Equal(t, ToolNotFound, queryErr.Kind)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("missing absolute path", func(t *testing.T) {
		q := New(filepath.Join(t.TempDir(), "nvidia-smi"), time.Second, zap.NewNop())
		_, err := q.Query(context.Background())

		var queryErr *DeviceQueryError
		require.ErrorAs(t, err, &queryErr)
		assert.Equal(t, ToolNotFound, queryErr.Kind)
	})

	t.Run("failing tool", func(t *testing.T) {
		path, err := exec.LookPath("false")
		if err != nil {
			t.Skip("false not available")
		}
		q := New(path, time.Second, zap.NewNop())
		_, err = q.Query(context.Background())

		var queryErr *DeviceQueryError
		require.ErrorAs(t, err, &queryErr)
		assert.Equal(t, ToolFailed, queryErr.Kind)
		assert.Contains(t, err.Error(), "Failed to query GPU")
	})

	t.Run("unexpected output", func(t *testing.T) {
		path, err := exec.LookPath("echo")
		if err != nil {
			t.Skip("echo not available")
		}
		q := New(path, time.Second, zap.NewNop())
		_, err = q.Query(context.Background())

		var queryErr *DeviceQueryError
		require.ErrorAs(t, err, &queryErr)
		assert.Equal(t, Unparsable, queryErr.Kind)
	})
}
