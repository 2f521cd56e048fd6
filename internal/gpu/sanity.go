package gpu

import (
	"context"
	"fmt"

	"github.com/fxnlabs/matrix-node/internal/matrix"
	"github.com/fxnlabs/matrix-node/internal/verify"
)

// SanityLength is the number of elements in the sanity check operands.
const SanityLength = 1000

// SanityReport describes a completed sanity check.
type SanityReport struct {
	Backend string
	Device  DeviceInfo
	Label   string
	Result  *Result
	First   []float32
}

// SanityCheck adds arange(SanityLength) and ones(SanityLength) as a
// 1×SanityLength pair on the manager's backend and verifies the sum on the
// host.
func SanityCheck(ctx context.Context, mgr *Manager) (*SanityReport, error) {
	data := make([]float32, SanityLength)
	for i := range data {
		data[i] = float32(i)
	}
	a, err := matrix.New(1, SanityLength, data)
	if err != nil {
		return nil, err
	}
	b := matrix.Filled(1, SanityLength, 1)

	pair, err := matrix.Validate(a, b)
	if err != nil {
		return nil, err
	}

	res, err := mgr.Add(ctx, pair)
	if err != nil {
		return nil, fmt.Errorf("sanity add failed: %w", err)
	}
	if err := verify.VerifySum(a, b, res.Matrix, 0); err != nil {
		return nil, fmt.Errorf("sanity result incorrect: %w", err)
	}

	return &SanityReport{
		Backend: mgr.GetBackendType(),
		Device:  mgr.GetDeviceInfo(),
		Label:   res.Device,
		Result:  res,
		First:   res.Matrix.Data[:5],
	}, nil
}
