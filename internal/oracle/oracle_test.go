package oracle

import (
	"context"
	"testing"

	"github.com/angstrom-protocol/angstrom/pkg/ray"
	"github.com/angstrom-protocol/angstrom/pkg/types"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestGasToT0RejectsUnknownPool(t *testing.T) {
	require := require.New(t)

	o := New()
	_, err := o.GasToT0(context.Background(), types.Hash{1}, uint256.NewInt(100))
	require.Error(err)
}

func TestSetFactorThenGasToT0Converts(t *testing.T) {
	require := require.New(t)

	o := New()
	pool := types.Hash{1}
	o.SetFactor(pool, ray.FromUint64(2)) // 1 wei -> 2 token0 units

	t0, err := o.GasToT0(context.Background(), pool, uint256.NewInt(100))
	require.NoError(err)
	require.Equal(uint256.NewInt(200), t0)
}

func TestSetFactorReplacesExistingFactor(t *testing.T) {
	require := require.New(t)

	o := New()
	pool := types.Hash{1}
	o.SetFactor(pool, ray.FromUint64(2))
	o.SetFactor(pool, ray.FromUint64(5))

	t0, err := o.GasToT0(context.Background(), pool, uint256.NewInt(10))
	require.NoError(err)
	require.Equal(uint256.NewInt(50), t0)
}

func TestFactorsAreIndependentPerPool(t *testing.T) {
	require := require.New(t)

	o := New()
	a, b := types.Hash{1}, types.Hash{2}
	o.SetFactor(a, ray.FromUint64(1))
	o.SetFactor(b, ray.FromUint64(3))

	got, err := o.GasToT0(context.Background(), a, uint256.NewInt(10))
	require.NoError(err)
	require.Equal(uint256.NewInt(10), got)

	got, err = o.GasToT0(context.Background(), b, uint256.NewInt(10))
	require.NoError(err)
	require.Equal(uint256.NewInt(30), got)
}
