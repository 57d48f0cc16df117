package matching

import (
	"context"
	"math/big"
	"testing"

	"github.com/angstrom-protocol/angstrom/pkg/ray"
	"github.com/angstrom-protocol/angstrom/pkg/types"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

// sqrtPriceForMultiple returns a sqrt-price-X96 value whose
// PriceFromSqrtPriceX96 is exactly mult^2: sqrtPriceX96 = mult * Q96.
func sqrtPriceForMultiple(mult uint64) *uint256.Int {
	q96 := new(big.Int).Lsh(big.NewInt(1), 96)
	q96.Mul(q96, big.NewInt(int64(mult)))
	v, overflow := uint256.FromBig(q96)
	if overflow {
		panic("overflow")
	}
	return v
}

// inertSnapshot has no AMM participation at any price: DeltaT0ForPrice is
// always zero, so the clearing price is determined purely by the resting
// book, and TicksCrossed never returns anything to donate.
type inertSnapshot struct {
	price ray.Ray
}

func (s inertSnapshot) CurrentPrice() ray.Ray { return s.price }
func (s inertSnapshot) DeltaT0ForPrice(ctx context.Context, target ray.Ray) (*big.Int, error) {
	return big.NewInt(0), nil
}
func (s inertSnapshot) TicksCrossed(ctx context.Context, target ray.Ray) ([]Tick, error) {
	return nil, nil
}

func order(hash byte, kind types.OrderKind, priceMultiple uint64, qty uint64) *types.OrderWithStorageData[types.AllOrders] {
	var h types.OrderHash
	h[0] = hash
	return &types.OrderWithStorageData[types.AllOrders]{
		OrderId: h,
		Order: types.AllOrders{
			Kind:          kind,
			Price:         sqrtPriceForMultiple(priceMultiple),
			MinFillAmount: uint256.NewInt(qty),
		},
	}
}

func TestSolveCrossesBookAtUniformPrice(t *testing.T) {
	require := require.New(t)

	// Bid at price 4 (mult=2 -> 2^2=4), ask at price 1 (mult=1): they cross.
	bid := order(1, types.ExactStanding, 2, 100)
	ask := order(2, types.ExactStanding, 1, 100)

	snap := inertSnapshot{price: ray.FromUint64(2)} // between 1 and 4
	sol, err := Solve(context.Background(), types.Hash{1}, snap,
		[]*types.OrderWithStorageData[types.AllOrders]{bid},
		[]*types.OrderWithStorageData[types.AllOrders]{ask}, nil)
	require.NoError(err)
	require.NotNil(sol)
	require.Len(sol.FilledOrders, 2)
	require.False(sol.HasAmmLeg, "inert AMM should report no participation")
}

func TestSolveUncrossableBookErrors(t *testing.T) {
	require := require.New(t)

	// Bid at price 1, ask at price 4: no overlap and an inert AMM.
	bid := order(1, types.ExactStanding, 1, 100)
	ask := order(2, types.ExactStanding, 2, 100)

	snap := inertSnapshot{price: ray.FromUint64(1)}
	_, err := Solve(context.Background(), types.Hash{1}, snap,
		[]*types.OrderWithStorageData[types.AllOrders]{bid},
		[]*types.OrderWithStorageData[types.AllOrders]{ask}, nil)
	require.ErrorIs(err, ErrUncrossable)
}

func TestSolveIsDeterministicAcrossRuns(t *testing.T) {
	require := require.New(t)

	bid := order(1, types.ExactStanding, 2, 100)
	ask := order(2, types.ExactStanding, 1, 100)
	snap := inertSnapshot{price: ray.FromUint64(2)}

	sol1, err := Solve(context.Background(), types.Hash{1}, snap,
		[]*types.OrderWithStorageData[types.AllOrders]{bid},
		[]*types.OrderWithStorageData[types.AllOrders]{ask}, nil)
	require.NoError(err)

	sol2, err := Solve(context.Background(), types.Hash{1}, snap,
		[]*types.OrderWithStorageData[types.AllOrders]{bid},
		[]*types.OrderWithStorageData[types.AllOrders]{ask}, nil)
	require.NoError(err)

	require.Equal(sol1.Ucp, sol2.Ucp)
	require.Equal(sol1.PoolSolution, sol2.PoolSolution)
}
