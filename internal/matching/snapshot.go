// Package matching implements the per-pool binary-search uniform-clearing-
// price solver here: it jointly crosses a resting limit
// book against an AMM snapshot and emits a settlement solution plus the
// donation owed to the liquidity ticks the AMM swap touched.
package matching

import (
	"context"
	"math/big"

	"github.com/angstrom-protocol/angstrom/pkg/ray"
	"github.com/holiman/uint256"
)

// Tick is one liquidity tick the AMM swap sweeps through, used only to
// compute the donation breakdown.
type Tick struct {
	SqrtPriceX96   *uint256.Int
	LiquidityGross *uint256.Int
}

// PoolSnapshot is the AMM collaborator: a point-in-time, immutable view of
// one pool's concentrated-liquidity curve. Angstrom's actual tick math
// (Uniswap v4 hooks) is explicitly out of scope here — this package treats
// it as a black box, exactly as it treats the chain node itself.
type PoolSnapshot interface {
	// CurrentPrice is the AMM's spot price before this block's settlement,
	// expressed in the same Ray units as order limit prices.
	CurrentPrice() ray.Ray

	// DeltaT0ForPrice returns the signed token-0 amount the AMM must
	// receive (positive) or pay out (negative) to move its price from
	// CurrentPrice to target — the A(P) term the bisection balances against.
	DeltaT0ForPrice(ctx context.Context, target ray.Ray) (*big.Int, error)

	// TicksCrossed returns, in sweep order, every liquidity tick the move
	// to target price would cross.
	TicksCrossed(ctx context.Context, target ray.Ray) ([]Tick, error)
}
