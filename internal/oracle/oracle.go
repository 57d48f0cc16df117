// Package oracle tracks the token-0 conversion factor for every angstrom
// pool's gas-payment asset, so validation's gas-simulation step can turn a simulated gas cost in wei into the order's own
// token-0 accounting.
package oracle

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/angstrom-protocol/angstrom/pkg/ray"
	"github.com/angstrom-protocol/angstrom/pkg/types"
	"github.com/holiman/uint256"
)

// Oracle holds one conversion factor per pool: how many token-0 units one
// wei of the chain's native gas asset is worth, expressed as a Ray so the
// same 27-decimal arithmetic the matching engine uses applies here too.
type Oracle struct {
	mu      sync.RWMutex
	factors map[types.Hash]ray.Ray
}

func New() *Oracle {
	return &Oracle{factors: make(map[types.Hash]ray.Ray)}
}

// SetFactor installs or replaces the conversion factor for poolId. Called
// whenever the pool's AMM snapshot is refreshed, since the factor tracks
// the pool's current token-0/native price.
func (o *Oracle) SetFactor(poolId types.Hash, factor ray.Ray) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.factors[poolId] = factor
}

// GasToT0 converts gasWei into token-0 units: gas_in_t0 =
// gas_wei * factor / 10^27, rounded down.
func (o *Oracle) GasToT0(ctx context.Context, poolId types.Hash, gasWei *uint256.Int) (*uint256.Int, error) {
	o.mu.RLock()
	factor, ok := o.factors[poolId]
	o.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("oracle: no conversion factor for pool %s", poolId)
	}
	num := new(big.Int).Mul(gasWei.ToBig(), factor.Int.ToBig())
	q := new(big.Int).Quo(num, ray.Scale().ToBig())
	out, overflow := uint256.FromBig(q)
	if overflow {
		return nil, fmt.Errorf("oracle: gas-to-token0 conversion overflows 256 bits")
	}
	return out, nil
}
