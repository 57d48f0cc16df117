package node

import (
	"context"

	"github.com/angstrom-protocol/angstrom/internal/config"
	"github.com/angstrom-protocol/angstrom/internal/validation"
	"github.com/angstrom-protocol/angstrom/pkg/types"
)

// pairKey is an unordered (token0, token1) pair: the same two addresses in
// either order resolve to the same configured pool.
type pairKey struct {
	lo, hi types.Address
}

func newPairKey(a, b types.Address) pairKey {
	if string(a[:]) <= string(b[:]) {
		return pairKey{lo: a, hi: b}
	}
	return pairKey{lo: b, hi: a}
}

// poolRegistry resolves a pair of asset addresses to the angstrom pool the
// node's own config declares it for — no on-chain factory lookup needed,
// since config.PoolKeyConfig is itself the node's source of truth for
// which pools it serves.
type poolRegistry struct {
	byPair map[pairKey]config.PoolKeyConfig
}

func newPoolRegistry(keys []config.PoolKeyConfig) *poolRegistry {
	r := &poolRegistry{byPair: make(map[pairKey]config.PoolKeyConfig, len(keys))}
	for _, k := range keys {
		r.byPair[newPairKey(k.Token0, k.Token1)] = k
	}
	return r
}

// Resolve implements validation.PoolRegistry: isBid is true when assetIn is
// the pool's Token1 (selling the quote asset for the base asset), matching
// the bid/ask convention the matching engine's ammIsBid flag uses.
func (r *poolRegistry) Resolve(assetIn, assetOut types.Address) (poolId types.Hash, isBid bool, ok bool) {
	key, found := r.byPair[newPairKey(assetIn, assetOut)]
	if !found {
		return types.Hash{}, false, false
	}
	return key.PoolId, assetIn == key.Token1, true
}

// nonceChecker adapts internal/validation.CheckNonce to rpcapi.NonceChecker.
type nonceChecker struct {
	sv validation.StateView
}

func (n nonceChecker) CheckNonce(ctx context.Context, owner types.Address, nonce uint64) (bool, error) {
	if n.sv == nil {
		return false, nil
	}
	return validation.CheckNonce(ctx, n.sv, owner, nonce)
}
