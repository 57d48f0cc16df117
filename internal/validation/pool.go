package validation

import "github.com/angstrom-protocol/angstrom/pkg/types"

// PoolRegistry resolves an (assetIn, assetOut) pair to the angstrom pool
// that can settle it and which side of the book the order lands on. Implementations are typically backed by the chain's pool
// manager contract state, mirrored locally; this package only consumes the
// interface.
type PoolRegistry interface {
	Resolve(assetIn, assetOut types.Address) (poolId types.Hash, isBid bool, ok bool)
}

// resolvePool looks order up in reg and reports the reject-and-notify
// InvalidPool error when no angstrom pool serves the pair.
func resolvePool(reg PoolRegistry, o types.AllOrders) (types.Hash, bool, *Error) {
	poolId, isBid, ok := reg.Resolve(o.AssetIn, o.AssetOut)
	if !ok {
		return types.Hash{}, false, newErr(ErrInvalidPool, o.OrderHash(), "no angstrom pool for asset pair")
	}
	return poolId, isBid, nil
}
