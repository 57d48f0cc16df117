package validation

import (
	"context"
	"fmt"

	"github.com/angstrom-protocol/angstrom/pkg/types"
	"github.com/holiman/uint256"
)

// EVMSimulator runs a candidate order against a forked EVM state to measure
// the gas it would actually cost to settle, so validation can reject orders
// that can't cover their own gas. The concrete EVM
// backend (e.g. a revm/geth state-test harness) is a host-supplied
// collaborator — reimplementing a full EVM is out of scope for this
// package, exactly as the AMM pool math is consumed as a black box by
// internal/matching.
type EVMSimulator interface {
	SimulateOrderGas(ctx context.Context, order types.AllOrders, blockNumber uint64) (gasUnits uint64, err error)

	// SimulateCall runs calldata as a call into contract's bytecode at
	// blockNumber, after applying a single storage-slot override, and
	// returns the call's raw return data. Used by slot discovery: a sentinel value is written to the candidate slot via
	// overrideSlot/overrideValue and the token's own balanceOf/allowance
	// entry point is invoked through this simulator so the *return value*,
	// not a raw storage read, confirms the offset.
	SimulateCall(ctx context.Context, contract types.Address, calldata []byte, overrideSlot, overrideValue types.Hash, blockNumber uint64) ([]byte, error)
}

// GasOracle converts a gas cost denominated in wei of the chain's native
// asset into token-0 units, so it can be compared against MaxGasT0.
type GasOracle interface {
	GasToT0(ctx context.Context, pool types.Hash, gasWei *uint256.Int) (*uint256.Int, error)
}

// gasWeiPerUnit is the chain's current base fee estimate used to convert
// simulated gas units into wei; supplied by the same collaborator that
// drives block inclusion, exposed here as a simple field so tests can fix
// it without standing up a full fee-market model.
var gasWeiPerUnit = uint256.NewInt(1)

// simulateGas runs step 5: simulate, convert to token-0, and reject the
// order outright if its own MaxGasT0 budget can't cover the result.
func simulateGas(ctx context.Context, sim EVMSimulator, oracle GasOracle, poolId types.Hash, o types.AllOrders, blockNumber uint64) (*uint256.Int, uint64, *Error) {
	units, err := sim.SimulateOrderGas(ctx, o, blockNumber)
	if err != nil {
		return nil, 0, newErr(ErrNotEnoughGas, o.OrderHash(), fmt.Sprintf("gas simulation failed: %v", err))
	}
	wei := new(uint256.Int).Mul(uint256.NewInt(units), gasWeiPerUnit)
	gasT0, err := oracle.GasToT0(ctx, poolId, wei)
	if err != nil {
		return nil, 0, newErr(ErrNotEnoughGas, o.OrderHash(), fmt.Sprintf("gas-to-token0 conversion failed: %v", err))
	}
	if gasT0.Cmp(o.MaxGasT0) > 0 {
		return nil, 0, newErr(ErrNotEnoughGas, o.OrderHash(), "simulated gas exceeds order's max_gas_t0")
	}
	return gasT0, units, nil
}
