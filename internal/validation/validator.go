package validation

import (
	"context"

	"github.com/angstrom-protocol/angstrom/pkg/types"
)

// Validator runs the five-step pipeline against a single
// order: static checks, pool resolution, signature verification, stateful
// balance/approval/nonce checks, and EVM gas simulation. It holds no
// per-call state beyond its collaborators, so one Validator is shared by
// every worker in the key-partitioned pool (pool_executor.go).
type Validator struct {
	pools  PoolRegistry
	cv     ContractVerifier
	sv     StateView
	slots  *SlotCache
	sim    EVMSimulator
	oracle GasOracle
}

func NewValidator(pools PoolRegistry, cv ContractVerifier, sv StateView, sim EVMSimulator, oracle GasOracle) *Validator {
	return &Validator{pools: pools, cv: cv, sv: sv, slots: NewSlotCache(), sim: sim, oracle: oracle}
}

// Validate runs the full pipeline for o at blockNumber. A non-nil *Error is
// a reject-and-notify failure: the order must never enter the pool. A nil
// error with a non-nil StateError on the returned value means the order is
// admitted but parked.
func (v *Validator) Validate(ctx context.Context, o types.AllOrders, blockNumber uint64) (*types.OrderWithStorageData[types.AllOrders], *Error) {
	if verr := staticCheck(o); verr != nil {
		return nil, verr
	}

	poolId, isBid, verr := resolvePool(v.pools, o)
	if verr != nil {
		return nil, verr
	}

	if verr := verifySignature(ctx, v.cv, o); verr != nil {
		return nil, verr
	}

	stateErr, err := stateCheck(ctx, v.sv, v.sim, v.slots, o, blockNumber)
	if err != nil {
		return nil, newErr(ErrStateCheckUnavailable, o.OrderHash(), "state check unavailable: "+err.Error())
	}

	gasT0, gasUnits, verr := simulateGas(ctx, v.sim, v.oracle, poolId, o, blockNumber)
	if verr != nil {
		return nil, verr
	}

	volume := o.MinFillAmount
	result := &types.OrderWithStorageData[types.AllOrders]{
		Order:            o,
		OrderId:          o.OrderHash(),
		PoolId:           poolId,
		IsBid:            isBid,
		IsValid:          true,
		IsCurrentlyValid: stateErr,
		ValidBlock:       blockNumber,
		Priority: types.PriorityData{
			Price:     o.Price,
			Volume:    volume,
			GasT0:     gasT0,
			GasUnits:  gasUnits,
			IsPartial: o.Kind.IsPartial(),
		},
	}
	return result, nil
}
