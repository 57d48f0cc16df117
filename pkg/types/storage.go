package types

import (
	"github.com/angstrom-protocol/angstrom/pkg/ray"
	"github.com/holiman/uint256"
)

// TopOfBlockOrder is a searcher order: an AllOrders value whose Kind is
// always TopOfBlock. Kept as a distinct name because the searcher sub-pool
// and PreProposal.Searcher only ever hold this shape.
type TopOfBlockOrder = AllOrders

// OrderHash identifies an order by its canonical hash.
type OrderHash = Hash

// StateErrorKind classifies why an order currently fails its stateful
// check.
type StateErrorKind uint8

const (
	StateErrNone StateErrorKind = iota
	StateErrInsufficientBalance
	StateErrInsufficientApproval
	StateErrInsufficientBoth
	StateErrBadBlock
	StateErrDuplicateNonce
	StateErrNonEmptyHook
)

func (k StateErrorKind) String() string {
	switch k {
	case StateErrNone:
		return "None"
	case StateErrInsufficientBalance:
		return "InsufficientBalance"
	case StateErrInsufficientApproval:
		return "InsufficientApproval"
	case StateErrInsufficientBoth:
		return "InsufficientBoth"
	case StateErrBadBlock:
		return "BadBlock"
	case StateErrDuplicateNonce:
		return "DuplicateNonce"
	case StateErrNonEmptyHook:
		return "NonEmptyHook"
	default:
		return "Unknown"
	}
}

// StateError is a classified stateful-validation failure, cached on a
// parked order so OrderPool.status() can answer Blocked{...}.
type StateError struct {
	Kind           StateErrorKind
	Token          Address
	ApprovalNeeded *uint256.Int
	BalanceNeeded  *uint256.Int
}

func (e *StateError) Error() string {
	if e == nil {
		return "types: nil state error"
	}
	return "state error: " + e.Kind.String()
}

// PriorityData is the sort key the order pool's bid/ask indices order by:
// price, then volume, then token-0 gas, then raw gas units.
type PriorityData struct {
	Price     *uint256.Int
	Volume    *uint256.Int
	GasT0     *uint256.Int
	GasUnits  uint64
	IsPartial bool
}

// OrderWithStorageData wraps an order with everything the pool and
// consensus need beyond the signed payload itself.
type OrderWithStorageData[O any] struct {
	Order            O
	OrderId          OrderHash
	PoolId           Hash
	IsBid            bool
	IsValid          bool
	IsCurrentlyValid *StateError // nil means no state error (pending)
	Priority         PriorityData
	ValidBlock       uint64
	Invalidates      []OrderHash
	TobReward        ray.Ray
}
