// Package validation implements the order validation pipeline: static checks, pool resolution, signature recovery, stateful
// balance/approval/nonce checks, and EVM gas simulation, run on a worker
// pool keyed by signer address that runs at most PerUserConcurrency tasks
// per signer at once. Tasks of one signer are not ordered: they may start
// and finish in any order.
package validation

import (
	"fmt"

	"github.com/angstrom-protocol/angstrom/pkg/types"
)

// ErrorKind enumerates the reject-and-notify order-validation errors.
// StateError is a distinct, cache-on-order type handled
// separately — see types.StateError.
type ErrorKind uint8

const (
	ErrInvalidSignature ErrorKind = iota
	ErrInvalidPool
	ErrNotEnoughGas
	ErrInvalidToBSwap
	ErrInvalidPartialOrder
	ErrDuplicateOrder
	ErrInvalidOrderAtBlock
	ErrNoAmountSpecified
	ErrNoGasSpecified
	ErrNoPriceSpecified
	ErrPriceOutOfPoolBounds
	ErrMaxGasGreaterThanMinAmount
	ErrCancelledOrder
	// ErrStateCheckUnavailable is not a verdict about the order: it's
	// raised when the state-check collaborators themselves fail (slot
	// discovery exhausted, RPC error), which is an infrastructure failure
	// distinct from a classified StateError and must not be conflated with
	// ErrNotEnoughGas.
	ErrStateCheckUnavailable
)

func (k ErrorKind) String() string {
	names := [...]string{
		"InvalidSignature", "InvalidPool", "NotEnoughGas", "InvalidToBSwap",
		"InvalidPartialOrder", "DuplicateOrder", "InvalidOrderAtBlock",
		"NoAmountSpecified", "NoGasSpecified", "NoPriceSpecified",
		"PriceOutOfPoolBounds", "MaxGasGreaterThanMinAmount", "CancelledOrder",
		"StateCheckUnavailable",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "Unknown"
}

// Error is a terminal, reject-and-notify validation failure: the order
// never enters the pool.
type Error struct {
	Kind      ErrorKind
	OrderHash types.OrderHash
	Detail    string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("validation: %s", e.Kind)
	}
	return fmt.Sprintf("validation: %s: %s", e.Kind, e.Detail)
}

func newErr(kind ErrorKind, hash types.OrderHash, detail string) *Error {
	return &Error{Kind: kind, OrderHash: hash, Detail: detail}
}
