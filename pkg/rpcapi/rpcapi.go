// Package rpcapi describes the angstrom JSON-RPC namespace as Go
// interfaces and types; no HTTP/WS server is implemented here. A host
// process wires a concrete Service onto whatever RPC transport it
// chooses.
package rpcapi

import (
	"context"

	"github.com/angstrom-protocol/angstrom/internal/orderpool"
	"github.com/angstrom-protocol/angstrom/pkg/types"
)

// Service is the angstrom namespace's full method set.
type Service interface {
	// SendOrder admits a single externally-submitted order into the pool.
	SendOrder(ctx context.Context, order types.AllOrders) (types.OrderHash, error)
	// SendOrders admits a batch; each is validated independently and the
	// per-order outcome is reported back in submission order.
	SendOrders(ctx context.Context, orders []types.AllOrders) ([]SendResult, error)

	// PendingOrder returns a single order's current OrderWithStorageData,
	// if it is currently pending or parked.
	PendingOrder(ctx context.Context, hash types.OrderHash) (*types.OrderWithStorageData[types.AllOrders], bool, error)
	// PendingOrders returns every order currently pending across every
	// pool, optionally narrowed by poolId.
	PendingOrders(ctx context.Context, poolId *types.Hash) ([]*types.OrderWithStorageData[types.AllOrders], error)

	// CancelOrder cancels a single order on behalf of user.
	CancelOrder(ctx context.Context, user types.Address, hash types.OrderHash) (bool, error)
	// CancelOrders cancels a batch; returns which hashes were actually
	// removed.
	CancelOrders(ctx context.Context, user types.Address, hashes []types.OrderHash) ([]types.OrderHash, error)

	// EstimateGas simulates order's gas cost in token-0 terms without
	// admitting it to the pool.
	EstimateGas(ctx context.Context, order types.AllOrders) (gasT0 string, gasUnits uint64, err error)

	// OrderStatus reports a single order's coarse lifecycle state.
	OrderStatus(ctx context.Context, hash types.OrderHash) (orderpool.OrderStatus, error)
	// OrderStatuses reports a batch in one round trip.
	OrderStatuses(ctx context.Context, hashes []types.OrderHash) ([]orderpool.OrderStatus, error)

	// ValidNonce reports whether nonce is currently unused for owner,
	// reading the same bit-packed nonce bitmap validation consults.
	ValidNonce(ctx context.Context, owner types.Address, nonce uint64) (bool, error)

	// OrdersByPair returns every order currently resting in the book for
	// one (tokenIn, tokenOut) pair.
	OrdersByPair(ctx context.Context, tokenIn, tokenOut types.Address) ([]*types.OrderWithStorageData[types.AllOrders], error)
	// OrdersByPairs is the batch form of OrdersByPair.
	OrdersByPairs(ctx context.Context, pairs []TokenPair) (map[TokenPair][]*types.OrderWithStorageData[types.AllOrders], error)

	// SubscribeOrders opens a live feed of pool events narrowed by kinds
	// and filter. The
	// returned Subscription must be closed by the caller.
	SubscribeOrders(ctx context.Context, kinds []orderpool.EventKind, filter OrderFilter) (Subscription[orderpool.Event], error)

	// ConsensusGetCurrentLeader returns the validator address elected to
	// lead the given block height.
	ConsensusGetCurrentLeader(ctx context.Context, blockHeight uint64) (types.Address, error)
	// ConsensusFetchConsensusState returns a snapshot of the currently
	// active round's phase and tallies.
	ConsensusFetchConsensusState(ctx context.Context) (ConsensusState, error)
	// SubscribeEmptyBlockAttestations opens a live feed of signed
	// empty-block attestations.
	SubscribeEmptyBlockAttestations(ctx context.Context) (Subscription[types.AttestAngstromBlockEmpty], error)
}

// SendResult is one order's outcome from a SendOrders batch call.
type SendResult struct {
	Hash types.OrderHash
	Err  error
}

// TokenPair is an unordered (tokenIn, tokenOut) pair key for OrdersByPairs.
type TokenPair struct {
	TokenIn  types.Address
	TokenOut types.Address
}

// FilterKind mirrors internal/events.FilterKind for the wire-facing API,
// kept as its own type so rpcapi has no dependency on the event hub's
// internal bookkeeping.
type FilterKind uint8

const (
	FilterNone FilterKind = iota
	FilterByPair
	FilterByAddress
	FilterOnlyTOB
	FilterOnlyBook
)

// OrderFilter narrows a SubscribeOrders call to a pool, a signer address,
// top-of-block orders only, or book orders only.
type OrderFilter struct {
	Kind    FilterKind
	PoolId  types.Hash
	Address types.Address
}

// ConsensusState answers consensus_fetchConsensusState.
type ConsensusState struct {
	BlockHeight  uint64
	Phase        string
	Leader       types.Address
	PreProposals int
	Aggregations int
}

// Subscription is a generic live feed; callers read Events until Close is
// called or the underlying hub drops the channel.
type Subscription[T any] interface {
	Events() <-chan T
	Close()
}
