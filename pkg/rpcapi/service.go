package rpcapi

import (
	"context"
	"fmt"

	"github.com/angstrom-protocol/angstrom/internal/events"
	"github.com/angstrom-protocol/angstrom/internal/orderpool"
	"github.com/angstrom-protocol/angstrom/internal/validatorset"
	"github.com/angstrom-protocol/angstrom/pkg/types"
	"github.com/holiman/uint256"
)

// RoundStateProvider reports a snapshot of the currently active consensus
// round. The consensus package's
// Round is not exposed directly to avoid a dependency cycle; a thin
// adapter in the node's wiring layer implements this.
type RoundStateProvider interface {
	CurrentState() ConsensusState
}

// NonceChecker answers validNonce by consulting the same state view
// validation's stateful check reads.
type NonceChecker interface {
	CheckNonce(ctx context.Context, owner types.Address, nonce uint64) (bool, error)
}

// GasEstimator simulates an order's gas cost without admitting it to the
// pool.
type GasEstimator interface {
	EstimateGas(ctx context.Context, order types.AllOrders) (gasT0 *uint256.Int, gasUnits uint64, err error)
}

// service is the concrete, in-process implementation of Service: thin
// glue over the order pool, the event hub, the validator set, and whatever
// gas/nonce/consensus collaborators the host wires in. No network
// transport lives here.
type service struct {
	pool       *orderpool.OrderPool
	hub        *events.Hub
	validators *validatorset.Set
	nonces     NonceChecker
	gas        GasEstimator
	round      RoundStateProvider
}

// NewService builds the in-process Service implementation. round may be
// nil if consensus state reporting is not wired yet; nonces/gas may be nil
// if the corresponding methods are unused by the host.
func NewService(pool *orderpool.OrderPool, hub *events.Hub, validators *validatorset.Set, nonces NonceChecker, gas GasEstimator, round RoundStateProvider) Service {
	return &service{pool: pool, hub: hub, validators: validators, nonces: nonces, gas: gas, round: round}
}

func (s *service) SendOrder(ctx context.Context, order types.AllOrders) (types.OrderHash, error) {
	return s.pool.Add(ctx, orderpool.External, order)
}

func (s *service) SendOrders(ctx context.Context, orders []types.AllOrders) ([]SendResult, error) {
	results := make([]SendResult, len(orders))
	for i, o := range orders {
		hash, err := s.pool.Add(ctx, orderpool.External, o)
		results[i] = SendResult{Hash: hash, Err: err}
	}
	return results, nil
}

func (s *service) PendingOrder(ctx context.Context, hash types.OrderHash) (*types.OrderWithStorageData[types.AllOrders], bool, error) {
	for _, poolId := range s.pool.PoolIds() {
		for _, loc := range []orderpool.Location{orderpool.PendingLocation, orderpool.ParkedLocation} {
			for _, o := range s.pool.OrdersByPool(poolId, loc) {
				if o.OrderId == hash {
					return o, true, nil
				}
			}
		}
	}
	return nil, false, nil
}

func (s *service) PendingOrders(ctx context.Context, poolId *types.Hash) ([]*types.OrderWithStorageData[types.AllOrders], error) {
	ids := s.pool.PoolIds()
	if poolId != nil {
		ids = []types.Hash{*poolId}
	}
	var out []*types.OrderWithStorageData[types.AllOrders]
	for _, id := range ids {
		out = append(out, s.pool.OrdersByPool(id, orderpool.PendingLocation)...)
	}
	return out, nil
}

func (s *service) CancelOrder(ctx context.Context, user types.Address, hash types.OrderHash) (bool, error) {
	return s.pool.Cancel(user, hash), nil
}

func (s *service) CancelOrders(ctx context.Context, user types.Address, hashes []types.OrderHash) ([]types.OrderHash, error) {
	var removed []types.OrderHash
	for _, h := range hashes {
		if s.pool.Cancel(user, h) {
			removed = append(removed, h)
		}
	}
	return removed, nil
}

func (s *service) EstimateGas(ctx context.Context, order types.AllOrders) (string, uint64, error) {
	if s.gas == nil {
		return "", 0, fmt.Errorf("rpcapi: gas estimation not configured")
	}
	gasT0, gasUnits, err := s.gas.EstimateGas(ctx, order)
	if err != nil {
		return "", 0, err
	}
	return gasT0.String(), gasUnits, nil
}

func (s *service) OrderStatus(ctx context.Context, hash types.OrderHash) (orderpool.OrderStatus, error) {
	return s.pool.Status(hash), nil
}

func (s *service) OrderStatuses(ctx context.Context, hashes []types.OrderHash) ([]orderpool.OrderStatus, error) {
	out := make([]orderpool.OrderStatus, len(hashes))
	for i, h := range hashes {
		out[i] = s.pool.Status(h)
	}
	return out, nil
}

func (s *service) ValidNonce(ctx context.Context, owner types.Address, nonce uint64) (bool, error) {
	if s.nonces == nil {
		return false, fmt.Errorf("rpcapi: nonce checking not configured")
	}
	return s.nonces.CheckNonce(ctx, owner, nonce)
}

func (s *service) OrdersByPair(ctx context.Context, tokenIn, tokenOut types.Address) ([]*types.OrderWithStorageData[types.AllOrders], error) {
	var out []*types.OrderWithStorageData[types.AllOrders]
	for _, poolId := range s.pool.PoolIds() {
		for _, o := range s.pool.OrdersByPool(poolId, orderpool.PendingLocation) {
			if (o.Order.TokenIn() == tokenIn && o.Order.TokenOut() == tokenOut) ||
				(o.Order.TokenIn() == tokenOut && o.Order.TokenOut() == tokenIn) {
				out = append(out, o)
			}
		}
	}
	return out, nil
}

func (s *service) OrdersByPairs(ctx context.Context, pairs []TokenPair) (map[TokenPair][]*types.OrderWithStorageData[types.AllOrders], error) {
	out := make(map[TokenPair][]*types.OrderWithStorageData[types.AllOrders], len(pairs))
	for _, p := range pairs {
		orders, err := s.OrdersByPair(ctx, p.TokenIn, p.TokenOut)
		if err != nil {
			return nil, err
		}
		out[p] = orders
	}
	return out, nil
}

func (s *service) SubscribeOrders(ctx context.Context, kinds []orderpool.EventKind, filter OrderFilter) (Subscription[orderpool.Event], error) {
	sub, cancel := s.hub.SubscribeOrders(kinds, events.Filter{
		Kind:    events.FilterKind(filter.Kind),
		PoolId:  filter.PoolId,
		Address: filter.Address,
	})
	return NewSubscription[orderpool.Event](sub.Events(), cancel), nil
}

func (s *service) ConsensusGetCurrentLeader(ctx context.Context, blockHeight uint64) (types.Address, error) {
	return s.validators.LeaderAt(blockHeight)
}

func (s *service) ConsensusFetchConsensusState(ctx context.Context) (ConsensusState, error) {
	if s.round == nil {
		return ConsensusState{}, fmt.Errorf("rpcapi: consensus state reporting not configured")
	}
	return s.round.CurrentState(), nil
}

func (s *service) SubscribeEmptyBlockAttestations(ctx context.Context) (Subscription[types.AttestAngstromBlockEmpty], error) {
	ch, cancel := s.hub.SubscribeEmptyBlockAttestations()
	return NewSubscription[types.AttestAngstromBlockEmpty](ch, cancel), nil
}
