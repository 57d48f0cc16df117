package orderpool

import (
	"context"
	"sync"

	"github.com/angstrom-protocol/angstrom/internal/obs"
	"github.com/angstrom-protocol/angstrom/internal/validation"
	"github.com/angstrom-protocol/angstrom/pkg/types"
	"github.com/angstrom-protocol/angstrom/pkg/wire"
)

// Broadcaster forwards a non-Private order to the rest of the network
// . network.Manager satisfies this without orderpool needing to
// import the network package's full surface.
type Broadcaster interface {
	Broadcast(msg wire.StromProtocolMessage)
}

type poolState struct {
	pending  *PendingPool[types.AllOrders]
	parked   *ParkedPool
	searcher *PendingPool[types.TopOfBlockOrder]
}

func newPoolState() *poolState {
	return &poolState{
		pending:  NewPendingPool[types.AllOrders](),
		parked:   NewParkedPool(),
		searcher: NewPendingPool[types.TopOfBlockOrder](),
	}
}

// location records exactly where a live (non-finalized) order currently
// sits, so cancel/status/on_new_block don't have to search every pool.
type location struct {
	poolId types.Hash
	at     Location
}

// OrderPool is the single-actor owner of every sub-pool across every
// angstrom pool: the pending and parked limit books, the searcher
// (top-of-block) book, and the shared finalization history. All mutation happens
// behind mu; external callers only ever see snapshots or call its typed
// operations.
type OrderPool struct {
	mu     sync.Mutex
	pools  map[types.Hash]*poolState
	byHash map[types.OrderHash]location
	finals *FinalizationPool

	validator   *validation.Pool
	registry    validation.PoolRegistry
	broadcaster Broadcaster
	subscribers []Subscriber
	log         obs.Logger

	blockNumber uint64
}

func New(validator *validation.Pool, registry validation.PoolRegistry, broadcaster Broadcaster, log obs.Logger) *OrderPool {
	return &OrderPool{
		pools:       make(map[types.Hash]*poolState),
		byHash:      make(map[types.OrderHash]location),
		finals:      NewFinalizationPool(),
		validator:   validator,
		registry:    registry,
		broadcaster: broadcaster,
		log:         log.With("component", "order-pool"),
	}
}

// Subscribe registers s to receive every future pool event.
func (op *OrderPool) Subscribe(s Subscriber) {
	op.mu.Lock()
	defer op.mu.Unlock()
	op.subscribers = append(op.subscribers, s)
}

func (op *OrderPool) dispatch(ev Event) {
	op.mu.Lock()
	subs := append([]Subscriber(nil), op.subscribers...)
	op.mu.Unlock()
	for _, s := range subs {
		s.OnOrderPoolEvent(ev)
	}
}

func (op *OrderPool) poolStateFor(poolId types.Hash) *poolState {
	ps, ok := op.pools[poolId]
	if !ok {
		ps = newPoolState()
		op.pools[poolId] = ps
	}
	return ps
}

// Add validates order and, if admitted, installs it into the correct
// sub-pool; it blocks until validation terminates.
// Private origin suppresses the network broadcast.
func (op *OrderPool) Add(ctx context.Context, origin Origin, order types.AllOrders) (types.OrderHash, error) {
	hash := order.OrderHash()

	op.mu.Lock()
	if _, exists := op.byHash[hash]; exists {
		op.mu.Unlock()
		return hash, &validation.Error{Kind: validation.ErrDuplicateOrder, OrderHash: hash}
	}
	op.mu.Unlock()

	resultCh := make(chan validation.Result, 1)
	op.validator.Submit(order, func(r validation.Result) {
		resultCh <- r
	})

	var result validation.Result
	select {
	case result = <-resultCh:
	case <-ctx.Done():
		return hash, ctx.Err()
	}

	if result.Err != nil {
		return hash, result.Err
	}

	op.install(order, result.Order, pickLocation(result.Order))

	op.dispatch(Event{Kind: NewOrders, PoolId: result.Order.PoolId, Order: order})
	if origin != Private {
		op.broadcaster.Broadcast(wire.StromProtocolMessage{
			MessageId:             wire.MessagePropagatePooledOrders,
			PropagatePooledOrders: []types.AllOrders{order},
		})
	}
	return hash, nil
}

// HandleStromMessage implements network.MessageSink: every order in a
// peer's PropagatePooledOrders message is admitted with External origin,
// one at a time in message order. Other message kinds are ignored.
func (op *OrderPool) HandleStromMessage(from types.PeerId, msg wire.StromProtocolMessage) {
	if msg.MessageId != wire.MessagePropagatePooledOrders {
		return
	}
	for _, order := range msg.PropagatePooledOrders {
		if _, err := op.Add(context.Background(), External, order); err != nil {
			op.log.Debug("peer order rejected", "peer", from, "err", err)
		}
	}
}

func pickLocation(osd *types.OrderWithStorageData[types.AllOrders]) Location {
	switch {
	case osd.Order.Kind == types.TopOfBlock:
		return SearcherLocation
	case osd.IsCurrentlyValid != nil:
		return ParkedLocation
	default:
		return PendingLocation
	}
}

func (op *OrderPool) install(order types.AllOrders, osd *types.OrderWithStorageData[types.AllOrders], at Location) {
	op.mu.Lock()
	defer op.mu.Unlock()
	ps := op.poolStateFor(osd.PoolId)
	switch at {
	case SearcherLocation:
		ps.searcher.Insert(osd)
	case ParkedLocation:
		ps.parked.Insert(osd)
	default:
		ps.pending.Insert(osd)
	}
	op.byHash[order.OrderHash()] = location{poolId: osd.PoolId, at: at}
}

// Cancel removes hash if it exists and was signed by user.
func (op *OrderPool) Cancel(user types.Address, hash types.OrderHash) bool {
	op.mu.Lock()
	loc, ok := op.byHash[hash]
	if !ok {
		op.mu.Unlock()
		return false
	}
	ps := op.pools[loc.poolId]
	var order types.AllOrders
	removed := false
	switch loc.at {
	case SearcherLocation:
		if osd, ok := ps.searcher.Get(hash); ok && osd.Order.Signer() == user {
			ps.searcher.Remove(hash)
			order = osd.Order
			removed = true
		}
	case ParkedLocation:
		if osd, ok := ps.parked.Get(hash); ok && osd.Order.Signer() == user {
			ps.parked.Remove(hash)
			order = osd.Order
			removed = true
		}
	default:
		if osd, ok := ps.pending.Get(hash); ok && osd.Order.Signer() == user {
			ps.pending.Remove(hash)
			order = osd.Order
			removed = true
		}
	}
	if removed {
		delete(op.byHash, hash)
	}
	op.mu.Unlock()

	if removed {
		op.dispatch(Event{Kind: CancelledOrders, PoolId: loc.poolId, Order: order})
	}
	return removed
}

// OrdersByPool returns a snapshot of poolId's orders at the given location
func (op *OrderPool) OrdersByPool(poolId types.Hash, at Location) []*types.OrderWithStorageData[types.AllOrders] {
	op.mu.Lock()
	defer op.mu.Unlock()
	ps, ok := op.pools[poolId]
	if !ok {
		return nil
	}
	switch at {
	case SearcherLocation:
		return ps.searcher.All()
	case ParkedLocation:
		return ps.parked.All()
	default:
		return ps.pending.All()
	}
}

// PoolIds returns every PoolId with at least one sub-pool entry, used by
// consensus to build the local pre-proposal's book.
func (op *OrderPool) PoolIds() []types.Hash {
	op.mu.Lock()
	defer op.mu.Unlock()
	out := make([]types.Hash, 0, len(op.pools))
	for id := range op.pools {
		out = append(out, id)
	}
	return out
}

// Status reports an order's coarse lifecycle state: Filled, Pending, Blocked{...} or
// OrderNotFound.
func (op *OrderPool) Status(hash types.OrderHash) OrderStatus {
	op.mu.Lock()
	defer op.mu.Unlock()

	if op.finals.Contains(hash) {
		return OrderStatus{Kind: StatusFilled}
	}
	loc, ok := op.byHash[hash]
	if !ok {
		return OrderStatus{Kind: StatusOrderNotFound}
	}
	ps := op.pools[loc.poolId]
	if loc.at == ParkedLocation {
		osd, ok := ps.parked.Get(hash)
		if ok {
			return OrderStatus{Kind: StatusBlocked, Blocked: osd.IsCurrentlyValid}
		}
	}
	return OrderStatus{Kind: StatusPending}
}
