package orderpool

import (
	"github.com/angstrom-protocol/angstrom/internal/validation"
	"github.com/angstrom-protocol/angstrom/pkg/types"
	"github.com/holiman/uint256"
)

// OnNewBlock advances the pool to a new chain tip: move filled orders into the
// finalization pool, re-validate parked orders owned by a touched address
// and promote them if they're now valid, then drop anything whose deadline
// has passed. It also rolls the validation pool's cancellation scope
// forward, since both share the same block-number notion of staleness.
func (op *OrderPool) OnNewBlock(blockNumber uint64, filled []types.OrderHash, touchedAddresses []types.Address) {
	op.validator.OnNewBlock(blockNumber)

	op.mu.Lock()
	op.blockNumber = blockNumber
	var events []Event // dispatched after unlock: dispatch takes op.mu itself

	for _, hash := range filled {
		loc, ok := op.byHash[hash]
		if !ok {
			continue
		}
		ps := op.pools[loc.poolId]
		var order types.AllOrders
		var found bool
		switch loc.at {
		case SearcherLocation:
			if osd, ok := ps.searcher.Remove(hash); ok {
				order, found = osd.Order, true
			}
		default:
			if osd, ok := ps.pending.Remove(hash); ok {
				order, found = osd.Order, true
			}
		}
		if found {
			delete(op.byHash, hash)
			op.finals.MarkFilled(blockNumber, order)
			events = append(events, Event{Kind: FilledOrders, PoolId: loc.poolId, Order: order})
		}
	}

	touched := make(map[types.Address]bool, len(touchedAddresses))
	for _, a := range touchedAddresses {
		touched[a] = true
	}
	var toRevalidate []*types.OrderWithStorageData[types.AllOrders]
	for _, ps := range op.pools {
		for _, osd := range ps.parked.All() {
			if touched[osd.Order.Signer()] {
				toRevalidate = append(toRevalidate, osd)
			}
		}
	}

	var expiredHashes []types.OrderHash
	for poolId, ps := range op.pools {
		for _, osd := range ps.pending.All() {
			if expired(osd.Order, blockNumber) {
				ps.pending.Remove(osd.OrderId)
				expiredHashes = append(expiredHashes, osd.OrderId)
				events = append(events, Event{Kind: ExpiredOrders, PoolId: poolId, Order: osd.Order})
			}
		}
		for _, osd := range ps.parked.All() {
			if expired(osd.Order, blockNumber) {
				ps.parked.Remove(osd.OrderId)
				expiredHashes = append(expiredHashes, osd.OrderId)
				events = append(events, Event{Kind: ExpiredOrders, PoolId: poolId, Order: osd.Order})
			}
		}
		for _, osd := range ps.searcher.All() {
			if expired(osd.Order, blockNumber) {
				ps.searcher.Remove(osd.OrderId)
				expiredHashes = append(expiredHashes, osd.OrderId)
				events = append(events, Event{Kind: ExpiredOrders, PoolId: poolId, Order: osd.Order})
			}
		}
	}
	for _, h := range expiredHashes {
		delete(op.byHash, h)
	}
	op.mu.Unlock()

	for _, ev := range events {
		op.dispatch(ev)
	}

	for _, osd := range toRevalidate {
		order := osd.Order
		op.validator.Submit(order, func(r validation.Result) {
			if r.Err != nil || r.Order == nil || r.Order.IsCurrentlyValid != nil {
				return // still blocked (or rejected outright); stays parked
			}
			op.promote(order, r.Order)
		})
	}
}

// promote moves a re-validated, now-valid order from parked to pending.
func (op *OrderPool) promote(order types.AllOrders, osd *types.OrderWithStorageData[types.AllOrders]) {
	hash := order.OrderHash()
	op.mu.Lock()
	defer op.mu.Unlock()
	loc, ok := op.byHash[hash]
	if !ok || loc.at != ParkedLocation {
		return
	}
	ps := op.pools[loc.poolId]
	if _, ok := ps.parked.Remove(hash); !ok {
		return
	}
	ps.pending.Insert(osd)
	op.byHash[hash] = location{poolId: loc.poolId, at: PendingLocation}
}

func expired(order types.AllOrders, blockNumber uint64) bool {
	deadline, flashBlock := order.DeadlineOrFlashBlock()
	if order.Kind.IsFlash() {
		return flashBlock != 0 && flashBlock < blockNumber
	}
	return deadline != 0 && deadline < blockNumber
}

// OnFinalized drops finalization history at or below block.
func (op *OrderPool) OnFinalized(block uint64) {
	op.mu.Lock()
	defer op.mu.Unlock()
	op.finals.OnFinalized(block)
}

// OnReorg reinserts every order filled in [from, to] (top-of-block orders
// into the searcher pool, the rest into pending) and emits UnfilledOrders.
// Orders are reinserted without fresh state/gas data and are not
// re-validated: they are eligible for matching again immediately.
func (op *OrderPool) OnReorg(from, to uint64) error {
	op.mu.Lock()
	orders, err := op.finals.OnReorg(from, to)
	if err != nil {
		op.mu.Unlock()
		return err
	}
	for _, order := range orders {
		poolId, isBid, ok := op.registry.Resolve(order.AssetIn, order.AssetOut)
		if !ok {
			continue // pool no longer exists; drop silently
		}
		ps := op.poolStateFor(poolId)
		osd := &types.OrderWithStorageData[types.AllOrders]{
			Order:      order,
			OrderId:    order.OrderHash(),
			PoolId:     poolId,
			IsBid:      isBid,
			IsValid:    true,
			ValidBlock: to,
			Priority: types.PriorityData{
				Price:     order.Price,
				Volume:    order.MinFillAmount,
				GasT0:     uint256.NewInt(0),
				IsPartial: order.Kind.IsPartial(),
			},
		}
		if order.Kind == types.TopOfBlock {
			ps.searcher.Insert(osd)
			op.byHash[osd.OrderId] = location{poolId: poolId, at: SearcherLocation}
		} else {
			ps.pending.Insert(osd)
			op.byHash[osd.OrderId] = location{poolId: poolId, at: PendingLocation}
		}
	}
	op.mu.Unlock()

	for _, order := range orders {
		op.dispatch(Event{Kind: UnfilledOrders, Order: order})
	}
	return nil
}
