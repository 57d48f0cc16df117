// Package orderpool implements the per-pool sub-pool set (pending, parked,
// searcher) and the finalization pool. Each PoolId's sub-pools are owned
// exclusively by OrderPool's internal mutex — external callers only ever
// see snapshots or typed commands.
package orderpool

import (
	"sort"

	"github.com/angstrom-protocol/angstrom/pkg/types"
)

// SortStrategy selects how a side's index breaks ties at equal price.
type SortStrategy uint8

const (
	// ByPriceByVolume orders by price, then volume, then token-0 gas, then
	// raw gas units: the resting book's display and iteration order.
	ByPriceByVolume SortStrategy = iota
	// PricePartialVolume additionally prefers partial orders over exact
	// ones at equal price. The matcher consumes fills in this order: a
	// partial can absorb whatever quantity remains at the clearing price,
	// an exact order cannot.
	PricePartialVolume
)

// bySide orders entries for one side of the book. Bids sort by descending
// priority (best bid first); asks sort ascending (best ask first); ties
// break on order hash for stability.
type bySide struct {
	descending bool
	strategy   SortStrategy
	hashes     []types.OrderHash
	priorities []types.PriorityData
}

// PendingPool holds valid orders of one kind for one pool, plus ascending
// and descending indices over their priority data.
type PendingPool[O any] struct {
	entries map[types.OrderHash]*types.OrderWithStorageData[O]
	bids    bySide // descending priority: best bid first
	asks    bySide // ascending priority: best ask first
}

// NewPendingPool constructs an empty pending/searcher sub-pool with the
// default ByPriceByVolume ordering.
func NewPendingPool[O any]() *PendingPool[O] {
	return NewPendingPoolWithStrategy[O](ByPriceByVolume)
}

// NewPendingPoolWithStrategy constructs a sub-pool whose side indices use
// strategy for equal-price tie-breaks. The matching engine builds its books
// with PricePartialVolume.
func NewPendingPoolWithStrategy[O any](strategy SortStrategy) *PendingPool[O] {
	return &PendingPool[O]{
		entries: make(map[types.OrderHash]*types.OrderWithStorageData[O]),
		bids:    bySide{descending: true, strategy: strategy},
		asks:    bySide{descending: false, strategy: strategy},
	}
}

// Len returns the number of resting orders.
func (p *PendingPool[O]) Len() int { return len(p.entries) }

// Get returns the order for hash, if present.
func (p *PendingPool[O]) Get(hash types.OrderHash) (*types.OrderWithStorageData[O], bool) {
	o, ok := p.entries[hash]
	return o, ok
}

// Insert adds order, maintaining the correct side's sorted index. Returns
// false, leaving the existing entry untouched, if the hash is already
// present.
func (p *PendingPool[O]) Insert(order *types.OrderWithStorageData[O]) bool {
	if _, exists := p.entries[order.OrderId]; exists {
		return false
	}
	p.entries[order.OrderId] = order
	side := p.sideFor(order.IsBid)
	side.insertSorted(order.OrderId, order.Priority)
	return true
}

// Remove drops hash from the pool and its sorted index.
func (p *PendingPool[O]) Remove(hash types.OrderHash) (*types.OrderWithStorageData[O], bool) {
	order, ok := p.entries[hash]
	if !ok {
		return nil, false
	}
	delete(p.entries, hash)
	side := p.sideFor(order.IsBid)
	side.remove(hash)
	return order, true
}

func (p *PendingPool[O]) sideFor(isBid bool) *bySide {
	if isBid {
		return &p.bids
	}
	return &p.asks
}

// Bids returns resting bids best-first (descending priority).
func (p *PendingPool[O]) Bids() []*types.OrderWithStorageData[O] {
	return p.materialize(p.bids.hashes)
}

// Asks returns resting asks best-first (ascending priority).
func (p *PendingPool[O]) Asks() []*types.OrderWithStorageData[O] {
	return p.materialize(p.asks.hashes)
}

// All returns every order in the pool, in no particular order.
func (p *PendingPool[O]) All() []*types.OrderWithStorageData[O] {
	out := make([]*types.OrderWithStorageData[O], 0, len(p.entries))
	for _, o := range p.entries {
		out = append(out, o)
	}
	return out
}

func (p *PendingPool[O]) materialize(hashes []types.OrderHash) []*types.OrderWithStorageData[O] {
	out := make([]*types.OrderWithStorageData[O], 0, len(hashes))
	for _, h := range hashes {
		if o, ok := p.entries[h]; ok {
			out = append(out, o)
		}
	}
	return out
}

// insertSorted inserts (hash, pr) keeping both parallel slices sorted by
// this side's order: the first index whose current occupant does NOT sort
// strictly before the new entry is where it belongs.
func (s *bySide) insertSorted(hash types.OrderHash, pr types.PriorityData) {
	idx := sort.Search(len(s.hashes), func(i int) bool {
		return !s.orderedBefore(s.priorities[i], pr, s.hashes[i], hash)
	})
	s.hashes = append(s.hashes, types.OrderHash{})
	copy(s.hashes[idx+1:], s.hashes[idx:])
	s.hashes[idx] = hash

	s.priorities = append(s.priorities, types.PriorityData{})
	copy(s.priorities[idx+1:], s.priorities[idx:])
	s.priorities[idx] = pr
}

func (s *bySide) remove(hash types.OrderHash) {
	for i, h := range s.hashes {
		if h == hash {
			s.hashes = append(s.hashes[:i], s.hashes[i+1:]...)
			s.priorities = append(s.priorities[:i], s.priorities[i+1:]...)
			return
		}
	}
}

// orderedBefore reports whether (prA, hashA) sorts before (prB, hashB)
// under this side's ordering, breaking ties on hash for stability. The
// partial-before-exact preference sits between price and volume and is
// side-independent: at equal price the partial comes first whichever way
// the rest of the tuple runs.
func (s *bySide) orderedBefore(prA, prB types.PriorityData, hashA, hashB types.OrderHash) bool {
	if c := prA.Price.Cmp(prB.Price); c != 0 {
		return s.better(c)
	}
	if s.strategy == PricePartialVolume && prA.IsPartial != prB.IsPartial {
		return prA.IsPartial
	}
	if c := prA.Volume.Cmp(prB.Volume); c != 0 {
		return s.better(c)
	}
	if c := prA.GasT0.Cmp(prB.GasT0); c != 0 {
		return s.better(c)
	}
	if prA.GasUnits != prB.GasUnits {
		if s.descending {
			return prA.GasUnits > prB.GasUnits
		}
		return prA.GasUnits < prB.GasUnits
	}
	return hashA.String() < hashB.String()
}

// better maps a three-way comparison onto this side's direction.
func (s *bySide) better(cmp int) bool {
	if s.descending {
		return cmp > 0
	}
	return cmp < 0
}
