package orderpool

import (
	"fmt"

	"github.com/angstrom-protocol/angstrom/pkg/types"
)

// MaxReorgDepth bounds how many past blocks' filled orders the
// finalization pool retains.
const MaxReorgDepth = 150

// FinalizationPool tracks orders that were filled, keyed by the block
// they were filled in, so a reorg can resurface them as unfilled.
type FinalizationPool struct {
	byBlock map[uint64][]types.OrderHash
	byHash  map[types.OrderHash]types.AllOrders
}

func NewFinalizationPool() *FinalizationPool {
	return &FinalizationPool{
		byBlock: make(map[uint64][]types.OrderHash),
		byHash:  make(map[types.OrderHash]types.AllOrders),
	}
}

// MarkFilled records that order was filled in blockNumber.
func (f *FinalizationPool) MarkFilled(blockNumber uint64, order types.AllOrders) {
	hash := order.OrderHash()
	f.byBlock[blockNumber] = append(f.byBlock[blockNumber], hash)
	f.byHash[hash] = order
}

// Contains reports whether hash is currently recorded as filled and not
// yet finalized/dropped.
func (f *FinalizationPool) Contains(hash types.OrderHash) bool {
	_, ok := f.byHash[hash]
	return ok
}

// OnFinalized drops every entry at or below blockNumber — once the chain
// has finalized a block, a reorg can no longer reach it.
func (f *FinalizationPool) OnFinalized(blockNumber uint64) {
	for b := range f.byBlock {
		if b <= blockNumber {
			for _, h := range f.byBlock[b] {
				delete(f.byHash, h)
			}
			delete(f.byBlock, b)
		}
	}
}

// OnReorg returns every order filled in [from, to] so the caller can
// reinsert them as UnfilledOrder notifications.
// It is a programmer error to reorg more than MaxReorgDepth blocks.
func (f *FinalizationPool) OnReorg(from, to uint64) ([]types.AllOrders, error) {
	if to < from {
		return nil, fmt.Errorf("orderpool: reorg range [%d,%d] is inverted", from, to)
	}
	if to-from+1 > MaxReorgDepth {
		return nil, fmt.Errorf("orderpool: reorg depth %d exceeds max %d", to-from+1, MaxReorgDepth)
	}
	var out []types.AllOrders
	for b := from; b <= to; b++ {
		for _, h := range f.byBlock[b] {
			if o, ok := f.byHash[h]; ok {
				out = append(out, o)
				delete(f.byHash, h)
			}
		}
		delete(f.byBlock, b)
	}
	return out, nil
}
