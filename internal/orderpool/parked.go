package orderpool

import "github.com/angstrom-protocol/angstrom/pkg/types"

// ParkedPool holds orders whose last stateful check failed, keyed by hash
// with no ordering — they aren't eligible for matching until re-validation
// promotes them back to pending.
type ParkedPool struct {
	entries map[types.OrderHash]*types.OrderWithStorageData[types.AllOrders]
}

func NewParkedPool() *ParkedPool {
	return &ParkedPool{entries: make(map[types.OrderHash]*types.OrderWithStorageData[types.AllOrders])}
}

func (p *ParkedPool) Len() int { return len(p.entries) }

func (p *ParkedPool) Get(hash types.OrderHash) (*types.OrderWithStorageData[types.AllOrders], bool) {
	o, ok := p.entries[hash]
	return o, ok
}

func (p *ParkedPool) Insert(o *types.OrderWithStorageData[types.AllOrders]) {
	p.entries[o.OrderId] = o
}

func (p *ParkedPool) Remove(hash types.OrderHash) (*types.OrderWithStorageData[types.AllOrders], bool) {
	o, ok := p.entries[hash]
	if ok {
		delete(p.entries, hash)
	}
	return o, ok
}

// ByOwner returns every parked order belonging to signer.
func (p *ParkedPool) ByOwner(signer types.Address) []*types.OrderWithStorageData[types.AllOrders] {
	var out []*types.OrderWithStorageData[types.AllOrders]
	for _, o := range p.entries {
		if o.Order.Signer() == signer {
			out = append(out, o)
		}
	}
	return out
}

func (p *ParkedPool) All() []*types.OrderWithStorageData[types.AllOrders] {
	out := make([]*types.OrderWithStorageData[types.AllOrders], 0, len(p.entries))
	for _, o := range p.entries {
		out = append(out, o)
	}
	return out
}
