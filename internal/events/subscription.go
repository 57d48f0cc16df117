package events

import (
	"github.com/angstrom-protocol/angstrom/internal/orderpool"
	"github.com/angstrom-protocol/angstrom/pkg/types"
)

// FilterKind selects which of subscribeOrders's filter variants is active:
// none, by pool, by signer address, top-of-block only, or book only.
type FilterKind uint8

const (
	FilterNone FilterKind = iota
	FilterByPair
	FilterByAddress
	FilterOnlyTOB
	FilterOnlyBook
)

// Filter narrows an order subscription to a pool, a signer address, or to
// top-of-block vs. book orders only.
type Filter struct {
	Kind    FilterKind
	PoolId  types.Hash
	Address types.Address
}

// OrderSubscription is one subscribeOrders(kinds, filters) call's live
// channel.
type OrderSubscription struct {
	kinds  map[orderpool.EventKind]bool
	filter Filter
	ch     chan orderpool.Event
}

func (s *OrderSubscription) Events() <-chan orderpool.Event { return s.ch }

func (s *OrderSubscription) matches(ev orderpool.Event) bool {
	if !s.kinds[ev.Kind] {
		return false
	}
	switch s.filter.Kind {
	case FilterByPair:
		return ev.PoolId == s.filter.PoolId
	case FilterByAddress:
		return ev.Order.Signer() == s.filter.Address
	case FilterOnlyTOB:
		return ev.Order.Kind == types.TopOfBlock
	case FilterOnlyBook:
		return ev.Order.Kind != types.TopOfBlock
	default:
		return true
	}
}

// SubscribeOrders registers a new order-event subscription scoped to kinds
// and filter.
func (h *Hub) SubscribeOrders(kinds []orderpool.EventKind, filter Filter) (*OrderSubscription, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.allocID()
	set := make(map[orderpool.EventKind]bool, len(kinds))
	for _, k := range kinds {
		set[k] = true
	}
	sub := &OrderSubscription{
		kinds:  set,
		filter: filter,
		ch:     make(chan orderpool.Event, SubscriptionBufferSize),
	}
	h.orderSubs[id] = sub
	return sub, func() { h.unsubscribe(func() { delete(h.orderSubs, id) }) }
}
