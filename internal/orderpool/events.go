package orderpool

import "github.com/angstrom-protocol/angstrom/pkg/types"

// Origin tags where an order entered the pool from. Private
// orders never get forwarded to the network broadcaster.
type Origin uint8

const (
	Local Origin = iota
	External
	Private
)

func (o Origin) String() string {
	switch o {
	case Local:
		return "Local"
	case External:
		return "External"
	case Private:
		return "Private"
	default:
		return "Unknown"
	}
}

// Location names which sub-pool orders_by_pool should read from.
type Location uint8

const (
	PendingLocation Location = iota
	ParkedLocation
	SearcherLocation
)

// StatusKind is the coarse outcome of OrderPool.Status.
type StatusKind uint8

const (
	StatusOrderNotFound StatusKind = iota
	StatusPending
	StatusBlocked
	StatusFilled
)

// OrderStatus answers OrderPool.Status: Blocked is populated from the
// order's cached state error when Kind is StatusBlocked.
type OrderStatus struct {
	Kind    StatusKind
	Blocked *types.StateError
}

// EventKind enumerates the pool notifications the JSON-RPC subscription
// surface exposes.
type EventKind uint8

const (
	NewOrders EventKind = iota
	FilledOrders
	UnfilledOrders
	CancelledOrders
	ExpiredOrders
)

func (k EventKind) String() string {
	switch k {
	case NewOrders:
		return "NewOrders"
	case FilledOrders:
		return "FilledOrders"
	case UnfilledOrders:
		return "UnfilledOrders"
	case CancelledOrders:
		return "CancelledOrders"
	case ExpiredOrders:
		return "ExpiredOrders"
	default:
		return "Unknown"
	}
}

// Event is one pool notification, dispatched to every Subscriber.
type Event struct {
	Kind   EventKind
	PoolId types.Hash
	Order  types.AllOrders
}

// Subscriber receives pool events. Implementations are expected to forward
// these to JSON-RPC subscribers without blocking the pool.
type Subscriber interface {
	OnOrderPoolEvent(Event)
}
