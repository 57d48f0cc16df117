// Package events is the system's bounded-channel glue: it fans pool
// events, peer lifecycle events, block notifications, and consensus
// outcomes out to however many JSON-RPC subscribers are attached, without
// ever letting a slow subscriber stall a producer.
package events

import (
	"sync"

	"github.com/angstrom-protocol/angstrom/internal/consensus"
	"github.com/angstrom-protocol/angstrom/internal/orderpool"
	"github.com/angstrom-protocol/angstrom/pkg/types"
)

// SubscriptionBufferSize bounds every per-subscriber channel. A full buffer
// means the subscriber is falling behind; further events for it are
// dropped rather than blocking the publisher.
const SubscriptionBufferSize = 256

// PeerEventKind tags a peer lifecycle notification.
type PeerEventKind uint8

const (
	PeerConnected PeerEventKind = iota
	PeerDisconnected
	PeerBanned
)

// PeerEvent mirrors network.Manager's session lifecycle callbacks for
// external subscribers.
type PeerEvent struct {
	Kind PeerEventKind
	Peer types.PeerId
}

// BlockEvent is published once per chain tip advance, grounding the pool's
// on_new_block/on_finalized/on_reorg hooks and the consensus round driver
// to the same clock.
type BlockEvent struct {
	Number           uint64
	Filled           []types.OrderHash
	TouchedAddresses []types.Address
	Reorged          bool
	ReorgFrom        uint64
}

// ConsensusEventKind tags a notable consensus transition worth surfacing
// to subscribers.
type ConsensusEventKind uint8

const (
	ConsensusPhaseChanged ConsensusEventKind = iota
	ConsensusBundleFinalized
	ConsensusEmptyBlock
	// ConsensusSlashableObserved carries a structured verification failure
	// (non-leader proposal, below-threshold aggregation, bad embedded
	// signature, solution mismatch) recorded as evidence for future
	// slashing. The round drops the offending message and keeps going.
	ConsensusSlashableObserved
)

// ConsensusEvent is published by the consensus Round as it advances.
type ConsensusEvent struct {
	Kind        ConsensusEventKind
	BlockHeight uint64
	Phase       string
	Attestation *types.AttestAngstromBlockEmpty
	Slashable   *consensus.ConsensusError
}

// Hub is the single point every producer publishes through and every
// subscriber attaches to. It holds no domain logic of its own; it is pure
// fan-out, the same single-writer "manager relays to
// dependents" shape as internal/network.Manager, generalized across
// every event family the node produces.
type Hub struct {
	mu sync.RWMutex

	orderSubs      map[int]*OrderSubscription
	peerSubs       map[int]chan PeerEvent
	blockSubs      map[int]chan BlockEvent
	consensusSubs  map[int]chan ConsensusEvent
	emptyBlockSubs map[int]chan types.AttestAngstromBlockEmpty
	nextID         int
}

func New() *Hub {
	return &Hub{
		orderSubs:      make(map[int]*OrderSubscription),
		peerSubs:       make(map[int]chan PeerEvent),
		blockSubs:      make(map[int]chan BlockEvent),
		consensusSubs:  make(map[int]chan ConsensusEvent),
		emptyBlockSubs: make(map[int]chan types.AttestAngstromBlockEmpty),
	}
}

func (h *Hub) allocID() int {
	h.nextID++
	return h.nextID
}

// OnOrderPoolEvent implements orderpool.Subscriber: the Hub is handed to
// orderpool.OrderPool.Subscribe directly.
func (h *Hub) OnOrderPoolEvent(ev orderpool.Event) {
	h.mu.RLock()
	subs := make([]*OrderSubscription, 0, len(h.orderSubs))
	for _, s := range h.orderSubs {
		subs = append(subs, s)
	}
	h.mu.RUnlock()

	for _, s := range subs {
		if !s.matches(ev) {
			continue
		}
		select {
		case s.ch <- ev:
		default: // subscriber is behind; drop rather than block the pool
		}
	}
}

// PublishPeerEvent is called by the network manager's wiring layer on
// session lifecycle transitions.
func (h *Hub) PublishPeerEvent(ev PeerEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.peerSubs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// PublishBlockEvent is called once per chain tip by the block-notification
// source feeding the order pool and the consensus round driver.
func (h *Hub) PublishBlockEvent(ev BlockEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.blockSubs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// PublishPhase implements consensus.Publisher: it records a phase
// transition as a ConsensusEvent.
func (h *Hub) PublishPhase(blockHeight uint64, phase string) {
	h.PublishConsensusEvent(ConsensusEvent{Kind: ConsensusPhaseChanged, BlockHeight: blockHeight, Phase: phase})
}

// PublishEmptyBlock implements consensus.Publisher: it records and fans
// out a signed empty-block attestation.
func (h *Hub) PublishEmptyBlock(attestation types.AttestAngstromBlockEmpty) {
	h.PublishConsensusEvent(ConsensusEvent{
		Kind:        ConsensusEmptyBlock,
		BlockHeight: attestation.BlockHeight,
		Attestation: &attestation,
	})
}

// PublishSlashable implements consensus.Publisher: it fans a structured
// verification failure out to consensus-event subscribers.
func (h *Hub) PublishSlashable(e *consensus.ConsensusError) {
	h.PublishConsensusEvent(ConsensusEvent{
		Kind:        ConsensusSlashableObserved,
		BlockHeight: e.BlockHeight,
		Slashable:   e,
	})
}

// PublishConsensusEvent is called by the consensus round driver on every
// phase transition and terminal outcome.
func (h *Hub) PublishConsensusEvent(ev ConsensusEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.consensusSubs {
		select {
		case ch <- ev:
		default:
		}
	}
	if ev.Kind == ConsensusEmptyBlock && ev.Attestation != nil {
		for _, ch := range h.emptyBlockSubs {
			select {
			case ch <- *ev.Attestation:
			default:
			}
		}
	}
}

// SubscribePeerEvents registers a new bounded peer-event channel.
func (h *Hub) SubscribePeerEvents() (<-chan PeerEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.allocID()
	ch := make(chan PeerEvent, SubscriptionBufferSize)
	h.peerSubs[id] = ch
	return ch, func() { h.unsubscribe(func() { delete(h.peerSubs, id) }) }
}

// SubscribeBlockEvents registers a new bounded block-event channel.
func (h *Hub) SubscribeBlockEvents() (<-chan BlockEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.allocID()
	ch := make(chan BlockEvent, SubscriptionBufferSize)
	h.blockSubs[id] = ch
	return ch, func() { h.unsubscribe(func() { delete(h.blockSubs, id) }) }
}

// SubscribeConsensusEvents registers a new bounded consensus-event channel.
func (h *Hub) SubscribeConsensusEvents() (<-chan ConsensusEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.allocID()
	ch := make(chan ConsensusEvent, SubscriptionBufferSize)
	h.consensusSubs[id] = ch
	return ch, func() { h.unsubscribe(func() { delete(h.consensusSubs, id) }) }
}

// SubscribeEmptyBlockAttestations registers a new bounded channel of
// attested empty blocks.
func (h *Hub) SubscribeEmptyBlockAttestations() (<-chan types.AttestAngstromBlockEmpty, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.allocID()
	ch := make(chan types.AttestAngstromBlockEmpty, SubscriptionBufferSize)
	h.emptyBlockSubs[id] = ch
	return ch, func() { h.unsubscribe(func() { delete(h.emptyBlockSubs, id) }) }
}

func (h *Hub) unsubscribe(remove func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	remove()
}
