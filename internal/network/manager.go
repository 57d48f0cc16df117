// Package network implements the session manager and peer/validator gate:
// it owns the live session set, enforces the
// validator allow-list, and turns protocol-breach events into reputation
// decrements.
package network

import (
	"context"
	"sync"

	"github.com/angstrom-protocol/angstrom/internal/obs"
	"github.com/angstrom-protocol/angstrom/internal/reputation"
	"github.com/angstrom-protocol/angstrom/internal/session"
	"github.com/angstrom-protocol/angstrom/internal/validatorset"
	"github.com/angstrom-protocol/angstrom/pkg/types"
	"github.com/angstrom-protocol/angstrom/pkg/wire"
)

// SessionEventBufferFactor sizes the manager's inbound event channel as
// 2*(maxIn+maxOut).
const SessionEventBufferFactor = 2

// MessageSink receives decoded inbound protocol messages, fanned out by
// kind. Implemented by the order pool; the consensus Round takes its
// messages through Round.OnMessage instead.
type MessageSink interface {
	HandleStromMessage(from types.PeerId, msg wire.StromProtocolMessage)
}

// Manager owns the set of live sessions and relays their lifecycle and
// message events to dependents.
type Manager struct {
	mu       sync.RWMutex
	sessions map[types.PeerId]*session.Handle

	validators *validatorset.Set
	reputation *reputation.Manager
	log        obs.Logger

	sinks []MessageSink
}

// New constructs a Manager over the given validator set and reputation
// table. Both are shared with internal/session.Config.AllowedValidator and
// the consensus leader-election logic.
func New(validators *validatorset.Set, rep *reputation.Manager, log obs.Logger) *Manager {
	m := &Manager{
		sessions:   make(map[types.PeerId]*session.Handle),
		validators: validators,
		reputation: rep,
		log:        log.With("component", "network-manager"),
	}
	validators.Subscribe(m)
	return m
}

// AddSink registers a downstream consumer of decoded protocol messages.
func (m *Manager) AddSink(s MessageSink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sinks = append(m.sinks, s)
}

// AllowedValidator is passed to session.Config: a peer may only complete
// the handshake if its derived address is a current committee member
func (m *Manager) AllowedValidator(peer types.PeerId) bool {
	if m.reputation.IsBanned(peer) {
		return false
	}
	return m.validators.AllowsPeer(peer)
}

// --- session.Events ---

func (m *Manager) Established(h *session.Handle) {
	m.mu.Lock()
	m.sessions[h.PeerId] = h
	m.mu.Unlock()
	m.log.Info("session established", "peer", h.PeerId, "direction", h.Direction)
}

func (m *Manager) BadMessage(peer types.PeerId) {
	score, banned := m.reputation.Apply(peer, reputation.BadMessage)
	m.log.Warn("bad message from peer", "peer", peer, "score", score)
	if banned {
		m.banAndDisconnect(peer)
	}
}

func (m *Manager) InboundMessage(peer types.PeerId, msg wire.StromProtocolMessage) {
	m.mu.RLock()
	sinks := append([]MessageSink(nil), m.sinks...)
	m.mu.RUnlock()
	for _, s := range sinks {
		s.HandleStromMessage(peer, msg)
	}
}

func (m *Manager) Disconnected(peer types.PeerId) {
	m.mu.Lock()
	delete(m.sessions, peer)
	m.mu.Unlock()
	m.log.Info("session disconnected", "peer", peer)
}

// --- validatorset.Listener ---

func (m *Manager) OnValidatorAdded(types.Address) {}

// OnValidatorRemoved immediately disconnects any session whose derived
// address matches the removed validator.
func (m *Manager) OnValidatorRemoved(addr types.Address) {
	m.mu.RLock()
	var toDrop *session.Handle
	for peer, h := range m.sessions {
		if types.AddressFromPeerId(peer) == addr {
			toDrop = h
			break
		}
	}
	m.mu.RUnlock()
	if toDrop != nil {
		toDrop.Disconnect()
	}
}

func (m *Manager) banAndDisconnect(peer types.PeerId) {
	m.mu.RLock()
	h, ok := m.sessions[peer]
	m.mu.RUnlock()
	if ok {
		h.Disconnect()
	}
}

// Broadcast sends msg to every live session. Non-blocking per session: a
// session with a full command buffer simply drops this broadcast.
func (m *Manager) Broadcast(msg wire.StromProtocolMessage) {
	m.mu.RLock()
	handles := make([]*session.Handle, 0, len(m.sessions))
	for _, h := range m.sessions {
		handles = append(handles, h)
	}
	m.mu.RUnlock()
	for _, h := range handles {
		h.Send(msg)
	}
}

// Send delivers msg to exactly one peer, if a session for it exists.
func (m *Manager) Send(peer types.PeerId, msg wire.StromProtocolMessage) bool {
	m.mu.RLock()
	h, ok := m.sessions[peer]
	m.mu.RUnlock()
	if !ok {
		return false
	}
	return h.Send(msg)
}

// PeerCount reports the number of live sessions.
func (m *Manager) PeerCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// ReportOffense applies a reputation penalty for an offense observed
// outside the session layer (e.g. a bad order surfaced by validation), and
// disconnects the peer if the penalty causes a ban.
func (m *Manager) ReportOffense(ctx context.Context, peer types.PeerId, kind reputation.ChangeKind) {
	_, banned := m.reputation.Apply(peer, kind)
	if banned {
		m.banAndDisconnect(peer)
	}
}
