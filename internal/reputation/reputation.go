// Package reputation tracks per-peer reputation scores and the ban
// threshold: a signed score per peer that only offenses move down and only
// an explicit Reset (or Forget, which drops the entry) restores.
package reputation

import (
	"sync"

	"github.com/angstrom-protocol/angstrom/pkg/types"
)

// Score is a signed reputation value; only Reset, or Forget dropping the
// entry, ever increases it.
type Score int32

// ChangeKind enumerates the offenses the network layer can report against
// a peer.
type ChangeKind uint8

const (
	BadMessage ChangeKind = iota
	BadOrder
	BadComposableOrder
	BadBundle
	InvalidOrder
	Reset
)

// unit is the minimal reputation quantum; every weight below is expressed
// as a multiple of it.
const unit Score = -1024

// Default per-offense weights.
const (
	WeightBadMessage         Score = 5 * unit
	WeightBadOrder           Score = 10 * unit
	WeightBadComposableOrder Score = 15 * unit
	WeightBadBundle          Score = 20 * unit
	WeightInvalidOrder       Score = 17 * unit
)

// BanThreshold is the score at or below which a peer is banned: 50 * unit.
const BanThreshold Score = 50 * unit

func weightFor(kind ChangeKind) Score {
	switch kind {
	case BadMessage:
		return WeightBadMessage
	case BadOrder:
		return WeightBadOrder
	case BadComposableOrder:
		return WeightBadComposableOrder
	case BadBundle:
		return WeightBadBundle
	case InvalidOrder:
		return WeightInvalidOrder
	case Reset:
		return 0 // handled specially: resets to 0, not an additive change
	default:
		return 0
	}
}

// Manager holds every known peer's reputation score and answers ban
// queries. One Manager instance is shared by the session manager and the
// validator gate.
type Manager struct {
	mu     sync.RWMutex
	scores map[types.PeerId]Score
}

// NewManager constructs an empty reputation table; unknown peers default
// to a score of 0.
func NewManager() *Manager {
	return &Manager{scores: make(map[types.PeerId]Score)}
}

// Score returns peer's current reputation, defaulting to 0 if never seen.
func (m *Manager) Score(peer types.PeerId) Score {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.scores[peer]
}

// IsBanned reports whether peer's score is at or below BanThreshold.
func (m *Manager) IsBanned(peer types.PeerId) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.scores[peer] <= BanThreshold
}

// Apply records an offense (or a Reset) against peer and returns the
// resulting score plus whether this change just caused a ban. Every kind
// other than Reset is non-positive, so a peer's score only ever recovers
// through an explicit Reset.
func (m *Manager) Apply(peer types.PeerId, kind ChangeKind) (newScore Score, justBanned bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wasBanned := m.scores[peer] <= BanThreshold
	if kind == Reset {
		m.scores[peer] = 0
		return 0, false
	}
	m.scores[peer] += weightFor(kind)
	now := m.scores[peer]
	return now, !wasBanned && now <= BanThreshold
}

// Forget drops all reputation state for peer, so its score reads 0 again.
func (m *Manager) Forget(peer types.PeerId) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.scores, peer)
}
