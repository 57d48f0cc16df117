// Package validatorset holds the current committee of addresses permitted
// to participate in consensus, sourced from an on-chain registry that is
// outside this repository's scope. It is modeled after
// a manager/connector split, keyed by 20-byte
// EVM addresses instead of ids.NodeID because Angstrom's validator set
// lives on the EVM chain rather than a Lux subnet.
package validatorset

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/angstrom-protocol/angstrom/pkg/types"
)

// Connector is notified when a session with a known validator is
// established or torn down.
type Connector interface {
	Connected(ctx context.Context, addr types.Address) error
	Disconnected(ctx context.Context, addr types.Address) error
}

// Listener is notified of membership changes so dependents (the network
// manager) can react without polling.
type Listener interface {
	OnValidatorAdded(addr types.Address)
	OnValidatorRemoved(addr types.Address)
}

// Set is the shared, read-mostly committee allow-list: many
// readers (every inbound connection check) behind one short-critical-
// section writer (on-chain membership updates).
type Set struct {
	mu        sync.RWMutex
	members   map[types.Address]struct{}
	listeners []Listener
}

// New builds a Set seeded with the given initial committee.
func New(initial []types.Address) *Set {
	s := &Set{members: make(map[types.Address]struct{}, len(initial))}
	for _, a := range initial {
		s.members[a] = struct{}{}
	}
	return s
}

// Contains reports whether addr is currently a validator.
func (s *Set) Contains(addr types.Address) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.members[addr]
	return ok
}

// AllowsPeer reports whether the validator address derived from peer is a
// current committee member.
func (s *Set) AllowsPeer(peer types.PeerId) bool {
	return s.Contains(types.AddressFromPeerId(peer))
}

// Len returns the committee size, used for the leader-election modulus and
// the 2f+1 threshold.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.members)
}

// Sorted returns the committee addresses in ascending byte order, the
// canonical order leader election indexes into.
func (s *Set) Sorted() []types.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Address, 0, len(s.members))
	for a := range s.members {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		for k := 0; k < 20; k++ {
			if out[i][k] != out[j][k] {
				return out[i][k] < out[j][k]
			}
		}
		return false
	})
	return out
}

// Threshold2f1 returns ceil(2*n/3), the minimum count of pre-proposals (or
// aggregation signers) required for the 2/3 super-majority rule.
func (s *Set) Threshold2f1() int {
	n := s.Len()
	return (2*n + 2) / 3
}

// AddValidator admits addr to the committee, notifying listeners.
func (s *Set) AddValidator(addr types.Address) {
	s.mu.Lock()
	if _, exists := s.members[addr]; exists {
		s.mu.Unlock()
		return
	}
	s.members[addr] = struct{}{}
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	for _, l := range listeners {
		l.OnValidatorAdded(addr)
	}
}

// RemoveValidator evicts addr from the committee. Removal
// must immediately disconnect any active session for addr; that
// disconnection is driven by the OnValidatorRemoved notification, which
// internal/network subscribes to.
func (s *Set) RemoveValidator(addr types.Address) {
	s.mu.Lock()
	if _, exists := s.members[addr]; !exists {
		s.mu.Unlock()
		return
	}
	delete(s.members, addr)
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	for _, l := range listeners {
		l.OnValidatorRemoved(addr)
	}
}

// Subscribe registers l for future membership changes.
func (s *Set) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// LeaderAt returns the elected leader for blockHeight: the committee,
// sorted by address, indexed by blockHeight mod n.
func (s *Set) LeaderAt(blockHeight uint64) (types.Address, error) {
	sorted := s.Sorted()
	if len(sorted) == 0 {
		return types.Address{}, fmt.Errorf("validatorset: empty committee")
	}
	return sorted[blockHeight%uint64(len(sorted))], nil
}

// IsLeaderAt reports whether addr is the elected leader for blockHeight.
func (s *Set) IsLeaderAt(addr types.Address, blockHeight uint64) bool {
	leader, err := s.LeaderAt(blockHeight)
	return err == nil && leader == addr
}
