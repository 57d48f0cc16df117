package validatorset

import (
	"testing"

	"github.com/angstrom-protocol/angstrom/pkg/types"
	"github.com/stretchr/testify/require"
)

func addr(b byte) types.Address {
	var a types.Address
	a[19] = b
	return a
}

func TestThreshold2f1(t *testing.T) {
	require := require.New(t)

	cases := []struct {
		n, want int
	}{
		{1, 1},
		{3, 2},
		{4, 3},
		{7, 5},
		{10, 7},
	}
	for _, c := range cases {
		members := make([]types.Address, c.n)
		for i := range members {
			members[i] = addr(byte(i + 1))
		}
		s := New(members)
		require.Equal(c.want, s.Threshold2f1(), "n=%d", c.n)
	}
}

func TestLeaderAtCyclesThroughSortedCommittee(t *testing.T) {
	require := require.New(t)

	a1, a2, a3 := addr(3), addr(1), addr(2)
	s := New([]types.Address{a1, a2, a3})

	sorted := s.Sorted()
	require.Equal([]types.Address{a2, a3, a1}, sorted)

	for h := uint64(0); h < 6; h++ {
		leader, err := s.LeaderAt(h)
		require.NoError(err)
		require.Equal(sorted[h%3], leader)
		require.True(s.IsLeaderAt(leader, h))
	}
}

func TestLeaderAtEmptyCommitteeErrors(t *testing.T) {
	require := require.New(t)

	s := New(nil)
	_, err := s.LeaderAt(0)
	require.Error(err)
}

type recordingListener struct {
	added, removed []types.Address
}

func (r *recordingListener) OnValidatorAdded(a types.Address)   { r.added = append(r.added, a) }
func (r *recordingListener) OnValidatorRemoved(a types.Address) { r.removed = append(r.removed, a) }

func TestAddRemoveValidatorNotifiesListeners(t *testing.T) {
	require := require.New(t)

	s := New(nil)
	l := &recordingListener{}
	s.Subscribe(l)

	a := addr(9)
	s.AddValidator(a)
	require.True(s.Contains(a))
	require.Equal([]types.Address{a}, l.added)

	s.RemoveValidator(a)
	require.False(s.Contains(a))
	require.Equal([]types.Address{a}, l.removed)
}

func TestAddValidatorIsIdempotent(t *testing.T) {
	require := require.New(t)

	s := New(nil)
	l := &recordingListener{}
	s.Subscribe(l)

	a := addr(5)
	s.AddValidator(a)
	s.AddValidator(a)
	require.Len(l.added, 1, "re-adding an existing validator must not renotify")
}

func TestAllowsPeerDerivesAddressFromPeerId(t *testing.T) {
	require := require.New(t)

	var peer types.PeerId
	for i := range peer {
		peer[i] = byte(i)
	}
	a := types.AddressFromPeerId(peer)

	s := New([]types.Address{a})
	require.True(s.AllowsPeer(peer))

	var other types.PeerId
	other[0] = 0xff
	require.False(s.AllowsPeer(other))
}
