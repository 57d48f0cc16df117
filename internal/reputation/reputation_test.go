package reputation

import (
	"testing"

	"github.com/angstrom-protocol/angstrom/pkg/types"
	"github.com/stretchr/testify/require"
)

func peer(b byte) types.PeerId {
	var p types.PeerId
	p[0] = b
	return p
}

func TestUnknownPeerStartsAtZeroAndNotBanned(t *testing.T) {
	require := require.New(t)

	m := NewManager()
	p := peer(1)
	require.Equal(Score(0), m.Score(p))
	require.False(m.IsBanned(p))
}

func TestApplyIsMonotonicallyNonIncreasing(t *testing.T) {
	require := require.New(t)

	m := NewManager()
	p := peer(2)

	prev := m.Score(p)
	for _, kind := range []ChangeKind{BadMessage, BadOrder, BadComposableOrder, BadBundle, InvalidOrder} {
		next, _ := m.Apply(p, kind)
		require.LessOrEqual(next, prev, "reputation must never increase from an offense")
		prev = next
	}
}

func TestRepeatedOffensesEventuallyBan(t *testing.T) {
	require := require.New(t)

	m := NewManager()
	p := peer(3)

	var justBanned bool
	for i := 0; i < 20 && !justBanned; i++ {
		_, justBanned = m.Apply(p, BadBundle)
	}
	require.True(justBanned)
	require.True(m.IsBanned(p))
}

func TestJustBannedFiresOnlyOnTransition(t *testing.T) {
	require := require.New(t)

	m := NewManager()
	p := peer(4)

	for i := 0; i < 2; i++ {
		_, justBanned := m.Apply(p, BadBundle)
		require.False(justBanned)
	}
	for i := 0; i < 8; i++ {
		m.Apply(p, BadBundle)
	}
	require.True(m.IsBanned(p))

	_, justBanned := m.Apply(p, BadBundle)
	require.False(justBanned, "already-banned peer must not re-trigger justBanned")
}

func TestResetClearsScoreToZero(t *testing.T) {
	require := require.New(t)

	m := NewManager()
	p := peer(5)

	m.Apply(p, BadBundle)
	require.NotEqual(Score(0), m.Score(p))

	score, justBanned := m.Apply(p, Reset)
	require.Equal(Score(0), score)
	require.False(justBanned)
	require.False(m.IsBanned(p))
}

func TestForgetDropsState(t *testing.T) {
	require := require.New(t)

	m := NewManager()
	p := peer(6)
	m.Apply(p, BadMessage)
	require.NotEqual(Score(0), m.Score(p))

	m.Forget(p)
	require.Equal(Score(0), m.Score(p))
}
