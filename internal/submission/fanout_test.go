package submission

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/angstrom-protocol/angstrom/internal/obs"
	"github.com/angstrom-protocol/angstrom/pkg/types"
)

type fakeSink struct {
	name  string
	delay time.Duration
	hash  types.Hash
	err   error
}

func (f *fakeSink) Name() string { return f.name }

func (f *fakeSink) Submit(ctx context.Context, tx *Transaction) (types.Hash, error) {
	select {
	case <-time.After(f.delay):
	case <-ctx.Done():
		return types.Hash{}, ctx.Err()
	}
	if f.err != nil {
		return types.Hash{}, f.err
	}
	return f.hash, nil
}

func TestFanoutFirstSuccessWins(t *testing.T) {
	want := types.Hash{1, 2, 3}
	sinks := []Sink{
		&fakeSink{name: "slow-mempool", delay: 30 * time.Millisecond, hash: types.Hash{9}},
		&fakeSink{name: "fast-relay", delay: 5 * time.Millisecond, hash: want},
		&fakeSink{name: "failing-direct", delay: time.Millisecond, err: errors.New("rejected")},
	}
	f := NewFanout(sinks, obs.NoOp())

	hash, sink, err := f.Submit(context.Background(), &Transaction{TargetBlock: 10})
	require.NoError(t, err)
	require.Equal(t, "fast-relay", sink)
	require.Equal(t, want, hash)
}

func TestFanoutAllSinksFail(t *testing.T) {
	sinks := []Sink{
		&fakeSink{name: "a", err: errors.New("boom")},
		&fakeSink{name: "b", err: errors.New("boom")},
	}
	f := NewFanout(sinks, obs.NoOp())

	_, _, err := f.Submit(context.Background(), &Transaction{TargetBlock: 1})
	require.ErrorIs(t, err, ErrAllSinksFailed)
}

func TestFanoutNoSinksConfigured(t *testing.T) {
	f := NewFanout(nil, obs.NoOp())
	_, _, err := f.Submit(context.Background(), &Transaction{})
	require.ErrorIs(t, err, ErrAllSinksFailed)
}

type fakeEncoder struct{}

func (fakeEncoder) EncodeBundle(proposal types.Proposal) ([]byte, error) {
	return []byte{0xde, 0xad}, nil
}
func (fakeEncoder) EncodeEmptyAttestation(a types.AttestAngstromBlockEmpty) ([]byte, error) {
	return []byte{0xbe, 0xef}, nil
}

type fakeFees struct{}

func (fakeFees) EstimateFees(ctx context.Context) (*big.Int, *big.Int, error) {
	return big.NewInt(20_000_000_000), big.NewInt(2_000_000_000), nil
}

func TestBuilderAppliesFeePremium(t *testing.T) {
	b := NewBuilder(fakeEncoder{}, fakeFees{}, 30_000_000, 1_000) // 10% premium
	tx, err := b.BuildBundle(context.Background(), types.Proposal{BlockHeight: 42})
	require.NoError(t, err)
	require.Equal(t, uint64(42), tx.TargetBlock)
	require.Equal(t, uint64(30_000_000), tx.GasLimit)
	require.Equal(t, big.NewInt(2_200_000_000), tx.PriorityFee)
	require.False(t, tx.IsAttestation)
}

func TestBuilderEmptyAttestation(t *testing.T) {
	b := NewBuilder(fakeEncoder{}, fakeFees{}, 30_000_000, 0)
	tx, err := b.BuildEmptyAttestation(context.Background(), types.AttestAngstromBlockEmpty{BlockHeight: 7})
	require.NoError(t, err)
	require.True(t, tx.IsAttestation)
	require.Equal(t, []byte{0xbe, 0xef}, tx.Calldata)
}
