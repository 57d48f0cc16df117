package wire

import (
	"testing"

	"github.com/angstrom-protocol/angstrom/pkg/types"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestStatusHashIsDeterministic(t *testing.T) {
	require := require.New(t)

	s := types.StatusState{Version: 1, ChainId: 7, TimestampMs: 1000}
	s.Peer[0] = 0xaa

	a := StatusHash(s)
	b := StatusHash(s)
	require.Equal(a, b)

	s.TimestampMs++
	c := StatusHash(s)
	require.NotEqual(a, c, "hash must commit to the timestamp")
}

func buildOrder() types.AllOrders {
	return types.AllOrders{
		Kind:          types.ExactStanding,
		AssetIn:       types.Address{1},
		AssetOut:      types.Address{2},
		Deadline:      100,
		Price:         uint256.NewInt(5),
		MinFillAmount: uint256.NewInt(10),
		MaxGasT0:      uint256.NewInt(1),
		NonceOrSalt:   42,
		Meta:          types.OrderMeta{From: types.Address{3}},
	}
}

func TestOrderHashIgnoresSignature(t *testing.T) {
	require := require.New(t)

	o1 := buildOrder()
	o2 := o1
	o2.Meta.Signature = types.Signature{0xff}

	require.Equal(o1.OrderHash(), o2.OrderHash(), "the signature is zeroed before hashing, so it must not affect the hash")
}

func TestOrderHashDistinguishesPayload(t *testing.T) {
	require := require.New(t)

	o1 := buildOrder()
	o2 := o1
	o2.NonceOrSalt = 43

	require.NotEqual(o1.OrderHash(), o2.OrderHash())
}

func TestPreProposalSignHashIsDeterministic(t *testing.T) {
	require := require.New(t)

	limit := []types.OrderWithStorageData[types.AllOrders]{{Order: buildOrder()}}
	searcher := []types.OrderWithStorageData[types.TopOfBlockOrder]{}

	h1, err := PreProposalSignHash(10, limit, searcher)
	require.NoError(err)
	h2, err := PreProposalSignHash(10, limit, searcher)
	require.NoError(err)
	require.Equal(h1, h2)

	h3, err := PreProposalSignHash(11, limit, searcher)
	require.NoError(err)
	require.NotEqual(h1, h3, "hash must commit to block height")
}

func TestAggregationSignHashIsDeterministic(t *testing.T) {
	require := require.New(t)

	pp := []types.PreProposal{{BlockHeight: 5}}
	h1, err := AggregationSignHash(5, pp)
	require.NoError(err)
	h2, err := AggregationSignHash(5, pp)
	require.NoError(err)
	require.Equal(h1, h2)
}

func TestProposalSignHashIsDeterministic(t *testing.T) {
	require := require.New(t)

	aggs := []types.PreProposalAggregation{{BlockHeight: 5}}
	sols := []types.PoolSolution{{PoolId: types.Hash{1}}}

	h1, err := ProposalSignHash(5, aggs, sols)
	require.NoError(err)
	h2, err := ProposalSignHash(5, aggs, sols)
	require.NoError(err)
	require.Equal(h1, h2)
}

func TestEmptyBlockAttestationHashVariesByHeight(t *testing.T) {
	require := require.New(t)

	a := EmptyBlockAttestationHash(1)
	b := EmptyBlockAttestationHash(2)
	require.NotEqual(a, b)
	require.Equal(a, EmptyBlockAttestationHash(1))
}
