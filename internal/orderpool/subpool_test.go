package orderpool

import (
	"testing"

	"github.com/angstrom-protocol/angstrom/pkg/types"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func entry(hash byte, isBid bool, price, volume, gas uint64, gasUnits uint64) *types.OrderWithStorageData[types.AllOrders] {
	return &types.OrderWithStorageData[types.AllOrders]{
		OrderId: types.OrderHash{hash},
		IsBid:   isBid,
		Priority: types.PriorityData{
			Price:    uint256.NewInt(price),
			Volume:   uint256.NewInt(volume),
			GasT0:    uint256.NewInt(gas),
			GasUnits: gasUnits,
		},
	}
}

func hashes[O any](orders []*types.OrderWithStorageData[O]) []types.OrderHash {
	out := make([]types.OrderHash, len(orders))
	for i, o := range orders {
		out[i] = o.OrderId
	}
	return out
}

func TestBidsSortDescendingByPriceThenVolumeThenGas(t *testing.T) {
	require := require.New(t)
	p := NewPendingPool[types.AllOrders]()

	require.True(p.Insert(entry(1, true, 100, 5, 1, 10)))
	require.True(p.Insert(entry(2, true, 200, 5, 1, 10)))
	require.True(p.Insert(entry(3, true, 200, 9, 1, 10))) // same price, more volume
	require.True(p.Insert(entry(4, true, 100, 5, 3, 10))) // same price/volume, more gas

	require.Equal([]types.OrderHash{{3}, {2}, {4}, {1}}, hashes(p.Bids()))
}

func TestAsksSortAscending(t *testing.T) {
	require := require.New(t)
	p := NewPendingPool[types.AllOrders]()

	require.True(p.Insert(entry(1, false, 300, 1, 1, 1)))
	require.True(p.Insert(entry(2, false, 100, 1, 1, 1)))
	require.True(p.Insert(entry(3, false, 200, 1, 1, 1)))

	require.Equal([]types.OrderHash{{2}, {3}, {1}}, hashes(p.Asks()))
}

func TestInsertRejectsDuplicateAndRemoveMaintainsIndex(t *testing.T) {
	require := require.New(t)
	p := NewPendingPool[types.AllOrders]()

	require.True(p.Insert(entry(1, true, 100, 1, 1, 1)))
	require.False(p.Insert(entry(1, true, 999, 1, 1, 1)))
	require.Equal(1, p.Len())

	require.True(p.Insert(entry(2, true, 50, 1, 1, 1)))
	_, ok := p.Remove(types.OrderHash{1})
	require.True(ok)
	require.Equal([]types.OrderHash{{2}}, hashes(p.Bids()))

	_, ok = p.Remove(types.OrderHash{1})
	require.False(ok)
}

func partialEntry(hash byte, isBid, isPartial bool, price, volume uint64) *types.OrderWithStorageData[types.AllOrders] {
	e := entry(hash, isBid, price, volume, 1, 1)
	e.Priority.IsPartial = isPartial
	return e
}

func TestPricePartialVolumePrefersPartialsAtEqualPrice(t *testing.T) {
	require := require.New(t)
	p := NewPendingPoolWithStrategy[types.AllOrders](PricePartialVolume)

	require.True(p.Insert(partialEntry(1, true, false, 100, 9))) // exact, more volume
	require.True(p.Insert(partialEntry(2, true, true, 100, 5)))  // partial, less volume
	require.True(p.Insert(partialEntry(3, true, false, 200, 1))) // better price wins regardless
	require.True(p.Insert(partialEntry(4, false, false, 300, 9)))
	require.True(p.Insert(partialEntry(5, false, true, 300, 5)))

	// Price still dominates; at equal price the partial leads on both sides
	// even against higher volume.
	require.Equal([]types.OrderHash{{3}, {2}, {1}}, hashes(p.Bids()))
	require.Equal([]types.OrderHash{{5}, {4}}, hashes(p.Asks()))
}

func TestDefaultStrategyIgnoresPartialFlag(t *testing.T) {
	require := require.New(t)
	p := NewPendingPool[types.AllOrders]()

	require.True(p.Insert(partialEntry(1, true, false, 100, 9)))
	require.True(p.Insert(partialEntry(2, true, true, 100, 5)))

	// ByPriceByVolume falls straight through to volume: the bigger exact
	// order stays in front.
	require.Equal([]types.OrderHash{{1}, {2}}, hashes(p.Bids()))
}

func TestEqualPriorityTiesBreakOnHash(t *testing.T) {
	require := require.New(t)
	p := NewPendingPool[types.AllOrders]()

	require.True(p.Insert(entry(7, true, 100, 1, 1, 1)))
	require.True(p.Insert(entry(3, true, 100, 1, 1, 1)))
	require.True(p.Insert(entry(5, true, 100, 1, 1, 1)))

	require.Equal([]types.OrderHash{{3}, {5}, {7}}, hashes(p.Bids()))
}

func TestFinalizationPoolLifecycle(t *testing.T) {
	require := require.New(t)
	f := NewFinalizationPool()

	a := types.AllOrders{Kind: types.ExactStanding, AssetIn: types.Address{1}, AssetOut: types.Address{2}, NonceOrSalt: 1}
	b := types.AllOrders{Kind: types.ExactStanding, AssetIn: types.Address{1}, AssetOut: types.Address{2}, NonceOrSalt: 2}
	f.MarkFilled(10, a)
	f.MarkFilled(12, b)
	require.True(f.Contains(a.OrderHash()))

	f.OnFinalized(10)
	require.False(f.Contains(a.OrderHash()))
	require.True(f.Contains(b.OrderHash()))

	orders, err := f.OnReorg(11, 15)
	require.NoError(err)
	require.Len(orders, 1)
	require.Equal(b.OrderHash(), orders[0].OrderHash())
	require.False(f.Contains(b.OrderHash()))
}
