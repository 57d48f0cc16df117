package consensus

import (
	"context"
	"sort"

	"github.com/angstrom-protocol/angstrom/internal/matching"
	"github.com/angstrom-protocol/angstrom/internal/orderpool"
	"github.com/angstrom-protocol/angstrom/pkg/types"
)

// bookFromPreProposals unions the Limit and Searcher orders embedded
// across preProposals, deduplicated by hash, and buckets them by pool so
// the matching engine can run once per pool. Each pool's limit book is a
// PricePartialVolume-ordered index: the matcher wants partials ahead of
// exacts at equal price, since a partial can absorb whatever residual
// quantity remains at the clearing price and an exact order cannot.
func bookFromPreProposals(preProposals []types.PreProposal) map[types.Hash]*poolBook {
	books := make(map[types.Hash]*poolBook)

	bookFor := func(poolId types.Hash) *poolBook {
		b, ok := books[poolId]
		if !ok {
			b = &poolBook{limit: orderpool.NewPendingPoolWithStrategy[types.AllOrders](orderpool.PricePartialVolume)}
			books[poolId] = b
		}
		return b
	}

	for _, pp := range preProposals {
		for _, o := range pp.Limit {
			osd := o
			// Insert dedupes by hash: the same order carried by several
			// validators' pre-proposals lands in its pool's book once.
			bookFor(o.PoolId).limit.Insert(&osd)
		}
		for _, o := range pp.Searcher {
			b := bookFor(o.PoolId)
			if b.searcher == nil {
				osd := o
				b.searcher = &osd
			}
		}
	}
	return books
}

type poolBook struct {
	limit    *orderpool.PendingPool[types.AllOrders]
	searcher *types.OrderWithStorageData[types.TopOfBlockOrder]
}

// runMatching executes the matching engine once per pool named in
// preProposals' union, silently skipping any pool with no snapshot or whose
// book turns out uncrossable. Solutions are returned sorted by PoolId.
func runMatching(ctx context.Context, snapshots SnapshotSource, preProposals []types.PreProposal) ([]types.PoolSolution, []*matching.Solution) {
	books := bookFromPreProposals(preProposals)
	poolIds := make([]types.Hash, 0, len(books))
	for id := range books {
		poolIds = append(poolIds, id)
	}
	sort.Slice(poolIds, func(i, j int) bool { return poolIds[i].String() < poolIds[j].String() })

	var solutions []types.PoolSolution
	var full []*matching.Solution
	for _, poolId := range poolIds {
		snap, ok := snapshots.Snapshot(poolId)
		if !ok {
			continue
		}
		b := books[poolId]
		sol, err := matching.Solve(ctx, poolId, snap, b.limit.Bids(), b.limit.Asks(), b.searcher)
		if err != nil {
			continue // uncrossable at this price; pool contributes no solution this block
		}
		solutions = append(solutions, sol.PoolSolution)
		full = append(full, sol)
	}
	return solutions, full
}
