package types

import "github.com/angstrom-protocol/angstrom/pkg/ray"

// PreProposal is a single validator's signed view of the order set for a
// block.
type PreProposal struct {
	BlockHeight uint64
	Source      PeerId
	Limit       []OrderWithStorageData[AllOrders]
	Searcher    []OrderWithStorageData[TopOfBlockOrder]
	Signature   Signature
}

// PreProposalAggregation is a validator-signed bundle of at least 2f+1
// pre-proposals for a block.
type PreProposalAggregation struct {
	BlockHeight  uint64
	Source       PeerId
	PreProposals []PreProposal
	Signature    Signature
}

// FilledOrder records one matched order and how much of it was filled.
type FilledOrder struct {
	OrderHash OrderHash
	FilledQty ray.Ray
	IsPartial bool
}

// PoolSolution is the matching engine's output for one pool.
type PoolSolution struct {
	PoolId        Hash
	Ucp           ray.Ray
	Fee           uint32
	AmmIsBid      bool
	HasAmmLeg     bool
	AmmQuantityIn ray.Ray
	FilledOrders  []FilledOrder
}

// Proposal is the leader's signed combination of an aggregation plus the
// resulting matching solutions for the block.
type Proposal struct {
	BlockHeight  uint64
	Source       PeerId
	PreProposals []PreProposalAggregation // sorted by Source
	Solutions    []PoolSolution           // sorted by PoolId
	Signature    Signature
}

// AttestAngstromBlockEmpty is the signed placeholder a leader submits in
// place of a bundle when the committee agreed no pool could cross.
type AttestAngstromBlockEmpty struct {
	BlockHeight uint64
	Source      PeerId
	Signature   Signature
}
