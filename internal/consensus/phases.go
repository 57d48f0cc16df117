package consensus

import (
	"context"
	"sort"
	"time"

	"github.com/angstrom-protocol/angstrom/pkg/types"
	"github.com/angstrom-protocol/angstrom/pkg/wire"
)

// bidAggregationPhase waits for the adaptive PreProposalWaitTrigger while
// buffering any pre-proposals/aggregations that arrive early.
type bidAggregationPhase struct{}

func (p *bidAggregationPhase) name() string { return "BidAggregation" }

func (p *bidAggregationPhase) onMessage(r *Round, from types.PeerId, msg wire.StromProtocolMessage) (phase, error) {
	switch msg.MessageId {
	case wire.MessagePrePropose:
		r.insertPreProposal(*msg.PrePropose)
	case wire.MessagePreProposeAgg:
		r.insertAggregation(*msg.PreProposeAgg)
	case wire.MessagePropose:
		if err := verifyProposal(r, msg.Propose); err != nil {
			r.observeVerificationFailure(err)
			return p, nil
		}
		return enterFinalization(r, msg.Propose)
	}
	return p, nil
}

func (p *bidAggregationPhase) pollTransition(r *Round) (phase, error) {
	if !r.timing.Ready(time.Now(), r.orderCount()) {
		return p, nil
	}
	return enterPreProposal(r)
}

// preProposalPhase broadcasts the local snapshot as a pre-proposal and
// waits for 2/3 of the committee.
type preProposalPhase struct{}

func enterPreProposal(r *Round) (phase, error) {
	pp, err := r.buildLocalPreProposal()
	if err != nil {
		return nil, err
	}
	r.insertPreProposal(pp)
	r.deps.Broadcaster.Broadcast(wire.StromProtocolMessage{MessageId: wire.MessagePrePropose, PrePropose: &pp})

	next := &preProposalPhase{}
	if len(r.preProposals) >= r.threshold() {
		return enterPreProposalAggregation(r)
	}
	return next, nil
}

func (p *preProposalPhase) name() string { return "PreProposal" }

func (p *preProposalPhase) onMessage(r *Round, from types.PeerId, msg wire.StromProtocolMessage) (phase, error) {
	switch msg.MessageId {
	case wire.MessagePrePropose:
		r.insertPreProposal(*msg.PrePropose)
		if len(r.preProposals) >= r.threshold() {
			return enterPreProposalAggregation(r)
		}
	case wire.MessagePreProposeAgg:
		r.insertAggregation(*msg.PreProposeAgg)
	case wire.MessagePropose:
		if err := verifyProposal(r, msg.Propose); err != nil {
			r.observeVerificationFailure(err)
			return p, nil
		}
		return enterFinalization(r, msg.Propose)
	}
	return p, nil
}

func (p *preProposalPhase) pollTransition(r *Round) (phase, error) { return p, nil }

// preProposalAggregationPhase signs the collected pre-proposals and, if
// this node is the elected leader, waits for 2/3 of the committee's
// aggregations before building a Proposal.
type preProposalAggregationPhase struct{}

func enterPreProposalAggregation(r *Round) (phase, error) {
	agg, err := r.buildAggregation()
	if err != nil {
		return nil, err
	}
	r.insertAggregation(agg)
	r.deps.Broadcaster.Broadcast(wire.StromProtocolMessage{MessageId: wire.MessagePreProposeAgg, PreProposeAgg: &agg})

	next := &preProposalAggregationPhase{}
	if r.isLeader() && len(r.aggregations) >= r.threshold() {
		return enterProposal(r)
	}
	return next, nil
}

func (p *preProposalAggregationPhase) name() string { return "PreProposalAggregation" }

func (p *preProposalAggregationPhase) onMessage(r *Round, from types.PeerId, msg wire.StromProtocolMessage) (phase, error) {
	switch msg.MessageId {
	case wire.MessagePreProposeAgg:
		r.insertAggregation(*msg.PreProposeAgg)
		if r.isLeader() && len(r.aggregations) >= r.threshold() {
			return enterProposal(r)
		}
	case wire.MessagePropose:
		if err := verifyProposal(r, msg.Propose); err != nil {
			r.observeVerificationFailure(err)
			return p, nil
		}
		return enterFinalization(r, msg.Propose)
	}
	return p, nil
}

func (p *preProposalAggregationPhase) pollTransition(r *Round) (phase, error) { return p, nil }

// enterProposal builds this node's proposal (leader only): it flattens the
// aggregations' embedded pre-proposals, runs the matching engine, signs,
// broadcasts, and falls straight through to Finalization. An uncrossable block across every pool produces a signed
// empty-block attestation instead.
func enterProposal(r *Round) (phase, error) {
	ctx := context.Background()
	flattened := r.flattenPreProposals()
	solutions, _ := runMatching(ctx, r.deps.Snapshots, flattened)

	if len(solutions) == 0 {
		hash := wire.EmptyBlockAttestationHash(r.blockHeight)
		sig, err := r.deps.Signer.Sign(hash)
		if err != nil {
			return nil, err
		}
		attestation := types.AttestAngstromBlockEmpty{
			BlockHeight: r.blockHeight,
			Source:      r.deps.Signer.PeerId(),
			Signature:   sig,
		}
		r.deps.Submitter.SubmitEmptyBlock(ctx, attestation)
		if r.deps.Events != nil {
			r.deps.Events.PublishEmptyBlock(attestation)
		}
		return enterFinalization(r, nil)
	}

	aggs := make([]types.PreProposalAggregation, 0, len(r.aggregations))
	for _, a := range r.aggregations {
		aggs = append(aggs, a)
	}
	sort.Slice(aggs, func(i, j int) bool { return aggs[i].Source.String() < aggs[j].Source.String() })

	hash, err := wire.ProposalSignHash(r.blockHeight, aggs, solutions)
	if err != nil {
		return nil, err
	}
	sig, err := r.deps.Signer.Sign(hash)
	if err != nil {
		return nil, err
	}
	proposal := &types.Proposal{
		BlockHeight:  r.blockHeight,
		Source:       r.deps.Signer.PeerId(),
		PreProposals: aggs,
		Solutions:    solutions,
		Signature:    sig,
	}
	r.deps.Broadcaster.Broadcast(wire.StromProtocolMessage{MessageId: wire.MessagePropose, Propose: proposal})
	r.deps.Submitter.SubmitBundle(ctx, *proposal)
	return enterFinalization(r, proposal)
}

// finalizationPhase re-runs matching on the winning proposal's embedded
// pre-proposals and compares against the claimed solutions, then the round
// ends.
type finalizationPhase struct {
	proposal *types.Proposal
}

func enterFinalization(r *Round, proposal *types.Proposal) (phase, error) {
	f := &finalizationPhase{proposal: proposal}
	if proposal != nil {
		r.proposal = proposal
		flattened := flattenAggregations(proposal.PreProposals)
		recomputed, _ := runMatching(context.Background(), r.deps.Snapshots, flattened)
		if !solutionsEquivalent(recomputed, proposal.Solutions) {
			r.observeVerificationFailure(&ConsensusError{
				Kind:        SolutionMismatch,
				BlockHeight: r.blockHeight,
				Source:      proposal.Source,
				Detail:      "re-running matching does not reproduce the claimed solutions",
			})
		}
	}
	return f, nil
}

func (f *finalizationPhase) name() string { return "Finalization" }

func (f *finalizationPhase) onMessage(r *Round, from types.PeerId, msg wire.StromProtocolMessage) (phase, error) {
	return f, nil // round is over; any further message is stale
}

func (f *finalizationPhase) pollTransition(r *Round) (phase, error) { return f, nil }

func flattenAggregations(aggs []types.PreProposalAggregation) []types.PreProposal {
	bySource := make(map[types.PeerId]types.PreProposal)
	for _, agg := range aggs {
		for _, pp := range agg.PreProposals {
			bySource[pp.Source] = pp
		}
	}
	out := make([]types.PreProposal, 0, len(bySource))
	for _, pp := range bySource {
		out = append(out, pp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Source.String() < out[j].Source.String() })
	return out
}

// solutionsEquivalent compares two solution sets up to permutation, since both sides already sort by PoolId.
func solutionsEquivalent(a, b []types.PoolSolution) bool {
	if len(a) != len(b) {
		return false
	}
	sort.Slice(a, func(i, j int) bool { return a[i].PoolId.String() < a[j].PoolId.String() })
	sort.Slice(b, func(i, j int) bool { return b[i].PoolId.String() < b[j].PoolId.String() })
	for i := range a {
		if a[i].PoolId != b[i].PoolId || a[i].Ucp.Cmp(b[i].Ucp) != 0 || len(a[i].FilledOrders) != len(b[i].FilledOrders) {
			return false
		}
		// Filled orders must match as a set of (order hash, filled qty).
		want := make(map[types.OrderHash]string, len(a[i].FilledOrders))
		for _, f := range a[i].FilledOrders {
			want[f.OrderHash] = f.FilledQty.String()
		}
		for _, f := range b[i].FilledOrders {
			if q, ok := want[f.OrderHash]; !ok || q != f.FilledQty.String() {
				return false
			}
			delete(want, f.OrderHash)
		}
	}
	return true
}
