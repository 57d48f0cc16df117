package consensus

import (
	"fmt"

	"github.com/angstrom-protocol/angstrom/pkg/signer"
	"github.com/angstrom-protocol/angstrom/pkg/types"
	"github.com/angstrom-protocol/angstrom/pkg/wire"
)

// verifyProposal independently re-derives and checks every signature and
// threshold embedded in an inbound Proposal before this node ever accepts
// it into Finalization. This covers the awkward case of a Proposal arriving
// early with a pre-proposal set this node has never
// seen: rather than trusting the short-circuit, every embedded aggregation
// and pre-proposal is independently verified and the whole message is
// dropped if any one of them fails. Every failure is a *ConsensusError so
// callers can publish it as structured slashing evidence.
func verifyProposal(r *Round, p *types.Proposal) error {
	if !r.deps.Validators.IsLeaderAt(types.AddressFromPeerId(p.Source), p.BlockHeight) {
		return &ConsensusError{
			Kind:        ProposalFromNonLeader,
			BlockHeight: p.BlockHeight,
			Source:      p.Source,
			Detail:      "source is not the elected leader",
		}
	}

	proposalHash, err := wire.ProposalSignHash(p.BlockHeight, p.PreProposals, p.Solutions)
	if err != nil {
		return fmt.Errorf("consensus: rehash proposal: %w", err)
	}
	if !signer.VerifySignerIs(proposalHash, p.Signature, p.Source) {
		return &ConsensusError{
			Kind:        ProposalFromNonLeader,
			BlockHeight: p.BlockHeight,
			Source:      p.Source,
			Detail:      "signature does not recover to source",
		}
	}

	threshold := r.threshold()
	for _, agg := range p.PreProposals {
		if err := verifyAggregation(agg, threshold); err != nil {
			return err
		}
	}
	return nil
}

// verifyAggregation checks one embedded PreProposalAggregation's own
// signature, its 2/3 threshold, and every pre-proposal it in turn embeds.
func verifyAggregation(agg types.PreProposalAggregation, threshold int) error {
	if len(agg.PreProposals) < threshold {
		return &ConsensusError{
			Kind:        AggregationBelowThreshold,
			BlockHeight: agg.BlockHeight,
			Source:      agg.Source,
			Detail:      fmt.Sprintf("only %d pre-proposals, need %d", len(agg.PreProposals), threshold),
		}
	}
	aggHash, err := wire.AggregationSignHash(agg.BlockHeight, agg.PreProposals)
	if err != nil {
		return fmt.Errorf("consensus: rehash aggregation: %w", err)
	}
	if !signer.VerifySignerIs(aggHash, agg.Signature, agg.Source) {
		return &ConsensusError{
			Kind:        EmbeddedPreProposalInvalid,
			BlockHeight: agg.BlockHeight,
			Source:      agg.Source,
			Detail:      "aggregation signature does not recover to source",
		}
	}
	for _, pp := range agg.PreProposals {
		if err := verifyPreProposal(pp); err != nil {
			return err
		}
	}
	return nil
}

// verifyPreProposal re-derives a single pre-proposal's sign hash and
// checks its signature recovers to its claimed source.
func verifyPreProposal(pp types.PreProposal) error {
	hash, err := wire.PreProposalSignHash(pp.BlockHeight, pp.Limit, pp.Searcher)
	if err != nil {
		return fmt.Errorf("consensus: rehash pre-proposal: %w", err)
	}
	if !signer.VerifySignerIs(hash, pp.Signature, pp.Source) {
		return &ConsensusError{
			Kind:        EmbeddedPreProposalInvalid,
			BlockHeight: pp.BlockHeight,
			Source:      pp.Source,
			Detail:      "pre-proposal signature does not recover to source",
		}
	}
	return nil
}
