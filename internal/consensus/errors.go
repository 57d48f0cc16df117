package consensus

import (
	"fmt"

	"github.com/angstrom-protocol/angstrom/pkg/types"
)

// ConsensusErrorKind classifies a consensus verification failure.
type ConsensusErrorKind uint8

const (
	// ProposalFromNonLeader: the proposal's source is not the elected
	// leader for its height, or its signature does not prove the leader
	// produced it.
	ProposalFromNonLeader ConsensusErrorKind = iota
	// AggregationBelowThreshold: a pre-proposal aggregation carries fewer
	// than ceil(2n/3) pre-proposals.
	AggregationBelowThreshold
	// EmbeddedPreProposalInvalid: an aggregation's own signature, or one of
	// its embedded pre-proposals' signatures, fails verification.
	EmbeddedPreProposalInvalid
	// SolutionMismatch: re-running the matching engine on a proposal's
	// embedded pre-proposals does not reproduce its claimed solutions.
	SolutionMismatch
)

func (k ConsensusErrorKind) String() string {
	switch k {
	case ProposalFromNonLeader:
		return "ProposalFromNonLeader"
	case AggregationBelowThreshold:
		return "AggregationBelowThreshold"
	case EmbeddedPreProposalInvalid:
		return "EmbeddedPreProposalInvalid"
	case SolutionMismatch:
		return "SolutionMismatch"
	default:
		return "Unknown"
	}
}

// ConsensusError is a structured verification failure. It never halts the
// round's FSM: the offending message is dropped (or, for SolutionMismatch,
// the round ends without an accepted bundle) and the error is published to
// subscribers as evidence for future slashing.
type ConsensusError struct {
	Kind        ConsensusErrorKind
	BlockHeight uint64
	Source      types.PeerId
	Detail      string
}

func (e *ConsensusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("consensus: %s at height %d from %s", e.Kind, e.BlockHeight, e.Source)
	}
	return fmt.Sprintf("consensus: %s at height %d from %s: %s", e.Kind, e.BlockHeight, e.Source, e.Detail)
}
