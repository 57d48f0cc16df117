package submission

import (
	"context"

	"github.com/angstrom-protocol/angstrom/internal/obs"
	"github.com/angstrom-protocol/angstrom/pkg/types"
)

// Service wires a Builder and a Fanout together into the consensus
// package's Submitter interface.
type Service struct {
	builder *Builder
	fanout  *Fanout
	log     obs.Logger
}

func NewService(builder *Builder, fanout *Fanout, log obs.Logger) *Service {
	return &Service{builder: builder, fanout: fanout, log: log.With("component", "submission-service")}
}

// SubmitBundle builds and races a finalized proposal's bundle transaction
// across every configured sink. Failures are logged; a
// fully-failed submission as per-bundle fatal ("block gives up") rather
// than something the caller retries.
func (s *Service) SubmitBundle(ctx context.Context, proposal types.Proposal) {
	tx, err := s.builder.BuildBundle(ctx, proposal)
	if err != nil {
		s.log.Error("failed to build bundle transaction", "block_height", proposal.BlockHeight, "err", err)
		return
	}
	if _, sink, err := s.fanout.Submit(ctx, tx); err != nil {
		s.log.Error("bundle submission failed on every sink", "block_height", proposal.BlockHeight, "err", err)
	} else {
		s.log.Info("bundle submitted", "block_height", proposal.BlockHeight, "sink", sink)
	}
}

// SubmitEmptyBlock builds and races a signed empty-block attestation when
// the committee agreed no pool could cross.
func (s *Service) SubmitEmptyBlock(ctx context.Context, attestation types.AttestAngstromBlockEmpty) {
	tx, err := s.builder.BuildEmptyAttestation(ctx, attestation)
	if err != nil {
		s.log.Error("failed to build empty-block attestation", "block_height", attestation.BlockHeight, "err", err)
		return
	}
	if _, sink, err := s.fanout.Submit(ctx, tx); err != nil {
		s.log.Error("empty-block attestation failed on every sink", "block_height", attestation.BlockHeight, "err", err)
	} else {
		s.log.Info("empty-block attestation submitted", "block_height", attestation.BlockHeight, "sink", sink)
	}
}
