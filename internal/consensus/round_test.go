package consensus

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/angstrom-protocol/angstrom/internal/matching"
	"github.com/angstrom-protocol/angstrom/internal/obs"
	"github.com/angstrom-protocol/angstrom/internal/orderpool"
	"github.com/angstrom-protocol/angstrom/internal/validation"
	"github.com/angstrom-protocol/angstrom/internal/validatorset"
	"github.com/angstrom-protocol/angstrom/pkg/signer"
	"github.com/angstrom-protocol/angstrom/pkg/types"
	"github.com/angstrom-protocol/angstrom/pkg/wire"
	"github.com/stretchr/testify/require"
)

type broadcastRecorder struct {
	mu   sync.Mutex
	msgs []wire.StromProtocolMessage
}

func (b *broadcastRecorder) Broadcast(msg wire.StromProtocolMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgs = append(b.msgs, msg)
}

func (b *broadcastRecorder) byId(id wire.MessageId) []wire.StromProtocolMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []wire.StromProtocolMessage
	for _, m := range b.msgs {
		if m.MessageId == id {
			out = append(out, m)
		}
	}
	return out
}

type submitRecorder struct {
	mu           sync.Mutex
	bundles      []types.Proposal
	attestations []types.AttestAngstromBlockEmpty
}

func (s *submitRecorder) SubmitBundle(ctx context.Context, proposal types.Proposal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bundles = append(s.bundles, proposal)
}

func (s *submitRecorder) SubmitEmptyBlock(ctx context.Context, attestation types.AttestAngstromBlockEmpty) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attestations = append(s.attestations, attestation)
}

type publishRecorder struct {
	mu        sync.Mutex
	phases    []string
	slashable []*ConsensusError
}

func (p *publishRecorder) PublishPhase(blockHeight uint64, phase string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.phases = append(p.phases, phase)
}

func (p *publishRecorder) PublishEmptyBlock(attestation types.AttestAngstromBlockEmpty) {}

func (p *publishRecorder) PublishSlashable(e *ConsensusError) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.slashable = append(p.slashable, e)
}

func (p *publishRecorder) slashed() []*ConsensusError {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*ConsensusError(nil), p.slashable...)
}

type noSnapshots struct{}

func (noSnapshots) Snapshot(poolId types.Hash) (matching.PoolSnapshot, bool) { return nil, false }

func emptyOrderPool() *orderpool.OrderPool {
	v := validation.NewValidator(nil, nil, nil, nil, nil)
	return orderpool.New(validation.NewPool(v, obs.NoOp()), nil, nil, obs.NoOp())
}

func newTestDeps(t *testing.T, self *signer.Signer, committee []types.Address) (Deps, *broadcastRecorder, *submitRecorder) {
	t.Helper()
	broadcast := &broadcastRecorder{}
	submit := &submitRecorder{}
	deps := Deps{
		Signer:      self,
		Validators:  validatorset.New(committee),
		Pool:        emptyOrderPool(),
		Snapshots:   noSnapshots{},
		Broadcaster: broadcast,
		Submitter:   submit,
		Log:         obs.NoOp(),
	}
	return deps, broadcast, submit
}

// readyTrigger returns a WaitTrigger whose wait has long since elapsed.
func readyTrigger() *WaitTrigger {
	return NewWaitTrigger(time.Now().Add(-time.Minute))
}

func signedPreProposal(t *testing.T, s *signer.Signer, blockHeight uint64) types.PreProposal {
	t.Helper()
	hash, err := wire.PreProposalSignHash(blockHeight, nil, nil)
	require.NoError(t, err)
	sig, err := s.Sign(hash)
	require.NoError(t, err)
	return types.PreProposal{BlockHeight: blockHeight, Source: s.PeerId(), Signature: sig}
}

func signedAggregation(t *testing.T, s *signer.Signer, blockHeight uint64, pps []types.PreProposal) types.PreProposalAggregation {
	t.Helper()
	sort.Slice(pps, func(i, j int) bool { return pps[i].Source.String() < pps[j].Source.String() })
	hash, err := wire.AggregationSignHash(blockHeight, pps)
	require.NoError(t, err)
	sig, err := s.Sign(hash)
	require.NoError(t, err)
	return types.PreProposalAggregation{BlockHeight: blockHeight, Source: s.PeerId(), PreProposals: pps, Signature: sig}
}

func signedProposal(t *testing.T, s *signer.Signer, blockHeight uint64, aggs []types.PreProposalAggregation) *types.Proposal {
	return signedProposalWithSolutions(t, s, blockHeight, aggs, nil)
}

func signedProposalWithSolutions(t *testing.T, s *signer.Signer, blockHeight uint64, aggs []types.PreProposalAggregation, solutions []types.PoolSolution) *types.Proposal {
	t.Helper()
	sort.Slice(aggs, func(i, j int) bool { return aggs[i].Source.String() < aggs[j].Source.String() })
	hash, err := wire.ProposalSignHash(blockHeight, aggs, solutions)
	require.NoError(t, err)
	sig, err := s.Sign(hash)
	require.NoError(t, err)
	return &types.Proposal{BlockHeight: blockHeight, Source: s.PeerId(), PreProposals: aggs, Solutions: solutions, Signature: sig}
}

func TestSingleValidatorRoundRunsToFinalization(t *testing.T) {
	require := require.New(t)
	self, err := signer.New()
	require.NoError(err)
	deps, broadcast, submit := newTestDeps(t, self, []types.Address{self.Address()})

	r := New(deps, 7, readyTrigger(), time.Now())
	r.Poll(context.Background())

	select {
	case <-r.Done():
	default:
		t.Fatal("round did not reach Finalization")
	}

	// The lone validator is its own 2/3 quorum and the elected leader, so a
	// single poll carries the round through every phase.
	require.Len(broadcast.byId(wire.MessagePrePropose), 1)
	require.Len(broadcast.byId(wire.MessagePreProposeAgg), 1)

	// An empty pool has no crossable book: the leader submits a signed
	// empty-block attestation instead of a bundle.
	require.Empty(submit.bundles)
	require.Len(submit.attestations, 1)
	att := submit.attestations[0]
	require.Equal(uint64(7), att.BlockHeight)
	require.Equal(self.PeerId(), att.Source)
	require.True(signer.VerifySignerIs(wire.EmptyBlockAttestationHash(7), att.Signature, self.PeerId()))
}

func TestNonLeaderWaitsForAndAcceptsLeaderProposal(t *testing.T) {
	require := require.New(t)
	a, err := signer.New()
	require.NoError(err)
	b, err := signer.New()
	require.NoError(err)
	committee := []types.Address{a.Address(), b.Address()}

	set := validatorset.New(committee)
	// Pick a height where b leads, so a is the non-leader under test.
	var height uint64
	for h := uint64(0); h < 2; h++ {
		leader, err := set.LeaderAt(h)
		require.NoError(err)
		if leader == b.Address() {
			height = h
			break
		}
	}

	deps, broadcast, submit := newTestDeps(t, a, committee)
	r := New(deps, height, readyTrigger(), time.Now())

	// The trigger fires: a broadcasts its own pre-proposal but with n=2 the
	// threshold is 2, so the round parks in PreProposal.
	r.Poll(context.Background())
	require.Len(broadcast.byId(wire.MessagePrePropose), 1)
	require.Empty(broadcast.byId(wire.MessagePreProposeAgg))

	// b's pre-proposal completes the quorum; a signs and broadcasts its
	// aggregation but, as a non-leader, never proposes.
	ppB := signedPreProposal(t, b, height)
	r.OnMessage(b.PeerId(), wire.StromProtocolMessage{MessageId: wire.MessagePrePropose, PrePropose: &ppB})
	require.Len(broadcast.byId(wire.MessagePreProposeAgg), 1)
	require.Empty(broadcast.byId(wire.MessagePropose))
	select {
	case <-r.Done():
		t.Fatal("non-leader finalized without a proposal")
	default:
	}

	// The leader's proposal, embedding a quorum-sized aggregation, ends the
	// round.
	ppA := signedPreProposal(t, a, height)
	agg := signedAggregation(t, b, height, []types.PreProposal{ppA, ppB})
	proposal := signedProposal(t, b, height, []types.PreProposalAggregation{agg})
	r.OnMessage(b.PeerId(), wire.StromProtocolMessage{MessageId: wire.MessagePropose, Propose: proposal})

	select {
	case <-r.Done():
	default:
		t.Fatal("round did not finalize on the leader's proposal")
	}
	require.Empty(submit.bundles) // only the leader submits
}

func TestProposalFromNonLeaderIsDropped(t *testing.T) {
	require := require.New(t)
	a, err := signer.New()
	require.NoError(err)
	b, err := signer.New()
	require.NoError(err)
	committee := []types.Address{a.Address(), b.Address()}

	set := validatorset.New(committee)
	var height uint64
	for h := uint64(0); h < 2; h++ {
		leader, err := set.LeaderAt(h)
		require.NoError(err)
		if leader == b.Address() {
			height = h
			break
		}
	}

	deps, _, _ := newTestDeps(t, a, committee)
	publisher := &publishRecorder{}
	deps.Events = publisher
	r := New(deps, height, NewWaitTrigger(time.Now()), time.Now())

	// a forges a proposal for a height it does not lead.
	ppA := signedPreProposal(t, a, height)
	ppB := signedPreProposal(t, b, height)
	agg := signedAggregation(t, a, height, []types.PreProposal{ppA, ppB})
	forged := signedProposal(t, a, height, []types.PreProposalAggregation{agg})

	// The verification failure is a typed ConsensusError...
	verr := verifyProposal(r, forged)
	var cerr *ConsensusError
	require.True(errors.As(verr, &cerr))
	require.Equal(ProposalFromNonLeader, cerr.Kind)
	require.Equal(a.PeerId(), cerr.Source)

	// ...and delivering the message drops it and publishes the evidence.
	r.OnMessage(a.PeerId(), wire.StromProtocolMessage{MessageId: wire.MessagePropose, Propose: forged})
	select {
	case <-r.Done():
		t.Fatal("round accepted a proposal from a non-leader")
	default:
	}
	slashed := publisher.slashed()
	require.Len(slashed, 1)
	require.Equal(ProposalFromNonLeader, slashed[0].Kind)
}

func TestEarlyProposalWithBadEmbeddedSignatureIsDropped(t *testing.T) {
	require := require.New(t)
	a, err := signer.New()
	require.NoError(err)
	b, err := signer.New()
	require.NoError(err)
	committee := []types.Address{a.Address(), b.Address()}

	set := validatorset.New(committee)
	var height uint64
	for h := uint64(0); h < 2; h++ {
		leader, err := set.LeaderAt(h)
		require.NoError(err)
		if leader == b.Address() {
			height = h
			break
		}
	}

	deps, _, _ := newTestDeps(t, a, committee)
	r := New(deps, height, NewWaitTrigger(time.Now()), time.Now())

	// The leader signs the outer proposal correctly, but one embedded
	// pre-proposal's signature belongs to a different source: the whole
	// message must be dropped, not short-circuited to Finalization.
	ppA := signedPreProposal(t, a, height)
	ppB := signedPreProposal(t, b, height)
	ppB.Source = a.PeerId() // signature no longer recovers to Source
	agg := signedAggregation(t, b, height, []types.PreProposal{ppA, ppB})
	proposal := signedProposal(t, b, height, []types.PreProposalAggregation{agg})

	verr := verifyProposal(r, proposal)
	var cerr *ConsensusError
	require.True(errors.As(verr, &cerr))
	require.Equal(EmbeddedPreProposalInvalid, cerr.Kind)

	r.OnMessage(b.PeerId(), wire.StromProtocolMessage{MessageId: wire.MessagePropose, Propose: proposal})
	select {
	case <-r.Done():
		t.Fatal("round accepted a proposal with an invalid embedded pre-proposal")
	default:
	}
}

func TestSolutionMismatchIsPublishedNotFatal(t *testing.T) {
	require := require.New(t)
	a, err := signer.New()
	require.NoError(err)
	b, err := signer.New()
	require.NoError(err)
	committee := []types.Address{a.Address(), b.Address()}

	set := validatorset.New(committee)
	var height uint64
	for h := uint64(0); h < 2; h++ {
		leader, err := set.LeaderAt(h)
		require.NoError(err)
		if leader == b.Address() {
			height = h
			break
		}
	}

	deps, _, _ := newTestDeps(t, a, committee)
	publisher := &publishRecorder{}
	deps.Events = publisher
	r := New(deps, height, NewWaitTrigger(time.Now()), time.Now())

	// The leader's proposal is correctly signed over solutions that a local
	// re-match (no snapshots, empty books) cannot reproduce.
	ppA := signedPreProposal(t, a, height)
	ppB := signedPreProposal(t, b, height)
	agg := signedAggregation(t, b, height, []types.PreProposal{ppA, ppB})
	claimed := []types.PoolSolution{{PoolId: types.Hash{1}}}
	proposal := signedProposalWithSolutions(t, b, height, []types.PreProposalAggregation{agg}, claimed)
	r.OnMessage(b.PeerId(), wire.StromProtocolMessage{MessageId: wire.MessagePropose, Propose: proposal})

	// The round still finalizes — the mismatch is evidence, not a halt.
	select {
	case <-r.Done():
	default:
		t.Fatal("round did not finalize on the leader's proposal")
	}
	slashed := publisher.slashed()
	require.Len(slashed, 1)
	require.Equal(SolutionMismatch, slashed[0].Kind)
	require.Equal(b.PeerId(), slashed[0].Source)
	require.Equal(height, slashed[0].BlockHeight)
}

func TestAggregationThresholdFourValidators(t *testing.T) {
	require := require.New(t)

	signers := make([]*signer.Signer, 4)
	committee := make([]types.Address, 4)
	for i := range signers {
		s, err := signer.New()
		require.NoError(err)
		signers[i] = s
		committee[i] = s.Address()
	}
	set := validatorset.New(committee)
	threshold := set.Threshold2f1()
	require.Equal(3, threshold) // ceil(8/3)

	pp0 := signedPreProposal(t, signers[0], 5)
	pp1 := signedPreProposal(t, signers[1], 5)
	pp2 := signedPreProposal(t, signers[2], 5)

	two := signedAggregation(t, signers[0], 5, []types.PreProposal{pp0, pp1})
	require.Error(verifyAggregation(two, threshold))

	three := signedAggregation(t, signers[0], 5, []types.PreProposal{pp0, pp1, pp2})
	require.NoError(verifyAggregation(three, threshold))
}

func TestBidAggregationBuffersEarlyPreProposals(t *testing.T) {
	require := require.New(t)
	a, err := signer.New()
	require.NoError(err)
	b, err := signer.New()
	require.NoError(err)
	committee := []types.Address{a.Address(), b.Address()}

	deps, broadcast, _ := newTestDeps(t, a, committee)
	r := New(deps, 3, NewWaitTrigger(time.Now()), time.Now())

	// b's pre-proposal arrives while a is still in BidAggregation; once the
	// trigger fires, the buffered message counts toward the quorum and the
	// round moves straight through PreProposal into aggregation.
	ppB := signedPreProposal(t, b, 3)
	r.OnMessage(b.PeerId(), wire.StromProtocolMessage{MessageId: wire.MessagePrePropose, PrePropose: &ppB})
	require.Empty(broadcast.byId(wire.MessagePrePropose))

	r.timing = readyTrigger()
	r.Poll(context.Background())
	require.Len(broadcast.byId(wire.MessagePrePropose), 1)
	require.Len(broadcast.byId(wire.MessagePreProposeAgg), 1)
}
