// Package consensus implements the per-block state machine: BidAggregation
// -> PreProposal -> PreProposalAggregation -> Proposal (leader only) ->
// Finalization, built as a chain of value-type phases each driven by
// onMessage and pollTransition.
package consensus

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/angstrom-protocol/angstrom/internal/matching"
	"github.com/angstrom-protocol/angstrom/internal/obs"
	"github.com/angstrom-protocol/angstrom/internal/orderpool"
	"github.com/angstrom-protocol/angstrom/internal/validatorset"
	"github.com/angstrom-protocol/angstrom/pkg/signer"
	"github.com/angstrom-protocol/angstrom/pkg/types"
	"github.com/angstrom-protocol/angstrom/pkg/wire"
)

// Broadcaster sends a signed consensus message to every live session.
type Broadcaster interface {
	Broadcast(msg wire.StromProtocolMessage)
}

// SnapshotSource resolves a pool's current AMM state for the matching
// engine.
type SnapshotSource interface {
	Snapshot(poolId types.Hash) (matching.PoolSnapshot, bool)
}

// Submitter hands a finalized bundle, or an empty-block attestation, to the
// chain submission fan-out.
type Submitter interface {
	SubmitBundle(ctx context.Context, proposal types.Proposal)
	SubmitEmptyBlock(ctx context.Context, attestation types.AttestAngstromBlockEmpty)
}

// Publisher surfaces phase transitions and terminal outcomes to JSON-RPC
// subscribers. Nil is a valid Deps.Events: the round
// simply publishes nothing.
type Publisher interface {
	PublishPhase(blockHeight uint64, phase string)
	PublishEmptyBlock(attestation types.AttestAngstromBlockEmpty)
	// PublishSlashable surfaces a structured verification failure to
	// subscribers as evidence for future slashing; the round itself only
	// drops the offending message.
	PublishSlashable(e *ConsensusError)
}

// Deps are the collaborators a Round needs; shared across every block's
// Round instance.
type Deps struct {
	Signer      *signer.Signer
	Validators  *validatorset.Set
	Pool        *orderpool.OrderPool
	Snapshots   SnapshotSource
	Broadcaster Broadcaster
	Submitter   Submitter
	Events      Publisher
	Log         obs.Logger
}

// phase is one substate of the block's consensus FSM.
type phase interface {
	name() string
	onMessage(r *Round, from types.PeerId, msg wire.StromProtocolMessage) (phase, error)
	pollTransition(r *Round) (phase, error)
}

// Round drives exactly one block height's consensus instance. Only one
// Round is ever active at a time per node; OnMessage and Poll serialize on
// the Round's own mutex.
type Round struct {
	deps        Deps
	blockHeight uint64
	timing      *WaitTrigger
	startedAt   time.Time

	mu    sync.Mutex
	cur   phase
	done  chan struct{}
	ended bool

	preProposals  map[types.PeerId]types.PreProposal
	aggregations  map[types.PeerId]types.PreProposalAggregation
	proposal      *types.Proposal
	bufferedEarly []wire.StromProtocolMessage // never written: every phase before Finalization handles a Proposal on arrival
}

// New starts a fresh Round for blockHeight. Call Poll in a loop (or from a
// dispatcher) and feed messages through OnMessage until Done() is closed.
func New(deps Deps, blockHeight uint64, timing *WaitTrigger, now time.Time) *Round {
	r := &Round{
		deps:         deps,
		blockHeight:  blockHeight,
		timing:       timing,
		startedAt:    now,
		done:         make(chan struct{}),
		preProposals: make(map[types.PeerId]types.PreProposal),
		aggregations: make(map[types.PeerId]types.PreProposalAggregation),
	}
	r.cur = &bidAggregationPhase{}
	deps.Log.Info("consensus round started", "block_height", blockHeight, "phase", r.cur.name())
	return r
}

// Done reports round completion (Finalization reached).
func (r *Round) Done() <-chan struct{} { return r.done }

// BlockHeight returns the round's block number.
func (r *Round) BlockHeight() uint64 { return r.blockHeight }

// OnMessage feeds one inbound consensus message into the round.
func (r *Round) OnMessage(from types.PeerId, msg wire.StromProtocolMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ended {
		return
	}
	next, err := r.cur.onMessage(r, from, msg)
	if err != nil {
		r.deps.Log.Warn("consensus message rejected", "block_height", r.blockHeight, "phase", r.cur.name(), "err", err)
		return
	}
	r.transition(next)
}

// Poll checks the current phase's time-based transition (the wait
// trigger). Callers drive this from a ticker; message-driven transitions
// happen synchronously inside OnMessage.
func (r *Round) Poll(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ended {
		return
	}
	next, err := r.cur.pollTransition(r)
	if err != nil {
		r.deps.Log.Warn("consensus poll failed", "block_height", r.blockHeight, "phase", r.cur.name(), "err", err)
		return
	}
	r.transition(next)
}

func (r *Round) transition(next phase) {
	if next == nil || next == r.cur {
		return
	}
	r.deps.Log.Info("consensus phase transition", "block_height", r.blockHeight, "from", r.cur.name(), "to", next.name())
	r.cur = next
	if r.deps.Events != nil {
		r.deps.Events.PublishPhase(r.blockHeight, next.name())
	}
	if _, ok := next.(*finalizationPhase); ok && !r.ended {
		r.ended = true
		close(r.done)
	}
}

func (r *Round) threshold() int { return r.deps.Validators.Threshold2f1() }

// observeVerificationFailure logs a verification failure and, when it is a
// structured *ConsensusError, publishes it to subscribers. The round never
// halts on one: the offending message is simply dropped.
func (r *Round) observeVerificationFailure(err error) {
	r.deps.Log.Warn("consensus verification failed", "block_height", r.blockHeight, "err", err)
	if r.deps.Events == nil {
		return
	}
	if cerr, ok := err.(*ConsensusError); ok {
		r.deps.Events.PublishSlashable(cerr)
	}
}

func (r *Round) isLeader() bool {
	return r.deps.Validators.IsLeaderAt(r.deps.Signer.Address(), r.blockHeight)
}

func (r *Round) orderCount() int {
	n := 0
	for _, poolId := range r.deps.Pool.PoolIds() {
		n += len(r.deps.Pool.OrdersByPool(poolId, orderpool.PendingLocation))
		n += len(r.deps.Pool.OrdersByPool(poolId, orderpool.SearcherLocation))
	}
	return n
}

// buildLocalPreProposal snapshots every pool's pending book and searcher
// order into a signed PreProposal.
func (r *Round) buildLocalPreProposal() (types.PreProposal, error) {
	var limit []types.OrderWithStorageData[types.AllOrders]
	var searcher []types.OrderWithStorageData[types.TopOfBlockOrder]
	for _, poolId := range r.deps.Pool.PoolIds() {
		for _, o := range r.deps.Pool.OrdersByPool(poolId, orderpool.PendingLocation) {
			limit = append(limit, *o)
		}
		for _, o := range r.deps.Pool.OrdersByPool(poolId, orderpool.SearcherLocation) {
			searcher = append(searcher, *o)
		}
	}
	hash, err := wire.PreProposalSignHash(r.blockHeight, limit, searcher)
	if err != nil {
		return types.PreProposal{}, err
	}
	sig, err := r.deps.Signer.Sign(hash)
	if err != nil {
		return types.PreProposal{}, err
	}
	return types.PreProposal{
		BlockHeight: r.blockHeight,
		Source:      r.deps.Signer.PeerId(),
		Limit:       limit,
		Searcher:    searcher,
		Signature:   sig,
	}, nil
}

func (r *Round) insertPreProposal(pp types.PreProposal) {
	r.preProposals[pp.Source] = pp
}

func (r *Round) buildAggregation() (types.PreProposalAggregation, error) {
	pps := make([]types.PreProposal, 0, len(r.preProposals))
	for _, pp := range r.preProposals {
		pps = append(pps, pp)
	}
	sort.Slice(pps, func(i, j int) bool { return pps[i].Source.String() < pps[j].Source.String() })
	hash, err := wire.AggregationSignHash(r.blockHeight, pps)
	if err != nil {
		return types.PreProposalAggregation{}, err
	}
	sig, err := r.deps.Signer.Sign(hash)
	if err != nil {
		return types.PreProposalAggregation{}, err
	}
	return types.PreProposalAggregation{
		BlockHeight:  r.blockHeight,
		Source:       r.deps.Signer.PeerId(),
		PreProposals: pps,
		Signature:    sig,
	}, nil
}

func (r *Round) insertAggregation(agg types.PreProposalAggregation) {
	r.aggregations[agg.Source] = agg
}

// flattenPreProposals unions, by source, the pre-proposals embedded across
// every collected aggregation.
func (r *Round) flattenPreProposals() []types.PreProposal {
	bySource := make(map[types.PeerId]types.PreProposal)
	for _, agg := range r.aggregations {
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
