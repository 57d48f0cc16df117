// Package node wires every component this repository implements into one
// running angstrom validator node. It owns
// construction order only: the chain-dependent collaborators validation
// needs (state reads, EVM simulation, contract signature checks, a gas
// oracle feed) and chain submission needs (an RPC-broadcasting mempool
// client, a MEV-relay HTTP endpoint, a direct block-builder submitter) are
// outside this repository's scope and are supplied by the embedding host through
// the Chain field.
package node

import (
	"github.com/angstrom-protocol/angstrom/internal/config"
	"github.com/angstrom-protocol/angstrom/internal/consensus"
	"github.com/angstrom-protocol/angstrom/internal/events"
	"github.com/angstrom-protocol/angstrom/internal/network"
	"github.com/angstrom-protocol/angstrom/internal/obs"
	"github.com/angstrom-protocol/angstrom/internal/oracle"
	"github.com/angstrom-protocol/angstrom/internal/orderpool"
	"github.com/angstrom-protocol/angstrom/internal/reputation"
	"github.com/angstrom-protocol/angstrom/internal/submission"
	"github.com/angstrom-protocol/angstrom/internal/validation"
	"github.com/angstrom-protocol/angstrom/internal/validatorset"
	"github.com/angstrom-protocol/angstrom/pkg/rpcapi"
	"github.com/angstrom-protocol/angstrom/pkg/signer"
	"github.com/angstrom-protocol/angstrom/pkg/types"
)

// Chain bundles every collaborator this repository does not implement:
// on-chain state reads, EVM gas simulation, EOA/contract signature
// verification, the gas-to-token-0 price feed, raw mempool broadcast, the
// MEV-relay HTTP client, and the direct-to-builder submitter. A real deployment supplies these from its chain
// client; tests supply fakes.
type Chain struct {
	StateView        validation.StateView
	ContractVerifier validation.ContractVerifier
	EVMSimulator     validation.EVMSimulator
	GasOracle        validation.GasOracle
	BundleSigner     *submission.BundleSigner
	BundleEncoder    submission.BundleEncoder
	FeeEstimator     submission.FeeEstimator
	RawBroadcaster   submission.RawBroadcaster
	TxSigner         submission.TxSigner
	DirectSubmitter  submission.DirectSubmitter
	RelayEndpoint    string
	BlockGasCap      uint64

	// Snapshots resolves a pool's current AMM state for the matching
	// engine.
	Snapshots consensus.SnapshotSource
}

// Node is every long-lived component of one running validator, wired but
// not started: starting the network listener, the consensus round loop,
// and an RPC transport atop rpcapi.Service are all host responsibilities
// this package stops short of.
type Node struct {
	Config        config.Config
	Signer        *signer.Signer
	Validators    *validatorset.Set
	Reputation    *reputation.Manager
	Network       *network.Manager
	Pool          *orderpool.OrderPool
	Oracle        *oracle.Oracle
	Events        *events.Hub
	Submission    *submission.Service
	RPC           rpcapi.Service
	ConsensusDeps consensus.Deps
}

// New constructs a Node from cfg, this node's signing key, the initial
// committee, and the chain-dependent collaborators the host supplies.
// Construction order: identity, then committee and
// reputation, then the network layer, then the application layers that sit
// on top of it, then consensus and chain submission last since both
// depend on everything else.
func New(cfg config.Config, nodeSigner *signer.Signer, committee []types.Address, chain Chain, log obs.Logger) (*Node, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	validators := validatorset.New(committee)
	repMgr := reputation.NewManager()
	netMgr := network.New(validators, repMgr, log)

	registry := newPoolRegistry(cfg.PoolKeys)
	validator := validation.NewValidator(registry, chain.ContractVerifier, chain.StateView, chain.EVMSimulator, chain.GasOracle)
	validationPool := validation.NewPool(validator, log)
	pool := orderpool.New(validationPool, registry, netMgr, log)

	hub := events.New()
	pool.Subscribe(hub)
	netMgr.AddSink(pool)

	gasOracle := oracle.New()

	builder := submission.NewBuilder(chain.BundleEncoder, chain.FeeEstimator, chain.BlockGasCap, uint64(cfg.Node.FeePremiumBp))
	fanout := buildFanout(chain, log)
	submissionSvc := submission.NewService(builder, fanout, log)

	deps := consensus.Deps{
		Signer:      nodeSigner,
		Validators:  validators,
		Pool:        pool,
		Snapshots:   chain.Snapshots,
		Broadcaster: netMgr,
		Submitter:   submissionSvc,
		Events:      hub,
		Log:         log,
	}

	rpc := rpcapi.NewService(pool, hub, validators, nonceChecker{chain.StateView}, nil, nil)

	return &Node{
		Config:        cfg,
		Signer:        nodeSigner,
		Validators:    validators,
		Reputation:    repMgr,
		Network:       netMgr,
		Pool:          pool,
		Oracle:        gasOracle,
		Events:        hub,
		Submission:    submissionSvc,
		RPC:           rpc,
		ConsensusDeps: deps,
	}, nil
}

func buildFanout(chain Chain, log obs.Logger) *submission.Fanout {
	var sinks []submission.Sink
	if chain.RawBroadcaster != nil && chain.TxSigner != nil {
		sinks = append(sinks, submission.NewMempoolSink("mempool", chain.TxSigner, chain.RawBroadcaster))
	}
	if chain.RelayEndpoint != "" && chain.TxSigner != nil && chain.BundleSigner != nil {
		sinks = append(sinks, submission.NewRelaySink("mev-relay", chain.RelayEndpoint, nil, chain.TxSigner, chain.BundleSigner))
	}
	if chain.DirectSubmitter != nil && chain.TxSigner != nil {
		sinks = append(sinks, submission.NewDirectSink("direct-builder", chain.TxSigner, chain.DirectSubmitter))
	}
	return submission.NewFanout(sinks, log)
}
