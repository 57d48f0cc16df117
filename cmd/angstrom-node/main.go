// Command angstrom-node documents how this repository's components are
// wired into a single running validator. It deliberately stops short of a
// runnable node: CLI flag parsing, config-file loading, and starting the
// network listener / consensus round loop are all host responsibilities
// outside this repository's scope.
package main

import (
	"fmt"
	"os"

	"github.com/angstrom-protocol/angstrom/internal/config"
	"github.com/angstrom-protocol/angstrom/internal/node"
	"github.com/angstrom-protocol/angstrom/internal/obs"
	"github.com/angstrom-protocol/angstrom/pkg/signer"
	"github.com/angstrom-protocol/angstrom/pkg/types"
	"go.uber.org/zap/zapcore"
)

func main() {
	log := obs.New(os.Stderr, zapcore.InfoLevel)

	nodeSigner, err := signer.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "angstrom-node: generate signing key: %v\n", err)
		os.Exit(1)
	}

	cfg := config.MainnetConfig()
	cfg.Node.PoolManagerAddress = types.Address{} // set from node_config TOML in a real deployment
	cfg.Node.AngstromAddress = types.Address{}    // set from node_config TOML in a real deployment
	cfg.Node.DeployBlock = 1                      // set from node_config TOML in a real deployment
	cfg.PoolKeys = nil                            // set from pool_key_config TOML in a real deployment

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "angstrom-node: this wiring demo ships no real config; %v\n", err)
		fmt.Fprintln(os.Stderr, "angstrom-node: supply node_config/pool_key_config and chain collaborators via internal/node.New to run for real")
		return
	}

	committee := []types.Address{nodeSigner.Address()}

	// chain.StateView, EVMSimulator, ContractVerifier, GasOracle, and the
	// chain-submission sinks all depend on a live EVM chain connection,
	// which this repository treats as an external collaborator. A real
	// host constructs node.Chain from its own RPC/relay clients here.
	n, err := node.New(cfg, nodeSigner, committee, node.Chain{}, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "angstrom-node: wire node: %v\n", err)
		os.Exit(1)
	}

	log.Info("angstrom-node wired", "validators", len(committee), "pools", len(n.Config.PoolKeys))
}
