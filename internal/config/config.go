// Package config describes the node's persisted configuration: contract
// addresses, deploy block, and per-pool parameters — the only state the
// node keeps on disk besides its key file. Loading the TOML itself is a
// host concern; this package only defines the shape and its validation.
package config

import (
	"errors"
	"time"

	"github.com/angstrom-protocol/angstrom/pkg/types"
)

// Sentinel validation errors, one per invariant.
// config package's own error-variable-per-check style.
var (
	ErrMissingPoolManager   = errors.New("config: pool manager address is zero")
	ErrMissingAngstrom      = errors.New("config: angstrom contract address is zero")
	ErrInvalidDeployBlock   = errors.New("config: deploy block must be > 0")
	ErrNoPoolKeys           = errors.New("config: at least one pool key is required")
	ErrDuplicatePoolKey     = errors.New("config: duplicate pool key")
	ErrInvalidTickSpacing   = errors.New("config: tick spacing must be > 0")
	ErrInvalidFeePremium    = errors.New("config: fee premium basis points must be in [0, 10000]")
	ErrInvalidReplayWindow  = errors.New("config: replay window must be > 0")
	ErrInvalidRoundInterval = errors.New("config: round interval must be >= 1ms")
)

// NodeConfig is the node_config TOML table: contract addresses the node
// reads/writes against and the block height it was deployed at.
type NodeConfig struct {
	PoolManagerAddress types.Address
	AngstromAddress    types.Address
	DeployBlock        uint64

	// NodeKeyPath points at the ASCII-hex node key file (the one
	// "node key file (ASCII hex)"). Empty means generate ephemeral.
	NodeKeyPath string

	// FeePremiumBp is the EIP-1559 priority-fee premium, in basis points,
	// chain submission adds atop the estimated fee.
	FeePremiumBp uint32

	// ReplayWindow bounds how far back a standing order's nonce is still
	// considered live.
	ReplayWindow time.Duration

	// RoundInterval is the configured minimum spacing between consensus
	// rounds; Validate requires at least 1ms. The consensus WaitTrigger
	// does not read it.
	RoundInterval time.Duration
}

// PoolKeyConfig is one entry of the pool_key_config TOML table: the static
// parameters of a single Angstrom pool.
type PoolKeyConfig struct {
	PoolId       types.Hash
	Token0       types.Address
	Token1       types.Address
	TickSpacing  int32
	BundleFeeBps uint32
}

// Config aggregates NodeConfig and the set of configured pools.
type Config struct {
	Node     NodeConfig
	PoolKeys []PoolKeyConfig
}

// DefaultConfig returns a Config with conservative, locally-runnable
// defaults — no contract addresses set and no pool keys, matching the base
// every preset starts from. It does not pass Validate on its own.
func DefaultConfig() Config {
	return Config{
		Node: NodeConfig{
			FeePremiumBp:  200, // 2%
			ReplayWindow:  24 * time.Hour,
			RoundInterval: 100 * time.Millisecond,
		},
		PoolKeys: []PoolKeyConfig{},
	}
}

// MainnetConfig returns the preset used against Ethereum mainnet: wider
// replay window and a slightly richer fee premium to outbid competing
// searchers.
func MainnetConfig() Config {
	c := DefaultConfig()
	c.Node.ReplayWindow = 7 * 24 * time.Hour
	c.Node.RoundInterval = 250 * time.Millisecond
	c.Node.FeePremiumBp = 500 // 5%
	return c
}

// TestnetConfig returns the preset used against a public testnet: shorter
// replay window, cheaper fee premium, faster rounds for iteration.
func TestnetConfig() Config {
	c := DefaultConfig()
	c.Node.ReplayWindow = time.Hour
	c.Node.RoundInterval = 50 * time.Millisecond
	c.Node.FeePremiumBp = 100 // 1%
	return c
}

// Validate checks every invariant Config must satisfy before the node can
// start, returning the first sentinel error it finds: one check per
// field, first failure wins.
func (c Config) Validate() error {
	switch {
	case c.Node.PoolManagerAddress == (types.Address{}):
		return ErrMissingPoolManager
	case c.Node.AngstromAddress == (types.Address{}):
		return ErrMissingAngstrom
	case c.Node.DeployBlock == 0:
		return ErrInvalidDeployBlock
	case c.Node.FeePremiumBp > 10_000:
		return ErrInvalidFeePremium
	case c.Node.ReplayWindow <= 0:
		return ErrInvalidReplayWindow
	case c.Node.RoundInterval < time.Millisecond:
		return ErrInvalidRoundInterval
	case len(c.PoolKeys) == 0:
		return ErrNoPoolKeys
	}

	seen := make(map[types.Hash]bool, len(c.PoolKeys))
	for _, pk := range c.PoolKeys {
		if pk.TickSpacing <= 0 {
			return ErrInvalidTickSpacing
		}
		if seen[pk.PoolId] {
			return ErrDuplicatePoolKey
		}
		seen[pk.PoolId] = true
	}
	return nil
}
