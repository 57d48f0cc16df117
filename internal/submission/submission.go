// Package submission fans a finalized bundle out to the chain across
// several independent sinks, taking whichever accepts first.
package submission

import (
	"context"
	"fmt"
	"math/big"

	"github.com/angstrom-protocol/angstrom/pkg/signer"
	"github.com/angstrom-protocol/angstrom/pkg/types"
)

// BundleEncoder produces the contract-compatible calldata for a finalized
// proposal. The wire layout itself is an on-chain ABI boundary this node
// treats as a black box.
type BundleEncoder interface {
	EncodeBundle(proposal types.Proposal) ([]byte, error)
	EncodeEmptyAttestation(attestation types.AttestAngstromBlockEmpty) ([]byte, error)
}

// FeeEstimator supplies the current EIP-1559 base fee and priority fee so
// the submitter can add its configured premium.
type FeeEstimator interface {
	EstimateFees(ctx context.Context) (baseFee, priorityFee *big.Int, err error)
}

// Transaction is the fully-built, ready-to-sign-and-broadcast payload
// common to every sink ("calldata = execute(pade_encode(bundle)),
// gas limit = block gas cap, EIP-1559 fees = estimated + premium").
type Transaction struct {
	TargetBlock   uint64
	Calldata      []byte
	GasLimit      uint64
	BaseFee       *big.Int
	PriorityFee   *big.Int
	IsAttestation bool
}

// Builder assembles a Transaction for either a matched bundle or an
// empty-block attestation, applying the configured fee premium.
type Builder struct {
	encoder      BundleEncoder
	fees         FeeEstimator
	blockGasCap  uint64
	feePremiumBp uint64 // basis points added on top of the estimated priority fee
}

func NewBuilder(encoder BundleEncoder, fees FeeEstimator, blockGasCap uint64, feePremiumBp uint64) *Builder {
	return &Builder{encoder: encoder, fees: fees, blockGasCap: blockGasCap, feePremiumBp: feePremiumBp}
}

func (b *Builder) BuildBundle(ctx context.Context, proposal types.Proposal) (*Transaction, error) {
	calldata, err := b.encoder.EncodeBundle(proposal)
	if err != nil {
		return nil, fmt.Errorf("encode bundle: %w", err)
	}
	return b.build(ctx, proposal.BlockHeight, calldata, false)
}

func (b *Builder) BuildEmptyAttestation(ctx context.Context, attestation types.AttestAngstromBlockEmpty) (*Transaction, error) {
	calldata, err := b.encoder.EncodeEmptyAttestation(attestation)
	if err != nil {
		return nil, fmt.Errorf("encode empty attestation: %w", err)
	}
	return b.build(ctx, attestation.BlockHeight, calldata, true)
}

func (b *Builder) build(ctx context.Context, targetBlock uint64, calldata []byte, isAttestation bool) (*Transaction, error) {
	base, priority, err := b.fees.EstimateFees(ctx)
	if err != nil {
		return nil, fmt.Errorf("estimate fees: %w", err)
	}
	premium := new(big.Int).Mul(priority, big.NewInt(int64(b.feePremiumBp)))
	premium.Div(premium, big.NewInt(10_000))
	priorityWithPremium := new(big.Int).Add(priority, premium)

	return &Transaction{
		TargetBlock:   targetBlock,
		Calldata:      calldata,
		GasLimit:      b.blockGasCap,
		BaseFee:       base,
		PriorityFee:   priorityWithPremium,
		IsAttestation: isAttestation,
	}, nil
}

// BundleSigner signs the Flashbots-style relay envelope with a key
// dedicated to bundle submission, distinct from the node's consensus
// identity.
type BundleSigner struct {
	s *signer.Signer
}

func NewBundleSigner(s *signer.Signer) *BundleSigner { return &BundleSigner{s: s} }

// FlashbotsSignatureHeader signs body's keccak256 hash and formats the
// result as "address:0x<sig>", the literal X-Flashbots-Signature value
// for the relay path.
func (bs *BundleSigner) FlashbotsSignatureHeader(body []byte) (string, error) {
	hash := types.Keccak256(body)
	sig, err := bs.s.Sign(hash)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:0x%x", bs.s.Address().String(), sig[:]), nil
}
