// Package signer holds the node's secret key, signs protocol messages, and
// recovers signer identity from signatures. It is the only package allowed
// to touch the node's private key material.
package signer

import (
	"fmt"

	"github.com/angstrom-protocol/angstrom/pkg/types"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// Signature is an alias for types.Signature so callers can keep writing
// signer.Signature in code that otherwise never imports pkg/types directly.
type Signature = types.Signature

// Signer holds a node's secp256k1 key pair and signs/derives identity from
// it. Exactly one Signer exists per running node.
type Signer struct {
	priv   *secp256k1.PrivateKey
	peerID types.PeerId
}

// New generates a fresh random key pair.
func New() (*Signer, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("signer: generate key: %w", err)
	}
	return fromPrivateKey(priv)
}

// FromPrivateKeyBytes builds a Signer from a 32-byte secp256k1 scalar, as
// read from the node's ASCII-hex key file.
func FromPrivateKeyBytes(b []byte) (*Signer, error) {
	if len(b) != 32 {
		return nil, fmt.Errorf("signer: private key must be 32 bytes, got %d", len(b))
	}
	priv := secp256k1.PrivKeyFromBytes(b)
	return fromPrivateKey(priv)
}

func fromPrivateKey(priv *secp256k1.PrivateKey) (*Signer, error) {
	pub := priv.PubKey().SerializeUncompressed()
	peerID, err := types.PeerIdFromUncompressed(pub)
	if err != nil {
		return nil, fmt.Errorf("signer: derive peer id: %w", err)
	}
	return &Signer{priv: priv, peerID: peerID}, nil
}

// PeerId returns the node's network identity, derived once at construction.
func (s *Signer) PeerId() types.PeerId { return s.peerID }

// Address returns the node's on-chain validator address.
func (s *Signer) Address() types.Address { return types.AddressFromPeerId(s.peerID) }

// Sign produces a recoverable signature over a 32-byte hash. Callers are
// responsible for hashing the payload the way the protocol defines (see
// wire.StatusHash, wire.OrderHash, etc.) before calling Sign.
func (s *Signer) Sign(hash types.Hash) (Signature, error) {
	sig := ecdsa.SignCompact(s.priv, hash[:], false)
	return fromCompact(sig), nil
}

// fromCompact converts the library's recovery-id-leading compact form into
// our r||s||v wire layout.
func fromCompact(compact []byte) Signature {
	var out Signature
	copy(out[:64], compact[1:65])
	out[64] = compact[0] - 27
	return out
}

func toCompact(sig Signature) []byte {
	compact := make([]byte, 65)
	compact[0] = sig[64] + 27
	copy(compact[1:], sig[:64])
	return compact
}

// Recover recovers the uncompressed public key, and its derived PeerId,
// that produced sig over hash.
func Recover(hash types.Hash, sig Signature) (types.PeerId, error) {
	pub, _, err := ecdsa.RecoverCompact(toCompact(sig), hash[:])
	if err != nil {
		return types.PeerId{}, fmt.Errorf("signer: recover: %w", err)
	}
	return types.PeerIdFromUncompressed(pub.SerializeUncompressed())
}

// VerifySignerIs reports whether sig over hash recovers to exactly want.
func VerifySignerIs(hash types.Hash, sig Signature, want types.PeerId) bool {
	got, err := Recover(hash, sig)
	if err != nil {
		return false
	}
	return got == want
}
