// Package types defines the wire-level value types shared across the node:
// peer identities, pool keys, orders and the consensus envelope types. None
// of these types carry behavior beyond field access and hashing — the
// components that mutate them (order pool, validation, consensus) live in
// internal/.
package types

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// PeerId is the 64-byte tail of an uncompressed secp256k1 public key
// (pubkey[1:]), used both as the strom-protocol network identity and as the
// input to deriving the validator's on-chain address.
type PeerId [64]byte

func (p PeerId) String() string { return "0x" + hex.EncodeToString(p[:]) }

// Address is a 20-byte EVM address, derived from a PeerId as
// keccak256(peer_id)[12:].
type Address [20]byte

func (a Address) String() string { return "0x" + hex.EncodeToString(a[:]) }

// AddressFromPeerId derives the validator's on-chain address from its
// network identity: address = keccak256(peer_id)[12:].
func AddressFromPeerId(p PeerId) Address {
	h := sha3.NewLegacyKeccak256()
	h.Write(p[:])
	sum := h.Sum(nil)
	var a Address
	copy(a[:], sum[12:])
	return a
}

// PeerIdFromUncompressed derives a PeerId from an uncompressed secp256k1
// public key (65 bytes, leading 0x04 tag byte included).
func PeerIdFromUncompressed(pubkey []byte) (PeerId, error) {
	if len(pubkey) != 65 || pubkey[0] != 0x04 {
		return PeerId{}, fmt.Errorf("types: expected 65-byte uncompressed pubkey with 0x04 tag, got %d bytes", len(pubkey))
	}
	var p PeerId
	copy(p[:], pubkey[1:])
	return p, nil
}

// Signature is a 65-byte recoverable ECDSA signature: r (32) || s (32) ||
// recovery-id (1). Defined here (rather than in pkg/signer) so every typed
// payload that embeds a signature does not need to import the signer
// package, which in turn depends on these types.
type Signature [65]byte

// Hash is a 32-byte keccak256 digest, used for order hashes, message hashes
// and signing hashes throughout the protocol.
type Hash [32]byte

func (h Hash) String() string { return "0x" + hex.EncodeToString(h[:]) }

// Keccak256 hashes buf and returns the digest as a Hash.
func Keccak256(buf ...[]byte) Hash {
	h := sha3.NewLegacyKeccak256()
	for _, b := range buf {
		h.Write(b)
	}
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}
