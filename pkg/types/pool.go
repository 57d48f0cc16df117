package types

import "encoding/binary"

// PoolKey identifies an AMM-backed market: an ordered pair of currencies, a
// fee tier, a tick spacing, and an optional hook contract. currency0 is
// always the lexicographically smaller address.
type PoolKey struct {
	Currency0   Address
	Currency1   Address
	Fee         uint32
	TickSpacing int32
	Hooks       Address
}

// privateFeeFlag is the bit Angstrom toggles on the fee tier to derive the
// "private" variant of a pool id, mirroring the on-chain hook convention
// used when the pool runs with protocol-internal hooks.
const privateFeeFlag = uint32(1) << 23

// PoolId derives the public identifier for this key: keccak256 of the
// packed key fields.
func (k PoolKey) PoolId() Hash {
	return k.poolId(k.Fee)
}

// PrivatePoolId derives the identifier used when the pool is registered
// with Angstrom-specific hook behavior: identical to PoolId except the fee
// tier's private flag bit is set before hashing.
func (k PoolKey) PrivatePoolId() Hash {
	return k.poolId(k.Fee | privateFeeFlag)
}

func (k PoolKey) poolId(fee uint32) Hash {
	buf := make([]byte, 0, 20+20+4+4+20)
	buf = append(buf, k.Currency0[:]...)
	buf = append(buf, k.Currency1[:]...)
	buf = binary.BigEndian.AppendUint32(buf, fee)
	buf = binary.BigEndian.AppendUint32(buf, uint32(k.TickSpacing))
	buf = append(buf, k.Hooks[:]...)
	return Keccak256(buf)
}

// IsOrdered reports whether Currency0 < Currency1 byte-lexicographically, an
// invariant every constructed PoolKey must satisfy.
func (k PoolKey) IsOrdered() bool {
	for i := 0; i < 20; i++ {
		if k.Currency0[i] != k.Currency1[i] {
			return k.Currency0[i] < k.Currency1[i]
		}
	}
	return false
}
