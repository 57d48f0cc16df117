package wire

import (
	"encoding/binary"

	"github.com/angstrom-protocol/angstrom/pkg/types"
)

func init() {
	types.SetOrderHasher(OrderHash)
}

// StatusHash computes keccak256(version || chain_id_be64 || peer ||
// timestamp_be128). The protocol's 128-bit
// timestamp field is zero-extended from our 64-bit millisecond clock.
func StatusHash(s types.StatusState) types.Hash {
	buf := make([]byte, 0, 1+8+64+16)
	buf = append(buf, s.Version)
	buf = binary.BigEndian.AppendUint64(buf, s.ChainId)
	buf = append(buf, s.Peer[:]...)
	var ts128 [16]byte
	binary.BigEndian.PutUint64(ts128[8:], s.TimestampMs)
	buf = append(buf, ts128[:]...)
	return types.Keccak256(buf)
}

// OrderHash returns the canonical hash of an order's signed fields: the
// keccak256 of its canonical CBOR encoding with the signature zeroed out,
// so the hash commits to exactly what was signed and nothing else.
func OrderHash(o types.AllOrders) types.Hash {
	unsigned := o
	unsigned.Meta.Signature = types.Signature{}
	b, err := Marshal(unsigned)
	if err != nil {
		// Marshal only fails on unsupported types; AllOrders is always
		// encodable, so this path is unreachable in practice.
		return types.Hash{}
	}
	return types.Keccak256(b)
}

// PreProposalSignHash is the hash a validator signs over a PreProposal:
// keccak256(cbor(block_height) || cbor(limit) || cbor(searcher)).
func PreProposalSignHash(blockHeight uint64, limit []types.OrderWithStorageData[types.AllOrders], searcher []types.OrderWithStorageData[types.TopOfBlockOrder]) (types.Hash, error) {
	bh, err := Marshal(blockHeight)
	if err != nil {
		return types.Hash{}, err
	}
	l, err := Marshal(limit)
	if err != nil {
		return types.Hash{}, err
	}
	s, err := Marshal(searcher)
	if err != nil {
		return types.Hash{}, err
	}
	return types.Keccak256(bh, l, s), nil
}

// AggregationSignHash is the hash a validator signs over the set of
// pre-proposals it aggregates: keccak256(cbor(block_height) ||
// cbor(pre_proposals)).
func AggregationSignHash(blockHeight uint64, preProposals []types.PreProposal) (types.Hash, error) {
	bh, err := Marshal(blockHeight)
	if err != nil {
		return types.Hash{}, err
	}
	pp, err := Marshal(preProposals)
	if err != nil {
		return types.Hash{}, err
	}
	return types.Keccak256(bh, pp), nil
}

// ProposalSignHash is the hash the leader signs over the full proposal
// body: keccak256(cbor(block_height) || cbor(preproposals) ||
// cbor(solutions)).
func ProposalSignHash(blockHeight uint64, aggs []types.PreProposalAggregation, solutions []types.PoolSolution) (types.Hash, error) {
	bh, err := Marshal(blockHeight)
	if err != nil {
		return types.Hash{}, err
	}
	a, err := Marshal(aggs)
	if err != nil {
		return types.Hash{}, err
	}
	s, err := Marshal(solutions)
	if err != nil {
		return types.Hash{}, err
	}
	return types.Keccak256(bh, a, s), nil
}

// EmptyBlockAttestationHash is the hash signed to attest that block
// blockHeight produced no settleable bundle.
func EmptyBlockAttestationHash(blockHeight uint64) types.Hash {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, blockHeight)
	return types.Keccak256([]byte("AttestAngstromBlockEmpty"), buf)
}
