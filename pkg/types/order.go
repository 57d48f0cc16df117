package types

import "github.com/holiman/uint256"

// OrderKind tags the AllOrders union's concrete variant.
type OrderKind uint8

const (
	ExactStanding OrderKind = iota
	PartialStanding
	ExactFlash
	PartialFlash
	TopOfBlock
)

func (k OrderKind) String() string {
	switch k {
	case ExactStanding:
		return "ExactStanding"
	case PartialStanding:
		return "PartialStanding"
	case ExactFlash:
		return "ExactFlash"
	case PartialFlash:
		return "PartialFlash"
	case TopOfBlock:
		return "TopOfBlock"
	default:
		return "Unknown"
	}
}

// IsFlash reports whether the variant is scoped to a specific block (flash)
// rather than a deadline (standing). Exactly one of Deadline/FlashBlock is
// meaningful per variant.
func (k OrderKind) IsFlash() bool {
	return k == ExactFlash || k == PartialFlash || k == TopOfBlock
}

// IsPartial reports whether the variant permits partial fills.
func (k OrderKind) IsPartial() bool {
	return k == PartialStanding || k == PartialFlash
}

// OrderMeta carries the signer and signature common to every order
// variant.
type OrderMeta struct {
	From      Address
	Signature Signature
	// IsEcdsa distinguishes plain-EOA orders (recover-and-compare) from
	// contract-wallet orders (call the verifier at From with the hash and
	// signature bytes).
	IsEcdsa bool
}

// AllOrders is the order union: exactly one order
// variant, selected by Kind. Fields not meaningful to Kind are left zero.
type AllOrders struct {
	Kind OrderKind

	AssetIn  Address
	AssetOut Address

	// Deadline is set (non-zero) for ExactStanding/PartialStanding orders.
	Deadline uint64
	// FlashBlock is set (non-zero) for ExactFlash/PartialFlash/TopOfBlock
	// orders.
	FlashBlock uint64

	// Price is the limit price, expressed as a sqrt-price-X96 value; must
	// be non-zero and within the pool's representable bounds.
	Price *uint256.Int

	// MinFillAmount is the minimum quantity (in AssetIn units) the order
	// will accept as a fill; must be > 0.
	MinFillAmount *uint256.Int

	// MaxGasT0 bounds how much of the order's proceeds may be consumed by
	// gas, denominated in token-0 units; must be > 0 and strictly less than
	// the order's minimum quantity in token-0.
	MaxGasT0 *uint256.Int

	// MinQtyInT0 is the order's minimum fill quantity, already converted to
	// token-0 units, used only to check MaxGasInT0 < MinQtyInT0.
	MinQtyInT0 *uint256.Int

	// NonceOrSalt is the replay-protection nonce for standing orders, or an
	// arbitrary salt for flash/TOB orders that don't need nonce tracking.
	NonceOrSalt uint64

	Meta OrderMeta
}

// Capabilities is the read-only view the matching engine and validation
// pipeline use, so both stay agnostic to which AllOrders variant they are
// looking at.
type Capabilities interface {
	OrderHash() Hash
	Signer() Address
	TokenIn() Address
	TokenOut() Address
	LimitPrice() *uint256.Int
	MinAmount() *uint256.Int
	MaxGasInT0() *uint256.Int
	DeadlineOrFlashBlock() (deadline uint64, flashBlock uint64)
}

var _ Capabilities = AllOrders{}

// OrderHash returns the canonical keccak256 hash of the order's signed
// fields. Encoding lives in pkg/wire to keep this package free of the CBOR
// dependency; this method is a thin convenience forward.
func (o AllOrders) OrderHash() Hash { return orderHasher(o) }

// orderHasher is injected by pkg/wire at init time to break the import
// cycle types->wire->types while still letting AllOrders satisfy
// Capabilities on its own.
var orderHasher func(AllOrders) Hash = func(AllOrders) Hash { return Hash{} }

// SetOrderHasher installs the canonical hashing function. Called exactly
// once, from pkg/wire's init.
func SetOrderHasher(f func(AllOrders) Hash) { orderHasher = f }

func (o AllOrders) Signer() Address          { return o.Meta.From }
func (o AllOrders) TokenIn() Address         { return o.AssetIn }
func (o AllOrders) TokenOut() Address        { return o.AssetOut }
func (o AllOrders) LimitPrice() *uint256.Int { return o.Price }
func (o AllOrders) MinAmount() *uint256.Int  { return o.MinFillAmount }
func (o AllOrders) MaxGasInT0() *uint256.Int { return o.MaxGasT0 }

func (o AllOrders) DeadlineOrFlashBlock() (uint64, uint64) {
	return o.Deadline, o.FlashBlock
}
