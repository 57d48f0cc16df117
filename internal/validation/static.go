package validation

import (
	"github.com/angstrom-protocol/angstrom/pkg/ray"
	"github.com/angstrom-protocol/angstrom/pkg/types"
)

// staticCheck runs the stateless structural checks:
// required fields are present, the partial-order invariant holds, and gas
// never exceeds the order's own minimum proceeds.
func staticCheck(o types.AllOrders) *Error {
	hash := o.OrderHash()

	if o.Price == nil || o.Price.IsZero() {
		return newErr(ErrNoPriceSpecified, hash, "limit price must be non-zero")
	}
	if !ray.WithinSqrtPriceBounds(o.Price) {
		return newErr(ErrPriceOutOfPoolBounds, hash, "limit price falls outside the representable sqrt-price range")
	}
	if o.MinFillAmount == nil || o.MinFillAmount.IsZero() {
		return newErr(ErrNoAmountSpecified, hash, "minimum fill amount must be non-zero")
	}
	if o.MaxGasT0 == nil || o.MaxGasT0.IsZero() {
		return newErr(ErrNoGasSpecified, hash, "max gas in token-0 must be non-zero")
	}
	if o.AssetIn == o.AssetOut {
		return newErr(ErrInvalidToBSwap, hash, "asset_in and asset_out must differ")
	}
	if o.Kind.IsPartial() {
		// Partial orders must still declare a floor: MinFillAmount bounds the
		// smallest acceptable fill, never zero.
		if o.MinFillAmount.IsZero() {
			return newErr(ErrInvalidPartialOrder, hash, "partial order requires a non-zero floor")
		}
	}
	if o.MinQtyInT0 != nil && !o.MinQtyInT0.IsZero() {
		if o.MaxGasT0.Cmp(o.MinQtyInT0) >= 0 {
			return newErr(ErrMaxGasGreaterThanMinAmount, hash, "max gas must be strictly less than min quantity in token-0")
		}
	}
	if o.Kind.IsFlash() && o.FlashBlock == 0 {
		return newErr(ErrInvalidOrderAtBlock, hash, "flash order requires a non-zero flash block")
	}
	if !o.Kind.IsFlash() && o.Deadline == 0 {
		return newErr(ErrInvalidOrderAtBlock, hash, "standing order requires a non-zero deadline")
	}
	return nil
}
