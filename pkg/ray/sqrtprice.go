package ray

import (
	"math/big"

	"github.com/holiman/uint256"
)

// q96 is 2^96, the fixed-point base Uniswap-style AMMs use for
// sqrt-price-X96: sqrt(price) * 2^96.
var q96 = new(big.Int).Lsh(big.NewInt(1), 96)

// MinSqrtPriceX96 and MaxSqrtPriceX96 bound the tick range a PoolSnapshot
// can represent; an order whose price falls outside them is rejected by
// static validation.
var (
	MinSqrtPriceX96 = uint256.MustFromDecimal("4295128739")
	MaxSqrtPriceX96 = uint256.MustFromDecimal("1461446703485210103287273052203988822378723970342")
)

// PriceFromSqrtPriceX96 converts a sqrt-price-X96 value into a Ray price
// (token1 per token0), computing (sqrtPriceX96^2 * 10^27) / 2^192 with the
// requested rounding.
func PriceFromSqrtPriceX96(sqrtPriceX96 *uint256.Int, mode RoundingMode) Ray {
	sp := sqrtPriceX96.ToBig()
	num := new(big.Int).Mul(sp, sp)
	den := new(big.Int).Mul(q96, q96)
	out, err := FromBigRat(num, den, mode)
	if err != nil {
		return Zero()
	}
	return out
}

// WithinSqrtPriceBounds reports whether sqrtPriceX96 lies within the
// representable tick range.
func WithinSqrtPriceBounds(sqrtPriceX96 *uint256.Int) bool {
	return sqrtPriceX96.Cmp(MinSqrtPriceX96) >= 0 && sqrtPriceX96.Cmp(MaxSqrtPriceX96) <= 0
}
