package matching

import (
	"math/big"

	"github.com/holiman/uint256"
)

// Donation is one tick's share of the surplus the AMM leg generated beyond
// what the price move itself required.
type Donation struct {
	Tick       Tick
	QuantityT0 *uint256.Int
}

// distributeDonation splits surplus (token-0, always >= 0) across ticks in
// sweep order, weighted by each tick's gross liquidity — ticks with deeper
// liquidity absorbed more of the AMM's price move and so are owed a
// proportionally larger share.
func distributeDonation(ticks []Tick, surplus *big.Int) []Donation {
	if len(ticks) == 0 || surplus.Sign() <= 0 {
		return nil
	}
	totalLiquidity := new(big.Int)
	for _, t := range ticks {
		totalLiquidity.Add(totalLiquidity, t.LiquidityGross.ToBig())
	}
	if totalLiquidity.Sign() == 0 {
		return nil
	}

	out := make([]Donation, 0, len(ticks))
	remaining := new(big.Int).Set(surplus)
	for i, t := range ticks {
		var share *big.Int
		if i == len(ticks)-1 {
			share = new(big.Int).Set(remaining) // last tick absorbs rounding remainder
		} else {
			share = new(big.Int).Mul(surplus, t.LiquidityGross.ToBig())
			share.Quo(share, totalLiquidity)
			remaining.Sub(remaining, share)
		}
		q, overflow := uint256.FromBig(share)
		if overflow {
			q = uint256.NewInt(0)
		}
		out = append(out, Donation{Tick: t, QuantityT0: q})
	}
	return out
}
