package matching

import (
	"context"
	"fmt"
	"math/big"

	"github.com/angstrom-protocol/angstrom/pkg/ray"
	"github.com/angstrom-protocol/angstrom/pkg/types"
	"github.com/holiman/uint256"
)

// maxBisections bounds the binary search over the uniform clearing price;
// the book's price domain is Ray-scaled (27 decimals), so this many halvings
// comfortably exceeds any reachable precision.
const maxBisections = 160

// Solution is one pool's matching output: the wire-level PoolSolution plus
// the per-tick donation breakdown, which is a local accounting artifact and
// not part of what gets signed.
type Solution struct {
	types.PoolSolution
	Donations []Donation
}

type side struct {
	orders []*types.OrderWithStorageData[types.AllOrders]
	prices []ray.Ray // same length/order as orders, pre-converted from sqrt-price-X96
}

// Solve runs the binary-search uniform-clearing-price algorithm for
// one pool. bids and asks must already be sorted best-first in
// partials-before-exacts order (a PricePartialVolume-ordered
// orderpool.PendingPool returns exactly this); searcher, if non-nil, is the
// pool's resting top-of-block order: it takes no part in the clearing-price
// search and is appended to the filled set in full (its MinFillAmount)
// after the book is solved.
func Solve(ctx context.Context, poolId types.Hash, snap PoolSnapshot, bids, asks []*types.OrderWithStorageData[types.AllOrders], searcher *types.OrderWithStorageData[types.TopOfBlockOrder]) (*Solution, error) {
	bidSide := newSide(bids)
	askSide := newSide(asks)

	lo, hi, err := priceBounds(snap, bidSide, askSide)
	if err != nil {
		return nil, err
	}

	ucp, err := bisect(ctx, snap, bidSide, askSide, lo, hi)
	if err != nil {
		return nil, err
	}

	filled, supplied, demanded := settleAt(bidSide, askSide, ucp)
	if len(filled) == 0 && searcher == nil {
		return nil, ErrUncrossable
	}

	ammDelta, err := snap.DeltaT0ForPrice(ctx, ucp)
	if err != nil {
		return nil, fmt.Errorf("matching: amm delta at ucp: %w", err)
	}
	ammIsBid := ammDelta.Sign() < 0 // AMM pays out T0: it is acting as the book's counter-bid
	ammQuantityIn := new(big.Int).Abs(ammDelta)

	if searcher != nil {
		filled = append(filled, types.FilledOrder{
			OrderHash: searcher.OrderId,
			FilledQty: ray.FromRaw(searcher.Order.MinFillAmount),
			IsPartial: false,
		})
	}

	ticks, err := snap.TicksCrossed(ctx, ucp)
	if err != nil {
		return nil, fmt.Errorf("matching: ticks crossed: %w", err)
	}
	surplus := new(big.Int).Sub(supplied, demanded)
	surplus.Add(surplus, ammDelta)
	surplus.Abs(surplus)
	donations := distributeDonation(ticks, surplus)

	ammQtyRaw, overflow := uint256.FromBig(ammQuantityIn)
	if overflow {
		return nil, fmt.Errorf("matching: amm quantity overflows 256 bits")
	}

	return &Solution{
		PoolSolution: types.PoolSolution{
			PoolId:        poolId,
			Ucp:           ucp,
			AmmIsBid:      ammIsBid,
			HasAmmLeg:     ammQuantityIn.Sign() != 0,
			AmmQuantityIn: ray.FromRaw(ammQtyRaw),
			FilledOrders:  filled,
		},
		Donations: donations,
	}, nil
}

func newSide(orders []*types.OrderWithStorageData[types.AllOrders]) side {
	s := side{orders: orders, prices: make([]ray.Ray, len(orders))}
	for i, o := range orders {
		s.prices[i] = ray.PriceFromSqrtPriceX96(o.Order.Price, ray.RoundDown)
	}
	return s
}

// priceBounds computes price_lo (lowest ask) and price_hi (highest bid),
// falling back to the AMM's current price on whichever side is empty.
func priceBounds(snap PoolSnapshot, bids, asks side) (ray.Ray, ray.Ray, error) {
	ammPrice := snap.CurrentPrice()

	lo := ammPrice
	if len(asks.prices) > 0 {
		lo = asks.prices[0] // asks are ascending: best (lowest) ask first
	}
	hi := ammPrice
	if len(bids.prices) > 0 {
		hi = bids.prices[0] // bids are descending: best (highest) bid first
	}
	if lo.Cmp(hi) > 0 {
		return ray.Ray{}, ray.Ray{}, ErrUncrossable
	}
	return lo, hi, nil
}

// imbalanceAt returns I(P) + A(P): positive means an excess of supply at P
// (price should fall), negative an excess of demand (price should rise).
func imbalanceAt(ctx context.Context, snap PoolSnapshot, bids, asks side, p ray.Ray) (*big.Int, error) {
	supplied, demanded := sumSides(bids, asks, p)
	ammDelta, err := snap.DeltaT0ForPrice(ctx, p)
	if err != nil {
		return nil, err
	}
	total := new(big.Int).Sub(supplied, demanded)
	total.Add(total, ammDelta)
	return total, nil
}

func sumSides(bids, asks side, p ray.Ray) (supplied, demanded *big.Int) {
	supplied = new(big.Int)
	for _, o := range asks.orders {
		ap := ray.PriceFromSqrtPriceX96(o.Order.Price, ray.RoundDown)
		if ap.Cmp(p) <= 0 {
			supplied.Add(supplied, o.Order.MinFillAmount.ToBig())
		}
	}
	demanded = new(big.Int)
	for _, o := range bids.orders {
		bp := ray.PriceFromSqrtPriceX96(o.Order.Price, ray.RoundDown)
		if bp.Cmp(p) >= 0 {
			demanded.Add(demanded, o.Order.MinFillAmount.ToBig())
		}
	}
	return supplied, demanded
}

// bisect narrows [lo, hi] toward the price where imbalanceAt crosses zero.
// On tie (multiple prices solve within bisection precision), the loop
// converges on lo, satisfying the ask-friendly "prefer the lower price"
// tie-break.
func bisect(ctx context.Context, snap PoolSnapshot, bids, asks side, lo, hi ray.Ray) (ray.Ray, error) {
	for i := 0; i < maxBisections; i++ {
		if lo.Cmp(hi) >= 0 {
			break
		}
		sum := new(uint256.Int).Add(lo.Int, hi.Int)
		mid := ray.FromRaw(new(uint256.Int).Rsh(sum, 1))
		if mid.Cmp(lo) == 0 || mid.Cmp(hi) == 0 {
			break // no representable midpoint remains between lo and hi
		}
		imbalance, err := imbalanceAt(ctx, snap, bids, asks, mid)
		if err != nil {
			return ray.Ray{}, err
		}
		switch imbalance.Sign() {
		case 0:
			return mid, nil
		case 1: // too much supply: lower the price
			hi = mid
		default: // too much demand: raise the price
			lo = mid
		}
	}
	return lo, nil
}

// settleAt computes the filled-order set and the raw supplied/demanded
// totals at the converged ucp.
func settleAt(bids, asks side, ucp ray.Ray) (filled []types.FilledOrder, supplied, demanded *big.Int) {
	supplied, demanded = sumSides(bids, asks, ucp)
	for _, o := range asks.orders {
		ap := ray.PriceFromSqrtPriceX96(o.Order.Price, ray.RoundDown)
		if ap.Cmp(ucp) <= 0 {
			filled = append(filled, types.FilledOrder{
				OrderHash: o.OrderId,
				FilledQty: ray.FromRaw(o.Order.MinFillAmount),
				IsPartial: o.Order.Kind.IsPartial(),
			})
		}
	}
	for _, o := range bids.orders {
		bp := ray.PriceFromSqrtPriceX96(o.Order.Price, ray.RoundDown)
		if bp.Cmp(ucp) >= 0 {
			filled = append(filled, types.FilledOrder{
				OrderHash: o.OrderId,
				FilledQty: ray.FromRaw(o.Order.MinFillAmount),
				IsPartial: o.Order.Kind.IsPartial(),
			})
		}
	}
	return filled, supplied, demanded
}
