// Package ray implements the 27-decimal fixed-point number type the
// matching engine uses for uniform clearing prices, avoiding float64 so
// that independent implementations of the solver stay bit-exact.
package ray

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// Decimals is the fixed-point scale: 10^27.
const Decimals = 27

var scale = func() *uint256.Int {
	s := uint256.NewInt(10)
	out := uint256.NewInt(1)
	for i := 0; i < Decimals; i++ {
		out = new(uint256.Int).Mul(out, s)
	}
	return out
}()

// RoundingMode controls how a division that doesn't divide evenly is
// resolved. Bids round down and asks round up so that
// neither side of the book is ever over-filled relative to its limit price.
type RoundingMode int

const (
	RoundDown RoundingMode = iota
	RoundUp
)

// Ray is a 27-decimal fixed-point unsigned value, i.e. the represented
// number is Int / 10^27.
type Ray struct {
	Int *uint256.Int
}

// Zero returns the Ray representing 0.
func Zero() Ray { return Ray{Int: uint256.NewInt(0)} }

// FromUint64 builds a Ray representing the integer value n (n * 10^27).
func FromUint64(n uint64) Ray {
	return Ray{Int: new(uint256.Int).Mul(uint256.NewInt(n), scale)}
}

// FromRaw wraps an already-scaled uint256 value (i.e. value already
// multiplied by 10^27) as a Ray.
func FromRaw(raw *uint256.Int) Ray {
	return Ray{Int: new(uint256.Int).Set(raw)}
}

// FromBigRat converts an exact rational num/den into a Ray using the given
// rounding mode. Used to materialize a binary-search trial price.
func FromBigRat(num, den *big.Int, mode RoundingMode) (Ray, error) {
	if den.Sign() == 0 {
		return Ray{}, fmt.Errorf("ray: division by zero")
	}
	scaled := new(big.Int).Mul(num, scale.ToBig())
	q, r := new(big.Int).QuoRem(scaled, den, new(big.Int))
	if mode == RoundUp && r.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	u, overflow := uint256.FromBig(q)
	if overflow {
		return Ray{}, fmt.Errorf("ray: value overflows 256 bits")
	}
	return Ray{Int: u}, nil
}

// Scale returns 10^27 as a uint256, the fixed-point denominator, for
// callers that need to rescale a raw integer into Ray space themselves.
func Scale() *uint256.Int { return new(uint256.Int).Set(scale) }

func (r Ray) IsZero() bool { return r.Int == nil || r.Int.IsZero() }

func (r Ray) Cmp(o Ray) int { return r.Int.Cmp(o.Int) }

func (r Ray) Add(o Ray) Ray { return Ray{Int: new(uint256.Int).Add(r.Int, o.Int)} }

func (r Ray) Sub(o Ray) (Ray, error) {
	if r.Int.Lt(o.Int) {
		return Ray{}, fmt.Errorf("ray: subtraction underflow")
	}
	return Ray{Int: new(uint256.Int).Sub(r.Int, o.Int)}, nil
}

// MulDiv computes r * o / 10^27, the product of two Ray values re-scaled to
// stay in 27-decimal space, rounding per mode.
func (r Ray) MulDiv(o Ray, mode RoundingMode) Ray {
	num := new(big.Int).Mul(r.Int.ToBig(), o.Int.ToBig())
	q, rem := new(big.Int).QuoRem(num, scale.ToBig(), new(big.Int))
	if mode == RoundUp && rem.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	u, _ := uint256.FromBig(q)
	return Ray{Int: u}
}

func (r Ray) String() string {
	if r.Int == nil {
		return "0"
	}
	s := r.Int.ToBig().String()
	for len(s) <= Decimals {
		s = "0" + s
	}
	whole, frac := s[:len(s)-Decimals], s[len(s)-Decimals:]
	return whole + "." + frac
}
