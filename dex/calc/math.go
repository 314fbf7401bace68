// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

// Package calc provides the unsigned 256-bit integer arithmetic used by the
// ring pipeline. All functions return new values and never modify their
// arguments.
package calc

import (
	"math/big"
)

// MaxUint256 is the largest value an amount may take.
var MaxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

var bigZero = new(big.Int)

// Zero returns a new zero-valued *big.Int.
func Zero() *big.Int {
	return new(big.Int)
}

// Copy returns a copy of x. A nil x is treated as zero.
func Copy(x *big.Int) *big.Int {
	if x == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(x)
}

// IsUint256 checks that x is non-nil, non-negative, and fits in 256 bits.
func IsUint256(x *big.Int) bool {
	return x != nil && x.Sign() >= 0 && x.BitLen() <= 256
}

// IsPositive checks that x is non-nil and strictly greater than zero.
func IsPositive(x *big.Int) bool {
	return x != nil && x.Sign() > 0
}

// MulDiv computes a * b / c with truncating division. That is,
//
//	result = floor(a * b / c)
//
// Division by zero yields zero rather than a panic; callers validate
// denominators before reaching here.
func MulDiv(a, b, c *big.Int) *big.Int {
	if c.Sign() == 0 {
		return new(big.Int)
	}
	r := new(big.Int).Mul(a, b)
	return r.Quo(r, c)
}

// Mul returns a * b.
func Mul(a, b *big.Int) *big.Int {
	return new(big.Int).Mul(a, b)
}

// Add returns a + b.
func Add(a, b *big.Int) *big.Int {
	return new(big.Int).Add(a, b)
}

// Sub returns a - b, which may be negative.
func Sub(a, b *big.Int) *big.Int {
	return new(big.Int).Sub(a, b)
}

// SubFloor returns a - b, floored at zero.
func SubFloor(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return new(big.Int)
	}
	return new(big.Int).Sub(a, b)
}

// Min returns a copy of the smaller of a and b.
func Min(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return new(big.Int).Set(a)
	}
	return new(big.Int).Set(b)
}

// IsZero checks if x is nil or zero.
func IsZero(x *big.Int) bool {
	return x == nil || x.Cmp(bigZero) == 0
}
