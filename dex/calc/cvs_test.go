// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package calc

import (
	"math/big"
	"testing"
)

func bigs(vs ...int64) []*big.Int {
	out := make([]*big.Int, len(vs))
	for i, v := range vs {
		out[i] = big.NewInt(v)
	}
	return out
}

func TestCVSquare(t *testing.T) {
	scale := big.NewInt(10000)
	tests := []struct {
		name string
		vals []*big.Int
		want int64
	}{
		{"uniform", bigs(10000, 10000), 0},
		{"uniform3", bigs(9500, 9500, 9500), 0},
		{"wide", bigs(9000, 10000), 277008},
		{"narrow", bigs(9900, 10000), 2525},
		{"zero mean", bigs(0, 0), 0},
		{"single", bigs(5000), 0},
		{"three", bigs(9000, 9500, 10000), 184672},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CVSquare(tt.vals, scale)
			if got.Cmp(big.NewInt(tt.want)) != 0 {
				t.Fatalf("wanted cvs %d, got %s", tt.want, got)
			}
		})
	}
}

func TestCVSquareThreshold(t *testing.T) {
	scale := big.NewInt(10000)
	threshold := big.NewInt(62500)
	if CVSquare(bigs(9000, 10000), scale).Cmp(threshold) <= 0 {
		t.Fatalf("expected {9000, 10000} to exceed the threshold")
	}
	if CVSquare(bigs(9900, 10000), scale).Cmp(threshold) > 0 {
		t.Fatalf("expected {9900, 10000} to be within the threshold")
	}
}
