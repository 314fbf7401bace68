// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package calc

import "math/big"

// CVSquare computes the squared coefficient of variation of the values,
// scaled by scale²:
//
//	avg = Σv / n
//	cvs = (Σ(v - avg)² * scale * scale / avg / avg) / n
//
// Every division truncates, in the order shown. A zero mean yields zero. Fewer
// than two values have no variation and also yield zero.
func CVSquare(vals []*big.Int, scale *big.Int) *big.Int {
	n := int64(len(vals))
	if n < 2 {
		return new(big.Int)
	}

	avg := new(big.Int)
	for _, v := range vals {
		avg.Add(avg, v)
	}
	avg.Quo(avg, big.NewInt(n))
	if avg.Sign() == 0 {
		return new(big.Int)
	}

	sumSq := new(big.Int)
	d := new(big.Int)
	for _, v := range vals {
		d.Sub(v, avg)
		sumSq.Add(sumSq, d.Mul(d, d))
	}

	cvs := sumSq.Mul(sumSq, scale)
	cvs.Mul(cvs, scale)
	cvs.Quo(cvs, avg)
	cvs.Quo(cvs, avg)
	return cvs.Quo(cvs, big.NewInt(n))
}
