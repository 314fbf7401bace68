// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package ring

import (
	"math/big"

	"decred.org/ringdex/dex/calc"
)

// VerifyRates checks that every execution rate is at least as good for its
// order as the order's limit rate,
//
//	rate.Sell * buyAmount <= sellAmount * rate.Buy
//
// and that the miner discounted every order about equally. The discount ratio
// of each order is
//
//	r = Scale * rate.Sell * buyAmount / (sellAmount * rate.Buy)
//
// and the ring fails ErrRateDiscountUnfair if the squared coefficient of
// variation of the ratios exceeds threshold. VerifyRates must run before
// ScaleOrders.
func VerifyRates(r *Ring, threshold *big.Int) error {
	ratios := make([]*big.Int, 0, len(r.Orders))
	for i, s := range r.Orders {
		o := s.Order
		if !validAmount(s.Rate.Sell) || !validAmount(s.Rate.Buy) {
			return newError(ErrRateDiscountInvalid, "order %d has a zero or invalid execution rate", i)
		}
		lhs := calc.Mul(s.Rate.Sell, o.BuyAmount)
		rhs := calc.Mul(o.SellAmount, s.Rate.Buy)
		if lhs.Cmp(rhs) > 0 {
			return newError(ErrRateDiscountInvalid, "order %d execution rate %v:%v worse than limit %v:%v",
				i, s.Rate.Sell, s.Rate.Buy, o.SellAmount, o.BuyAmount)
		}
		ratios = append(ratios, calc.MulDiv(bigScale, lhs, rhs))
	}

	cvs := calc.CVSquare(ratios, bigScale)
	if cvs.Cmp(threshold) > 0 {
		return newError(ErrRateDiscountUnfair, "rate discount variation %v exceeds %v", cvs, threshold)
	}
	log.Tracef("Ring %s rate ratios %v, cvs = %v", r.Hash, ratios, cvs)
	return nil
}
