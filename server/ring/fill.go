// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package ring

import (
	"math/big"

	"decred.org/ringdex/dex/calc"
)

// PropagateFills makes the fill amounts of consecutive orders consistent. Each
// order's fill bounds the fill of the order after it, since order i+1 sells
// what order i buys. The ring is traversed once in full, recording the last
// order that limited its neighbor as the bottleneck, and then again from the
// start up to the bottleneck so that orders preceding it see its final fill.
// The bottleneck index is stored in the Ring.
func PropagateFills(r *Ring) {
	n := len(r.Orders)
	bottleneck := 0
	for i := 0; i < n; i++ {
		if b, limited := r.propagate(i); limited {
			bottleneck = b
		}
	}
	for i := 0; i < bottleneck; i++ {
		r.propagate(i)
	}
	r.Bottleneck = bottleneck
	log.Debugf("Ring %s bottleneck at order %d (%s)", r.Hash, bottleneck, r.Orders[bottleneck].Hash)
}

// propagate settles the fill of order i against its own buy cap and caps the
// fill of order i+1 with what order i buys. If either constraint binds, the
// index of the constraining order is returned with limited set.
func (r *Ring) propagate(i int) (bottleneck int, limited bool) {
	n := len(r.Orders)
	s, j := r.Orders[i], (i+1)%n
	next := r.Orders[j]
	o := s.Order

	fillBuy := s.FillBuy()
	if o.BuyNoMoreThanBuyAmount && fillBuy.Cmp(o.BuyAmount) > 0 {
		fillBuy = calc.Copy(o.BuyAmount)
		s.Fill = calc.MulDiv(fillBuy, s.Rate.Sell, s.Rate.Buy)
		bottleneck, limited = i, true
	}
	s.FeeDue = feeDue(s, fillBuy)

	if fillBuy.Cmp(next.Fill) <= 0 {
		next.Fill = fillBuy
	} else {
		bottleneck, limited = j, true
	}
	return
}

// feeDue is the order's fee prorated by its fill on its primary side.
func feeDue(s *OrderState, fillBuy *big.Int) *big.Int {
	o := s.Order
	if o.BuyNoMoreThanBuyAmount {
		return calc.MulDiv(o.Fee, fillBuy, o.BuyAmount)
	}
	return calc.MulDiv(o.Fee, s.Fill, o.SellAmount)
}
