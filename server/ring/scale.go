// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package ring

import (
	"math/big"

	"decred.org/ringdex/dex/calc"
)

// ScaleOrder shrinks the order to what remains after its historical fills and
// cancellations, preserving its limit rate, and sets the tentative fill to the
// smaller of the remaining sell amount and the spendable balance.
//
// The primary side is the buy amount for buy-capped orders, and the sell
// amount otherwise. The other side and the fee are scaled by
// remaining/primary.
func ScaleOrder(s *OrderState, filled, cancelled *big.Int) error {
	o := s.Order
	primary := o.Primary()
	remaining := calc.SubFloor(calc.SubFloor(primary, filled), cancelled)

	if o.BuyNoMoreThanBuyAmount {
		o.SellAmount = calc.MulDiv(remaining, o.SellAmount, primary)
		o.BuyAmount = remaining
	} else {
		o.BuyAmount = calc.MulDiv(remaining, o.BuyAmount, primary)
		o.SellAmount = remaining
	}
	o.Fee = calc.MulDiv(remaining, o.Fee, primary)

	if calc.IsZero(o.SellAmount) || calc.IsZero(o.BuyAmount) {
		return newError(ErrOrderFullyConsumed, "order %s: filled %v, cancelled %v of %v",
			s.Hash, filled, cancelled, primary)
	}

	s.Fill = calc.Min(o.SellAmount, s.Available)
	return nil
}

// ScaleOrders applies ScaleOrder to every order in the ring. filled and
// cancelled are indexed like the ring's orders.
func ScaleOrders(r *Ring, filled, cancelled []*big.Int) error {
	for i, s := range r.Orders {
		if err := ScaleOrder(s, filled[i], cancelled[i]); err != nil {
			return err
		}
	}
	return nil
}
