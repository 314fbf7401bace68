// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package ring

import (
	"math/big"

	"decred.org/ringdex/dex/calc"
	"decred.org/ringdex/dex/order"
)

var bigPercentBase = big.NewInt(order.MarginSplitPercentageBase)

// CalculateFees assigns each order's fee, rebate, and margin splits, in ring
// order. The fee recipient's fee asset balance, r.MinerPool, funds the rebates
// paid to margin-split orders. A fee-asset order whose owner cannot cover its
// fee under the waive policy has its fee reduced to the owner's balance, and
// the reduced fee is added to the pool, where it can fund the rebates of later
// orders.
//
// A margin-split order is only eligible for a split if the pool can cover its
// fee. Otherwise it keeps its fee, which it pays in the fee asset.
func CalculateFees(r *Ring) error {
	pool := calc.Copy(r.MinerPool)
	for i, s := range r.Orders {
		switch s.FeeSelection {
		case order.FeeAsset:
			if err := r.checkFeeBalance(i, pool); err != nil {
				return err
			}
		case order.MarginSplit:
			if pool.Cmp(s.FeeDue) < 0 {
				log.Debugf("Ring %s: fee pool %v cannot cover the %v fee of margin-split order %d",
					r.Hash, pool, s.FeeDue, i)
				continue
			}
			r.splitMargin(i)
			if s.SellSplit.Sign() > 0 || s.BuySplit.Sign() > 0 {
				pool.Sub(pool, s.FeeDue)
				s.FeeRebate = s.FeeDue
			}
			s.FeeDue = calc.Zero()
		default:
			return newError(ErrUnsupportedFeeSelection, "order %d fee selection %s", i, s.FeeSelection)
		}
	}
	r.MinerPool = pool
	return nil
}

// checkFeeBalance ensures the owner of order i can pay its fee. If not, the
// ring fails or, under the waive policy, the fee is reduced to the owner's
// balance and the reduced fee is added to the pool.
func (r *Ring) checkFeeBalance(i int, pool *big.Int) error {
	s := r.Orders[i]
	if s.FeeBalance.Cmp(s.FeeDue) >= 0 {
		return nil
	}
	if r.FeePolicy == AbortOnInsufficientFee {
		return newError(ErrInsufficientFeeBalance, "order %d owner %s has %v of the %v fee",
			i, s.Order.Owner.Hex(), s.FeeBalance, s.FeeDue)
	}
	log.Warnf("Ring %s: waiving %v of order %d's %v fee for insufficient balance",
		r.Hash, calc.Sub(s.FeeDue, s.FeeBalance), i, s.FeeDue)
	s.FeeDue = calc.Copy(s.FeeBalance)
	pool.Add(pool, s.FeeDue)
	return nil
}

// splitMargin computes the share of order i's execution surplus owed to the
// fee recipient. A buy-capped order's surplus is the sell asset it would have
// paid at its limit rate for what it receives, beyond its fill. Any other
// order's surplus is what it receives beyond its limit rate for its fill.
// Rounding can make the surplus negative, in which case it is zero.
func (r *Ring) splitMargin(i int) {
	s, next := r.Orders[i], r.next(i)
	o := s.Order
	pct := big.NewInt(int64(o.MarginSplitPercentage))
	if o.BuyNoMoreThanBuyAmount {
		margin := calc.SubFloor(calc.MulDiv(next.Fill, o.SellAmount, o.BuyAmount), s.Fill)
		s.SellSplit = calc.MulDiv(margin, pct, bigPercentBase)
	} else {
		margin := calc.SubFloor(next.Fill, calc.MulDiv(s.Fill, o.BuyAmount, o.SellAmount))
		s.BuySplit = calc.MulDiv(margin, pct, bigPercentBase)
	}
}
