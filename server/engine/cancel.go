// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package engine

import (
	"context"
	"fmt"
	"math/big"

	"decred.org/ringdex/dex/calc"
	"decred.org/ringdex/dex/order"
	"decred.org/ringdex/server/db"
	"decred.org/ringdex/server/ring"
	"github.com/ethereum/go-ethereum/common"
)

// CancelOrder cancels amt of the order's primary amount. The sender must be
// the order's owner and sig the owner's signature of the order.
func (e *Engine) CancelOrder(_ context.Context, sender common.Address, ord *order.Order, amt *big.Int, sig order.Signature) (*OrderCancelled, error) {
	if !calc.IsPositive(amt) || !calc.IsUint256(amt) {
		return nil, newError(ring.ErrInvalidOrder, "invalid cancel amount %v", amt)
	}
	if sender != ord.Owner {
		return nil, newError(ring.ErrInvalidOrder, "%s cannot cancel an order owned by %s",
			sender.Hex(), ord.Owner.Hex())
	}
	h := ord.Hash(e.addr)
	if err := ring.VerifySignature(e.recoverSigner, h, sig, ord.Owner, "order"); err != nil {
		return nil, err
	}

	total, err := e.ledger.AddCancelled(h, amt)
	if err != nil {
		if db.IsErrOverflow(err) {
			return nil, newError(ring.ErrInvalidOrder, "cancelled amount of %s overflows", h)
		}
		return nil, fmt.Errorf("error cancelling order %s: %w", h, err)
	}

	log.Infof("Cancelled %v of order %s. %v cancelled in total.", amt, h, total)
	return &OrderCancelled{
		OrderHash: h,
		Owner:     ord.Owner,
		Amount:    new(big.Int).Set(amt),
		Cancelled: total,
	}, nil
}

// SetCutoff invalidates every order of the sender created at or before cutoff.
// A zero cutoff means now. The cutoff must be greater than the current one.
func (e *Engine) SetCutoff(_ context.Context, sender common.Address, cutoff uint64) (*CutoffChanged, error) {
	if cutoff == 0 {
		cutoff = e.unixNow()
	}
	if err := e.ledger.SetCutoff(sender, cutoff); err != nil {
		if db.IsErrNonIncreasingCutoff(err) {
			return nil, newError(ring.ErrNonIncreasingCutoff, "%v", err)
		}
		return nil, fmt.Errorf("error setting cutoff of %s: %w", sender.Hex(), err)
	}

	log.Infof("Cutoff of %s set to %d.", sender.Hex(), cutoff)
	return &CutoffChanged{Owner: sender, Cutoff: cutoff}, nil
}
