// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package engine

import (
	"context"
	"fmt"
	"math/big"

	"decred.org/ringdex/dex"
	"decred.org/ringdex/server/db"
	"decred.org/ringdex/server/ring"
	"github.com/ethereum/go-ethereum/common"
)

type submissionKey struct{}

// submissionToken identifies one ring submission. It is attached to the
// context of every external call made while the ring is settled.
type submissionToken uint64

// SubmissionToken returns the token of the ring submission that ctx belongs
// to, if any.
func SubmissionToken(ctx context.Context) (uint64, bool) {
	tok, ok := ctx.Value(submissionKey{}).(submissionToken)
	return uint64(tok), ok
}

// acquire takes the submission guard, failing with ErrReentrancy if ctx
// already belongs to a submission or another submission is in flight. The
// returned release func must be called when the submission ends.
func (e *Engine) acquire(ctx context.Context) (context.Context, func(), error) {
	if tok, ok := SubmissionToken(ctx); ok {
		return nil, nil, newError(ring.ErrReentrancy, "called from within submission %d", tok)
	}
	if !e.submitMtx.TryLock() {
		return nil, nil, newError(ring.ErrReentrancy, "another submission is in progress")
	}
	tok := submissionToken(e.tokens.Add(1))
	return context.WithValue(ctx, submissionKey{}, tok), e.submitMtx.Unlock, nil
}

// SubmitRing validates and settles a ring. Either every transfer of the ring
// is executed and its fills are committed to the ledger, or the ring fails
// with no effect.
func (e *Engine) SubmitRing(ctx context.Context, sub *Submission) (*RingResult, error) {
	ctx, release, err := e.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	r, err := e.assemble(ctx, sub)
	if err != nil {
		return nil, err
	}

	if err = e.match(r); err != nil {
		return nil, err
	}

	ringIndex, err := e.ledger.RingCount()
	if err != nil {
		return nil, fmt.Errorf("error retrieving ring count: %w", err)
	}
	st, err := ring.PlanSettlement(r, e.feeAsset, ringIndex)
	if err != nil {
		return nil, err
	}

	if err = e.settle(ctx, ringIndex, st); err != nil {
		return nil, err
	}

	mined := &RingMined{
		RingIndex:     ringIndex,
		RingHash:      r.Hash,
		Miner:         r.Miner,
		FeeRecipient:  r.FeeRecipient,
		Preregistered: e.claims.WasPreregistered(r.Hash),
	}
	log.Infof("Mined ring %d (%s) of %d orders with %d transfers. Bottleneck at order %d.",
		ringIndex, r.Hash, r.Size(), len(st.Transfers), r.Bottleneck)
	for _, f := range st.Fills {
		log.Debugf("Order %s filled in ring %d: sold %v, bought %v, rebate %v, fee %v",
			f.Order, ringIndex, f.AmountSell, f.AmountBuy, f.FeeRebate, f.Fee)
	}

	return &RingResult{
		RingIndex:  ringIndex,
		RingHash:   r.Hash,
		Bottleneck: r.Bottleneck,
		Transfers:  st.Transfers,
		Fills:      st.Fills,
		Mined:      mined,
	}, nil
}

// assemble checks the submission and builds the Ring, verifying every
// signature and taking the balance snapshots.
func (e *Engine) assemble(ctx context.Context, sub *Submission) (*ring.Ring, error) {
	n := sub.Size()
	if err := ring.CheckSize(n, e.maxRingSize); err != nil {
		return nil, err
	}
	if err := ring.CheckShape(sub); err != nil {
		return nil, err
	}

	for i, addrs := range sub.Addresses {
		if asset := addrs[ring.AddrSellAsset]; !e.assets.IsRegistered(asset) {
			return nil, newError(ring.ErrTokenNotRegistered, "order %d sells %s", i, asset.Hex())
		}
	}

	feeRecipient := sub.FeeRecipient
	if feeRecipient == (common.Address{}) {
		feeRecipient = sub.Miner
	}

	ringHash := e.claims.RingHash(sub.V, sub.R, sub.S)
	if !e.claims.CanClaim(ringHash, feeRecipient) {
		return nil, newError(ring.ErrRingAlreadyClaimed, "ring %s", ringHash)
	}
	err := ring.VerifySignature(e.recoverSigner, ringHash, sub.MinerSignature(), sub.Miner, "ring")
	if err != nil {
		return nil, err
	}

	now := e.unixNow()
	orders := make([]*ring.OrderState, 0, n)
	for i := 0; i < n; i++ {
		ord, err := sub.Order(i)
		if err != nil {
			return nil, err
		}
		h := ord.Hash(e.addr)
		err = ring.VerifySignature(e.recoverSigner, h, sub.Signature(i), ord.Owner, fmt.Sprintf("order %d", i))
		if err != nil {
			return nil, err
		}
		cutoff, err := e.ledger.Cutoff(ord.Owner)
		if err != nil {
			return nil, fmt.Errorf("error retrieving cutoff for %s: %w", ord.Owner, err)
		}
		if err = ring.ValidateOrder(ord, cutoff, now); err != nil {
			return nil, fmt.Errorf("order %d: %w", i, err)
		}

		available, err := e.transfers.SpendableBalance(ctx, ord.SellAsset, ord.Owner)
		if err != nil {
			return nil, fmt.Errorf("error retrieving spendable balance of order %d: %w", i, err)
		}
		if available.Sign() <= 0 {
			return nil, newError(ring.ErrInvalidOrder, "order %d owner %s has no spendable %s",
				i, ord.Owner.Hex(), ord.SellAsset.Hex())
		}
		feeBalance, err := e.transfers.SpendableBalance(ctx, e.feeAsset, ord.Owner)
		if err != nil {
			return nil, fmt.Errorf("error retrieving fee balance of order %d: %w", i, err)
		}

		orders = append(orders, ring.NewOrderState(ord, h, sub.FeeSelection(i), sub.Rate(i), available, feeBalance))
	}

	minerPool, err := e.transfers.SpendableBalance(ctx, e.feeAsset, feeRecipient)
	if err != nil {
		return nil, fmt.Errorf("error retrieving fee recipient balance: %w", err)
	}

	return &ring.Ring{
		Hash:         ringHash,
		Orders:       orders,
		Miner:        sub.Miner,
		FeeRecipient: feeRecipient,
		FeePolicy:    sub.Policy(),
		MinerPool:    minerPool,
	}, nil
}

// match runs the pure stages of the pipeline on the assembled ring.
func (e *Engine) match(r *ring.Ring) error {
	if err := ring.CheckSubrings(r); err != nil {
		return err
	}
	if err := ring.VerifyRates(r, e.cvsThreshold); err != nil {
		return err
	}

	n := r.Size()
	filled := make([]*big.Int, n)
	cancelled := make([]*big.Int, n)
	for i, s := range r.Orders {
		var err error
		if filled[i], err = e.ledger.Filled(s.Hash); err != nil {
			return fmt.Errorf("error retrieving filled amount of order %d: %w", i, err)
		}
		if cancelled[i], err = e.ledger.Cancelled(s.Hash); err != nil {
			return fmt.Errorf("error retrieving cancelled amount of order %d: %w", i, err)
		}
	}
	if err := ring.ScaleOrders(r, filled, cancelled); err != nil {
		return err
	}

	ring.PropagateFills(r)
	return ring.CalculateFees(r)
}

// settle executes the transfers in order and commits the ledger updates.
// Every executed transfer is reversed if a later step fails.
func (e *Engine) settle(ctx context.Context, ringIndex uint64, st *ring.Settlement) error {
	undo := dex.NewErrorCloser()
	defer func() {
		if n := undo.Len(); n > 0 {
			log.Warnf("Reversing %d transfers of ring %d.", n, ringIndex)
		}
		if failed := undo.Done(log); failed > 0 {
			log.Criticalf("Failed to reverse %d transfers of ring %d. Balances are inconsistent!",
				failed, ringIndex)
		}
	}()

	for _, t := range st.Transfers {
		if err := e.transfers.Transfer(ctx, t.Asset, t.From, t.To, t.Amount); err != nil {
			return newError(ring.ErrTransferFailed, "%s: %v", t, err)
		}
		undo.Add(func() error { return e.revert(ctx, t) })
	}

	fills := make([]*db.Fill, 0, len(st.Increments))
	for _, inc := range st.Increments {
		fills = append(fills, &db.Fill{OrderHash: inc.OrderHash, Amount: inc.Amount})
	}
	if err := e.ledger.CommitRing(ringIndex, fills); err != nil {
		return fmt.Errorf("error committing ring %d: %w", ringIndex, err)
	}

	undo.Success()
	return nil
}

// revert undoes a completed transfer.
func (e *Engine) revert(ctx context.Context, t *ring.Transfer) error {
	if rev, ok := e.transfers.(TransferReverter); ok {
		return rev.RevertTransfer(ctx, t.Asset, t.From, t.To, t.Amount)
	}
	rt := t.Reverse()
	return e.transfers.Transfer(ctx, rt.Asset, rt.From, rt.To, rt.Amount)
}
