// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package ring

import (
	"encoding/hex"
	"fmt"
	"math/big"

	"decred.org/ringdex/dex/calc"
	"decred.org/ringdex/dex/order"
	"github.com/decred/dcrd/crypto/blake256"
	"github.com/ethereum/go-ethereum/common"
)

// FillIDSize is the length of a FillID.
const FillIDSize = blake256.Size

// FillID is the unique identifier of one order's fill in one ring.
type FillID [FillIDSize]byte

// String returns a hexadecimal representation of the FillID.
func (id FillID) String() string {
	return hex.EncodeToString(id[:])
}

// MarshalText encodes the FillID as hexadecimal text.
func (id FillID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// NewFillID computes the FillID of the order's fill in the ring.
func NewFillID(ringHash common.Hash, orderHash order.Hash) FillID {
	b := make([]byte, 0, 2*common.HashLength)
	b = append(b, ringHash[:]...)
	b = append(b, orderHash[:]...)
	return blake256.Sum256(b)
}

// Transfer moves Amount of Asset from one owner to another.
type Transfer struct {
	Asset  common.Address `json:"asset"`
	From   common.Address `json:"from"`
	To     common.Address `json:"to"`
	Amount *big.Int       `json:"amount"`
}

// String returns a human-readable description of the transfer.
func (t *Transfer) String() string {
	return fmt.Sprintf("%v of %s from %s to %s", t.Amount, t.Asset.Hex(), t.From.Hex(), t.To.Hex())
}

// Reverse is the transfer that undoes t.
func (t *Transfer) Reverse() *Transfer {
	return &Transfer{Asset: t.Asset, From: t.To, To: t.From, Amount: t.Amount}
}

// FillIncrement is an addition to an order's cumulative filled amount.
type FillIncrement struct {
	OrderHash order.Hash
	Amount    *big.Int
}

// OrderFilled records the settlement of one order in a ring.
type OrderFilled struct {
	ID         FillID      `json:"id"`
	RingIndex  uint64      `json:"ringIndex"`
	RingHash   common.Hash `json:"ringHash"`
	PrevOrder  order.Hash  `json:"prevOrder"`
	Order      order.Hash  `json:"order"`
	NextOrder  order.Hash  `json:"nextOrder"`
	AmountSell *big.Int    `json:"amountSell"`
	AmountBuy  *big.Int    `json:"amountBuy"`
	FeeRebate  *big.Int    `json:"feeRebate"`
	Fee        *big.Int    `json:"fee"`
}

// Settlement is the complete effect of a ring: the transfers to execute, in
// order, the ledger updates to commit once they have all succeeded, and the
// fill records to emit.
type Settlement struct {
	Transfers  []*Transfer
	Increments []*FillIncrement
	Fills      []*OrderFilled
}

// PlanSettlement converts the final order states into a Settlement. For each
// order i, with neighbors prev and next, the order:
//
//  1. pays its fill, less the margin split owed by prev, to prev's owner
//  2. pays prev's buy-side split and its own sell-side split to the fee
//     recipient
//  3. receives its rebate from the fee recipient in the fee asset
//  4. pays its fee to the fee recipient in the fee asset
//
// Zero-amount transfers are omitted. A negative amount means the earlier
// stages are broken and fails with ErrInvariantViolation.
func PlanSettlement(r *Ring, feeAsset common.Address, ringIndex uint64) (*Settlement, error) {
	n := len(r.Orders)
	st := &Settlement{
		Transfers:  make([]*Transfer, 0, 4*n),
		Increments: make([]*FillIncrement, 0, n),
		Fills:      make([]*OrderFilled, 0, n),
	}
	add := func(asset, from, to common.Address, amt *big.Int) error {
		switch amt.Sign() {
		case -1:
			return newError(ErrInvariantViolation, "negative transfer of %v %s from %s to %s",
				amt, asset.Hex(), from.Hex(), to.Hex())
		case 0:
			return nil
		}
		st.Transfers = append(st.Transfers, &Transfer{Asset: asset, From: from, To: to, Amount: amt})
		return nil
	}

	for i, s := range r.Orders {
		prev, next := r.prev(i), r.next(i)
		o := s.Order
		owner := o.Owner

		if err := add(o.SellAsset, owner, prev.Order.Owner, calc.Sub(s.Fill, prev.BuySplit)); err != nil {
			return nil, err
		}
		if err := add(o.SellAsset, owner, r.FeeRecipient, calc.Add(prev.BuySplit, s.SellSplit)); err != nil {
			return nil, err
		}
		if err := add(feeAsset, r.FeeRecipient, owner, s.FeeRebate); err != nil {
			return nil, err
		}
		if err := add(feeAsset, owner, r.FeeRecipient, s.FeeDue); err != nil {
			return nil, err
		}

		inc := s.Fill
		if o.BuyNoMoreThanBuyAmount {
			inc = next.Fill
		}
		st.Increments = append(st.Increments, &FillIncrement{OrderHash: s.Hash, Amount: calc.Copy(inc)})

		amtBuy := calc.Sub(next.Fill, s.BuySplit)
		if amtBuy.Sign() < 0 {
			return nil, newError(ErrInvariantViolation, "order %d buy split %v exceeds received %v",
				i, s.BuySplit, next.Fill)
		}
		st.Fills = append(st.Fills, &OrderFilled{
			ID:         NewFillID(r.Hash, s.Hash),
			RingIndex:  ringIndex,
			RingHash:   r.Hash,
			PrevOrder:  prev.Hash,
			Order:      s.Hash,
			NextOrder:  next.Hash,
			AmountSell: calc.Add(s.Fill, s.SellSplit),
			AmountBuy:  amtBuy,
			FeeRebate:  calc.Copy(s.FeeRebate),
			Fee:        calc.Copy(s.FeeDue),
		})
	}
	return st, nil
}
