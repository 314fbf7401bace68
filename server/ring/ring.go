// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

// Package ring implements the stages of the ring settlement pipeline: order
// validation, ring integrity checks, execution rate verification, historical
// scaling, fill amount propagation, fee calculation, and settlement planning.
// The stages operate on a Ring assembled by the caller and perform no I/O.
package ring

import (
	"fmt"
	"math/big"

	"decred.org/ringdex/dex/calc"
	"decred.org/ringdex/dex/order"
	"github.com/ethereum/go-ethereum/common"
)

// Scale is the fixed-point base of the rate fairness check.
const Scale = 10000

var bigScale = big.NewInt(Scale)

// DefaultCVSThreshold is the largest permitted squared coefficient of
// variation, in Scale² units, of the execution rate discounts in a ring.
const DefaultCVSThreshold = 62500

// InsufficientFeePolicy determines what happens when the owner of a fee-asset
// order cannot cover its fee.
type InsufficientFeePolicy uint8

const (
	// AbortOnInsufficientFee fails the ring.
	AbortOnInsufficientFee InsufficientFeePolicy = iota
	// WaiveInsufficientFee reduces the fee to the owner's spendable balance.
	WaiveInsufficientFee
)

// String returns a string representation of the InsufficientFeePolicy.
func (p InsufficientFeePolicy) String() string {
	switch p {
	case AbortOnInsufficientFee:
		return "abort"
	case WaiveInsufficientFee:
		return "waive"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(p))
	}
}

// Rate is a miner-supplied execution rate. The order sells Sell units of its
// sell asset for every Buy units of its buy asset.
type Rate struct {
	Sell *big.Int
	Buy  *big.Int
}

// OrderState is an order's working state for the duration of one ring
// settlement. Order is a copy of the signed order that the scaling stage
// shrinks in place.
type OrderState struct {
	Order        *order.Order
	Hash         order.Hash
	FeeSelection order.FeeSelection
	Rate         Rate
	// Available is the spendable sell asset balance snapshot.
	Available *big.Int
	// FeeBalance is the spendable fee asset balance snapshot.
	FeeBalance *big.Int

	Fill      *big.Int
	FeeRebate *big.Int
	FeeDue    *big.Int
	SellSplit *big.Int
	BuySplit  *big.Int
}

// NewOrderState creates an OrderState with zeroed settlement fields. The
// order is copied.
func NewOrderState(ord *order.Order, hash order.Hash, feeSel order.FeeSelection, rate Rate, available, feeBalance *big.Int) *OrderState {
	return &OrderState{
		Order:        ord.Copy(),
		Hash:         hash,
		FeeSelection: feeSel,
		Rate:         Rate{Sell: calc.Copy(rate.Sell), Buy: calc.Copy(rate.Buy)},
		Available:    calc.Copy(available),
		FeeBalance:   calc.Copy(feeBalance),
		Fill:         calc.Zero(),
		FeeRebate:    calc.Zero(),
		FeeDue:       calc.Zero(),
		SellSplit:    calc.Zero(),
		BuySplit:     calc.Zero(),
	}
}

// FillBuy is the buy asset amount the order receives for its current fill at
// its execution rate.
func (s *OrderState) FillBuy() *big.Int {
	return calc.MulDiv(s.Fill, s.Rate.Buy, s.Rate.Sell)
}

// Ring is an assembled, cyclic sequence of orders. Order i buys the asset that
// order i+1 sells.
type Ring struct {
	Hash         common.Hash
	Orders       []*OrderState
	Miner        common.Address
	FeeRecipient common.Address
	FeePolicy    InsufficientFeePolicy
	// MinerPool is the fee recipient's spendable fee asset balance snapshot.
	// The fee stage consumes and replenishes it.
	MinerPool *big.Int
	// Bottleneck is the index of the order limiting the ring's volume, set by
	// PropagateFills.
	Bottleneck int
}

// Size is the number of orders in the ring.
func (r *Ring) Size() int {
	return len(r.Orders)
}

func (r *Ring) prev(i int) *OrderState {
	n := len(r.Orders)
	return r.Orders[(i+n-1)%n]
}

func (r *Ring) next(i int) *OrderState {
	return r.Orders[(i+1)%len(r.Orders)]
}
