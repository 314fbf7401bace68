// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package ring

import (
	"math/big"

	"decred.org/ringdex/dex/order"
	"github.com/ethereum/go-ethereum/common"
)

// Indices into the per-order argument tuples of a Submission.
const (
	ArgSellAmount = iota
	ArgBuyAmount
	ArgCreatedAt
	ArgTimeToLive
	ArgSalt
	ArgFee
	ArgRateSell
	// ArgRateBuy is optional. The order's buy amount is used when absent.
	ArgRateBuy

	numUintArgs    = ArgRateBuy
	maxNumUintArgs = ArgRateBuy + 1
)

const (
	ArgMarginSplit = iota
	ArgFeeSelection

	numUint8Args
)

const (
	AddrOwner = iota
	AddrSellAsset
)

// Submission is a miner's ring as received from the calling surface: parallel
// per-order arrays plus one trailing signature for the miner. Order i's buy
// asset is order i+1's sell asset.
type Submission struct {
	// Addresses holds [owner, sellAsset] per order.
	Addresses [][2]common.Address `json:"addresses"`
	// UintArgs holds [sellAmount, buyAmount, createdAt, timeToLive, salt,
	// fee, rateSellAmount] and optionally rateBuyAmount per order.
	UintArgs [][]*big.Int `json:"uintArgs"`
	// Uint8Args holds [marginSplitPercentage, feeSelection] per order.
	Uint8Args [][]uint8 `json:"uint8Args"`
	BuyCapped []bool    `json:"buyNoMoreThanBuyAmount"`
	// V, R, and S hold one signature per order followed by the miner's
	// signature of the ring hash.
	V            []uint8        `json:"v"`
	R            []common.Hash  `json:"r"`
	S            []common.Hash  `json:"s"`
	Miner        common.Address `json:"miner"`
	FeeRecipient common.Address `json:"feeRecipient"`
	// AbortOnInsufficientFee fails the ring when a fee-asset order's owner
	// cannot cover its fee. Otherwise the fee is reduced.
	AbortOnInsufficientFee bool `json:"abortOnInsufficientFee"`
}

// Size is the declared ring size.
func (sub *Submission) Size() int {
	return len(sub.Addresses)
}

// Order builds the i'th order. The submission's shape must have been checked.
func (sub *Submission) Order(i int) (*order.Order, error) {
	n := sub.Size()
	args := sub.UintArgs[i]
	for j, arg := range args {
		if arg == nil || arg.Sign() < 0 || arg.BitLen() > 256 {
			return nil, newError(ErrInvalidOrder, "order %d argument %d is not a 256-bit unsigned integer", i, j)
		}
	}
	if !args[ArgCreatedAt].IsUint64() || !args[ArgTimeToLive].IsUint64() {
		return nil, newError(ErrInvalidOrder, "order %d timestamp out of range", i)
	}
	return &order.Order{
		Owner:                  sub.Addresses[i][AddrOwner],
		SellAsset:              sub.Addresses[i][AddrSellAsset],
		BuyAsset:               sub.Addresses[(i+1)%n][AddrSellAsset],
		SellAmount:             args[ArgSellAmount],
		BuyAmount:              args[ArgBuyAmount],
		CreatedAt:              args[ArgCreatedAt].Uint64(),
		TimeToLive:             args[ArgTimeToLive].Uint64(),
		Salt:                   args[ArgSalt],
		Fee:                    args[ArgFee],
		BuyNoMoreThanBuyAmount: sub.BuyCapped[i],
		MarginSplitPercentage:  sub.Uint8Args[i][ArgMarginSplit],
	}, nil
}

// Rate is the miner-supplied execution rate of the i'th order.
func (sub *Submission) Rate(i int) Rate {
	args := sub.UintArgs[i]
	rate := Rate{Sell: args[ArgRateSell], Buy: args[ArgBuyAmount]}
	if len(args) > ArgRateBuy {
		rate.Buy = args[ArgRateBuy]
	}
	return rate
}

// FeeSelection is the i'th order's fee selection.
func (sub *Submission) FeeSelection(i int) order.FeeSelection {
	return order.FeeSelection(sub.Uint8Args[i][ArgFeeSelection])
}

// Signature is the i'th signature. Index Size() is the miner's.
func (sub *Submission) Signature(i int) order.Signature {
	return order.Signature{V: sub.V[i], R: sub.R[i], S: sub.S[i]}
}

// MinerSignature is the miner's signature of the ring hash.
func (sub *Submission) MinerSignature() order.Signature {
	return sub.Signature(sub.Size())
}

// Policy is the submission's insufficient fee policy.
func (sub *Submission) Policy() InsufficientFeePolicy {
	if sub.AbortOnInsufficientFee {
		return AbortOnInsufficientFee
	}
	return WaiveInsufficientFee
}
