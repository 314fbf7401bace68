// Copyright (c) 2019, The Decred developers
// See LICENSE for details.

// Package order defines the Order type submitted to the ring engine, its
// deterministic identity, and its signatures.
package order

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	// MarginSplitPercentageBase is 100%.
	MarginSplitPercentageBase = 100

	wordSize = 32

	// SerializeSize is the length of the packed order serialization: four
	// addresses (engine, owner, sell asset, buy asset), seven 32-byte words
	// and two single-byte fields.
	SerializeSize = 4*common.AddressLength + 7*wordSize + 2
)

// Hash is the order identifier.
type Hash = common.Hash

// FeeSelection is the fee policy an order opts into for a ring.
type FeeSelection uint8

const (
	// FeeAsset orders pay their fee in the engine's fee asset.
	FeeAsset FeeSelection = iota
	// MarginSplit orders share their execution surplus with the fee
	// recipient and may earn a fee-asset rebate.
	MarginSplit
)

// String returns a string representation of the FeeSelection.
func (fs FeeSelection) String() string {
	switch fs {
	case FeeAsset:
		return "fee-asset"
	case MarginSplit:
		return "margin-split"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(fs))
	}
}

// Order is an owner-signed offer to sell SellAmount of SellAsset for at least
// BuyAmount of BuyAsset. Orders are never modified by the engine. Amounts are
// unsigned 256-bit integers.
type Order struct {
	Owner      common.Address
	SellAsset  common.Address
	BuyAsset   common.Address
	SellAmount *big.Int
	BuyAmount  *big.Int
	// CreatedAt is a UNIX timestamp in seconds.
	CreatedAt uint64
	// TimeToLive is the validity window in seconds, starting at CreatedAt.
	TimeToLive uint64
	Salt       *big.Int
	// Fee is denominated in the engine's fee asset.
	Fee *big.Int
	// BuyNoMoreThanBuyAmount makes BuyAmount, rather than SellAmount, the
	// order's primary amount.
	BuyNoMoreThanBuyAmount bool
	MarginSplitPercentage  uint8
}

// Copy creates a deep copy of the Order.
func (o *Order) Copy() *Order {
	c := *o
	c.SellAmount = copyBig(o.SellAmount)
	c.BuyAmount = copyBig(o.BuyAmount)
	c.Salt = copyBig(o.Salt)
	c.Fee = copyBig(o.Fee)
	return &c
}

// Primary is the amount that historical fills and cancellations are measured
// against: BuyAmount for orders that buy no more than BuyAmount, otherwise
// SellAmount.
func (o *Order) Primary() *big.Int {
	if o.BuyNoMoreThanBuyAmount {
		return o.BuyAmount
	}
	return o.SellAmount
}

// Serialize tightly packs the order for hashing, beginning with the address of
// the engine so that an order signed for one engine cannot be replayed on
// another.
func (o *Order) Serialize(engine common.Address) []byte {
	b := make([]byte, 0, SerializeSize)
	b = append(b, engine[:]...)
	b = append(b, o.Owner[:]...)
	b = append(b, o.SellAsset[:]...)
	b = append(b, o.BuyAsset[:]...)
	b = append(b, word(o.SellAmount)...)
	b = append(b, word(o.BuyAmount)...)
	b = append(b, word(new(big.Int).SetUint64(o.CreatedAt))...)
	b = append(b, word(new(big.Int).SetUint64(o.TimeToLive))...)
	b = append(b, word(o.Salt)...)
	b = append(b, word(o.Fee)...)
	if o.BuyNoMoreThanBuyAmount {
		b = append(b, 1)
	} else {
		b = append(b, 0)
	}
	return append(b, o.MarginSplitPercentage)
}

// Hash computes the order's Keccak-256 identity for the given engine.
func (o *Order) Hash(engine common.Address) Hash {
	return crypto.Keccak256Hash(o.Serialize(engine))
}

// String gives a short human-readable description of the order.
func (o *Order) String() string {
	return fmt.Sprintf("%s sells %s %s for %s %s (fee %s, buy-capped %v)",
		o.Owner.Hex(), o.SellAmount, o.SellAsset.Hex(), o.BuyAmount, o.BuyAsset.Hex(),
		o.Fee, o.BuyNoMoreThanBuyAmount)
}

// word encodes a 256-bit EVM word. A nil value encodes as zero.
func word(x *big.Int) []byte {
	if x == nil {
		return make([]byte, wordSize)
	}
	// U256Bytes is destructive.
	return math.U256Bytes(new(big.Int).Set(x))
}

func copyBig(x *big.Int) *big.Int {
	if x == nil {
		return nil
	}
	return new(big.Int).Set(x)
}
