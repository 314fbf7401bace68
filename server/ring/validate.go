// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package ring

import (
	"math/big"

	"decred.org/ringdex/dex/calc"
	"decred.org/ringdex/dex/order"
	"github.com/ethereum/go-ethereum/common"
)

// RecoverFunc recovers the address that signed a hash.
type RecoverFunc func(hash common.Hash, sig order.Signature) (common.Address, error)

// ValidateOrder checks the order's fields against the owner's cutoff and the
// current time, returning an ErrInvalidOrder for the first violation found.
func ValidateOrder(o *order.Order, cutoff, now uint64) error {
	switch {
	case o.Owner == (common.Address{}):
		return newError(ErrInvalidOrder, "zero owner")
	case o.SellAsset == (common.Address{}):
		return newError(ErrInvalidOrder, "zero sell asset")
	case o.BuyAsset == (common.Address{}):
		return newError(ErrInvalidOrder, "zero buy asset")
	case !validAmount(o.SellAmount):
		return newError(ErrInvalidOrder, "invalid sell amount %v", o.SellAmount)
	case !validAmount(o.BuyAmount):
		return newError(ErrInvalidOrder, "invalid buy amount %v", o.BuyAmount)
	case o.CreatedAt > now:
		return newError(ErrInvalidOrder, "created at %d, in the future", o.CreatedAt)
	case o.CreatedAt <= cutoff:
		return newError(ErrInvalidOrder, "created at %d, not after owner cutoff %d", o.CreatedAt, cutoff)
	case o.TimeToLive == 0:
		return newError(ErrInvalidOrder, "zero time to live")
	case o.TimeToLive <= now-o.CreatedAt:
		return newError(ErrInvalidOrder, "expired at %d", o.CreatedAt+o.TimeToLive)
	case !validAmount(o.Salt):
		return newError(ErrInvalidOrder, "invalid salt")
	case o.MarginSplitPercentage > order.MarginSplitPercentageBase:
		return newError(ErrInvalidOrder, "margin split percentage %d > %d",
			o.MarginSplitPercentage, order.MarginSplitPercentageBase)
	case !calc.IsUint256(o.Fee):
		return newError(ErrInvalidOrder, "invalid fee amount %v", o.Fee)
	}
	return nil
}

func validAmount(x *big.Int) bool {
	return calc.IsPositive(x) && calc.IsUint256(x)
}

// VerifySignature checks that signer signed the hash. what describes the
// signed object in the returned error.
func VerifySignature(recoverSigner RecoverFunc, hash common.Hash, sig order.Signature, signer common.Address, what string) error {
	addr, err := recoverSigner(hash, sig)
	if err != nil {
		return newError(ErrInvalidSignature, "%s: %v", what, err)
	}
	if addr != signer {
		return newError(ErrInvalidSignature, "%s signed by %s, not %s", what, addr.Hex(), signer.Hex())
	}
	return nil
}
