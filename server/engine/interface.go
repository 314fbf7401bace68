// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package engine

import (
	"context"
	"math/big"

	"decred.org/ringdex/dex/order"
	"github.com/ethereum/go-ethereum/common"
)

// AssetRegistry knows which assets may be traded.
type AssetRegistry interface {
	IsRegistered(asset common.Address) bool
}

// RingClaimRegistry computes ring hashes and tracks which fee recipient has
// claimed each one.
type RingClaimRegistry interface {
	// RingHash computes the ring hash from the submission's signature
	// arrays. The trailing miner signature does not contribute.
	RingHash(v []uint8, r, s []common.Hash) common.Hash
	// CanClaim is true if the fee recipient may mine the ring.
	CanClaim(hash common.Hash, feeRecipient common.Address) bool
	// WasPreregistered is true if the ring hash was submitted ahead of the
	// ring.
	WasPreregistered(hash common.Hash) bool
}

// LedgerTransfer holds and moves asset balances. The context passed to every
// call carries the submission token of the ring being settled, and an
// implementation that calls back into the Engine must pass it along.
type LedgerTransfer interface {
	// SpendableBalance is the amount of the asset that the engine may move
	// from the owner.
	SpendableBalance(ctx context.Context, asset, owner common.Address) (*big.Int, error)
	// Transfer moves amt of the asset. It either completes or fails without
	// effect.
	Transfer(ctx context.Context, asset, from, to common.Address, amt *big.Int) error
}

// TransferReverter is optionally implemented by a LedgerTransfer that can undo
// a completed transfer exactly, including any allowance spent. Without it, a
// failed ring is rolled back with reverse transfers.
type TransferReverter interface {
	RevertTransfer(ctx context.Context, asset, from, to common.Address, amt *big.Int) error
}

// SignatureVerifier recovers the address that signed a hash.
type SignatureVerifier interface {
	RecoverSigner(hash common.Hash, v uint8, r, s common.Hash) (common.Address, error)
}

// secp256k1Verifier is the default SignatureVerifier.
type secp256k1Verifier struct{}

func (secp256k1Verifier) RecoverSigner(hash common.Hash, v uint8, r, s common.Hash) (common.Address, error) {
	return order.Recover(hash, order.Signature{V: v, R: r, S: s})
}
