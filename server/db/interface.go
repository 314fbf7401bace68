// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

// Package db defines the persistent ledger of the ring engine and a registry
// of the drivers that implement it.
package db

import (
	"math/big"

	"decred.org/ringdex/dex/order"
	"github.com/ethereum/go-ethereum/common"
)

// Fill is an addition to an order's cumulative filled amount.
type Fill struct {
	OrderHash order.Hash
	Amount    *big.Int
}

// LedgerArchiver is the persistent ledger. Every value only ever grows.
// Unknown orders and owners have zero filled and cancelled amounts and a zero
// cutoff.
type LedgerArchiver interface {
	// Filled is the cumulative filled amount of the order.
	Filled(orderHash order.Hash) (*big.Int, error)
	// Cancelled is the cumulative cancelled amount of the order.
	Cancelled(orderHash order.Hash) (*big.Int, error)
	// Cutoff is the owner's cutoff timestamp. Orders created at or before the
	// cutoff are invalid.
	Cutoff(owner common.Address) (uint64, error)
	// RingCount is the number of rings mined, and the index of the next.
	RingCount() (uint64, error)

	// AddCancelled adds to the order's cancelled amount and returns the new
	// total. An ArchiveError with code ErrOverflow is returned if the total
	// would exceed 256 bits.
	AddCancelled(orderHash order.Hash, amt *big.Int) (*big.Int, error)
	// SetCutoff sets the owner's cutoff. An ArchiveError with code
	// ErrNonIncreasingCutoff is returned unless the new cutoff is greater than
	// the current one.
	SetCutoff(owner common.Address, cutoff uint64) error
	// CommitRing atomically adds the fills and increments the ring count. An
	// ArchiveError with code ErrRingIndexMismatch is returned, and nothing is
	// written, if index is not the current ring count.
	CommitRing(index uint64, fills []*Fill) error

	// Close shuts down the ledger.
	Close() error
}
