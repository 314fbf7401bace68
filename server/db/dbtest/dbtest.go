// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

// Package dbtest provides a conformance test that every LedgerArchiver driver
// runs against its own backend.
package dbtest

import (
	"math/big"
	"testing"

	"decred.org/ringdex/dex/encode"
	"decred.org/ringdex/dex/order"
	"decred.org/ringdex/server/db"
	"github.com/ethereum/go-ethereum/common"
)

// RandomHash creates a random order hash.
func RandomHash() order.Hash {
	var h order.Hash
	copy(h[:], encode.RandomBytes(len(h)))
	return h
}

// RandomAddress creates a random owner address.
func RandomAddress() common.Address {
	var a common.Address
	copy(a[:], encode.RandomBytes(len(a)))
	return a
}

func checkAmount(t *testing.T, what string, get func(order.Hash) (*big.Int, error), h order.Hash, want int64) {
	t.Helper()
	amt, err := get(h)
	if err != nil {
		t.Fatalf("%s error: %v", what, err)
	}
	if amt.Cmp(big.NewInt(want)) != 0 {
		t.Fatalf("%s: wanted %d, got %v", what, want, amt)
	}
}

// TestLedger exercises the LedgerArchiver contract. The ledger must be empty.
// reopen, if not nil, closes the ledger and opens it again on the same
// backing store, and is used to check that state persists.
func TestLedger(t *testing.T, ledger db.LedgerArchiver, reopen func() db.LedgerArchiver) {
	t.Helper()
	h1, h2 := RandomHash(), RandomHash()
	owner := RandomAddress()

	// Empty state.
	checkAmount(t, "Filled", ledger.Filled, h1, 0)
	checkAmount(t, "Cancelled", ledger.Cancelled, h1, 0)
	if cutoff, err := ledger.Cutoff(owner); err != nil || cutoff != 0 {
		t.Fatalf("wanted zero cutoff, got %d, %v", cutoff, err)
	}
	if n, err := ledger.RingCount(); err != nil || n != 0 {
		t.Fatalf("wanted zero ring count, got %d, %v", n, err)
	}

	// Cancellations accumulate.
	total, err := ledger.AddCancelled(h1, big.NewInt(30))
	if err != nil {
		t.Fatalf("AddCancelled error: %v", err)
	}
	if total.Int64() != 30 {
		t.Fatalf("wanted cancelled total 30, got %v", total)
	}
	if total, err = ledger.AddCancelled(h1, big.NewInt(12)); err != nil || total.Int64() != 42 {
		t.Fatalf("wanted cancelled total 42, got %v, %v", total, err)
	}
	checkAmount(t, "Cancelled", ledger.Cancelled, h1, 42)
	checkAmount(t, "Cancelled", ledger.Cancelled, h2, 0)

	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	if _, err := ledger.AddCancelled(h1, max); !db.IsErrOverflow(err) {
		t.Fatalf("wanted overflow error, got %v", err)
	}
	checkAmount(t, "Cancelled", ledger.Cancelled, h1, 42)

	// Cutoffs only increase.
	if err := ledger.SetCutoff(owner, 1000); err != nil {
		t.Fatalf("SetCutoff error: %v", err)
	}
	if err := ledger.SetCutoff(owner, 1000); !db.IsErrNonIncreasingCutoff(err) {
		t.Fatalf("wanted non-increasing cutoff error for equal cutoff, got %v", err)
	}
	if err := ledger.SetCutoff(owner, 999); !db.IsErrNonIncreasingCutoff(err) {
		t.Fatalf("wanted non-increasing cutoff error for lower cutoff, got %v", err)
	}
	if err := ledger.SetCutoff(owner, 1001); err != nil {
		t.Fatalf("SetCutoff error: %v", err)
	}
	if cutoff, err := ledger.Cutoff(owner); err != nil || cutoff != 1001 {
		t.Fatalf("wanted cutoff 1001, got %d, %v", cutoff, err)
	}
	if err := ledger.SetCutoff(RandomAddress(), 1<<63+1); err != nil {
		t.Fatalf("SetCutoff error for large cutoff: %v", err)
	}

	// Rings commit fills and advance the ring count.
	fills := []*db.Fill{{OrderHash: h1, Amount: big.NewInt(10)}, {OrderHash: h2, Amount: big.NewInt(20)}}
	if err := ledger.CommitRing(0, fills); err != nil {
		t.Fatalf("CommitRing error: %v", err)
	}
	if err := ledger.CommitRing(0, fills); !db.IsErrRingIndexMismatch(err) {
		t.Fatalf("wanted ring index mismatch error for reused index, got %v", err)
	}
	if err := ledger.CommitRing(5, fills); !db.IsErrRingIndexMismatch(err) {
		t.Fatalf("wanted ring index mismatch error for skipped index, got %v", err)
	}
	if err := ledger.CommitRing(1, fills[:1]); err != nil {
		t.Fatalf("CommitRing error: %v", err)
	}
	checkAmount(t, "Filled", ledger.Filled, h1, 20)
	checkAmount(t, "Filled", ledger.Filled, h2, 20)
	if n, err := ledger.RingCount(); err != nil || n != 2 {
		t.Fatalf("wanted ring count 2, got %d, %v", n, err)
	}

	// A failed commit writes nothing.
	bad := []*db.Fill{{OrderHash: h2, Amount: big.NewInt(1)}, {OrderHash: h1, Amount: max}}
	if err := ledger.CommitRing(2, bad); !db.IsErrOverflow(err) {
		t.Fatalf("wanted overflow error, got %v", err)
	}
	checkAmount(t, "Filled", ledger.Filled, h2, 20)
	if n, err := ledger.RingCount(); err != nil || n != 2 {
		t.Fatalf("wanted ring count 2 after failed commit, got %d, %v", n, err)
	}

	if reopen == nil {
		return
	}
	ledger = reopen()
	checkAmount(t, "Filled", ledger.Filled, h1, 20)
	checkAmount(t, "Cancelled", ledger.Cancelled, h1, 42)
	if cutoff, err := ledger.Cutoff(owner); err != nil || cutoff != 1001 {
		t.Fatalf("wanted cutoff 1001 after reopen, got %d, %v", cutoff, err)
	}
	if n, err := ledger.RingCount(); err != nil || n != 2 {
		t.Fatalf("wanted ring count 2 after reopen, got %d, %v", n, err)
	}
}
