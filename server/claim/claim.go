// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

// Package claim tracks which fee recipient may mine a ring. A miner may
// pre-register the hash of a ring it is about to submit so that nobody else
// can claim its fees by submitting the same ring first.
package claim

import (
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// DefaultExpiry is how long a pre-registration is honored.
const DefaultExpiry = 10 * time.Minute

type submission struct {
	feeRecipient common.Address
	stamp        time.Time
}

// Registry is an in-memory ring hash registry.
type Registry struct {
	expiry time.Duration
	now    func() time.Time

	mtx         sync.RWMutex
	submissions map[common.Hash]*submission
}

// NewRegistry creates a Registry whose pre-registrations expire after expiry.
// A zero expiry uses DefaultExpiry.
func NewRegistry(expiry time.Duration) *Registry {
	if expiry == 0 {
		expiry = DefaultExpiry
	}
	return &Registry{
		expiry:      expiry,
		now:         time.Now,
		submissions: make(map[common.Hash]*submission),
	}
}

// RingHash computes the ring hash from the order signatures, which are the
// first len(v)-1 elements of each slice. The trailing element is the miner's
// signature of the ring hash and is excluded. The v values, r values, and s
// values are separately XORed, and the hash is the Keccak-256 of the packed
// results.
func (r *Registry) RingHash(v []uint8, rs, ss []common.Hash) common.Hash {
	n := len(v) - 1
	var vx uint8
	var rx, sx common.Hash
	for i := 0; i < n; i++ {
		vx ^= v[i]
		for j := range rx {
			rx[j] ^= rs[i][j]
			sx[j] ^= ss[i][j]
		}
	}
	return crypto.Keccak256Hash([]byte{vx}, rx[:], sx[:])
}

// Submit pre-registers the ring hash for the fee recipient. A hash held by a
// different fee recipient can only be taken over after it expires.
func (r *Registry) Submit(hash common.Hash, feeRecipient common.Address) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	now := r.now()
	if sub, found := r.submissions[hash]; found && sub.feeRecipient != feeRecipient && !r.expired(sub, now) {
		return fmt.Errorf("ring %s already registered by %s", hash, sub.feeRecipient.Hex())
	}
	r.submissions[hash] = &submission{feeRecipient: feeRecipient, stamp: now}
	log.Debugf("Ring %s pre-registered by %s", hash, feeRecipient.Hex())
	return nil
}

func (r *Registry) expired(sub *submission, now time.Time) bool {
	return now.Sub(sub.stamp) >= r.expiry
}

// CanClaim checks that the fee recipient may mine the ring. This is true if
// the ring hash is not registered, if its registration has expired, or if it
// was registered by the same fee recipient.
func (r *Registry) CanClaim(hash common.Hash, feeRecipient common.Address) bool {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	sub, found := r.submissions[hash]
	return !found || sub.feeRecipient == feeRecipient || r.expired(sub, r.now())
}

// WasPreregistered checks if the ring hash was registered with Submit.
func (r *Registry) WasPreregistered(hash common.Hash) bool {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	_, found := r.submissions[hash]
	return found
}

// Prune removes expired registrations, returning the number removed.
func (r *Registry) Prune() int {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	now := r.now()
	var n int
	for hash, sub := range r.submissions {
		if r.expired(sub, now) {
			delete(r.submissions, hash)
			n++
		}
	}
	if n > 0 {
		log.Debugf("Pruned %d expired ring registrations", n)
	}
	return n
}
