// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

// Package bolt is a LedgerArchiver driver backed by a bbolt database file.
package bolt

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"decred.org/ringdex/dex"
	"decred.org/ringdex/dex/encode"
	"decred.org/ringdex/dex/order"
	"decred.org/ringdex/server/db"
	"github.com/ethereum/go-ethereum/common"
	"go.etcd.io/bbolt"
)

// DriverName is the name the driver is registered under.
const DriverName = "bolt"

// Short names for some commonly used imported functions.
var (
	uint64Bytes   = encode.Uint64Bytes
	amountBytes   = encode.Uint256Bytes
	bytesToInt    = encode.BytesToUint64
	bytesToAmount = encode.BytesToUint256
)

// Bolt works on []byte keys and values. These are the top level buckets and
// the keys of the meta bucket.
var (
	filledBucket    = []byte("filled")
	cancelledBucket = []byte("cancelled")
	cutoffsBucket   = []byte("cutoffs")
	metaBucket      = []byte("meta")
	ringCountKey    = []byte("ringCount")
)

// Driver implements db.Driver.
type Driver struct{}

// Open creates the DB backend, returning a LedgerArchiver. cfg is a *Config
// or Config.
func (d *Driver) Open(_ context.Context, cfg any) (db.LedgerArchiver, error) {
	switch c := cfg.(type) {
	case *Config:
		return NewArchiver(c)
	case Config:
		return NewArchiver(&c)
	default:
		return nil, fmt.Errorf("invalid config type %T", cfg)
	}
}

// UseLogger sets the package-wide logger for the registered DB Driver.
func (*Driver) UseLogger(logger dex.Logger) {
	UseLogger(logger)
}

func init() {
	db.Register(DriverName, &Driver{})
}

// Config holds the Archiver's configuration.
type Config struct {
	// Path is the database file path.
	Path string
}

// Archiver is a db.LedgerArchiver.
type Archiver struct {
	*bbolt.DB
}

var _ db.LedgerArchiver = (*Archiver)(nil)

type bucketFunc func(*bbolt.Bucket) error
type txFunc func(func(*bbolt.Tx) error) error

// NewArchiver opens the database file, creating it if necessary. Use Close
// when done with the Archiver.
func NewArchiver(cfg *Config) (*Archiver, error) {
	bdb, err := bbolt.Open(cfg.Path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	a := &Archiver{DB: bdb}
	if err := a.makeTopLevelBuckets([][]byte{filledBucket, cancelledBucket, cutoffsBucket, metaBucket}); err != nil {
		bdb.Close()
		return nil, err
	}
	log.Infof("Opened bolt ledger at %s", cfg.Path)
	return a, nil
}

func (a *Archiver) makeTopLevelBuckets(buckets [][]byte) error {
	return a.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range buckets {
			_, err := tx.CreateBucketIfNotExists(bucket)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// withBucket creates a view into a top level bucket. The viewer can be
// read-only (a.View), or read-write (a.Update).
func (a *Archiver) withBucket(bkt []byte, viewer txFunc, f bucketFunc) error {
	return viewer(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bkt)
		if bucket == nil {
			return fmt.Errorf("failed to open %s bucket", string(bkt))
		}
		return f(bucket)
	})
}

func (a *Archiver) amount(bkt, k []byte) (*big.Int, error) {
	var amt *big.Int
	err := a.withBucket(bkt, a.View, func(b *bbolt.Bucket) (err error) {
		amt, err = bytesToAmount(b.Get(k))
		return
	})
	if err != nil {
		return nil, err
	}
	return amt, nil
}

// Filled is the cumulative filled amount of the order.
func (a *Archiver) Filled(orderHash order.Hash) (*big.Int, error) {
	return a.amount(filledBucket, orderHash[:])
}

// Cancelled is the cumulative cancelled amount of the order.
func (a *Archiver) Cancelled(orderHash order.Hash) (*big.Int, error) {
	return a.amount(cancelledBucket, orderHash[:])
}

// Cutoff is the owner's cutoff timestamp.
func (a *Archiver) Cutoff(owner common.Address) (uint64, error) {
	var cutoff uint64
	err := a.withBucket(cutoffsBucket, a.View, func(b *bbolt.Bucket) (err error) {
		cutoff, err = bytesToInt(b.Get(owner[:]))
		return
	})
	return cutoff, err
}

// RingCount is the number of rings committed.
func (a *Archiver) RingCount() (uint64, error) {
	var n uint64
	err := a.withBucket(metaBucket, a.View, func(b *bbolt.Bucket) (err error) {
		n, err = bytesToInt(b.Get(ringCountKey))
		return
	})
	return n, err
}

// addAmount adds amt to the amount stored at k, returning the new total.
func addAmount(b *bbolt.Bucket, k []byte, amt *big.Int) (*big.Int, error) {
	cur, err := bytesToAmount(b.Get(k))
	if err != nil {
		return nil, err
	}
	total := cur.Add(cur, amt)
	if total.BitLen() > 256 {
		return nil, db.ArchiveError{Code: db.ErrOverflow, Detail: fmt.Sprintf("%x", k)}
	}
	return total, b.Put(k, amountBytes(total))
}

// AddCancelled adds to the order's cancelled amount.
func (a *Archiver) AddCancelled(orderHash order.Hash, amt *big.Int) (*big.Int, error) {
	var total *big.Int
	err := a.withBucket(cancelledBucket, a.Update, func(b *bbolt.Bucket) (err error) {
		total, err = addAmount(b, encode.CopySlice(orderHash[:]), amt)
		return
	})
	if err != nil {
		return nil, err
	}
	return total, nil
}

// SetCutoff sets the owner's cutoff, which must increase.
func (a *Archiver) SetCutoff(owner common.Address, cutoff uint64) error {
	return a.withBucket(cutoffsBucket, a.Update, func(b *bbolt.Bucket) error {
		cur, err := bytesToInt(b.Get(owner[:]))
		if err != nil {
			return err
		}
		if cutoff <= cur {
			return db.ArchiveError{Code: db.ErrNonIncreasingCutoff,
				Detail: fmt.Sprintf("%d <= %d", cutoff, cur)}
		}
		return b.Put(encode.CopySlice(owner[:]), uint64Bytes(cutoff))
	})
}

// CommitRing adds the fills and increments the ring count in one transaction.
func (a *Archiver) CommitRing(index uint64, fills []*db.Fill) error {
	return a.Update(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(metaBucket)
		count, err := bytesToInt(meta.Get(ringCountKey))
		if err != nil {
			return err
		}
		if index != count {
			return db.ArchiveError{Code: db.ErrRingIndexMismatch,
				Detail: fmt.Sprintf("ring %d, expected %d", index, count)}
		}
		filled := tx.Bucket(filledBucket)
		for _, f := range fills {
			if _, err := addAmount(filled, encode.CopySlice(f.OrderHash[:]), f.Amount); err != nil {
				return err
			}
		}
		return meta.Put(ringCountKey, uint64Bytes(count+1))
	})
}
