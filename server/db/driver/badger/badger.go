// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

// Package badger is a LedgerArchiver driver backed by a badger key-value
// database.
package badger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"decred.org/ringdex/dex"
	"decred.org/ringdex/dex/encode"
	"decred.org/ringdex/dex/order"
	"decred.org/ringdex/server/db"
	"github.com/dgraph-io/badger/v4"
	"github.com/ethereum/go-ethereum/common"
)

// DriverName is the name the driver is registered under.
const DriverName = "badger"

const (
	gcInterval     = 5 * time.Minute
	gcDiscardRatio = 0.5
)

// Key prefixes. Each key is a one byte prefix followed by the order hash,
// the owner address, or a name.
const (
	filledPrefix byte = iota + 1
	cancelledPrefix
	cutoffPrefix
	metaPrefix
)

var ringCountKey = prefixedKey(metaPrefix, []byte("ringCount"))

func prefixedKey(prefix byte, k []byte) []byte {
	b := make([]byte, 0, 1+len(k))
	return append(append(b, prefix), k...)
}

// Driver implements db.Driver.
type Driver struct{}

// Open creates the DB backend, returning a LedgerArchiver. cfg is a *Config
// or Config. The value log garbage collector runs until ctx is canceled or the
// Archiver is closed.
func (d *Driver) Open(ctx context.Context, cfg any) (db.LedgerArchiver, error) {
	switch c := cfg.(type) {
	case *Config:
		return NewArchiver(ctx, c)
	case Config:
		return NewArchiver(ctx, &c)
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
	// Path is the database directory.
	Path string
	// InMemory keeps the database in memory only. Path is ignored.
	InMemory bool
}

// Archiver is a db.LedgerArchiver.
type Archiver struct {
	db       *badger.DB
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	updateWG sync.WaitGroup
	closeMtx sync.Mutex
	closed   bool
}

var _ db.LedgerArchiver = (*Archiver)(nil)

// NewArchiver opens the database. Use Close when done with the Archiver.
func NewArchiver(ctx context.Context, cfg *Config) (*Archiver, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithLogger(&badgerLoggerWrapper{log})
	bdb, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	a := &Archiver{
		db:     bdb,
		cancel: cancel,
	}
	if !cfg.InMemory {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.runGC(ctx)
		}()
	}
	log.Infof("Opened badger ledger at %s", cfg.Path)
	return a, nil
}

func (a *Archiver) runGC(ctx context.Context) {
	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			err := a.db.RunValueLogGC(gcDiscardRatio)
			if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				log.Errorf("garbage collection error: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Close stops the garbage collector, waits for updates in progress, and
// closes the database.
func (a *Archiver) Close() error {
	a.closeMtx.Lock()
	defer a.closeMtx.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	a.cancel()
	a.wg.Wait()
	a.updateWG.Wait()
	return a.db.Close()
}

// update runs f in a read-write transaction. badger can return an ErrConflict
// if a read and write happen concurrently, in which case the transaction is
// retried.
func (a *Archiver) update(f func(txn *badger.Txn) error) (err error) {
	a.updateWG.Add(1)
	defer a.updateWG.Done()

	const maxRetries = 10
	sleepTime := 5 * time.Millisecond

	for i := 0; i < maxRetries; i++ {
		if err = a.db.Update(f); err == nil || !errors.Is(err, badger.ErrConflict) {
			return err
		}
		sleepTime *= 2
		time.Sleep(sleepTime)
	}

	return err
}

// get retrieves the value at k. A missing key gives a nil value.
func get(txn *badger.Txn, k []byte) ([]byte, error) {
	item, err := txn.Get(k)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func (a *Archiver) amount(k []byte) (amt *big.Int, err error) {
	err = a.db.View(func(txn *badger.Txn) error {
		b, err := get(txn, k)
		if err != nil {
			return err
		}
		amt, err = encode.BytesToUint256(b)
		return err
	})
	return
}

func (a *Archiver) counter(k []byte) (v uint64, err error) {
	err = a.db.View(func(txn *badger.Txn) error {
		b, err := get(txn, k)
		if err != nil {
			return err
		}
		v, err = encode.BytesToUint64(b)
		return err
	})
	return
}

// Filled is the cumulative filled amount of the order.
func (a *Archiver) Filled(orderHash order.Hash) (*big.Int, error) {
	return a.amount(prefixedKey(filledPrefix, orderHash[:]))
}

// Cancelled is the cumulative cancelled amount of the order.
func (a *Archiver) Cancelled(orderHash order.Hash) (*big.Int, error) {
	return a.amount(prefixedKey(cancelledPrefix, orderHash[:]))
}

// Cutoff is the owner's cutoff timestamp.
func (a *Archiver) Cutoff(owner common.Address) (uint64, error) {
	return a.counter(prefixedKey(cutoffPrefix, owner[:]))
}

// RingCount is the number of rings committed.
func (a *Archiver) RingCount() (uint64, error) {
	return a.counter(ringCountKey)
}

// addAmount adds amt to the amount stored at k, returning the new total.
func addAmount(txn *badger.Txn, k []byte, amt *big.Int) (*big.Int, error) {
	b, err := get(txn, k)
	if err != nil {
		return nil, err
	}
	cur, err := encode.BytesToUint256(b)
	if err != nil {
		return nil, err
	}
	total := cur.Add(cur, amt)
	if total.BitLen() > 256 {
		return nil, db.ArchiveError{Code: db.ErrOverflow, Detail: fmt.Sprintf("%x", k[1:])}
	}
	return total, txn.Set(k, encode.Uint256Bytes(total))
}

// AddCancelled adds to the order's cancelled amount.
func (a *Archiver) AddCancelled(orderHash order.Hash, amt *big.Int) (total *big.Int, err error) {
	err = a.update(func(txn *badger.Txn) (err error) {
		total, err = addAmount(txn, prefixedKey(cancelledPrefix, orderHash[:]), amt)
		return
	})
	if err != nil {
		return nil, err
	}
	return total, nil
}

// SetCutoff sets the owner's cutoff, which must increase.
func (a *Archiver) SetCutoff(owner common.Address, cutoff uint64) error {
	k := prefixedKey(cutoffPrefix, owner[:])
	return a.update(func(txn *badger.Txn) error {
		b, err := get(txn, k)
		if err != nil {
			return err
		}
		cur, err := encode.BytesToUint64(b)
		if err != nil {
			return err
		}
		if cutoff <= cur {
			return db.ArchiveError{Code: db.ErrNonIncreasingCutoff,
				Detail: fmt.Sprintf("%d <= %d", cutoff, cur)}
		}
		return txn.Set(k, encode.Uint64Bytes(cutoff))
	})
}

// CommitRing adds the fills and increments the ring count in one transaction.
func (a *Archiver) CommitRing(index uint64, fills []*db.Fill) error {
	return a.update(func(txn *badger.Txn) error {
		b, err := get(txn, ringCountKey)
		if err != nil {
			return err
		}
		count, err := encode.BytesToUint64(b)
		if err != nil {
			return err
		}
		if index != count {
			return db.ArchiveError{Code: db.ErrRingIndexMismatch,
				Detail: fmt.Sprintf("ring %d, expected %d", index, count)}
		}
		for _, f := range fills {
			if _, err := addAmount(txn, prefixedKey(filledPrefix, f.OrderHash[:]), f.Amount); err != nil {
				return err
			}
		}
		return txn.Set(ringCountKey, encode.Uint64Bytes(count+1))
	})
}
