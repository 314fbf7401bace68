// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"strconv"

	"decred.org/ringdex/dex/order"
	"decred.org/ringdex/server/db"
	"decred.org/ringdex/server/db/driver/pg/internal"
	"github.com/ethereum/go-ethereum/common"
)

// parseAmount converts a scanned NUMERIC amount.
func parseAmount(s string) (*big.Int, error) {
	amt, ok := new(big.Int).SetString(s, 10)
	if !ok || amt.Sign() < 0 {
		return nil, fmt.Errorf("invalid stored amount %q", s)
	}
	return amt, nil
}

func overflowError(orderHash order.Hash, total *big.Int) error {
	return db.ArchiveError{
		Code:   db.ErrOverflow,
		Detail: fmt.Sprintf("order %s amount %s exceeds 256 bits", orderHash, total),
	}
}

func (a *Archiver) amount(tableName string, orderHash order.Hash) (*big.Int, error) {
	ctx, cancel := context.WithTimeout(a.ctx, a.queryTimeout)
	defer cancel()

	stmt := fmt.Sprintf(internal.SelectAmount, publicTable(tableName))
	var s string
	err := a.db.QueryRowContext(ctx, stmt, orderHash[:]).Scan(&s)
	if errors.Is(err, sql.ErrNoRows) {
		return new(big.Int), nil
	}
	if err != nil {
		return nil, err
	}
	return parseAmount(s)
}

// addAmount adds amt to the order's amount in the table within the
// transaction, returning the new total. A total beyond 256 bits is an
// ErrOverflow ArchiveError, and the caller must roll back.
func addAmount(ctx context.Context, tx *sql.Tx, tableName string, orderHash order.Hash, amt *big.Int) (*big.Int, error) {
	stmt := fmt.Sprintf(internal.AddAmount, publicTable(tableName))
	var s string
	if err := tx.QueryRowContext(ctx, stmt, orderHash[:], amt.String()).Scan(&s); err != nil {
		return nil, err
	}
	total, err := parseAmount(s)
	if err != nil {
		return nil, err
	}
	if total.BitLen() > 256 {
		return nil, overflowError(orderHash, total)
	}
	return total, nil
}

// Filled is the cumulative filled amount of the order.
func (a *Archiver) Filled(orderHash order.Hash) (*big.Int, error) {
	return a.amount(filledTableName, orderHash)
}

// Cancelled is the cumulative cancelled amount of the order.
func (a *Archiver) Cancelled(orderHash order.Hash) (*big.Int, error) {
	return a.amount(cancelledTableName, orderHash)
}

// Cutoff is the owner's cutoff timestamp.
func (a *Archiver) Cutoff(owner common.Address) (uint64, error) {
	ctx, cancel := context.WithTimeout(a.ctx, a.queryTimeout)
	defer cancel()

	stmt := fmt.Sprintf(internal.SelectCutoff, publicTable(cutoffsTableName))
	var s string
	err := a.db.QueryRowContext(ctx, stmt, owner[:]).Scan(&s)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(s, 10, 64)
}

// RingCount is the number of rings mined.
func (a *Archiver) RingCount() (uint64, error) {
	ctx, cancel := context.WithTimeout(a.ctx, a.queryTimeout)
	defer cancel()

	stmt := fmt.Sprintf(internal.SelectRingCount, publicTable(metaTableName))
	var n int64
	if err := a.db.QueryRowContext(ctx, stmt).Scan(&n); err != nil {
		return 0, err
	}
	return uint64(n), nil
}

// withTx runs f in a transaction, committing if f succeeds and rolling back
// otherwise.
func (a *Archiver) withTx(f func(ctx context.Context, tx *sql.Tx) error) error {
	ctx, cancel := context.WithTimeout(a.ctx, a.queryTimeout)
	defer cancel()

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err = f(ctx, tx); err != nil {
		if errR := tx.Rollback(); errR != nil {
			log.Errorf("Rollback failed: %v", errR)
		}
		return err
	}
	return tx.Commit()
}

// AddCancelled adds to the order's cancelled amount and returns the new total.
func (a *Archiver) AddCancelled(orderHash order.Hash, amt *big.Int) (total *big.Int, err error) {
	err = a.withTx(func(ctx context.Context, tx *sql.Tx) error {
		total, err = addAmount(ctx, tx, cancelledTableName, orderHash, amt)
		return err
	})
	if err != nil {
		return nil, err
	}
	return total, nil
}

// SetCutoff raises the owner's cutoff.
func (a *Archiver) SetCutoff(owner common.Address, cutoff uint64) error {
	ctx, cancel := context.WithTimeout(a.ctx, a.queryTimeout)
	defer cancel()

	stmt := fmt.Sprintf(internal.RaiseCutoff, publicTable(cutoffsTableName))
	N, err := sqlExec(ctx, a.db, stmt, owner[:], strconv.FormatUint(cutoff, 10))
	if err != nil {
		return err
	}
	if N == 0 {
		return db.ArchiveError{
			Code:   db.ErrNonIncreasingCutoff,
			Detail: fmt.Sprintf("cutoff %d for %s", cutoff, owner),
		}
	}
	return nil
}

// CommitRing adds the fills and increments the ring count in one transaction.
func (a *Archiver) CommitRing(index uint64, fills []*db.Fill) error {
	return a.withTx(func(ctx context.Context, tx *sql.Tx) error {
		stmt := fmt.Sprintf(internal.AdvanceRingCount, publicTable(metaTableName))
		N, err := sqlExec(ctx, tx, stmt, int64(index))
		if err != nil {
			return err
		}
		if N == 0 {
			return db.ArchiveError{
				Code:   db.ErrRingIndexMismatch,
				Detail: fmt.Sprintf("ring index %d is not the ring count", index),
			}
		}
		for _, f := range fills {
			if _, err = addAmount(ctx, tx, filledTableName, f.OrderHash, f.Amount); err != nil {
				return err
			}
		}
		return nil
	})
}
