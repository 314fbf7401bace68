// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package internal

// Amounts are unsigned 256-bit integers stored as NUMERIC(78, 0), the number
// of decimal digits in 2^256-1. Cutoffs are uint64 timestamps, NUMERIC(20, 0).
const (
	// CreateAmountsTable creates a table of cumulative per-order amounts. Both
	// the filled and cancelled tables use it.
	CreateAmountsTable = `CREATE TABLE IF NOT EXISTS %s (
		order_hash BYTEA PRIMARY KEY, -- 32-byte order hash
		amount NUMERIC(78, 0) NOT NULL CHECK (amount >= 0)
	);`

	// CreateCutoffsTable creates the table of owner cutoff timestamps.
	CreateCutoffsTable = `CREATE TABLE IF NOT EXISTS %s (
		owner BYTEA PRIMARY KEY, -- 20-byte address
		cutoff NUMERIC(20, 0) NOT NULL
	);`

	// CreateMetaTable creates the single-row table holding the ring count.
	CreateMetaTable = `CREATE TABLE IF NOT EXISTS %s (
		id INT2 PRIMARY KEY CHECK (id = 0),
		ring_count INT8 NOT NULL
	);`

	// InitMeta inserts the meta row if it does not exist.
	InitMeta = `INSERT INTO %s (id, ring_count) VALUES (0, 0)
		ON CONFLICT (id) DO NOTHING;`

	// SelectAmount retrieves an order's amount from a filled or cancelled
	// table.
	SelectAmount = `SELECT amount FROM %s WHERE order_hash = $1;`

	// AddAmount adds to an order's amount in a filled or cancelled table,
	// inserting the row if needed, and returns the new total.
	AddAmount = `INSERT INTO %s AS t (order_hash, amount) VALUES ($1, $2)
		ON CONFLICT (order_hash) DO UPDATE SET amount = t.amount + EXCLUDED.amount
		RETURNING amount;`

	// SelectCutoff retrieves an owner's cutoff.
	SelectCutoff = `SELECT cutoff FROM %s WHERE owner = $1;`

	// RaiseCutoff inserts or raises an owner's cutoff. No row is affected if
	// the existing cutoff is not less than the new one.
	RaiseCutoff = `INSERT INTO %s AS t (owner, cutoff) VALUES ($1, $2)
		ON CONFLICT (owner) DO UPDATE SET cutoff = EXCLUDED.cutoff
		WHERE t.cutoff < EXCLUDED.cutoff;`

	// SelectRingCount retrieves the number of rings mined.
	SelectRingCount = `SELECT ring_count FROM %s WHERE id = 0;`

	// AdvanceRingCount increments the ring count if it equals $1. The row lock
	// taken by the UPDATE serializes concurrent commits.
	AdvanceRingCount = `UPDATE %s SET ring_count = ring_count + 1
		WHERE id = 0 AND ring_count = $1;`
)
