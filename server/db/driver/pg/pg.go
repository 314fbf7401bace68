// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

// Package pg is a LedgerArchiver driver backed by PostgreSQL.
package pg

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"decred.org/ringdex/dex"
	"decred.org/ringdex/server/db"
)

// DriverName is the name the driver is registered under.
const DriverName = "pg"

const (
	defaultQueryTimeout = 2 * time.Minute
)

// Driver implements db.Driver.
type Driver struct{}

// Open creates the DB backend, returning a LedgerArchiver. cfg is a *Config
// or Config.
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
	Host, Port, User, Pass, DBName string
	HidePGConfig                   bool
	QueryTimeout                   time.Duration
}

// Archiver is a db.LedgerArchiver.
type Archiver struct {
	ctx          context.Context
	queryTimeout time.Duration
	db           *sql.DB
}

var _ db.LedgerArchiver = (*Archiver)(nil)

// NewArchiver constructs a new Archiver. Use Close when done with the Archiver.
func NewArchiver(ctx context.Context, cfg *Config) (*Archiver, error) {
	// Connect to the PostgreSQL daemon and return the *sql.DB.
	db, err := connect(ctx, cfg.Host, cfg.Port, cfg.User, cfg.Pass, cfg.DBName)
	if err != nil {
		return nil, err
	}

	fail := func(err error) (*Archiver, error) {
		db.Close()
		return nil, err
	}

	// Display the postgres version.
	pgVersion, err := retrievePGVersion(ctx, db)
	if err != nil {
		return fail(err)
	}
	log.Info(pgVersion)

	if err = checkSettings(ctx, db, cfg.HidePGConfig); err != nil {
		return fail(err)
	}

	if err = PrepareTables(ctx, db); err != nil {
		return fail(err)
	}

	queryTimeout := cfg.QueryTimeout
	if queryTimeout <= 0 {
		queryTimeout = defaultQueryTimeout
	}

	return &Archiver{
		ctx:          ctx,
		db:           db,
		queryTimeout: queryTimeout,
	}, nil
}

// Close closes the underlying DB connection.
func (a *Archiver) Close() error {
	return a.db.Close()
}
