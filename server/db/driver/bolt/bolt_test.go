// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package bolt

import (
	"context"
	"path/filepath"
	"testing"

	"decred.org/ringdex/dex"
	"decred.org/ringdex/server/db"
	"decred.org/ringdex/server/db/dbtest"
)

func TestMain(m *testing.M) {
	UseLogger(dex.StdOutLogger("DB_TEST", dex.LevelTrace))
	m.Run()
}

func TestLedger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	a, err := NewArchiver(&Config{Path: path})
	if err != nil {
		t.Fatalf("NewArchiver error: %v", err)
	}
	reopen := func() db.LedgerArchiver {
		if err := a.Close(); err != nil {
			t.Fatalf("Close error: %v", err)
		}
		a, err = NewArchiver(&Config{Path: path})
		if err != nil {
			t.Fatalf("NewArchiver error on reopen: %v", err)
		}
		return a
	}
	dbtest.TestLedger(t, a, reopen)
	a.Close()
}

func TestDriver(t *testing.T) {
	ledger, err := db.Open(context.Background(), DriverName, Config{Path: filepath.Join(t.TempDir(), "ledger.db")})
	if err != nil {
		t.Fatalf("db.Open error: %v", err)
	}
	defer ledger.Close()
	if _, ok := ledger.(*Archiver); !ok {
		t.Fatalf("wrong archiver type %T", ledger)
	}
	if _, err := db.Open(context.Background(), DriverName, "nope"); err == nil {
		t.Fatalf("no error for bad config type")
	}
}
