// Package dex assembles a ring engine from its configured ledger driver, asset
// book, and ring claim registry, and runs the engine's background subsystems.
package dex

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"decred.org/ringdex/dex"
	"decred.org/ringdex/server/asset"
	"decred.org/ringdex/server/claim"
	"decred.org/ringdex/server/db"
	"decred.org/ringdex/server/engine"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
)

// DBConf selects the ledger driver and its driver-specific configuration, e.g.
// a *bolt.Config for the bolt driver.
type DBConf struct {
	Driver string
	Config any
}

// DexConf is the configuration data required to create a new DEX.
type DexConf struct {
	Network dex.Network
	DBConf  *DBConf
	// Genesis is the initial state of the asset registry and book.
	Genesis *asset.Genesis

	EngineAddress common.Address
	FeeAsset      common.Address
	MaxRingSize   int
	CVSThreshold  *big.Int
	// ClaimExpiry is how long a ring hash pre-registration is honored.
	ClaimExpiry time.Duration
	// Now is the engine's clock. Nil means time.Now.
	Now func() time.Time
}

// DEX is the ring engine manager.
type DEX struct {
	storage db.LedgerArchiver
	assets  *asset.Registry
	book    *asset.Book
	claims  *claim.Registry
	engine  *engine.Engine

	cancel     context.CancelFunc
	subsystems *errgroup.Group
}

// NewDEX opens the ledger, loads the genesis state, and creates the engine.
// The background subsystems run until Stop is called.
func NewDEX(cfg *DexConf) (*DEX, error) {
	if cfg.DBConf == nil {
		return nil, errors.New("no database configuration")
	}
	if cfg.Network == dex.Mainnet && cfg.EngineAddress == (common.Address{}) {
		return nil, errors.New("an engine address is required on mainnet")
	}

	assets, book := asset.NewRegistry(), asset.NewBook()
	if cfg.Genesis != nil {
		if err := cfg.Genesis.Apply(assets, book); err != nil {
			return nil, fmt.Errorf("error loading genesis: %w", err)
		}
	}
	if !assets.IsRegistered(cfg.FeeAsset) {
		log.Warnf("Fee asset %s is not registered. Only rings without fee asset orders "+
			"can settle.", cfg.FeeAsset.Hex())
	}

	ctx, cancel := context.WithCancel(context.Background())

	log.Infof("Opening %s ledger...", cfg.DBConf.Driver)
	storage, err := db.Open(ctx, cfg.DBConf.Driver, cfg.DBConf.Config)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("error opening %s ledger: %w", cfg.DBConf.Driver, err)
	}
	ringCount, err := storage.RingCount()
	if err != nil {
		cancel()
		storage.Close()
		return nil, fmt.Errorf("error reading ring count: %w", err)
	}
	log.Infof("Ledger holds %d mined rings.", ringCount)

	claims := claim.NewRegistry(cfg.ClaimExpiry)
	eng, err := engine.New(&engine.Config{
		Address:      cfg.EngineAddress,
		FeeAsset:     cfg.FeeAsset,
		MaxRingSize:  cfg.MaxRingSize,
		CVSThreshold: cfg.CVSThreshold,
		Ledger:       storage,
		Assets:       assets,
		Claims:       claims,
		Transfers:    book,
		Now:          cfg.Now,
	})
	if err != nil {
		cancel()
		storage.Close()
		return nil, fmt.Errorf("error creating engine: %w", err)
	}

	dm := &DEX{
		storage: storage,
		assets:  assets,
		book:    book,
		claims:  claims,
		engine:  eng,
		cancel:  cancel,
	}

	expiry := cfg.ClaimExpiry
	if expiry == 0 {
		expiry = claim.DefaultExpiry
	}
	subsystems, subCtx := errgroup.WithContext(ctx)
	subsystems.Go(func() error {
		dm.pruneClaims(subCtx, expiry/2)
		return nil
	})
	dm.subsystems = subsystems

	log.Infof("Ring engine %s ready on %s.", cfg.EngineAddress.Hex(), cfg.Network)
	return dm, nil
}

// pruneClaims periodically drops expired ring hash pre-registrations.
func (dm *DEX) pruneClaims(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			dm.claims.Prune()
		case <-ctx.Done():
			return
		}
	}
}

// Stop shuts down the DEX. Stop returns only after all subsystems have
// completed their shutdown and the ledger is closed.
func (dm *DEX) Stop() {
	log.Infof("Stopping subsystems...")
	dm.cancel()
	if err := dm.subsystems.Wait(); err != nil {
		log.Errorf("Subsystem error: %v", err)
	}
	if err := dm.storage.Close(); err != nil {
		log.Errorf("LedgerArchiver.Close: %v", err)
	}
}

// Engine is the ring settlement engine.
func (dm *DEX) Engine() *engine.Engine {
	return dm.engine
}

// Book is the asset book that rings are settled on.
func (dm *DEX) Book() *asset.Book {
	return dm.book
}

// Assets is the registry of tradeable assets.
func (dm *DEX) Assets() *asset.Registry {
	return dm.assets
}

// Claims is the ring claim registry.
func (dm *DEX) Claims() *claim.Registry {
	return dm.claims
}
