// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

// Package engine settles rings of signed orders. The Engine runs each
// submission through the stages of package ring, executes the planned
// transfers on a LedgerTransfer, and records fills, cancellations, and
// cutoffs in the persistent ledger.
package engine

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"decred.org/ringdex/dex"
	"decred.org/ringdex/dex/order"
	"decred.org/ringdex/server/db"
	"decred.org/ringdex/server/ring"
	"github.com/ethereum/go-ethereum/common"
)

// DefaultMaxRingSize is the largest ring accepted when Config.MaxRingSize is
// unset.
const DefaultMaxRingSize = 8

// Submission is a miner's ring as received from the calling surface.
type Submission = ring.Submission

// Config is the configuration of an Engine.
type Config struct {
	// Address identifies the engine. It salts every order hash.
	Address common.Address
	// FeeAsset is the asset that fees and rebates are paid in.
	FeeAsset common.Address
	// MaxRingSize is the maximum number of orders in a ring. Zero means
	// DefaultMaxRingSize.
	MaxRingSize int
	// CVSThreshold is the fairness bound of the rate discounts. Nil means
	// ring.DefaultCVSThreshold.
	CVSThreshold *big.Int

	Ledger    db.LedgerArchiver
	Assets    AssetRegistry
	Claims    RingClaimRegistry
	Transfers LedgerTransfer
	// Signatures recovers signers. Nil means secp256k1 recovery of
	// Ethereum-style signed messages.
	Signatures SignatureVerifier
	// Now is the clock. Nil means time.Now.
	Now func() time.Time
}

// Engine is the ring settlement engine.
type Engine struct {
	addr         common.Address
	feeAsset     common.Address
	maxRingSize  int
	cvsThreshold *big.Int
	ledger       db.LedgerArchiver
	assets       AssetRegistry
	claims       RingClaimRegistry
	transfers    LedgerTransfer
	sigs         SignatureVerifier
	now          func() time.Time

	// submitMtx is held for the duration of a ring submission and is only
	// ever acquired with TryLock.
	submitMtx sync.Mutex
	tokens    atomic.Uint64
}

// New creates an Engine.
func New(cfg *Config) (*Engine, error) {
	switch {
	case cfg.Ledger == nil:
		return nil, errors.New("no ledger")
	case cfg.Assets == nil:
		return nil, errors.New("no asset registry")
	case cfg.Claims == nil:
		return nil, errors.New("no ring claim registry")
	case cfg.Transfers == nil:
		return nil, errors.New("no ledger transfer")
	case cfg.FeeAsset == (common.Address{}):
		return nil, errors.New("no fee asset")
	}

	maxRingSize := cfg.MaxRingSize
	if maxRingSize == 0 {
		maxRingSize = DefaultMaxRingSize
	}
	if maxRingSize < ring.MinRingSize {
		return nil, fmt.Errorf("max ring size %d < %d", maxRingSize, ring.MinRingSize)
	}
	threshold := big.NewInt(ring.DefaultCVSThreshold)
	if cfg.CVSThreshold != nil {
		if cfg.CVSThreshold.Sign() < 0 {
			return nil, fmt.Errorf("negative CVS threshold %v", cfg.CVSThreshold)
		}
		threshold = new(big.Int).Set(cfg.CVSThreshold)
	}
	var sigs SignatureVerifier = secp256k1Verifier{}
	if cfg.Signatures != nil {
		sigs = cfg.Signatures
	}
	now := time.Now
	if cfg.Now != nil {
		now = cfg.Now
	}

	return &Engine{
		addr:         cfg.Address,
		feeAsset:     cfg.FeeAsset,
		maxRingSize:  maxRingSize,
		cvsThreshold: threshold,
		ledger:       cfg.Ledger,
		assets:       cfg.Assets,
		claims:       cfg.Claims,
		transfers:    cfg.Transfers,
		sigs:         sigs,
		now:          now,
	}, nil
}

func newError(kind dex.ErrorKind, format string, args ...any) error {
	return dex.NewError(kind, fmt.Sprintf(format, args...))
}

// recoverSigner adapts the SignatureVerifier to a ring.RecoverFunc.
func (e *Engine) recoverSigner(hash common.Hash, sig order.Signature) (common.Address, error) {
	return e.sigs.RecoverSigner(hash, sig.V, sig.R, sig.S)
}

func (e *Engine) unixNow() uint64 {
	return uint64(e.now().Unix())
}

// RingMined records a settled ring.
type RingMined struct {
	RingIndex     uint64         `json:"ringIndex"`
	RingHash      common.Hash    `json:"ringHash"`
	Miner         common.Address `json:"miner"`
	FeeRecipient  common.Address `json:"feeRecipient"`
	Preregistered bool           `json:"preregistered"`
}

// RingResult is the outcome of a settled ring.
type RingResult struct {
	RingIndex uint64      `json:"ringIndex"`
	RingHash  common.Hash `json:"ringHash"`
	// Bottleneck is the index of the order that limited the ring's volume.
	Bottleneck int                 `json:"bottleneck"`
	Transfers  []*ring.Transfer    `json:"transfers"`
	Fills      []*ring.OrderFilled `json:"fills"`
	Mined      *RingMined          `json:"mined"`
}

// OrderCancelled records a cancellation.
type OrderCancelled struct {
	OrderHash order.Hash     `json:"orderHash"`
	Owner     common.Address `json:"owner"`
	Amount    *big.Int       `json:"amount"`
	// Cancelled is the order's cumulative cancelled amount.
	Cancelled *big.Int `json:"cancelled"`
}

// CutoffChanged records a new owner cutoff.
type CutoffChanged struct {
	Owner  common.Address `json:"owner"`
	Cutoff uint64         `json:"cutoff"`
}

// OrderHash is the engine's hash of the order.
func (e *Engine) OrderHash(ord *order.Order) order.Hash {
	return ord.Hash(e.addr)
}

// Filled is the order's cumulative filled amount.
func (e *Engine) Filled(orderHash order.Hash) (*big.Int, error) {
	return e.ledger.Filled(orderHash)
}

// Cancelled is the order's cumulative cancelled amount.
func (e *Engine) Cancelled(orderHash order.Hash) (*big.Int, error) {
	return e.ledger.Cancelled(orderHash)
}

// Cutoff is the owner's cutoff timestamp.
func (e *Engine) Cutoff(owner common.Address) (uint64, error) {
	return e.ledger.Cutoff(owner)
}

// RingCount is the number of rings mined.
func (e *Engine) RingCount() (uint64, error) {
	return e.ledger.RingCount()
}
