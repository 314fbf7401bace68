// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package dex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"

	"decred.org/ringdex/dex/order"
	"decred.org/ringdex/server/engine"
	"github.com/ethereum/go-ethereum/common"
)

// Registration pre-registers a ring hash for a fee recipient.
type Registration struct {
	RingHash     common.Hash    `json:"ringHash"`
	FeeRecipient common.Address `json:"feeRecipient"`
}

// Cancel is a signed order cancellation. The order is given by its fields:
// owner, sellAsset, buyAsset, sellAmount, buyAmount, createdAt, timeToLive,
// salt, fee, buyNoMoreThanBuyAmount, and marginSplitPercentage. The signature
// has v, r, and s fields.
type Cancel struct {
	Sender    common.Address  `json:"sender"`
	Order     *order.Order    `json:"order"`
	Amount    *big.Int        `json:"amount"`
	Signature order.Signature `json:"signature"`
}

// Cutoff sets an owner's cutoff. A zero cutoff means now.
type Cutoff struct {
	Sender common.Address `json:"sender"`
	Cutoff uint64         `json:"cutoff"`
}

// Op is one operation of a Batch. Exactly one field must be set.
type Op struct {
	Register *Registration      `json:"register,omitempty"`
	Ring     *engine.Submission `json:"ring,omitempty"`
	Cancel   *Cancel            `json:"cancel,omitempty"`
	Cutoff   *Cutoff            `json:"cutoff,omitempty"`
}

// Batch is an ordered list of operations.
type Batch struct {
	Ops []*Op `json:"ops"`
}

// OpResult is the outcome of one operation of a Batch.
type OpResult struct {
	Index      int                    `json:"index"`
	Registered *Registration          `json:"registered,omitempty"`
	Ring       *engine.RingResult     `json:"ring,omitempty"`
	Cancelled  *engine.OrderCancelled `json:"cancelled,omitempty"`
	Cutoff     *engine.CutoffChanged  `json:"cutoff,omitempty"`
	Error      string                 `json:"error,omitempty"`

	err error
}

// LoadBatch reads a JSON Batch from the file.
func LoadBatch(path string) (*Batch, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading batch file: %w", err)
	}
	batch := new(Batch)
	if err := json.Unmarshal(b, batch); err != nil {
		return nil, fmt.Errorf("error decoding batch file %s: %w", path, err)
	}
	return batch, nil
}

// RunBatch executes the operations in order. A failed operation does not stop
// the batch. Its error is recorded in its OpResult. RunBatch only returns an
// error if ctx is canceled, along with the results completed so far.
func (dm *DEX) RunBatch(ctx context.Context, batch *Batch) ([]*OpResult, error) {
	results := make([]*OpResult, 0, len(batch.Ops))
	var failed int
	for i, op := range batch.Ops {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := dm.runOp(ctx, op)
		if err != nil {
			log.Warnf("Batch operation %d failed: %v", i, err)
			res = &OpResult{Error: err.Error(), err: err}
			failed++
		}
		res.Index = i
		results = append(results, res)
	}
	log.Infof("Processed batch of %d operations. %d failed.", len(batch.Ops), failed)
	return results, nil
}

func (dm *DEX) runOp(ctx context.Context, op *Op) (*OpResult, error) {
	var set int
	for _, isSet := range []bool{op.Register != nil, op.Ring != nil, op.Cancel != nil, op.Cutoff != nil} {
		if isSet {
			set++
		}
	}
	if set != 1 {
		return nil, fmt.Errorf("operation has %d actions, expected 1", set)
	}

	eng := dm.engine
	switch {
	case op.Register != nil:
		reg := op.Register
		if err := dm.claims.Submit(reg.RingHash, reg.FeeRecipient); err != nil {
			return nil, err
		}
		return &OpResult{Registered: reg}, nil
	case op.Ring != nil:
		res, err := eng.SubmitRing(ctx, op.Ring)
		if err != nil {
			return nil, err
		}
		return &OpResult{Ring: res}, nil
	case op.Cancel != nil:
		c := op.Cancel
		if c.Order == nil || c.Amount == nil {
			return nil, errors.New("cancel requires an order and an amount")
		}
		oc, err := eng.CancelOrder(ctx, c.Sender, c.Order, c.Amount, c.Signature)
		if err != nil {
			return nil, err
		}
		return &OpResult{Cancelled: oc}, nil
	default:
		cc, err := eng.SetCutoff(ctx, op.Cutoff.Sender, op.Cutoff.Cutoff)
		if err != nil {
			return nil, err
		}
		return &OpResult{Cutoff: cc}, nil
	}
}
