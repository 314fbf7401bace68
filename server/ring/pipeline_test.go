// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package ring

import (
	"errors"
	"math/big"
	"testing"

	"decred.org/ringdex/dex/order"
	"github.com/davecgh/go-spew/spew"
	"github.com/ethereum/go-ethereum/common"
)

func TestVerifyRates(t *testing.T) {
	threshold := big.NewInt(DefaultCVSThreshold)
	tests := []struct {
		name         string
		rateA, rateB [2]int64
		wantErr      error
	}{
		{"limit rates", [2]int64{100, 100}, [2]int64{40, 40}, nil},
		// ratios {9900, 10000}, cvs 2525
		{"small discount", [2]int64{99, 100}, [2]int64{40, 40}, nil},
		// ratios {9000, 10000}, cvs 277008
		{"unfair discount", [2]int64{90, 100}, [2]int64{40, 40}, ErrRateDiscountUnfair},
		{"equal discounts", [2]int64{90, 100}, [2]int64{36, 40}, nil},
		{"worse than limit", [2]int64{101, 100}, [2]int64{40, 40}, ErrRateDiscountInvalid},
		{"zero rate", [2]int64{100, 0}, [2]int64{40, 40}, ErrRateDiscountInvalid},
	}
	for _, tt := range tests {
		r := tRing(t,
			&tOrder{owner: ownerA, sell: assetX, buy: assetY, sellAmt: 100, buyAmt: 100, rateSell: tt.rateA[0], rateBuy: tt.rateA[1]},
			&tOrder{owner: ownerB, sell: assetY, buy: assetX, sellAmt: 40, buyAmt: 40, rateSell: tt.rateB[0], rateBuy: tt.rateB[1]},
		)
		err := VerifyRates(r, threshold)
		if tt.wantErr == nil {
			if err != nil {
				t.Fatalf("%s: unexpected error: %v", tt.name, err)
			}
			continue
		}
		if !errors.Is(err, tt.wantErr) {
			t.Fatalf("%s: wanted %v, got %v", tt.name, tt.wantErr, err)
		}
	}
}

func TestScaleOrder(t *testing.T) {
	tests := []struct {
		name              string
		sell, buy, fee    int64
		capped            bool
		available         int64
		filled, cancelled int64
		wantSell, wantBuy int64
		wantFee, wantFill int64
		wantErr           error
	}{
		{"fresh", 100, 200, 10, false, 1000, 0, 0, 100, 200, 10, 100, nil},
		{"partially filled", 100, 200, 10, false, 1000, 30, 20, 50, 100, 5, 50, nil},
		{"balance bound", 100, 200, 10, false, 40, 0, 0, 100, 200, 10, 40, nil},
		{"buy capped", 100, 200, 10, true, 1000, 50, 50, 50, 100, 5, 50, nil},
		{"over cancelled", 100, 200, 10, false, 1000, 60, 70, 0, 0, 0, 0, ErrOrderFullyConsumed},
		{"rounds to zero", 1, 200, 10, true, 1000, 150, 0, 0, 0, 0, 0, ErrOrderFullyConsumed},
	}

	for _, tt := range tests {
		s := tOrderState(&tOrder{owner: ownerA, sell: assetX, buy: assetY,
			sellAmt: tt.sell, buyAmt: tt.buy, fee: tt.fee, capped: tt.capped})
		s.Available = big.NewInt(tt.available)
		err := ScaleOrder(s, big.NewInt(tt.filled), big.NewInt(tt.cancelled))
		if tt.wantErr != nil {
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("%s: wanted %v, got %v", tt.name, tt.wantErr, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.name, err)
		}
		o := s.Order
		if o.SellAmount.Int64() != tt.wantSell || o.BuyAmount.Int64() != tt.wantBuy ||
			o.Fee.Int64() != tt.wantFee || s.Fill.Int64() != tt.wantFill {
			t.Fatalf("%s: wanted sell/buy/fee/fill %d/%d/%d/%d, got %v/%v/%v/%v", tt.name,
				tt.wantSell, tt.wantBuy, tt.wantFee, tt.wantFill, o.SellAmount, o.BuyAmount, o.Fee, s.Fill)
		}
	}
}

func TestScaleOrderKeepsOriginal(t *testing.T) {
	o := &order.Order{Owner: ownerA, SellAsset: assetX, BuyAsset: assetY,
		SellAmount: big.NewInt(100), BuyAmount: big.NewInt(100), Salt: big.NewInt(1), Fee: big.NewInt(4)}
	s := NewOrderState(o, order.Hash{}, order.FeeAsset, Rate{big.NewInt(1), big.NewInt(1)}, plenty, plenty)
	if err := ScaleOrder(s, big.NewInt(50), new(big.Int)); err != nil {
		t.Fatalf("ScaleOrder error: %v", err)
	}
	if o.SellAmount.Int64() != 100 || o.Fee.Int64() != 4 {
		t.Fatalf("signed order modified: %s", spew.Sdump(o))
	}
}

func checkFills(t *testing.T, r *Ring, wantBottleneck int, wantFills ...int64) {
	t.Helper()
	if r.Bottleneck != wantBottleneck {
		t.Fatalf("wanted bottleneck %d, got %d", wantBottleneck, r.Bottleneck)
	}
	for i, want := range wantFills {
		if got := r.Orders[i].Fill.Int64(); got != want {
			t.Fatalf("order %d: wanted fill %d, got %d", i, want, got)
		}
	}
}

func TestPropagateFills(t *testing.T) {
	a := &tOrder{owner: ownerA, sell: assetX, buy: assetY, sellAmt: 100, buyAmt: 100, fee: 10}
	b := &tOrder{owner: ownerB, sell: assetY, buy: assetX, sellAmt: 40, buyAmt: 40, fee: 8}

	// B limits the ring regardless of where it is.
	r := tRing(t, a, b)
	PropagateFills(r)
	checkFills(t, r, 1, 40, 40)
	if fee := r.Orders[0].FeeDue.Int64(); fee != 4 {
		t.Fatalf("wanted prorated fee 4, got %d", fee)
	}
	if fee := r.Orders[1].FeeDue.Int64(); fee != 8 {
		t.Fatalf("wanted full fee 8, got %d", fee)
	}

	r = tRing(t, b, a)
	PropagateFills(r)
	checkFills(t, r, 0, 40, 40)

	// Bottleneck in the middle of a three-order ring.
	r = tRing(t,
		&tOrder{owner: ownerA, sell: assetX, buy: assetY, sellAmt: 100, buyAmt: 100},
		&tOrder{owner: ownerB, sell: assetY, buy: assetZ, sellAmt: 50, buyAmt: 50},
		&tOrder{owner: ownerC, sell: assetZ, buy: assetX, sellAmt: 100, buyAmt: 100},
	)
	PropagateFills(r)
	checkFills(t, r, 1, 50, 50, 50)

	// A buy-capped order receiving more than its buy amount at the execution
	// rate is clamped.
	r = tRing(t,
		&tOrder{owner: ownerA, sell: assetX, buy: assetY, sellAmt: 200, buyAmt: 100, rateSell: 100, rateBuy: 100, capped: true, fee: 10},
		&tOrder{owner: ownerB, sell: assetY, buy: assetX, sellAmt: 300, buyAmt: 300},
	)
	PropagateFills(r)
	checkFills(t, r, 0, 100, 100)
	if fee := r.Orders[0].FeeDue.Int64(); fee != 10 {
		t.Fatalf("wanted buy-side prorated fee 10, got %d", fee)
	}

	// Limited spendable balance makes an order the bottleneck.
	r = tRing(t,
		&tOrder{owner: ownerA, sell: assetX, buy: assetY, sellAmt: 100, buyAmt: 100},
		&tOrder{owner: ownerB, sell: assetY, buy: assetZ, sellAmt: 100, buyAmt: 100},
		&tOrder{owner: ownerC, sell: assetZ, buy: assetX, sellAmt: 100, buyAmt: 100},
	)
	r.Orders[2].Fill = big.NewInt(30)
	PropagateFills(r)
	checkFills(t, r, 2, 30, 30, 30)
}

// marginRing is a two-order ring in which order 1 sells X for Y with a 10 unit
// margin on the buy side, and order 0 pays a fee-asset fee.
func marginRing(t *testing.T, feeBal int64) *Ring {
	r := tRing(t,
		&tOrder{owner: ownerB, sell: assetY, buy: assetX, sellAmt: 100, buyAmt: 100,
			fee: 20, feeSel: order.FeeAsset, feeBal: feeBal},
		&tOrder{owner: ownerA, sell: assetX, buy: assetY, sellAmt: 100, buyAmt: 90,
			rateSell: 100, rateBuy: 100, fee: 10, feeSel: order.MarginSplit, pct: 50},
	)
	// The fee recipient holds enough to pay A's rebate.
	r.MinerPool = big.NewInt(10)
	PropagateFills(r)
	checkFills(t, r, 0, 100, 100)
	return r
}

func TestCalculateFees(t *testing.T) {
	r := marginRing(t, 20)
	if err := CalculateFees(r); err != nil {
		t.Fatalf("CalculateFees error: %v", err)
	}
	b, a := r.Orders[0], r.Orders[1]
	if b.FeeDue.Int64() != 20 || b.FeeRebate.Sign() != 0 {
		t.Fatalf("wrong fee-asset order fees: due %v, rebate %v", b.FeeDue, b.FeeRebate)
	}
	if a.BuySplit.Int64() != 5 || a.SellSplit.Sign() != 0 {
		t.Fatalf("wrong splits: buy %v, sell %v", a.BuySplit, a.SellSplit)
	}
	if a.FeeDue.Sign() != 0 || a.FeeRebate.Int64() != 10 {
		t.Fatalf("wrong margin-split order fees: due %v, rebate %v", a.FeeDue, a.FeeRebate)
	}
	if r.MinerPool.Sign() != 0 {
		t.Fatalf("wanted empty pool, got %v", r.MinerPool)
	}
}

func TestCalculateFeesPaidFeesNotPooled(t *testing.T) {
	// B pays its fee in full, but fees paid in full are not added to the pool,
	// so A cannot be rebated from an empty pool and keeps its fee.
	r := marginRing(t, 20)
	r.MinerPool = new(big.Int)
	if err := CalculateFees(r); err != nil {
		t.Fatalf("CalculateFees error: %v", err)
	}
	b, a := r.Orders[0], r.Orders[1]
	if b.FeeDue.Int64() != 20 {
		t.Fatalf("wanted fee-asset order fee 20, got %v", b.FeeDue)
	}
	if a.FeeDue.Int64() != 10 || a.FeeRebate.Sign() != 0 {
		t.Fatalf("wrong margin-split order fees: due %v, rebate %v", a.FeeDue, a.FeeRebate)
	}
	if a.BuySplit.Sign() != 0 || a.SellSplit.Sign() != 0 {
		t.Fatalf("unexpected splits: buy %v, sell %v", a.BuySplit, a.SellSplit)
	}
	if r.MinerPool.Sign() != 0 {
		t.Fatalf("wanted empty pool, got %v", r.MinerPool)
	}
}

func TestCalculateFeesShortfall(t *testing.T) {
	r := marginRing(t, 15)
	if err := CalculateFees(r); !errors.Is(err, ErrInsufficientFeeBalance) {
		t.Fatalf("wanted ErrInsufficientFeeBalance, got %v", err)
	}

	// The reduced fee of a waived order is added to the pool and funds the
	// later rebate.
	r = marginRing(t, 15)
	r.MinerPool = new(big.Int)
	r.FeePolicy = WaiveInsufficientFee
	if err := CalculateFees(r); err != nil {
		t.Fatalf("CalculateFees error: %v", err)
	}
	if fee := r.Orders[0].FeeDue.Int64(); fee != 15 {
		t.Fatalf("wanted reduced fee 15, got %d", fee)
	}
	if rebate := r.Orders[1].FeeRebate.Int64(); rebate != 10 {
		t.Fatalf("wanted rebate 10, got %d", rebate)
	}
	if r.MinerPool.Int64() != 5 {
		t.Fatalf("wanted remaining pool 5, got %v", r.MinerPool)
	}
}

func TestCalculateFeesEmptyPool(t *testing.T) {
	// With the margin-split order first, the pool is empty when it is visited,
	// so it keeps its fee. Its owner's fee balance is not checked.
	r := tRing(t,
		&tOrder{owner: ownerA, sell: assetX, buy: assetY, sellAmt: 100, buyAmt: 90,
			rateSell: 100, rateBuy: 100, fee: 10, feeSel: order.MarginSplit, pct: 50},
		&tOrder{owner: ownerB, sell: assetY, buy: assetX, sellAmt: 100, buyAmt: 100,
			fee: 20, feeSel: order.FeeAsset, feeBal: 20},
	)
	PropagateFills(r)
	if err := CalculateFees(r); err != nil {
		t.Fatalf("CalculateFees error: %v", err)
	}
	a := r.Orders[0]
	if a.FeeDue.Int64() != 10 || a.FeeRebate.Sign() != 0 || a.BuySplit.Sign() != 0 {
		t.Fatalf("wrong fees: due %v, rebate %v, split %v", a.FeeDue, a.FeeRebate, a.BuySplit)
	}
	if r.MinerPool.Sign() != 0 {
		t.Fatalf("wanted empty pool, got %v", r.MinerPool)
	}

	// A zero margin earns nothing and pays nothing.
	r = tRing(t,
		&tOrder{owner: ownerA, sell: assetX, buy: assetY, sellAmt: 100, buyAmt: 100, fee: 10, feeSel: order.MarginSplit, pct: 50},
		&tOrder{owner: ownerB, sell: assetY, buy: assetX, sellAmt: 100, buyAmt: 100, feeSel: order.MarginSplit, pct: 50},
	)
	r.MinerPool = big.NewInt(100)
	PropagateFills(r)
	if err := CalculateFees(r); err != nil {
		t.Fatalf("CalculateFees error: %v", err)
	}
	if a := r.Orders[0]; a.FeeDue.Sign() != 0 || a.FeeRebate.Sign() != 0 {
		t.Fatalf("wrong fees: due %v, rebate %v", a.FeeDue, a.FeeRebate)
	}
	if r.MinerPool.Int64() != 100 {
		t.Fatalf("pool changed to %v", r.MinerPool)
	}
}

func TestCalculateFeesUnsupported(t *testing.T) {
	r := tRing(t,
		&tOrder{owner: ownerA, sell: assetX, buy: assetY, sellAmt: 100, buyAmt: 100},
		&tOrder{owner: ownerB, sell: assetY, buy: assetX, sellAmt: 100, buyAmt: 100, feeSel: 2},
	)
	PropagateFills(r)
	if err := CalculateFees(r); !errors.Is(err, ErrUnsupportedFeeSelection) {
		t.Fatalf("wanted ErrUnsupportedFeeSelection, got %v", err)
	}
}

func TestPlanSettlement(t *testing.T) {
	r := marginRing(t, 20)
	if err := CalculateFees(r); err != nil {
		t.Fatalf("CalculateFees error: %v", err)
	}
	st, err := PlanSettlement(r, feeAsset, 7)
	if err != nil {
		t.Fatalf("PlanSettlement error: %v", err)
	}

	want := []*Transfer{
		{assetY, ownerB, ownerA, big.NewInt(95)},
		{assetY, ownerB, recipient, big.NewInt(5)},
		{feeAsset, ownerB, recipient, big.NewInt(20)},
		{assetX, ownerA, ownerB, big.NewInt(100)},
		{feeAsset, recipient, ownerA, big.NewInt(10)},
	}
	if len(st.Transfers) != len(want) {
		t.Fatalf("wanted %d transfers, got %s", len(want), spew.Sdump(st.Transfers))
	}
	for i, tr := range st.Transfers {
		w := want[i]
		if tr.Asset != w.Asset || tr.From != w.From || tr.To != w.To || tr.Amount.Cmp(w.Amount) != 0 {
			t.Fatalf("transfer %d: wanted %s, got %s", i, w, tr)
		}
	}

	// Conservation: per asset, what owners pay out equals what owners receive
	// plus the fee recipient's net.
	net := make(map[common.Address]map[common.Address]*big.Int)
	credit := func(asset, acct common.Address, amt *big.Int) {
		if net[asset] == nil {
			net[asset] = make(map[common.Address]*big.Int)
		}
		if net[asset][acct] == nil {
			net[asset][acct] = new(big.Int)
		}
		net[asset][acct].Add(net[asset][acct], amt)
	}
	for _, tr := range st.Transfers {
		credit(tr.Asset, tr.From, new(big.Int).Neg(tr.Amount))
		credit(tr.Asset, tr.To, tr.Amount)
	}
	for asset, accts := range net {
		sum := new(big.Int)
		for _, v := range accts {
			sum.Add(sum, v)
		}
		if sum.Sign() != 0 {
			t.Fatalf("asset %s not conserved: %s", asset.Hex(), spew.Sdump(accts))
		}
	}
	if v := net[feeAsset][recipient].Int64(); v != 10 {
		t.Fatalf("wanted fee recipient fee asset net 10, got %d", v)
	}

	if len(st.Increments) != 2 || st.Increments[0].Amount.Int64() != 100 || st.Increments[1].Amount.Int64() != 100 {
		t.Fatalf("wrong increments: %s", spew.Sdump(st.Increments))
	}

	fa := st.Fills[1]
	if fa.RingIndex != 7 || fa.PrevOrder != r.Orders[0].Hash || fa.NextOrder != r.Orders[0].Hash {
		t.Fatalf("wrong fill record: %s", spew.Sdump(fa))
	}
	if fa.AmountSell.Int64() != 100 || fa.AmountBuy.Int64() != 95 || fa.FeeRebate.Int64() != 10 || fa.Fee.Sign() != 0 {
		t.Fatalf("wrong fill amounts: %s", spew.Sdump(fa))
	}
	if fa.ID != NewFillID(r.Hash, r.Orders[1].Hash) || fa.ID == st.Fills[0].ID {
		t.Fatalf("wrong fill ID %s", fa.ID)
	}
}

func TestPlanSettlementBuyCapped(t *testing.T) {
	r := tRing(t,
		&tOrder{owner: ownerA, sell: assetX, buy: assetY, sellAmt: 200, buyAmt: 100, rateSell: 100, rateBuy: 100, capped: true},
		&tOrder{owner: ownerB, sell: assetY, buy: assetX, sellAmt: 300, buyAmt: 300},
	)
	PropagateFills(r)
	if err := CalculateFees(r); err != nil {
		t.Fatalf("CalculateFees error: %v", err)
	}
	// Make the buy-capped order appear to have received less than its fill.
	r.Orders[1].Fill = big.NewInt(60)
	st, err := PlanSettlement(r, feeAsset, 0)
	if err != nil {
		t.Fatalf("PlanSettlement error: %v", err)
	}
	if inc := st.Increments[0].Amount.Int64(); inc != 60 {
		t.Fatalf("buy-capped order should be credited its received amount 60, got %d", inc)
	}
	if inc := st.Increments[1].Amount.Int64(); inc != 60 {
		t.Fatalf("wanted sell-side increment 60, got %d", inc)
	}
}

func TestPlanSettlementInvariant(t *testing.T) {
	r := marginRing(t, 20)
	if err := CalculateFees(r); err != nil {
		t.Fatalf("CalculateFees error: %v", err)
	}
	r.Orders[1].BuySplit = big.NewInt(101)
	if _, err := PlanSettlement(r, feeAsset, 0); !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("wanted ErrInvariantViolation, got %v", err)
	}
}
