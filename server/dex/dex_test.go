// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package dex

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"decred.org/ringdex/dex"
	"decred.org/ringdex/dex/order"
	"decred.org/ringdex/server/asset"
	"decred.org/ringdex/server/db"
	"decred.org/ringdex/server/db/driver/bolt"
	"decred.org/ringdex/server/engine"
	"decred.org/ringdex/server/ring"
	"github.com/davecgh/go-spew/spew"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	engineAddr = common.HexToAddress("0xe000000000000000000000000000000000000001")
	assetX     = common.HexToAddress("0x1000000000000000000000000000000000000001")
	assetY     = common.HexToAddress("0x1000000000000000000000000000000000000002")
	feeAsset   = common.HexToAddress("0x1000000000000000000000000000000000000004")

	tNow = time.Unix(1_700_000_000, 0)
)

func TestMain(m *testing.M) {
	logger := dex.StdOutLogger("DEX_TEST", dex.LevelTrace)
	UseLogger(logger)
	engine.UseLogger(logger)
	db.UseLogger(logger)
	os.Exit(m.Run())
}

type tUser struct {
	key  *ecdsa.PrivateKey
	addr common.Address
}

func newTUser(t *testing.T) *tUser {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey error: %v", err)
	}
	return &tUser{key: key, addr: crypto.PubkeyToAddress(key.PublicKey)}
}

func sign(t *testing.T, h common.Hash, u *tUser) order.Signature {
	t.Helper()
	sig, err := order.Sign(h, u.key)
	if err != nil {
		t.Fatalf("Sign error: %v", err)
	}
	return sig
}

func newTDEX(t *testing.T, genesis *asset.Genesis) *DEX {
	t.Helper()
	dm, err := NewDEX(&DexConf{
		Network: dex.Simnet,
		DBConf: &DBConf{
			Driver: bolt.DriverName,
			Config: &bolt.Config{Path: filepath.Join(t.TempDir(), "ledger.db")},
		},
		Genesis:       genesis,
		EngineAddress: engineAddr,
		FeeAsset:      feeAsset,
		Now:           func() time.Time { return tNow },
	})
	if err != nil {
		t.Fatalf("NewDEX error: %v", err)
	}
	t.Cleanup(dm.Stop)
	return dm
}

func newOrder(owner *tUser, sell, buy common.Address, amt int64, salt int64) *order.Order {
	return &order.Order{
		Owner:      owner.addr,
		SellAsset:  sell,
		BuyAsset:   buy,
		SellAmount: big.NewInt(amt),
		BuyAmount:  big.NewInt(amt),
		CreatedAt:  uint64(tNow.Unix()) - 100,
		TimeToLive: 3600,
		Salt:       big.NewInt(salt),
		Fee:        new(big.Int),
	}
}

// swapRing is a signed two-order ring exchanging amt of X and Y between a and
// b without fees. It returns the submission and a's order.
func swapRing(t *testing.T, dm *DEX, a, b, miner *tUser, amt int64) (*engine.Submission, *order.Order) {
	t.Helper()
	ordA := newOrder(a, assetX, assetY, amt, 1)
	ordB := newOrder(b, assetY, assetX, amt, 2)
	sub := &engine.Submission{Miner: miner.addr, FeeRecipient: miner.addr}
	for _, o := range []struct {
		user *tUser
		ord  *order.Order
	}{{a, ordA}, {b, ordB}} {
		ord := o.ord
		sig := sign(t, dm.Engine().OrderHash(ord), o.user)
		sub.Addresses = append(sub.Addresses, [2]common.Address{ord.Owner, ord.SellAsset})
		sub.UintArgs = append(sub.UintArgs, []*big.Int{ord.SellAmount, ord.BuyAmount,
			new(big.Int).SetUint64(ord.CreatedAt), new(big.Int).SetUint64(ord.TimeToLive),
			ord.Salt, ord.Fee, ord.SellAmount})
		sub.Uint8Args = append(sub.Uint8Args, []uint8{0, uint8(order.FeeAsset)})
		sub.BuyCapped = append(sub.BuyCapped, false)
		sub.V = append(sub.V, sig.V)
		sub.R = append(sub.R, sig.R)
		sub.S = append(sub.S, sig.S)
	}
	// The ring hash is computed with a blank miner signature.
	sub.V, sub.R, sub.S = append(sub.V, 0), append(sub.R, common.Hash{}), append(sub.S, common.Hash{})
	sig := sign(t, dm.Claims().RingHash(sub.V, sub.R, sub.S), miner)
	sub.V[2], sub.R[2], sub.S[2] = sig.V, sig.R, sig.S
	return sub, ordA
}

func genesisFor(a, b *tUser, amt int64) *asset.Genesis {
	return &asset.Genesis{
		Assets: []*asset.GenesisAsset{
			{Symbol: "x", Address: assetX},
			{Symbol: "y", Address: assetY},
			{Symbol: "fee", Address: feeAsset},
		},
		Balances: []*asset.GenesisBalance{
			{Asset: assetX, Owner: a.addr, Amount: big.NewInt(amt)},
			{Asset: assetY, Owner: b.addr, Amount: big.NewInt(amt)},
		},
	}
}

func TestNewDEX(t *testing.T) {
	if _, err := NewDEX(&DexConf{Network: dex.Simnet}); err == nil {
		t.Fatal("no error without a database configuration")
	}
	_, err := NewDEX(&DexConf{
		Network: dex.Mainnet,
		DBConf:  &DBConf{Driver: bolt.DriverName},
	})
	if err == nil {
		t.Fatal("no error for a zero engine address on mainnet")
	}
	_, err = NewDEX(&DexConf{
		Network:  dex.Simnet,
		DBConf:   &DBConf{Driver: "nope"},
		FeeAsset: feeAsset,
	})
	if err == nil {
		t.Fatal("no error for an unknown driver")
	}
}

func TestRunBatch(t *testing.T) {
	a, b, miner := newTUser(t), newTUser(t), newTUser(t)
	dm := newTDEX(t, genesisFor(a, b, 1000))

	sub, ordA := swapRing(t, dm, a, b, miner, 600)
	ringHash := dm.Claims().RingHash(sub.V, sub.R, sub.S)
	hA := dm.Engine().OrderHash(ordA)

	batch := &Batch{Ops: []*Op{
		{Register: &Registration{RingHash: ringHash, FeeRecipient: miner.addr}},
		{Ring: sub},
		// Both orders are now fully filled.
		{Ring: sub},
		{Cancel: &Cancel{Sender: a.addr, Order: ordA, Amount: big.NewInt(100), Signature: sign(t, hA, a)}},
		{Cutoff: &Cutoff{Sender: b.addr}},
		// Cutoffs only increase.
		{Cutoff: &Cutoff{Sender: b.addr, Cutoff: 5}},
		{},
	}}

	results, err := dm.RunBatch(context.Background(), batch)
	if err != nil {
		t.Fatalf("RunBatch error: %v", err)
	}
	if len(results) != len(batch.Ops) {
		t.Fatalf("wanted %d results, got %d", len(batch.Ops), len(results))
	}
	for i, res := range results {
		if res.Index != i {
			t.Fatalf("result %d has index %d", i, res.Index)
		}
	}

	if results[0].Error != "" || results[0].Registered == nil {
		t.Fatalf("registration failed: %s", spew.Sdump(results[0]))
	}
	r := results[1].Ring
	if r == nil || r.RingIndex != 0 || r.RingHash != ringHash || !r.Mined.Preregistered {
		t.Fatalf("wrong ring result: %s", spew.Sdump(results[1]))
	}
	if !errors.Is(results[2].err, ring.ErrOrderFullyConsumed) {
		t.Fatalf("wrong error for a re-submitted ring: %v", results[2].err)
	}
	if oc := results[3].Cancelled; oc == nil || oc.Cancelled.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("wrong cancel result: %s", spew.Sdump(results[3]))
	}
	if cc := results[4].Cutoff; cc == nil || cc.Cutoff != uint64(tNow.Unix()) {
		t.Fatalf("wrong cutoff result: %s", spew.Sdump(results[4]))
	}
	if !errors.Is(results[5].err, ring.ErrNonIncreasingCutoff) {
		t.Fatalf("wrong error for a lower cutoff: %v", results[5].err)
	}
	if results[6].Error == "" {
		t.Fatal("no error for an empty operation")
	}

	book := dm.Book()
	for _, bal := range []struct {
		asset, owner common.Address
		want         int64
	}{
		{assetX, a.addr, 400},
		{assetX, b.addr, 600},
		{assetY, a.addr, 600},
		{assetY, b.addr, 400},
	} {
		if got := book.Balance(bal.asset, bal.owner); got.Cmp(big.NewInt(bal.want)) != 0 {
			t.Fatalf("wanted balance %d, got %v", bal.want, got)
		}
	}

	filled, err := dm.Engine().Filled(hA)
	if err != nil {
		t.Fatalf("Filled error: %v", err)
	}
	if filled.Cmp(big.NewInt(600)) != 0 {
		t.Fatalf("wanted filled 600, got %v", filled)
	}
	count, err := dm.Engine().RingCount()
	if err != nil || count != 1 {
		t.Fatalf("wanted ring count 1, got %d, %v", count, err)
	}
}

func TestRunBatchCanceled(t *testing.T) {
	a, b := newTUser(t), newTUser(t)
	dm := newTDEX(t, genesisFor(a, b, 1000))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results, err := dm.RunBatch(ctx, &Batch{Ops: []*Op{{Cutoff: &Cutoff{Sender: a.addr}}}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("wanted context.Canceled, got %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("wanted no results, got %d", len(results))
	}
}

func TestLoadBatch(t *testing.T) {
	owner := common.HexToAddress("0x2000000000000000000000000000000000000001")
	raw := `{"ops": [
		{"cutoff": {"sender": "` + owner.Hex() + `", "cutoff": 12}},
		{"cancel": {"sender": "` + owner.Hex() + `", "amount": 5,
			"order": {"owner": "` + owner.Hex() + `", "sellAmount": 10, "buyAmount": 20, "createdAt": 7},
			"signature": {"v": 27, "r": "` + common.Hash{1}.Hex() + `", "s": "` + common.Hash{2}.Hex() + `"}}}
	]}`
	path := filepath.Join(t.TempDir(), "batch.json")
	if err := os.WriteFile(path, []byte(raw), 0600); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	batch, err := LoadBatch(path)
	if err != nil {
		t.Fatalf("LoadBatch error: %v", err)
	}
	if len(batch.Ops) != 2 {
		t.Fatalf("wanted 2 operations, got %d", len(batch.Ops))
	}
	if c := batch.Ops[0].Cutoff; c == nil || c.Sender != owner || c.Cutoff != 12 {
		t.Fatalf("wrong cutoff: %s", spew.Sdump(batch.Ops[0]))
	}
	c := batch.Ops[1].Cancel
	if c == nil || c.Amount.Int64() != 5 || c.Order.SellAmount.Int64() != 10 ||
		c.Order.BuyAmount.Int64() != 20 || c.Order.CreatedAt != 7 || c.Signature.V != 27 {
		t.Fatalf("wrong cancel: %s", spew.Sdump(batch.Ops[1]))
	}

	if _, err := LoadBatch(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("no error for a missing file")
	}
}
