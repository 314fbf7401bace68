// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package claim

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	minerA = common.HexToAddress("0xf000000000000000000000000000000000000001")
	minerB = common.HexToAddress("0xf000000000000000000000000000000000000002")
)

func TestRingHash(t *testing.T) {
	reg := NewRegistry(0)
	v := []uint8{27, 28, 27}
	rs := []common.Hash{{0x01, 0x0f}, {0x02, 0xf0}, {0xff}}
	ss := []common.Hash{{0x10}, {0x20}, {0xee}}

	want := crypto.Keccak256Hash(
		[]byte{27 ^ 28},
		common.Hash{0x03, 0xff}.Bytes(),
		common.Hash{0x30}.Bytes(),
	)
	if h := reg.RingHash(v, rs, ss); h != want {
		t.Fatalf("wrong ring hash %s, wanted %s", h, want)
	}

	// The miner's signature does not contribute.
	v[2], rs[2], ss[2] = 28, common.Hash{0x01}, common.Hash{0x02}
	if h := reg.RingHash(v, rs, ss); h != want {
		t.Fatalf("ring hash depends on the miner signature")
	}

	// Order does not matter.
	v[0], v[1] = v[1], v[0]
	rs[0], rs[1] = rs[1], rs[0]
	ss[0], ss[1] = ss[1], ss[0]
	if h := reg.RingHash(v, rs, ss); h != want {
		t.Fatalf("ring hash depends on order position")
	}
}

func TestClaims(t *testing.T) {
	now := time.Unix(1700000000, 0)
	reg := NewRegistry(time.Minute)
	reg.now = func() time.Time { return now }
	h := common.Hash{0x01}

	if !reg.CanClaim(h, minerA) || reg.WasPreregistered(h) {
		t.Fatalf("unregistered ring not claimable")
	}
	if err := reg.Submit(h, minerA); err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if !reg.WasPreregistered(h) {
		t.Fatalf("ring not pre-registered")
	}
	if !reg.CanClaim(h, minerA) {
		t.Fatalf("registrant cannot claim")
	}
	if reg.CanClaim(h, minerB) {
		t.Fatalf("other fee recipient can claim")
	}
	if err := reg.Submit(h, minerB); err == nil {
		t.Fatalf("no error for taking over a live registration")
	}
	if err := reg.Submit(h, minerA); err != nil {
		t.Fatalf("re-registration error: %v", err)
	}

	now = now.Add(time.Minute)
	if !reg.CanClaim(h, minerB) {
		t.Fatalf("expired registration still exclusive")
	}
	if err := reg.Submit(h, minerB); err != nil {
		t.Fatalf("Submit after expiry error: %v", err)
	}
	if reg.CanClaim(h, minerA) {
		t.Fatalf("previous registrant can claim")
	}

	now = now.Add(2 * time.Minute)
	if n := reg.Prune(); n != 1 {
		t.Fatalf("wanted 1 pruned, got %d", n)
	}
	if reg.WasPreregistered(h) {
		t.Fatalf("pruned ring still registered")
	}
}
