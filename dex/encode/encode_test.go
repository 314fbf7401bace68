package encode

import (
	"bytes"
	"math/big"
	"testing"
)

func TestUint64Bytes(t *testing.T) {
	for _, v := range []uint64{0, 1, 255, 1 << 40, ^uint64(0)} {
		b := Uint64Bytes(v)
		if len(b) != 8 {
			t.Fatalf("wrong length %d", len(b))
		}
		back, err := BytesToUint64(b)
		if err != nil {
			t.Fatalf("BytesToUint64 error: %v", err)
		}
		if back != v {
			t.Fatalf("wanted %d, got %d", v, back)
		}
	}
	if v, err := BytesToUint64(nil); err != nil || v != 0 {
		t.Fatalf("nil should decode to zero, got %d, %v", v, err)
	}
	if _, err := BytesToUint64([]byte{1, 2}); err == nil {
		t.Fatalf("no error for short encoding")
	}
	// Numeric order is byte order.
	if bytes.Compare(Uint64Bytes(256), Uint64Bytes(255)) <= 0 {
		t.Fatalf("encoding does not sort numerically")
	}
}

func TestUint256Bytes(t *testing.T) {
	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	for _, v := range []*big.Int{big.NewInt(0), big.NewInt(12345), max} {
		orig := new(big.Int).Set(v)
		b := Uint256Bytes(v)
		if v.Cmp(orig) != 0 {
			t.Fatalf("Uint256Bytes modified its argument")
		}
		if len(b) != Uint256Size {
			t.Fatalf("wrong length %d", len(b))
		}
		back, err := BytesToUint256(b)
		if err != nil {
			t.Fatalf("BytesToUint256 error: %v", err)
		}
		if back.Cmp(v) != 0 {
			t.Fatalf("wanted %v, got %v", v, back)
		}
	}
	if v, err := BytesToUint256(nil); err != nil || v.Sign() != 0 {
		t.Fatalf("nil should decode to zero, got %v, %v", v, err)
	}
	if _, err := BytesToUint256(make([]byte, 33)); err == nil {
		t.Fatalf("no error for long encoding")
	}
}

func TestCopySlice(t *testing.T) {
	b := RandomBytes(16)
	c := CopySlice(b)
	if !bytes.Equal(b, c) {
		t.Fatalf("copy differs")
	}
	c[0]++
	if b[0] == c[0] {
		t.Fatalf("copy shares memory")
	}
}
