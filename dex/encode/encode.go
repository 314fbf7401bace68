// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

// Package encode provides the byte encodings used for keys and values in the
// key-value ledger drivers.
package encode

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"
)

var (
	// IntCoder is the ledger-wide integer byte-encoding order. IntCoder must be
	// BigEndian so that keys sort numerically.
	IntCoder = binary.BigEndian
)

// Uint256Size is the length of an encoded 256-bit amount.
const Uint256Size = 32

// Uint64Bytes converts the uint64 to a length-8, big-endian encoded byte slice.
func Uint64Bytes(i uint64) []byte {
	b := make([]byte, 8)
	IntCoder.PutUint64(b, i)
	return b
}

// BytesToUint64 converts the length-8, big-endian encoded byte slice to a
// uint64. A nil slice decodes to zero.
func BytesToUint64(b []byte) (uint64, error) {
	if len(b) == 0 {
		return 0, nil
	}
	if len(b) != 8 {
		return 0, fmt.Errorf("invalid uint64 encoding length %d", len(b))
	}
	return IntCoder.Uint64(b), nil
}

// Uint256Bytes converts the amount to a length-32, big-endian encoded byte
// slice. The amount is not modified.
func Uint256Bytes(x *big.Int) []byte {
	return math.U256Bytes(new(big.Int).Set(x))
}

// BytesToUint256 converts the length-32, big-endian encoded byte slice to an
// amount. A nil slice decodes to zero.
func BytesToUint256(b []byte) (*big.Int, error) {
	if len(b) == 0 {
		return new(big.Int), nil
	}
	if len(b) != Uint256Size {
		return nil, fmt.Errorf("invalid amount encoding length %d", len(b))
	}
	return new(big.Int).SetBytes(b), nil
}

// CopySlice makes a copy of the slice.
func CopySlice(b []byte) []byte {
	newB := make([]byte, len(b))
	copy(newB, b)
	return newB
}

// RandomBytes returns a byte slice with the specified length of random bytes.
func RandomBytes(len int) []byte {
	bytes := make([]byte, len)
	_, err := rand.Read(bytes)
	if err != nil {
		panic("error reading random bytes: " + err.Error())
	}
	return bytes
}
