// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package order

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	decredecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// compactSigMagicOffset is the recovery code offset used by both Ethereum's v
// value and the compact signature header.
const compactSigMagicOffset = 27

// ErrBadSignature is returned for signatures that cannot be decoded or
// recovered.
var ErrBadSignature = errors.New("bad signature")

// Signature is an Ethereum-style recoverable signature. V is 27 or 28.
type Signature struct {
	V uint8
	R common.Hash
	S common.Hash
}

// compact serializes the signature in the [header || R || S] format expected
// by ecdsa.RecoverCompact.
func (sig Signature) compact() []byte {
	b := make([]byte, 65)
	b[0] = sig.V
	copy(b[1:33], sig.R[:])
	copy(b[33:], sig.S[:])
	return b
}

// Recover returns the address that signed the personal-message digest of the
// hash, i.e. keccak256("\x19Ethereum Signed Message:\n32" || hash).
func Recover(hash common.Hash, sig Signature) (common.Address, error) {
	if sig.V != compactSigMagicOffset && sig.V != compactSigMagicOffset+1 {
		return common.Address{}, fmt.Errorf("%w: invalid recovery value %d", ErrBadSignature, sig.V)
	}
	pubKey, _, err := decredecdsa.RecoverCompact(sig.compact(), accounts.TextHash(hash[:]))
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	return PubKeyAddress(pubKey), nil
}

// PubKeyAddress derives the Ethereum-style address of a secp256k1 public key.
func PubKeyAddress(pubKey *secp256k1.PublicKey) common.Address {
	return crypto.PubkeyToAddress(*pubKey.ToECDSA())
}

// Sign signs the personal-message digest of the hash with the private key.
func Sign(hash common.Hash, key *ecdsa.PrivateKey) (Signature, error) {
	sigB, err := crypto.Sign(accounts.TextHash(hash[:]), key)
	if err != nil {
		return Signature{}, err
	}
	var sig Signature
	copy(sig.R[:], sigB[:32])
	copy(sig.S[:], sigB[32:64])
	sig.V = sigB[64] + compactSigMagicOffset
	return sig, nil
}
