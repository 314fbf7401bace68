// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package asset

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"decred.org/ringdex/dex/calc"
	"github.com/ethereum/go-ethereum/common"
)

// ErrInsufficientFunds is returned when a transfer exceeds the sender's
// spendable balance.
var ErrInsufficientFunds = errors.New("insufficient funds")

type account struct {
	balance *big.Int
	// allowance is the part of the balance the engine may move.
	allowance *big.Int
}

// Book tracks balances and engine allowances per asset and owner. It
// implements the engine's ledger transfer interface.
type Book struct {
	mtx      sync.Mutex
	accounts map[common.Address]map[common.Address]*account // asset -> owner
}

// NewBook creates an empty Book.
func NewBook() *Book {
	return &Book{
		accounts: make(map[common.Address]map[common.Address]*account),
	}
}

// acct gets the account, creating it with zero balance and allowance if
// create is set. The mtx must be held.
func (b *Book) acct(asset, owner common.Address, create bool) *account {
	accts, found := b.accounts[asset]
	if !found {
		if !create {
			return nil
		}
		accts = make(map[common.Address]*account)
		b.accounts[asset] = accts
	}
	a, found := accts[owner]
	if !found && create {
		a = &account{balance: new(big.Int), allowance: new(big.Int)}
		accts[owner] = a
	}
	return a
}

// Credit adds to the owner's balance.
func (b *Book) Credit(asset, owner common.Address, amt *big.Int) error {
	if !calc.IsUint256(amt) {
		return fmt.Errorf("invalid credit amount %v", amt)
	}
	b.mtx.Lock()
	defer b.mtx.Unlock()
	a := b.acct(asset, owner, true)
	bal := calc.Add(a.balance, amt)
	if !calc.IsUint256(bal) {
		return fmt.Errorf("balance of %s in %s would overflow", owner.Hex(), asset.Hex())
	}
	a.balance = bal
	return nil
}

// Approve sets the amount of the owner's asset that the engine may move.
func (b *Book) Approve(asset, owner common.Address, allowance *big.Int) error {
	if !calc.IsUint256(allowance) {
		return fmt.Errorf("invalid allowance %v", allowance)
	}
	b.mtx.Lock()
	defer b.mtx.Unlock()
	b.acct(asset, owner, true).allowance = calc.Copy(allowance)
	return nil
}

// Balance is the owner's balance of the asset.
func (b *Book) Balance(asset, owner common.Address) *big.Int {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	if a := b.acct(asset, owner, false); a != nil {
		return calc.Copy(a.balance)
	}
	return new(big.Int)
}

// SpendableBalance is the smaller of the owner's balance and allowance.
func (b *Book) SpendableBalance(_ context.Context, asset, owner common.Address) (*big.Int, error) {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	a := b.acct(asset, owner, false)
	if a == nil {
		return new(big.Int), nil
	}
	return calc.Min(a.balance, a.allowance), nil
}

// Transfer moves amt from one owner to another, spending the sender's
// allowance.
func (b *Book) Transfer(_ context.Context, asset, from, to common.Address, amt *big.Int) error {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	return b.move(asset, from, to, amt, true)
}

// RevertTransfer undoes a Transfer of amt from one owner to another, returning
// the sender's balance and allowance.
func (b *Book) RevertTransfer(_ context.Context, asset, from, to common.Address, amt *big.Int) error {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	if err := b.move(asset, to, from, amt, false); err != nil {
		return err
	}
	a := b.acct(asset, from, true)
	a.allowance = calc.Add(a.allowance, amt)
	return nil
}

// move debits from and credits to. The sender's allowance is spent if
// spendAllowance is set. The mtx must be held.
func (b *Book) move(asset, from, to common.Address, amt *big.Int, spendAllowance bool) error {
	if !calc.IsUint256(amt) {
		return fmt.Errorf("invalid transfer amount %v", amt)
	}
	src := b.acct(asset, from, false)
	if src == nil || src.balance.Cmp(amt) < 0 || (spendAllowance && src.allowance.Cmp(amt) < 0) {
		return fmt.Errorf("%w: %s cannot send %v of %s", ErrInsufficientFunds, from.Hex(), amt, asset.Hex())
	}
	if from == to {
		return nil
	}
	dst := b.acct(asset, to, true)
	newBal := calc.Add(dst.balance, amt)
	if !calc.IsUint256(newBal) {
		return fmt.Errorf("balance of %s in %s would overflow", to.Hex(), asset.Hex())
	}
	src.balance = calc.Sub(src.balance, amt)
	if spendAllowance {
		src.allowance = calc.Sub(src.allowance, amt)
	}
	dst.balance = newBal
	log.Tracef("Moved %v of %s from %s to %s", amt, asset.Hex(), from.Hex(), to.Hex())
	return nil
}
