// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

// Package asset provides in-process implementations of the asset registry and
// the ledger that the ring engine settles against.
package asset

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Registry is the set of assets that may be traded.
type Registry struct {
	mtx     sync.RWMutex
	symbols map[common.Address]string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		symbols: make(map[common.Address]string),
	}
}

// Register adds the asset. Registering the zero address or the same address
// twice is an error.
func (r *Registry) Register(addr common.Address, symbol string) error {
	if addr == (common.Address{}) {
		return fmt.Errorf("cannot register the zero address as %q", symbol)
	}
	r.mtx.Lock()
	defer r.mtx.Unlock()
	if sym, dup := r.symbols[addr]; dup {
		return fmt.Errorf("asset %s already registered as %q", addr.Hex(), sym)
	}
	r.symbols[addr] = symbol
	log.Debugf("Registered asset %s (%s)", symbol, addr.Hex())
	return nil
}

// IsRegistered checks if the asset is registered.
func (r *Registry) IsRegistered(addr common.Address) bool {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	_, found := r.symbols[addr]
	return found
}

// Symbol is the registered symbol of the asset, or the address in hex if the
// asset is not registered.
func (r *Registry) Symbol(addr common.Address) string {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	if sym, found := r.symbols[addr]; found {
		return sym
	}
	return addr.Hex()
}
