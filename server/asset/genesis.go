// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package asset

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"decred.org/ringdex/dex/calc"
	"github.com/ethereum/go-ethereum/common"
)

// GenesisAsset is a registered asset in a genesis file.
type GenesisAsset struct {
	Symbol  string         `json:"symbol"`
	Address common.Address `json:"address"`
}

// GenesisBalance is an initial balance in a genesis file. A missing allowance
// lets the engine move the entire balance.
type GenesisBalance struct {
	Asset     common.Address `json:"asset"`
	Owner     common.Address `json:"owner"`
	Amount    *big.Int       `json:"amount"`
	Allowance *big.Int       `json:"allowance,omitempty"`
}

// Genesis is the initial state of a Registry and Book.
type Genesis struct {
	Assets   []*GenesisAsset   `json:"assets"`
	Balances []*GenesisBalance `json:"balances"`
}

// LoadGenesis reads a JSON Genesis from the file.
func LoadGenesis(path string) (*Genesis, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading genesis file: %w", err)
	}
	g := new(Genesis)
	if err := json.Unmarshal(b, g); err != nil {
		return nil, fmt.Errorf("error decoding genesis file %s: %w", path, err)
	}
	return g, nil
}

// Apply registers the genesis assets and credits the genesis balances. Balances
// may be in unregistered assets.
func (g *Genesis) Apply(reg *Registry, book *Book) error {
	for _, a := range g.Assets {
		if err := reg.Register(a.Address, a.Symbol); err != nil {
			return err
		}
	}
	for i, bal := range g.Balances {
		if bal.Amount == nil {
			return fmt.Errorf("genesis balance %d has no amount", i)
		}
		if err := book.Credit(bal.Asset, bal.Owner, bal.Amount); err != nil {
			return fmt.Errorf("genesis balance %d: %w", i, err)
		}
		allowance := bal.Allowance
		if allowance == nil {
			allowance = calc.MaxUint256
		}
		if err := book.Approve(bal.Asset, bal.Owner, allowance); err != nil {
			return fmt.Errorf("genesis balance %d: %w", i, err)
		}
	}
	log.Infof("Loaded %d assets and %d balances", len(g.Assets), len(g.Balances))
	return nil
}
