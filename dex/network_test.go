// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package dex

import "testing"

func TestNetworkString(t *testing.T) {
	for net, want := range map[Network]string{
		Mainnet:     "mainnet",
		Testnet:     "testnet",
		Simnet:      "simnet",
		Network(99): "",
	} {
		if net.String() != want {
			t.Fatalf("Network(%d).String() = %q, want %q", net, net.String(), want)
		}
	}
}
