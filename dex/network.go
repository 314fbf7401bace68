// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package dex

// Network identifies the network a ringdex instance serves. Data and log
// directories are namespaced by network.
type Network uint8

const (
	Mainnet Network = iota
	Testnet
	Simnet
)

// String returns the string representation of a Network.
func (n Network) String() string {
	switch n {
	case Mainnet:
		return "mainnet"
	case Testnet:
		return "testnet"
	case Simnet:
		return "simnet"
	}
	return ""
}
