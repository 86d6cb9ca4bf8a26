// Package chains identifies supported blockchains and normalizes addresses
// per-chain, per spec.md §3 ("address lowercased for EVM chains; native-cased
// for Solana").
package chains

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ID is a chain identifier as used in config's `chains` key and throughout
// the data model's (chain_id, ...) composite identities.
type ID string

const (
	Ethereum ID = "eth"
	Base     ID = "base"
	Arbitrum ID = "arbitrum"
	Solana   ID = "solana"
)

// IsEVM reports whether id identifies an EVM-compatible chain.
func (id ID) IsEVM() bool {
	switch id {
	case Ethereum, Base, Arbitrum:
		return true
	default:
		return false
	}
}

// Valid reports whether id is one of the chains this build recognizes.
func (id ID) Valid() bool {
	switch id {
	case Ethereum, Base, Arbitrum, Solana:
		return true
	default:
		return false
	}
}

// ParseIDs splits a comma-separated config value into chain IDs, rejecting
// anything unrecognized so a typo in CHAINS fails loudly at startup.
func ParseIDs(csv string) ([]ID, error) {
	var out []ID
	for _, raw := range strings.Split(csv, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id := ID(raw)
		if !id.Valid() {
			return nil, fmt.Errorf("unknown chain %q", raw)
		}
		out = append(out, id)
	}
	return out, nil
}

// NormalizeAddress canonicalizes addr for chain: EVM addresses are lowercased
// hex (via go-ethereum's common.Address so malformed hex is rejected early),
// Solana addresses are returned unchanged (base58 is case-sensitive).
func NormalizeAddress(chain ID, addr string) (string, error) {
	if chain.IsEVM() {
		if !common.IsHexAddress(addr) {
			return "", fmt.Errorf("invalid EVM address %q for chain %s", addr, chain)
		}
		return strings.ToLower(common.HexToAddress(addr).Hex()), nil
	}
	if chain == Solana {
		if !isPlausibleBase58(addr) {
			return "", fmt.Errorf("invalid solana address %q", addr)
		}
		return addr, nil
	}
	return "", fmt.Errorf("unsupported chain %q", chain)
}

// isPlausibleBase58 is a cheap shape check (length + alphabet), not a full
// ed25519 public-key validation — good enough to reject garbage input before
// it reaches the store.
func isPlausibleBase58(addr string) bool {
	if len(addr) < 32 || len(addr) > 44 {
		return false
	}
	const alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"
	for _, r := range addr {
		if !strings.ContainsRune(alphabet, r) {
			return false
		}
	}
	return true
}
