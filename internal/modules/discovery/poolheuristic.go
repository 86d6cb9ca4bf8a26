// Package discovery implements C3's DEX-swap recognition over raw transfer
// streams, shared with C8's wallet monitor (spec.md §4.3/§4.8 both apply the
// same pool heuristic).
package discovery

import (
	"github.com/coinwatch/confluence/internal/adapters"
	"github.com/coinwatch/confluence/internal/domain"
)

// ClassifiedTrade is a Transfer that survived the pool heuristic, tagged with
// the wallet-side it belongs to and the resolved buy/sell direction.
type ClassifiedTrade struct {
	Transfer adapters.Transfer
	Side     domain.Side
	Wallet   string // the counterparty address, not the pool
}

// ClassifyTokenCentric runs spec.md §4.3's pool-detection heuristic over a
// token-centric transfer batch (used by C3, which has no single wallet of
// interest): addresses sending the token more than threshold times within
// the batch are treated as pools; a transfer from a pool is a buy for its
// recipient, and a transfer to a pool is a sell for its sender (the
// Discoverer keeps only the buys). Transfers matching neither shape are
// discarded.
func ClassifyTokenCentric(transfers []adapters.Transfer, threshold int) []ClassifiedTrade {
	sendCounts := tallySendCounts(transfers)

	var out []ClassifiedTrade
	for _, tr := range transfers {
		switch {
		case sendCounts[tr.From] > threshold:
			// A is a pool: A -> B is a buy for B.
			out = append(out, ClassifiedTrade{Transfer: tr, Side: domain.SideBuy, Wallet: tr.To})
		case sendCounts[tr.To] > threshold:
			// B is a pool: A -> B is a sell for A.
			out = append(out, ClassifiedTrade{Transfer: tr, Side: domain.SideSell, Wallet: tr.From})
		default:
			// Neither endpoint is a recognized pool: routing hop, internal
			// transfer, or airdrop. Discarded per spec.md §4.3 step 5.
		}
	}
	return out
}

// ClassifyWalletCentric runs the same heuristic for C8's per-wallet polling,
// where dir pins which leg (incoming=buy, outgoing=sell) is being evaluated
// and wallet is already known, so only the pool-address shape needs checking.
func ClassifyWalletCentric(wallet string, dir adapters.Direction, transfers []adapters.Transfer, threshold int) []ClassifiedTrade {
	sendCounts := tallySendCounts(transfers)

	var out []ClassifiedTrade
	for _, tr := range transfers {
		switch dir {
		case adapters.DirectionIn:
			if tr.To != wallet {
				continue
			}
			if sendCounts[tr.From] > threshold {
				out = append(out, ClassifiedTrade{Transfer: tr, Side: domain.SideBuy, Wallet: wallet})
			}
		case adapters.DirectionOut:
			if tr.From != wallet {
				continue
			}
			if sendCounts[tr.To] > threshold {
				out = append(out, ClassifiedTrade{Transfer: tr, Side: domain.SideSell, Wallet: wallet})
			}
		}
	}
	return out
}

// tallySendCounts counts, per address, how many distinct outgoing transfers
// of the token it made within the batch (spec.md §4.3 step 2).
func tallySendCounts(transfers []adapters.Transfer) map[string]int {
	counts := make(map[string]int, len(transfers))
	for _, tr := range transfers {
		counts[tr.From]++
	}
	return counts
}
