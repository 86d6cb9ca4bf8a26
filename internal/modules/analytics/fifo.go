// Package analytics implements C5: pure functions over a wallet's trade
// history — FIFO realized/unrealized PnL, the Being-Early score, and bot
// heuristics. Grounded on the FIFO cost-basis pattern used across the
// retrieved pack's PnL engines (sorted-by-timestamp lot queue, earliest-lot
// matched first).
package analytics

import (
	"sort"

	"github.com/coinwatch/confluence/internal/chains"
	"github.com/coinwatch/confluence/internal/domain"
)

// PnLResult is the outcome of running FIFO accounting over one wallet's
// trades on a single token.
type PnLResult struct {
	Position         domain.Position
	ZeroCostWarnings int // sells matched against missing buy history
}

// MatchedSell is one FIFO match (a sell consuming part or all of a lot),
// retained separately from Position for callers that need per-match detail
// (best trade multiple) without bloating Position itself.
type MatchedSell struct {
	BuyPrice  float64
	SellPrice float64
	Qty       float64
}

// PriceLookup resolves the current USD price of a token for unrealized PnL.
// Returns ok=false when no price is available (spec.md §4.4/§4.5): downstream
// treats that lot's unrealized contribution as zero, never fabricating profit.
type PriceLookup func(token string) (price float64, ok bool)

// ComputeFIFO runs the FIFO cost-basis algorithm of spec.md §4.5 over trades,
// which must all share (chain, wallet, token). Trades are sorted by
// (timestamp asc, tx_hash asc) before processing, per spec.md §5's ordering
// guarantee, so callers do not need to pre-sort.
func ComputeFIFO(chain chains.ID, wallet, token string, trades []domain.Trade) (PnLResult, []MatchedSell) {
	sorted := sortedByTimeThenHash(trades)

	pos := domain.Position{Chain: chain, Wallet: wallet, Token: token}
	var matches []MatchedSell
	var zeroCostWarnings int

	for _, tr := range sorted {
		switch tr.Side {
		case domain.SideBuy:
			if tr.Quantity <= 0 {
				continue
			}
			pos.Lots = append(pos.Lots, domain.Lot{
				QtyRemaining: tr.Quantity,
				UnitCostUSD:  tr.UnitPriceUSD,
				AcquiredAt:   tr.Timestamp,
			})

		case domain.SideSell:
			if tr.Quantity <= 0 {
				continue
			}
			remaining := tr.Quantity
			for remaining > 0 && len(pos.Lots) > 0 {
				lot := &pos.Lots[0]
				matched := lot.QtyRemaining
				if matched > remaining {
					matched = remaining
				}
				pos.RealizedPnLUSD += matched * (tr.UnitPriceUSD - lot.UnitCostUSD)
				matches = append(matches, MatchedSell{BuyPrice: lot.UnitCostUSD, SellPrice: tr.UnitPriceUSD, Qty: matched})
				lot.QtyRemaining -= matched
				remaining -= matched
				if lot.QtyRemaining <= 1e-12 {
					pos.Lots = pos.Lots[1:]
				}
			}
			if remaining > 1e-12 {
				// Excess sell quantity beyond available lots: real sells can
				// precede observed buys when history is partial. The excess
				// is matched at zero cost with a warning, per spec.md §3.
				pos.RealizedPnLUSD += remaining * tr.UnitPriceUSD
				pos.ZeroCostFallback += remaining
				zeroCostWarnings++
			}
		}
	}

	return PnLResult{Position: pos, ZeroCostWarnings: zeroCostWarnings}, matches
}

func sortedByTimeThenHash(trades []domain.Trade) []domain.Trade {
	sorted := make([]domain.Trade, len(trades))
	copy(sorted, trades)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].Timestamp.Equal(sorted[j].Timestamp) {
			return sorted[i].Timestamp.Before(sorted[j].Timestamp)
		}
		return sorted[i].TxHash < sorted[j].TxHash
	})
	return sorted
}

// UnrealizedPnL sums qty_remaining * (current_price - lot_cost) across open
// lots, per spec.md §4.5. If price is unavailable, contribution is 0 (never
// fabricated), matching spec.md §4.4's PriceMissing handling.
func UnrealizedPnL(pos domain.Position, price PriceLookup) float64 {
	current, ok := price(pos.Token)
	if !ok {
		return 0
	}
	var total float64
	for _, lot := range pos.Lots {
		total += lot.QtyRemaining * (current - lot.UnitCostUSD)
	}
	return total
}

// BestTradeMultiple returns the maximum sell_price/paired_buy_price ratio
// across closed lots. Per spec.md §9's Open Question, this uses realized
// matches only (not open lots' paper multiples) — the documented default.
func BestTradeMultiple(sells []MatchedSell) float64 {
	var best float64
	for _, m := range sells {
		if m.BuyPrice <= 0 {
			continue
		}
		if multiple := m.SellPrice / m.BuyPrice; multiple > best {
			best = multiple
		}
	}
	return best
}
