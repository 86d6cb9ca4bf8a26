package analytics

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/coinwatch/confluence/internal/chains"
	"github.com/coinwatch/confluence/internal/domain"
)

// BuyContext carries everything needed to score a single buy, per spec.md
// §4.5's formula: rank among the token's buyers, the token's market cap
// estimate at that moment, and the buy's share of 24h volume.
type BuyContext struct {
	WalletRank     int     // 0-based rank among observed buyers of this token
	TotalBuyers    int     // total distinct buyers observed for this token
	MarketCapAtBuy float64
	BuyValueUSD    float64
	Volume24hUSD   float64
}

// clip01 bounds x to [0, 1].
func clip01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// BeingEarlyScore scores a single buy in [0, 100]:
//
//	40*(1-rank_pct) + 40*clip((1e6-mcap_at_buy)/1e6, 0, 1) + 20*volume_participation
func BeingEarlyScore(ctx BuyContext) float64 {
	rankPct := 0.0
	if ctx.TotalBuyers > 0 {
		rankPct = float64(ctx.WalletRank) / float64(ctx.TotalBuyers)
	}

	mcapComponent := clip01((1_000_000 - ctx.MarketCapAtBuy) / 1_000_000)

	volumeParticipation := 0.0
	if ctx.Volume24hUSD > 0 {
		volumeParticipation = clip01(ctx.BuyValueUSD / ctx.Volume24hUSD)
	}

	score := 40*(1-rankPct) + 40*mcapComponent + 20*volumeParticipation
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// MedianEarlyScore reduces a wallet's per-buy scores to the single value
// reported on WalletStats30D, per spec.md §3 ("the reported score is the
// median over the wallet's buys in the 30-day window").
func MedianEarlyScore(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	sorted := make([]float64, len(scores))
	copy(sorted, scores)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	// Even count: the mean of the two middle values.
	return stat.Mean(sorted[n/2-1:n/2+1], nil)
}

// RankBuyers orders the distinct buyers of a token by their first observed
// buy timestamp (earliest = rank 0) and returns each wallet's rank alongside
// the total distinct buyer count, the inputs rank_pct needs.
func RankBuyers(tokenTrades []domain.Trade) (rank map[string]int, totalBuyers int) {
	firstBuyAt := make(map[string]time.Time)
	for _, tr := range tokenTrades {
		if tr.Side != domain.SideBuy {
			continue
		}
		if existing, ok := firstBuyAt[tr.Wallet]; !ok || tr.Timestamp.Before(existing) {
			firstBuyAt[tr.Wallet] = tr.Timestamp
		}
	}

	wallets := make([]string, 0, len(firstBuyAt))
	for w := range firstBuyAt {
		wallets = append(wallets, w)
	}
	sort.Slice(wallets, func(i, j int) bool { return firstBuyAt[wallets[i]].Before(firstBuyAt[wallets[j]]) })

	rank = make(map[string]int, len(wallets))
	for i, w := range wallets {
		rank[w] = i
	}
	return rank, len(wallets)
}

// BuyScoresForWallet scores every one of wallet's buys within tokenTrades
// (all buyers of one token) against mcapAtBuy/volume24h, returning the raw
// per-buy scores MedianEarlyScore reduces to the WalletStats30D value.
func BuyScoresForWallet(wallet string, tokenTrades []domain.Trade, marketCapEstimate, volume24hUSD float64) []float64 {
	rank, total := RankBuyers(tokenTrades)
	if total == 0 {
		return nil
	}

	var scores []float64
	for _, tr := range tokenTrades {
		if tr.Side != domain.SideBuy || tr.Wallet != wallet {
			continue
		}
		scores = append(scores, BeingEarlyScore(BuyContext{
			WalletRank:     rank[wallet],
			TotalBuyers:    total,
			MarketCapAtBuy: marketCapEstimate,
			BuyValueUSD:    tr.ValueUSD,
			Volume24hUSD:   volume24hUSD,
		}))
	}
	return scores
}

// WalletMetric is one wallet's raw value for a composite-score input
// dimension (unrealized PnL, trade count, or early-score median).
type WalletMetric struct {
	Wallet string
	Value  float64
}

// PercentileRanks computes each wallet's empirical percentile rank (0-100)
// among the supplied population, per spec.md §4.7's P(x) definition: a
// wallet's position in ascending value order divided by n-1, scaled to
// [0, 100]. Ties share the mean position of their tied group; a population
// of one ranks 0.
func PercentileRanks(metrics []WalletMetric) map[string]float64 {
	ranks := make(map[string]float64, len(metrics))
	if len(metrics) == 0 {
		return ranks
	}
	sorted := make([]WalletMetric, len(metrics))
	copy(sorted, metrics)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Value < sorted[j].Value })

	n := float64(len(sorted))
	for i, m := range sorted {
		// Position-based rank: the tied group's mean index over n-1, scaled
		// to [0, 100]. Ties at the same value share a rank.
		lo := i
		for lo > 0 && sorted[lo-1].Value == m.Value {
			lo--
		}
		hi := i
		for hi < len(sorted)-1 && sorted[hi+1].Value == m.Value {
			hi++
		}
		rank := (float64(lo+hi) / 2.0) / (n - 1)
		if n == 1 {
			rank = 0
		}
		ranks[m.Wallet] = clip01(rank) * 100
	}
	return ranks
}

// CompositeScore blends the three percentile ranks per spec.md §4.7:
//
//	S = w_pnl*P(unrealized_pnl) + w_act*P(trade_count) + w_early*P(early_score_median)
func CompositeScore(weights [3]float64, pnlPct, actPct, earlyPct float64) float64 {
	score := weights[0]*pnlPct + weights[1]*actPct + weights[2]*earlyPct
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// BestTradeMultipleFor is a convenience wrapper combining FIFO matching with
// BestTradeMultiple, used by the stats roller when it already has a wallet's
// full trade history in hand.
func BestTradeMultipleFor(chain chains.ID, wallet, token string, trades []domain.Trade) float64 {
	_, matches := ComputeFIFO(chain, wallet, token, trades)
	return BestTradeMultiple(matches)
}
