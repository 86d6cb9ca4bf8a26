package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBeingEarlyScoreBounds(t *testing.T) {
	best := BeingEarlyScore(BuyContext{WalletRank: 0, TotalBuyers: 100, MarketCapAtBuy: 0, BuyValueUSD: 100, Volume24hUSD: 100})
	assert.InDelta(t, 100, best, 1e-9)

	worst := BeingEarlyScore(BuyContext{WalletRank: 99, TotalBuyers: 100, MarketCapAtBuy: 5_000_000, BuyValueUSD: 0, Volume24hUSD: 1000})
	assert.GreaterOrEqual(t, worst, 0.0)
	assert.Less(t, worst, 1.0)
}

func TestBeingEarlyScoreHandlesZeroVolume(t *testing.T) {
	score := BeingEarlyScore(BuyContext{WalletRank: 0, TotalBuyers: 1, MarketCapAtBuy: 0, BuyValueUSD: 50, Volume24hUSD: 0})
	assert.InDelta(t, 80, score, 1e-9) // rank+mcap components only; volume_participation=0
}

func TestMedianEarlyScore(t *testing.T) {
	assert.Equal(t, 0.0, MedianEarlyScore(nil))
	assert.InDelta(t, 50, MedianEarlyScore([]float64{10, 50, 90}), 1e-9)
	assert.InDelta(t, 45, MedianEarlyScore([]float64{10, 40, 50, 90}), 1e-9)
}

func TestPercentileRanksOrdering(t *testing.T) {
	ranks := PercentileRanks([]WalletMetric{
		{Wallet: "low", Value: 1},
		{Wallet: "mid", Value: 5},
		{Wallet: "high", Value: 10},
	})
	assert.Less(t, ranks["low"], ranks["mid"])
	assert.Less(t, ranks["mid"], ranks["high"])
	assert.Equal(t, 0.0, ranks["low"])
	assert.Equal(t, 100.0, ranks["high"])
}

func TestPercentileRanksSingleWallet(t *testing.T) {
	ranks := PercentileRanks([]WalletMetric{{Wallet: "solo", Value: 42}})
	assert.Equal(t, 0.0, ranks["solo"])
}

func TestCompositeScoreClampedTo100(t *testing.T) {
	s := CompositeScore([3]float64{0.3, 0.3, 0.4}, 100, 100, 100)
	assert.InDelta(t, 100, s, 1e-9)
}
