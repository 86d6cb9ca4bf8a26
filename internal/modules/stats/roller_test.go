package stats

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinwatch/confluence/internal/chains"
	"github.com/coinwatch/confluence/internal/domain"
)

type fakeStatsStore struct {
	wallets []domain.WalletKey
	trades  map[string][]domain.Trade // keyed by wallet address
	token   domain.Token
	puts    []domain.WalletStats30D
}

func (s *fakeStatsStore) WalletsObservedSince(ctx context.Context, since time.Time) ([]domain.WalletKey, error) {
	return s.wallets, nil
}
func (s *fakeStatsStore) TradesForWallet(ctx context.Context, chain chains.ID, wallet string, since time.Time) ([]domain.Trade, error) {
	return s.trades[wallet], nil
}
func (s *fakeStatsStore) TradesForToken(ctx context.Context, chain chains.ID, token string, since time.Time) ([]domain.Trade, error) {
	var out []domain.Trade
	for _, ts := range s.trades {
		for _, tr := range ts {
			if tr.Token == token {
				out = append(out, tr)
			}
		}
	}
	return out, nil
}
func (s *fakeStatsStore) GetToken(ctx context.Context, key domain.TokenKey) (domain.Token, bool, error) {
	return s.token, true, nil
}
func (s *fakeStatsStore) PutWalletStats(ctx context.Context, st domain.WalletStats30D) error {
	s.puts = append(s.puts, st)
	return nil
}

func TestRollerComputesScenarioEStyleStats(t *testing.T) {
	base := time.Now().UTC()
	w1Trades := []domain.Trade{
		{TxHash: "1", Chain: chains.Ethereum, Wallet: "W1", Token: "0xaaa", Side: domain.SideBuy, Quantity: 100, UnitPriceUSD: 1, Timestamp: base, ValueUSD: 100},
		{TxHash: "2", Chain: chains.Ethereum, Wallet: "W1", Token: "0xaaa", Side: domain.SideBuy, Quantity: 50, UnitPriceUSD: 2, Timestamp: base.Add(time.Minute), ValueUSD: 100},
		{TxHash: "3", Chain: chains.Ethereum, Wallet: "W1", Token: "0xaaa", Side: domain.SideSell, Quantity: 120, UnitPriceUSD: 3, Timestamp: base.Add(2 * time.Minute), ValueUSD: 360},
	}
	store := &fakeStatsStore{
		wallets: []domain.WalletKey{{Chain: chains.Ethereum, Address: "W1"}},
		trades:  map[string][]domain.Trade{"W1": w1Trades},
		token:   domain.Token{Chain: chains.Ethereum, Address: "0xaaa", LiquidityUSD: 1000, Volume24hUSD: 10000},
	}
	priceOf := func(ctx context.Context, chain chains.ID, token string) (float64, bool) { return 0, false }

	roller := New(store, priceOf, 30*24*time.Hour, zerolog.Nop())
	runStats, err := roller.Run(context.Background(), chains.Ethereum)
	require.NoError(t, err)
	assert.Equal(t, 1, runStats.WalletsScanned)

	require.Len(t, store.puts, 1)
	s := store.puts[0]
	assert.Equal(t, "W1", s.Wallet)
	assert.InDelta(t, 220, s.RealizedPnLUSD, 1e-9)
	assert.InDelta(t, 3, s.BestTradeMultiple, 1e-9)
	assert.False(t, s.IsBot)
}

func TestRollerIsIdempotentAcrossConsecutiveRuns(t *testing.T) {
	base := time.Now().UTC()
	store := &fakeStatsStore{
		wallets: []domain.WalletKey{{Chain: chains.Ethereum, Address: "W1"}},
		trades: map[string][]domain.Trade{"W1": {
			{TxHash: "1", Chain: chains.Ethereum, Wallet: "W1", Token: "0xaaa", Side: domain.SideBuy, Quantity: 10, UnitPriceUSD: 1, Timestamp: base, ValueUSD: 10},
		}},
		token: domain.Token{Chain: chains.Ethereum, Address: "0xaaa", LiquidityUSD: 1000, Volume24hUSD: 10000},
	}
	priceOf := func(ctx context.Context, chain chains.ID, token string) (float64, bool) { return 2, true }

	fixedNow := base.Add(time.Hour)
	roller := New(store, priceOf, 30*24*time.Hour, zerolog.Nop())
	roller.now = func() time.Time { return fixedNow }

	_, err := roller.Run(context.Background(), chains.Ethereum)
	require.NoError(t, err)
	_, err = roller.Run(context.Background(), chains.Ethereum)
	require.NoError(t, err)

	require.Len(t, store.puts, 2)
	assert.Equal(t, store.puts[0], store.puts[1], "back-to-back runs with no new trades must be byte-identical")
}
