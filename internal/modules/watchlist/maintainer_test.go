package watchlist

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinwatch/confluence/internal/chains"
	"github.com/coinwatch/confluence/internal/config"
	"github.com/coinwatch/confluence/internal/domain"
)

type fakeWatchlistStore struct {
	stats   []domain.WalletStats30D
	entries map[string]domain.WatchlistEntry
}

func newFakeWatchlistStore() *fakeWatchlistStore {
	return &fakeWatchlistStore{entries: map[string]domain.WatchlistEntry{}}
}

func (s *fakeWatchlistStore) AllWalletStats(ctx context.Context, chain chains.ID) ([]domain.WalletStats30D, error) {
	return s.stats, nil
}
func (s *fakeWatchlistStore) GetWalletStats(ctx context.Context, chain chains.ID, wallet string) (domain.WalletStats30D, bool, error) {
	for _, st := range s.stats {
		if st.Wallet == wallet {
			return st, true, nil
		}
	}
	return domain.WalletStats30D{}, false, nil
}
func (s *fakeWatchlistStore) TradesForWallet(ctx context.Context, chain chains.ID, wallet string, since time.Time) ([]domain.Trade, error) {
	return nil, nil
}
func (s *fakeWatchlistStore) ActiveWatchlist(ctx context.Context, chain chains.ID) ([]domain.WatchlistEntry, error) {
	var out []domain.WatchlistEntry
	for _, e := range s.entries {
		if e.Status == domain.WatchlistActive {
			out = append(out, e)
		}
	}
	return out, nil
}
func (s *fakeWatchlistStore) GetWatchlistEntry(ctx context.Context, chain chains.ID, wallet string) (domain.WatchlistEntry, bool, error) {
	e, ok := s.entries[wallet]
	return e, ok, nil
}
func (s *fakeWatchlistStore) UpsertWatchlistEntry(ctx context.Context, e domain.WatchlistEntry) error {
	s.entries[e.Wallet] = e
	return nil
}

func TestMaintainerActivatesTopPerformers(t *testing.T) {
	store := newFakeWatchlistStore()
	store.stats = []domain.WalletStats30D{
		{Wallet: "good", UnrealizedPnLUSD: 1000, TradeCount: 10, EarlyScoreMedian: 80, BestTradeMultiple: 3},
		{Wallet: "mediocre", UnrealizedPnLUSD: 10, TradeCount: 1, EarlyScoreMedian: 30, BestTradeMultiple: 1.2},
	}
	cfg := &config.Config{WatchlistTopN: 30, Weights: config.Weights{PnL: 0.3, Act: 0.3, Early: 0.4}}
	m := New(store, nil, DefaultThresholds(cfg), NewAdaptiveWeights(cfg), zerolog.Nop())

	runStats, err := m.Run(context.Background(), chains.Ethereum)
	require.NoError(t, err)
	assert.Equal(t, 2, runStats.Added)

	assert.Equal(t, domain.WatchlistActive, store.entries["good"].Status)
}

func TestMaintainerRemovesNegativePnL(t *testing.T) {
	store := newFakeWatchlistStore()
	store.entries["bad"] = domain.WatchlistEntry{Wallet: "bad", Chain: chains.Ethereum, Status: domain.WatchlistActive, AddedAt: time.Now().Add(-time.Hour)}
	store.stats = []domain.WalletStats30D{
		{Wallet: "bad", UnrealizedPnLUSD: -100, TradeCount: 5, EarlyScoreMedian: 50, BestTradeMultiple: 3},
	}
	cfg := &config.Config{WatchlistTopN: 0, Weights: config.Weights{PnL: 0.3, Act: 0.3, Early: 0.4}}
	m := New(store, nil, DefaultThresholds(cfg), NewAdaptiveWeights(cfg), zerolog.Nop())

	runStats, err := m.Run(context.Background(), chains.Ethereum)
	require.NoError(t, err)
	assert.Equal(t, 1, runStats.Removed)
	assert.Equal(t, domain.WatchlistRemoved, store.entries["bad"].Status)
}

type alwaysActiveWindow struct{}

func (alwaysActiveWindow) InActiveWindow(ctx context.Context, chain chains.ID, wallet string) bool { return true }

func TestMaintainerDefersRemovalDuringActiveWindow(t *testing.T) {
	store := newFakeWatchlistStore()
	store.entries["active"] = domain.WatchlistEntry{Wallet: "active", Chain: chains.Ethereum, Status: domain.WatchlistActive, AddedAt: time.Now().Add(-time.Hour)}
	store.stats = []domain.WalletStats30D{
		{Wallet: "active", UnrealizedPnLUSD: -100, TradeCount: 5, EarlyScoreMedian: 50, BestTradeMultiple: 3},
	}
	cfg := &config.Config{WatchlistTopN: 0, Weights: config.Weights{PnL: 0.3, Act: 0.3, Early: 0.4}}
	m := New(store, alwaysActiveWindow{}, DefaultThresholds(cfg), NewAdaptiveWeights(cfg), zerolog.Nop())

	runStats, err := m.Run(context.Background(), chains.Ethereum)
	require.NoError(t, err)
	assert.Equal(t, 0, runStats.Removed)
	assert.Equal(t, 1, runStats.Deferred)
	assert.Equal(t, domain.WatchlistActive, store.entries["active"].Status)
}

func TestAdaptiveWeightsStaySummedToOneAndBounded(t *testing.T) {
	cfg := &config.Config{Weights: config.Weights{PnL: 0.3, Act: 0.3, Early: 0.4}}
	w := NewAdaptiveWeights(cfg)

	for i := 0; i < 100; i++ {
		w.ApplyOutcome(AlertOutcome{PnLWin: true, ActWin: false, EarlyWin: false}, 0.01)
	}

	current := w.Current()
	sum := current[0] + current[1] + current[2]
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.LessOrEqual(t, current[0], 0.3+maxDailyShiftPerWeight+1e-9)
}
