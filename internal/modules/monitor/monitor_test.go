package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinwatch/confluence/internal/adapters"
	"github.com/coinwatch/confluence/internal/chains"
	"github.com/coinwatch/confluence/internal/domain"
)

type fakeMonitorStore struct {
	active []domain.WatchlistEntry
	always []string
	trades map[string]domain.Trade
}

func newFakeMonitorStore() *fakeMonitorStore { return &fakeMonitorStore{trades: map[string]domain.Trade{}} }

func (s *fakeMonitorStore) ActiveWatchlist(ctx context.Context, chain chains.ID) ([]domain.WatchlistEntry, error) {
	return s.active, nil
}
func (s *fakeMonitorStore) AlwaysWatch(ctx context.Context, chain chains.ID) ([]string, error) {
	return s.always, nil
}
func (s *fakeMonitorStore) InsertTrade(ctx context.Context, t domain.Trade) (bool, error) {
	if _, exists := s.trades[t.TxHash]; exists {
		return false, nil
	}
	s.trades[t.TxHash] = t
	return true, nil
}
func (s *fakeMonitorStore) GetWalletStats(ctx context.Context, chain chains.ID, wallet string) (domain.WalletStats30D, bool, error) {
	return domain.WalletStats30D{}, false, nil
}

type fakeTransferSrc struct {
	name string
	out  []adapters.Transfer
}

func (f *fakeTransferSrc) Name() string { return f.name }
func (f *fakeTransferSrc) FetchTokenTransfers(ctx context.Context, chain chains.ID, token string, fromBlock, toBlock uint64, limit int) ([]adapters.Transfer, error) {
	return nil, nil
}
func (f *fakeTransferSrc) FetchWalletTransfers(ctx context.Context, chain chains.ID, wallet string, dir adapters.Direction, fromBlock uint64, limit int) ([]adapters.Transfer, error) {
	if dir == adapters.DirectionIn {
		return f.out, nil
	}
	return nil, nil
}

type fakeConfluence struct {
	calls int
	fire  bool
}

func (f *fakeConfluence) Evaluate(ctx context.Context, chain chains.ID, side domain.Side, token, wallet string, ts time.Time, weights [3]float64, snapshot []byte) (*domain.AlertRecord, error) {
	f.calls++
	if f.fire {
		return &domain.AlertRecord{ID: "x"}, nil
	}
	return nil, nil
}

type fixedWeights struct{}

func (fixedWeights) Current() [3]float64 { return [3]float64{0.3, 0.3, 0.4} }

func TestMonitorSkipsStablecoinExclusion(t *testing.T) {
	store := newFakeMonitorStore()
	store.active = []domain.WatchlistEntry{{Wallet: "W1", Status: domain.WatchlistActive}}

	transfers := adapters.NewRegistry[adapters.TransferSource]()
	transfers.Register(chains.Ethereum, &fakeTransferSrc{name: "a", out: []adapters.Transfer{
		{TxHash: "1", From: "POOL", To: "W1", Token: "0xusdc", Quantity: 10, Timestamp: time.Now()},
		{TxHash: "2", From: "POOL", To: "W1", Token: "0xusdc", Quantity: 10, Timestamp: time.Now()},
		{TxHash: "3", From: "POOL", To: "W1", Token: "0xusdc", Quantity: 10, Timestamp: time.Now()},
	}})
	transfers.Freeze()

	confluence := &fakeConfluence{}
	priceAt := func(ctx context.Context, chain chains.ID, token string) (float64, bool) { return 1, true }

	m := New(store, transfers, confluence, fixedWeights{}, priceAt, map[string]bool{"0xusdc": true}, 2, 100, zerolog.Nop())
	runStats, err := m.RunChain(context.Background(), chains.Ethereum, 0)
	require.NoError(t, err)

	assert.Equal(t, 0, runStats.TradesNew, "stablecoin trades must never reach the store")
	assert.Equal(t, 0, confluence.calls)
}

func TestMonitorInsertsTradeAndEvaluatesConfluence(t *testing.T) {
	store := newFakeMonitorStore()
	store.active = []domain.WatchlistEntry{{Wallet: "W1", Status: domain.WatchlistActive}}

	transfers := adapters.NewRegistry[adapters.TransferSource]()
	transfers.Register(chains.Ethereum, &fakeTransferSrc{name: "a", out: []adapters.Transfer{
		{TxHash: "1", From: "POOL", To: "W1", Token: "0xaaa", Quantity: 10, Timestamp: time.Now()},
		{TxHash: "2", From: "POOL", To: "W1", Token: "0xaaa", Quantity: 10, Timestamp: time.Now()},
		{TxHash: "3", From: "POOL", To: "W1", Token: "0xaaa", Quantity: 10, Timestamp: time.Now()},
	}})
	transfers.Freeze()

	confluence := &fakeConfluence{fire: true}
	priceAt := func(ctx context.Context, chain chains.ID, token string) (float64, bool) { return 1, true }

	m := New(store, transfers, confluence, fixedWeights{}, priceAt, map[string]bool{}, 2, 100, zerolog.Nop())
	runStats, err := m.RunChain(context.Background(), chains.Ethereum, 0)
	require.NoError(t, err)

	assert.Equal(t, 3, runStats.TradesNew)
	assert.Equal(t, 3, confluence.calls)
	assert.Equal(t, 3, runStats.AlertsEmitted)
}
