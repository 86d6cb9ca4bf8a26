package discovery

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

type fakeTransferSource struct {
	name string
	out  []adapters.Transfer
}

func (f *fakeTransferSource) Name() string { return f.name }
func (f *fakeTransferSource) FetchTokenTransfers(ctx context.Context, chain chains.ID, token string, fromBlock, toBlock uint64, limit int) ([]adapters.Transfer, error) {
	return f.out, nil
}
func (f *fakeTransferSource) FetchWalletTransfers(ctx context.Context, chain chains.ID, wallet string, dir adapters.Direction, fromBlock uint64, limit int) ([]adapters.Transfer, error) {
	return nil, nil
}

type fakeDiscoveryStore struct {
	seeds   []domain.SeedToken
	wallets []domain.Wallet
	trades  map[string]domain.Trade
}

func newFakeDiscoveryStore() *fakeDiscoveryStore {
	return &fakeDiscoveryStore{trades: map[string]domain.Trade{}}
}

func (s *fakeDiscoveryStore) SeedTokensSince(ctx context.Context, chain chains.ID, lookback time.Duration) ([]domain.SeedToken, error) {
	return s.seeds, nil
}
func (s *fakeDiscoveryStore) UpsertWallet(ctx context.Context, w domain.Wallet) error {
	s.wallets = append(s.wallets, w)
	return nil
}
func (s *fakeDiscoveryStore) InsertTrade(ctx context.Context, t domain.Trade) (bool, error) {
	if _, exists := s.trades[t.TxHash]; exists {
		return false, nil
	}
	s.trades[t.TxHash] = t
	return true, nil
}

func TestDiscovererPersistsBuysOnly(t *testing.T) {
	store := newFakeDiscoveryStore()
	store.seeds = []domain.SeedToken{{Chain: chains.Ethereum, Address: "0xaaa", SnapshotTS: time.Now()}}

	transfers := adapters.NewRegistry[adapters.TransferSource]()
	transfers.Register(chains.Ethereum, &fakeTransferSource{name: "covalent", out: []adapters.Transfer{
		{TxHash: "0x01", From: "POOL", To: "W1", Quantity: 100, Timestamp: time.Now()},
		{TxHash: "0x02", From: "POOL", To: "W2", Quantity: 50, Timestamp: time.Now()},
		{TxHash: "0x03", From: "POOL", To: "W3", Quantity: 1, Timestamp: time.Now()},
	}})
	transfers.Freeze()

	priceAt := func(ctx context.Context, chain chains.ID, token string) (float64, bool) { return 1.5, true }

	d := New(store, transfers, priceAt, 3*time.Hour, 2000, 2, zerolog.Nop())
	stats, err := d.RunChain(context.Background(), chains.Ethereum, 10000)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TradesNew)
	assert.Len(t, store.trades, 3)
	for _, tr := range store.trades {
		assert.Equal(t, domain.SideBuy, tr.Side)
		assert.InDelta(t, 1.5, tr.UnitPriceUSD, 1e-9)
	}
}

func TestDiscovererIsIdempotentAcrossReplays(t *testing.T) {
	store := newFakeDiscoveryStore()
	store.seeds = []domain.SeedToken{{Chain: chains.Ethereum, Address: "0xaaa", SnapshotTS: time.Now()}}

	transfers := adapters.NewRegistry[adapters.TransferSource]()
	transfers.Register(chains.Ethereum, &fakeTransferSource{name: "covalent", out: []adapters.Transfer{
		{TxHash: "0x01", From: "POOL", To: "W1", Quantity: 100, Timestamp: time.Now()},
	}})
	transfers.Freeze()

	priceAt := func(ctx context.Context, chain chains.ID, token string) (float64, bool) { return 1, true }
	d := New(store, transfers, priceAt, 3*time.Hour, 2000, 2, zerolog.Nop())

	for i := 0; i < 3; i++ {
		_, err := d.RunChain(context.Background(), chains.Ethereum, 10000)
		require.NoError(t, err)
	}
	assert.Len(t, store.trades, 1)
}
