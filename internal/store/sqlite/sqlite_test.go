package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinwatch/confluence/internal/chains"
	"github.com/coinwatch/confluence/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("file::memory:?cache=shared&mode=memory")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestTradeInsertIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	trade := domain.Trade{
		TxHash: "0x01", Chain: chains.Ethereum, Timestamp: time.Now().UTC(),
		Wallet: "0xw1", Token: "0xaaa", Side: domain.SideBuy,
		Quantity: 100, UnitPriceUSD: 1.0, ValueUSD: 100,
	}

	inserted, err := s.InsertTrade(ctx, trade)
	require.NoError(t, err)
	assert.True(t, inserted)

	for i := 0; i < 3; i++ {
		inserted, err = s.InsertTrade(ctx, trade)
		require.NoError(t, err)
		assert.False(t, inserted, "re-inserting the same tx_hash must be a no-op")
	}

	trades, err := s.TradesForWallet(ctx, chains.Ethereum, "0xw1", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Len(t, trades, 1)
}

func TestAlertDedup(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a := domain.AlertRecord{
		ID: "alert-1", DedupKey: "dedup-1", Kind: domain.AlertBuyConfluence,
		Chain: chains.Ethereum, Token: "0xaaa", Side: domain.SideBuy,
		Wallets: []string{"0xw1", "0xw2"}, WindowMS: 120000,
		Weights: [3]float64{0.3, 0.3, 0.4},
	}

	inserted, err := s.InsertAlert(ctx, a)
	require.NoError(t, err)
	assert.True(t, inserted)

	a2 := a
	a2.ID = "alert-2" // different id, same dedup key
	inserted, err = s.InsertAlert(ctx, a2)
	require.NoError(t, err)
	assert.False(t, inserted, "same dedup_key must not produce a second alert")

	exists, err := s.AlertExists(ctx, "dedup-1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestSeedTokensSinceFiltersByLookback(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	fresh := domain.SeedToken{Chain: chains.Ethereum, Address: "0xaaa", Source: "dexscreener", SnapshotTS: time.Now().UTC()}
	stale := domain.SeedToken{Chain: chains.Ethereum, Address: "0xbbb", Source: "dexscreener", SnapshotTS: time.Now().UTC().Add(-6 * time.Hour)}

	require.NoError(t, s.InsertSeedToken(ctx, fresh))
	require.NoError(t, s.InsertSeedToken(ctx, stale))

	seeds, err := s.SeedTokensSince(ctx, chains.Ethereum, 3*time.Hour)
	require.NoError(t, err)
	require.Len(t, seeds, 1)
	assert.Equal(t, "0xaaa", seeds[0].Address)
}
