package confluence

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinwatch/confluence/internal/chains"
	"github.com/coinwatch/confluence/internal/domain"
)

// fakeLedger is an in-memory stand-in for store.AlertStore, keyed on dedup_key.
type fakeLedger struct {
	mu     sync.Mutex
	byKey  map[string]domain.AlertRecord
	inserts int
}

func newFakeLedger() *fakeLedger { return &fakeLedger{byKey: map[string]domain.AlertRecord{}} }

func (l *fakeLedger) InsertAlert(_ context.Context, a domain.AlertRecord) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.byKey[a.DedupKey]; exists {
		return false, nil
	}
	l.byKey[a.DedupKey] = a
	l.inserts++
	return true, nil
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("alert-%d", n)
	}
}

var weights = [3]float64{0.3, 0.3, 0.4}

// Scenario A (basic confluence): W1 buys at t=0, W2 buys at t=120s -> exactly
// one buy_confluence alert with {W1, W2}.
func TestScenarioA_BasicConfluence(t *testing.T) {
	window := NewInMemoryWindowStore()
	ledger := newFakeLedger()
	d := New(window, ledger, 2, 30*time.Minute, zerolog.Nop(), sequentialIDs())
	ctx := context.Background()

	base := time.Now().UTC()

	rec1, err := d.Evaluate(ctx, chains.Ethereum, domain.SideBuy, "0xAAA", "W1", base, weights, nil)
	require.NoError(t, err)
	assert.Nil(t, rec1, "single wallet must not trigger confluence")

	rec2, err := d.Evaluate(ctx, chains.Ethereum, domain.SideBuy, "0xAAA", "W2", base.Add(120*time.Second), weights, nil)
	require.NoError(t, err)
	require.NotNil(t, rec2, "second distinct wallet must trigger confluence")
	assert.ElementsMatch(t, []string{"W1", "W2"}, rec2.Wallets)
	assert.Equal(t, domain.AlertBuyConfluence, rec2.Kind)
	assert.Equal(t, 1, ledger.inserts)
}

// Scenario B (idempotence): replay the same feed three times -> exactly one
// alert total.
func TestScenarioB_ReplayIsIdempotent(t *testing.T) {
	window := NewInMemoryWindowStore()
	ledger := newFakeLedger()
	d := New(window, ledger, 2, 30*time.Minute, zerolog.Nop(), sequentialIDs())
	ctx := context.Background()
	base := time.Now().UTC()

	for i := 0; i < 3; i++ {
		_, err := d.Evaluate(ctx, chains.Ethereum, domain.SideBuy, "0xAAA", "W1", base, weights, nil)
		require.NoError(t, err)
		_, err = d.Evaluate(ctx, chains.Ethereum, domain.SideBuy, "0xAAA", "W2", base.Add(120*time.Second), weights, nil)
		require.NoError(t, err)
	}

	assert.Equal(t, 1, ledger.inserts, "replaying the same events must not re-alert")
}

// Scenario C (below threshold): only W1 buys -> no alert.
func TestScenarioC_BelowThreshold(t *testing.T) {
	window := NewInMemoryWindowStore()
	ledger := newFakeLedger()
	d := New(window, ledger, 2, 30*time.Minute, zerolog.Nop(), sequentialIDs())
	ctx := context.Background()

	rec, err := d.Evaluate(ctx, chains.Ethereum, domain.SideBuy, "0xAAA", "W1", time.Now().UTC(), weights, nil)
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Equal(t, 0, ledger.inserts)

	members, err := window.Members(ctx, Key{Chain: "eth", Side: "buy", Token: "0xAAA"})
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

// Scenario D (sell confluence & stablecoin exclusion): sell side produces a
// sell_confluence alert through the same mechanism as buys. Stablecoin
// exclusion is enforced by the caller (C8) before Evaluate is ever invoked,
// so it is exercised in the monitor package's tests, not here.
func TestScenarioD_SellConfluence(t *testing.T) {
	window := NewInMemoryWindowStore()
	ledger := newFakeLedger()
	d := New(window, ledger, 2, 30*time.Minute, zerolog.Nop(), sequentialIDs())
	ctx := context.Background()
	base := time.Now().UTC()

	_, err := d.Evaluate(ctx, chains.Ethereum, domain.SideSell, "0xAAA", "W1", base, weights, nil)
	require.NoError(t, err)
	rec, err := d.Evaluate(ctx, chains.Ethereum, domain.SideSell, "0xAAA", "W2", base.Add(time.Minute), weights, nil)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, domain.AlertSellConfluence, rec.Kind)
}

// A wallet just inside the window edge (29 minutes old) still counts after a
// later Record.
func TestWindowEdgeBoundary(t *testing.T) {
	window := NewInMemoryWindowStore()
	ctx := context.Background()
	key := Key{Chain: "eth", Side: "buy", Token: "0xAAA"}

	now := time.Now().UTC()
	require.NoError(t, window.Record(ctx, key, "W1", now.Add(-29*time.Minute), 30*time.Minute))
	require.NoError(t, window.Record(ctx, key, "W2", now, 30*time.Minute))

	members, err := window.Members(ctx, key)
	require.NoError(t, err)
	assert.Len(t, members, 2, "member within the window must survive eviction")
}

func TestDedupKeyGrowsWithLargerWalletSet(t *testing.T) {
	k1 := DedupKey(chains.Ethereum, domain.SideBuy, "0xAAA", []string{"W1", "W2"}, 100)
	k2 := DedupKey(chains.Ethereum, domain.SideBuy, "0xAAA", []string{"W1", "W2", "W3"}, 100)
	assert.NotEqual(t, k1, k2, "a strictly larger wallet set in the same bucket must yield a distinct dedup key")
}
