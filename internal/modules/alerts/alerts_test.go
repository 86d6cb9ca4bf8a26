package alerts

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinwatch/confluence/internal/domain"
)

func TestEncodeDecodeSnapshotRoundTrips(t *testing.T) {
	snaps := []WalletSnapshot{
		{Wallet: "W1", RealizedPnLUSD: 220, BestTradeMultiple: 3, EarlyScoreMedian: 72.5},
	}
	b, err := EncodeSnapshot(snaps)
	require.NoError(t, err)

	decoded, err := DecodeSnapshot(b)
	require.NoError(t, err)
	assert.Equal(t, snaps, decoded)
}

type fakeLedger struct {
	inserted map[string]bool
}

func (l *fakeLedger) InsertAlert(ctx context.Context, a domain.AlertRecord) (bool, error) {
	if l.inserted[a.DedupKey] {
		return false, nil
	}
	l.inserted[a.DedupKey] = true
	return true, nil
}

type recordingSink struct {
	name     string
	received []domain.AlertRecord
	err      error
}

func (s *recordingSink) Name() string { return s.name }
func (s *recordingSink) Deliver(ctx context.Context, a domain.AlertRecord) error {
	if s.err != nil {
		return s.err
	}
	s.received = append(s.received, a)
	return nil
}

func TestDispatchFansOutToAllSinks(t *testing.T) {
	ledger := &fakeLedger{inserted: map[string]bool{}}
	a := &recordingSink{name: "a"}
	b := &recordingSink{name: "b"}
	d := NewDispatcher(ledger, []Sink{a, b}, zerolog.Nop())

	inserted, err := d.Dispatch(context.Background(), domain.AlertRecord{ID: "1", DedupKey: "k1"})
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Len(t, a.received, 1)
	assert.Len(t, b.received, 1)
}

func TestDispatchSkipsSinksOnDuplicateDedupKey(t *testing.T) {
	ledger := &fakeLedger{inserted: map[string]bool{"k1": true}}
	a := &recordingSink{name: "a"}
	d := NewDispatcher(ledger, []Sink{a}, zerolog.Nop())

	inserted, err := d.Dispatch(context.Background(), domain.AlertRecord{ID: "1", DedupKey: "k1"})
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Empty(t, a.received)
}

func TestDispatchContinuesPastSinkFailure(t *testing.T) {
	ledger := &fakeLedger{inserted: map[string]bool{}}
	failing := &recordingSink{name: "failing", err: assert.AnError}
	working := &recordingSink{name: "working"}
	d := NewDispatcher(ledger, []Sink{failing, working}, zerolog.Nop())

	inserted, err := d.Dispatch(context.Background(), domain.AlertRecord{ID: "1", DedupKey: "k1"})
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Len(t, working.received, 1)
}
