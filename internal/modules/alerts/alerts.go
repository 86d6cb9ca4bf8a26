// Package alerts persists AlertRecords and fans them out to whatever
// outbound sinks are configured. The chat transport itself is an external
// collaborator (spec.md §1); this package only implements the dashboard-facing
// in-process broadcaster and the msgpack encoding of a per-wallet stats
// snapshot attached to each alert.
package alerts

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/coinwatch/confluence/internal/domain"
	"github.com/coinwatch/confluence/internal/errkind"
)

// WalletSnapshot is one wallet's stats as they stood when an alert fired,
// per spec.md §6 ("wallet list with per-wallet 30-day stats snapshot").
type WalletSnapshot struct {
	Wallet            string  `msgpack:"wallet"`
	RealizedPnLUSD    float64 `msgpack:"realized_pnl_usd"`
	UnrealizedPnLUSD  float64 `msgpack:"unrealized_pnl_usd"`
	BestTradeMultiple float64 `msgpack:"best_trade_multiple"`
	EarlyScoreMedian  float64 `msgpack:"early_score_median"`
}

// EncodeSnapshot msgpack-encodes a slice of WalletSnapshot for
// AlertRecord.PricesSnapshot. msgpack is used (rather than JSON) to keep the
// snapshot compact, since it's stored inline on every alert row.
func EncodeSnapshot(snapshots []WalletSnapshot) ([]byte, error) {
	b, err := msgpack.Marshal(snapshots)
	if err != nil {
		return nil, errkind.New(errkind.Fatal, "alerts.encode_snapshot", err, nil)
	}
	return b, nil
}

// DecodeSnapshot is the dashboard/read-path inverse of EncodeSnapshot.
func DecodeSnapshot(b []byte) ([]WalletSnapshot, error) {
	var out []WalletSnapshot
	if err := msgpack.Unmarshal(b, &out); err != nil {
		return nil, errkind.New(errkind.UpstreamSchema, "alerts.decode_snapshot", err, nil)
	}
	return out, nil
}

// Sink delivers an already-persisted AlertRecord to one outbound transport.
// The chat transport implementation lives outside this module; Sink is the
// seam it plugs into.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, a domain.AlertRecord) error
}

// Ledger is the subset of store.AlertStore the dispatcher needs.
type Ledger interface {
	InsertAlert(ctx context.Context, a domain.AlertRecord) (bool, error)
}

// Dispatcher persists an AlertRecord exactly once (via the dedup-aware
// ledger) then fans it out to every configured Sink. A sink failure is
// logged and does not block the others or roll back the persisted alert.
type Dispatcher struct {
	ledger Ledger
	sinks  []Sink
	log    zerolog.Logger
}

func NewDispatcher(ledger Ledger, sinks []Sink, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{ledger: ledger, sinks: sinks, log: log.With().Str("component", "alerts").Logger()}
}

// Dispatch persists a, returning inserted=false with no sink calls if the
// dedup key already exists. The Detector reaches this check through its
// AlertLedger; any caller that invokes Dispatch directly gets the same dedup.
func (d *Dispatcher) Dispatch(ctx context.Context, a domain.AlertRecord) (bool, error) {
	inserted, err := d.ledger.InsertAlert(ctx, a)
	if err != nil {
		return false, errkind.New(errkind.StoreUnavailable, "alerts.insert_alert", err, nil)
	}
	if !inserted {
		return false, nil
	}

	for _, sink := range d.sinks {
		if err := sink.Deliver(ctx, a); err != nil {
			d.log.Warn().Err(err).Str("sink", sink.Name()).Str("dedup_key", a.DedupKey).Msg("alert delivery failed")
		}
	}
	return true, nil
}
