package confluence

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/coinwatch/confluence/internal/chains"
	"github.com/coinwatch/confluence/internal/domain"
	"github.com/coinwatch/confluence/internal/errkind"
)

// AlertLedger is the subset of store.AlertStore the detector needs, kept
// narrow so tests can stub it without pulling in the whole Store.
type AlertLedger interface {
	InsertAlert(ctx context.Context, a domain.AlertRecord) (inserted bool, err error)
}

// Detector implements C9: it records trade events into the sliding window
// and decides, per spec.md §4.9's state machine (Empty -> Partial -> Armed
// -> Fired, degrading back to Armed on bucket rollover), whether a
// confluence alert should be emitted.
type Detector struct {
	window  WindowStore
	ledger  AlertLedger
	minSize int
	span    time.Duration
	log     zerolog.Logger
	idGen   func() string
	now     func() time.Time
}

// New builds a Detector. idGen produces AlertRecord.ID values (injected so
// tests are deterministic); pass uuid.NewString in production.
func New(window WindowStore, ledger AlertLedger, minConfluence int, confluenceWindow time.Duration, log zerolog.Logger, idGen func() string) *Detector {
	return &Detector{window: window, ledger: ledger, minSize: minConfluence, span: confluenceWindow, log: log, idGen: idGen, now: time.Now}
}

// Evaluate records (chain, side, token, wallet, ts) and, if the resulting
// membership is Armed (>= minSize, not yet fired this bucket), attempts to
// emit an alert. It returns the emitted record, or nil if no alert fired
// this call (below threshold, or already fired for this bucket+wallet-set).
//
// Failure semantics: if the window store is unreachable, this short-circuits
// to "no confluence possible" for the tick (spec.md §4.9) by returning a
// StoreUnavailable error; the caller (C8) must treat that as non-fatal to
// the wallets still queued for this tick.
func (d *Detector) Evaluate(ctx context.Context, chain chains.ID, side domain.Side, token, wallet string, ts time.Time, weights [3]float64, snapshot []byte) (*domain.AlertRecord, error) {
	key := Key{Chain: string(chain), Side: string(side), Token: token}

	if err := d.window.Record(ctx, key, wallet, ts, d.span); err != nil {
		return nil, errkind.New(errkind.StoreUnavailable, "confluence.record", err, map[string]any{"key": key})
	}

	members, err := d.window.Members(ctx, key)
	if err != nil {
		return nil, errkind.New(errkind.StoreUnavailable, "confluence.members", err, map[string]any{"key": key})
	}

	if len(members) < d.minSize {
		return nil, nil // Partial, not yet Armed
	}

	wallets := distinctWallets(members)
	bucket := d.now().Unix() / int64(d.span.Seconds())
	dedupKey := DedupKey(chain, side, token, wallets, bucket)

	record := domain.AlertRecord{
		ID:             d.idGen(),
		DedupKey:       dedupKey,
		Kind:           kindFor(side),
		Chain:          chain,
		Token:          token,
		Side:           side,
		Wallets:        wallets,
		WindowMS:       windowSpanMS(members),
		Weights:        weights,
		PricesSnapshot: snapshot,
		CreatedAt:      ts,
	}

	inserted, err := d.ledger.InsertAlert(ctx, record)
	if err != nil {
		return nil, errkind.New(errkind.StoreUnavailable, "confluence.insert_alert", err, nil)
	}
	if !inserted {
		d.log.Debug().Str("dedup_key", dedupKey).Msg("confluence already alerted for this bucket+wallet-set")
		return nil, nil // Fired already this bucket
	}

	d.log.Info().
		Str("chain", string(chain)).Str("side", string(side)).Str("token", token).
		Strs("wallets", wallets).Msg("confluence alert emitted")
	return &record, nil
}

func kindFor(side domain.Side) domain.AlertKind {
	if side == domain.SideSell {
		return domain.AlertSellConfluence
	}
	return domain.AlertBuyConfluence
}

func distinctWallets(members []Member) []string {
	seen := make(map[string]bool, len(members))
	var out []string
	for _, m := range members {
		if seen[m.Wallet] {
			continue
		}
		seen[m.Wallet] = true
		out = append(out, m.Wallet)
	}
	sort.Strings(out)
	return out
}

func windowSpanMS(members []Member) int64 {
	if len(members) < 2 {
		return 0
	}
	min, max := members[0].EventTS, members[0].EventTS
	for _, m := range members[1:] {
		if m.EventTS.Before(min) {
			min = m.EventTS
		}
		if m.EventTS.After(max) {
			max = m.EventTS
		}
	}
	return max.Sub(min).Milliseconds()
}

// DedupKey builds the event identity of spec.md §4.9:
// hash(chain, side, token, sorted_wallet_set, window_bucket).
// wallets must already be sorted and deduplicated.
func DedupKey(chain chains.ID, side domain.Side, token string, sortedWallets []string, bucket int64) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%d", chain, side, token, bucket)
	for _, w := range sortedWallets {
		fmt.Fprintf(h, "|%s", w)
	}
	return hex.EncodeToString(h.Sum(nil))
}
