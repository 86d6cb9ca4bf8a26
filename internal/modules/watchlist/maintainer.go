// Package watchlist implements C7: composite scoring, the top-N active
// watchlist, and its add/remove rules.
package watchlist

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/coinwatch/confluence/internal/chains"
	"github.com/coinwatch/confluence/internal/config"
	"github.com/coinwatch/confluence/internal/domain"
	"github.com/coinwatch/confluence/internal/errkind"
	"github.com/coinwatch/confluence/internal/modules/analytics"
)

// Store is the subset C7 reads and writes.
type Store interface {
	AllWalletStats(ctx context.Context, chain chains.ID) ([]domain.WalletStats30D, error)
	GetWalletStats(ctx context.Context, chain chains.ID, wallet string) (domain.WalletStats30D, bool, error)
	TradesForWallet(ctx context.Context, chain chains.ID, wallet string, since time.Time) ([]domain.Trade, error)
	ActiveWatchlist(ctx context.Context, chain chains.ID) ([]domain.WatchlistEntry, error)
	GetWatchlistEntry(ctx context.Context, chain chains.ID, wallet string) (domain.WatchlistEntry, bool, error)
	UpsertWatchlistEntry(ctx context.Context, e domain.WatchlistEntry) error
}

// Thresholds are the add/remove rule parameters of spec.md §4.7, not all of
// which appear in the core configuration table; sensible defaults are given
// by DefaultThresholds.
type Thresholds struct {
	TopN             int
	MinTrades        int
	MinMultiple      float64
	NegPnLThreshold  float64
	MinEarlyMedian   float64
}

func DefaultThresholds(cfg *config.Config) Thresholds {
	return Thresholds{
		TopN: cfg.WatchlistTopN, MinTrades: 1, MinMultiple: 1.0,
		NegPnLThreshold: 0, MinEarlyMedian: 20,
	}
}

// ActiveWindowChecker reports whether wallet is currently a member of any
// in-progress (Armed, unfired) confluence window, so the maintainer can defer
// removing it per spec.md §4.7 ("never removes a wallet during the middle of
// an active confluence window for that wallet").
type ActiveWindowChecker interface {
	InActiveWindow(ctx context.Context, chain chains.ID, wallet string) bool
}

// Maintainer runs C7's daily evaluation pass.
type Maintainer struct {
	store      Store
	windows    ActiveWindowChecker
	thresholds Thresholds
	weights    *AdaptiveWeights
	log        zerolog.Logger
	now        func() time.Time
}

func New(store Store, windows ActiveWindowChecker, thresholds Thresholds, weights *AdaptiveWeights, log zerolog.Logger) *Maintainer {
	return &Maintainer{store: store, windows: windows, thresholds: thresholds, weights: weights, log: log.With().Str("component", "watchlist").Logger(), now: time.Now}
}

// RunStats summarizes one maintenance pass for the job-run ledger.
type RunStats struct {
	Evaluated int
	Added     int
	Removed   int
	Deferred  int
}

func (m *Maintainer) Run(ctx context.Context, chain chains.ID) (RunStats, error) {
	var runStats RunStats

	allStats, err := m.store.AllWalletStats(ctx, chain)
	if err != nil {
		return runStats, errkind.New(errkind.StoreUnavailable, "watchlist.all_wallet_stats", err, nil)
	}
	runStats.Evaluated = len(allStats)

	weights := m.weights.Current()
	ranked := rankAndScore(allStats, weights)

	sort.Slice(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	cutoffRank := m.thresholds.TopN
	for idx, scored := range ranked {
		belowTopN := idx >= cutoffRank
		eligible := !belowTopN &&
			scored.stats.TradeCount >= m.thresholds.MinTrades &&
			scored.stats.BestTradeMultiple >= m.thresholds.MinMultiple &&
			!scored.stats.IsBot

		if eligible {
			if m.activate(ctx, chain, scored) {
				runStats.Added++
			}
			continue
		}

		if m.shouldDeactivate(ctx, chain, scored, belowTopN, &runStats) {
			runStats.Removed++
		}
	}

	return runStats, nil
}

type scoredWallet struct {
	stats domain.WalletStats30D
	score float64
}

func rankAndScore(all []domain.WalletStats30D, weights [3]float64) []scoredWallet {
	pnlMetrics := make([]analytics.WalletMetric, len(all))
	actMetrics := make([]analytics.WalletMetric, len(all))
	earlyMetrics := make([]analytics.WalletMetric, len(all))
	for i, s := range all {
		pnlMetrics[i] = analytics.WalletMetric{Wallet: s.Wallet, Value: s.UnrealizedPnLUSD}
		actMetrics[i] = analytics.WalletMetric{Wallet: s.Wallet, Value: float64(s.TradeCount)}
		earlyMetrics[i] = analytics.WalletMetric{Wallet: s.Wallet, Value: s.EarlyScoreMedian}
	}
	pnlRanks := analytics.PercentileRanks(pnlMetrics)
	actRanks := analytics.PercentileRanks(actMetrics)
	earlyRanks := analytics.PercentileRanks(earlyMetrics)

	out := make([]scoredWallet, len(all))
	for i, s := range all {
		score := analytics.CompositeScore(weights, pnlRanks[s.Wallet], actRanks[s.Wallet], earlyRanks[s.Wallet])
		out[i] = scoredWallet{stats: s, score: score}
	}
	return out
}

func (m *Maintainer) activate(ctx context.Context, chain chains.ID, scored scoredWallet) bool {
	existing, found, _ := m.store.GetWatchlistEntry(ctx, chain, scored.stats.Wallet)
	addedAt := m.now()
	if found && existing.Status != domain.WatchlistRemoved {
		addedAt = existing.AddedAt
	}
	err := m.store.UpsertWatchlistEntry(ctx, domain.WatchlistEntry{
		Chain: chain, Wallet: scored.stats.Wallet, CompositeScore: scored.score,
		Status: domain.WatchlistActive, AddedAt: addedAt, LastEvaluatedAt: m.now(),
	})
	if err != nil {
		m.log.Error().Err(err).Str("wallet", scored.stats.Wallet).Msg("failed to activate watchlist entry")
		return false
	}
	return !found || existing.Status != domain.WatchlistActive
}

// shouldDeactivate applies spec.md §4.7's remove rule plus the top-N cap of
// spec.md §8 invariant 6, deferring (not removing) a wallet currently inside
// an active, unfired confluence window regardless of which condition fired.
func (m *Maintainer) shouldDeactivate(ctx context.Context, chain chains.ID, scored scoredWallet, belowTopN bool, runStats *RunStats) bool {
	existing, found, _ := m.store.GetWatchlistEntry(ctx, chain, scored.stats.Wallet)
	if !found || existing.Status != domain.WatchlistActive {
		return false // never active; nothing to remove
	}

	if m.windows != nil && m.windows.InActiveWindow(ctx, chain, scored.stats.Wallet) {
		runStats.Deferred++
		return false
	}

	removeReason := evaluateRemoveRule(scored.stats, m.thresholds)
	if removeReason == "" && belowTopN {
		removeReason = "fell_below_top_n"
	}
	if removeReason == "" {
		return false
	}

	err := m.store.UpsertWatchlistEntry(ctx, domain.WatchlistEntry{
		Chain: chain, Wallet: scored.stats.Wallet, CompositeScore: scored.score,
		Status: domain.WatchlistRemoved, AddedAt: existing.AddedAt, LastEvaluatedAt: m.now(),
	})
	if err != nil {
		m.log.Error().Err(err).Str("wallet", scored.stats.Wallet).Msg("failed to deactivate watchlist entry")
		return false
	}
	m.log.Debug().Str("wallet", scored.stats.Wallet).Str("reason", removeReason).Msg("wallet removed from watchlist")
	return true
}

// evaluateRemoveRule returns a non-empty reason if any of spec.md §4.7's
// remove conditions hold. Last-7-day vs prior-23-day PnL pacing requires
// per-day PnL history this aggregate doesn't retain, so that leg is left to
// a richer WalletStats30D revision; the remaining four conditions are
// evaluated here.
func evaluateRemoveRule(s domain.WalletStats30D, th Thresholds) string {
	switch {
	case s.UnrealizedPnLUSD < th.NegPnLThreshold:
		return "negative_unrealized_pnl"
	case s.TradeCount == 0:
		return "zero_trades_30d"
	case s.EarlyScoreMedian < th.MinEarlyMedian:
		return "early_score_below_minimum"
	case s.BestTradeMultiple < 2.0:
		return "best_multiple_below_2x"
	default:
		return ""
	}
}
