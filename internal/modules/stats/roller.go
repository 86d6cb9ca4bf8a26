// Package stats implements C6: full, non-incremental recomputation of
// WalletStats30D for every wallet observed in the trailing window.
package stats

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/coinwatch/confluence/internal/chains"
	"github.com/coinwatch/confluence/internal/domain"
	"github.com/coinwatch/confluence/internal/errkind"
	"github.com/coinwatch/confluence/internal/modules/analytics"
)

// Store is the subset C6 reads and writes.
type Store interface {
	WalletsObservedSince(ctx context.Context, since time.Time) ([]domain.WalletKey, error)
	TradesForWallet(ctx context.Context, chain chains.ID, wallet string, since time.Time) ([]domain.Trade, error)
	TradesForToken(ctx context.Context, chain chains.ID, token string, since time.Time) ([]domain.Trade, error)
	GetToken(ctx context.Context, key domain.TokenKey) (domain.Token, bool, error)
	PutWalletStats(ctx context.Context, s domain.WalletStats30D) error
}

// Roller recomputes WalletStats30D from scratch every run, per spec.md §4.6's
// "full recomputation, not incremental, to avoid drift."
type Roller struct {
	store   Store
	priceOf func(ctx context.Context, chain chains.ID, token string) (float64, bool)
	window  time.Duration
	log     zerolog.Logger
	now     func() time.Time
}

func New(store Store, priceOf func(ctx context.Context, chain chains.ID, token string) (float64, bool), window time.Duration, log zerolog.Logger) *Roller {
	return &Roller{store: store, priceOf: priceOf, window: window, log: log.With().Str("component", "stats").Logger(), now: time.Now}
}

// RunStats summarizes one roll for the job-run ledger.
type RunStats struct {
	WalletsScanned int
	BotsFlagged    int
}

// Run recomputes stats for every wallet observed on chain within the window.
// Per spec.md §8's round-trip law, running this twice with no new trades
// must produce byte-identical WalletStats30D rows: every input here (trade
// history, token metadata, current price) is either append-only or supplied
// by the caller, so two runs with an unchanged store and clock converge to
// the same bytes.
func (r *Roller) Run(ctx context.Context, chain chains.ID) (RunStats, error) {
	var runStats RunStats
	since := r.now().Add(-r.window)

	wallets, err := r.store.WalletsObservedSince(ctx, since)
	if err != nil {
		return runStats, errkind.New(errkind.StoreUnavailable, "stats.wallets_observed_since", err, nil)
	}

	for _, key := range wallets {
		if key.Chain != chain {
			continue
		}
		flaggedBot, err := r.rollWallet(ctx, key, since)
		if err != nil {
			r.log.Error().Err(err).Str("wallet", key.Address).Msg("failed to roll wallet stats, skipping")
			continue
		}
		runStats.WalletsScanned++
		if flaggedBot {
			runStats.BotsFlagged++
		}
	}
	return runStats, nil
}

func (r *Roller) rollWallet(ctx context.Context, key domain.WalletKey, since time.Time) (bool, error) {
	trades, err := r.store.TradesForWallet(ctx, key.Chain, key.Address, since)
	if err != nil {
		return false, errkind.New(errkind.StoreUnavailable, "stats.trades_for_wallet", err, map[string]any{"wallet": key.Address})
	}

	byToken := make(map[string][]domain.Trade, len(trades))
	for _, tr := range trades {
		byToken[tr.Token] = append(byToken[tr.Token], tr)
	}

	var realized, unrealized, maxMultiple float64
	var matchesAll []analytics.MatchedSell
	var earlyScores []float64

	for token, tokenTrades := range byToken {
		result, matches := analytics.ComputeFIFO(key.Chain, key.Address, token, tokenTrades)
		realized += result.Position.RealizedPnLUSD
		unrealized += analytics.UnrealizedPnL(result.Position, func(t string) (float64, bool) { return r.priceOf(ctx, key.Chain, t) })
		matchesAll = append(matchesAll, matches...)

		scores, err := r.earlyScoresFor(ctx, key, token, since)
		if err != nil {
			return false, err
		}
		earlyScores = append(earlyScores, scores...)
	}
	maxMultiple = analytics.BestTradeMultiple(matchesAll)

	windowDays := r.window.Hours() / 24
	botInputs := analytics.DeriveBotHeuristicInputs(trades, windowDays)
	isBot := analytics.IsBot(botInputs)

	s := domain.WalletStats30D{
		Wallet: key.Address, Chain: key.Chain,
		TradeCount:        len(trades),
		RealizedPnLUSD:    realized,
		UnrealizedPnLUSD:  unrealized,
		BestTradeMultiple: maxMultiple,
		EarlyScoreMedian:  analytics.MedianEarlyScore(earlyScores),
		IsBot:             isBot,
		UpdatedAt:         r.now(),
	}

	if err := r.store.PutWalletStats(ctx, s); err != nil {
		return isBot, errkind.New(errkind.StoreUnavailable, "stats.put_wallet_stats", err, map[string]any{"wallet": key.Address})
	}
	return isBot, nil
}

// earlyScoresFor scores wallet's buys of token against the full set of
// observed buyers for that token, using the token's current liquidity-based
// market cap estimate and 24h volume as the best available proxy for their
// values at each individual buy's time (the store does not retain a
// per-timestamp token snapshot beyond SeedToken's trending-feed appearance).
func (r *Roller) earlyScoresFor(ctx context.Context, key domain.WalletKey, token string, since time.Time) ([]float64, error) {
	allBuyers, err := r.store.TradesForToken(ctx, key.Chain, token, since)
	if err != nil {
		return nil, errkind.New(errkind.StoreUnavailable, "stats.trades_for_token", err, map[string]any{"token": token})
	}

	t, ok, err := r.store.GetToken(ctx, domain.TokenKey{Chain: key.Chain, Address: token})
	if err != nil {
		return nil, errkind.New(errkind.StoreUnavailable, "stats.get_token", err, map[string]any{"token": token})
	}
	if !ok {
		return nil, nil
	}

	return analytics.BuyScoresForWallet(key.Address, allBuyers, t.MarketCapEstimate(), t.Volume24hUSD), nil
}
