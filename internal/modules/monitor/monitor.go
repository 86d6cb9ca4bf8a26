// Package monitor implements C8: polls the active watchlist plus the
// always-watch set, classifies each wallet's recent transfers with the same
// pool heuristic C3 uses, and feeds newly observed trades into C9.
package monitor

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/coinwatch/confluence/internal/adapters"
	"github.com/coinwatch/confluence/internal/chains"
	"github.com/coinwatch/confluence/internal/domain"
	"github.com/coinwatch/confluence/internal/errkind"
	"github.com/coinwatch/confluence/internal/modules/alerts"
	"github.com/coinwatch/confluence/internal/modules/discovery"
)

// Store is the subset C8 reads and writes.
type Store interface {
	ActiveWatchlist(ctx context.Context, chain chains.ID) ([]domain.WatchlistEntry, error)
	AlwaysWatch(ctx context.Context, chain chains.ID) ([]string, error)
	InsertTrade(ctx context.Context, t domain.Trade) (bool, error)
	GetWalletStats(ctx context.Context, chain chains.ID, wallet string) (domain.WalletStats30D, bool, error)
}

// ConfluenceEvaluator is the narrow slice of confluence.Detector C8 drives.
type ConfluenceEvaluator interface {
	Evaluate(ctx context.Context, chain chains.ID, side domain.Side, token, wallet string, ts time.Time, weights [3]float64, snapshot []byte) (*domain.AlertRecord, error)
}

// WeightsSource supplies the composite-score weights to snapshot onto any
// AlertRecord produced this tick.
type WeightsSource interface {
	Current() [3]float64
}

// PriceAt resolves an observed trade's price the same way C3 does.
type PriceAt func(ctx context.Context, chain chains.ID, token string) (float64, bool)

// Monitor runs C8 for one scheduler tick.
type Monitor struct {
	store          Store
	transfers      *adapters.Registry[adapters.TransferSource]
	confluence     ConfluenceEvaluator
	weights        WeightsSource
	priceAt        PriceAt
	stablecoins    map[string]bool
	poolThreshold  int
	transfersLimit int
	log            zerolog.Logger
}

func New(store Store, transfers *adapters.Registry[adapters.TransferSource], confluence ConfluenceEvaluator, weights WeightsSource, priceAt PriceAt, stablecoins map[string]bool, poolThreshold, transfersLimit int, log zerolog.Logger) *Monitor {
	return &Monitor{
		store: store, transfers: transfers, confluence: confluence, weights: weights, priceAt: priceAt,
		stablecoins: stablecoins, poolThreshold: poolThreshold, transfersLimit: transfersLimit,
		log: log.With().Str("component", "monitor").Logger(),
	}
}

// RunStats summarizes one monitor tick for the job-run ledger.
type RunStats struct {
	WalletsPolled  int
	TradesNew      int
	AlertsEmitted  int
	WalletFailures int
}

func (mon *Monitor) RunChain(ctx context.Context, chain chains.ID, fromBlock uint64) (RunStats, error) {
	var runStats RunStats

	active, err := mon.store.ActiveWatchlist(ctx, chain)
	if err != nil {
		return runStats, errkind.New(errkind.StoreUnavailable, "monitor.active_watchlist", err, nil)
	}
	always, err := mon.store.AlwaysWatch(ctx, chain)
	if err != nil {
		return runStats, errkind.New(errkind.StoreUnavailable, "monitor.always_watch", err, nil)
	}

	wallets := make(map[string]bool, len(active)+len(always))
	for _, e := range active {
		wallets[e.Wallet] = true
	}
	for _, w := range always {
		wallets[w] = true
	}

	for wallet := range wallets {
		runStats.WalletsPolled++
		// Individual wallet fetch failures are isolated, per spec.md §4.9's
		// failure semantics: a failure on one wallet never blocks another.
		if err := mon.pollWallet(ctx, chain, wallet, fromBlock, &runStats); err != nil {
			mon.log.Warn().Err(err).Str("wallet", wallet).Msg("wallet poll failed, continuing with remaining wallets")
			runStats.WalletFailures++
		}
	}

	return runStats, nil
}

func (mon *Monitor) pollWallet(ctx context.Context, chain chains.ID, wallet string, fromBlock uint64, runStats *RunStats) error {
	var classified []discovery.ClassifiedTrade
	for _, dir := range []adapters.Direction{adapters.DirectionIn, adapters.DirectionOut} {
		for _, source := range mon.transfers.For(chain) {
			batch, err := source.FetchWalletTransfers(ctx, chain, wallet, dir, fromBlock, mon.transfersLimit)
			if err != nil {
				continue // next adapter in fallback order
			}
			classified = append(classified, discovery.ClassifyWalletCentric(wallet, dir, batch, mon.poolThreshold)...)
			break
		}
	}

	for _, c := range classified {
		if mon.stablecoins[strings.ToLower(c.Transfer.Token)] {
			continue // PolicyReject: stablecoin/wrapped-native exclusion
		}

		price, _ := mon.priceAt(ctx, chain, c.Transfer.Token)
		trade := domain.Trade{
			TxHash: c.Transfer.TxHash, Chain: chain, Timestamp: c.Transfer.Timestamp,
			Wallet: wallet, Token: c.Transfer.Token, Side: c.Side,
			Quantity: c.Transfer.Quantity, UnitPriceUSD: price, ValueUSD: price * c.Transfer.Quantity,
			Venue: c.Transfer.Venue,
		}
		inserted, err := mon.store.InsertTrade(ctx, trade)
		if err != nil {
			return errkind.New(errkind.StoreUnavailable, "monitor.insert_trade", err, map[string]any{"wallet": wallet})
		}
		if !inserted {
			continue // already observed this tx_hash
		}
		runStats.TradesNew++

		snapshot := mon.walletSnapshot(ctx, chain, wallet)

		alert, err := mon.confluence.Evaluate(ctx, chain, c.Side, c.Transfer.Token, wallet, c.Transfer.Timestamp, mon.weights.Current(), snapshot)
		if err != nil {
			mon.log.Warn().Err(err).Str("wallet", wallet).Msg("confluence evaluation failed this tick")
			continue
		}
		if alert != nil {
			runStats.AlertsEmitted++
		}
	}
	return nil
}

// walletSnapshot builds the spec.md §6 per-wallet 30-day stats payload an
// alert carries, so a consumer of the live feed sees why the wallet was
// worth watching without a follow-up query. A missing or unreadable stats
// row yields a nil snapshot rather than failing the trade that triggered it.
func (mon *Monitor) walletSnapshot(ctx context.Context, chain chains.ID, wallet string) []byte {
	stats, found, err := mon.store.GetWalletStats(ctx, chain, wallet)
	if err != nil || !found {
		return nil
	}
	snap, err := alerts.EncodeSnapshot([]alerts.WalletSnapshot{{
		Wallet:            stats.Wallet,
		RealizedPnLUSD:    stats.RealizedPnLUSD,
		UnrealizedPnLUSD:  stats.UnrealizedPnLUSD,
		BestTradeMultiple: stats.BestTradeMultiple,
		EarlyScoreMedian:  stats.EarlyScoreMedian,
	}})
	if err != nil {
		mon.log.Warn().Err(err).Str("wallet", wallet).Msg("failed to encode wallet snapshot")
		return nil
	}
	return snap
}
