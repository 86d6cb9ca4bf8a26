// Package ingest implements C2: pulls trending tokens from every configured
// TrendingSource, applies the safety gate, and persists accepted tokens.
package ingest

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/coinwatch/confluence/internal/adapters"
	"github.com/coinwatch/confluence/internal/chains"
	"github.com/coinwatch/confluence/internal/config"
	"github.com/coinwatch/confluence/internal/domain"
	"github.com/coinwatch/confluence/internal/errkind"
)

// SafetyGate is the accept/reject policy of spec.md §4.2, evaluated before a
// trending snapshot becomes a SeedToken.
type SafetyGate struct {
	MinLiquidityUSD float64
	MinVolume24hUSD float64
	MaxTaxPct       float64
	Exclusions      map[string]bool
}

func GateFromConfig(cfg *config.Config) SafetyGate {
	return SafetyGate{
		MinLiquidityUSD: cfg.MinLiquidityUSD,
		MinVolume24hUSD: cfg.MinVolume24hUSD,
		MaxTaxPct:       cfg.MaxTaxPct,
		Exclusions:      cfg.StablecoinExclusions,
	}
}

// Evaluate returns ("", true) if snap passes the gate, or a rejection reason
// and false otherwise. Safety (tax/honeypot) is checked separately since it
// requires an adapter call; pass zero SafetyResult to skip that leg.
func (g SafetyGate) Evaluate(snap adapters.TokenSnapshot, safety adapters.SafetyResult) (reason string, ok bool) {
	if g.Exclusions[strings.ToLower(snap.Address)] {
		return "stablecoin_or_wrapped_native", false
	}
	if snap.LiquidityUSD < g.MinLiquidityUSD {
		return "liquidity_below_minimum", false
	}
	if snap.Vol24hUSD < g.MinVolume24hUSD {
		return "volume_below_minimum", false
	}
	if safety.IsHoneypot {
		return "honeypot", false
	}
	if safety.TaxBuyPct > g.MaxTaxPct || safety.TaxSellPct > g.MaxTaxPct {
		return "tax_above_maximum", false
	}
	return "", true
}

// TokenStore is the subset of store.Store the ingestor writes to.
type TokenStore interface {
	UpsertToken(ctx context.Context, t domain.Token) error
	InsertSeedToken(ctx context.Context, s domain.SeedToken) error
}

// SafetyChecker wraps adapters.SafetySource behind a narrower name so this
// package's dependency surface reads at a glance.
type SafetyChecker interface {
	SafetyCheck(ctx context.Context, chain chains.ID, token string) (adapters.SafetyResult, error)
}

// Ingestor runs C2 for one scheduler tick across every configured chain.
type Ingestor struct {
	store    TokenStore
	trending *adapters.Registry[adapters.TrendingSource]
	safety   *adapters.Registry[SafetyChecker]
	gate     SafetyGate
	log      zerolog.Logger
	now      func() time.Time
}

func New(store TokenStore, trending *adapters.Registry[adapters.TrendingSource], safety *adapters.Registry[SafetyChecker], gate SafetyGate, log zerolog.Logger) *Ingestor {
	return &Ingestor{store: store, trending: trending, safety: safety, gate: gate, log: log.With().Str("component", "ingest").Logger(), now: time.Now}
}

// RunStats summarizes one ingest run for the job-run ledger.
type RunStats struct {
	Chain     chains.ID
	Observed  int
	Accepted  int
	Rejected  int
	Transient int
}

// RunChain ingests one chain: union every TrendingSource's results,
// deduplicate by address, evaluate the safety gate, and upsert accepted
// tokens plus their SeedToken snapshot.
func (i *Ingestor) RunChain(ctx context.Context, chain chains.ID) (RunStats, error) {
	stats := RunStats{Chain: chain}
	union := i.unionTrending(ctx, chain, &stats)

	snapshotTS := i.now()
	for _, snap := range union {
		addr, err := chains.NormalizeAddress(chain, snap.Address)
		if err != nil {
			i.log.Debug().Err(err).Str("address", snap.Address).Msg("rejected: unparsable address")
			stats.Rejected++
			continue
		}
		snap.Address = addr

		safetyResult := i.checkSafety(ctx, chain, addr)
		reason, ok := i.gate.Evaluate(snap, safetyResult)
		if !ok {
			i.log.Debug().Str("chain", string(chain)).Str("address", addr).Str("reason", reason).Msg("token rejected by safety gate")
			stats.Rejected++
			continue
		}

		token := domain.Token{
			Chain: chain, Address: addr, Symbol: snap.Symbol, DisplayName: snap.DisplayName,
			LiquidityUSD: snap.LiquidityUSD, Volume24hUSD: snap.Vol24hUSD, LastPriceUSD: snap.PriceUSD,
			TaxBuyPct: safetyResult.TaxBuyPct, TaxSellPct: safetyResult.TaxSellPct, IsHoneypot: safetyResult.IsHoneypot,
			CreatedAt: snapshotTS,
		}
		if err := i.store.UpsertToken(ctx, token); err != nil {
			return stats, errkind.New(errkind.StoreUnavailable, "ingest.upsert_token", err, map[string]any{"chain": chain, "address": addr})
		}
		if err := i.store.InsertSeedToken(ctx, domain.SeedToken{Chain: chain, Address: addr, Source: "trending", SnapshotTS: snapshotTS}); err != nil {
			return stats, errkind.New(errkind.StoreUnavailable, "ingest.insert_seed", err, map[string]any{"chain": chain, "address": addr})
		}
		stats.Accepted++
	}

	return stats, nil
}

func (i *Ingestor) unionTrending(ctx context.Context, chain chains.ID, stats *RunStats) []adapters.TokenSnapshot {
	seen := make(map[string]bool)
	var union []adapters.TokenSnapshot
	for _, source := range i.trending.For(chain) {
		snaps, err := source.FetchTrending(ctx, chain)
		if err != nil {
			i.log.Warn().Err(err).Str("source", source.Name()).Str("chain", string(chain)).Msg("trending source failed this tick")
			stats.Transient++
			continue
		}
		for _, s := range snaps {
			stats.Observed++
			key := strings.ToLower(s.Address)
			if seen[key] {
				continue
			}
			seen[key] = true
			union = append(union, s)
		}
	}
	return union
}

func (i *Ingestor) checkSafety(ctx context.Context, chain chains.ID, addr string) adapters.SafetyResult {
	for _, checker := range i.safety.For(chain) {
		result, err := checker.SafetyCheck(ctx, chain, addr)
		if err != nil {
			i.log.Debug().Err(err).Str("address", addr).Msg("safety check failed, treating as unknown")
			continue
		}
		return result
	}
	return adapters.SafetyResult{}
}
