package discovery

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/coinwatch/confluence/internal/adapters"
	"github.com/coinwatch/confluence/internal/chains"
	"github.com/coinwatch/confluence/internal/domain"
	"github.com/coinwatch/confluence/internal/errkind"
)

// Store is the subset C3 reads and writes.
type Store interface {
	SeedTokensSince(ctx context.Context, chain chains.ID, lookback time.Duration) ([]domain.SeedToken, error)
	UpsertWallet(ctx context.Context, w domain.Wallet) error
	InsertTrade(ctx context.Context, t domain.Trade) (bool, error)
}

// PriceAt resolves a trade's observed-at price, enriched at ingest time per
// spec.md §4.3 ("trades retain a price at observe, later superseded only for
// unrealized PnL"). ok=false yields UnitPriceUSD=0, recorded as-is.
type PriceAt func(ctx context.Context, chain chains.ID, token string) (float64, bool)

// Discoverer runs C3: for each lookback-fresh SeedToken, pulls recent token
// transfers and persists the buys it can attribute to a real wallet.
type Discoverer struct {
	store         Store
	transfers     *adapters.Registry[adapters.TransferSource]
	priceAt       PriceAt
	lookback      time.Duration
	blockRange    uint64
	poolThreshold int
	log           zerolog.Logger
	now           func() time.Time
}

func New(store Store, transfers *adapters.Registry[adapters.TransferSource], priceAt PriceAt, lookback time.Duration, blockRange uint64, poolThreshold int, log zerolog.Logger) *Discoverer {
	return &Discoverer{
		store: store, transfers: transfers, priceAt: priceAt,
		lookback: lookback, blockRange: blockRange, poolThreshold: poolThreshold,
		log: log.With().Str("component", "discovery").Logger(), now: time.Now,
	}
}

// RunStats summarizes one discovery run for the job-run ledger.
type RunStats struct {
	Chain         chains.ID
	SeedsScanned  int
	TradesFound   int
	TradesNew     int
	SourceFailure int
}

func (d *Discoverer) RunChain(ctx context.Context, chain chains.ID, currentBlock uint64) (RunStats, error) {
	stats := RunStats{Chain: chain}

	seeds, err := d.store.SeedTokensSince(ctx, chain, d.lookback)
	if err != nil {
		return stats, errkind.New(errkind.StoreUnavailable, "discovery.seed_tokens_since", err, map[string]any{"chain": chain})
	}
	stats.SeedsScanned = len(seeds)

	fromBlock := uint64(0)
	if currentBlock > d.blockRange {
		fromBlock = currentBlock - d.blockRange
	}

	for _, seed := range seeds {
		d.processSeed(ctx, chain, seed, fromBlock, currentBlock, &stats)
	}
	return stats, nil
}

func (d *Discoverer) processSeed(ctx context.Context, chain chains.ID, seed domain.SeedToken, fromBlock, toBlock uint64, stats *RunStats) {
	var transfers []adapters.Transfer
	for _, source := range d.transfers.For(chain) {
		batch, err := source.FetchTokenTransfers(ctx, chain, seed.Address, fromBlock, toBlock, 5000)
		if err != nil {
			d.log.Warn().Err(err).Str("source", source.Name()).Str("token", seed.Address).Msg("transfer source failed this tick")
			stats.SourceFailure++
			continue
		}
		transfers = append(transfers, batch...)
		break // first adapter that answers wins; fallback order is explicit config
	}
	if len(transfers) == 0 {
		return
	}

	classified := ClassifyTokenCentric(transfers, d.poolThreshold)
	stats.TradesFound += len(classified)

	for _, c := range classified {
		if c.Side != domain.SideBuy {
			continue // C3 discovers new buyers; sells are handled by C8 once watched
		}
		d.persist(ctx, chain, seed.Address, c, stats)
	}
}

func (d *Discoverer) persist(ctx context.Context, chain chains.ID, token string, c ClassifiedTrade, stats *RunStats) {
	if err := d.store.UpsertWallet(ctx, domain.Wallet{Chain: chain, Address: c.Wallet, FirstSeenAt: c.Transfer.Timestamp}); err != nil {
		d.log.Error().Err(err).Str("wallet", c.Wallet).Msg("failed to upsert wallet, skipping trade")
		return
	}

	price, _ := d.priceAt(ctx, chain, token)
	trade := domain.Trade{
		TxHash: c.Transfer.TxHash, Chain: chain, Timestamp: c.Transfer.Timestamp,
		Wallet: c.Wallet, Token: token, Side: c.Side,
		Quantity: c.Transfer.Quantity, UnitPriceUSD: price, ValueUSD: price * c.Transfer.Quantity,
		Venue: c.Transfer.Venue,
	}
	inserted, err := d.store.InsertTrade(ctx, trade)
	if err != nil {
		d.log.Error().Err(err).Str("tx_hash", trade.TxHash).Msg("failed to insert trade")
		return
	}
	if inserted {
		stats.TradesNew++
	}
}
