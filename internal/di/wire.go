package di

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/coinwatch/confluence/internal/adapters"
	"github.com/coinwatch/confluence/internal/chains"
	"github.com/coinwatch/confluence/internal/config"
	"github.com/coinwatch/confluence/internal/confluence"
	"github.com/coinwatch/confluence/internal/domain"
	"github.com/coinwatch/confluence/internal/modules/alerts"
	"github.com/coinwatch/confluence/internal/modules/discovery"
	"github.com/coinwatch/confluence/internal/modules/ingest"
	"github.com/coinwatch/confluence/internal/modules/monitor"
	"github.com/coinwatch/confluence/internal/modules/prices"
	"github.com/coinwatch/confluence/internal/modules/stats"
	"github.com/coinwatch/confluence/internal/modules/watchlist"
	"github.com/coinwatch/confluence/internal/reliability"
	"github.com/coinwatch/confluence/internal/scheduler"
	"github.com/coinwatch/confluence/internal/store/sqlite"
)

// priceCacheTTL bounds how long the price enricher trusts a cached quote
// before asking its adapters again.
const priceCacheTTL = 60 * time.Second

// backupInterval is fixed rather than configurable: spec.md §7 names daily
// snapshots as the durability baseline, and nothing in the configuration
// table gives an operator a knob for it.
const backupInterval = 24 * time.Hour

// Wire builds a fully-populated Container: database, adapter registries,
// every pipeline module, and the scheduler with all jobs registered, in
// stages (store -> adapters -> confluence window -> alerts -> confluence
// detector -> prices -> pipeline modules -> reliability -> scheduler). Any
// failure after the store opens closes it
// before returning, so a half-wired Container never leaks an open file
// handle.
func Wire(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	db, err := sqlite.Open(cfg.DataDir + "/confluence.db")
	if err != nil {
		return nil, fmt.Errorf("di: open store: %w", err)
	}

	c := &Container{Config: cfg, Log: log, Store: db}

	// External upstream sources (trending feeds, honeypot checkers, transfer
	// indexers, price oracles) are a deployment concern outside this
	// module's scope (spec.md §1): the registries are built frozen and
	// empty here and passed to the modules below, which keep them; nothing
	// below assumes a non-empty registry, since every
	// module already treats "no adapters configured for this chain" as
	// zero results rather than an error.
	c.Adapters = Adapters{
		Trending:  adapters.NewRegistry[adapters.TrendingSource](),
		Safety:    adapters.NewRegistry[ingest.SafetyChecker](),
		Transfers: adapters.NewRegistry[adapters.TransferSource](),
		Prices:    adapters.NewRegistry[adapters.PriceSource](),
	}
	c.Adapters.Trending.Freeze()
	c.Adapters.Safety.Freeze()
	c.Adapters.Transfers.Freeze()
	c.Adapters.Prices.Freeze()

	c.Window = confluence.NewInMemoryWindowStore()

	c.Broadcaster = alerts.NewBroadcaster(log)
	dispatcher := alerts.NewDispatcher(db, []alerts.Sink{c.Broadcaster}, log)
	c.Dispatcher = dispatcher

	c.Detector = confluence.New(c.Window, dispatcherLedger{dispatcher}, cfg.MinConfluence, cfg.ConfluenceWindow, log.With().Str("component", "confluence").Logger(), uuid.NewString)

	c.PriceEnricher = prices.New(c.Adapters.Prices, db, priceCacheTTL, log)
	priceOf := func(ctx context.Context, chain chains.ID, token string) (float64, bool) {
		return c.PriceEnricher.PriceOf(ctx, chain, token)
	}

	c.Ingestor = ingest.New(db, c.Adapters.Trending, c.Adapters.Safety, ingest.GateFromConfig(cfg), log)

	c.Discoverer = discovery.New(db, c.Adapters.Transfers, priceOf, time.Duration(cfg.DiscoveryLookbackHours)*time.Hour,
		uint64(cfg.TransferBlockRange), cfg.PoolSendThreshold, log)

	c.Roller = stats.New(db, priceOf, 30*24*time.Hour, log)

	c.AdaptiveWeight = watchlist.NewAdaptiveWeights(cfg)
	c.Maintainer = watchlist.New(db, windowChecker{c.Window}, watchlist.DefaultThresholds(cfg), c.AdaptiveWeight, log)

	c.Monitor = monitor.New(db, c.Adapters.Transfers, c.Detector, c.AdaptiveWeight, priceOf,
		cfg.StablecoinExclusions, cfg.PoolSendThreshold, cfg.TransferBlockRange, log)

	c.Health = reliability.NewTracker()

	r2 := r2ConfigFromEnv()
	if r2.Enabled() {
		r2Client, err := reliability.NewR2Client(context.Background(), r2)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("di: build r2 client: %w", err)
		}
		c.Backup = reliability.NewBackupJob(db, r2Client, cfg.DataDir, log)
	}

	c.Scheduler = scheduler.New(c.Health, log)
	mods := scheduler.Modules{
		Ingestor:   c.Ingestor,
		Discoverer: c.Discoverer,
		Roller:     c.Roller,
		Maintainer: c.Maintainer,
		Monitor:    c.Monitor,
	}
	if err := scheduler.RegisterJobs(c.Scheduler, cfg, mods, nil, log); err != nil {
		db.Close()
		return nil, fmt.Errorf("di: register jobs: %w", err)
	}
	if c.Backup != nil {
		if err := c.Scheduler.Register(c.Backup, backupInterval); err != nil {
			db.Close()
			return nil, fmt.Errorf("di: register backup job: %w", err)
		}
	}

	return c, nil
}

// dispatcherLedger adapts alerts.Dispatcher (persist + fan out to sinks) to
// the narrower confluence.AlertLedger the detector depends on, so a fired
// confluence alert reaches the broadcaster (and any other configured sink)
// in the same call that persists it, rather than only reaching the
// database.
type dispatcherLedger struct {
	d *alerts.Dispatcher
}

func (l dispatcherLedger) InsertAlert(ctx context.Context, a domain.AlertRecord) (bool, error) {
	return l.d.Dispatch(ctx, a)
}

// windowChecker adapts confluence.InMemoryWindowStore.HasWallet to
// watchlist.ActiveWindowChecker.
type windowChecker struct {
	window *confluence.InMemoryWindowStore
}

func (w windowChecker) InActiveWindow(ctx context.Context, chain chains.ID, wallet string) bool {
	return w.window.HasWallet(ctx, string(chain), wallet)
}

// r2ConfigFromEnv reads the optional R2 backup credentials. Kept local to
// wire.go rather than config.Config, since backups are an operational
// add-on, not one of spec.md §6's core tunables, and are silently disabled
// (not a Load-time validation error) when absent.
func r2ConfigFromEnv() reliability.R2Config {
	return reliability.R2Config{
		AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		BucketName:      os.Getenv("R2_BUCKET_NAME"),
	}
}
