// Package di wires every module of the pipeline into one Container via a
// staged Wire() constructor, sized to this module's single-database,
// single-process architecture.
package di

import (
	"github.com/rs/zerolog"

	"github.com/coinwatch/confluence/internal/adapters"
	"github.com/coinwatch/confluence/internal/config"
	"github.com/coinwatch/confluence/internal/confluence"
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

// Adapters groups the per-chain fallback registries every upstream-facing
// module reads from. Concrete source implementations (a CoinGecko trending
// client, an Etherscan/Solscan transfer client, a honeypot-check client,
// and so on) are an external/deployment concern outside this module's
// scope (spec.md §1) — Wire builds these frozen and empty and hands them to
// the pipeline modules it constructs. Those modules keep the registries they
// were built with, so a registry set on the Container after Wire returns is
// not seen by them.
type Adapters struct {
	Trending  *adapters.Registry[adapters.TrendingSource]
	Safety    *adapters.Registry[ingest.SafetyChecker]
	Transfers *adapters.Registry[adapters.TransferSource]
	Prices    *adapters.Registry[adapters.PriceSource]
}

// Container holds every constructed dependency, the single source of truth
// handed to the scheduler and the status server.
type Container struct {
	Config *config.Config
	Log    zerolog.Logger
	Store  *sqlite.Store

	Adapters Adapters

	PriceEnricher *prices.Enricher
	Ingestor      *ingest.Ingestor
	Discoverer    *discovery.Discoverer
	Roller        *stats.Roller
	Maintainer    *watchlist.Maintainer
	Monitor       *monitor.Monitor

	Window         *confluence.InMemoryWindowStore
	Detector       *confluence.Detector
	AdaptiveWeight *watchlist.AdaptiveWeights

	Broadcaster *alerts.Broadcaster
	Dispatcher  *alerts.Dispatcher

	Health    *reliability.Tracker
	Scheduler *scheduler.Scheduler
	Backup    *reliability.BackupJob // nil if R2 isn't configured
}

// Close releases every resource the Container owns that needs explicit
// cleanup. Safe to call even if Wire returned partway through (fields left
// zero-valued are skipped).
func (c *Container) Close() error {
	if c.Store != nil {
		return c.Store.Close()
	}
	return nil
}
