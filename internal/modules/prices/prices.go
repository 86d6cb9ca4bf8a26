// Package prices implements C4: current-price resolution with adapter
// fallback order, a short-TTL cache, and a most-recent-trade fallback so a
// full miss degrades to "no price" rather than a fabricated value.
package prices

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/coinwatch/confluence/internal/adapters"
	"github.com/coinwatch/confluence/internal/chains"
	"github.com/coinwatch/confluence/internal/errkind"
)

// TradeHistory is the fallback collaborator: the most recent observed Trade
// price for (chain, token), per spec.md §4.4.
type TradeHistory interface {
	MostRecentTradePrice(ctx context.Context, chain chains.ID, token string) (float64, bool, error)
}

// Enricher resolves current USD prices, caching price-source hits for the
// cacheTTL passed to New (Wire passes 60s, per spec.md §4.4).
type Enricher struct {
	sources *adapters.Registry[adapters.PriceSource]
	cache   *adapters.TTLCache[float64]
	history TradeHistory
	log     zerolog.Logger
}

func New(sources *adapters.Registry[adapters.PriceSource], history TradeHistory, cacheTTL time.Duration, log zerolog.Logger) *Enricher {
	return &Enricher{
		sources: sources,
		cache:   adapters.NewTTLCache[float64](cacheTTL),
		history: history,
		log:     log.With().Str("component", "prices").Logger(),
	}
}

// cacheKey composites chain+token since the TTLCache is untyped on key shape.
func cacheKey(chain chains.ID, token string) string { return string(chain) + ":" + token }

// PriceOf returns the current USD price, or ok=false if every source and the
// trade-history fallback missed. Never fabricates a value (spec.md §4.4/§7
// PriceMissing).
func (e *Enricher) PriceOf(ctx context.Context, chain chains.ID, token string) (float64, bool) {
	key := cacheKey(chain, token)
	if cached, ok := e.cache.Get(key); ok {
		return cached, true
	}

	for _, source := range e.sources.For(chain) {
		price, err := source.PriceOf(ctx, chain, token)
		if err != nil {
			if !errkind.Is(err, errkind.PriceMissing) {
				e.log.Debug().Err(err).Str("source", source.Name()).Str("token", token).Msg("price source call failed")
			}
			continue
		}
		e.cache.Set(key, price)
		return price, true
	}

	if price, ok, err := e.history.MostRecentTradePrice(ctx, chain, token); err == nil && ok {
		return price, true
	}

	return 0, false
}

// Lookup adapts PriceOf to the analytics.PriceLookup function shape used by
// FIFO unrealized-PnL computation.
func (e *Enricher) Lookup(ctx context.Context, chain chains.ID) func(token string) (float64, bool) {
	return func(token string) (float64, bool) { return e.PriceOf(ctx, chain, token) }
}
