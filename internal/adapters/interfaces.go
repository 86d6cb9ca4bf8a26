// Package adapters defines the capability interfaces every upstream
// collaborator implements (spec.md §4.1) and the shared plumbing (TTL cache,
// rate limiting, registries) every concrete adapter is expected to use.
package adapters

import (
	"context"
	"time"

	"github.com/coinwatch/confluence/internal/chains"
)

// TokenSnapshot is one entry from a trending-token feed.
type TokenSnapshot struct {
	Address      string
	Symbol       string
	DisplayName  string
	PriceUSD     float64
	LiquidityUSD float64
	Vol24hUSD    float64
}

// TrendingSource returns the currently trending tokens on chain.
type TrendingSource interface {
	Name() string
	FetchTrending(ctx context.Context, chain chains.ID) ([]TokenSnapshot, error)
}

// Direction distinguishes incoming (buy-side) from outgoing (sell-side)
// wallet transfer queries.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// Transfer is a single raw token-transfer event from an on-chain source.
type Transfer struct {
	TxHash    string
	Block     uint64
	Timestamp time.Time
	From      string
	To        string
	Token     string
	Quantity  float64
	Venue     string
}

// TransferSource provides raw transfer history, per-token and per-wallet.
// Direction is mandatory for wallet-centric queries so buys (token flowing
// toward the wallet) and sells (token flowing away) can be requested
// independently (spec.md §4.1).
type TransferSource interface {
	Name() string
	FetchTokenTransfers(ctx context.Context, chain chains.ID, token string, fromBlock, toBlock uint64, limit int) ([]Transfer, error)
	FetchWalletTransfers(ctx context.Context, chain chains.ID, wallet string, dir Direction, fromBlock uint64, limit int) ([]Transfer, error)
}

// PriceSource returns the current USD price of (chain, token), or an
// errkind.PriceMissing error if the source has no quote for it.
type PriceSource interface {
	Name() string
	PriceOf(ctx context.Context, chain chains.ID, token string) (float64, error)
}

// SafetyResult is the outcome of a honeypot/tax check.
type SafetyResult struct {
	TaxBuyPct  float64
	TaxSellPct float64
	IsHoneypot bool
}

// SafetySource checks a token for honeypot/tax characteristics.
type SafetySource interface {
	Name() string
	SafetyCheck(ctx context.Context, chain chains.ID, token string) (SafetyResult, error)
}
