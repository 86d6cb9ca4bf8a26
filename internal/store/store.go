// Package store defines the persistence contract the pipeline runs against.
// Per spec.md §1/§6, the persistence engine itself is an external
// collaborator — only the logical schema and access pattern are prescribed.
// This package pins that contract down as Go interfaces so every component
// can be built and tested against a concrete implementation
// (internal/store/sqlite) without depending on its internals.
package store

import (
	"context"
	"time"

	"github.com/coinwatch/confluence/internal/chains"
	"github.com/coinwatch/confluence/internal/domain"
)

// TokenStore upserts and reads Token rows, keyed on (chain, address).
type TokenStore interface {
	UpsertToken(ctx context.Context, t domain.Token) error
	GetToken(ctx context.Context, key domain.TokenKey) (domain.Token, bool, error)
	InsertSeedToken(ctx context.Context, s domain.SeedToken) error
	// SeedTokensSince returns seed tokens whose snapshot_ts is within lookback
	// of now, one row per (chain, address) collapsed to its latest snapshot.
	SeedTokensSince(ctx context.Context, chain chains.ID, lookback time.Duration) ([]domain.SeedToken, error)
}

// WalletStore upserts and reads Wallet rows.
type WalletStore interface {
	UpsertWallet(ctx context.Context, w domain.Wallet) error
	GetWallet(ctx context.Context, key domain.WalletKey) (domain.Wallet, bool, error)
	SetLabels(ctx context.Context, key domain.WalletKey, labels []string) error
	WalletsObservedSince(ctx context.Context, since time.Time) ([]domain.WalletKey, error)
}

// TradeStore inserts Trades idempotently and reads them back for FIFO
// processing and confluence bookkeeping.
type TradeStore interface {
	// InsertTrade is a no-op (not an error) if tx_hash already exists,
	// satisfying the idempotent-ingest invariant of spec.md §3.
	InsertTrade(ctx context.Context, t domain.Trade) (inserted bool, err error)
	TradesForWallet(ctx context.Context, chain chains.ID, wallet string, since time.Time) ([]domain.Trade, error)
	TradesForWalletToken(ctx context.Context, chain chains.ID, wallet, token string) ([]domain.Trade, error)
	// TradesForToken returns every trade on (chain, token) since the given
	// time across all wallets, used to rank a buyer against the full
	// observed buyer set for the Being-Early score.
	TradesForToken(ctx context.Context, chain chains.ID, token string, since time.Time) ([]domain.Trade, error)
	TradeExists(ctx context.Context, txHash string) (bool, error)
	MostRecentTradePrice(ctx context.Context, chain chains.ID, token string) (float64, bool, error)
}

// StatsStore persists rolling wallet aggregates produced by C6.
type StatsStore interface {
	PutWalletStats(ctx context.Context, s domain.WalletStats30D) error
	GetWalletStats(ctx context.Context, chain chains.ID, wallet string) (domain.WalletStats30D, bool, error)
	AllWalletStats(ctx context.Context, chain chains.ID) ([]domain.WalletStats30D, error)
}

// WatchlistStore manages the active/removed/pending WatchlistEntry set.
type WatchlistStore interface {
	UpsertWatchlistEntry(ctx context.Context, e domain.WatchlistEntry) error
	ActiveWatchlist(ctx context.Context, chain chains.ID) ([]domain.WatchlistEntry, error)
	GetWatchlistEntry(ctx context.Context, chain chains.ID, wallet string) (domain.WatchlistEntry, bool, error)
	AlwaysWatch(ctx context.Context, chain chains.ID) ([]string, error)
}

// AlertStore is the append-only AlertRecord ledger and its dedup index.
type AlertStore interface {
	// InsertAlert is a no-op (not an error, inserted=false) if dedupKey
	// already has a recorded alert, enforcing spec.md §4.9's dedup rule.
	InsertAlert(ctx context.Context, a domain.AlertRecord) (inserted bool, err error)
	AlertExists(ctx context.Context, dedupKey string) (bool, error)
}

// Store aggregates every repository the pipeline needs. A concrete
// implementation (sqlite.Store) also owns the underlying connection and its
// lifecycle (Close).
type Store interface {
	TokenStore
	WalletStore
	TradeStore
	StatsStore
	WatchlistStore
	AlertStore

	Close() error
}
