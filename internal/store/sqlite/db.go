// Package sqlite is the reference Store implementation (internal/store),
// backed by a pure-Go SQLite driver so the whole pipeline runs without cgo.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"github.com/coinwatch/confluence/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store wraps a *sql.DB configured for the pipeline's access pattern: many
// small writers committing per-entity, one writer at a time enforced by
// SQLite's own locking, WAL for read/write concurrency.
type Store struct {
	db *sql.DB
}

// Open creates (if needed) and connects to a SQLite database at path. Pass
// "file::memory:?cache=shared" for an in-process, in-memory store (tests).
func Open(path string) (*Store, error) {
	if !strings.HasPrefix(path, "file:") {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("sqlite: resolve path: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: create data dir: %w", err)
		}
		path = abs
	}

	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// SQLite allows exactly one writer; keep the pool small so callers queue
	// at the driver instead of failing with SQLITE_BUSY under load.
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}
	return s, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// schema is the logical table layout of spec.md §6, with the required
// indices: trades(wallet, ts desc), trades(token, ts desc),
// trades(chain, ts desc), unique trades(tx_hash).
const schema = `
CREATE TABLE IF NOT EXISTS tokens (
	chain         TEXT NOT NULL,
	address       TEXT NOT NULL,
	symbol        TEXT NOT NULL DEFAULT '',
	display_name  TEXT NOT NULL DEFAULT '',
	liquidity_usd REAL NOT NULL DEFAULT 0,
	volume24h_usd REAL NOT NULL DEFAULT 0,
	last_price_usd REAL NOT NULL DEFAULT 0,
	tax_buy_pct   REAL NOT NULL DEFAULT 0,
	tax_sell_pct  REAL NOT NULL DEFAULT 0,
	is_honeypot   INTEGER NOT NULL DEFAULT 0,
	created_at    TEXT NOT NULL,
	PRIMARY KEY (chain, address)
);

CREATE TABLE IF NOT EXISTS seed_tokens (
	chain       TEXT NOT NULL,
	address     TEXT NOT NULL,
	source      TEXT NOT NULL,
	snapshot_ts TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_seed_tokens_lookup ON seed_tokens(chain, snapshot_ts DESC);

CREATE TABLE IF NOT EXISTS wallets (
	chain         TEXT NOT NULL,
	address       TEXT NOT NULL,
	first_seen_at TEXT NOT NULL,
	labels        TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (chain, address)
);

CREATE TABLE IF NOT EXISTS trades (
	tx_hash        TEXT NOT NULL PRIMARY KEY,
	chain          TEXT NOT NULL,
	ts             TEXT NOT NULL,
	wallet         TEXT NOT NULL,
	token          TEXT NOT NULL,
	side           TEXT NOT NULL,
	quantity       REAL NOT NULL,
	unit_price_usd REAL NOT NULL,
	value_usd      REAL NOT NULL,
	venue          TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_trades_wallet_ts ON trades(wallet, ts DESC);
CREATE INDEX IF NOT EXISTS idx_trades_token_ts ON trades(token, ts DESC);
CREATE INDEX IF NOT EXISTS idx_trades_chain_ts ON trades(chain, ts DESC);

CREATE TABLE IF NOT EXISTS wallet_stats_30d (
	chain               TEXT NOT NULL,
	wallet              TEXT NOT NULL,
	trade_count         INTEGER NOT NULL DEFAULT 0,
	realized_pnl_usd    REAL NOT NULL DEFAULT 0,
	unrealized_pnl_usd  REAL NOT NULL DEFAULT 0,
	best_trade_multiple REAL NOT NULL DEFAULT 0,
	early_score_median  REAL NOT NULL DEFAULT 0,
	max_drawdown_pct    REAL NOT NULL DEFAULT 0,
	is_bot              INTEGER NOT NULL DEFAULT 0,
	updated_at          TEXT NOT NULL,
	PRIMARY KEY (chain, wallet)
);

CREATE TABLE IF NOT EXISTS watchlist (
	chain             TEXT NOT NULL,
	wallet            TEXT NOT NULL,
	composite_score   REAL NOT NULL DEFAULT 0,
	status            TEXT NOT NULL,
	added_at          TEXT NOT NULL,
	last_evaluated_at TEXT NOT NULL,
	always_watch      INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (chain, wallet)
);

CREATE TABLE IF NOT EXISTS alerts (
	id              TEXT NOT NULL PRIMARY KEY,
	dedup_key       TEXT NOT NULL UNIQUE,
	kind            TEXT NOT NULL,
	chain           TEXT NOT NULL,
	token           TEXT NOT NULL,
	side            TEXT NOT NULL,
	wallets         TEXT NOT NULL,
	window_ms       INTEGER NOT NULL,
	weight_pnl      REAL NOT NULL,
	weight_act      REAL NOT NULL,
	weight_early    REAL NOT NULL,
	prices_snapshot BLOB,
	created_at      TEXT NOT NULL
);
`
