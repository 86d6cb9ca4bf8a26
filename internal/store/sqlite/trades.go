package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/coinwatch/confluence/internal/chains"
	"github.com/coinwatch/confluence/internal/domain"
)

// InsertTrade satisfies the idempotent-ingest invariant (spec.md §3): a
// duplicate tx_hash is silently ignored (ON CONFLICT DO NOTHING), reporting
// inserted=false rather than an error, since "trade already recorded" is
// expected, not exceptional.
func (s *Store) InsertTrade(ctx context.Context, t domain.Trade) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO trades (tx_hash, chain, ts, wallet, token, side, quantity, unit_price_usd, value_usd, venue)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tx_hash) DO NOTHING`,
		t.TxHash, string(t.Chain), formatTime(t.Timestamp), t.Wallet, t.Token, string(t.Side),
		t.Quantity, t.UnitPriceUSD, t.ValueUSD, t.Venue)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) TradesForWallet(ctx context.Context, chain chains.ID, wallet string, since time.Time) ([]domain.Trade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tx_hash, chain, ts, wallet, token, side, quantity, unit_price_usd, value_usd, venue
		FROM trades WHERE chain = ? AND wallet = ? AND ts >= ?
		ORDER BY ts ASC, tx_hash ASC`, string(chain), wallet, formatTime(since))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTrades(rows)
}

func (s *Store) TradesForWalletToken(ctx context.Context, chain chains.ID, wallet, token string) ([]domain.Trade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tx_hash, chain, ts, wallet, token, side, quantity, unit_price_usd, value_usd, venue
		FROM trades WHERE chain = ? AND wallet = ? AND token = ?
		ORDER BY ts ASC, tx_hash ASC`, string(chain), wallet, token)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTrades(rows)
}

// TradesForToken returns every trade on (chain, token) since the given time,
// across all wallets, ordered by timestamp. Used by the Being-Early score to
// rank a wallet's buy against the full set of observed buyers.
func (s *Store) TradesForToken(ctx context.Context, chain chains.ID, token string, since time.Time) ([]domain.Trade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tx_hash, chain, ts, wallet, token, side, quantity, unit_price_usd, value_usd, venue
		FROM trades WHERE chain = ? AND token = ? AND ts >= ?
		ORDER BY ts ASC, tx_hash ASC`, string(chain), token, formatTime(since))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTrades(rows)
}

func (s *Store) TradeExists(ctx context.Context, txHash string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM trades WHERE tx_hash = ?`, txHash).Scan(&n)
	return n > 0, err
}

func (s *Store) MostRecentTradePrice(ctx context.Context, chain chains.ID, token string) (float64, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT unit_price_usd FROM trades WHERE chain = ? AND token = ? ORDER BY ts DESC LIMIT 1`,
		string(chain), token)
	var price float64
	err := row.Scan(&price)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return price, true, nil
}

func scanTrades(rows *sql.Rows) ([]domain.Trade, error) {
	var out []domain.Trade
	for rows.Next() {
		var t domain.Trade
		var chain, ts, side string
		if err := rows.Scan(&t.TxHash, &chain, &ts, &t.Wallet, &t.Token, &side,
			&t.Quantity, &t.UnitPriceUSD, &t.ValueUSD, &t.Venue); err != nil {
			return nil, err
		}
		t.Chain = chains.ID(chain)
		t.Side = domain.Side(side)
		t.Timestamp, _ = parseTime(ts)
		out = append(out, t)
	}
	return out, rows.Err()
}
