package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/coinwatch/confluence/internal/chains"
	"github.com/coinwatch/confluence/internal/domain"
)

func (s *Store) UpsertToken(ctx context.Context, t domain.Token) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tokens (chain, address, symbol, display_name, liquidity_usd, volume24h_usd, last_price_usd, tax_buy_pct, tax_sell_pct, is_honeypot, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(chain, address) DO UPDATE SET
			symbol = excluded.symbol,
			display_name = excluded.display_name,
			liquidity_usd = excluded.liquidity_usd,
			volume24h_usd = excluded.volume24h_usd,
			last_price_usd = excluded.last_price_usd,
			tax_buy_pct = excluded.tax_buy_pct,
			tax_sell_pct = excluded.tax_sell_pct,
			is_honeypot = excluded.is_honeypot
	`, string(t.Chain), t.Address, t.Symbol, t.DisplayName, t.LiquidityUSD, t.Volume24hUSD, t.LastPriceUSD,
		t.TaxBuyPct, t.TaxSellPct, boolToInt(t.IsHoneypot), formatTime(orNow(t.CreatedAt)))
	return err
}

func (s *Store) GetToken(ctx context.Context, key domain.TokenKey) (domain.Token, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT chain, address, symbol, display_name, liquidity_usd, volume24h_usd, last_price_usd, tax_buy_pct, tax_sell_pct, is_honeypot, created_at
		FROM tokens WHERE chain = ? AND address = ?`, string(key.Chain), key.Address)

	var t domain.Token
	var chain, createdAt string
	var honeypot int
	err := row.Scan(&chain, &t.Address, &t.Symbol, &t.DisplayName, &t.LiquidityUSD, &t.Volume24hUSD, &t.LastPriceUSD,
		&t.TaxBuyPct, &t.TaxSellPct, &honeypot, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Token{}, false, nil
	}
	if err != nil {
		return domain.Token{}, false, err
	}
	t.Chain = chains.ID(chain)
	t.IsHoneypot = honeypot != 0
	t.CreatedAt, _ = parseTime(createdAt)
	return t, true, nil
}

func (s *Store) InsertSeedToken(ctx context.Context, sd domain.SeedToken) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO seed_tokens (chain, address, source, snapshot_ts) VALUES (?, ?, ?, ?)`,
		string(sd.Chain), sd.Address, sd.Source, formatTime(sd.SnapshotTS))
	return err
}

// SeedTokensSince returns the latest snapshot per (chain, address) whose
// snapshot_ts falls within lookback of now, matching C3's "latest snapshot
// within a lookback window" selection rule (spec.md §4.3).
func (s *Store) SeedTokensSince(ctx context.Context, chain chains.ID, lookback time.Duration) ([]domain.SeedToken, error) {
	cutoff := time.Now().UTC().Add(-lookback)
	rows, err := s.db.QueryContext(ctx, `
		SELECT chain, address, source, MAX(snapshot_ts) AS snapshot_ts
		FROM seed_tokens
		WHERE chain = ? AND snapshot_ts >= ?
		GROUP BY chain, address`, string(chain), formatTime(cutoff))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.SeedToken
	for rows.Next() {
		var sd domain.SeedToken
		var c, ts string
		if err := rows.Scan(&c, &sd.Address, &sd.Source, &ts); err != nil {
			return nil, err
		}
		sd.Chain = chains.ID(c)
		sd.SnapshotTS, _ = parseTime(ts)
		out = append(out, sd)
	}
	return out, rows.Err()
}
