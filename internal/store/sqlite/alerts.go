package sqlite

import (
	"context"
	"strings"

	"github.com/coinwatch/confluence/internal/domain"
)

// InsertAlert enforces the dedup rule of spec.md §4.9: a repeat dedup_key is
// a no-op, not an error, so the caller can unconditionally attempt the
// insert and check the returned bool to decide whether to actually emit.
func (s *Store) InsertAlert(ctx context.Context, a domain.AlertRecord) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO alerts (id, dedup_key, kind, chain, token, side, wallets, window_ms, weight_pnl, weight_act, weight_early, prices_snapshot, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(dedup_key) DO NOTHING`,
		a.ID, a.DedupKey, string(a.Kind), string(a.Chain), a.Token, string(a.Side),
		strings.Join(a.Wallets, ","), a.WindowMS, a.Weights[0], a.Weights[1], a.Weights[2],
		a.PricesSnapshot, formatTime(orNow(a.CreatedAt)))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) AlertExists(ctx context.Context, dedupKey string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM alerts WHERE dedup_key = ?`, dedupKey).Scan(&n)
	return n > 0, err
}
