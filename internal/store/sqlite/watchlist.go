package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/coinwatch/confluence/internal/chains"
	"github.com/coinwatch/confluence/internal/domain"
)

func (s *Store) UpsertWatchlistEntry(ctx context.Context, e domain.WatchlistEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO watchlist (chain, wallet, composite_score, status, added_at, last_evaluated_at, always_watch)
		VALUES (?, ?, ?, ?, ?, ?, COALESCE((SELECT always_watch FROM watchlist WHERE chain = ? AND wallet = ?), 0))
		ON CONFLICT(chain, wallet) DO UPDATE SET
			composite_score = excluded.composite_score,
			status = excluded.status,
			last_evaluated_at = excluded.last_evaluated_at`,
		string(e.Chain), e.Wallet, e.CompositeScore, string(e.Status),
		formatTime(orNow(e.AddedAt)), formatTime(orNow(e.LastEvaluatedAt)),
		string(e.Chain), e.Wallet)
	return err
}

func (s *Store) ActiveWatchlist(ctx context.Context, chain chains.ID) ([]domain.WatchlistEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT chain, wallet, composite_score, status, added_at, last_evaluated_at
		FROM watchlist WHERE chain = ? AND status = 'active'
		ORDER BY composite_score DESC`, string(chain))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanWatchlist(rows)
}

func (s *Store) GetWatchlistEntry(ctx context.Context, chain chains.ID, wallet string) (domain.WatchlistEntry, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT chain, wallet, composite_score, status, added_at, last_evaluated_at
		FROM watchlist WHERE chain = ? AND wallet = ?`, string(chain), wallet)
	e, err := scanWatchlistEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.WatchlistEntry{}, false, nil
	}
	return e, err == nil, err
}

// AlwaysWatch returns the user-curated "always watch" set (spec.md §4.8),
// independent of the composite-score-driven add/remove cycle.
func (s *Store) AlwaysWatch(ctx context.Context, chain chains.ID) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT wallet FROM watchlist WHERE chain = ? AND always_watch = 1`, string(chain))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func scanWatchlist(rows *sql.Rows) ([]domain.WatchlistEntry, error) {
	var out []domain.WatchlistEntry
	for rows.Next() {
		e, err := scanWatchlistEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanWatchlistEntry(r rowScanner) (domain.WatchlistEntry, error) {
	var e domain.WatchlistEntry
	var chain, status, added, evaluated string
	if err := r.Scan(&chain, &e.Wallet, &e.CompositeScore, &status, &added, &evaluated); err != nil {
		return domain.WatchlistEntry{}, err
	}
	e.Chain = chains.ID(chain)
	e.Status = domain.WatchlistStatus(status)
	e.AddedAt, _ = parseTime(added)
	e.LastEvaluatedAt, _ = parseTime(evaluated)
	return e, nil
}
