package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/coinwatch/confluence/internal/chains"
	"github.com/coinwatch/confluence/internal/domain"
)

func (s *Store) UpsertWallet(ctx context.Context, w domain.Wallet) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO wallets (chain, address, first_seen_at, labels) VALUES (?, ?, ?, ?)
		ON CONFLICT(chain, address) DO NOTHING`,
		string(w.Chain), w.Address, formatTime(orNow(w.FirstSeenAt)), strings.Join(w.Labels, ","))
	return err
}

func (s *Store) GetWallet(ctx context.Context, key domain.WalletKey) (domain.Wallet, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT chain, address, first_seen_at, labels FROM wallets WHERE chain = ? AND address = ?`,
		string(key.Chain), key.Address)

	var w domain.Wallet
	var chain, firstSeen, labels string
	err := row.Scan(&chain, &w.Address, &firstSeen, &labels)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Wallet{}, false, nil
	}
	if err != nil {
		return domain.Wallet{}, false, err
	}
	w.Chain = chains.ID(chain)
	w.FirstSeenAt, _ = parseTime(firstSeen)
	if labels != "" {
		w.Labels = strings.Split(labels, ",")
	}
	return w, true, nil
}

func (s *Store) SetLabels(ctx context.Context, key domain.WalletKey, labels []string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE wallets SET labels = ? WHERE chain = ? AND address = ?`,
		strings.Join(labels, ","), string(key.Chain), key.Address)
	return err
}

func (s *Store) WalletsObservedSince(ctx context.Context, since time.Time) ([]domain.WalletKey, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT chain, wallet FROM trades WHERE ts >= ?`, formatTime(since))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.WalletKey
	for rows.Next() {
		var chain, wallet string
		if err := rows.Scan(&chain, &wallet); err != nil {
			return nil, err
		}
		out = append(out, domain.WalletKey{Chain: chains.ID(chain), Address: wallet})
	}
	return out, rows.Err()
}
