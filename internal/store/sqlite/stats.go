package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/coinwatch/confluence/internal/chains"
	"github.com/coinwatch/confluence/internal/domain"
)

func (s *Store) PutWalletStats(ctx context.Context, st domain.WalletStats30D) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO wallet_stats_30d (chain, wallet, trade_count, realized_pnl_usd, unrealized_pnl_usd, best_trade_multiple, early_score_median, max_drawdown_pct, is_bot, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(chain, wallet) DO UPDATE SET
			trade_count = excluded.trade_count,
			realized_pnl_usd = excluded.realized_pnl_usd,
			unrealized_pnl_usd = excluded.unrealized_pnl_usd,
			best_trade_multiple = excluded.best_trade_multiple,
			early_score_median = excluded.early_score_median,
			max_drawdown_pct = excluded.max_drawdown_pct,
			is_bot = excluded.is_bot,
			updated_at = excluded.updated_at`,
		string(st.Chain), st.Wallet, st.TradeCount, st.RealizedPnLUSD, st.UnrealizedPnLUSD,
		st.BestTradeMultiple, st.EarlyScoreMedian, st.MaxDrawdownPct, boolToInt(st.IsBot), formatTime(orNow(st.UpdatedAt)))
	return err
}

func (s *Store) GetWalletStats(ctx context.Context, chain chains.ID, wallet string) (domain.WalletStats30D, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT chain, wallet, trade_count, realized_pnl_usd, unrealized_pnl_usd, best_trade_multiple, early_score_median, max_drawdown_pct, is_bot, updated_at
		FROM wallet_stats_30d WHERE chain = ? AND wallet = ?`, string(chain), wallet)
	st, err := scanStats(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.WalletStats30D{}, false, nil
	}
	return st, err == nil, err
}

func (s *Store) AllWalletStats(ctx context.Context, chain chains.ID) ([]domain.WalletStats30D, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT chain, wallet, trade_count, realized_pnl_usd, unrealized_pnl_usd, best_trade_multiple, early_score_median, max_drawdown_pct, is_bot, updated_at
		FROM wallet_stats_30d WHERE chain = ?`, string(chain))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.WalletStats30D
	for rows.Next() {
		st, err := scanStats(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStats(r rowScanner) (domain.WalletStats30D, error) {
	var st domain.WalletStats30D
	var chain, updatedAt string
	var isBot int
	err := r.Scan(&chain, &st.Wallet, &st.TradeCount, &st.RealizedPnLUSD, &st.UnrealizedPnLUSD,
		&st.BestTradeMultiple, &st.EarlyScoreMedian, &st.MaxDrawdownPct, &isBot, &updatedAt)
	if err != nil {
		return domain.WalletStats30D{}, err
	}
	st.Chain = chains.ID(chain)
	st.IsBot = isBot != 0
	st.UpdatedAt, _ = parseTime(updatedAt)
	return st, nil
}
