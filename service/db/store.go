package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store provides database operations for the service.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store with the given database connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// WatchedWallet is a wallet the dashboard follows.
type WatchedWallet struct {
	Address   string
	Label     string
	CreatedAt time.Time
}

// Trade is one recorded swap leg of a watched wallet.
type Trade struct {
	ID            int64
	Signature     string
	WalletAddress string
	Direction     string // "buy" or "sell"
	TokenMint     string
	TokenAmount   float64
	SolAmount     float64
	Price         float64
	DexName       string
	BlockTime     time.Time
	CreatedAt     time.Time
}

// Position is the per-mint aggregate of a wallet's recorded trades.
type Position struct {
	TokenMint   string
	NetAmount   float64
	SolSpent    float64
	SolReceived float64
	TradeCount  int64
	LastTradeAt time.Time
}

// WalletStats are the headline aggregates for one wallet.
type WalletStats struct {
	TradeCount   int64
	BuyCount     int64
	SellCount    int64
	SolVolume    float64
	FirstTradeAt *time.Time
	LastTradeAt  *time.Time
}

// InsertTradeParams contains the parameters for recording a trade.
type InsertTradeParams struct {
	Signature     string
	WalletAddress string
	Direction     string
	TokenMint     string
	TokenAmount   float64
	SolAmount     float64
	Price         float64
	DexName       string
	BlockTime     time.Time
}

// UpsertWatchedWallet registers a wallet, updating the label if it already
// exists.
func (s *Store) UpsertWatchedWallet(ctx context.Context, address, label string) (*WatchedWallet, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO watched_wallets (address, label)
		VALUES ($1, $2)
		ON CONFLICT (address) DO UPDATE SET label = EXCLUDED.label
		RETURNING address, label, created_at`,
		address, label,
	)

	var w WatchedWallet
	if err := row.Scan(&w.Address, &w.Label, &w.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to upsert watched wallet: %w", err)
	}
	return &w, nil
}

// DeleteWatchedWallet removes a wallet. Returns false when the wallet was not
// registered.
func (s *Store) DeleteWatchedWallet(ctx context.Context, address string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM watched_wallets WHERE address = $1`, address)
	if err != nil {
		return false, fmt.Errorf("failed to delete watched wallet: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// WalletExists reports whether the wallet is registered.
func (s *Store) WalletExists(ctx context.Context, address string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM watched_wallets WHERE address = $1)`, address,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check wallet existence: %w", err)
	}
	return exists, nil
}

// ListWatchedWallets returns all registered wallets, oldest first.
func (s *Store) ListWatchedWallets(ctx context.Context) ([]*WatchedWallet, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT address, label, created_at FROM watched_wallets ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list watched wallets: %w", err)
	}
	defer rows.Close()

	var wallets []*WatchedWallet
	for rows.Next() {
		var w WatchedWallet
		if err := rows.Scan(&w.Address, &w.Label, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan watched wallet: %w", err)
		}
		wallets = append(wallets, &w)
	}
	return wallets, rows.Err()
}

// InsertTrade records one trade. Re-inserting the same (signature, wallet,
// mint) leg is a no-op, keeping recording idempotent with the monitor's
// dedup semantics. Returns the stored trade, or nil when it already existed.
func (s *Store) InsertTrade(ctx context.Context, params InsertTradeParams) (*Trade, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO trades (signature, wallet_address, direction, token_mint,
		                    token_amount, sol_amount, price, dex_name, block_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (signature, wallet_address, token_mint) DO NOTHING
		RETURNING id, signature, wallet_address, direction, token_mint,
		          token_amount, sol_amount, price, dex_name, block_time, created_at`,
		params.Signature, params.WalletAddress, params.Direction, params.TokenMint,
		params.TokenAmount, params.SolAmount, params.Price, params.DexName, params.BlockTime,
	)

	var t Trade
	err := row.Scan(&t.ID, &t.Signature, &t.WalletAddress, &t.Direction, &t.TokenMint,
		&t.TokenAmount, &t.SolAmount, &t.Price, &t.DexName, &t.BlockTime, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to insert trade: %w", err)
	}
	return &t, nil
}

// ListTradesParams contains pagination parameters for trade listing.
// An empty WalletAddress lists trades across all wallets.
type ListTradesParams struct {
	WalletAddress string
	Limit         int32
	Offset        int32
}

// ListTrades returns recorded trades, newest first.
func (s *Store) ListTrades(ctx context.Context, params ListTradesParams) ([]*Trade, error) {
	if params.Limit <= 0 {
		params.Limit = 50
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, signature, wallet_address, direction, token_mint,
		       token_amount, sol_amount, price, dex_name, block_time, created_at
		FROM trades
		WHERE ($1 = '' OR wallet_address = $1)
		ORDER BY block_time DESC, id DESC
		LIMIT $2 OFFSET $3`,
		params.WalletAddress, params.Limit, params.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	defer rows.Close()

	var trades []*Trade
	for rows.Next() {
		var t Trade
		if err := rows.Scan(&t.ID, &t.Signature, &t.WalletAddress, &t.Direction, &t.TokenMint,
			&t.TokenAmount, &t.SolAmount, &t.Price, &t.DexName, &t.BlockTime, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, &t)
	}
	return trades, rows.Err()
}

// GetPositions derives the wallet's per-mint positions from its recorded
// trades.
func (s *Store) GetPositions(ctx context.Context, walletAddress string) ([]*Position, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT token_mint,
		       SUM(CASE WHEN direction = 'buy' THEN token_amount ELSE -token_amount END) AS net_amount,
		       SUM(CASE WHEN direction = 'buy' THEN sol_amount ELSE 0 END)               AS sol_spent,
		       SUM(CASE WHEN direction = 'sell' THEN sol_amount ELSE 0 END)              AS sol_received,
		       COUNT(*)                                                                  AS trade_count,
		       MAX(block_time)                                                           AS last_trade_at
		FROM trades
		WHERE wallet_address = $1
		GROUP BY token_mint
		ORDER BY last_trade_at DESC`,
		walletAddress,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get positions: %w", err)
	}
	defer rows.Close()

	var positions []*Position
	for rows.Next() {
		var p Position
		if err := rows.Scan(&p.TokenMint, &p.NetAmount, &p.SolSpent, &p.SolReceived,
			&p.TradeCount, &p.LastTradeAt); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, &p)
	}
	return positions, rows.Err()
}

// GetWalletStats returns the headline aggregates for one wallet.
func (s *Store) GetWalletStats(ctx context.Context, walletAddress string) (*WalletStats, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE direction = 'buy'),
		       COUNT(*) FILTER (WHERE direction = 'sell'),
		       COALESCE(SUM(sol_amount), 0),
		       MIN(block_time),
		       MAX(block_time)
		FROM trades
		WHERE wallet_address = $1`,
		walletAddress,
	)

	var stats WalletStats
	if err := row.Scan(&stats.TradeCount, &stats.BuyCount, &stats.SellCount,
		&stats.SolVolume, &stats.FirstTradeAt, &stats.LastTradeAt); err != nil {
		return nil, fmt.Errorf("failed to get wallet stats: %w", err)
	}
	return &stats, nil
}
