package db

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/brojonat/copywatch/service/monitor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testWallet = "DYw8jCTfwHNRJhhmFcbXvVDTqWMEVFBX6ZKUmG5CNSKK"
	testMint   = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

func testTrade(signature, direction string, tokenAmount, solAmount float64, blockTime time.Time) InsertTradeParams {
	price := 0.0
	if tokenAmount > 0 && solAmount > 0 {
		price = solAmount / tokenAmount
	}
	return InsertTradeParams{
		Signature:     signature,
		WalletAddress: testWallet,
		Direction:     direction,
		TokenMint:     testMint,
		TokenAmount:   tokenAmount,
		SolAmount:     solAmount,
		Price:         price,
		DexName:       "Jupiter",
		BlockTime:     blockTime,
	}
}

func TestWatchedWallets(t *testing.T) {
	SkipIfNoTestDB(t)
	ts := NewTestStore(t)
	defer ts.Close()
	ts.Cleanup(t)

	ctx := context.Background()

	// Upsert creates
	w, err := ts.UpsertWatchedWallet(ctx, testWallet, "degen one")
	require.NoError(t, err)
	assert.Equal(t, testWallet, w.Address)
	assert.Equal(t, "degen one", w.Label)

	exists, err := ts.WalletExists(ctx, testWallet)
	require.NoError(t, err)
	assert.True(t, exists)

	// Upsert updates the label, does not duplicate
	w, err = ts.UpsertWatchedWallet(ctx, testWallet, "renamed")
	require.NoError(t, err)
	assert.Equal(t, "renamed", w.Label)

	wallets, err := ts.ListWatchedWallets(ctx)
	require.NoError(t, err)
	require.Len(t, wallets, 1)

	// Delete
	deleted, err := ts.DeleteWatchedWallet(ctx, testWallet)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = ts.DeleteWatchedWallet(ctx, testWallet)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestInsertTrade_Idempotent(t *testing.T) {
	SkipIfNoTestDB(t)
	ts := NewTestStore(t)
	defer ts.Close()
	ts.Cleanup(t)

	ctx := context.Background()
	params := testTrade("sig1", "buy", 1000, 0.5, time.Now().UTC().Truncate(time.Second))

	trade, err := ts.InsertTrade(ctx, params)
	require.NoError(t, err)
	require.NotNil(t, trade)
	assert.Equal(t, "buy", trade.Direction)

	// Re-inserting the same leg is a silent no-op.
	dup, err := ts.InsertTrade(ctx, params)
	require.NoError(t, err)
	assert.Nil(t, dup)

	trades, err := ts.ListTrades(ctx, ListTradesParams{WalletAddress: testWallet})
	require.NoError(t, err)
	assert.Len(t, trades, 1)
}

func TestListTrades_OrderAndFilter(t *testing.T) {
	SkipIfNoTestDB(t)
	ts := NewTestStore(t)
	defer ts.Close()
	ts.Cleanup(t)

	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	_, err := ts.InsertTrade(ctx, testTrade("sig1", "buy", 100, 0.1, base.Add(-2*time.Minute)))
	require.NoError(t, err)
	_, err = ts.InsertTrade(ctx, testTrade("sig2", "sell", 50, 0.2, base.Add(-time.Minute)))
	require.NoError(t, err)
	_, err = ts.InsertTrade(ctx, testTrade("sig3", "buy", 10, 0.3, base))
	require.NoError(t, err)

	// Newest first
	trades, err := ts.ListTrades(ctx, ListTradesParams{WalletAddress: testWallet})
	require.NoError(t, err)
	require.Len(t, trades, 3)
	assert.Equal(t, "sig3", trades[0].Signature)
	assert.Equal(t, "sig1", trades[2].Signature)

	// Limit applies
	trades, err = ts.ListTrades(ctx, ListTradesParams{WalletAddress: testWallet, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, trades, 2)

	// Unknown wallet filter matches nothing
	trades, err = ts.ListTrades(ctx, ListTradesParams{WalletAddress: "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T"})
	require.NoError(t, err)
	assert.Empty(t, trades)

	// Empty filter lists everything
	trades, err = ts.ListTrades(ctx, ListTradesParams{})
	require.NoError(t, err)
	assert.Len(t, trades, 3)
}

func TestGetPositions(t *testing.T) {
	SkipIfNoTestDB(t)
	ts := NewTestStore(t)
	defer ts.Close()
	ts.Cleanup(t)

	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	_, err := ts.InsertTrade(ctx, testTrade("sig1", "buy", 1000, 1.0, base.Add(-time.Hour)))
	require.NoError(t, err)
	_, err = ts.InsertTrade(ctx, testTrade("sig2", "sell", 400, 0.6, base))
	require.NoError(t, err)

	positions, err := ts.GetPositions(ctx, testWallet)
	require.NoError(t, err)
	require.Len(t, positions, 1)

	p := positions[0]
	assert.Equal(t, testMint, p.TokenMint)
	assert.InDelta(t, 600, p.NetAmount, 1e-9)
	assert.InDelta(t, 1.0, p.SolSpent, 1e-9)
	assert.InDelta(t, 0.6, p.SolReceived, 1e-9)
	assert.Equal(t, int64(2), p.TradeCount)
}

func TestGetWalletStats(t *testing.T) {
	SkipIfNoTestDB(t)
	ts := NewTestStore(t)
	defer ts.Close()
	ts.Cleanup(t)

	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	_, err := ts.InsertTrade(ctx, testTrade("sig1", "buy", 1000, 1.0, base.Add(-time.Hour)))
	require.NoError(t, err)
	_, err = ts.InsertTrade(ctx, testTrade("sig2", "sell", 400, 0.6, base))
	require.NoError(t, err)

	stats, err := ts.GetWalletStats(ctx, testWallet)
	require.NoError(t, err)

	assert.Equal(t, int64(2), stats.TradeCount)
	assert.Equal(t, int64(1), stats.BuyCount)
	assert.Equal(t, int64(1), stats.SellCount)
	assert.InDelta(t, 1.6, stats.SolVolume, 1e-9)
	require.NotNil(t, stats.FirstTradeAt)
	require.NotNil(t, stats.LastTradeAt)
	assert.True(t, stats.FirstTradeAt.Before(*stats.LastTradeAt))
}

func TestGetWalletStats_NoTrades(t *testing.T) {
	SkipIfNoTestDB(t)
	ts := NewTestStore(t)
	defer ts.Close()
	ts.Cleanup(t)

	stats, err := ts.GetWalletStats(context.Background(), testWallet)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.TradeCount)
	assert.Nil(t, stats.FirstTradeAt)
	assert.Nil(t, stats.LastTradeAt)
}

func TestTradeRecorder(t *testing.T) {
	SkipIfNoTestDB(t)
	ts := NewTestStore(t)
	defer ts.Close()
	ts.Cleanup(t)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	recorder := NewTradeRecorder(ts.Store, logger)

	sig := &monitor.Signal{
		Direction:   monitor.DirectionBuy,
		Wallet:      testWallet,
		Mint:        testMint,
		TokenAmount: 1000,
		SolAmount:   0.5,
		Price:       0.0005,
		DexName:     "Jupiter",
		BlockTime:   time.Now().UTC().Truncate(time.Second),
		Signature:   "sig1",
	}

	require.NoError(t, recorder.PublishSignal(context.Background(), sig))
	// Replaying the same signal is fine.
	require.NoError(t, recorder.PublishSignal(context.Background(), sig))

	trades, err := ts.ListTrades(context.Background(), ListTradesParams{WalletAddress: testWallet})
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "buy", trades[0].Direction)
	assert.InDelta(t, 1000, trades[0].TokenAmount, 1e-9)
}
