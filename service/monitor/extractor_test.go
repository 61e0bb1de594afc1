package monitor

import (
	"testing"
	"time"

	"github.com/brojonat/copywatch/service/dex"
	"github.com/brojonat/copywatch/service/solana"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testWallet = "DYw8jCTfwHNRJhhmFcbXvVDTqWMEVFBX6ZKUmG5CNSKK"
	otherOwner = "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T"
	usdcMint   = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	bonkMint   = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
)

// swapTx builds a transaction that invoked the given program with the given
// token balance snapshots and a native balance change for the wallet.
func swapTx(programID string, preTokens, postTokens []solana.TokenBalance, preLamports, postLamports uint64) *solana.ParsedTransaction {
	return &solana.ParsedTransaction{
		Signature:         "5K2sig",
		Slot:              312000000,
		BlockTime:         time.Date(2026, 2, 10, 14, 30, 0, 0, time.UTC),
		AccountKeys:       []string{testWallet, otherOwner, programID},
		ProgramIDs:        []string{programID},
		PreTokenBalances:  preTokens,
		PostTokenBalances: postTokens,
		PreBalances:       []uint64{preLamports, 5_000_000_000, 1},
		PostBalances:      []uint64{postLamports, 5_000_000_000, 1},
	}
}

func TestExtractSwaps_SellForSOL(t *testing.T) {
	// The wallet's USDC balance drops by 20 and its SOL balance rises by 0.5
	// in a Jupiter transaction: a sell at 0.025 SOL per token.
	tx := swapTx(dex.JupiterV6Program,
		[]solana.TokenBalance{{AccountIndex: 3, Owner: testWallet, Mint: usdcMint, UiAmount: 120}},
		[]solana.TokenBalance{{AccountIndex: 3, Owner: testWallet, Mint: usdcMint, UiAmount: 100}},
		10_000_000_000, 10_500_000_000,
	)

	signals := ExtractSwaps(tx, testWallet, dex.DefaultRegistry())
	require.Len(t, signals, 1)

	sig := signals[0]
	assert.Equal(t, DirectionSell, sig.Direction)
	assert.Equal(t, testWallet, sig.Wallet)
	assert.Equal(t, usdcMint, sig.Mint)
	assert.InDelta(t, 20.0, sig.TokenAmount, 1e-9)
	assert.InDelta(t, 0.5, sig.SolAmount, 1e-9)
	assert.InDelta(t, 0.025, sig.Price, 1e-9)
	assert.Equal(t, "Jupiter", sig.DexName)
	assert.Equal(t, tx.Signature, sig.Signature)
	assert.Equal(t, tx.BlockTime, sig.BlockTime)
}

func TestExtractSwaps_BuyWithSOL(t *testing.T) {
	tx := swapTx(dex.RaydiumAMMV4Program,
		[]solana.TokenBalance{{AccountIndex: 4, Owner: testWallet, Mint: bonkMint, UiAmount: 0}},
		[]solana.TokenBalance{{AccountIndex: 4, Owner: testWallet, Mint: bonkMint, UiAmount: 1_000_000}},
		10_000_000_000, 8_000_000_000,
	)

	signals := ExtractSwaps(tx, testWallet, dex.DefaultRegistry())
	require.Len(t, signals, 1)

	sig := signals[0]
	assert.Equal(t, DirectionBuy, sig.Direction)
	assert.Equal(t, bonkMint, sig.Mint)
	assert.InDelta(t, 1_000_000.0, sig.TokenAmount, 1e-3)
	assert.InDelta(t, 2.0, sig.SolAmount, 1e-9)
	assert.InDelta(t, 2e-6, sig.Price, 1e-12)
}

func TestExtractSwaps_MissingPreBalanceCountsAsZero(t *testing.T) {
	// A token account created inside the transaction has no pre entry.
	tx := swapTx(dex.OrcaWhirlpoolProgram,
		nil,
		[]solana.TokenBalance{{AccountIndex: 4, Owner: testWallet, Mint: bonkMint, UiAmount: 500}},
		10_000_000_000, 9_000_000_000,
	)

	signals := ExtractSwaps(tx, testWallet, dex.DefaultRegistry())
	require.Len(t, signals, 1)
	assert.Equal(t, DirectionBuy, signals[0].Direction)
	assert.InDelta(t, 500.0, signals[0].TokenAmount, 1e-9)
}

func TestExtractSwaps_UnregisteredProgramIsNotASwap(t *testing.T) {
	// Same balance pattern as a sell, but no registered DEX program invoked.
	tx := swapTx("11111111111111111111111111111111",
		[]solana.TokenBalance{{AccountIndex: 3, Owner: testWallet, Mint: usdcMint, UiAmount: 120}},
		[]solana.TokenBalance{{AccountIndex: 3, Owner: testWallet, Mint: usdcMint, UiAmount: 100}},
		10_000_000_000, 10_500_000_000,
	)

	assert.Nil(t, ExtractSwaps(tx, testWallet, dex.DefaultRegistry()))
}

func TestExtractSwaps_NoBalanceChangeIsNotASwap(t *testing.T) {
	// DEX invoked but identical pre/post balances (e.g. a failed route).
	tx := swapTx(dex.JupiterV6Program,
		[]solana.TokenBalance{{AccountIndex: 3, Owner: testWallet, Mint: usdcMint, UiAmount: 120}},
		[]solana.TokenBalance{{AccountIndex: 3, Owner: testWallet, Mint: usdcMint, UiAmount: 120}},
		10_000_000_000, 10_000_000_000,
	)

	assert.Nil(t, ExtractSwaps(tx, testWallet, dex.DefaultRegistry()))
}

func TestExtractSwaps_DustDeltaIsNoise(t *testing.T) {
	tx := swapTx(dex.JupiterV6Program,
		[]solana.TokenBalance{{AccountIndex: 3, Owner: testWallet, Mint: usdcMint, UiAmount: 120}},
		[]solana.TokenBalance{{AccountIndex: 3, Owner: testWallet, Mint: usdcMint, UiAmount: 120.0000005}},
		10_000_000_000, 10_000_000_000,
	)

	assert.Nil(t, ExtractSwaps(tx, testWallet, dex.DefaultRegistry()))
}

func TestExtractSwaps_OtherOwnersIgnored(t *testing.T) {
	// Balance changes on accounts owned by someone else never produce signals.
	tx := swapTx(dex.JupiterV6Program,
		[]solana.TokenBalance{{AccountIndex: 5, Owner: otherOwner, Mint: usdcMint, UiAmount: 1000}},
		[]solana.TokenBalance{{AccountIndex: 5, Owner: otherOwner, Mint: usdcMint, UiAmount: 500}},
		10_000_000_000, 10_000_000_000,
	)

	assert.Nil(t, ExtractSwaps(tx, testWallet, dex.DefaultRegistry()))
}

func TestExtractSwaps_TokenToTokenYieldsUnpricedLegs(t *testing.T) {
	// USDC out, BONK in, negligible native change: one sell and one buy,
	// neither priced, ordered by token account index.
	tx := swapTx(dex.JupiterV6Program,
		[]solana.TokenBalance{
			{AccountIndex: 3, Owner: testWallet, Mint: usdcMint, UiAmount: 120},
			{AccountIndex: 4, Owner: testWallet, Mint: bonkMint, UiAmount: 0},
		},
		[]solana.TokenBalance{
			{AccountIndex: 3, Owner: testWallet, Mint: usdcMint, UiAmount: 100},
			{AccountIndex: 4, Owner: testWallet, Mint: bonkMint, UiAmount: 900_000},
		},
		10_000_000_000, 9_999_995_000,
	)

	signals := ExtractSwaps(tx, testWallet, dex.DefaultRegistry())
	require.Len(t, signals, 2)

	assert.Equal(t, DirectionSell, signals[0].Direction)
	assert.Equal(t, usdcMint, signals[0].Mint)
	assert.Zero(t, signals[0].SolAmount)
	assert.Zero(t, signals[0].Price)

	assert.Equal(t, DirectionBuy, signals[1].Direction)
	assert.Equal(t, bonkMint, signals[1].Mint)
	assert.Zero(t, signals[1].SolAmount)
	assert.Zero(t, signals[1].Price)
}

func TestExtractSwaps_WrappedSOLIsTheNativeLeg(t *testing.T) {
	// Buying through a wSOL token account: the wSOL delta must not become a
	// second token leg, so the trade still prices off the native change.
	tx := swapTx(dex.OrcaWhirlpoolProgram,
		[]solana.TokenBalance{
			{AccountIndex: 3, Owner: testWallet, Mint: NativeMint, UiAmount: 2},
			{AccountIndex: 4, Owner: testWallet, Mint: bonkMint, UiAmount: 0},
		},
		[]solana.TokenBalance{
			{AccountIndex: 3, Owner: testWallet, Mint: NativeMint, UiAmount: 0},
			{AccountIndex: 4, Owner: testWallet, Mint: bonkMint, UiAmount: 1_000_000},
		},
		10_000_000_000, 8_000_000_000,
	)

	signals := ExtractSwaps(tx, testWallet, dex.DefaultRegistry())
	require.Len(t, signals, 1)
	assert.Equal(t, DirectionBuy, signals[0].Direction)
	assert.Equal(t, bonkMint, signals[0].Mint)
	assert.InDelta(t, 2.0, signals[0].SolAmount, 1e-9)
}

func TestExtractSwaps_WalletAbsentFromAccountKeys(t *testing.T) {
	// A qualifying token delta with the wallet missing from the account keys:
	// the signal is emitted without a native amount.
	tx := &solana.ParsedTransaction{
		Signature:   "sigX",
		BlockTime:   time.Now().UTC(),
		AccountKeys: []string{otherOwner, dex.JupiterV6Program},
		ProgramIDs:  []string{dex.JupiterV6Program},
		PostTokenBalances: []solana.TokenBalance{
			{AccountIndex: 2, Owner: testWallet, Mint: usdcMint, UiAmount: 50},
		},
		PreBalances:  []uint64{1, 1},
		PostBalances: []uint64{1, 1},
	}

	signals := ExtractSwaps(tx, testWallet, dex.DefaultRegistry())
	require.Len(t, signals, 1)
	assert.Equal(t, DirectionBuy, signals[0].Direction)
	assert.Zero(t, signals[0].SolAmount)
}

func TestExtractSwaps_MalformedInputs(t *testing.T) {
	registry := dex.DefaultRegistry()

	assert.Nil(t, ExtractSwaps(nil, testWallet, registry))

	// Empty transaction
	assert.Nil(t, ExtractSwaps(&solana.ParsedTransaction{}, testWallet, registry))

	// Balance arrays shorter than the wallet's account index
	tx := &solana.ParsedTransaction{
		AccountKeys: []string{testWallet},
		ProgramIDs:  []string{dex.JupiterV6Program},
		PostTokenBalances: []solana.TokenBalance{
			{AccountIndex: 1, Owner: testWallet, Mint: usdcMint, UiAmount: 10},
		},
	}
	signals := ExtractSwaps(tx, testWallet, registry)
	require.Len(t, signals, 1)
	assert.Zero(t, signals[0].SolAmount)
}
