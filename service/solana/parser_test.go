package solana

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertTokenBalances(t *testing.T) {
	owner := solana.MustPublicKeyFromBase58("DYw8jCTfwHNRJhhmFcbXvVDTqWMEVFBX6ZKUmG5CNSKK")
	mint := solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	amount := 42.5

	balances := []rpc.TokenBalance{
		{
			AccountIndex: 3,
			Mint:         mint,
			Owner:        &owner,
			UiTokenAmount: &rpc.UiTokenAmount{
				UiAmount: &amount,
			},
		},
	}

	out := convertTokenBalances(balances)
	require.Len(t, out, 1)
	assert.Equal(t, 3, out[0].AccountIndex)
	assert.Equal(t, mint.String(), out[0].Mint)
	assert.Equal(t, owner.String(), out[0].Owner)
	assert.Equal(t, 42.5, out[0].UiAmount)
}

func TestConvertTokenBalances_NilFieldsAreSafe(t *testing.T) {
	mint := solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")

	// Owner and UiTokenAmount are optional in the RPC response.
	balances := []rpc.TokenBalance{
		{AccountIndex: 1, Mint: mint},
		{AccountIndex: 2, Mint: mint, UiTokenAmount: &rpc.UiTokenAmount{}},
	}

	out := convertTokenBalances(balances)
	require.Len(t, out, 2)
	assert.Empty(t, out[0].Owner)
	assert.Zero(t, out[0].UiAmount)
	assert.Zero(t, out[1].UiAmount)
}

func TestConvertTokenBalances_Empty(t *testing.T) {
	assert.Nil(t, convertTokenBalances(nil))
	assert.Nil(t, convertTokenBalances([]rpc.TokenBalance{}))
}
