package solana

import (
	"time"
)

// SignatureRef is a reference to one on-chain transaction as returned by the
// signature listing RPC: the opaque signature plus an approximate ordering
// timestamp. It is consumed once by the monitor and retained only as a dedup
// key.
type SignatureRef struct {
	Signature string
	Slot      uint64
	BlockTime time.Time
	Failed    bool
}

// TokenBalance is one entry of a pre- or post-transaction token balance
// snapshot: which account it belongs to, who owns it, which mint, and the
// UI-scaled amount.
type TokenBalance struct {
	AccountIndex int
	Owner        string
	Mint         string
	UiAmount     float64
}

// ParsedTransaction is our decoded domain model of a transaction,
// independent of the RPC response format. It carries exactly what swap
// extraction needs: the invoked program IDs, the account key list, and the
// pre/post balance snapshots.
//
// Missing meta on the RPC side degrades to empty slices, never an error.
type ParsedTransaction struct {
	Signature string
	Slot      uint64
	BlockTime time.Time

	// AccountKeys is the full account key list, including addresses loaded
	// from lookup tables.
	AccountKeys []string

	// ProgramIDs are the distinct program IDs invoked by the transaction's
	// top-level instructions.
	ProgramIDs []string

	PreTokenBalances  []TokenBalance
	PostTokenBalances []TokenBalance

	// PreBalances and PostBalances are lamport balances indexed by account
	// position in AccountKeys.
	PreBalances  []uint64
	PostBalances []uint64
}
