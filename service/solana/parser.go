package solana

import (
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
)

// parseTransactionResult converts a GetTransactionResult into our domain
// ParsedTransaction. Partial meta (missing balance arrays, no loaded
// addresses) produces empty slices, never an error; only an undecodable
// transaction payload errors.
func parseTransactionResult(signature string, result *rpc.GetTransactionResult) (*ParsedTransaction, error) {
	parsed := &ParsedTransaction{
		Signature: signature,
		Slot:      result.Slot,
	}
	if result.BlockTime != nil {
		parsed.BlockTime = result.BlockTime.Time()
	} else {
		parsed.BlockTime = time.Time{}
	}

	tx, err := result.Transaction.GetTransaction()
	if err != nil {
		return nil, fmt.Errorf("failed to decode transaction payload: %w", err)
	}

	// Full account key list: message keys plus any lookup-table addresses
	// the meta resolved for us.
	accountKeys := tx.Message.AccountKeys
	if result.Meta != nil {
		accountKeys = append(accountKeys, result.Meta.LoadedAddresses.Writable...)
		accountKeys = append(accountKeys, result.Meta.LoadedAddresses.ReadOnly...)
	}
	parsed.AccountKeys = make([]string, len(accountKeys))
	for i, key := range accountKeys {
		parsed.AccountKeys[i] = key.String()
	}

	// Distinct program IDs invoked by top-level instructions.
	seen := make(map[string]struct{})
	for _, instruction := range tx.Message.Instructions {
		idx := int(instruction.ProgramIDIndex)
		if idx >= len(parsed.AccountKeys) {
			continue
		}
		programID := parsed.AccountKeys[idx]
		if _, ok := seen[programID]; ok {
			continue
		}
		seen[programID] = struct{}{}
		parsed.ProgramIDs = append(parsed.ProgramIDs, programID)
	}

	if result.Meta == nil {
		return parsed, nil
	}

	parsed.PreBalances = result.Meta.PreBalances
	parsed.PostBalances = result.Meta.PostBalances
	parsed.PreTokenBalances = convertTokenBalances(result.Meta.PreTokenBalances)
	parsed.PostTokenBalances = convertTokenBalances(result.Meta.PostTokenBalances)

	return parsed, nil
}

func convertTokenBalances(balances []rpc.TokenBalance) []TokenBalance {
	if len(balances) == 0 {
		return nil
	}
	out := make([]TokenBalance, 0, len(balances))
	for _, b := range balances {
		tb := TokenBalance{
			AccountIndex: int(b.AccountIndex),
			Mint:         b.Mint.String(),
		}
		if b.Owner != nil {
			tb.Owner = b.Owner.String()
		}
		if b.UiTokenAmount != nil && b.UiTokenAmount.UiAmount != nil {
			tb.UiAmount = *b.UiTokenAmount.UiAmount
		}
		out = append(out, tb)
	}
	return out
}
