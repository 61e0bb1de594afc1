package monitor

import (
	"math"
	"sort"

	"github.com/brojonat/copywatch/service/dex"
	"github.com/brojonat/copywatch/service/solana"
)

const (
	// NativeMint is the reserved asset ID for the native SOL leg of a swap
	// (the wrapped SOL mint).
	NativeMint = "So11111111111111111111111111111111111111112"

	// lamportsPerSOL scales raw lamport balances to SOL.
	lamportsPerSOL = 1e9

	// deltaEpsilon is the threshold below which a balance change is treated
	// as noise (rent, fees, rounding) rather than an economically meaningful
	// delta.
	deltaEpsilon = 1e-6
)

// balanceDelta is the per-asset net change of the wallet's holdings within
// one transaction (post minus pre).
type balanceDelta struct {
	accountIndex int
	mint         string
	delta        float64
}

// ExtractSwaps reconstructs the economic effect of tx on the target wallet
// and returns one Signal per detected swap leg, or nil when the transaction
// is not a swap.
//
// Classification is a conservative, false-negative-tolerant filter: unless a
// registered DEX program was invoked, the transaction is never a swap, no
// matter what the balances did. Among qualifying transactions, each non-native
// balance delta of the wallet becomes one signal; the native SOL delta prices
// the trade only when there is exactly one such leg. A token-to-token swap
// therefore yields a sell signal and a buy signal, each without a price.
//
// Missing or partial balance arrays degrade to "not a swap"; this function
// never panics on malformed input.
func ExtractSwaps(tx *solana.ParsedTransaction, wallet string, registry *dex.Registry) []Signal {
	if tx == nil {
		return nil
	}

	dexName, ok := invokedDex(tx, registry)
	if !ok {
		return nil
	}

	tokenDeltas := walletTokenDeltas(tx, wallet)
	if len(tokenDeltas) == 0 {
		return nil
	}

	solDelta := walletNativeDelta(tx, wallet)

	// The native delta can only be attributed to a single counterleg. With
	// more than one token leg (token-to-token routes) no sane split exists,
	// so those signals carry no native amount and no price.
	solAmount := 0.0
	if len(tokenDeltas) == 1 && math.Abs(solDelta) > deltaEpsilon {
		solAmount = math.Abs(solDelta)
	}

	signals := make([]Signal, 0, len(tokenDeltas))
	for _, d := range tokenDeltas {
		sig := Signal{
			Wallet:      wallet,
			Mint:        d.mint,
			TokenAmount: math.Abs(d.delta),
			SolAmount:   solAmount,
			DexName:     dexName,
			BlockTime:   tx.BlockTime,
			Signature:   tx.Signature,
		}
		if d.delta > 0 {
			sig.Direction = DirectionBuy
		} else {
			sig.Direction = DirectionSell
		}
		if sig.TokenAmount > 0 && sig.SolAmount > 0 {
			sig.Price = sig.SolAmount / sig.TokenAmount
		}
		signals = append(signals, sig)
	}

	return signals
}

// invokedDex reports whether any invoked program belongs to the registry and
// returns its display name.
func invokedDex(tx *solana.ParsedTransaction, registry *dex.Registry) (string, bool) {
	for _, programID := range tx.ProgramIDs {
		if name, ok := registry.Lookup(programID); ok {
			return name, true
		}
	}
	return "", false
}

// walletTokenDeltas computes the wallet's per-asset balance changes from the
// token balance snapshots, matching post entries to pre entries by account
// index and mint. A missing pre entry means the account was created in this
// transaction and counts as zero. Only deltas above the noise threshold are
// returned, ordered by token account index so multi-leg output is stable.
func walletTokenDeltas(tx *solana.ParsedTransaction, wallet string) []balanceDelta {
	type key struct {
		index int
		mint  string
	}

	pre := make(map[key]float64, len(tx.PreTokenBalances))
	for _, b := range tx.PreTokenBalances {
		if b.Owner != wallet {
			continue
		}
		pre[key{b.AccountIndex, b.Mint}] = b.UiAmount
	}

	var deltas []balanceDelta
	for _, b := range tx.PostTokenBalances {
		if b.Owner != wallet {
			continue
		}
		// Wrapped SOL accounts belong to the native leg, not a token leg.
		if b.Mint == NativeMint {
			continue
		}
		delta := b.UiAmount - pre[key{b.AccountIndex, b.Mint}]
		if math.Abs(delta) <= deltaEpsilon {
			continue
		}
		deltas = append(deltas, balanceDelta{
			accountIndex: b.AccountIndex,
			mint:         b.Mint,
			delta:        delta,
		})
	}

	sort.Slice(deltas, func(i, j int) bool {
		return deltas[i].accountIndex < deltas[j].accountIndex
	})

	return deltas
}

// walletNativeDelta computes the wallet's SOL balance change by locating its
// account index among the account keys. Returns 0 when the wallet is absent
// or the balance arrays are too short.
func walletNativeDelta(tx *solana.ParsedTransaction, wallet string) float64 {
	idx := -1
	for i, k := range tx.AccountKeys {
		if k == wallet {
			idx = i
			break
		}
	}
	if idx < 0 || idx >= len(tx.PreBalances) || idx >= len(tx.PostBalances) {
		return 0
	}
	return (float64(tx.PostBalances[idx]) - float64(tx.PreBalances[idx])) / lamportsPerSOL
}
