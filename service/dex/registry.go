// Package dex identifies the decentralized exchange programs whose invocation
// marks a transaction as swap-capable.
package dex

import "sort"

// Registry is a static, read-only mapping from Solana program ID to a
// human-readable DEX name. Membership is the only query the monitor needs;
// there is no runtime mutation.
type Registry struct {
	programs map[string]string
}

// Well-known swap program IDs on Solana mainnet.
const (
	JupiterV6Program     = "JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4"
	RaydiumAMMV4Program  = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
	RaydiumCLMMProgram   = "CAMMCzo5YL8w4VFF8KVHrK22GGUsp5VTaW7grrKgrWqK"
	OrcaWhirlpoolProgram = "whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc"
	OrcaLegacyProgram    = "9W959DqEETiGZocYWCQPaJ6sBmUzgfxXfqGeTEdp3aQP"
	MeteoraDLMMProgram   = "LBUZKhRxPF3XUpBCjp4YzTKgLccjZhTSDM9YuVaPwxo"
	PumpFunProgram       = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"
	PhoenixProgram       = "PhoeNiXZ8ByJGLkxNfZRnkUfjvmuYqLR89jjFHGqdXY"
)

// DefaultRegistry returns the registry of swap programs the monitor
// classifies against. The set is deliberately conservative: an unknown
// program means "not a swap", never a false positive.
func DefaultRegistry() *Registry {
	return &Registry{
		programs: map[string]string{
			JupiterV6Program:     "Jupiter",
			RaydiumAMMV4Program:  "Raydium AMM v4",
			RaydiumCLMMProgram:   "Raydium CLMM",
			OrcaWhirlpoolProgram: "Orca Whirlpool",
			OrcaLegacyProgram:    "Orca",
			MeteoraDLMMProgram:   "Meteora DLMM",
			PumpFunProgram:       "Pump.fun",
			PhoenixProgram:       "Phoenix",
		},
	}
}

// NewRegistry builds a registry from an explicit program ID -> name map.
// Useful in tests and for deployments that want a narrower set.
func NewRegistry(programs map[string]string) *Registry {
	m := make(map[string]string, len(programs))
	for id, name := range programs {
		m[id] = name
	}
	return &Registry{programs: m}
}

// Contains reports whether programID belongs to a known DEX.
func (r *Registry) Contains(programID string) bool {
	_, ok := r.programs[programID]
	return ok
}

// Lookup returns the display name for programID.
func (r *Registry) Lookup(programID string) (string, bool) {
	name, ok := r.programs[programID]
	return name, ok
}

// Len returns the number of registered programs.
func (r *Registry) Len() int {
	return len(r.programs)
}

// Names returns the display names of all registered DEXes, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.programs))
	for _, name := range r.programs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
