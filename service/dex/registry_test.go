package dex

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()

	assert.True(t, r.Contains(JupiterV6Program))
	assert.True(t, r.Contains(RaydiumAMMV4Program))
	assert.True(t, r.Contains(PumpFunProgram))

	// The system program is never a DEX.
	assert.False(t, r.Contains("11111111111111111111111111111111"))
	assert.False(t, r.Contains(""))

	assert.Equal(t, 8, r.Len())
}

func TestRegistry_Lookup(t *testing.T) {
	r := DefaultRegistry()

	name, ok := r.Lookup(JupiterV6Program)
	assert.True(t, ok)
	assert.Equal(t, "Jupiter", name)

	name, ok = r.Lookup(OrcaWhirlpoolProgram)
	assert.True(t, ok)
	assert.Equal(t, "Orca Whirlpool", name)

	_, ok = r.Lookup("not-a-program")
	assert.False(t, ok)
}

func TestRegistry_Names(t *testing.T) {
	names := DefaultRegistry().Names()

	assert.Len(t, names, 8)
	assert.Contains(t, names, "Jupiter")
	assert.Contains(t, names, "Pump.fun")
	assert.IsIncreasing(t, names)
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry(map[string]string{
		"prog1": "Test DEX",
	})

	assert.Equal(t, 1, r.Len())
	assert.True(t, r.Contains("prog1"))
	assert.False(t, r.Contains(JupiterV6Program))
}
