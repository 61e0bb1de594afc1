package monitor

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLedger_AddAndHas(t *testing.T) {
	l := NewLedger()

	assert.False(t, l.Has("sig1"))

	l.Add("sig1")
	assert.True(t, l.Has("sig1"))
	assert.False(t, l.Has("sig2"))
	assert.Equal(t, 1, l.Len())
}

func TestLedger_AddIsIdempotent(t *testing.T) {
	l := NewLedger()

	l.Add("sig1")
	l.Add("sig1")
	l.Add("sig1")

	assert.Equal(t, 1, l.Len())
	assert.True(t, l.Has("sig1"))
}

func TestLedger_CompactsAboveCeiling(t *testing.T) {
	l := newLedgerWithBounds(10, 5)

	for i := 0; i < 11; i++ {
		l.Add(fmt.Sprintf("sig%d", i))
	}

	// Crossing the ceiling keeps only the most recent suffix.
	assert.Equal(t, 5, l.Len())
	for i := 0; i < 6; i++ {
		assert.False(t, l.Has(fmt.Sprintf("sig%d", i)), "sig%d should have been evicted", i)
	}
	for i := 6; i < 11; i++ {
		assert.True(t, l.Has(fmt.Sprintf("sig%d", i)), "sig%d should be retained", i)
	}
}

func TestLedger_NeverExceedsCeiling(t *testing.T) {
	l := newLedgerWithBounds(10, 5)

	for i := 0; i < 1000; i++ {
		l.Add(fmt.Sprintf("sig%d", i))
		assert.LessOrEqual(t, l.Len(), 10)
	}

	// The most recent signature always survives.
	assert.True(t, l.Has("sig999"))
}

func TestLedger_DefaultBounds(t *testing.T) {
	l := NewLedger()

	for i := 0; i < 1001; i++ {
		l.Add(fmt.Sprintf("sig%d", i))
	}

	assert.Equal(t, 500, l.Len())
	assert.True(t, l.Has("sig1000"))
	assert.False(t, l.Has("sig0"))
}
