package main

import (
	"testing"
	"time"

	natspkg "github.com/brojonat/copywatch/service/nats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEvent() *natspkg.SignalEvent {
	return &natspkg.SignalEvent{
		Direction:     "buy",
		WalletAddress: "DYw8jCTfwHNRJhhmFcbXvVDTqWMEVFBX6ZKUmG5CNSKK",
		Mint:          "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		TokenAmount:   1000,
		SolAmount:     0.75,
		Price:         0.00075,
		DexName:       "Jupiter",
		BlockTime:     time.Date(2026, 2, 10, 14, 30, 0, 0, time.UTC),
		Signature:     "sig1",
		PublishedAt:   time.Now().UTC(),
	}
}

func TestCompileFilters(t *testing.T) {
	filters, err := compileFilters([]string{`.direction == "buy"`, `.sol_amount > 0.5`})
	require.NoError(t, err)
	assert.Len(t, filters, 2)

	_, err = compileFilters([]string{`.direction ==`})
	assert.Error(t, err)

	filters, err = compileFilters(nil)
	require.NoError(t, err)
	assert.Empty(t, filters)
}

func TestMatchesFilters(t *testing.T) {
	tests := []struct {
		name    string
		exprs   []string
		matches bool
	}{
		{"no filters match everything", nil, true},
		{"direction matches", []string{`.direction == "buy"`}, true},
		{"direction mismatch", []string{`.direction == "sell"`}, false},
		{"numeric comparison", []string{`.sol_amount > 0.5`}, true},
		{"numeric mismatch", []string{`.sol_amount > 1.0`}, false},
		{"all filters must match", []string{`.direction == "buy"`, `.sol_amount > 1.0`}, false},
		{"combined filters match", []string{`.direction == "buy"`, `.dex_name == "Jupiter"`}, true},
		{"missing field is null and falsy", []string{`.no_such_field`}, false},
		{"non-boolean truthy result", []string{`.mint`}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filters, err := compileFilters(tt.exprs)
			require.NoError(t, err)
			assert.Equal(t, tt.matches, matchesFilters(testEvent(), filters))
		})
	}
}

func TestIsTruthy(t *testing.T) {
	assert.False(t, isTruthy(nil))
	assert.False(t, isTruthy(false))
	assert.True(t, isTruthy(true))
	assert.True(t, isTruthy(0.0))
	assert.True(t, isTruthy(""))
	assert.True(t, isTruthy([]interface{}{}))
}
