// Package monitor watches a designated wallet for new on-chain activity,
// classifies DEX swaps, and emits one structured signal per detected
// buy or sell.
package monitor

import (
	"context"
	"time"
)

// Direction is the side of a detected swap from the watched wallet's
// perspective.
type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

// Signal is one detected swap leg: the wallet bought or sold TokenAmount of
// Mint, paying or receiving SolAmount of the native currency. Price is the
// native unit price (SolAmount / TokenAmount) and is zero when it cannot be
// derived, e.g. on the legs of a token-to-token swap.
type Signal struct {
	Direction   Direction `json:"direction"`
	Wallet      string    `json:"wallet"`
	Mint        string    `json:"mint"`
	TokenAmount float64   `json:"token_amount"`
	SolAmount   float64   `json:"sol_amount"`
	Price       float64   `json:"price,omitempty"`
	DexName     string    `json:"dex_name,omitempty"`
	BlockTime   time.Time `json:"block_time"`
	Signature   string    `json:"signature"`
}

// SignalSink receives signals emitted by a Monitor. Sinks are registered
// before Start and invoked in registration order for every signal; a sink
// error is logged and does not stop delivery to the remaining sinks.
type SignalSink interface {
	PublishSignal(ctx context.Context, sig *Signal) error
}

// ConnectedNotifier is optionally implemented by sinks that want to know
// when the monitor completes its first successful poll.
type ConnectedNotifier interface {
	MonitorConnected(wallet string)
}

// SinkFunc adapts a function to the SignalSink interface.
type SinkFunc func(ctx context.Context, sig *Signal) error

func (f SinkFunc) PublishSignal(ctx context.Context, sig *Signal) error {
	return f(ctx, sig)
}
