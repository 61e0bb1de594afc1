package nats

import (
	"time"

	"github.com/brojonat/copywatch/service/monitor"
)

// SignalEvent is the wire form of a swap signal published to NATS.
// Events land on the subject "signals.{wallet_address}" in JetStream.
type SignalEvent struct {
	Direction     string    `json:"direction"` // "buy" or "sell"
	WalletAddress string    `json:"wallet_address"`
	Mint          string    `json:"mint"`
	TokenAmount   float64   `json:"token_amount"`
	SolAmount     float64   `json:"sol_amount"`
	Price         float64   `json:"price,omitempty"`
	DexName       string    `json:"dex_name,omitempty"`
	Signature     string    `json:"signature"`
	BlockTime     time.Time `json:"block_time"`
	PublishedAt   time.Time `json:"published_at"`
}

// FromSignal converts a monitor signal to its wire form.
func FromSignal(sig *monitor.Signal) *SignalEvent {
	return &SignalEvent{
		Direction:     string(sig.Direction),
		WalletAddress: sig.Wallet,
		Mint:          sig.Mint,
		TokenAmount:   sig.TokenAmount,
		SolAmount:     sig.SolAmount,
		Price:         sig.Price,
		DexName:       sig.DexName,
		Signature:     sig.Signature,
		BlockTime:     sig.BlockTime,
		PublishedAt:   time.Now().UTC(),
	}
}
