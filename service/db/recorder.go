package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/brojonat/copywatch/service/monitor"
)

// TradeRecorder is a monitor.SignalSink that persists every emitted signal
// as a trade row. Insertion is idempotent, so a replayed signal never
// produces a duplicate trade.
type TradeRecorder struct {
	store  *Store
	logger *slog.Logger
}

// NewTradeRecorder creates a recorder backed by the given store.
func NewTradeRecorder(store *Store, logger *slog.Logger) *TradeRecorder {
	return &TradeRecorder{
		store:  store,
		logger: logger,
	}
}

// PublishSignal records the signal as a trade.
func (r *TradeRecorder) PublishSignal(ctx context.Context, sig *monitor.Signal) error {
	trade, err := r.store.InsertTrade(ctx, InsertTradeParams{
		Signature:     sig.Signature,
		WalletAddress: sig.Wallet,
		Direction:     string(sig.Direction),
		TokenMint:     sig.Mint,
		TokenAmount:   sig.TokenAmount,
		SolAmount:     sig.SolAmount,
		Price:         sig.Price,
		DexName:       sig.DexName,
		BlockTime:     sig.BlockTime,
	})
	if err != nil {
		return fmt.Errorf("failed to record trade: %w", err)
	}

	if trade == nil {
		r.logger.DebugContext(ctx, "trade already recorded",
			"signature", sig.Signature,
			"wallet", sig.Wallet,
			"mint", sig.Mint,
		)
		return nil
	}

	r.logger.DebugContext(ctx, "trade recorded",
		"id", trade.ID,
		"signature", trade.Signature,
		"wallet", trade.WalletAddress,
		"direction", trade.Direction,
	)
	return nil
}
