package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/brojonat/copywatch/service/db"
)

const (
	maxRequestBodySize = 1 << 20 // 1MB - plenty for wallet registration
	maxAddressLength   = 100     // Solana addresses are 44 chars, give buffer
	maxLabelLength     = 256
)

var (
	// Valid Solana address characters: base58 (no 0, O, I, l)
	validAddressRegex = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]+$`)
)

// walletStore is the subset of db.Store the wallet handlers use.
type walletStore interface {
	UpsertWatchedWallet(ctx context.Context, address, label string) (*db.WatchedWallet, error)
	DeleteWatchedWallet(ctx context.Context, address string) (bool, error)
	ListWatchedWallets(ctx context.Context) ([]*db.WatchedWallet, error)
}

// tradeStore is the subset of db.Store the trade handlers use.
type tradeStore interface {
	ListTrades(ctx context.Context, params db.ListTradesParams) ([]*db.Trade, error)
	GetPositions(ctx context.Context, walletAddress string) ([]*db.Position, error)
	GetWalletStats(ctx context.Context, walletAddress string) (*db.WalletStats, error)
}

// walletWatcher is the subset of monitor.Manager the wallet handlers use.
type walletWatcher interface {
	Watch(ctx context.Context, wallet string) error
	Unwatch(wallet string)
	IsWatching(wallet string) bool
}

// handleRegisterWallet returns a handler that registers a wallet for
// monitoring and starts its monitor.
// POST /api/v1/wallets
func handleRegisterWallet(store walletStore, watcher walletWatcher, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Limit request body size to prevent memory exhaustion
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

		var req struct {
			Address string `json:"address"`
			Label   string `json:"label"`
		}

		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Debug("failed to decode register request", "error", err)
			if strings.Contains(err.Error(), "http: request body too large") {
				writeError(w, "request body too large: maximum size is 1MB", http.StatusBadRequest)
				return
			}
			writeError(w, "invalid request body: must be valid JSON", http.StatusBadRequest)
			return
		}

		if err := validateAddress(req.Address); err != nil {
			logger.Debug("invalid address", "address", req.Address, "error", err)
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		if len(req.Label) > maxLabelLength {
			writeError(w, fmt.Sprintf("label too long: maximum length is %d characters", maxLabelLength), http.StatusBadRequest)
			return
		}

		wallet, err := store.UpsertWatchedWallet(r.Context(), req.Address, req.Label)
		if err != nil {
			logger.Error("failed to register wallet", "address", req.Address, "error", err)
			writeError(w, "failed to register wallet", http.StatusInternalServerError)
			return
		}

		statusCode := http.StatusCreated
		if watcher.IsWatching(req.Address) {
			// Re-registering an already-watched wallet only updates the label.
			statusCode = http.StatusOK
		} else {
			// The monitor must outlive this request; net/http cancels
			// r.Context() as soon as the response is written.
			watchCtx := context.WithoutCancel(r.Context())
			if err := watcher.Watch(watchCtx, req.Address); err != nil {
				logger.Error("failed to start monitor", "address", req.Address, "error", err)

				// Rollback: remove the wallet we just registered
				if _, delErr := store.DeleteWatchedWallet(r.Context(), req.Address); delErr != nil {
					logger.Error("failed to rollback wallet registration", "address", req.Address, "error", delErr)
				}

				writeError(w, "failed to start monitor for wallet", http.StatusInternalServerError)
				return
			}
		}

		logger.Info("wallet registered",
			"address", wallet.Address,
			"label", wallet.Label,
		)

		writeJSON(w, walletToResponse(wallet, true), statusCode)
	})
}

// handleUnregisterWallet returns a handler that stops a wallet's monitor and
// removes it from the watched set. Recorded trades are kept.
// DELETE /api/v1/wallets/{address}
func handleUnregisterWallet(store walletStore, watcher walletWatcher, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		address := r.PathValue("address")

		if err := validateAddress(address); err != nil {
			logger.Debug("invalid address", "address", address, "error", err)
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		// Stop the monitor first so nothing keeps polling a wallet that is
		// about to disappear from the watched set.
		watcher.Unwatch(address)

		deleted, err := store.DeleteWatchedWallet(r.Context(), address)
		if err != nil {
			logger.Error("failed to delete wallet", "address", address, "error", err)
			writeError(w, "failed to unregister wallet", http.StatusInternalServerError)
			return
		}

		if !deleted {
			writeError(w, "wallet not found", http.StatusNotFound)
			return
		}

		logger.Info("wallet unregistered", "address", address)
		w.WriteHeader(http.StatusNoContent)
	})
}

// handleListWallets returns a handler that lists all watched wallets.
// GET /api/v1/wallets
func handleListWallets(store walletStore, watcher walletWatcher, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wallets, err := store.ListWatchedWallets(r.Context())
		if err != nil {
			logger.Error("failed to list wallets", "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		logger.Debug("wallets listed", "count", len(wallets))

		resp := make([]walletResponse, len(wallets))
		for i, wallet := range wallets {
			resp[i] = walletToResponse(wallet, watcher.IsWatching(wallet.Address))
		}

		writeJSON(w, map[string]interface{}{
			"wallets": resp,
		}, http.StatusOK)
	})
}

// handleListTrades returns a handler that lists recorded trades.
// GET /api/v1/trades?wallet_address=ADDRESS&limit=N&offset=N
func handleListTrades(store tradeStore, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		walletAddress := query.Get("wallet_address")

		// wallet_address is optional; when present it must be well formed
		if walletAddress != "" {
			if err := validateAddress(walletAddress); err != nil {
				logger.Debug("invalid address", "address", walletAddress, "error", err)
				writeError(w, err.Error(), http.StatusBadRequest)
				return
			}
		}

		limit, err := parseQueryInt(query.Get("limit"), 50, 1, 1000)
		if err != nil {
			writeError(w, fmt.Sprintf("invalid limit parameter: %v", err), http.StatusBadRequest)
			return
		}

		offset, err := parseQueryInt(query.Get("offset"), 0, 0, 1<<30)
		if err != nil {
			writeError(w, fmt.Sprintf("invalid offset parameter: %v", err), http.StatusBadRequest)
			return
		}

		trades, err := store.ListTrades(r.Context(), db.ListTradesParams{
			WalletAddress: walletAddress,
			Limit:         int32(limit),
			Offset:        int32(offset),
		})
		if err != nil {
			logger.Error("failed to list trades", "wallet", walletAddress, "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		logger.Debug("trades listed", "wallet", walletAddress, "count", len(trades))

		resp := make([]tradeResponse, len(trades))
		for i := range trades {
			resp[i] = tradeToResponse(trades[i])
		}

		writeJSON(w, map[string]interface{}{
			"trades": resp,
			"count":  len(resp),
			"limit":  limit,
			"offset": offset,
		}, http.StatusOK)
	})
}

// handleGetPositions returns a handler that derives per-mint positions from a
// wallet's recorded trades.
// GET /api/v1/positions/{address}
func handleGetPositions(store tradeStore, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		address := r.PathValue("address")

		if err := validateAddress(address); err != nil {
			logger.Debug("invalid address", "address", address, "error", err)
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		positions, err := store.GetPositions(r.Context(), address)
		if err != nil {
			logger.Error("failed to get positions", "address", address, "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		resp := make([]positionResponse, len(positions))
		for i, p := range positions {
			resp[i] = positionResponse{
				TokenMint:   p.TokenMint,
				NetAmount:   p.NetAmount,
				SolSpent:    p.SolSpent,
				SolReceived: p.SolReceived,
				TradeCount:  p.TradeCount,
				LastTradeAt: p.LastTradeAt,
			}
		}

		writeJSON(w, map[string]interface{}{
			"address":   address,
			"positions": resp,
		}, http.StatusOK)
	})
}

// handleGetWalletStats returns a handler for a wallet's headline aggregates.
// GET /api/v1/stats/{address}
func handleGetWalletStats(store tradeStore, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		address := r.PathValue("address")

		if err := validateAddress(address); err != nil {
			logger.Debug("invalid address", "address", address, "error", err)
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		stats, err := store.GetWalletStats(r.Context(), address)
		if err != nil {
			logger.Error("failed to get wallet stats", "address", address, "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, statsResponse{
			Address:      address,
			TradeCount:   stats.TradeCount,
			BuyCount:     stats.BuyCount,
			SellCount:    stats.SellCount,
			SolVolume:    stats.SolVolume,
			FirstTradeAt: stats.FirstTradeAt,
			LastTradeAt:  stats.LastTradeAt,
		}, http.StatusOK)
	})
}

// walletResponse is the JSON response format for a watched wallet.
type walletResponse struct {
	Address   string    `json:"address"`
	Label     string    `json:"label,omitempty"`
	Watching  bool      `json:"watching"`
	CreatedAt time.Time `json:"created_at"`
}

// walletToResponse converts a domain WatchedWallet to a response format.
func walletToResponse(w *db.WatchedWallet, watching bool) walletResponse {
	return walletResponse{
		Address:   w.Address,
		Label:     w.Label,
		Watching:  watching,
		CreatedAt: w.CreatedAt,
	}
}

// tradeResponse is the JSON response format for a recorded trade.
type tradeResponse struct {
	ID            int64     `json:"id"`
	Signature     string    `json:"signature"`
	WalletAddress string    `json:"wallet_address"`
	Direction     string    `json:"direction"`
	TokenMint     string    `json:"token_mint"`
	TokenAmount   float64   `json:"token_amount"`
	SolAmount     float64   `json:"sol_amount"`
	Price         float64   `json:"price,omitempty"`
	DexName       string    `json:"dex_name,omitempty"`
	BlockTime     time.Time `json:"block_time"`
	CreatedAt     time.Time `json:"created_at"`
}

// tradeToResponse converts a domain Trade to a response format.
func tradeToResponse(t *db.Trade) tradeResponse {
	return tradeResponse{
		ID:            t.ID,
		Signature:     t.Signature,
		WalletAddress: t.WalletAddress,
		Direction:     t.Direction,
		TokenMint:     t.TokenMint,
		TokenAmount:   t.TokenAmount,
		SolAmount:     t.SolAmount,
		Price:         t.Price,
		DexName:       t.DexName,
		BlockTime:     t.BlockTime,
		CreatedAt:     t.CreatedAt,
	}
}

// positionResponse is the JSON response format for a derived position.
type positionResponse struct {
	TokenMint   string    `json:"token_mint"`
	NetAmount   float64   `json:"net_amount"`
	SolSpent    float64   `json:"sol_spent"`
	SolReceived float64   `json:"sol_received"`
	TradeCount  int64     `json:"trade_count"`
	LastTradeAt time.Time `json:"last_trade_at"`
}

// statsResponse is the JSON response format for wallet aggregates.
type statsResponse struct {
	Address      string     `json:"address"`
	TradeCount   int64      `json:"trade_count"`
	BuyCount     int64      `json:"buy_count"`
	SellCount    int64      `json:"sell_count"`
	SolVolume    float64    `json:"sol_volume"`
	FirstTradeAt *time.Time `json:"first_trade_at,omitempty"`
	LastTradeAt  *time.Time `json:"last_trade_at,omitempty"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// validateAddress validates a wallet address for security and format.
func validateAddress(address string) error {
	if address == "" {
		return errorf("address is required")
	}

	if len(address) > maxAddressLength {
		return errorf("address too long: maximum length is %d characters", maxAddressLength)
	}

	// Check for null bytes and control characters
	for _, r := range address {
		if r == 0 || unicode.IsControl(r) {
			return errorf("invalid characters in address: control characters not allowed")
		}
	}

	if !validAddressRegex.MatchString(address) {
		return errorf("invalid address format: must contain only valid base58 characters")
	}

	return nil
}

// parseQueryInt parses an optional integer query parameter with bounds.
func parseQueryInt(value string, defaultValue, min, max int) (int, error) {
	if value == "" {
		return defaultValue, nil
	}
	var parsed int
	if _, err := fmt.Sscanf(value, "%d", &parsed); err != nil {
		return 0, fmt.Errorf("must be an integer")
	}
	if parsed < min {
		return 0, fmt.Errorf("must be at least %d", min)
	}
	if parsed > max {
		return 0, fmt.Errorf("cannot exceed %d", max)
	}
	return parsed, nil
}

// errorf is a helper to format error strings.
func errorf(format string, args ...interface{}) error {
	return &validationError{msg: strings.TrimSpace(fmt.Sprintf(format, args...))}
}

type validationError struct {
	msg string
}

func (e *validationError) Error() string {
	return e.msg
}
