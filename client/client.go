// Package client provides an HTTP client for the copywatch dashboard API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Wallet represents a wallet the server is watching.
type Wallet struct {
	Address   string    `json:"address"`
	Label     string    `json:"label,omitempty"`
	Watching  bool      `json:"watching"`
	CreatedAt time.Time `json:"created_at"`
}

// Trade is one recorded swap leg of a watched wallet.
type Trade struct {
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

// Position is the per-mint aggregate of a wallet's recorded trades.
type Position struct {
	TokenMint   string    `json:"token_mint"`
	NetAmount   float64   `json:"net_amount"`
	SolSpent    float64   `json:"sol_spent"`
	SolReceived float64   `json:"sol_received"`
	TradeCount  int64     `json:"trade_count"`
	LastTradeAt time.Time `json:"last_trade_at"`
}

// WalletStats are the headline aggregates for one wallet.
type WalletStats struct {
	Address      string     `json:"address"`
	TradeCount   int64      `json:"trade_count"`
	BuyCount     int64      `json:"buy_count"`
	SellCount    int64      `json:"sell_count"`
	SolVolume    float64    `json:"sol_volume"`
	FirstTradeAt *time.Time `json:"first_trade_at,omitempty"`
	LastTradeAt  *time.Time `json:"last_trade_at,omitempty"`
}

// Client is the HTTP client for the copywatch service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new service client.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Register tells the server to start watching a wallet.
func (c *Client) Register(ctx context.Context, address, label string) (*Wallet, error) {
	reqBody := map[string]interface{}{
		"address": address,
		"label":   label,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/v1/wallets", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	var wallet Wallet
	if err := json.NewDecoder(resp.Body).Decode(&wallet); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	c.logger.Debug("wallet registered", "address", address)
	return &wallet, nil
}

// Unregister tells the server to stop watching a wallet.
func (c *Client) Unregister(ctx context.Context, address string) error {
	u := fmt.Sprintf("%s/api/v1/wallets/%s", c.baseURL, url.PathEscape(address))
	req, err := http.NewRequestWithContext(ctx, "DELETE", u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return c.parseErrorResponse(resp)
	}

	c.logger.Debug("wallet unregistered", "address", address)
	return nil
}

// List retrieves all watched wallets.
func (c *Client) List(ctx context.Context) ([]*Wallet, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/api/v1/wallets", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	var result struct {
		Wallets []*Wallet `json:"wallets"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return result.Wallets, nil
}

// ListTrades retrieves recorded trades, newest first. An empty address lists
// trades across all wallets.
func (c *Client) ListTrades(ctx context.Context, address string, limit, offset int) ([]*Trade, error) {
	u, err := url.Parse(c.baseURL + "/api/v1/trades")
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	query := u.Query()
	if address != "" {
		query.Set("wallet_address", address)
	}
	if limit > 0 {
		query.Set("limit", fmt.Sprintf("%d", limit))
	}
	if offset > 0 {
		query.Set("offset", fmt.Sprintf("%d", offset))
	}
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	var result struct {
		Trades []*Trade `json:"trades"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return result.Trades, nil
}

// GetPositions retrieves a wallet's derived per-mint positions.
func (c *Client) GetPositions(ctx context.Context, address string) ([]*Position, error) {
	u := fmt.Sprintf("%s/api/v1/positions/%s", c.baseURL, url.PathEscape(address))
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	var result struct {
		Positions []*Position `json:"positions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return result.Positions, nil
}

// GetStats retrieves a wallet's headline aggregates.
func (c *Client) GetStats(ctx context.Context, address string) (*WalletStats, error) {
	u := fmt.Sprintf("%s/api/v1/stats/%s", c.baseURL, url.PathEscape(address))
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	var stats WalletStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &stats, nil
}

// Health checks the server's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// parseErrorResponse extracts the error message from an API error response.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	var apiErr struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil || apiErr.Error == "" {
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	return fmt.Errorf("%s (status %d)", apiErr.Error, resp.StatusCode)
}
