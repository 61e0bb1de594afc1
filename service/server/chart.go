package server

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/brojonat/copywatch/service/config"
	"github.com/brojonat/copywatch/service/metrics"
)

const chartProxyTimeout = 10 * time.Second

// handleChartProxy returns a handler that proxies token price history requests
// to the upstream chart API, attaching the API key server-side so it never
// reaches the browser.
// GET /api/v1/chart/{mint}?type={interval}&time_from={unix}&time_to={unix}
func handleChartProxy(cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) http.Handler {
	client := &http.Client{Timeout: chartProxyTimeout}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mint := r.PathValue("mint")

		if err := validateAddress(mint); err != nil {
			logger.Debug("invalid mint", "mint", mint, "error", err)
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		if cfg.ChartAPIKey == "" {
			writeError(w, "chart API not configured", http.StatusServiceUnavailable)
			return
		}

		upstream, err := url.Parse(cfg.ChartAPIURL)
		if err != nil {
			logger.Error("invalid chart API URL", "url", cfg.ChartAPIURL, "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}
		upstream.Path = "/defi/history_price"

		query := url.Values{}
		query.Set("address", mint)
		query.Set("address_type", "token")
		query.Set("type", queryOrDefault(r, "type", "15m"))
		if v := r.URL.Query().Get("time_from"); v != "" {
			query.Set("time_from", v)
		}
		if v := r.URL.Query().Get("time_to"); v != "" {
			query.Set("time_to", v)
		}
		upstream.RawQuery = query.Encode()

		req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, upstream.String(), nil)
		if err != nil {
			logger.Error("failed to build chart request", "mint", mint, "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}
		req.Header.Set("X-API-KEY", cfg.ChartAPIKey)
		req.Header.Set("Accept", "application/json")

		start := time.Now()
		resp, err := client.Do(req)
		if err != nil {
			logger.Warn("chart API request failed", "mint", mint, "error", err)
			m.RecordHTTPRequest("chart_upstream", http.MethodGet, http.StatusBadGateway, time.Since(start).Seconds())
			writeError(w, "chart API unavailable", http.StatusBadGateway)
			return
		}
		defer resp.Body.Close()
		m.RecordHTTPRequest("chart_upstream", http.MethodGet, resp.StatusCode, time.Since(start).Seconds())

		if resp.StatusCode != http.StatusOK {
			logger.Warn("chart API returned error",
				"mint", mint,
				"status", resp.StatusCode,
			)
			writeError(w, fmt.Sprintf("chart API returned status %d", resp.StatusCode), http.StatusBadGateway)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := io.Copy(w, resp.Body); err != nil {
			logger.Debug("failed to stream chart response", "mint", mint, "error", err)
		}
	})
}

func queryOrDefault(r *http.Request, key, defaultValue string) string {
	if v := r.URL.Query().Get(key); v != "" {
		return v
	}
	return defaultValue
}
