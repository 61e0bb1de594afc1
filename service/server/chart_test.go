package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/brojonat/copywatch/service/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chartRequest(mint, rawQuery string) *http.Request {
	req := httptest.NewRequest("GET", "/api/v1/chart/"+mint+"?"+rawQuery, nil)
	req.SetPathValue("mint", mint)
	return req
}

func TestHandleChartProxy(t *testing.T) {
	var gotKey, gotQuery string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-KEY")
		gotQuery = r.URL.RawQuery
		assert.Equal(t, "/defi/history_price", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": {"items": []}}`))
	}))
	defer upstream.Close()

	cfg := &config.Config{ChartAPIURL: upstream.URL, ChartAPIKey: "secret"}
	handler := handleChartProxy(cfg, nil, testLogger())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, chartRequest(testMint, "type=1H&time_from=100&time_to=200"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "secret", gotKey)
	assert.Contains(t, gotQuery, "address="+testMint)
	assert.Contains(t, gotQuery, "address_type=token")
	assert.Contains(t, gotQuery, "type=1H")
	assert.Contains(t, gotQuery, "time_from=100")
	assert.Contains(t, gotQuery, "time_to=200")
	assert.JSONEq(t, `{"data": {"items": []}}`, rec.Body.String())
}

func TestHandleChartProxy_DefaultInterval(t *testing.T) {
	var gotQuery string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{}`))
	}))
	defer upstream.Close()

	cfg := &config.Config{ChartAPIURL: upstream.URL, ChartAPIKey: "secret"}
	handler := handleChartProxy(cfg, nil, testLogger())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, chartRequest(testMint, ""))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, gotQuery, "type=15m")
}

func TestHandleChartProxy_MissingKey(t *testing.T) {
	cfg := &config.Config{ChartAPIURL: "https://example.com"}
	handler := handleChartProxy(cfg, nil, testLogger())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, chartRequest(testMint, ""))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleChartProxy_InvalidMint(t *testing.T) {
	cfg := &config.Config{ChartAPIURL: "https://example.com", ChartAPIKey: "secret"}
	handler := handleChartProxy(cfg, nil, testLogger())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, chartRequest("not-a-mint!", ""))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleChartProxy_UpstreamError(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer upstream.Close()

	cfg := &config.Config{ChartAPIURL: upstream.URL, ChartAPIKey: "secret"}
	handler := handleChartProxy(cfg, nil, testLogger())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, chartRequest(testMint, ""))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestHandleChartProxy_UpstreamUnreachable(t *testing.T) {
	// Closed server gives a connection error rather than an HTTP status.
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	upstream.Close()

	cfg := &config.Config{ChartAPIURL: upstream.URL, ChartAPIKey: "secret"}
	handler := handleChartProxy(cfg, nil, testLogger())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, chartRequest(testMint, ""))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
