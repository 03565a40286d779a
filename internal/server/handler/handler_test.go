package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantlab/marketlab/internal/config"
	"github.com/quantlab/marketlab/internal/domain"
	"github.com/quantlab/marketlab/internal/engine"
	"github.com/quantlab/marketlab/internal/service"
)

func newTestService(t *testing.T) *service.MarketService {
	t.Helper()
	cfg := config.Defaults().Market
	cfg.Bots = nil
	cfg.Seed = 1
	sim, err := engine.New(cfg)
	require.NoError(t, err)
	return service.New(sim, service.Options{Logger: slog.Default()})
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestGetMarket(t *testing.T) {
	h := NewMarketHandler(newTestService(t), slog.Default())

	rec := httptest.NewRecorder()
	h.GetMarket(rec, httptest.NewRequest(http.MethodGet, "/api/market", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var snap domain.MarketSnapshot
	decodeBody(t, rec, &snap)
	assert.Equal(t, 1, snap.Round)
	assert.Len(t, snap.Assets, 2)
	assert.Len(t, snap.Agents, 10)
}

func TestSubmitOrderAndAdvance(t *testing.T) {
	svc := newTestService(t)
	round := NewRoundHandler(svc, slog.Default())

	body := `{"team":"Team_1","asset":"ABC","action":"BUY","quantity":100}`
	rec := httptest.NewRecorder()
	round.SubmitOrder(rec, httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(body)))
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = httptest.NewRecorder()
	round.AdvanceRound(rec, httptest.NewRequest(http.MethodPost, "/api/round/advance", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var res engine.RoundResult
	decodeBody(t, rec, &res)
	assert.True(t, res.Committed)
	assert.Equal(t, 1, res.Round)
	assert.InDelta(t, 102.5, res.Prices["ABC"], 1e-9)
}

func TestSubmitOrderErrors(t *testing.T) {
	round := NewRoundHandler(newTestService(t), slog.Default())

	cases := []struct {
		name string
		body string
		code int
	}{
		{"bad json", `{`, http.StatusBadRequest},
		{"missing team", `{"asset":"ABC","action":"BUY","quantity":1}`, http.StatusBadRequest},
		{"bad action", `{"team":"Team_1","asset":"ABC","action":"YOLO","quantity":1}`, http.StatusBadRequest},
		{"unknown team", `{"team":"Team_99","asset":"ABC","action":"BUY","quantity":1}`, http.StatusNotFound},
		{"unknown asset", `{"team":"Team_1","asset":"QQQ","action":"BUY","quantity":1}`, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			round.SubmitOrder(rec, httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(tc.body)))
			assert.Equal(t, tc.code, rec.Code)
		})
	}
}

func TestUpdateRegulation(t *testing.T) {
	svc := newTestService(t)
	round := NewRoundHandler(svc, slog.Default())

	rec := httptest.NewRecorder()
	round.UpdateRegulation(rec, httptest.NewRequest(http.MethodPut, "/api/regulation",
		strings.NewReader(`{"short_selling_ban":true,"circuit_breaker_pct":0.25}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, svc.Snapshot().Regulation.ShortSellingBan)

	rec = httptest.NewRecorder()
	round.UpdateRegulation(rec, httptest.NewRequest(http.MethodPut, "/api/regulation",
		strings.NewReader(`{"circuit_breaker_pct":0.9}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostNews(t *testing.T) {
	events := NewEventsHandler(newTestService(t), slog.Default())

	rec := httptest.NewRecorder()
	events.PostNews(rec, httptest.NewRequest(http.MethodPost, "/api/events/news",
		strings.NewReader(`{"asset":"XYZ","kind":"bad"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	var out map[string]any
	decodeBody(t, rec, &out)
	assert.InDelta(t, 180, out["price"].(float64), 1e-9)

	rec = httptest.NewRecorder()
	events.PostNews(rec, httptest.NewRequest(http.MethodPost, "/api/events/news",
		strings.NewReader(`{"asset":"XYZ","kind":"meteor"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWealthEndpoint(t *testing.T) {
	market := NewMarketHandler(newTestService(t), slog.Default())

	rec := httptest.NewRecorder()
	market.Wealth(rec, httptest.NewRequest(http.MethodGet, "/api/wealth?agent=Team_1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	market.Wealth(rec, httptest.NewRequest(http.MethodGet, "/api/wealth", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	market.Wealth(rec, httptest.NewRequest(http.MethodGet, "/api/wealth?agent=Nobody", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLeaderboardAndTrades(t *testing.T) {
	svc := newTestService(t)
	market := NewMarketHandler(svc, slog.Default())

	rec := httptest.NewRecorder()
	market.Leaderboard(rec, httptest.NewRequest(http.MethodGet, "/api/leaderboard", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	market.ListTrades(rec, httptest.NewRequest(http.MethodGet, "/api/trades?limit=10", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Count int `json:"count"`
	}
	decodeBody(t, rec, &out)
	assert.Equal(t, 0, out.Count)
}

func TestResetEndpoint(t *testing.T) {
	svc := newTestService(t)
	events := NewEventsHandler(svc, slog.Default())

	_, err := svc.ApplyNews(httptest.NewRequest(http.MethodGet, "/", nil).Context(), "ABC", 1.10)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	events.Reset(rec, httptest.NewRequest(http.MethodPost, "/api/reset", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	snap := svc.Snapshot()
	for _, a := range snap.Assets {
		if a.Symbol == "ABC" {
			assert.InDelta(t, 100, a.Price, 1e-9)
			assert.Empty(t, a.History)
		}
	}
}
