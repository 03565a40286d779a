package handler

import (
	"log/slog"
	"net/http"

	"github.com/quantlab/marketlab/internal/service"
)

// MarketHandler serves the read-only market views: the full snapshot, the
// trade log, the leaderboard, and per-agent wealth series.
type MarketHandler struct {
	svc    *service.MarketService
	logger *slog.Logger
}

// NewMarketHandler creates a MarketHandler.
func NewMarketHandler(svc *service.MarketService, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{svc: svc, logger: logHandler(logger, "market")}
}

// GetMarket returns the full market snapshot.
// GET /api/market
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Snapshot())
}

// ListTrades returns trade records, newest first. The optional agent query
// parameter filters to one participant.
// GET /api/trades?agent=Team_1&limit=50&offset=0
func (h *MarketHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	agent := r.URL.Query().Get("agent")
	trades, err := h.svc.Trades(r.Context(), agent, parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list trades failed", slog.Any("error", err))
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"trades": trades,
		"count":  len(trades),
	})
}

// Leaderboard returns all agents ranked by net worth.
// GET /api/leaderboard
func (h *MarketHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"leaderboard": h.svc.Leaderboard(),
	})
}

// Wealth returns one agent's wealth series.
// GET /api/wealth?agent=Team_1
func (h *MarketHandler) Wealth(w http.ResponseWriter, r *http.Request) {
	agent := r.URL.Query().Get("agent")
	if agent == "" {
		writeError(w, http.StatusBadRequest, "agent query parameter is required")
		return
	}
	series, err := h.svc.Wealth(agent)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"agent":  agent,
		"wealth": series,
	})
}
