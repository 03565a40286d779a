package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/quantlab/marketlab/internal/domain"
	"github.com/quantlab/marketlab/internal/service"
)

// RoundHandler serves order submission, round advancement, and regulation
// updates.
type RoundHandler struct {
	svc    *service.MarketService
	logger *slog.Logger
}

// NewRoundHandler creates a RoundHandler.
func NewRoundHandler(svc *service.MarketService, logger *slog.Logger) *RoundHandler {
	return &RoundHandler{svc: svc, logger: logHandler(logger, "round")}
}

type orderRequest struct {
	Team     string `json:"team"`
	Asset    string `json:"asset"`
	Action   string `json:"action"`
	Quantity int    `json:"quantity"`
}

// SubmitOrder stages one human team's order for the next round.
// POST /api/orders
func (h *RoundHandler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Team == "" {
		writeError(w, http.StatusBadRequest, "team is required")
		return
	}

	action, err := domain.ParseOrderAction(req.Action)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	intent := domain.OrderIntent{Asset: req.Asset, Action: action, Quantity: req.Quantity}
	if err := h.svc.SubmitOrder(r.Context(), req.Team, intent); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "staged"})
}

// AdvanceRound executes one round with all staged orders.
// POST /api/round/advance
func (h *RoundHandler) AdvanceRound(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.AdvanceRound(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "advance round failed", slog.Any("error", err))
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type regulationRequest struct {
	ShortSellingBan   bool    `json:"short_selling_ban"`
	CircuitBreakerPct float64 `json:"circuit_breaker_pct"`
}

// UpdateRegulation replaces the market-wide regulatory settings.
// PUT /api/regulation
func (h *RoundHandler) UpdateRegulation(w http.ResponseWriter, r *http.Request) {
	var req regulationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	reg := domain.Regulation{
		ShortSellingBan:   req.ShortSellingBan,
		CircuitBreakerPct: req.CircuitBreakerPct,
	}
	if err := h.svc.SetRegulation(r.Context(), reg); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, reg)
}
