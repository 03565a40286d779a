package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/quantlab/marketlab/internal/service"
)

// EventsHandler serves the out-of-round interventions: news shocks, resume,
// reset, and snapshot archival.
type EventsHandler struct {
	svc    *service.MarketService
	logger *slog.Logger
}

// NewEventsHandler creates an EventsHandler.
func NewEventsHandler(svc *service.MarketService, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{svc: svc, logger: logHandler(logger, "events")}
}

type newsRequest struct {
	Asset string `json:"asset"`
	// Kind selects a canonical shock: good, bad, or crash. Multiplier, when
	// positive, overrides it.
	Kind       string  `json:"kind"`
	Multiplier float64 `json:"multiplier"`
}

// PostNews applies a price shock to one asset.
// POST /api/events/news
func (h *EventsHandler) PostNews(w http.ResponseWriter, r *http.Request) {
	var req newsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	mult := req.Multiplier
	if mult == 0 {
		var err error
		if mult, err = service.ShockMultiplier(req.Kind); err != nil {
			writeDomainError(w, err)
			return
		}
	}

	price, err := h.svc.ApplyNews(r.Context(), req.Asset, mult)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"asset":      req.Asset,
		"multiplier": mult,
		"price":      price,
	})
}

// Resume lifts every trading halt.
// POST /api/events/resume
func (h *EventsHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.svc.ResumeAll(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"status": "resumed"})
}

// Reset rebuilds the simulation from its starting configuration.
// POST /api/reset
func (h *EventsHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.svc.Reset(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// Archive writes the current snapshot to object storage.
// POST /api/archive
func (h *EventsHandler) Archive(w http.ResponseWriter, r *http.Request) {
	key, err := h.svc.Archive(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "archive failed", slog.Any("error", err))
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": key})
}
