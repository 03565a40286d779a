// Package server assembles the HTTP API and websocket stream for the market
// lab.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/quantlab/marketlab/internal/server/handler"
	"github.com/quantlab/marketlab/internal/server/middleware"
	"github.com/quantlab/marketlab/internal/server/ws"
	"github.com/quantlab/marketlab/internal/service"
)

// Config holds HTTP server parameters.
type Config struct {
	Port        int
	CORSOrigins []string
}

// Server is the HTTP + websocket front end.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// New registers all routes and builds the middleware chain. wsHub may be nil
// when no signal bus is configured; the /ws route is then omitted.
func New(cfg Config, svc *service.MarketService, wsHub *ws.Hub, logger *slog.Logger) *Server {
	health := handler.NewHealthHandler(logger)
	market := handler.NewMarketHandler(svc, logger)
	round := handler.NewRoundHandler(svc, logger)
	events := handler.NewEventsHandler(svc, logger)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", health.HealthCheck)

	mux.HandleFunc("GET /api/market", market.GetMarket)
	mux.HandleFunc("GET /api/trades", market.ListTrades)
	mux.HandleFunc("GET /api/leaderboard", market.Leaderboard)
	mux.HandleFunc("GET /api/wealth", market.Wealth)

	mux.HandleFunc("POST /api/orders", round.SubmitOrder)
	mux.HandleFunc("POST /api/round/advance", round.AdvanceRound)
	mux.HandleFunc("PUT /api/regulation", round.UpdateRegulation)

	mux.HandleFunc("POST /api/events/news", events.PostNews)
	mux.HandleFunc("POST /api/events/resume", events.Resume)
	mux.HandleFunc("POST /api/reset", events.Reset)
	mux.HandleFunc("POST /api/archive", events.Archive)

	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{httpServer: srv, logger: logger}
}

// Start blocks serving requests until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	s.logger.Info("server: starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	return s.httpServer.Shutdown(ctx)
}
