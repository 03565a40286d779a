package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quantlab/marketlab/internal/engine"
	"github.com/quantlab/marketlab/internal/server"
	"github.com/quantlab/marketlab/internal/server/ws"
	"github.com/quantlab/marketlab/internal/service"
)

// newService builds the simulation and wraps it in a MarketService with the
// wired adapters.
func (a *App) newService(deps *Dependencies) (*service.MarketService, error) {
	sim, err := engine.New(a.cfg.Market)
	if err != nil {
		return nil, fmt.Errorf("app: build simulation: %w", err)
	}
	return service.New(sim, service.Options{
		Trades:   deps.TradeStore,
		Cache:    deps.Cache,
		Bus:      deps.Bus,
		Archiver: deps.Archiver,
		Notifier: deps.Notifier,
		Logger:   a.logger,
	}), nil
}

// ServerMode runs the HTTP API and, when a signal bus is wired, the websocket
// hub. It blocks until the context is cancelled.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode",
		slog.Int("port", a.cfg.Server.Port))

	svc, err := a.newService(deps)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	var hub *ws.Hub
	if deps.Bus != nil {
		hub = ws.NewHub(deps.Bus, a.logger)
		g.Go(func() error {
			if err := hub.Run(ctx); err != nil && err != context.Canceled {
				return err
			}
			return nil
		})
	}

	srv := server.New(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
	}, svc, hub, a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// BatchMode runs a fixed number of bot-only rounds headlessly and logs the
// final leaderboard. Useful for policy experiments and smoke runs.
func (a *App) BatchMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting batch mode",
		slog.Int("rounds", a.cfg.Batch.Rounds))

	svc, err := a.newService(deps)
	if err != nil {
		return err
	}

	for i := 0; i < a.cfg.Batch.Rounds; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		res, err := svc.AdvanceRound(ctx)
		if err != nil {
			return fmt.Errorf("app: batch round %d: %w", i+1, err)
		}
		if !res.Committed {
			a.logger.WarnContext(ctx, "batch halted by circuit breaker, resuming",
				slog.Int("round", res.Round))
			svc.ResumeAll(ctx)
		}
	}

	for rank, agent := range svc.Leaderboard() {
		a.logger.InfoContext(ctx, "final standing",
			slog.Int("rank", rank+1),
			slog.String("agent", agent.Name),
			slog.Float64("net_worth", agent.NetWorth),
			slog.Float64("pnl", agent.PnL))
	}

	return nil
}
