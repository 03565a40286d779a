// Package service coordinates the simulation engine with the persistence and
// messaging adapters. MarketService is the single writer of simulation state;
// every entry point takes the service mutex, so the engine itself stays free
// of locking.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/quantlab/marketlab/internal/domain"
	"github.com/quantlab/marketlab/internal/engine"
	"github.com/quantlab/marketlab/internal/notify"
)

// Pub/sub channels the service publishes to after state changes.
const (
	ChannelRounds = "rounds"
	ChannelEvents = "events"
	ChannelHalts  = "halts"
)

// Notification event names, matched against the configured notify filter.
const (
	EventCircuitBreaker = "circuit_breaker"
	EventNews           = "news"
	EventReset          = "reset"
	EventResume         = "resume"
)

// Options carries the optional adapters. Any of them may be nil; the service
// degrades to pure in-memory operation.
type Options struct {
	Trades   domain.TradeStore
	Cache    domain.SnapshotCache
	Bus      domain.SignalBus
	Archiver domain.SnapshotArchiver
	Notifier *notify.Notifier
	Logger   *slog.Logger
}

// MarketService owns the simulation and the pending order book for the
// current round. All methods are safe for concurrent use.
type MarketService struct {
	mu      sync.Mutex
	sim     *engine.Simulation
	pending map[string]domain.OrderIntent

	trades   domain.TradeStore
	cache    domain.SnapshotCache
	bus      domain.SignalBus
	archiver domain.SnapshotArchiver
	notifier *notify.Notifier
	logger   *slog.Logger
}

// New wires a MarketService around an existing simulation.
func New(sim *engine.Simulation, opts Options) *MarketService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &MarketService{
		sim:      sim,
		pending:  make(map[string]domain.OrderIntent),
		trades:   opts.Trades,
		cache:    opts.Cache,
		bus:      opts.Bus,
		archiver: opts.Archiver,
		notifier: opts.Notifier,
		logger:   logger.With(slog.String("component", "service")),
	}
}

// SubmitOrder stages a human team's intent for the next round, replacing any
// intent the team already staged. Quantities are clamped to the configured
// per-order bound.
func (m *MarketService) SubmitOrder(ctx context.Context, team string, intent domain.OrderIntent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.sim.HasHuman(team) {
		return fmt.Errorf("service: submit order for %q: %w", team, domain.ErrUnknownAgent)
	}
	if !m.sim.HasAsset(intent.Asset) {
		return fmt.Errorf("service: submit order for %q asset %q: %w", team, intent.Asset, domain.ErrUnknownAsset)
	}
	if intent.Quantity < 0 {
		intent.Quantity = 0
	}
	if max := m.sim.MaxOrderQty(); intent.Quantity > max {
		intent.Quantity = max
	}

	m.pending[team] = intent
	m.logger.DebugContext(ctx, "order staged",
		slog.String("team", team),
		slog.String("asset", intent.Asset),
		slog.String("action", string(intent.Action)),
		slog.Int("quantity", intent.Quantity))
	return nil
}

// PendingOrders returns a copy of the orders staged for the next round.
func (m *MarketService) PendingOrders() map[string]domain.OrderIntent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]domain.OrderIntent, len(m.pending))
	for k, v := range m.pending {
		out[k] = v
	}
	return out
}

// AdvanceRound consumes all staged orders and executes one round. Persistence
// and fan-out failures are logged but never fail the round: the in-memory
// simulation is the source of truth.
func (m *MarketService) AdvanceRound(ctx context.Context) (engine.RoundResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	orders := m.pending
	m.pending = make(map[string]domain.OrderIntent)

	res, err := m.sim.RunRound(orders)
	if err != nil {
		return engine.RoundResult{}, fmt.Errorf("service: advance round: %w", err)
	}

	if res.Committed {
		m.logger.InfoContext(ctx, "round committed",
			slog.Int("round", res.Round),
			slog.Int("trades", len(res.Trades)))
		if m.trades != nil && len(res.Trades) > 0 {
			if err := m.trades.InsertBatch(ctx, res.Trades); err != nil {
				m.logger.ErrorContext(ctx, "trade log persist failed", slog.Any("error", err))
			}
		}
	} else {
		m.logger.WarnContext(ctx, "circuit breaker tripped",
			slog.Int("round", res.Round),
			slog.String("breached", strings.Join(res.Breached, ",")))
		m.notify(ctx, EventCircuitBreaker,
			fmt.Sprintf("Circuit breaker tripped in round %d (%s). All trading halted.",
				res.Round, strings.Join(res.Breached, ", ")))
	}

	m.refreshCacheLocked(ctx)
	m.publishLocked(ctx, ChannelRounds, res)
	if !res.Committed {
		m.publishLocked(ctx, ChannelHalts, res)
	}

	return res, nil
}

// newsShocks maps the named shock kinds onto their price multipliers.
var newsShocks = map[string]float64{
	"good":  engine.GoodNewsMultiplier,
	"bad":   engine.BadNewsMultiplier,
	"crash": engine.CrashMultiplier,
}

// ShockMultiplier resolves a named news kind to its multiplier.
func ShockMultiplier(kind string) (float64, error) {
	mult, ok := newsShocks[strings.ToLower(kind)]
	if !ok {
		return 0, fmt.Errorf("service: news kind %q: %w", kind, domain.ErrInvalidShock)
	}
	return mult, nil
}

// ApplyNews applies a price shock to one asset and fans the event out.
func (m *MarketService) ApplyNews(ctx context.Context, symbol string, multiplier float64) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	price, err := m.sim.ApplyNews(symbol, multiplier)
	if err != nil {
		return 0, fmt.Errorf("service: apply news: %w", err)
	}
	m.logger.InfoContext(ctx, "news shock applied",
		slog.String("asset", symbol),
		slog.Float64("multiplier", multiplier),
		slog.Float64("price", price))

	m.refreshCacheLocked(ctx)
	m.publishLocked(ctx, ChannelEvents, map[string]any{
		"event":      EventNews,
		"asset":      symbol,
		"multiplier": multiplier,
		"price":      price,
	})
	m.notify(ctx, EventNews,
		fmt.Sprintf("News shock on %s: x%.2f, price now %.2f", symbol, multiplier, price))
	return price, nil
}

// ResumeAll lifts every trading halt.
func (m *MarketService) ResumeAll(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sim.ResumeAll()
	m.logger.InfoContext(ctx, "trading resumed on all assets")

	m.refreshCacheLocked(ctx)
	m.publishLocked(ctx, ChannelEvents, map[string]any{"event": EventResume})
	m.notify(ctx, EventResume, "Trading resumed on all assets.")
}

// Reset rebuilds the simulation from its fixed starting configuration and
// clears the persisted trade log.
func (m *MarketService) Reset(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sim.Reset()
	m.pending = make(map[string]domain.OrderIntent)
	m.logger.InfoContext(ctx, "simulation reset")

	if m.trades != nil {
		if err := m.trades.DeleteAll(ctx); err != nil {
			m.logger.ErrorContext(ctx, "trade log clear failed", slog.Any("error", err))
		}
	}
	m.refreshCacheLocked(ctx)
	m.publishLocked(ctx, ChannelEvents, map[string]any{"event": EventReset})
	m.notify(ctx, EventReset, "Simulation reset to starting configuration.")
}

// SetRegulation applies new market-wide regulatory settings.
func (m *MarketService) SetRegulation(ctx context.Context, reg domain.Regulation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.sim.SetCircuitBreakerPct(reg.CircuitBreakerPct); err != nil {
		return fmt.Errorf("service: set regulation: %w", err)
	}
	m.sim.SetShortSellingBan(reg.ShortSellingBan)
	m.logger.InfoContext(ctx, "regulation updated",
		slog.Bool("short_selling_ban", reg.ShortSellingBan),
		slog.Float64("circuit_breaker_pct", reg.CircuitBreakerPct))

	m.refreshCacheLocked(ctx)
	return nil
}

// Snapshot returns the current full market snapshot.
func (m *MarketService) Snapshot() domain.MarketSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sim.Snapshot()
}

// Leaderboard returns all agents sorted by net worth, highest first.
func (m *MarketService) Leaderboard() []domain.AgentSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sim.Leaderboard()
}

// Trades lists trade records, newest first. It reads from the persistent
// store when one is wired and falls back to the in-memory log otherwise.
func (m *MarketService) Trades(ctx context.Context, agent string, opts domain.ListOpts) ([]domain.TradeRecord, error) {
	if m.trades != nil {
		if agent != "" {
			return m.trades.ListByAgent(ctx, agent, opts)
		}
		return m.trades.List(ctx, opts)
	}

	m.mu.Lock()
	log := m.sim.TradeLog()
	m.mu.Unlock()

	// Newest first, matching the store ordering.
	filtered := make([]domain.TradeRecord, 0, len(log))
	for i := len(log) - 1; i >= 0; i-- {
		if agent == "" || log[i].Agent == agent {
			filtered = append(filtered, log[i])
		}
	}
	if opts.Offset > 0 {
		if opts.Offset >= len(filtered) {
			return nil, nil
		}
		filtered = filtered[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(filtered) {
		filtered = filtered[:opts.Limit]
	}
	return filtered, nil
}

// Wealth returns an agent's wealth series, one mark per committed round plus
// the starting point.
func (m *MarketService) Wealth(agent string) ([]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	series := m.sim.WealthSeries(agent)
	if series == nil {
		return nil, fmt.Errorf("service: wealth for %q: %w", agent, domain.ErrUnknownAgent)
	}
	return series, nil
}

// Archive writes the current snapshot to long-term storage and returns its
// storage key.
func (m *MarketService) Archive(ctx context.Context) (string, error) {
	if m.archiver == nil {
		return "", fmt.Errorf("service: archive: no archiver configured")
	}
	snap := m.Snapshot()
	key, err := m.archiver.Archive(ctx, snap)
	if err != nil {
		return "", fmt.Errorf("service: archive: %w", err)
	}
	m.logger.InfoContext(ctx, "snapshot archived", slog.String("key", key))
	return key, nil
}

// refreshCacheLocked pushes the current snapshot into the cache. Callers must
// hold the mutex.
func (m *MarketService) refreshCacheLocked(ctx context.Context) {
	if m.cache == nil {
		return
	}
	if err := m.cache.SetLatest(ctx, m.sim.Snapshot()); err != nil {
		m.logger.ErrorContext(ctx, "snapshot cache update failed", slog.Any("error", err))
	}
}

// publishLocked serializes payload and publishes it on the signal bus.
// Callers must hold the mutex.
func (m *MarketService) publishLocked(ctx context.Context, channel string, payload any) {
	if m.bus == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		m.logger.ErrorContext(ctx, "payload marshal failed", slog.Any("error", err))
		return
	}
	if err := m.bus.Publish(ctx, channel, data); err != nil {
		m.logger.ErrorContext(ctx, "publish failed",
			slog.String("channel", channel), slog.Any("error", err))
	}
}

// notify routes an operator notification through the configured channels.
func (m *MarketService) notify(ctx context.Context, event, text string) {
	if m.notifier == nil {
		return
	}
	m.notifier.Notify(ctx, event, text)
}
