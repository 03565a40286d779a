// Package engine implements the round execution engine: order validation and
// execution, price formation from order imbalance, the market-wide circuit
// breaker, news shocks, and mark-to-market wealth tracking.
//
// A Simulation is a plain in-memory aggregate and is NOT safe for concurrent
// use; callers that accept concurrent submissions must serialize access (see
// internal/service.MarketService).
package engine

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/quantlab/marketlab/internal/config"
	"github.com/quantlab/marketlab/internal/domain"
	"github.com/quantlab/marketlab/internal/policy"
)

// Simulation owns all market state: the asset and agent ledgers, the trade
// log, the per-agent wealth series, the regulatory settings, and the round
// counter. It is created once from a fixed configuration and mutated in
// place every round; Reset rebuilds it from the same configuration.
type Simulation struct {
	cfg config.MarketConfig

	round   int
	symbols []string
	assets  map[string]*domain.Asset

	humans   []*domain.Agent
	bots     []*domain.Agent
	policies map[string]policy.Kind // bot name -> decision policy

	tradeLog []domain.TradeRecord
	wealth   map[string][]float64

	shortBan    bool
	breakerPct  float64
	maxOrderQty int

	rng *rand.Rand
}

// New builds a Simulation from the given market configuration. The
// configuration is expected to have passed config.Validate; policy kinds are
// still re-checked here because the engine dispatches on them.
func New(cfg config.MarketConfig) (*Simulation, error) {
	s := &Simulation{cfg: cfg}
	if err := s.init(); err != nil {
		return nil, err
	}
	return s, nil
}

// init (re)builds all state from the stored configuration.
func (s *Simulation) init() error {
	s.round = 1
	s.symbols = make([]string, 0, len(s.cfg.Assets))
	s.assets = make(map[string]*domain.Asset, len(s.cfg.Assets))
	for _, a := range s.cfg.Assets {
		if a.Price <= 0 {
			return fmt.Errorf("engine: asset %s: %w: price %g", a.Symbol, domain.ErrInvalidConfig, a.Price)
		}
		s.symbols = append(s.symbols, a.Symbol)
		s.assets[a.Symbol] = domain.NewAsset(a.Symbol, a.Price)
	}

	s.humans = make([]*domain.Agent, 0, s.cfg.Humans.Count)
	s.bots = make([]*domain.Agent, 0, len(s.cfg.Bots))
	s.policies = make(map[string]policy.Kind, len(s.cfg.Bots))
	s.wealth = make(map[string][]float64)
	s.tradeLog = nil

	for i := 1; i <= s.cfg.Humans.Count; i++ {
		name := fmt.Sprintf("%s_%d", s.cfg.Humans.NamePrefix, i)
		h := domain.NewAgent(name, domain.AgentKindHuman, s.cfg.Humans.StartingCash, s.symbols)
		s.humans = append(s.humans, h)
		s.wealth[name] = []float64{h.Cash}
	}
	for _, bc := range s.cfg.Bots {
		kind, err := policy.ParseKind(bc.Policy)
		if err != nil {
			return fmt.Errorf("engine: bot %q: %w", bc.Name, err)
		}
		b := domain.NewAgent(bc.Name, domain.AgentKindBot, bc.Cash, s.symbols)
		s.bots = append(s.bots, b)
		s.policies[b.Name] = kind
		s.wealth[b.Name] = []float64{b.Cash}
	}

	s.shortBan = s.cfg.ShortSellingBan
	s.breakerPct = s.cfg.CircuitBreakerPct
	s.maxOrderQty = s.cfg.MaxOrderQty
	if s.maxOrderQty <= 0 {
		s.maxOrderQty = 2000
	}

	seed := s.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	s.rng = rand.New(rand.NewSource(seed))

	return nil
}

// Reset discards all state and reinitializes from the original fixed
// configuration.
func (s *Simulation) Reset() {
	// init only fails on invalid config, which was accepted at construction.
	_ = s.init()
}

// Round returns the current round number. It starts at 1 and advances only
// when a round commits.
func (s *Simulation) Round() int { return s.round }

// Symbols returns the listed instrument symbols in listing order.
func (s *Simulation) Symbols() []string {
	out := make([]string, len(s.symbols))
	copy(out, s.symbols)
	return out
}

// HasAsset reports whether the symbol is listed.
func (s *Simulation) HasAsset(symbol string) bool {
	_, ok := s.assets[symbol]
	return ok
}

// HasHuman reports whether a human team with the given name exists.
func (s *Simulation) HasHuman(name string) bool {
	for _, h := range s.humans {
		if h.Name == name {
			return true
		}
	}
	return false
}

// MaxOrderQty returns the per-order quantity bound the submission layer
// enforces on human orders.
func (s *Simulation) MaxOrderQty() int { return s.maxOrderQty }

// SetShortSellingBan toggles the short-selling ban for subsequent rounds.
func (s *Simulation) SetShortSellingBan(on bool) { s.shortBan = on }

// SetCircuitBreakerPct sets the market-wide breaker threshold. Values
// outside the allowed band are rejected.
func (s *Simulation) SetCircuitBreakerPct(pct float64) error {
	if pct < config.MinCircuitBreakerPct || pct > config.MaxCircuitBreakerPct {
		return fmt.Errorf("engine: %w: circuit_breaker_pct %g outside [%.2f, %.2f]",
			domain.ErrInvalidConfig, pct, config.MinCircuitBreakerPct, config.MaxCircuitBreakerPct)
	}
	s.breakerPct = pct
	return nil
}

// Regulation returns the regulatory settings currently in effect.
func (s *Simulation) Regulation() domain.Regulation {
	return domain.Regulation{
		ShortSellingBan:   s.shortBan,
		CircuitBreakerPct: s.breakerPct,
	}
}

// TradeLog returns a copy of the committed trade log, oldest first.
func (s *Simulation) TradeLog() []domain.TradeRecord {
	out := make([]domain.TradeRecord, len(s.tradeLog))
	copy(out, s.tradeLog)
	return out
}

// WealthSeries returns a copy of the agent's wealth series, or nil when the
// agent does not exist.
func (s *Simulation) WealthSeries(name string) []float64 {
	series, ok := s.wealth[name]
	if !ok {
		return nil
	}
	out := make([]float64, len(series))
	copy(out, series)
	return out
}

// prices returns the current committed price per symbol.
func (s *Simulation) prices() map[string]float64 {
	p := make(map[string]float64, len(s.assets))
	for sym, a := range s.assets {
		p[sym] = a.Price
	}
	return p
}

// Snapshot assembles the full read-only state snapshot exposed to the
// presentation layer and to the snapshot archiver.
func (s *Simulation) Snapshot() domain.MarketSnapshot {
	snap := domain.MarketSnapshot{
		Round:      s.round,
		Regulation: s.Regulation(),
		TakenAt:    time.Now().UTC(),
	}

	for _, sym := range s.symbols {
		a := s.assets[sym]
		hist := make([]float64, len(a.History))
		copy(hist, a.History)
		snap.Assets = append(snap.Assets, domain.AssetSnapshot{
			Symbol:  a.Symbol,
			Price:   a.Price,
			Listing: a.Listing,
			Halted:  a.Halted,
			CBRef:   a.CBRef,
			History: hist,
		})
	}

	prices := s.prices()
	appendAgent := func(ag *domain.Agent) {
		series := s.wealth[ag.Name]
		wealth := make([]float64, len(series))
		copy(wealth, series)

		pos := make(map[string]int, len(ag.Positions))
		for sym, q := range ag.Positions {
			pos[sym] = q
		}

		worth := ag.NetWorth(prices)
		var start float64
		if len(series) > 0 {
			start = series[0]
		}
		as := domain.AgentSnapshot{
			Name:      ag.Name,
			Kind:      ag.Kind,
			Cash:      ag.Cash,
			Positions: pos,
			NetWorth:  worth,
			PnL:       worth - start,
			Wealth:    wealth,
		}
		if start != 0 {
			as.ReturnPct = 100 * (worth - start) / start
		}
		snap.Agents = append(snap.Agents, as)
	}
	for _, h := range s.humans {
		appendAgent(h)
	}
	for _, b := range s.bots {
		appendAgent(b)
	}

	return snap
}

// Leaderboard returns agent snapshots sorted by net worth, highest first.
func (s *Simulation) Leaderboard() []domain.AgentSnapshot {
	agents := s.Snapshot().Agents
	sort.SliceStable(agents, func(i, j int) bool {
		return agents[i].NetWorth > agents[j].NetWorth
	})
	return agents
}
