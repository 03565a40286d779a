package engine

import (
	"fmt"

	"github.com/quantlab/marketlab/internal/domain"
	"github.com/quantlab/marketlab/internal/policy"
)

// Price formation parameters. Each unit of net order imbalance moves the
// price by 1/impactDivisor currency units, and no price ever forms below
// priceFloor.
const (
	impactDivisor = 40.0
	priceFloor    = 1.0
)

// RoundResult reports what a single call to RunRound did.
type RoundResult struct {
	// Round is the round number the orders executed in.
	Round int `json:"round"`
	// Committed is false when the circuit breaker fired and the round was
	// abandoned before prices, trade log, and wealth series were updated.
	Committed bool `json:"committed"`
	// Breached lists the symbols whose proposed price moved beyond the
	// breaker threshold. Empty when Committed is true.
	Breached []string `json:"breached,omitempty"`
	// Trades holds the records produced by the executor this round. When the
	// round aborted they are returned for diagnostics but were NOT appended
	// to the trade log.
	Trades []domain.TradeRecord `json:"trades"`
	// Prices maps symbol to the price proposed this round. On commit these
	// are the new market prices; on abort they are the abandoned proposals.
	Prices map[string]float64 `json:"prices"`
}

// roundState accumulates the effects of a round before the commit decision.
type roundState struct {
	buyVol  map[string]int
	sellVol map[string]int
	trades  []domain.TradeRecord
}

// RunRound executes one discrete round. Human orders are passed in as a map
// from team name to intent; bots decide their own intents. All fills execute
// at the pre-round price. After execution the engine forms new prices from
// the order imbalance, checks the circuit breaker, and either commits the
// round or halts the whole market and abandons it.
//
// Agent cash and position mutations made by the executor are kept even when
// the round aborts; only prices, history bookkeeping, the trade log, the
// wealth series, and the round counter are withheld.
func (s *Simulation) RunRound(orders map[string]domain.OrderIntent) (RoundResult, error) {
	for team, intent := range orders {
		if !s.HasHuman(team) {
			return RoundResult{}, fmt.Errorf("engine: order from %q: %w", team, domain.ErrUnknownAgent)
		}
		if intent.Asset != "" {
			if _, ok := s.assets[intent.Asset]; !ok {
				return RoundResult{}, fmt.Errorf("engine: order from %q for %q: %w", team, intent.Asset, domain.ErrUnknownAsset)
			}
		}
	}

	st := &roundState{
		buyVol:  make(map[string]int, len(s.symbols)),
		sellVol: make(map[string]int, len(s.symbols)),
	}

	// Humans first, in roster order, then bots in roster order. Every fill
	// uses the same pre-round price, so the ordering only matters for the
	// trade log sequence.
	for _, h := range s.humans {
		intent, ok := orders[h.Name]
		if !ok {
			continue
		}
		s.applyIntent(h, s.clampHuman(intent), st)
	}
	for _, b := range s.bots {
		kind := s.policies[b.Name]
		for _, sym := range s.symbols {
			a := s.assets[sym]
			obs := policy.Observation{
				Symbol:  a.Symbol,
				Price:   a.Price,
				History: a.History,
				Listing: a.Listing,
			}
			s.applyIntent(b, policy.Decide(kind, obs, s.rng), st)
		}
	}

	// Price formation at the unchanged pre-round prices. Every asset records
	// its pre-round price in history exactly once per round, aborted rounds
	// included.
	proposed := make(map[string]float64, len(s.symbols))
	var breached []string
	for _, sym := range s.symbols {
		a := s.assets[sym]
		a.History = append(a.History, a.Price)

		p := a.Price
		if !a.Halted {
			imbalance := float64(st.buyVol[sym] - st.sellVol[sym])
			p = a.Price + imbalance/impactDivisor
			if p < priceFloor {
				p = priceFloor
			}
		}
		proposed[sym] = p

		if a.CBRef > 0 {
			move := (p - a.CBRef) / a.CBRef
			if move < 0 {
				move = -move
			}
			if move > s.breakerPct {
				breached = append(breached, sym)
			}
		}
	}

	res := RoundResult{
		Round:  s.round,
		Trades: st.trades,
		Prices: proposed,
	}

	// One breach halts the entire market and abandons the round.
	if len(breached) > 0 {
		for _, a := range s.assets {
			a.Halted = true
		}
		res.Breached = breached
		return res, nil
	}

	for _, sym := range s.symbols {
		a := s.assets[sym]
		a.Price = proposed[sym]
		a.CBRef = a.Price
	}
	s.tradeLog = append(s.tradeLog, st.trades...)

	prices := s.prices()
	for _, h := range s.humans {
		s.wealth[h.Name] = append(s.wealth[h.Name], h.NetWorth(prices))
	}
	for _, b := range s.bots {
		s.wealth[b.Name] = append(s.wealth[b.Name], b.NetWorth(prices))
	}

	s.round++
	res.Committed = true
	return res, nil
}

// maxSaneQty is the engine's own sanity ceiling on a single intent. The
// submission layer bounds human quantities to the configured max_order_qty;
// the engine independently discards negatives and caps runaway values.
const maxSaneQty = 1_000_000

// clampHuman sanitizes a human intent's quantity. Bots are never clamped.
func (s *Simulation) clampHuman(intent domain.OrderIntent) domain.OrderIntent {
	if intent.Quantity < 0 {
		intent.Quantity = 0
	}
	if intent.Quantity > maxSaneQty {
		intent.Quantity = maxSaneQty
	}
	return intent
}

// applyIntent runs one intent through the executor, mutating the agent
// ledger and accumulating volume and trade records in st.
func (s *Simulation) applyIntent(agent *domain.Agent, intent domain.OrderIntent, st *roundState) {
	if intent.IsNoop() {
		return
	}
	a, ok := s.assets[intent.Asset]
	if !ok {
		return
	}
	// Orders on a halted asset vanish without a trace.
	if a.Halted {
		return
	}

	qty := intent.Quantity
	price := a.Price

	if intent.Action == domain.ActionSell && s.shortBan && agent.Positions[a.Symbol]-qty < 0 {
		// Humans get an audit record for the blocked short; bots are dropped
		// silently.
		if agent.Kind == domain.AgentKindHuman {
			st.trades = append(st.trades, domain.NewTradeRecord(
				s.round, agent.Name, a.Symbol, intent.Action, qty, price, domain.TradeRejectedShortBan))
		}
		return
	}

	switch intent.Action {
	case domain.ActionBuy:
		agent.Cash -= float64(qty) * price
		agent.Positions[a.Symbol] += qty
		st.buyVol[a.Symbol] += qty
	case domain.ActionSell:
		agent.Cash += float64(qty) * price
		agent.Positions[a.Symbol] -= qty
		st.sellVol[a.Symbol] += qty
	default:
		return
	}

	st.trades = append(st.trades, domain.NewTradeRecord(
		s.round, agent.Name, a.Symbol, intent.Action, qty, price, domain.TradeExecuted))
}
