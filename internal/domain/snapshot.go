package domain

import "time"

// AssetSnapshot is the read-only view of one asset exposed to the rendering
// collaborator after each round.
type AssetSnapshot struct {
	Symbol  string    `json:"symbol"`
	Price   float64   `json:"price"`
	Listing float64   `json:"listing"`
	Halted  bool      `json:"halted"`
	CBRef   float64   `json:"cb_ref"`
	History []float64 `json:"history"`
}

// AgentSnapshot is the read-only view of one participant, including the
// derived leaderboard fields.
type AgentSnapshot struct {
	Name      string         `json:"name"`
	Kind      AgentKind      `json:"kind"`
	Cash      float64        `json:"cash"`
	Positions map[string]int `json:"positions"`
	NetWorth  float64        `json:"net_worth"`
	PnL       float64        `json:"pnl"`
	ReturnPct float64        `json:"return_pct"`
	Wealth    []float64      `json:"wealth"`
}

// Regulation is the market-wide regulatory configuration in effect.
type Regulation struct {
	ShortSellingBan   bool    `json:"short_selling_ban"`
	CircuitBreakerPct float64 `json:"circuit_breaker_pct"`
}

// MarketSnapshot is the full state snapshot: everything the presentation
// layer reads, and the unit of persistence when the state is archived.
type MarketSnapshot struct {
	Round      int             `json:"round"`
	Assets     []AssetSnapshot `json:"assets"`
	Agents     []AgentSnapshot `json:"agents"`
	Regulation Regulation      `json:"regulation"`
	TakenAt    time.Time       `json:"taken_at"`
}

// Prices returns the symbol -> price mapping of the snapshot.
func (s MarketSnapshot) Prices() map[string]float64 {
	prices := make(map[string]float64, len(s.Assets))
	for _, a := range s.Assets {
		prices[a.Symbol] = a.Price
	}
	return prices
}
