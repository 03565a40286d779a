package domain

// AgentKind distinguishes human teams from bots.
type AgentKind string

const (
	AgentKindHuman AgentKind = "human"
	AgentKindBot   AgentKind = "bot"
)

// Agent is the per-participant ledger entry. Humans and bots share this
// shape; a bot is additionally tagged with a policy kind held by the engine.
// Cash may go negative when the short-selling ban is off; no margin or
// credit limit is modeled.
type Agent struct {
	Name      string
	Kind      AgentKind
	Cash      float64
	Positions map[string]int // symbol -> signed quantity
}

// NewAgent creates an agent with the given starting cash and a zero position
// in every listed symbol.
func NewAgent(name string, kind AgentKind, cash float64, symbols []string) *Agent {
	pos := make(map[string]int, len(symbols))
	for _, s := range symbols {
		pos[s] = 0
	}
	return &Agent{
		Name:      name,
		Kind:      kind,
		Cash:      cash,
		Positions: pos,
	}
}

// NetWorth returns cash plus the mark-to-market value of all positions at the
// given prices. Symbols missing from prices contribute nothing.
func (a *Agent) NetWorth(prices map[string]float64) float64 {
	w := a.Cash
	for sym, qty := range a.Positions {
		w += float64(qty) * prices[sym]
	}
	return w
}
