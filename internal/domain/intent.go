package domain

// OrderAction is what an agent wants to do with an asset this round.
type OrderAction string

const (
	ActionHold OrderAction = "HOLD"
	ActionBuy  OrderAction = "BUY"
	ActionSell OrderAction = "SELL"
)

// ParseOrderAction maps a wire string onto an OrderAction. It returns
// ErrInvalidAction for anything outside the closed set.
func ParseOrderAction(s string) (OrderAction, error) {
	switch OrderAction(s) {
	case ActionHold, ActionBuy, ActionSell:
		return OrderAction(s), nil
	default:
		return "", ErrInvalidAction
	}
}

// OrderIntent is one agent's ephemeral per-round instruction for one asset.
// Intents are produced fresh each round and not retained after execution.
type OrderIntent struct {
	Asset    string
	Action   OrderAction
	Quantity int
}

// IsNoop reports whether the intent has no effect regardless of market state.
func (o OrderIntent) IsNoop() bool {
	return o.Action == ActionHold || o.Action == "" || o.Quantity <= 0
}
