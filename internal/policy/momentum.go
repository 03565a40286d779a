package policy

import "github.com/quantlab/marketlab/internal/domain"

// momentumQty is the fixed order size of the momentum archetype.
const momentumQty = 50

// decideMomentum follows the most recent move: buy when the price rose above
// the last history entry, sell otherwise. With no history it sits out.
func decideMomentum(obs Observation) domain.OrderIntent {
	last, ok := obs.lastPrice()
	if !ok {
		return hold(obs)
	}

	action := domain.ActionSell
	if obs.Price > last {
		action = domain.ActionBuy
	}
	return domain.OrderIntent{Asset: obs.Symbol, Action: action, Quantity: momentumQty}
}
