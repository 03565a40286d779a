package policy

import "github.com/quantlab/marketlab/internal/domain"

const (
	recklessBaseQty = 300
	// recklessSellFactor doubles the base size on the way down.
	recklessSellFactor = 2
)

// decideReckless amplifies the trend: it buys the base size into any rise
// (and on a fresh listing with no history), and sells double the base size
// into any fall. It has no mean-reversion brake and no position cap.
func decideReckless(obs Observation) domain.OrderIntent {
	last, ok := obs.lastPrice()
	if !ok || obs.Price > last {
		return domain.OrderIntent{Asset: obs.Symbol, Action: domain.ActionBuy, Quantity: recklessBaseQty}
	}
	return domain.OrderIntent{
		Asset:    obs.Symbol,
		Action:   domain.ActionSell,
		Quantity: recklessBaseQty * recklessSellFactor,
	}
}
