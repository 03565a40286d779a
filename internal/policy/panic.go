package policy

import "github.com/quantlab/marketlab/internal/domain"

const (
	panicQty = 80
	// panicDropRatio: sell once the price falls below this fraction of the
	// last history entry.
	panicDropRatio = 0.95
)

// decidePanic dumps on sharp drops: sell when the price is more than 5%
// below the last history entry. It never buys.
func decidePanic(obs Observation) domain.OrderIntent {
	last, ok := obs.lastPrice()
	if !ok {
		return hold(obs)
	}
	if obs.Price < panicDropRatio*last {
		return domain.OrderIntent{Asset: obs.Symbol, Action: domain.ActionSell, Quantity: panicQty}
	}
	return hold(obs)
}
