package policy

import (
	"math/rand"

	"github.com/quantlab/marketlab/internal/domain"
)

const randomQty = 30

// decideRandom flips a fair coin between buy and sell each round, each asset
// independently.
func decideRandom(obs Observation, rng *rand.Rand) domain.OrderIntent {
	action := domain.ActionSell
	if rng.Float64() > 0.5 {
		action = domain.ActionBuy
	}
	return domain.OrderIntent{Asset: obs.Symbol, Action: action, Quantity: randomQty}
}
