// Package policy implements the bot decision functions. Each bot archetype is
// a pure function from market observables to an order intent; the archetype
// set is a closed enum so behavior selection never depends on bot names.
package policy

import (
	"fmt"
	"math/rand"

	"github.com/quantlab/marketlab/internal/domain"
)

// Kind identifies a bot archetype.
type Kind string

const (
	KindMomentum      Kind = "momentum"
	KindMeanReversion Kind = "mean_reversion"
	KindPanic         Kind = "panic"
	KindRandom        Kind = "random"
	KindReckless      Kind = "reckless"
)

// ParseKind validates a configured policy name.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindMomentum, KindMeanReversion, KindPanic, KindRandom, KindReckless:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("policy: unknown kind %q (valid: momentum, mean_reversion, panic, random, reckless)", s)
	}
}

// Observation is everything a policy may look at for one asset: the current
// price, the price history (possibly empty, oldest first), and the fixed
// listing price used as the mean-reversion anchor.
type Observation struct {
	Symbol  string
	Price   float64
	History []float64
	Listing float64
}

// lastPrice returns the most recent history entry, or false when empty.
func (o Observation) lastPrice() (float64, bool) {
	if len(o.History) == 0 {
		return 0, false
	}
	return o.History[len(o.History)-1], true
}

// Decide evaluates one archetype against one asset and returns the resulting
// intent. A HOLD intent means no action this round. rng is only consulted by
// the random archetype; all other kinds are deterministic.
func Decide(kind Kind, obs Observation, rng *rand.Rand) domain.OrderIntent {
	switch kind {
	case KindMomentum:
		return decideMomentum(obs)
	case KindMeanReversion:
		return decideMeanReversion(obs)
	case KindPanic:
		return decidePanic(obs)
	case KindRandom:
		return decideRandom(obs, rng)
	case KindReckless:
		return decideReckless(obs)
	default:
		return hold(obs)
	}
}

func hold(obs Observation) domain.OrderIntent {
	return domain.OrderIntent{Asset: obs.Symbol, Action: domain.ActionHold}
}
