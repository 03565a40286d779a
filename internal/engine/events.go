package engine

import (
	"fmt"

	"github.com/quantlab/marketlab/internal/domain"
)

// Canonical news shock multipliers. Arbitrary positive multipliers are also
// accepted by ApplyNews.
const (
	GoodNewsMultiplier = 1.10
	BadNewsMultiplier  = 0.90
	CrashMultiplier    = 0.75
)

// ApplyNews applies an exogenous price shock to one asset: the pre-shock
// price is recorded in history, the price is multiplied, the breaker
// reference is rebased to the post-shock price, and any halt on the asset is
// lifted. The new price is returned.
func (s *Simulation) ApplyNews(symbol string, multiplier float64) (float64, error) {
	if multiplier <= 0 {
		return 0, fmt.Errorf("engine: news multiplier %g: %w", multiplier, domain.ErrInvalidShock)
	}
	a, ok := s.assets[symbol]
	if !ok {
		return 0, fmt.Errorf("engine: news for %q: %w", symbol, domain.ErrUnknownAsset)
	}

	a.History = append(a.History, a.Price)
	a.Price *= multiplier
	// Rebasing the reference means the shock itself cannot trip the breaker
	// next round; only moves relative to the post-shock price count.
	a.CBRef = a.Price
	a.Halted = false

	return a.Price, nil
}

// ResumeAll lifts every trading halt and rebases each asset's breaker
// reference to its current price.
func (s *Simulation) ResumeAll() {
	for _, a := range s.assets {
		a.Halted = false
		a.CBRef = a.Price
	}
}
