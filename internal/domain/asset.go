// Package domain defines the core market types shared by every layer of the
// simulation: assets, agents, order intents, trade records, and the store and
// cache interfaces implemented under internal/store, internal/cache, and
// internal/blob.
package domain

// Asset is the per-instrument ledger entry: the current price, the append-only
// price history (oldest first), the halt flag, and the reference price the
// circuit breaker measures the next move against.
type Asset struct {
	Symbol string
	// Price is the current committed price. The pricing model enforces a
	// floor of 1.0.
	Price float64
	// Listing is the initial listing price, fixed at creation. It anchors
	// the mean-reversion bot and never changes until a full reset.
	Listing float64
	// History holds the price at the start of every past round, plus any
	// pre-shock prices appended by news events. It never shrinks.
	History []float64
	Halted  bool
	// CBRef is the circuit-breaker reference price. It is reset whenever a
	// round commits or an external event sets the price.
	CBRef float64
}

// NewAsset creates a live asset listed at the given price.
func NewAsset(symbol string, price float64) *Asset {
	return &Asset{
		Symbol:  symbol,
		Price:   price,
		Listing: price,
		CBRef:   price,
	}
}

// LastHistory returns the most recent history entry, or false when the
// history is empty.
func (a *Asset) LastHistory() (float64, bool) {
	if len(a.History) == 0 {
		return 0, false
	}
	return a.History[len(a.History)-1], true
}
