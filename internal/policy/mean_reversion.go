package policy

import "github.com/quantlab/marketlab/internal/domain"

const (
	meanReversionQty = 40
	// meanReversionBand is the fractional deviation from the listing price
	// beyond which the bot trades against the move.
	meanReversionBand = 0.10
)

// decideMeanReversion trades back toward the listing price: sell above
// 1.10x listing, buy below 0.90x listing, otherwise hold.
func decideMeanReversion(obs Observation) domain.OrderIntent {
	switch {
	case obs.Price > (1+meanReversionBand)*obs.Listing:
		return domain.OrderIntent{Asset: obs.Symbol, Action: domain.ActionSell, Quantity: meanReversionQty}
	case obs.Price < (1-meanReversionBand)*obs.Listing:
		return domain.OrderIntent{Asset: obs.Symbol, Action: domain.ActionBuy, Quantity: meanReversionQty}
	default:
		return hold(obs)
	}
}
