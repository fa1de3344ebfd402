package sizing

import (
	"github.com/alanyoungcy/marketsync/internal/domain"
)

// SideDepthUSD sums the USD notional resting on the ask side of book at
// prices within slippageBps of the best ask. It returns false when the book
// has no usable asks.
func SideDepthUSD(book *domain.OrderbookSnapshot, slippageBps float64) (float64, bool) {
	if book == nil {
		return 0, false
	}
	best := 0.0
	for _, lvl := range book.Asks {
		if lvl.Price <= 0 || lvl.Size <= 0 {
			continue
		}
		if best == 0 || lvl.Price < best {
			best = lvl.Price
		}
	}
	if best == 0 {
		return 0, false
	}
	limit := best * (1 + slippageBps/10000)
	total := 0.0
	for _, lvl := range book.Asks {
		if lvl.Price <= 0 || lvl.Size <= 0 || lvl.Price > limit {
			continue
		}
		total += lvl.Price * lvl.Size
	}
	return total, true
}

// DepthWithinSlippage estimates how much can be bought on both outcome books
// without moving price past slippageBps. The combined figure is the thinner
// side when both are known.
func DepthWithinSlippage(yesBook, noBook *domain.OrderbookSnapshot, slippageBps float64) domain.DepthEstimate {
	var est domain.DepthEstimate
	if v, ok := SideDepthUSD(yesBook, slippageBps); ok {
		est.YesDepthUSD = &v
	}
	if v, ok := SideDepthUSD(noBook, slippageBps); ok {
		est.NoDepthUSD = &v
	}
	switch {
	case est.YesDepthUSD != nil && est.NoDepthUSD != nil:
		est.DepthWithinSlippageUSD = min(*est.YesDepthUSD, *est.NoDepthUSD)
	case est.YesDepthUSD != nil:
		est.DepthWithinSlippageUSD = *est.YesDepthUSD
	case est.NoDepthUSD != nil:
		est.DepthWithinSlippageUSD = *est.NoDepthUSD
	}
	return est
}
