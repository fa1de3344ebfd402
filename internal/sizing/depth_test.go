package sizing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/marketsync/internal/domain"
)

func book(levels ...domain.PriceLevel) *domain.OrderbookSnapshot {
	return &domain.OrderbookSnapshot{Asks: levels}
}

func TestSideDepthUSD(t *testing.T) {
	b := book(
		domain.PriceLevel{Price: 0.52, Size: 100},
		domain.PriceLevel{Price: 0.50, Size: 200},
		domain.PriceLevel{Price: 0.5075, Size: 100},
		domain.PriceLevel{Price: 0.60, Size: 1000},
	)
	// 150 bps over 0.50 allows up to 0.5075.
	got, ok := SideDepthUSD(b, 150)
	require.True(t, ok)
	assert.InDelta(t, 0.50*200+0.5075*100, got, 1e-9)

	_, ok = SideDepthUSD(book(), 150)
	assert.False(t, ok)
	_, ok = SideDepthUSD(nil, 150)
	assert.False(t, ok)
	_, ok = SideDepthUSD(book(domain.PriceLevel{Price: 0.5, Size: 0}), 150)
	assert.False(t, ok)
}

func TestDepthWithinSlippage(t *testing.T) {
	yes := book(domain.PriceLevel{Price: 0.40, Size: 1000})
	no := book(domain.PriceLevel{Price: 0.62, Size: 500})

	est := DepthWithinSlippage(yes, no, 100)
	require.NotNil(t, est.YesDepthUSD)
	require.NotNil(t, est.NoDepthUSD)
	assert.InDelta(t, 400, *est.YesDepthUSD, 1e-9)
	assert.InDelta(t, 310, *est.NoDepthUSD, 1e-9)
	assert.InDelta(t, 310, est.DepthWithinSlippageUSD, 1e-9)

	est = DepthWithinSlippage(yes, nil, 100)
	assert.Nil(t, est.NoDepthUSD)
	assert.InDelta(t, 400, est.DepthWithinSlippageUSD, 1e-9)

	est = DepthWithinSlippage(nil, nil, 100)
	assert.Zero(t, est.DepthWithinSlippageUSD)
}
