package matching

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractOdds_Chain(t *testing.T) {
	tests := []struct {
		name   string
		raw    map[string]any
		yes    float64
		no     float64
		source string
		diag   bool
	}{
		{"direct", map[string]any{"yesPct": 62.5, "noPct": 37.5}, 62.5, 37.5, OddsSourceDirect, false},
		{"direct yes only", map[string]any{"yes_pct": "30"}, 30, 70, OddsSourceDirect, false},
		{"nested odds", map[string]any{"odds": map[string]any{"yesPct": 20.0, "noPct": 80.0}}, 20, 80, OddsSourceOdds, true},
		{"probability", map[string]any{"yesProbability": 0.25}, 25, 75, OddsSourceProbability, true},
		{"price", map[string]any{"yesPrice": "0.4", "noPrice": "0.61"}, 40, 61, OddsSourcePrice, true},
		{"outcome prices", map[string]any{"outcomePrices": `["0.35","0.65"]`}, 35, 65, OddsSourcePrice, true},
		{"reserves", map[string]any{"yesReserve": 300.0, "noReserve": 100.0}, 25, 75, OddsSourceReserves, true},
		{"liquidity events", map[string]any{"liquidityEvents": []any{
			map[string]any{"timestamp": 10.0, "yesReserve": 100.0, "noReserve": 100.0},
			map[string]any{"timestamp": 20.0, "yesReserve": 100.0, "noReserve": 300.0},
			map[string]any{"timestamp": 5.0, "yesReserve": 300.0, "noReserve": 100.0},
		}}, 75, 25, OddsSourceLiquidity, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, diag, ok := ExtractOdds(tt.raw)
			require.True(t, ok)
			assert.InDelta(t, tt.yes, o.YesPct, 1e-9)
			assert.InDelta(t, tt.no, o.NoPct, 1e-9)
			assert.Equal(t, tt.source, o.Source)
			assert.Equal(t, tt.diag, diag != "")
		})
	}
}

func TestExtractOdds_PriorityAndRejects(t *testing.T) {
	o, _, ok := ExtractOdds(map[string]any{"yesPct": 55.0, "yesReserve": 1.0, "noReserve": 3.0})
	require.True(t, ok)
	assert.Equal(t, OddsSourceDirect, o.Source)

	// Out-of-range direct values fall through to the next strategy.
	o, _, ok = ExtractOdds(map[string]any{"yesPct": 140.0, "yesReserve": 1.0, "noReserve": 3.0})
	require.True(t, ok)
	assert.Equal(t, OddsSourceReserves, o.Source)
	assert.Equal(t, 75.0, o.YesPct)

	_, diag, ok := ExtractOdds(map[string]any{"yesReserve": 0.0, "noReserve": 0.0})
	assert.False(t, ok)
	assert.Equal(t, "odds unavailable", diag)

	_, _, ok = ExtractOdds(map[string]any{"question": "x"})
	assert.False(t, ok)
}

func TestExtractOdds_JSONNumbers(t *testing.T) {
	dec := json.NewDecoder(strings.NewReader(`{"probabilityYes": 0.1}`))
	dec.UseNumber()
	var raw map[string]any
	require.NoError(t, dec.Decode(&raw))

	o, _, ok := ExtractOdds(raw)
	require.True(t, ok)
	assert.InDelta(t, 10, o.YesPct, 1e-9)
	assert.InDelta(t, 90, o.NoPct, 1e-9)
}

func TestExtractOddsWith_CustomChain(t *testing.T) {
	fixed := OddsStrategyFunc{StrategyName: "fixed", Fn: func(map[string]any) (Odds, bool) {
		return Odds{YesPct: 1, NoPct: 99}, true
	}}
	o, diag, ok := ExtractOddsWith([]OddsStrategy{fixed}, nil)
	require.True(t, ok)
	assert.Equal(t, "fixed", o.Source)
	assert.Empty(t, diag)
}
