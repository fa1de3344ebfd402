package matching

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Odds is a YES/NO percentage pair plus where it came from.
type Odds struct {
	YesPct float64
	NoPct  float64
	Source string
}

// OddsStrategy extracts odds from one known payload shape.
type OddsStrategy interface {
	Name() string
	Extract(raw map[string]any) (Odds, bool)
}

// OddsStrategyFunc adapts a plain function into an OddsStrategy.
type OddsStrategyFunc struct {
	StrategyName string
	Fn           func(raw map[string]any) (Odds, bool)
}

func (f OddsStrategyFunc) Name() string { return f.StrategyName }

func (f OddsStrategyFunc) Extract(raw map[string]any) (Odds, bool) { return f.Fn(raw) }

// Strategy names, in priority order.
const (
	OddsSourceDirect      = "direct-pct"
	OddsSourceOdds        = "odds-fields"
	OddsSourceProbability = "probability-fields"
	OddsSourcePrice       = "price-fields"
	OddsSourceReserves    = "reserve-ratio"
	OddsSourceLiquidity   = "liquidity-event"
)

// DefaultOddsChain returns the extraction strategies in priority order.
func DefaultOddsChain() []OddsStrategy {
	return []OddsStrategy{
		OddsStrategyFunc{OddsSourceDirect, directPct},
		OddsStrategyFunc{OddsSourceOdds, oddsFields},
		OddsStrategyFunc{OddsSourceProbability, probabilityFields},
		OddsStrategyFunc{OddsSourcePrice, priceFields},
		OddsStrategyFunc{OddsSourceReserves, reserveRatio},
		OddsStrategyFunc{OddsSourceLiquidity, latestLiquidityEvent},
	}
}

// ExtractOdds runs the default chain. The diagnostic is non-empty when the
// odds came from anything other than direct percentage fields.
func ExtractOdds(raw map[string]any) (Odds, string, bool) {
	return ExtractOddsWith(DefaultOddsChain(), raw)
}

// ExtractOddsWith runs chain and returns the first hit.
func ExtractOddsWith(chain []OddsStrategy, raw map[string]any) (Odds, string, bool) {
	for i, s := range chain {
		o, ok := s.Extract(raw)
		if !ok {
			continue
		}
		o.Source = s.Name()
		if i == 0 {
			return o, "", true
		}
		return o, fmt.Sprintf("odds derived from %s", s.Name()), true
	}
	return Odds{}, "odds unavailable", false
}

func directPct(raw map[string]any) (Odds, bool) {
	return pctPair(raw, 1, []string{"yesPct", "yes_pct"}, []string{"noPct", "no_pct"})
}

func oddsFields(raw map[string]any) (Odds, bool) {
	if nested, ok := raw["odds"].(map[string]any); ok {
		if o, ok := pctPair(nested, 1, []string{"yesPct", "yes"}, []string{"noPct", "no"}); ok {
			return o, true
		}
	}
	return pctPair(raw, 1, []string{"yesOdds", "oddsYes"}, []string{"noOdds", "oddsNo"})
}

func probabilityFields(raw map[string]any) (Odds, bool) {
	return pctPair(raw, 100, []string{"yesProbability", "probabilityYes", "probability"}, []string{"noProbability", "probabilityNo"})
}

func priceFields(raw map[string]any) (Odds, bool) {
	if o, ok := pctPair(raw, 100, []string{"yesPrice", "priceYes"}, []string{"noPrice", "priceNo"}); ok {
		return o, true
	}
	prices, ok := stringList(raw["outcomePrices"])
	if !ok || len(prices) < 1 {
		return Odds{}, false
	}
	yes, err := strconv.ParseFloat(prices[0], 64)
	if err != nil {
		return Odds{}, false
	}
	no := 1 - yes
	if len(prices) > 1 {
		if v, err := strconv.ParseFloat(prices[1], 64); err == nil {
			no = v
		}
	}
	return validOdds(yes*100, no*100)
}

// reserveRatio prices YES from AMM reserves: the scarcer side is the pricier one.
func reserveRatio(raw map[string]any) (Odds, bool) {
	yes, ok1 := number(raw, "yesReserve", "reserveYes")
	no, ok2 := number(raw, "noReserve", "reserveNo")
	if !ok1 || !ok2 {
		return Odds{}, false
	}
	return fromReserves(yes, no)
}

func latestLiquidityEvent(raw map[string]any) (Odds, bool) {
	events, ok := raw["liquidityEvents"].([]any)
	if !ok {
		return Odds{}, false
	}
	var (
		best   map[string]any
		bestTS = math.Inf(-1)
	)
	for _, e := range events {
		ev, ok := e.(map[string]any)
		if !ok {
			continue
		}
		ts, _ := number(ev, "timestamp", "blockTimestamp")
		if best == nil || ts >= bestTS {
			best, bestTS = ev, ts
		}
	}
	if best == nil {
		return Odds{}, false
	}
	return reserveRatio(best)
}

func fromReserves(yes, no float64) (Odds, bool) {
	total := yes + no
	if yes < 0 || no < 0 || total <= 0 {
		return Odds{}, false
	}
	p := no / total * 100
	return validOdds(p, 100-p)
}

// pctPair reads a YES value and an optional NO value, multiplying both by
// scale. A missing NO is the complement of YES.
func pctPair(raw map[string]any, scale float64, yesKeys, noKeys []string) (Odds, bool) {
	yes, ok := number(raw, yesKeys...)
	if !ok {
		return Odds{}, false
	}
	yes *= scale
	no, ok := number(raw, noKeys...)
	if ok {
		no *= scale
	} else {
		no = 100 - yes
	}
	return validOdds(yes, no)
}

func validOdds(yes, no float64) (Odds, bool) {
	for _, v := range []float64{yes, no} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > 100 {
			return Odds{}, false
		}
	}
	return Odds{YesPct: round6(yes), NoPct: round6(no)}, true
}

// number returns the first key holding a JSON number or numeric string.
func number(raw map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case float64:
			return t, true
		case int:
			return float64(t), true
		case int64:
			return float64(t), true
		case json.Number:
			if f, err := t.Float64(); err == nil {
				return f, true
			}
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

// stringList accepts either a JSON array or a JSON-encoded array string, as
// Gamma sends outcomePrices.
func stringList(v any) ([]string, bool) {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			out = append(out, fmt.Sprint(e))
		}
		return out, true
	case []string:
		return t, true
	case string:
		var out []string
		if err := json.Unmarshal([]byte(t), &out); err != nil {
			return nil, false
		}
		return out, true
	}
	return nil, false
}

// NumberField returns the first of keys holding a JSON number or numeric
// string.
func NumberField(raw map[string]any, keys ...string) (float64, bool) {
	return number(raw, keys...)
}

// StringListField accepts a JSON array or a JSON-encoded array string.
func StringListField(v any) ([]string, bool) {
	return stringList(v)
}
