package pandora

import (
	"fmt"
	"strings"

	"github.com/alanyoungcy/marketsync/internal/crypto"
	"github.com/alanyoungcy/marketsync/internal/domain"
	"github.com/alanyoungcy/marketsync/internal/matching"
)

// Market is a mapped indexer item: the leg plus the fields verification needs.
type Market struct {
	Leg            domain.MarketLeg
	Active         bool
	YesReserveUsdc *float64
	NoReserveUsdc  *float64
}

// ToMarket maps a raw indexer item. The id must be a hex market address.
// Odds come from the first matching extraction strategy; anything other than
// direct percentages leaves a diagnostic on the leg.
func ToMarket(raw map[string]any) (Market, error) {
	id, _ := raw["id"].(string)
	if !crypto.IsMarketAddress(id) {
		return Market{}, fmt.Errorf("pandora: market id %q is not a hex address", id)
	}
	id = strings.ToLower(id)

	leg := domain.MarketLeg{
		LegID:    domain.LegID(domain.VenuePandora, id),
		Venue:    domain.VenuePandora,
		MarketID: id,
		Question: firstString(raw, "question", "title"),
		Rules:    firstString(raw, "rules"),
	}
	if srcs, ok := matching.StringListField(raw["sources"]); ok {
		leg.Sources = srcs
	}
	if ts, ok := matching.NumberField(raw, "closeTimestamp", "closeTime"); ok && ts > 0 {
		// Millisecond timestamps are normalized to seconds.
		if ts > 1e12 {
			ts /= 1000
		}
		leg.CloseTimestamp = domain.Int64(int64(ts))
	}

	odds, diag, ok := matching.ExtractOdds(raw)
	if ok {
		leg.YesPct = domain.Float64(odds.YesPct)
		leg.NoPct = domain.Float64(odds.NoPct)
		leg.OddsSource = odds.Source
	}
	if diag != "" {
		leg.Diagnostics = append(leg.Diagnostics, diag)
	}

	m := Market{Leg: leg, Active: isActive(raw)}
	if v, ok := matching.NumberField(raw, "yesReserve", "reserveYes"); ok {
		m.YesReserveUsdc = domain.Float64(v)
	}
	if v, ok := matching.NumberField(raw, "noReserve", "reserveNo"); ok {
		m.NoReserveUsdc = domain.Float64(v)
	}

	if v, ok := matching.NumberField(raw, "liquidityUsd", "liquidity"); ok {
		m.Leg.LiquidityUSD = domain.Float64(v)
	} else if m.YesReserveUsdc != nil && m.NoReserveUsdc != nil {
		m.Leg.LiquidityUSD = domain.Float64(*m.YesReserveUsdc + *m.NoReserveUsdc)
	}
	if v, ok := matching.NumberField(raw, "volumeUsd", "volume"); ok {
		m.Leg.VolumeUSD = domain.Float64(v)
	}
	return m, nil
}

func isActive(raw map[string]any) bool {
	if b, ok := raw["active"].(bool); ok {
		return b
	}
	s, _ := raw["status"].(string)
	return strings.EqualFold(s, "active") || strings.EqualFold(s, "open")
}

func firstString(raw map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := raw[k].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}
