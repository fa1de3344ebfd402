package polymarket

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/marketsync/internal/domain"
)

// OddsSourceOutcomePrices marks legs priced from Gamma's outcomePrices.
const OddsSourceOutcomePrices = "outcome-prices"

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether "active" is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// flexFloat accepts a JSON number or a numeric string.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexFloat(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = flexFloat(n)
	return nil
}

// --------------------------------------------------------------------------
// Gamma API DTOs
// --------------------------------------------------------------------------

// APIMarket represents a market as returned by the Polymarket Gamma API.
type APIMarket struct {
	ID               string    `json:"id"`
	Question         string    `json:"question"`
	ConditionID      string    `json:"conditionId"`
	Slug             string    `json:"slug"`
	Description      string    `json:"description"`
	ResolutionSource string    `json:"resolutionSource"`
	Active           flexBool  `json:"active"`
	Closed           bool      `json:"closed"`
	Outcomes         string    `json:"outcomes"`      // JSON-encoded: e.g. "[\"Yes\",\"No\"]"
	OutcomePrices    string    `json:"outcomePrices"` // JSON-encoded: e.g. "[\"0.5\",\"0.5\"]"
	ClobTokenIDs     string    `json:"clobTokenIds"`  // JSON-encoded: e.g. "[\"123\",\"456\"]"
	Volume           flexFloat `json:"volume"`
	Volume24hr       flexFloat `json:"volume24hr"`
	Liquidity        flexFloat `json:"liquidity"`
	EndDate          string    `json:"endDate"`
}

// IsActive reports whether the market is open for trading.
func (m *APIMarket) IsActive() bool {
	return bool(m.Active) && !m.Closed
}

// Prices returns the YES and NO outcome prices as percentages.
func (m *APIMarket) Prices() (yes, no float64, ok bool) {
	prices := decodeStringList(m.OutcomePrices)
	if len(prices) == 0 {
		return 0, 0, false
	}
	y, err := strconv.ParseFloat(prices[0], 64)
	if err != nil || y < 0 || y > 1 {
		return 0, 0, false
	}
	n := 1 - y
	if len(prices) > 1 {
		if v, err := strconv.ParseFloat(prices[1], 64); err == nil && v >= 0 && v <= 1 {
			n = v
		}
	}
	return y * 100, n * 100, true
}

// TokenIDs returns the YES and NO CLOB token IDs.
func (m *APIMarket) TokenIDs() (yes, no string, ok bool) {
	ids := decodeStringList(m.ClobTokenIDs)
	if len(ids) < 2 {
		return "", "", false
	}
	return ids[0], ids[1], true
}

// CloseTimestamp returns the market end date as unix seconds.
func (m *APIMarket) CloseTimestamp() *int64 {
	if m.EndDate == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, m.EndDate)
	if err != nil {
		return nil
	}
	return domain.Int64(t.Unix())
}

// ToLeg converts a Gamma market into a market leg.
func (m *APIMarket) ToLeg() domain.MarketLeg {
	leg := domain.MarketLeg{
		LegID:          domain.LegID(domain.VenuePolymarket, m.ID),
		Venue:          domain.VenuePolymarket,
		MarketID:       m.ID,
		Question:       m.Question,
		CloseTimestamp: m.CloseTimestamp(),
		Rules:          m.Description,
	}
	if yes, no, ok := m.Prices(); ok {
		leg.YesPct = domain.Float64(yes)
		leg.NoPct = domain.Float64(no)
		leg.OddsSource = OddsSourceOutcomePrices
	} else {
		leg.Diagnostics = append(leg.Diagnostics, "odds unavailable")
	}
	if m.Liquidity > 0 {
		leg.LiquidityUSD = domain.Float64(float64(m.Liquidity))
	}
	if m.Volume > 0 {
		leg.VolumeUSD = domain.Float64(float64(m.Volume))
	}
	if m.ResolutionSource != "" {
		leg.Sources = []string{m.ResolutionSource}
	}
	return leg
}

// Quote returns the market's current prices as a quote.
func (m *APIMarket) Quote() (domain.Quote, bool) {
	yes, no, ok := m.Prices()
	if !ok {
		return domain.Quote{}, false
	}
	return domain.Quote{
		YesPct: domain.Float64(yes),
		NoPct:  domain.Float64(no),
		Estimate: map[string]any{
			"source":   OddsSourceOutcomePrices,
			"marketId": m.ID,
		},
	}, true
}

func decodeStringList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}

// --------------------------------------------------------------------------
// CLOB API DTOs
// --------------------------------------------------------------------------

// APIBook is the /book response of the CLOB API.
type APIBook struct {
	Market    string     `json:"market"`
	AssetID   string     `json:"asset_id"`
	Bids      []APILevel `json:"bids"`
	Asks      []APILevel `json:"asks"`
	Timestamp string     `json:"timestamp"`
	Hash      string     `json:"hash"`
}

// APILevel is a single bid/ask level in the CLOB orderbook data.
type APILevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// ToDomainSnapshot converts an APIBook to a domain.OrderbookSnapshot.
// Unparseable levels are dropped.
func (b *APIBook) ToDomainSnapshot() domain.OrderbookSnapshot {
	snap := domain.OrderbookSnapshot{
		AssetID: b.AssetID,
	}

	for _, lvl := range b.Bids {
		p, s, ok := lvl.parse()
		if !ok {
			continue
		}
		snap.Bids = append(snap.Bids, domain.PriceLevel{Price: p, Size: s})
		if p > snap.BestBid {
			snap.BestBid = p
		}
	}
	for _, lvl := range b.Asks {
		p, s, ok := lvl.parse()
		if !ok {
			continue
		}
		snap.Asks = append(snap.Asks, domain.PriceLevel{Price: p, Size: s})
		if snap.BestAsk == 0 || p < snap.BestAsk {
			snap.BestAsk = p
		}
	}

	if snap.BestBid > 0 && snap.BestAsk > 0 {
		snap.MidPrice = (snap.BestBid + snap.BestAsk) / 2
	}

	// CLOB timestamps are unix milliseconds.
	if ts, err := strconv.ParseInt(b.Timestamp, 10, 64); err == nil {
		snap.Timestamp = time.UnixMilli(ts).UTC()
	} else if t, err := time.Parse(time.RFC3339, b.Timestamp); err == nil {
		snap.Timestamp = t
	}

	return snap
}

func (l APILevel) parse() (price, size float64, ok bool) {
	p, err := strconv.ParseFloat(l.Price, 64)
	if err != nil {
		return 0, 0, false
	}
	s, err := strconv.ParseFloat(l.Size, 64)
	if err != nil {
		return 0, 0, false
	}
	return p, s, true
}
