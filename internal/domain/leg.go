package domain

import (
	"fmt"
	"strings"
)

// Venue identifies an independent prediction-market source.
type Venue string

const (
	VenuePandora    Venue = "pandora"
	VenuePolymarket Venue = "polymarket"
)

// ParseVenue maps a case-insensitive venue name to a Venue.
func ParseVenue(s string) (Venue, error) {
	switch Venue(strings.ToLower(strings.TrimSpace(s))) {
	case VenuePandora:
		return VenuePandora, nil
	case VenuePolymarket:
		return VenuePolymarket, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownVenue, s)
	}
}

// MarketLeg is one venue's view of one market, built fresh for every scan.
type MarketLeg struct {
	LegID          string   `json:"legId"`
	Venue          Venue    `json:"venue"`
	MarketID       string   `json:"marketId"`
	Question       string   `json:"question"`
	CloseTimestamp *int64   `json:"closeTimestamp"` // unix seconds
	YesPct         *float64 `json:"yesPct"`
	NoPct          *float64 `json:"noPct"`
	LiquidityUSD   *float64 `json:"liquidityUsd"`
	VolumeUSD      *float64 `json:"volumeUsd"`
	OddsSource     string   `json:"oddsSource"`
	Rules          string   `json:"rules,omitempty"`
	Sources        []string `json:"sources,omitempty"`
	Diagnostics    []string `json:"diagnostics,omitempty"`
}

// LegID builds the stable synthetic key for a venue/market pair.
func LegID(venue Venue, marketID string) string {
	return string(venue) + ":" + marketID
}

// Float64 returns a pointer to v. Handy for optional leg fields.
func Float64(v float64) *float64 { return &v }

// Int64 returns a pointer to v.
func Int64(v int64) *int64 { return &v }
