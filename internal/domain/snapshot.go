package domain

// Quote is the current market price as reported by a quote function.
type Quote struct {
	YesPct   *float64       `json:"yesPct"`
	NoPct    *float64       `json:"noPct"`
	Estimate map[string]any `json:"estimate,omitempty"`
}

// GateResult is the upstream cross-venue verification verdict.
type GateResult struct {
	Passed       bool     `json:"passed"`
	FailedChecks []string `json:"failedChecks,omitempty"`
}

// MarketView is one side of a verification payload.
type MarketView struct {
	Venue          Venue    `json:"venue"`
	MarketID       string   `json:"marketId"`
	Question       string   `json:"question"`
	YesPct         *float64 `json:"yesPct"`
	YesReserveUsdc *float64 `json:"yesReserveUsdc,omitempty"`
	NoReserveUsdc  *float64 `json:"noReserveUsdc,omitempty"`
	CloseTimestamp *int64   `json:"closeTimestamp"`
	RulesHash      string   `json:"rulesHash,omitempty"`
	Active         bool     `json:"active"`
}

// Verification is the cross-venue verification payload consumed by the
// mirror loop.
type Verification struct {
	MatchConfidence   float64    `json:"matchConfidence"`
	Gate              GateResult `json:"gateResult"`
	Pandora           MarketView `json:"pandora"`
	SourceMarket      MarketView `json:"sourceMarket"`
	CloseTimeDeltaSec *int64     `json:"closeTimeDeltaSec"`
	RulesHashMatch    *bool      `json:"rulesHashMatch"`
}

// CloseDelta returns the absolute close-time delta in seconds, deriving it
// from the two market views when the verifier did not supply one.
func (v Verification) CloseDelta() (int64, bool) {
	if v.CloseTimeDeltaSec != nil {
		d := *v.CloseTimeDeltaSec
		if d < 0 {
			d = -d
		}
		return d, true
	}
	if v.Pandora.CloseTimestamp == nil || v.SourceMarket.CloseTimestamp == nil {
		return 0, false
	}
	d := *v.Pandora.CloseTimestamp - *v.SourceMarket.CloseTimestamp
	if d < 0 {
		d = -d
	}
	return d, true
}

// DepthEstimate is order-book depth available within a slippage bound.
type DepthEstimate struct {
	DepthWithinSlippageUSD float64  `json:"depthWithinSlippageUsd"`
	YesDepthUSD            *float64 `json:"yesDepth"`
	NoDepthUSD             *float64 `json:"noDepth"`
}

// ExecutionResult is what a live execution function reports back.
type ExecutionResult struct {
	Status     string         `json:"status"`
	TxRef      string         `json:"txRef,omitempty"`
	FilledUsdc float64        `json:"filledUsdc"`
	Raw        map[string]any `json:"raw,omitempty"`
}
