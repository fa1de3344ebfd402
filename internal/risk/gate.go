// Package risk holds the named pre-execution checks. Every check is evaluated
// and every failure is reported; an action executes only when all pass.
package risk

import (
	"fmt"

	"github.com/alanyoungcy/marketsync/internal/domain"
)

// Check codes.
const (
	CodeMatchAndRules   = "MATCH_AND_RULES"
	CodeCloseTimeDelta  = "CLOSE_TIME_DELTA"
	CodeDepthCoverage   = "DEPTH_COVERAGE"
	CodeMaxOpenExposure = "MAX_OPEN_EXPOSURE"
	CodeMaxTradesPerDay = "MAX_TRADES_PER_DAY"
)

// CheckResult is one named check outcome.
type CheckResult = domain.CheckOutcome

// Result is the combined gate verdict.
type Result struct {
	Passed       bool          `json:"passed"`
	FailedChecks []string      `json:"failedChecks"`
	Checks       []CheckResult `json:"checks"`
}

// Evaluate combines checks in order. An empty checklist passes.
func Evaluate(checks ...CheckResult) Result {
	res := Result{Passed: true, FailedChecks: []string{}, Checks: checks}
	for _, c := range checks {
		if !c.Passed {
			res.Passed = false
			res.FailedChecks = append(res.FailedChecks, c.Code)
		}
	}
	return res
}

// MatchAndRules passes when the upstream verification gate passed.
func MatchAndRules(gate domain.GateResult) CheckResult {
	if gate.Passed {
		return CheckResult{Code: CodeMatchAndRules, Passed: true, Detail: "verification gate passed"}
	}
	return CheckResult{Code: CodeMatchAndRules, Detail: fmt.Sprintf("verification gate failed: %v", gate.FailedChecks)}
}

// CloseTimeDelta passes when the close times are known and at most maxDeltaSec
// apart.
func CloseTimeDelta(v domain.Verification, maxDeltaSec int64) CheckResult {
	delta, ok := v.CloseDelta()
	if !ok {
		return CheckResult{Code: CodeCloseTimeDelta, Detail: "close time unavailable"}
	}
	return CheckResult{
		Code:   CodeCloseTimeDelta,
		Passed: delta <= maxDeltaSec,
		Detail: fmt.Sprintf("close delta %ds, max %ds", delta, maxDeltaSec),
	}
}

// DepthCoverage passes when the available depth covers the planned notional.
// A nil depth estimate fails.
func DepthCoverage(depth *domain.DepthEstimate, plannedUsdc float64) CheckResult {
	if depth == nil {
		return CheckResult{Code: CodeDepthCoverage, Detail: "depth unavailable"}
	}
	return CheckResult{
		Code:   CodeDepthCoverage,
		Passed: depth.DepthWithinSlippageUSD >= plannedUsdc,
		Detail: fmt.Sprintf("depth %.2f, planned %.2f", depth.DepthWithinSlippageUSD, plannedUsdc),
	}
}

// MaxOpenExposure passes when today's spend plus the planned spend stays
// within capUsdc. A cap of zero or less disables the check.
func MaxOpenExposure(dailySpendUsdc, plannedUsdc, capUsdc float64) CheckResult {
	if capUsdc <= 0 {
		return CheckResult{Code: CodeMaxOpenExposure, Passed: true, Detail: "no exposure cap"}
	}
	total := dailySpendUsdc + plannedUsdc
	return CheckResult{
		Code:   CodeMaxOpenExposure,
		Passed: total <= capUsdc,
		Detail: fmt.Sprintf("exposure %.2f of cap %.2f", total, capUsdc),
	}
}

// MaxTradesPerDay passes while today's trade count is below capTrades. A cap
// of zero or less disables the check.
func MaxTradesPerDay(tradesToday, capTrades int) CheckResult {
	if capTrades <= 0 {
		return CheckResult{Code: CodeMaxTradesPerDay, Passed: true, Detail: "no trade cap"}
	}
	return CheckResult{
		Code:   CodeMaxTradesPerDay,
		Passed: tradesToday < capTrades,
		Detail: fmt.Sprintf("%d of %d trades today", tradesToday, capTrades),
	}
}
