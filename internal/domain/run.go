package domain

import "time"

// Stop reasons reported on a run summary.
const (
	StopCompleted  = "completed"
	StopKillSwitch = "kill-switch"
	StopSignal     = "signal"
	StopFatal      = "fatal"
	StopLockLost   = "lock-lost"
)

// DeliveryReport is the outcome of one webhook delivery attempt chain.
type DeliveryReport struct {
	Channel    string    `json:"channel"`
	Event      string    `json:"event"`
	OK         bool      `json:"ok"`
	Attempts   int       `json:"attempts"`
	StatusCode int       `json:"statusCode,omitempty"`
	Error      string    `json:"error,omitempty"`
	SentAt     time.Time `json:"sentAt"`
}

// TickSnapshot is the per-iteration observation recorded on a run.
type TickSnapshot struct {
	Iteration int            `json:"iteration"`
	At        time.Time      `json:"at"`
	Triggered bool           `json:"triggered"`
	Code      string         `json:"code"`
	Reason    string         `json:"reason"`
	Data      map[string]any `json:"data,omitempty"`
}

// RunSummary is the result payload produced by one control-loop run.
type RunSummary struct {
	RunID               string           `json:"runId"`
	StrategyHash        string           `json:"strategyHash"`
	Mode                string           `json:"mode"`
	ExecuteLive         bool             `json:"executeLive"`
	StateFile           string           `json:"stateFile"`
	KillSwitchFile      string           `json:"killSwitchFile"`
	IterationsRequested int              `json:"iterationsRequested"`
	IterationsCompleted int              `json:"iterationsCompleted"`
	StoppedReason       string           `json:"stoppedReason"`
	StartedAt           time.Time        `json:"startedAt"`
	FinishedAt          time.Time        `json:"finishedAt"`
	State               *StrategyState   `json:"state"`
	Actions             []ActionRecord   `json:"actions"`
	Snapshots           []TickSnapshot   `json:"snapshots"`
	WebhookReports      []DeliveryReport `json:"webhookReports"`
	Diagnostics         []string         `json:"diagnostics"`
}
