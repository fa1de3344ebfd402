package automation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/marketsync/internal/domain"
	"github.com/alanyoungcy/marketsync/internal/notify"
	"github.com/alanyoungcy/marketsync/internal/risk"
	"github.com/alanyoungcy/marketsync/internal/statestore"
	"github.com/alanyoungcy/marketsync/internal/trigger"
)

// Notifier delivers events and reports per-channel outcomes.
type Notifier interface {
	Notify(ctx context.Context, ev notify.Event) []domain.DeliveryReport
}

// ActionRecorder receives every action record as it is produced.
type ActionRecorder interface {
	RecordAction(ctx context.Context, strategyHash, mode string, action domain.ActionRecord) error
}

// RunRecorder receives the final run summary.
type RunRecorder interface {
	RecordRun(ctx context.Context, summary domain.RunSummary) error
}

// Options configures one Loop run.
type Options struct {
	// Iterations bounds the run. Zero runs until cancelled or killed.
	Iterations     int
	Interval       time.Duration
	ExecuteLive    bool
	StateDir       string
	StateFile      string // overrides StateDir/<kind>-<hash>.json
	KillSwitchFile string

	MaxOpenExposureUsdc float64
	MaxTradesPerDay     int
	MaxIdempotencyKeys  int

	Notifier        Notifier
	ActionRecorders []ActionRecorder
	RunRecorders    []RunRecorder
	Lock            domain.LockManager
	LockTTL         time.Duration

	Clock  func() time.Time
	Logger *slog.Logger
}

// Loop drives one strategy instance. It is single-threaded: one snapshot
// fetch and at most one execution in flight at a time.
type Loop struct {
	strategy  Strategy
	opts      Options
	stateFile string
	mode      string
	logger    *slog.Logger
}

// NewLoop validates the pairing of strategy and options. Every error here is
// fatal and happens before the first tick.
func NewLoop(s Strategy, opts Options) (*Loop, error) {
	if s == nil {
		return nil, fmt.Errorf("automation: %w: nil strategy", domain.ErrInvalidConfig)
	}
	if opts.Iterations < 0 {
		return nil, fmt.Errorf("automation: %w: iterations must be >= 0", domain.ErrInvalidConfig)
	}
	if opts.Interval < 0 {
		return nil, fmt.Errorf("automation: %w: interval must be >= 0", domain.ErrInvalidConfig)
	}
	if err := s.Ready(opts.ExecuteLive); err != nil {
		return nil, err
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 10 * time.Minute
	}

	stateFile := opts.StateFile
	if stateFile == "" {
		dir := opts.StateDir
		if dir == "" {
			dir = "."
		}
		stateFile = statestore.DefaultPath(dir, s.Kind(), s.Hash())
	}
	mode := "paper"
	if opts.ExecuteLive {
		mode = "live"
	}

	return &Loop{
		strategy:  s,
		opts:      opts,
		stateFile: stateFile,
		mode:      mode,
		logger: opts.Logger.With(
			slog.String("component", "automation"),
			slog.String("kind", s.Kind()),
			slog.String("strategy_hash", s.Hash()),
			slog.String("mode", mode),
		),
	}, nil
}

// StateFile is the resolved state path.
func (l *Loop) StateFile() string { return l.stateFile }

// Run executes the loop until the iteration budget is spent, the kill switch
// appears, or ctx is cancelled. Cancellation is only observed between ticks;
// an action already in flight completes. The returned error is non-nil only
// for fatal problems that prevented the first tick.
func (l *Loop) Run(ctx context.Context) (summary domain.RunSummary, err error) {
	s := l.strategy
	started := l.opts.Clock().UTC()
	summary = domain.RunSummary{
		RunID:               uuid.NewString(),
		StrategyHash:        s.Hash(),
		Mode:                l.mode,
		ExecuteLive:         l.opts.ExecuteLive,
		StateFile:           l.stateFile,
		KillSwitchFile:      l.opts.KillSwitchFile,
		IterationsRequested: l.opts.Iterations,
		StartedAt:           started,
		Actions:             []domain.ActionRecord{},
		Snapshots:           []domain.TickSnapshot{},
		WebhookReports:      []domain.DeliveryReport{},
		Diagnostics:         []string{},
	}

	var lease domain.Lease
	if l.opts.Lock != nil {
		var lerr error
		lease, lerr = l.opts.Lock.Acquire(ctx, "marketsync:owner:"+s.Hash(), l.opts.LockTTL)
		if lerr != nil {
			summary.StoppedReason = domain.StopFatal
			summary.FinishedAt = l.opts.Clock().UTC()
			summary.Diagnostics = append(summary.Diagnostics, fmt.Sprintf("owner lock: %v", lerr))
			return summary, fmt.Errorf("automation: acquire owner lock: %w", lerr)
		}
		defer lease.Release()
	}

	state, diags := statestore.Load(l.stateFile, s.Hash(), s.Kind(), started)
	summary.Diagnostics = append(summary.Diagnostics, diags...)
	for _, d := range diags {
		l.logger.WarnContext(ctx, "state load", slog.String("diagnostic", d))
	}

	l.logger.InfoContext(ctx, "run started",
		slog.String("run_id", summary.RunID),
		slog.String("state_file", l.stateFile),
		slog.Int("iterations", l.opts.Iterations),
	)

	// Finish on a context that survives cancellation so the final save and
	// the run sinks still happen after a stop signal.
	finishCtx := context.WithoutCancel(ctx)
	defer func() {
		if serr := statestore.Save(l.stateFile, state); serr != nil {
			summary.Diagnostics = append(summary.Diagnostics, fmt.Sprintf("final save: %v", serr))
			l.logger.ErrorContext(finishCtx, "final save failed", slog.String("error", serr.Error()))
		}
		summary.State = state
		summary.FinishedAt = l.opts.Clock().UTC()
		l.finish(finishCtx, &summary)
	}()

	summary.StoppedReason = domain.StopCompleted
	for i := 1; l.opts.Iterations == 0 || i <= l.opts.Iterations; i++ {
		if ctx.Err() != nil {
			summary.StoppedReason = domain.StopSignal
			break
		}
		if KillSwitchActive(l.opts.KillSwitchFile) {
			summary.StoppedReason = domain.StopKillSwitch
			l.logger.WarnContext(ctx, "kill switch present, halting",
				slog.String("path", l.opts.KillSwitchFile),
				slog.Int("iteration", i),
			)
			l.save(finishCtx, state, &summary)
			break
		}
		if i > 1 && !l.refreshLease(finishCtx, lease, &summary) {
			summary.StoppedReason = domain.StopLockLost
			break
		}

		l.tick(finishCtx, i, state, &summary)
		summary.IterationsCompleted = i

		if ctx.Err() != nil {
			summary.StoppedReason = domain.StopSignal
			break
		}
		if l.opts.Iterations != 0 && i == l.opts.Iterations {
			break
		}
		if reason := l.sleep(ctx, lease, &summary); reason != "" {
			summary.StoppedReason = reason
			break
		}
	}
	return summary, nil
}

// tick runs one iteration. ctx is not cancelled by stop signals.
func (l *Loop) tick(ctx context.Context, iter int, state *domain.StrategyState, summary *domain.RunSummary) {
	s := l.strategy
	now := l.opts.Clock().UTC()

	if statestore.ResetDailyCountersIfNeeded(state, now) {
		l.logger.InfoContext(ctx, "daily counters reset", slog.String("day", state.LastResetDay))
	}
	state.TickCount++
	state.LastTickAt = &now

	ev, err := s.Evaluate(ctx, state, now)
	snap := domain.TickSnapshot{Iteration: iter, At: now}
	if err != nil {
		snap.Code = "EVALUATE_FAILED"
		snap.Reason = err.Error()
		summary.Snapshots = append(summary.Snapshots, snap)
		summary.Diagnostics = append(summary.Diagnostics, fmt.Sprintf("tick %d: evaluate: %v", iter, err))
		l.logger.ErrorContext(ctx, "evaluate failed", slog.Int("iteration", iter), slog.String("error", err.Error()))
		l.save(ctx, state, summary)
		return
	}
	snap.Triggered = ev.Triggered
	snap.Code = ev.Code
	snap.Reason = ev.Reason
	snap.Data = ev.Data
	summary.Snapshots = append(summary.Snapshots, snap)
	for _, d := range ev.Diagnostics {
		summary.Diagnostics = append(summary.Diagnostics, fmt.Sprintf("tick %d: %s", iter, d))
	}

	if !ev.Triggered || ev.Action == nil {
		l.logger.DebugContext(ctx, "not triggered",
			slog.Int("iteration", iter),
			slog.String("code", ev.Code),
			slog.String("reason", ev.Reason),
		)
		l.save(ctx, state, summary)
		return
	}

	rec := l.act(ctx, iter, state, ev, now)
	if fb := ev.Fallback; fb != nil && fb.Action != nil && !attempted(rec.Status) {
		alt := l.act(ctx, iter, state, *fb, now)
		summary.Diagnostics = append(summary.Diagnostics,
			fmt.Sprintf("tick %d: %s %s (%s), tried %s: %s", iter, rec.Kind, rec.Status, rec.Code, alt.Kind, alt.Status))
		if attempted(alt.Status) {
			rec = alt
		}
	}
	summary.Actions = append(summary.Actions, rec)

	l.logger.InfoContext(ctx, "action",
		slog.Int("iteration", iter),
		slog.String("status", string(rec.Status)),
		slog.String("kind", string(rec.Kind)),
		slog.Float64("amount_usdc", rec.AmountUsdc),
		slog.String("idempotency_key", rec.IdempotencyKey),
		slog.String("code", rec.Code),
	)

	l.save(ctx, state, summary)
	l.publish(ctx, rec, summary)
}

// act walks the idempotency, risk and execution steps for a triggered tick.
func (l *Loop) act(ctx context.Context, iter int, state *domain.StrategyState, ev Evaluation, now time.Time) domain.ActionRecord {
	s := l.strategy
	a := *ev.Action
	rec := domain.ActionRecord{
		ID:          uuid.NewString(),
		Iteration:   iter,
		Kind:        a.Kind,
		MarketID:    a.MarketID,
		Venue:       a.Venue,
		Side:        a.Side,
		Token:       a.Token,
		AmountUsdc:  a.AmountUsdc,
		TriggerCode: ev.Code,
		Reason:      ev.Reason,
		CreatedAt:   now,
	}
	rec.IdempotencyKey = trigger.IdempotencyKey(s.Identity(), ev.Direction, now, s.Cooldown())

	if statestore.HasIdempotencyKey(state, rec.IdempotencyKey) {
		rec.Status = domain.ActionSkipped
		rec.Code = domain.CodeDuplicateKey
		rec.Reason = "duplicate idempotency key in current cooldown bucket: " + ev.Reason
		return rec
	}

	checks := append([]risk.CheckResult{}, ev.Checks...)
	checks = append(checks,
		risk.MaxOpenExposure(state.DailySpendUsdc, a.AmountUsdc, l.opts.MaxOpenExposureUsdc),
		risk.MaxTradesPerDay(state.TradesToday, l.opts.MaxTradesPerDay),
	)
	gate := risk.Evaluate(checks...)
	rec.Checks = gate.Checks
	if !gate.Passed {
		rec.Status = domain.ActionBlocked
		rec.Code = domain.CodeRiskGateBlocked
		rec.FailedChecks = gate.FailedChecks
		rec.Reason = "risk gate blocked: " + strings.Join(gate.FailedChecks, ", ")
		return rec
	}

	if l.opts.ExecuteLive {
		res, err := s.Execute(ctx, a)
		if err != nil {
			rec.Status = domain.ActionFailed
			rec.Code = domain.CodeExecutionFailed
			rec.Error = err.Error()
			statestore.AppendAlert(state, now, domain.CodeExecutionFailed, fmt.Sprintf("%s %s failed: %v", a.Kind, a.MarketID, err))
			if errors.Is(err, domain.ErrExecutorMissing) {
				l.logger.ErrorContext(ctx, "executor missing in live mode")
			}
			return rec
		}
		rec.Status = domain.ActionExecuted
		rec.Result = res
	} else {
		rec.Status = domain.ActionSimulated
	}

	statestore.RecordIdempotencyKey(state, rec.IdempotencyKey, l.opts.MaxIdempotencyKeys)
	state.DailySpendUsdc += a.AmountUsdc
	state.TradesToday++
	s.Apply(state, a, rec.Result)
	last := rec
	state.LastExecution = &last
	return rec
}

// attempted reports whether an action got past the idempotency and risk
// steps, successfully or not.
func attempted(status domain.ActionStatus) bool {
	return status != domain.ActionSkipped && status != domain.ActionBlocked
}

func (l *Loop) save(ctx context.Context, state *domain.StrategyState, summary *domain.RunSummary) {
	if err := statestore.Save(l.stateFile, state); err != nil {
		summary.Diagnostics = append(summary.Diagnostics, fmt.Sprintf("save state: %v", err))
		l.logger.ErrorContext(ctx, "save state failed", slog.String("error", err.Error()))
	}
}

// publish fans a record out to the notifier and action recorders. Failures
// become diagnostics.
func (l *Loop) publish(ctx context.Context, rec domain.ActionRecord, summary *domain.RunSummary) {
	s := l.strategy
	if l.opts.Notifier != nil {
		r := rec
		reports := l.opts.Notifier.Notify(ctx, notify.Event{
			Type:         notify.ActionEvent(rec.Status),
			StrategyHash: s.Hash(),
			Kind:         s.Kind(),
			Mode:         l.mode,
			Title:        fmt.Sprintf("%s %s %s", s.Kind(), rec.Status, rec.Kind),
			Message:      fmt.Sprintf("%s %s %.2f USDC on %s:%s. %s", rec.Side, rec.Token, rec.AmountUsdc, rec.Venue, rec.MarketID, rec.Reason),
			Action:       &r,
			At:           rec.CreatedAt,
		})
		l.collectReports(reports, summary)
	}
	for _, ar := range l.opts.ActionRecorders {
		if err := ar.RecordAction(ctx, s.Hash(), l.mode, rec); err != nil {
			summary.Diagnostics = append(summary.Diagnostics, fmt.Sprintf("record action: %v", err))
			l.logger.WarnContext(ctx, "record action failed", slog.String("error", err.Error()))
		}
	}
}

func (l *Loop) collectReports(reports []domain.DeliveryReport, summary *domain.RunSummary) {
	for _, r := range reports {
		summary.WebhookReports = append(summary.WebhookReports, r)
		if !r.OK {
			summary.Diagnostics = append(summary.Diagnostics, fmt.Sprintf("webhook %s: %s", r.Channel, r.Error))
		}
	}
}

// finish notifies the stop and hands the summary to the run recorders.
func (l *Loop) finish(ctx context.Context, summary *domain.RunSummary) {
	s := l.strategy
	if l.opts.Notifier != nil && summary.StoppedReason != domain.StopCompleted {
		reports := l.opts.Notifier.Notify(ctx, notify.Event{
			Type:         notify.EventRunStopped,
			StrategyHash: s.Hash(),
			Kind:         s.Kind(),
			Mode:         l.mode,
			Title:        fmt.Sprintf("%s stopped: %s", s.Kind(), summary.StoppedReason),
			Message:      fmt.Sprintf("%d of %d iterations completed", summary.IterationsCompleted, summary.IterationsRequested),
			At:           summary.FinishedAt,
		})
		l.collectReports(reports, summary)
	}
	for _, rr := range l.opts.RunRecorders {
		if err := rr.RecordRun(ctx, *summary); err != nil {
			summary.Diagnostics = append(summary.Diagnostics, fmt.Sprintf("record run: %v", err))
			l.logger.WarnContext(ctx, "record run failed", slog.String("error", err.Error()))
		}
	}
	l.logger.InfoContext(ctx, "run finished",
		slog.String("run_id", summary.RunID),
		slog.String("stopped_reason", summary.StoppedReason),
		slog.Int("iterations_completed", summary.IterationsCompleted),
		slog.Int("actions", len(summary.Actions)),
	)
}

// refreshLease extends the owner lock. A failure is recorded and means the
// run must stop.
func (l *Loop) refreshLease(ctx context.Context, lease domain.Lease, summary *domain.RunSummary) bool {
	if lease == nil {
		return true
	}
	if err := lease.Refresh(ctx, l.opts.LockTTL); err != nil {
		summary.Diagnostics = append(summary.Diagnostics, fmt.Sprintf("owner lock: refresh: %v", err))
		l.logger.ErrorContext(ctx, "owner lock lost, halting", slog.String("error", err.Error()))
		return false
	}
	return true
}

// sleep waits for the interval, refreshing the lease every third of its TTL.
// It returns a stop reason, or "" to keep going.
func (l *Loop) sleep(ctx context.Context, lease domain.Lease, summary *domain.RunSummary) string {
	if l.opts.Interval <= 0 {
		if ctx.Err() != nil {
			return domain.StopSignal
		}
		return ""
	}
	t := time.NewTimer(l.opts.Interval)
	defer t.Stop()

	var refresh <-chan time.Time
	if lease != nil {
		tk := time.NewTicker(max(l.opts.LockTTL/3, time.Millisecond))
		defer tk.Stop()
		refresh = tk.C
	}
	for {
		select {
		case <-ctx.Done():
			return domain.StopSignal
		case <-t.C:
			return ""
		case <-refresh:
			if !l.refreshLease(context.WithoutCancel(ctx), lease, summary) {
				return domain.StopLockLost
			}
		}
	}
}
