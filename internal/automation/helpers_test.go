package automation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/marketsync/internal/domain"
	"github.com/alanyoungcy/marketsync/internal/notify"
	"github.com/alanyoungcy/marketsync/internal/trigger"
)

var t0 = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func pct(v float64) *float64 { return &v }

func ts(v int64) *int64 { return &v }

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// stepClock advances by step on every call.
type stepClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.now
	c.now = c.now.Add(c.step)
	return n
}

func fixedQuote(yes float64) QuoteFunc {
	return func(context.Context) (domain.Quote, error) {
		return domain.Quote{YesPct: pct(yes), NoPct: pct(100 - yes)}, nil
	}
}

func autopilotCfg() AutopilotConfig {
	return AutopilotConfig{
		Venue:      domain.VenuePandora,
		MarketID:   "0xabc",
		Thresholds: trigger.AutopilotThresholds{YesBelow: pct(40)},
		AmountUsdc: 10,
		CooldownMs: 5 * 60 * 1000,
	}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
	fail   bool
}

func (n *recordingNotifier) Notify(_ context.Context, ev notify.Event) []domain.DeliveryReport {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	r := domain.DeliveryReport{Channel: "test", Event: ev.Type, OK: !n.fail, Attempts: 1}
	if n.fail {
		r.Error = "status 500"
	}
	return []domain.DeliveryReport{r}
}

type recordingSink struct {
	actions []domain.ActionRecord
	runs    []domain.RunSummary
	err     error
}

func (s *recordingSink) RecordAction(_ context.Context, _, _ string, a domain.ActionRecord) error {
	s.actions = append(s.actions, a)
	return s.err
}

func (s *recordingSink) RecordRun(_ context.Context, sum domain.RunSummary) error {
	s.runs = append(s.runs, sum)
	return s.err
}

type fakeLock struct {
	mu        sync.Mutex
	held      bool
	released  bool
	refreshes int
	// loseAfter makes the n-th refresh fail; 0 never fails.
	loseAfter int
}

func (l *fakeLock) Acquire(context.Context, string, time.Duration) (domain.Lease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return nil, domain.ErrLockHeld
	}
	l.held = true
	return l, nil
}

func (l *fakeLock) Refresh(context.Context, time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refreshes++
	if l.loseAfter > 0 && l.refreshes >= l.loseAfter {
		return domain.ErrLockLost
	}
	return nil
}

func (l *fakeLock) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.released = true
	l.held = false
}

var errBoom = errors.New("boom")
