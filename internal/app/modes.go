package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/marketsync/internal/automation"
	"github.com/alanyoungcy/marketsync/internal/domain"
	"github.com/alanyoungcy/marketsync/internal/matching"
	"github.com/alanyoungcy/marketsync/internal/sizing"
)

// ScanReport is the scan mode output.
type ScanReport struct {
	GeneratedAt time.Time `json:"generatedAt"`
	Venues      []string  `json:"venues"`
	matching.ScanResult
}

// ScanMode fetches legs from every configured venue, clusters them, and
// writes the ranked opportunities. A venue that fails to load is reported as
// a diagnostic; the scan fails only when no venue loads.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting scan mode", slog.Any("venues", a.cfg.Matching.Venues))

	var (
		mu     sync.Mutex
		legs   []domain.MarketLeg
		diags  []string
		loaded int
	)
	var g errgroup.Group
	for _, name := range a.cfg.Matching.Venues {
		venue, err := domain.ParseVenue(name)
		if err != nil {
			return fmt.Errorf("app: scan: %w", err)
		}
		g.Go(func() error {
			got, venueDiags, err := a.loadLegs(ctx, deps, venue)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				diags = append(diags, fmt.Sprintf("%s: %v", venue, err))
				a.logger.WarnContext(ctx, "venue load failed",
					slog.String("venue", string(venue)),
					slog.String("error", err.Error()),
				)
				return nil
			}
			loaded++
			legs = append(legs, got...)
			diags = append(diags, venueDiags...)
			return nil
		})
	}
	_ = g.Wait()

	if loaded == 0 {
		return fmt.Errorf("app: scan: no venue loaded: %s", strings.Join(diags, "; "))
	}

	m := a.cfg.Matching
	res := matching.Scan(legs, matching.ScanOptions{
		SimilarityThreshold: m.SimilarityThreshold,
		MaxCloseDiffHours:   m.MaxCloseDiffHours,
		CrossVenueOnly:      m.CrossVenueOnly,
		MinSpreadPct:        m.MinSpreadPct,
		MinLiquidityUSD:     m.MinLiquidityUSD,
		Limit:               m.Limit,
	})
	res.Diagnostics = append(diags, res.Diagnostics...)

	a.logger.InfoContext(ctx, "scan complete",
		slog.Int("legs", res.LegsScanned),
		slog.Int("groups", res.GroupsFound),
		slog.Int("opportunities", len(res.Opportunities)),
	)
	return a.emit(ScanReport{
		GeneratedAt: time.Now().UTC(),
		Venues:      m.Venues,
		ScanResult:  res,
	})
}

func (a *App) loadLegs(ctx context.Context, deps *Dependencies, venue domain.Venue) ([]domain.MarketLeg, []string, error) {
	switch venue {
	case domain.VenuePandora:
		if deps.Pandora == nil {
			return nil, nil, fmt.Errorf("pandora indexer not configured")
		}
		return deps.Pandora.ListLegs(ctx, a.cfg.Pandora.PageSize, a.cfg.Pandora.MaxMarkets)
	case domain.VenuePolymarket:
		legs, err := deps.Gamma.ListLegs(ctx, a.cfg.Polymarket.PageSize, a.cfg.Polymarket.MaxMarkets)
		return legs, nil, err
	default:
		return nil, nil, fmt.Errorf("%w: %s", domain.ErrUnknownVenue, venue)
	}
}

// SizeReport is the size mode output.
type SizeReport struct {
	MarketID    string                `json:"marketId,omitempty"`
	Inputs      sizing.SizingParams   `json:"inputs"`
	Plan        sizing.MirrorSeedPlan `json:"plan"`
	Diagnostics []string              `json:"diagnostics"`
}

// SizeMode computes a liquidity recommendation and distribution hint. When a
// Polymarket market is configured, any volume, depth or probability left
// unset is read from it; explicit values always win.
func (a *App) SizeMode(ctx context.Context, deps *Dependencies) error {
	sc := a.cfg.Sizing
	params := sc.Params()
	pYes := sc.YesPct
	report := SizeReport{MarketID: sc.MarketID, Diagnostics: []string{}}

	if sc.MarketID != "" {
		m, err := deps.Gamma.GetMarket(ctx, sc.MarketID)
		if err != nil {
			return fmt.Errorf("app: size: %w", err)
		}
		if params.Volume24hUSD == 0 {
			params.Volume24hUSD = float64(m.Volume24hr)
		}
		if pYes == nil {
			if yes, _, ok := m.Prices(); ok {
				pYes = &yes
			} else {
				report.Diagnostics = append(report.Diagnostics, "market prices unavailable; using 50/50 distribution")
			}
		}
		if params.DepthWithinSlippageUSD == 0 {
			yesTok, noTok, ok := m.TokenIDs()
			if !ok {
				report.Diagnostics = append(report.Diagnostics, "market has no clob tokens; depth floor is zero")
			} else if est, err := deps.Clob.Depth(ctx, yesTok, noTok, params.TargetSlippageBps); err != nil {
				report.Diagnostics = append(report.Diagnostics, fmt.Sprintf("depth: %v", err))
			} else {
				params.DepthWithinSlippageUSD = est.DepthWithinSlippageUSD
			}
		}
	}

	// Configured and market probabilities are percentages.
	var prob *float64
	if pYes != nil {
		p := *pYes / 100
		prob = &p
	}

	plan, err := sizing.PlanMirrorSeed(params, prob)
	if err != nil {
		return fmt.Errorf("app: size: %w", err)
	}
	report.Inputs = params
	report.Plan = plan

	a.logger.InfoContext(ctx, "sizing complete",
		slog.Float64("recommended_usd", plan.Recommendation.RecommendedUSD),
		slog.String("binding_floor", plan.Recommendation.BindingFloor),
	)
	return a.emit(report)
}

// StrategyMode runs every configured autopilot and/or mirror strategy as its
// own control loop, concurrently, and writes the run summaries once all have
// stopped. A fatal loop error cancels the others.
func (a *App) StrategyMode(ctx context.Context, deps *Dependencies, autopilot, mirror bool) error {
	var strategies []automation.Strategy
	if autopilot {
		for _, c := range a.cfg.Autopilot {
			s, err := BuildAutopilot(c, deps)
			if err != nil {
				return err
			}
			strategies = append(strategies, s)
		}
	}
	if mirror {
		for _, c := range a.cfg.Mirror {
			s, err := BuildMirror(c, deps)
			if err != nil {
				return err
			}
			strategies = append(strategies, s)
		}
	}
	if len(strategies) == 0 {
		return fmt.Errorf("app: %w: no strategies configured for mode %q", domain.ErrInvalidConfig, a.cfg.Mode)
	}

	loops := make([]*automation.Loop, 0, len(strategies))
	for _, s := range strategies {
		l, err := automation.NewLoop(s, a.loopOptions(deps))
		if err != nil {
			return fmt.Errorf("app: %s %s: %w", s.Kind(), s.Hash(), err)
		}
		loops = append(loops, l)
	}

	a.logger.InfoContext(ctx, "starting strategy loops",
		slog.Int("count", len(loops)),
		slog.Bool("execute_live", a.cfg.State.ExecuteLive),
	)

	summaries := make([]domain.RunSummary, len(loops))
	g, gctx := errgroup.WithContext(ctx)
	for i, l := range loops {
		g.Go(func() error {
			sum, err := l.Run(gctx)
			summaries[i] = sum
			return err
		})
	}
	runErr := g.Wait()

	if err := a.emit(summaries); err != nil {
		return err
	}
	if runErr != nil {
		return fmt.Errorf("app: %w", runErr)
	}
	return nil
}

func (a *App) loopOptions(deps *Dependencies) automation.Options {
	st := a.cfg.State
	opts := automation.Options{
		Iterations:          st.Iterations,
		Interval:            st.Interval.Duration,
		ExecuteLive:         st.ExecuteLive,
		StateDir:            st.Dir,
		KillSwitchFile:      st.KillSwitchFile,
		MaxOpenExposureUsdc: st.MaxOpenExposureUsdc,
		MaxTradesPerDay:     st.MaxTradesPerDay,
		MaxIdempotencyKeys:  st.MaxIdempotencyKeys,
		ActionRecorders:     deps.ActionRecorders,
		RunRecorders:        deps.RunRecorders,
		Lock:                deps.Lock,
		LockTTL:             st.LockTTL.Duration,
		Logger:              a.base,
	}
	if deps.Notifier.Enabled() {
		opts.Notifier = deps.Notifier
	}
	return opts
}
