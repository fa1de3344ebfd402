package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/marketsync/internal/crypto"
	"github.com/alanyoungcy/marketsync/internal/domain"
	"github.com/alanyoungcy/marketsync/internal/matching"
	"github.com/alanyoungcy/marketsync/internal/platform/pandora"
	"github.com/alanyoungcy/marketsync/internal/platform/polymarket"
)

// DefaultMinMatchScore is the question similarity a mirror pair needs when
// none is configured.
const DefaultMinMatchScore = 0.75

// Gate failure codes.
const (
	GateMatchScoreLow    = "MATCH_SCORE_BELOW_MIN"
	GateRulesMismatch    = "RULES_HASH_MISMATCH"
	GatePandoraInactive  = "PANDORA_MARKET_INACTIVE"
	GateSourceInactive   = "SOURCE_MARKET_INACTIVE"
	GateMissingQuestions = "QUESTION_UNAVAILABLE"
)

// MarketView is one venue market as the verifier sees it.
type MarketView struct {
	View  domain.MarketView
	Rules string
}

// MarketReader fetches one market by ID.
type MarketReader interface {
	ReadMarket(ctx context.Context, id string) (MarketView, error)
}

// Verifier builds the cross-venue verification payload for a mirror pair.
type Verifier struct {
	pandora         MarketReader
	source          MarketReader
	pandoraMarketID string
	sourceMarketID  string
	minMatchScore   float64
}

// NewVerifier creates a Verifier. A minMatchScore of zero uses
// DefaultMinMatchScore.
func NewVerifier(pandoraReader, source MarketReader, pandoraMarketID, sourceMarketID string, minMatchScore float64) *Verifier {
	if minMatchScore <= 0 {
		minMatchScore = DefaultMinMatchScore
	}
	return &Verifier{
		pandora:         pandoraReader,
		source:          source,
		pandoraMarketID: pandoraMarketID,
		sourceMarketID:  sourceMarketID,
		minMatchScore:   minMatchScore,
	}
}

// Verify fetches both markets and runs the gate: question similarity, rules
// hash equality when both sides publish rules, and both markets active.
func (v *Verifier) Verify(ctx context.Context) (domain.Verification, error) {
	var p, s MarketView
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		p, err = v.pandora.ReadMarket(gctx, v.pandoraMarketID)
		return err
	})
	g.Go(func() error {
		var err error
		s, err = v.source.ReadMarket(gctx, v.sourceMarketID)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.Verification{}, fmt.Errorf("app: verify: %w", err)
	}

	p.View.RulesHash = crypto.RulesHash(p.Rules)
	s.View.RulesHash = crypto.RulesHash(s.Rules)

	out := domain.Verification{
		Pandora:      p.View,
		SourceMarket: s.View,
	}

	var failed []string
	if p.View.Question == "" || s.View.Question == "" {
		failed = append(failed, GateMissingQuestions)
	} else {
		out.MatchConfidence = matching.Score(p.View.Question, s.View.Question).Score
		if out.MatchConfidence < v.minMatchScore {
			failed = append(failed, GateMatchScoreLow)
		}
	}
	if match, ok := crypto.RulesMatch(p.Rules, s.Rules); ok {
		out.RulesHashMatch = &match
		if !match {
			failed = append(failed, GateRulesMismatch)
		}
	}
	if !p.View.Active {
		failed = append(failed, GatePandoraInactive)
	}
	if !s.View.Active {
		failed = append(failed, GateSourceInactive)
	}
	if p.View.CloseTimestamp != nil && s.View.CloseTimestamp != nil {
		d := *p.View.CloseTimestamp - *s.View.CloseTimestamp
		out.CloseTimeDeltaSec = &d
	}

	out.Gate = domain.GateResult{Passed: len(failed) == 0, FailedChecks: failed}
	return out, nil
}

// PandoraReader adapts the indexer client to MarketReader.
type PandoraReader struct{ Client *pandora.Client }

func (r PandoraReader) ReadMarket(ctx context.Context, id string) (MarketView, error) {
	m, err := r.Client.GetMarket(ctx, id)
	if err != nil {
		return MarketView{}, err
	}
	return MarketView{
		View: domain.MarketView{
			Venue:          domain.VenuePandora,
			MarketID:       m.Leg.MarketID,
			Question:       m.Leg.Question,
			YesPct:         m.Leg.YesPct,
			YesReserveUsdc: m.YesReserveUsdc,
			NoReserveUsdc:  m.NoReserveUsdc,
			CloseTimestamp: m.Leg.CloseTimestamp,
			Active:         m.Active,
		},
		Rules: m.Leg.Rules,
	}, nil
}

// PolymarketReader adapts the Gamma client to MarketReader.
type PolymarketReader struct{ Client *polymarket.GammaClient }

func (r PolymarketReader) ReadMarket(ctx context.Context, id string) (MarketView, error) {
	m, err := r.Client.GetMarket(ctx, id)
	if err != nil {
		return MarketView{}, err
	}
	view := domain.MarketView{
		Venue:          domain.VenuePolymarket,
		MarketID:       m.ID,
		Question:       m.Question,
		CloseTimestamp: m.CloseTimestamp(),
		Active:         m.IsActive(),
	}
	if yes, _, ok := m.Prices(); ok {
		view.YesPct = domain.Float64(yes)
	}
	return MarketView{View: view, Rules: m.Description}, nil
}
