// Package scoring turns raw SME business signals into a credit passport:
// a 0-100 fundability score, category breakdown, risk profile, liquidity
// and repayment indicators, and a rule-based narrative.
//
// The engine does no I/O and keeps no state, so a single Engine may be
// shared by any number of goroutines.
package scoring

import (
	"context"
	"time"
)

type Engine struct {
	now func() time.Time
}

type Option func(*Engine)

// WithClock overrides the source of result timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultEngine = NewEngine()

// Generate scores in with the default engine.
func Generate(in Inputs) Result {
	return defaultEngine.Generate(in)
}

// Generate never fails: missing or non-finite inputs fall back to neutral defaults.
func (e *Engine) Generate(in Inputs) Result {
	n := Normalize(in)

	breakdown := Breakdown{
		FinancialStrength:    FinancialStrength(n).Score,
		ComplianceGovernance: ComplianceGovernance(n).Score,
		CreditBehavior:       CreditBehaviorScore(n).Score,
		DigitalOperational:   DigitalOperationalScore(n).Score,
		Behavioral:           BehavioralScore(n).Score,
	}

	score := FundabilityScore(breakdown)
	interpretation := Interpret(score)
	liquidity := LiquidityIndex(n)
	resilience := Resilience(n)
	repayment := Repayment(n)
	risk := BuildRiskProfile(breakdown, resilience, liquidity)

	a := &assessment{
		score:      score,
		breakdown:  breakdown,
		risk:       risk,
		liquidity:  liquidity,
		repayment:  repayment,
		resilience: resilience,
		inputs:     n,
	}

	return Result{
		FundabilityScore:  score,
		Breakdown:         breakdown,
		Interpretation:    interpretation,
		RiskProfile:       risk,
		LiquidityIndex:    liquidity,
		RepaymentCapacity: repayment,
		ResilienceScore:   resilience,
		Narrative:         buildNarrative(a, interpretation),
		Timestamp:         e.now().UTC().Format(time.RFC3339),
	}
}

// GenerateAugmented is Generate followed by Augment. The returned error is
// informational: the result always carries a usable narrative.
func (e *Engine) GenerateAugmented(ctx context.Context, in Inputs, aug NarrativeAugmenter) (Result, bool, error) {
	r := e.Generate(in)
	n, augmented, err := Augment(ctx, aug, r.Narrative, in)
	r.Narrative = n
	return r, augmented, err
}
