package scoring

import (
	"fmt"
	"math"
)

// Category weights of the composite score. They sum to 1.
const (
	WeightFinancial  = 0.40
	WeightCompliance = 0.20
	WeightCredit     = 0.20
	WeightDigital    = 0.10
	WeightBehavioral = 0.10
)

// CategoryWeights returns the composite weights in breakdown order.
func CategoryWeights() []float64 {
	return []float64{WeightFinancial, WeightCompliance, WeightCredit, WeightDigital, WeightBehavioral}
}

// Scores returns the category scores in the same order as CategoryWeights.
func (b Breakdown) Scores() []float64 {
	return []float64{b.FinancialStrength, b.ComplianceGovernance, b.CreditBehavior, b.DigitalOperational, b.Behavioral}
}

// FundabilityScore is round(sum of weight*score), bounded to 0-100.
func FundabilityScore(b Breakdown) int {
	weights := CategoryWeights()
	var total float64
	for i, s := range b.Scores() {
		total += float64(weights[i] * s)
	}
	return int(clamp(math.Round(total), 0, 100))
}

var interpretationBands = []struct {
	MaxScore int
	Label    string
}{
	{30, "Very Low Fundability"},
	{50, "Low Fundability"},
	{70, "Medium Fundability (Bankable with support)"},
	{90, "High Fundability"},
}

const topInterpretation = "Very High Fundability"

// Interpret maps a composite score to its band label. Upper bounds are inclusive.
func Interpret(score int) string {
	for _, band := range interpretationBands {
		if score <= band.MaxScore {
			return band.Label
		}
	}
	return topInterpretation
}

// LiquidityIndex is on a 0-10 scale with one decimal.
func LiquidityIndex(n Normalized) float64 {
	base := weightedAverage([]factor{
		{"cashflowStability", n.CashflowStability, 0.5},
		{"balanceDiscipline", clamp((10-n.NegativeBalanceFrequency)*10, 0, 100), 0.2},
		{"cashConversion", clamp(100-n.CashConversionCycle, 0, 100), 0.3},
	}, DefaultLiquidityBase)
	return round1(base / 10)
}

func Repayment(n Normalized) RepaymentCapacity {
	strength := clamp(40+n.DSCR*20+n.EBITDAMargin*0.8, 0, 100)

	label := RepaymentWeak
	switch {
	case strength >= 75:
		label = RepaymentStrong
	case strength >= 55:
		label = RepaymentModerate
	}

	return RepaymentCapacity{
		Label:   label,
		Score:   round1(strength / 10),
		Details: fmt.Sprintf("DSCR %.2fx, EBITDA margin %.1f%%, capacity strength %.0f/100", n.DSCR, n.EBITDAMargin, strength),
	}
}

// Resilience inverts each shock exposure and blends in continuity planning.
func Resilience(n Normalized) float64 {
	return weightedAverage([]factor{
		{"customerConcentration", 100 - n.CustomerConcentration, 0.25},
		{"supplyChain", 100 - n.SupplyChainRisk, 0.2},
		{"currency", 100 - n.CurrencyExposure, 0.2},
		{"seasonality", 100 - n.SeasonalityImpact, 0.2},
		{"continuityPlans", n.ContinuityPlans, 0.15},
	}, DefaultResilienceBase)
}
