package scoring

import (
	"context"
	"errors"
	"fmt"
)

// ErrIncompleteNarrative is returned by Augment when the augmenter's
// narrative lacks a headline, recommendations or partners.
var ErrIncompleteNarrative = errors.New("augmented narrative is incomplete")

type section int

const (
	sectionStrengths section = iota
	sectionWeaknesses
	sectionBankConcerns
	sectionRecommendations
	sectionPartners
)

// assessment is what narrative rules may look at.
type assessment struct {
	score      int
	breakdown  Breakdown
	risk       RiskProfile
	liquidity  float64
	repayment  RepaymentCapacity
	resilience float64
	inputs     Normalized
}

type narrativeRule struct {
	section section
	when    func(a *assessment) bool
	text    string
}

var (
	baselineRecommendations = []string{
		"Keep monthly management accounts and bank statements up to date.",
		"Regenerate the passport after material changes to revenue, compliance or credit records.",
	}
	baselinePartners = []string{
		"Zambia Development Agency (ZDA) SME support desk",
		"Citizens Economic Empowerment Commission (CEEC)",
	}
)

// narrativeRules is evaluated in order within each section.
var narrativeRules = []narrativeRule{
	{sectionStrengths, func(a *assessment) bool { return a.breakdown.FinancialStrength >= 70 },
		"Strong revenue traction and healthy financial fundamentals."},
	{sectionStrengths, func(a *assessment) bool { return a.breakdown.ComplianceGovernance >= 75 },
		"Compliance documentation is largely complete (tax, returns, insurance and licensing)."},
	{sectionStrengths, func(a *assessment) bool { return a.breakdown.CreditBehavior >= 75 },
		"Clean repayment record with few adverse credit events."},
	{sectionStrengths, func(a *assessment) bool { return a.breakdown.DigitalOperational >= 70 },
		"Mature digital and operational footprint supports lender due diligence."},
	{sectionStrengths, func(a *assessment) bool { return a.breakdown.Behavioral >= 70 },
		"Profile is complete, current and responsive."},
	{sectionStrengths, func(a *assessment) bool { return a.liquidity >= 7 },
		"Comfortable short-term liquidity position."},
	{sectionStrengths, func(a *assessment) bool { return a.repayment.Label == RepaymentStrong },
		"Earnings comfortably cover debt service."},
	{sectionStrengths, func(a *assessment) bool { return a.resilience >= 75 },
		"Low exposure to customer, supply-chain, currency and seasonal shocks."},

	{sectionWeaknesses, func(a *assessment) bool { return a.risk.FinancialRisk == RiskHigh },
		"Financial performance is weak or inconsistent."},
	{sectionWeaknesses, func(a *assessment) bool { return a.risk.ComplianceRisk == RiskHigh },
		"Compliance gaps in tax, statutory or licensing documentation."},
	{sectionWeaknesses, func(a *assessment) bool { return a.risk.CreditRisk == RiskHigh },
		"Adverse credit history from rejections, overdrafts or bounced cheques."},
	{sectionWeaknesses, func(a *assessment) bool { return a.risk.OperationalRisk == RiskHigh },
		"Limited digital records and operational maturity."},
	{sectionWeaknesses, func(a *assessment) bool { return a.breakdown.Behavioral < 50 },
		"Profile data is incomplete or stale."},
	{sectionWeaknesses, func(a *assessment) bool { return a.inputs.SalesChannelCount <= 1 },
		"Revenue depends on a narrow set of sales channels."},

	{sectionBankConcerns, func(a *assessment) bool { return a.risk.LiquidityConcern == RiskHigh },
		"Short-term liquidity is tight; lenders will scrutinise cash buffers and working capital."},
	{sectionBankConcerns, func(a *assessment) bool { return a.repayment.Label == RepaymentWeak },
		"Debt service coverage is below typical lender thresholds."},
	{sectionBankConcerns, func(a *assessment) bool { return a.risk.MarketRisk == RiskHigh },
		"High exposure to concentration, supply-chain, currency or seasonal shocks."},
	{sectionBankConcerns, func(a *assessment) bool { return a.risk.CreditRisk != RiskLow },
		"Recent repayment behaviour will be reviewed closely."},
	{sectionBankConcerns, func(a *assessment) bool { return !a.inputs.TaxClearance },
		"No current tax clearance certificate on file."},
	{sectionBankConcerns, func(a *assessment) bool { return a.risk.OverallRiskLevel == RiskHigh },
		"Overall risk is high; collateral or guarantees are likely to be requested."},

	{sectionRecommendations, func(a *assessment) bool { return !a.inputs.TaxClearance || !a.inputs.AnnualReturns },
		"Obtain a current tax clearance certificate and file any outstanding annual returns."},
	{sectionRecommendations, func(a *assessment) bool { return !a.inputs.BusinessInsurance },
		"Take out business insurance covering stock and key assets."},
	{sectionRecommendations, func(a *assessment) bool { return a.risk.LiquidityConcern != RiskLow },
		"Shorten the cash conversion cycle by tightening receivables collection."},
	{sectionRecommendations, func(a *assessment) bool { return a.risk.CreditRisk == RiskHigh },
		"Avoid unarranged overdrafts and returned cheques for at least six months."},
	{sectionRecommendations, func(a *assessment) bool { return a.risk.OperationalRisk != RiskLow },
		"Adopt digital bookkeeping or an ERP tool to strengthen records."},
	{sectionRecommendations, func(a *assessment) bool { return a.inputs.SalesChannelCount <= 1 },
		"Add at least one more sales channel to reduce concentration."},

	{sectionPartners, func(a *assessment) bool { return a.score > 70 },
		"Commercial bank SME lending desks"},
	{sectionPartners, func(a *assessment) bool { return a.score > 50 && a.score <= 70 },
		"Development Bank of Zambia (DBZ) SME facilities"},
	{sectionPartners, func(a *assessment) bool { return a.score <= 50 },
		"Licensed microfinance institutions and business development service providers"},
	{sectionPartners, func(a *assessment) bool { return a.risk.ComplianceRisk == RiskHigh },
		"Zambia Revenue Authority (ZRA) taxpayer services"},
}

func (a *assessment) collect(s section) []string {
	out := []string{}
	for _, r := range narrativeRules {
		if r.section == s && r.when(a) {
			out = append(out, r.text)
		}
	}
	return out
}

func buildNarrative(a *assessment, interpretation string) Narrative {
	name := a.inputs.Name
	if name == "" {
		name = "This business"
	}

	return Narrative{
		Headline: fmt.Sprintf("%s scores %d/100: %s, overall risk %s.",
			name, a.score, interpretation, a.risk.OverallRiskLevel),
		Strengths:         a.collect(sectionStrengths),
		Weaknesses:        a.collect(sectionWeaknesses),
		BankConcerns:      a.collect(sectionBankConcerns),
		Recommendations:   append(append([]string{}, baselineRecommendations...), a.collect(sectionRecommendations)...),
		SuggestedPartners: append(append([]string{}, baselinePartners...), a.collect(sectionPartners)...),
	}
}

// NarrativeAugmenter produces a richer narrative from the rule-based one
// and the raw inputs, typically by calling a text-generation model.
type NarrativeAugmenter interface {
	Augment(ctx context.Context, base Narrative, in Inputs) (Narrative, error)
}

// Augment returns aug's narrative when it succeeds with a complete
// narrative, and base otherwise. The bool reports which one was used.
func Augment(ctx context.Context, aug NarrativeAugmenter, base Narrative, in Inputs) (Narrative, bool, error) {
	if aug == nil {
		return base, false, nil
	}
	n, err := aug.Augment(ctx, base, in)
	if err != nil {
		return base, false, err
	}
	if !n.Complete() {
		return base, false, ErrIncompleteNarrative
	}
	return n.withEmptySections(), true, nil
}

// withEmptySections replaces nil sections so they encode as [] rather than null.
func (n Narrative) withEmptySections() Narrative {
	for _, s := range []*[]string{&n.Strengths, &n.Weaknesses, &n.BankConcerns, &n.Recommendations, &n.SuggestedPartners} {
		if *s == nil {
			*s = []string{}
		}
	}
	return n
}
