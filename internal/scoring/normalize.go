package scoring

import (
	"math"
	"strings"
)

// Neutral defaults for absent or non-finite inputs.
const (
	DefaultScore               = 55.0
	DefaultRepaymentHistory    = 50.0
	DefaultProfitMargin        = 2.0
	DefaultDSCR                = 1.1
	DefaultEBITDAMargin        = 15.0
	DefaultCashConversionCycle = 45.0
	DefaultExposure            = 40.0
	DefaultSalesChannels       = 2.0
	DefaultLiquidityBase       = 60.0
	DefaultResilienceBase      = 60.0
)

// Normalized is Inputs with every field resolved. Scorers only ever see this.
type Normalized struct {
	Name   string
	Sector string

	AnnualRevenue            []float64
	MonthlyRevenue           []float64
	ProfitMargin             float64
	CashflowStability        float64
	CashConversionCycle      float64
	CustomerConcentration    float64
	DSCR                     float64
	EBITDAMargin             float64
	NegativeBalanceFrequency float64

	RepaymentHistory    float64
	RejectionHistory    float64
	OverdraftFrequency  float64
	ChequeBounceHistory float64
	SalesChannelCount   float64

	TaxRegistration   bool
	TaxClearance      bool
	AnnualReturns     bool
	BusinessInsurance bool
	HasLicenses       bool
	PolicyCoverage    float64

	DigitalFootprint     float64
	ERPUsage             float64
	DeliveryReliability  float64
	CustomerSatisfaction float64
	SeasonalityImpact    float64
	SupplyChainRisk      float64
	CurrencyExposure     float64
	ContinuityPlans      float64

	ProfileCompletion float64
	Engagement        float64
	Responsiveness    float64
	DataFreshness     float64
}

// Normalize is total: any input shape yields a fully populated Normalized.
func Normalize(in Inputs) Normalized {
	id := in.BusinessIdentity
	if id == nil {
		id = &BusinessIdentity{}
	}
	fin := in.Financials
	if fin == nil {
		fin = &Financials{}
	}
	credit := mergeCreditBehavior(in.CreditBehavior, in.Banking)
	comp := in.Compliance
	if comp == nil {
		comp = &Compliance{}
	}
	dig := in.DigitalOperational
	if dig == nil {
		dig = &DigitalOperational{}
	}
	beh := in.Behavioral
	if beh == nil {
		beh = &Behavioral{}
	}

	channels := DefaultSalesChannels
	if credit.SalesChannels != nil {
		channels = float64(distinctNonBlank(credit.SalesChannels))
	}

	return Normalized{
		Name:   strings.TrimSpace(id.Name),
		Sector: strings.TrimSpace(id.Sector),

		AnnualRevenue:            finiteSeries(fin.AnnualRevenue),
		MonthlyRevenue:           finiteSeries(fin.MonthlyRevenue),
		ProfitMargin:             number(fin.ProfitMargin, DefaultProfitMargin),
		CashflowStability:        score(fin.CashflowStability, DefaultScore),
		CashConversionCycle:      number(fin.CashConversionCycle, DefaultCashConversionCycle),
		CustomerConcentration:    score(fin.CustomerConcentration, DefaultExposure),
		DSCR:                     math.Max(number(fin.DSCR, DefaultDSCR), 0),
		EBITDAMargin:             number(fin.EBITDAMargin, DefaultEBITDAMargin),
		NegativeBalanceFrequency: count(fin.NegativeBalanceFrequency),

		RepaymentHistory:    score(credit.RepaymentHistory, DefaultRepaymentHistory),
		RejectionHistory:    count(credit.RejectionHistory),
		OverdraftFrequency:  count(credit.OverdraftFrequency),
		ChequeBounceHistory: count(credit.ChequeBounceHistory),
		SalesChannelCount:   channels,

		TaxRegistration:   flag(comp.TaxRegistration),
		TaxClearance:      flag(comp.TaxClearance),
		AnnualReturns:     flag(comp.AnnualReturns),
		BusinessInsurance: flag(comp.BusinessInsurance),
		HasLicenses:       distinctNonBlank(comp.Licenses) > 0,
		PolicyCoverage:    score(comp.PolicyCoverage, DefaultScore),

		DigitalFootprint:     score(dig.DigitalFootprint, DefaultScore),
		ERPUsage:             score(dig.ERPUsage, DefaultScore),
		DeliveryReliability:  score(dig.DeliveryReliability, DefaultScore),
		CustomerSatisfaction: score(dig.CustomerSatisfaction, DefaultScore),
		SeasonalityImpact:    score(dig.SeasonalityImpact, DefaultExposure),
		SupplyChainRisk:      score(dig.SupplyChainRisk, DefaultExposure),
		CurrencyExposure:     score(dig.CurrencyExposure, DefaultExposure),
		ContinuityPlans:      score(dig.ContinuityPlans, DefaultScore),

		ProfileCompletion: score(beh.ProfileCompletion, DefaultScore),
		Engagement:        score(beh.Engagement, DefaultScore),
		Responsiveness:    score(beh.Responsiveness, DefaultScore),
		DataFreshness:     score(beh.DataFreshness, DefaultScore),
	}
}

// mergeCreditBehavior folds the banking alias into creditBehavior.
// Fields set on primary win.
func mergeCreditBehavior(primary, alias *CreditBehavior) CreditBehavior {
	var out CreditBehavior
	if alias != nil {
		out = *alias
	}
	if primary == nil {
		return out
	}
	if primary.RepaymentHistory != nil {
		out.RepaymentHistory = primary.RepaymentHistory
	}
	if primary.RejectionHistory != nil {
		out.RejectionHistory = primary.RejectionHistory
	}
	if primary.OverdraftFrequency != nil {
		out.OverdraftFrequency = primary.OverdraftFrequency
	}
	if primary.ChequeBounceHistory != nil {
		out.ChequeBounceHistory = primary.ChequeBounceHistory
	}
	if primary.SalesChannels != nil {
		out.SalesChannels = primary.SalesChannels
	}
	return out
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func number(p *float64, def float64) float64 {
	if p == nil || !isFinite(*p) {
		return def
	}
	return *p
}

func score(p *float64, def float64) float64 {
	return clamp(number(p, def), 0, 100)
}

func count(p *float64) float64 {
	return math.Max(number(p, 0), 0)
}

func flag(p *bool) bool {
	return p != nil && *p
}

func finiteSeries(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if isFinite(v) {
			out = append(out, v)
		}
	}
	return out
}

func distinctNonBlank(values []string) int {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		seen[v] = struct{}{}
	}
	return len(seen)
}

// clamp maps NaN to lo.
func clamp(v, lo, hi float64) float64 {
	switch {
	case math.IsNaN(v):
		return lo
	case v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
