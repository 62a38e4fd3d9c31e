package scoring

type factor struct {
	name   string
	score  float64
	weight float64
}

// weightedAverage skips non-finite factors and normalizes by the weight
// actually used. With nothing usable it returns fallback.
func weightedAverage(factors []factor, fallback float64) float64 {
	var sum, used float64
	for _, f := range factors {
		if !isFinite(f.score) || !isFinite(f.weight) || f.weight <= 0 {
			continue
		}
		sum += float64(f.score * f.weight)
		used += f.weight
	}
	if used == 0 {
		return fallback
	}
	return clamp(sum/used, 0, 100)
}

func components(factors []factor) map[string]float64 {
	out := make(map[string]float64, len(factors))
	for _, f := range factors {
		out[f.name] = f.score
	}
	return out
}

func categoryScore(factors []factor) CategoryScore {
	return CategoryScore{
		Score:      weightedAverage(factors, DefaultScore),
		Components: components(factors),
	}
}

// Trend is the share of consecutive pairs that did not decline, scaled to
// 0-100. Fewer than two finite points yields DefaultScore.
func Trend(series []float64) float64 {
	points := finiteSeries(series)
	if len(points) < 2 {
		return DefaultScore
	}
	rising := 0
	for i := 1; i < len(points); i++ {
		if points[i] >= points[i-1] {
			rising++
		}
	}
	return clamp(float64(rising)/float64(len(points)-1)*100, 0, 100)
}

// revenueMomentum prefers the annual series and falls back to monthly.
func revenueMomentum(n Normalized) float64 {
	if len(n.AnnualRevenue) >= 2 {
		return Trend(n.AnnualRevenue)
	}
	return Trend(n.MonthlyRevenue)
}

func FinancialStrength(n Normalized) CategoryScore {
	return categoryScore([]factor{
		{"revenueMomentum", revenueMomentum(n), 0.35},
		{"profitability", clamp(50+n.ProfitMargin*2, 0, 100), 0.25},
		{"cashflowStability", n.CashflowStability, 0.25},
		{"customerDiversification", clamp(40+10*n.SalesChannelCount, 0, 100), 0.15},
	})
}

// complianceFlags lists the five documents a lender checks.
func complianceFlags(n Normalized) []bool {
	return []bool{n.TaxRegistration, n.TaxClearance, n.AnnualReturns, n.BusinessInsurance, n.HasLicenses}
}

func ComplianceGovernance(n Normalized) CategoryScore {
	flags := complianceFlags(n)
	present := 0
	for _, ok := range flags {
		if ok {
			present++
		}
	}
	ratio := float64(present) / float64(len(flags))

	return CategoryScore{
		Score: clamp(40+40*ratio+0.2*n.PolicyCoverage, 0, 100),
		Components: map[string]float64{
			"completenessRatio": ratio,
			"policyCoverage":    n.PolicyCoverage,
		},
	}
}

func CreditBehaviorScore(n Normalized) CategoryScore {
	events := n.RejectionHistory + n.OverdraftFrequency + n.ChequeBounceHistory
	penalty := clamp(5*events, 0, 40)

	return CategoryScore{
		Score: clamp(n.RepaymentHistory-penalty+30, 0, 100),
		Components: map[string]float64{
			"repaymentHistory": n.RepaymentHistory,
			"penalty":          penalty,
		},
	}
}

func DigitalOperationalScore(n Normalized) CategoryScore {
	return categoryScore([]factor{
		{"digitalFootprint", n.DigitalFootprint, 0.25},
		{"erpUsage", n.ERPUsage, 0.25},
		{"deliveryReliability", n.DeliveryReliability, 0.25},
		{"customerSatisfaction", n.CustomerSatisfaction, 0.25},
	})
}

func BehavioralScore(n Normalized) CategoryScore {
	return categoryScore([]factor{
		{"profileCompletion", n.ProfileCompletion, 0.35},
		{"engagement", n.Engagement, 0.25},
		{"responsiveness", n.Responsiveness, 0.2},
		{"dataFreshness", n.DataFreshness, 0.2},
	})
}
