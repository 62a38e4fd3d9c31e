package scoring

// Classify thresholds a 0-100 score: 75 and above is low risk, 55 and above medium.
func Classify(score float64) RiskLevel {
	switch {
	case score >= 75:
		return RiskLow
	case score >= 55:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// ClassifyLiquidity is inverted relative to Classify and works on the 0-10 index.
func ClassifyLiquidity(index float64) RiskLevel {
	switch {
	case index < 5:
		return RiskHigh
	case index < 7:
		return RiskMedium
	default:
		return RiskLow
	}
}

// OverallRisk is high with two or more high dimensions, low with three or
// more low ones, and medium otherwise.
func OverallRisk(levels []RiskLevel) RiskLevel {
	var high, low int
	for _, l := range levels {
		switch l {
		case RiskHigh:
			high++
		case RiskLow:
			low++
		}
	}
	switch {
	case high >= 2:
		return RiskHigh
	case low >= 3:
		return RiskLow
	default:
		return RiskMedium
	}
}

func BuildRiskProfile(b Breakdown, resilience, liquidity float64) RiskProfile {
	p := RiskProfile{
		FinancialRisk:    Classify(b.FinancialStrength),
		ComplianceRisk:   Classify(b.ComplianceGovernance),
		CreditRisk:       Classify(b.CreditBehavior),
		MarketRisk:       Classify(resilience),
		OperationalRisk:  Classify(b.DigitalOperational),
		LiquidityConcern: ClassifyLiquidity(liquidity),
	}
	p.OverallRiskLevel = OverallRisk(p.Dimensions())
	return p
}
