package scoring

// Inputs is the raw business signal set for one SME. Every field is
// optional; Normalize resolves absent and non-finite values to defaults.
type Inputs struct {
	BusinessIdentity   *BusinessIdentity   `json:"businessIdentity,omitempty"`
	Financials         *Financials         `json:"financials,omitempty"`
	CreditBehavior     *CreditBehavior     `json:"creditBehavior,omitempty"`
	Banking            *CreditBehavior     `json:"banking,omitempty"`
	Compliance         *Compliance         `json:"compliance,omitempty"`
	DigitalOperational *DigitalOperational `json:"digitalOperational,omitempty"`
	Behavioral         *Behavioral         `json:"behavioral,omitempty"`
}

type BusinessIdentity struct {
	Name   string `json:"name,omitempty"`
	Sector string `json:"sector,omitempty"`
}

type Financials struct {
	AnnualRevenue            []float64 `json:"annualRevenue,omitempty"`
	MonthlyRevenue           []float64 `json:"monthlyRevenue,omitempty"`
	ProfitMargin             *float64  `json:"profitMargin,omitempty"`
	CashflowStability        *float64  `json:"cashflowStability,omitempty"`
	CashConversionCycle      *float64  `json:"cashConversionCycle,omitempty"`
	CustomerConcentration    *float64  `json:"customerConcentration,omitempty"`
	DSCR                     *float64  `json:"dscr,omitempty"`
	EBITDAMargin             *float64  `json:"ebitdaMargin,omitempty"`
	NegativeBalanceFrequency *float64  `json:"negativeBalanceFrequency,omitempty"`
}

// CreditBehavior also decodes the legacy "banking" group. A nil
// SalesChannels means the field was not supplied; an empty slice means
// the business reported no channels.
type CreditBehavior struct {
	RepaymentHistory    *float64 `json:"repaymentHistory,omitempty"`
	RejectionHistory    *float64 `json:"rejectionHistory,omitempty"`
	OverdraftFrequency  *float64 `json:"overdraftFrequency,omitempty"`
	ChequeBounceHistory *float64 `json:"chequeBounceHistory,omitempty"`
	SalesChannels       []string `json:"salesChannels"`
}

type Compliance struct {
	TaxRegistration   *bool    `json:"taxRegistration,omitempty"`
	TaxClearance      *bool    `json:"taxClearance,omitempty"`
	AnnualReturns     *bool    `json:"annualReturns,omitempty"`
	BusinessInsurance *bool    `json:"businessInsurance,omitempty"`
	Licenses          []string `json:"licenses,omitempty"`
	PolicyCoverage    *float64 `json:"policyCoverage,omitempty"`
}

type DigitalOperational struct {
	DigitalFootprint     *float64 `json:"digitalFootprint,omitempty"`
	ERPUsage             *float64 `json:"erpUsage,omitempty"`
	DeliveryReliability  *float64 `json:"deliveryReliability,omitempty"`
	CustomerSatisfaction *float64 `json:"customerSatisfaction,omitempty"`
	SeasonalityImpact    *float64 `json:"seasonalityImpact,omitempty"`
	SupplyChainRisk      *float64 `json:"supplyChainRisk,omitempty"`
	CurrencyExposure     *float64 `json:"currencyExposure,omitempty"`
	ContinuityPlans      *float64 `json:"continuityPlans,omitempty"`
}

type Behavioral struct {
	ProfileCompletion *float64 `json:"profileCompletion,omitempty"`
	Engagement        *float64 `json:"engagement,omitempty"`
	Responsiveness    *float64 `json:"responsiveness,omitempty"`
	DataFreshness     *float64 `json:"dataFreshness,omitempty"`
}

// CategoryScore is a 0-100 sub-score with the factor values that produced it.
type CategoryScore struct {
	Score      float64            `json:"score"`
	Components map[string]float64 `json:"components"`
}

type Breakdown struct {
	FinancialStrength    float64 `json:"financialStrength"`
	ComplianceGovernance float64 `json:"complianceGovernance"`
	CreditBehavior       float64 `json:"creditBehavior"`
	DigitalOperational   float64 `json:"digitalOperational"`
	Behavioral           float64 `json:"behavioral"`
}

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

type RiskProfile struct {
	FinancialRisk    RiskLevel `json:"financial_risk"`
	ComplianceRisk   RiskLevel `json:"compliance_risk"`
	CreditRisk       RiskLevel `json:"credit_risk"`
	MarketRisk       RiskLevel `json:"market_risk"`
	OperationalRisk  RiskLevel `json:"operational_risk"`
	LiquidityConcern RiskLevel `json:"liquidity_concern"`
	OverallRiskLevel RiskLevel `json:"overall_risk_level"`
}

// Dimensions returns the six per-dimension levels, excluding the overall level.
func (p RiskProfile) Dimensions() []RiskLevel {
	return []RiskLevel{
		p.FinancialRisk,
		p.ComplianceRisk,
		p.CreditRisk,
		p.MarketRisk,
		p.OperationalRisk,
		p.LiquidityConcern,
	}
}

type RepaymentLabel string

const (
	RepaymentStrong   RepaymentLabel = "Strong"
	RepaymentModerate RepaymentLabel = "Moderate"
	RepaymentWeak     RepaymentLabel = "Weak"
)

type RepaymentCapacity struct {
	Label   RepaymentLabel `json:"label"`
	Score   float64        `json:"score"`
	Details string         `json:"details"`
}

type Narrative struct {
	Headline          string   `json:"headline"`
	Strengths         []string `json:"strengths"`
	Weaknesses        []string `json:"weaknesses"`
	BankConcerns      []string `json:"bank_concerns"`
	Recommendations   []string `json:"recommendations"`
	SuggestedPartners []string `json:"suggested_partners"`
}

// Complete reports whether n carries every section a passport must show.
func (n Narrative) Complete() bool {
	return n.Headline != "" && len(n.Recommendations) > 0 && len(n.SuggestedPartners) > 0
}

// Result is an immutable passport snapshot.
type Result struct {
	FundabilityScore  int               `json:"fundabilityScore"`
	Breakdown         Breakdown         `json:"breakdown"`
	Interpretation    string            `json:"interpretation"`
	RiskProfile       RiskProfile       `json:"riskProfile"`
	LiquidityIndex    float64           `json:"liquidityIndex"`
	RepaymentCapacity RepaymentCapacity `json:"repaymentCapacity"`
	ResilienceScore   float64           `json:"resilienceScore"`
	Narrative         Narrative         `json:"narrative"`
	Timestamp         string            `json:"timestamp"`
}
