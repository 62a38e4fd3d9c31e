package scoring

import (
	"context"
	"encoding/json"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// ==========================
// Test Helper Functions
// ==========================

func num(v float64) *float64 { return &v }

func yes() *bool { v := true; return &v }

var fixedTime = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func createTestEngine() *Engine {
	return NewEngine(WithClock(func() time.Time { return fixedTime }))
}

func createStrongSME() Inputs {
	return Inputs{
		BusinessIdentity: &BusinessIdentity{Name: "Kafue Agro Supplies", Sector: "agriculture"},
		Financials: &Financials{
			ProfitMargin:      num(25),
			CashflowStability: num(90),
		},
		CreditBehavior: &CreditBehavior{RepaymentHistory: num(95)},
		Compliance: &Compliance{
			TaxClearance:      yes(),
			TaxRegistration:   yes(),
			AnnualReturns:     yes(),
			BusinessInsurance: yes(),
			Licenses:          []string{"trade"},
		},
		DigitalOperational: &DigitalOperational{
			DigitalFootprint: num(90),
			ERPUsage:         num(85),
		},
	}
}

func createDistressedSME() Inputs {
	return Inputs{
		Financials: &Financials{
			CashConversionCycle:      num(120),
			NegativeBalanceFrequency: num(9),
		},
		CreditBehavior: &CreditBehavior{
			RejectionHistory:    num(5),
			OverdraftFrequency:  num(4),
			ChequeBounceHistory: num(3),
			RepaymentHistory:    num(40),
		},
	}
}

// createSyntheticInputs spans the input space for property tests.
func createSyntheticInputs() map[string]Inputs {
	nan := math.NaN()
	inf := math.Inf(1)
	return map[string]Inputs{
		"empty":      {},
		"strong":     createStrongSME(),
		"distressed": createDistressedSME(),
		"growing revenue": {
			Financials: &Financials{AnnualRevenue: []float64{120000, 150000, 190000}, ProfitMargin: num(12)},
		},
		"shrinking revenue": {
			Financials: &Financials{MonthlyRevenue: []float64{9000, 8000, 7500, 7000}, ProfitMargin: num(-15)},
		},
		"compliance only": {
			Compliance: &Compliance{TaxRegistration: yes(), AnnualReturns: yes(), PolicyCoverage: num(80)},
		},
		"digital leader": {
			DigitalOperational: &DigitalOperational{
				DigitalFootprint: num(100), ERPUsage: num(100), DeliveryReliability: num(95), CustomerSatisfaction: num(92),
			},
			Behavioral: &Behavioral{ProfileCompletion: num(100), Engagement: num(90), Responsiveness: num(85), DataFreshness: num(70)},
		},
		"exposed to shocks": {
			Financials: &Financials{CustomerConcentration: num(90)},
			DigitalOperational: &DigitalOperational{
				SeasonalityImpact: num(80), SupplyChainRisk: num(75), CurrencyExposure: num(95), ContinuityPlans: num(5),
			},
		},
		"non-finite everywhere": {
			Financials: &Financials{
				AnnualRevenue: []float64{nan, inf}, ProfitMargin: num(nan), CashflowStability: num(inf),
				DSCR: num(nan), EBITDAMargin: num(-inf),
			},
			CreditBehavior: &CreditBehavior{RepaymentHistory: num(nan), RejectionHistory: num(inf)},
			Behavioral:     &Behavioral{Engagement: num(nan)},
		},
		"extreme magnitudes": {
			Financials: &Financials{
				ProfitMargin: num(1e308), CashflowStability: num(-1e308), CashConversionCycle: num(-1e308),
				DSCR: num(1e308), EBITDAMargin: num(-1e308), NegativeBalanceFrequency: num(1e308),
			},
			CreditBehavior: &CreditBehavior{RepaymentHistory: num(1e9), OverdraftFrequency: num(-3)},
		},
		"no sales channels": {
			CreditBehavior: &CreditBehavior{SalesChannels: []string{}},
			Financials:     &Financials{ProfitMargin: num(0), CashflowStability: num(40)},
		},
		"banking alias": {
			Banking: &CreditBehavior{RepaymentHistory: num(88), SalesChannels: []string{"retail", "online", "wholesale"}},
		},
	}
}

// ==========================
// Scenario Tests
// ==========================

func TestGenerate_MinimalData(t *testing.T) {
	result := createTestEngine().Generate(Inputs{})

	assert.InDelta(t, 55, result.FundabilityScore, 5)
	assert.Equal(t, 59, result.FundabilityScore)
	assert.Equal(t, "Medium Fundability (Bankable with support)", result.Interpretation)
	assert.Equal(t, RiskMedium, result.RiskProfile.OverallRiskLevel)

	assert.InDelta(t, 55.5, result.Breakdown.FinancialStrength, 1e-9)
	assert.InDelta(t, 51, result.Breakdown.ComplianceGovernance, 1e-9)
	assert.InDelta(t, 80, result.Breakdown.CreditBehavior, 1e-9)
	assert.InDelta(t, 55, result.Breakdown.DigitalOperational, 1e-9)
	assert.InDelta(t, 55, result.Breakdown.Behavioral, 1e-9)

	assert.InDelta(t, 6.4, result.LiquidityIndex, 1e-9)
	assert.InDelta(t, 59.25, result.ResilienceScore, 1e-9)
	assert.Equal(t, RepaymentModerate, result.RepaymentCapacity.Label)
	assert.InDelta(t, 7.4, result.RepaymentCapacity.Score, 1e-9)

	assert.True(t, result.Narrative.Complete())
	assert.Equal(t, "2026-03-14T09:30:00Z", result.Timestamp)
}

func TestGenerate_StrongSME(t *testing.T) {
	result := createTestEngine().Generate(createStrongSME())

	assert.GreaterOrEqual(t, result.FundabilityScore, 80)
	assert.Contains(t, []string{"High Fundability", "Very High Fundability"}, result.Interpretation)
	assert.Equal(t, RiskLow, result.RiskProfile.FinancialRisk)
	assert.Equal(t, RiskLow, result.RiskProfile.ComplianceRisk)
	assert.Equal(t, RiskLow, result.RiskProfile.CreditRisk)
	assert.Contains(t, result.Narrative.Strengths, "Strong revenue traction and healthy financial fundamentals.")
	assert.Contains(t, result.Narrative.Headline, "Kafue Agro Supplies")
}

func TestGenerate_DistressedSME(t *testing.T) {
	result := createTestEngine().Generate(createDistressedSME())

	assert.Equal(t, RiskHigh, result.RiskProfile.CreditRisk)
	assert.Equal(t, RiskHigh, result.RiskProfile.LiquidityConcern)
	assert.Less(t, result.FundabilityScore, 50)
	assert.InDelta(t, 30, result.Breakdown.CreditBehavior, 1e-9)
	assert.Less(t, result.LiquidityIndex, 5.0)
	assert.Contains(t, result.Narrative.BankConcerns,
		"Short-term liquidity is tight; lenders will scrutinise cash buffers and working capital.")
}

func TestGenerate_ExactlyTwoHighDimensions(t *testing.T) {
	in := createDistressedSME()
	in.Compliance = &Compliance{
		TaxRegistration: yes(), TaxClearance: yes(), AnnualReturns: yes(), BusinessInsurance: yes(),
		Licenses: []string{"trade"},
	}

	result := createTestEngine().Generate(in)

	high := 0
	for _, level := range result.RiskProfile.Dimensions() {
		if level == RiskHigh {
			high++
		}
	}
	require.Equal(t, 2, high)
	assert.Equal(t, RiskLow, result.RiskProfile.ComplianceRisk)
	assert.Equal(t, RiskHigh, result.RiskProfile.OverallRiskLevel)
}

// ==========================
// Property Tests
// ==========================

func TestGenerate_Deterministic(t *testing.T) {
	engine := createTestEngine()
	for name, in := range createSyntheticInputs() {
		t.Run(name, func(t *testing.T) {
			first := engine.Generate(in)
			second := engine.Generate(in)
			assert.Equal(t, first, second)
		})
	}
}

func TestGenerate_DeterministicIgnoringTimestamp(t *testing.T) {
	first := Generate(createStrongSME())
	second := Generate(createStrongSME())

	first.Timestamp, second.Timestamp = "", ""
	assert.Equal(t, first, second)
}

func TestGenerate_Bounded(t *testing.T) {
	engine := createTestEngine()
	for name, in := range createSyntheticInputs() {
		t.Run(name, func(t *testing.T) {
			r := engine.Generate(in)

			assert.GreaterOrEqual(t, r.FundabilityScore, 0)
			assert.LessOrEqual(t, r.FundabilityScore, 100)
			for _, s := range r.Breakdown.Scores() {
				assert.False(t, math.IsNaN(s))
				assert.GreaterOrEqual(t, s, 0.0)
				assert.LessOrEqual(t, s, 100.0)
			}
			assert.GreaterOrEqual(t, r.LiquidityIndex, 0.0)
			assert.LessOrEqual(t, r.LiquidityIndex, 10.0)
			assert.GreaterOrEqual(t, r.ResilienceScore, 0.0)
			assert.LessOrEqual(t, r.ResilienceScore, 100.0)
			assert.GreaterOrEqual(t, r.RepaymentCapacity.Score, 0.0)
			assert.LessOrEqual(t, r.RepaymentCapacity.Score, 10.0)
			assert.True(t, r.Narrative.Complete())
		})
	}
}

func TestFinancialStrength_MonotonicInProfitMargin(t *testing.T) {
	previous := -1.0
	for pm := 0.0; pm <= 20.0; pm += 0.5 {
		in := Inputs{Financials: &Financials{
			ProfitMargin:      num(pm),
			CashflowStability: num(62),
			AnnualRevenue:     []float64{10, 12, 11},
		}}
		got := FinancialStrength(Normalize(in)).Score
		assert.GreaterOrEqual(t, got, previous, "profit margin %.1f", pm)
		previous = got
	}
}

func TestFundabilityScore_WeightConservation(t *testing.T) {
	var sum float64
	for _, w := range CategoryWeights() {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-12)

	inputs := createSyntheticInputs()
	require.GreaterOrEqual(t, len(inputs), 10)

	engine := createTestEngine()
	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			r := engine.Generate(in)
			b := r.Breakdown
			expected := math.Round(float64(WeightFinancial*b.FinancialStrength) +
				float64(WeightCompliance*b.ComplianceGovernance) +
				float64(WeightCredit*b.CreditBehavior) +
				float64(WeightDigital*b.DigitalOperational) +
				float64(WeightBehavioral*b.Behavioral))
			assert.Equal(t, int(expected), r.FundabilityScore)
		})
	}
}

func TestGenerate_ConcurrentCallsAgree(t *testing.T) {
	engine := createTestEngine()
	in := createStrongSME()
	want := engine.Generate(in)

	var wg sync.WaitGroup
	results := make([]Result, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = engine.Generate(in)
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, want, got)
	}
}

// ==========================
// Contract Tests
// ==========================

func TestInputs_DecodeFromJSON(t *testing.T) {
	payload := `{
		"businessIdentity": {"name": "Lusaka Print Hub", "sector": "services"},
		"financials": {"annualRevenue": [100, 90], "profitMargin": 25, "cashflowStability": 90},
		"banking": {"repaymentHistory": 95, "salesChannels": ["shop", "whatsapp"]},
		"compliance": {"taxClearance": true, "licenses": ["trade"]}
	}`

	var in Inputs
	require.NoError(t, json.Unmarshal([]byte(payload), &in))

	n := Normalize(in)
	assert.Equal(t, "Lusaka Print Hub", n.Name)
	assert.Equal(t, 95.0, n.RepaymentHistory)
	assert.Equal(t, 2.0, n.SalesChannelCount)
	assert.True(t, n.TaxClearance)
	assert.True(t, n.HasLicenses)
	assert.Equal(t, []float64{100, 90}, n.AnnualRevenue)
}

func TestResult_EncodesWireNames(t *testing.T) {
	data, err := json.Marshal(createTestEngine().Generate(Inputs{}))
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))

	for _, key := range []string{"fundabilityScore", "breakdown", "interpretation", "riskProfile",
		"liquidityIndex", "repaymentCapacity", "resilienceScore", "narrative", "timestamp"} {
		assert.Contains(t, decoded, key)
	}

	risk := decoded["riskProfile"].(map[string]interface{})
	assert.Equal(t, "medium", risk["overall_risk_level"])
	assert.Contains(t, risk, "liquidity_concern")

	narrative := decoded["narrative"].(map[string]interface{})
	for _, key := range []string{"headline", "strengths", "weaknesses", "bank_concerns", "recommendations", "suggested_partners"} {
		assert.Contains(t, narrative, key)
		if key != "headline" {
			assert.NotNil(t, narrative[key], key)
		}
	}
}

// ==========================
// Augmentation Tests
// ==========================

type stubAugmenter struct {
	narrative Narrative
	err       error
}

func (s stubAugmenter) Augment(_ context.Context, _ Narrative, _ Inputs) (Narrative, error) {
	return s.narrative, s.err
}

func TestGenerateAugmented(t *testing.T) {
	rich := Narrative{
		Headline:          "A well-run agro supplier ready for working-capital finance.",
		Strengths:         []string{"Consistent margins"},
		Recommendations:   []string{"Approach two banks"},
		SuggestedPartners: []string{"Commercial bank SME lending desks"},
	}

	tests := []struct {
		name          string
		augmenter     NarrativeAugmenter
		wantAugmented bool
		wantErr       bool
	}{
		{name: "no augmenter configured", augmenter: nil},
		{name: "provider error", augmenter: stubAugmenter{err: assert.AnError}, wantErr: true},
		{name: "incomplete narrative", augmenter: stubAugmenter{narrative: Narrative{Headline: "only a headline"}}, wantErr: true},
		{name: "complete narrative", augmenter: stubAugmenter{narrative: rich}, wantAugmented: true},
	}

	engine := createTestEngine()
	base := engine.Generate(createStrongSME())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, augmented, err := engine.GenerateAugmented(context.Background(), createStrongSME(), tt.augmenter)

			assert.Equal(t, tt.wantAugmented, augmented)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.True(t, r.Narrative.Complete())
			assert.Equal(t, base.FundabilityScore, r.FundabilityScore)

			if tt.wantAugmented {
				assert.Equal(t, rich.Headline, r.Narrative.Headline)
				assert.NotNil(t, r.Narrative.Weaknesses)
				assert.NotNil(t, r.Narrative.BankConcerns)
			} else {
				assert.Equal(t, base.Narrative, r.Narrative)
			}
		})
	}
}
