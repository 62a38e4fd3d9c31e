// internal/models/passport.go
package models

import (
	"fmt"

	"passport-workers/internal/scoring"
)

// PassportDocument is the investor marketplace view of a passport. It
// carries the summary only, never the raw business inputs.
type PassportDocument struct {
	BusinessID       string  `json:"businessId"`
	PassportID       string  `json:"passportId,omitempty"`
	BusinessName     string  `json:"businessName,omitempty"`
	Sector           string  `json:"sector,omitempty"`
	FundabilityScore int     `json:"fundabilityScore"`
	Interpretation   string  `json:"interpretation"`
	OverallRisk      string  `json:"overallRisk"`
	LiquidityIndex   float64 `json:"liquidityIndex"`
	ResilienceScore  float64 `json:"resilienceScore"`
	RepaymentLabel   string  `json:"repaymentLabel"`
	Timestamp        string  `json:"timestamp"`
}

func NewPassportDocument(businessID, passportID string, identity scoring.BusinessIdentity, r scoring.Result) PassportDocument {
	return PassportDocument{
		BusinessID:       businessID,
		PassportID:       passportID,
		BusinessName:     identity.Name,
		Sector:           identity.Sector,
		FundabilityScore: r.FundabilityScore,
		Interpretation:   r.Interpretation,
		OverallRisk:      string(r.RiskProfile.OverallRiskLevel),
		LiquidityIndex:   r.LiquidityIndex,
		ResilienceScore:  r.ResilienceScore,
		RepaymentLabel:   string(r.RepaymentCapacity.Label),
		Timestamp:        r.Timestamp,
	}
}

// PassportRecord is one stored run in credit_passports.
type PassportRecord struct {
	ID         string         `json:"id"`
	BusinessID string         `json:"businessId"`
	PaymentID  string         `json:"paymentId,omitempty"`
	Passport   scoring.Result `json:"passport"`
	CreatedAt  string         `json:"createdAt"`
}

// Payment statuses in passport_payments.
const (
	PaymentSucceeded = "succeeded"
	PaymentPending   = "pending"
	PaymentFailed    = "failed"
)

type Payment struct {
	ID         string `json:"id"`
	BusinessID string `json:"businessId"`
	Action     string `json:"action"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
	Status     string `json:"status"`
}

type BusinessContact struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

func HistoryCacheKey(businessID string) string {
	return fmt.Sprintf("passport:history:%s", businessID)
}

// HistoryVersionKey is bumped on every stored run so in-flight history reads
// do not repopulate the cache with rows loaded before the write.
func HistoryVersionKey(businessID string) string {
	return fmt.Sprintf("passport:history:%s:version", businessID)
}

func EntitlementCacheKey(businessID string, action scoring.Action) string {
	return fmt.Sprintf("passport:entitlement:%s:%s", businessID, action)
}
