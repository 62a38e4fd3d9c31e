// internal/workers/passport/store-passport-record/models.go
package storepassportrecord

import "passport-workers/internal/scoring"

type Input struct {
	BusinessID string         `json:"businessId"`
	PaymentID  string         `json:"paymentId,omitempty"`
	Action     string         `json:"action,omitempty"`
	Passport   scoring.Result `json:"passport"`
}

type Output struct {
	PassportID      string `json:"passportId"`
	BusinessID      string `json:"businessId"`
	StoredAt        string `json:"storedAt"`
	HistorySize     int    `json:"historySize"`
	PaymentConsumed bool   `json:"paymentConsumed"`
}
