// internal/workers/passport/generate-credit-passport/models.go
package generatecreditpassport

import "passport-workers/internal/scoring"

type Input struct {
	BusinessID string         `json:"businessId"`
	Inputs     scoring.Inputs `json:"inputs"`
}

type Output struct {
	BusinessID string         `json:"businessId"`
	Passport   scoring.Result `json:"passport"`
}
