// internal/workers/passport/get-passport-history/models.go
package getpassporthistory

import "passport-workers/internal/scoring"

const (
	SourceCache    = "cache"
	SourceDatabase = "database"
)

type Input struct {
	BusinessID string `json:"businessId"`
	Limit      int    `json:"limit,omitempty"`
}

// Output lists passports newest first. ScoreChange compares the two most
// recent runs and is absent with fewer than two.
type Output struct {
	BusinessID  string           `json:"businessId"`
	Passports   []scoring.Result `json:"passports"`
	Count       int              `json:"count"`
	Source      string           `json:"source"`
	ScoreChange *int             `json:"scoreChange,omitempty"`
}
