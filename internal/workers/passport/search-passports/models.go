// internal/workers/passport/search-passports/models.go
package searchpassports

import "passport-workers/internal/models"

type Input struct {
	MinScore       *int   `json:"minScore,omitempty"`
	MaxScore       *int   `json:"maxScore,omitempty"`
	Sector         string `json:"sector,omitempty"`
	OverallRisk    string `json:"overallRisk,omitempty"`
	Interpretation string `json:"interpretation,omitempty"`
	From           int    `json:"from,omitempty"`
	Size           int    `json:"size,omitempty"`
}

type Output struct {
	Passports []models.PassportDocument `json:"passports"`
	Total     int64                     `json:"total"`
	From      int                       `json:"from"`
	Size      int                       `json:"size"`
	Took      int                       `json:"took"`
}
