// internal/workers/passport/augment-passport-narrative/models.go
package augmentpassportnarrative

import "passport-workers/internal/scoring"

type Input struct {
	BusinessID string         `json:"businessId"`
	Passport   scoring.Result `json:"passport"`
	Inputs     scoring.Inputs `json:"inputs"`
}

type Output struct {
	BusinessID      string         `json:"businessId"`
	Passport        scoring.Result `json:"passport"`
	Augmented       bool           `json:"augmented"`
	NarrativeSource string         `json:"narrativeSource"` // "genai" or "rules"
}

const (
	SourceGenAI = "genai"
	SourceRules = "rules"
)
