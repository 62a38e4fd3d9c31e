// internal/workers/passport/index-passport/models.go
package indexpassport

import "passport-workers/internal/scoring"

type Input struct {
	BusinessID string                    `json:"businessId"`
	PassportID string                    `json:"passportId,omitempty"`
	Business   *scoring.BusinessIdentity `json:"business,omitempty"`
	Passport   scoring.Result            `json:"passport"`
}

type Output struct {
	DocumentID string `json:"documentId"`
	Index      string `json:"index"`
	Result     string `json:"result"`
	Version    int64  `json:"version"`
}
