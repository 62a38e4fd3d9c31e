package validation

import (
	"encoding/json"
	"testing"
	"time"

	"passport-workers/internal/scoring"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generatedPassport(t *testing.T) map[string]interface{} {
	t.Helper()
	engine := scoring.NewEngine(scoring.WithClock(func() time.Time {
		return time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	}))
	raw, err := json.Marshal(engine.Generate(scoring.Inputs{}))
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &doc))
	return doc
}

func TestValidatePassport_GeneratedResultIsValid(t *testing.T) {
	res, err := ValidatePassport(scoring.Generate(scoring.Inputs{}))
	require.NoError(t, err)
	assert.True(t, res.Valid, res.Messages())
}

func TestValidatePassport_RejectsTamperedDocuments(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(doc map[string]interface{})
		field  string
	}{
		{
			name:   "score above range",
			mutate: func(doc map[string]interface{}) { doc["fundabilityScore"] = 140 },
			field:  "fundabilityScore",
		},
		{
			name:   "unknown interpretation",
			mutate: func(doc map[string]interface{}) { doc["interpretation"] = "Excellent" },
			field:  "interpretation",
		},
		{
			name: "unknown risk level",
			mutate: func(doc map[string]interface{}) {
				doc["riskProfile"].(map[string]interface{})["credit_risk"] = "extreme"
			},
			field: "riskProfile.credit_risk",
		},
		{
			name: "no partners",
			mutate: func(doc map[string]interface{}) {
				doc["narrative"].(map[string]interface{})["suggested_partners"] = []interface{}{}
			},
			field: "narrative.suggested_partners",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := generatedPassport(t)
			tt.mutate(doc)

			res, err := ValidatePassport(doc)
			require.NoError(t, err)
			assert.False(t, res.Valid)

			var fields []string
			for _, e := range res.Errors {
				fields = append(fields, e.Field)
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestValidatePassport_MissingFields(t *testing.T) {
	res, err := ValidatePassport([]byte(`{"fundabilityScore": 50}`))
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.NotEmpty(t, res.Messages())
}

func TestNewValidator_InvalidSchema(t *testing.T) {
	_, err := NewValidator(`{"type": 12}`)
	assert.Error(t, err)
}
