package augmentpassportnarrative

import (
	"context"
	"errors"
	"testing"
	"time"

	"passport-workers/internal/common/logger"
	"passport-workers/internal/common/metrics"
	"passport-workers/internal/narrative"
	"passport-workers/internal/scoring"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type stubAugmenter struct {
	narrative scoring.Narrative
	err       error
	calls     int
}

func (s *stubAugmenter) Augment(_ context.Context, _ scoring.Narrative, _ scoring.Inputs) (scoring.Narrative, error) {
	s.calls++
	return s.narrative, s.err
}

func createTestHandler(t *testing.T, aug scoring.NarrativeAugmenter) *Handler {
	return NewHandler(&Config{Timeout: time.Second}, nil, aug, logger.NewTestLogger(t))
}

func createInput() *Input {
	in := scoring.Inputs{BusinessIdentity: &scoring.BusinessIdentity{Name: "Kalulu Agro"}}
	return &Input{
		BusinessID: "biz-100",
		Passport:   scoring.Generate(in),
		Inputs:     in,
	}
}

func completeNarrative() scoring.Narrative {
	return scoring.Narrative{
		Headline:          "Kalulu Agro is bankable with support.",
		Strengths:         []string{"Diversified buyers."},
		Recommendations:   []string{"File annual returns with PACRA."},
		SuggestedPartners: []string{"Citizens Economic Empowerment Commission (CEEC)"},
	}
}

func fallbacks(reason string) float64 {
	return testutil.ToFloat64(metrics.NarrativeFallbacks.WithLabelValues(reason))
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_UsesAugmentedNarrative(t *testing.T) {
	aug := &stubAugmenter{narrative: completeNarrative()}
	input := createInput()

	output, err := createTestHandler(t, aug).Execute(context.Background(), input)
	require.NoError(t, err)

	assert.True(t, output.Augmented)
	assert.Equal(t, SourceGenAI, output.NarrativeSource)
	assert.Equal(t, "Kalulu Agro is bankable with support.", output.Passport.Narrative.Headline)
	assert.Equal(t, []string{}, output.Passport.Narrative.BankConcerns)
	assert.Equal(t, input.Passport.FundabilityScore, output.Passport.FundabilityScore)
	assert.Equal(t, 1, aug.calls)
}

func TestHandler_Execute_FallsBack(t *testing.T) {
	tests := []struct {
		name      string
		augmenter scoring.NarrativeAugmenter
		reason    string
	}{
		{"no provider configured", nil, "disabled"},
		{"provider timeout", &stubAugmenter{err: narrative.ErrTimeout}, "timeout"},
		{"provider error", &stubAugmenter{err: errors.New("quota exceeded")}, "error"},
		{"incomplete output", &stubAugmenter{narrative: scoring.Narrative{Headline: "just this"}}, "incomplete"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := createInput()
			before := fallbacks(tt.reason)

			output, err := createTestHandler(t, tt.augmenter).Execute(context.Background(), input)
			require.NoError(t, err)

			assert.False(t, output.Augmented)
			assert.Equal(t, SourceRules, output.NarrativeSource)
			assert.Equal(t, input.Passport.Narrative, output.Passport.Narrative)
			assert.Equal(t, before+1, fallbacks(tt.reason))
		})
	}
}

func TestHandler_Execute_ScoresWhenPassportMissing(t *testing.T) {
	input := &Input{BusinessID: "biz-101", Inputs: scoring.Inputs{}}

	output, err := createTestHandler(t, nil).Execute(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, 59, output.Passport.FundabilityScore)
	assert.True(t, output.Passport.Narrative.Complete())
}
