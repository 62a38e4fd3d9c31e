// Package narrative provides text-generation backed implementations of
// scoring.NarrativeAugmenter.
package narrative

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"passport-workers/internal/scoring"
)

var (
	ErrTimeout         = errors.New("LLM_TIMEOUT")
	ErrSynthesisFailed = errors.New("LLM_SYNTHESIS_FAILED")
)

const systemPrompt = `You are a credit analyst preparing a Credit Passport for a Zambian small business.
Rewrite the draft narrative so a loan officer can read it quickly. Use ONLY the facts in the
draft and the business data. Do not change scores or risk levels. Keep partner names as given,
adding Zambian institutions only when clearly relevant.

Respond with a single JSON object and nothing else:
{"headline": string, "strengths": [string], "weaknesses": [string], "bank_concerns": [string],
 "recommendations": [string], "suggested_partners": [string]}`

// BuildPrompt renders the draft narrative and raw inputs into one prompt.
func BuildPrompt(base scoring.Narrative, in scoring.Inputs) string {
	draft, _ := json.MarshalIndent(base, "", "  ")
	data, _ := json.MarshalIndent(in, "", "  ")

	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\nDraft narrative:\n")
	b.Write(draft)
	b.WriteString("\n\nBusiness data:\n")
	b.Write(data)
	b.WriteString("\n")
	return b.String()
}

// ParseNarrative decodes model output, tolerating a fenced code block
// around the JSON object.
func ParseNarrative(text string) (scoring.Narrative, error) {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	if start, end := strings.Index(s, "{"), strings.LastIndex(s, "}"); start >= 0 && end > start {
		s = s[start : end+1]
	}

	var n scoring.Narrative
	if err := json.Unmarshal([]byte(s), &n); err != nil {
		return scoring.Narrative{}, fmt.Errorf("%w: decode narrative: %v", ErrSynthesisFailed, err)
	}
	n.Headline = strings.TrimSpace(n.Headline)
	return n, nil
}
