package narrative

import (
	"context"
	"errors"
	"fmt"

	"passport-workers/internal/scoring"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiAugmenter calls Gemini directly through the Google GenAI SDK.
type GeminiAugmenter struct {
	generate func(ctx context.Context, prompt string) (string, error)
}

type GeminiConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
}

func NewGeminiAugmenter(ctx context.Context, cfg GeminiConfig) (*GeminiAugmenter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	temperature := float32(cfg.Temperature)
	genCfg := &genai.GenerateContentConfig{
		Temperature:      &temperature,
		MaxOutputTokens:  int32(cfg.MaxTokens),
		ResponseMIMEType: "application/json",
	}

	return &GeminiAugmenter{
		generate: func(ctx context.Context, prompt string) (string, error) {
			contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
			resp, err := client.Models.GenerateContent(ctx, model, contents, genCfg)
			if err != nil {
				return "", err
			}
			return resp.Text(), nil
		},
	}, nil
}

func (a *GeminiAugmenter) Augment(ctx context.Context, base scoring.Narrative, in scoring.Inputs) (scoring.Narrative, error) {
	text, err := a.generate(ctx, BuildPrompt(base, in))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return scoring.Narrative{}, ErrTimeout
		}
		return scoring.Narrative{}, fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}
	return ParseNarrative(text)
}
