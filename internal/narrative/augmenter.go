package narrative

import (
	"context"
	"fmt"
	"time"

	"passport-workers/internal/common/config"
	"passport-workers/internal/scoring"
)

// New builds the augmenter selected by cfg.Provider. An empty provider
// returns a nil augmenter, which keeps the rule-based narrative.
func New(ctx context.Context, cfg config.GenAIConfig) (scoring.NarrativeAugmenter, error) {
	switch cfg.Provider {
	case "":
		return nil, nil
	case "http":
		return NewHTTPAugmenter(HTTPConfig{
			BaseURL:     cfg.BaseURL,
			APIKey:      cfg.APIKey,
			Timeout:     time.Duration(cfg.Timeout) * time.Millisecond,
			MaxRetries:  cfg.MaxRetries,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		}), nil
	case "gemini":
		return NewGeminiAugmenter(ctx, GeminiConfig{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		})
	default:
		return nil, fmt.Errorf("unsupported genai provider %q", cfg.Provider)
	}
}
