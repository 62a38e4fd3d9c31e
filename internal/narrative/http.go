package narrative

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	commonhttp "passport-workers/internal/common/http"
	"passport-workers/internal/scoring"
)

// HTTPAugmenter calls the platform's GenAI gateway.
type HTTPAugmenter struct {
	client      *commonhttp.Client
	url         string
	maxTokens   int
	temperature float64
}

type HTTPConfig struct {
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	MaxRetries  int
	MaxTokens   int
	Temperature float64
}

func NewHTTPAugmenter(cfg HTTPConfig) *HTTPAugmenter {
	opts := []commonhttp.Option{commonhttp.WithRetries(cfg.MaxRetries)}
	if cfg.APIKey != "" {
		opts = append(opts, commonhttp.WithHeader("Authorization", "Bearer "+cfg.APIKey))
	}
	return &HTTPAugmenter{
		client:      commonhttp.NewClient(cfg.Timeout, opts...),
		url:         strings.TrimRight(cfg.BaseURL, "/") + "/api/ai/generate",
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

type generateRequest struct {
	Prompt         string  `json:"prompt"`
	MaxTokens      int     `json:"max_tokens"`
	Temperature    float64 `json:"temperature"`
	ResponseFormat string  `json:"response_format"`
}

type generateResponse struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

func (a *HTTPAugmenter) Augment(ctx context.Context, base scoring.Narrative, in scoring.Inputs) (scoring.Narrative, error) {
	var resp generateResponse
	err := a.client.PostJSON(ctx, a.url, generateRequest{
		Prompt:         BuildPrompt(base, in),
		MaxTokens:      a.maxTokens,
		Temperature:    a.temperature,
		ResponseFormat: "json",
	}, &resp)
	if err != nil {
		if errors.Is(err, commonhttp.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
			return scoring.Narrative{}, ErrTimeout
		}
		return scoring.Narrative{}, fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}

	if strings.TrimSpace(resp.Text) == "" {
		return scoring.Narrative{}, fmt.Errorf("%w: empty response", ErrSynthesisFailed)
	}
	return ParseNarrative(resp.Text)
}
