// internal/workers/passport/augment-passport-narrative/handler.go
package augmentpassportnarrative

import (
	"context"
	"encoding/json"
	"errors"

	apperrors "passport-workers/internal/common/errors"
	"passport-workers/internal/common/logger"
	"passport-workers/internal/common/metrics"
	"passport-workers/internal/narrative"
	"passport-workers/internal/scoring"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "augment-passport-narrative"
)

// Handler never fails a job because of the narrative provider: every
// provider problem falls back to the rule-based narrative.
type Handler struct {
	config     *Config
	engine     *scoring.Engine
	augmenter  scoring.NarrativeAugmenter
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
}

// NewHandler accepts a nil augmenter, which disables augmentation.
func NewHandler(config *Config, engine *scoring.Engine, augmenter scoring.NarrativeAugmenter, log logger.Logger) *Handler {
	if engine == nil {
		engine = scoring.NewEngine()
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		engine:     engine,
		augmenter:  augmenter,
		errHandler: apperrors.NewErrorHandler(log),
		logger:     log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errHandler.HandleJobError(context.Background(), client, job, apperrors.NewParseError(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output := h.execute(ctx, &input)
	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) *Output {
	passport := input.Passport
	if !passport.Narrative.Complete() {
		// Callers may send inputs only; score them so there is a draft to improve.
		passport = h.engine.Generate(input.Inputs)
	}

	n, augmented, err := scoring.Augment(ctx, h.augmenter, passport.Narrative, input.Inputs)
	if !augmented {
		reason := fallbackReason(h.augmenter, err)
		metrics.NarrativeFallbacks.WithLabelValues(reason).Inc()
		if err != nil {
			h.logger.Warn("narrative augmentation failed, using rule-based narrative", map[string]interface{}{
				"businessId": input.BusinessID,
				"reason":     reason,
				"error":      err.Error(),
			})
		}
	}
	passport.Narrative = n

	source := SourceRules
	if augmented {
		source = SourceGenAI
	}

	h.logger.Info("passport narrative ready", map[string]interface{}{
		"businessId": input.BusinessID,
		"source":     source,
	})

	return &Output{
		BusinessID:      input.BusinessID,
		Passport:        passport,
		Augmented:       augmented,
		NarrativeSource: source,
	}
}

func fallbackReason(aug scoring.NarrativeAugmenter, err error) string {
	switch {
	case aug == nil:
		return "disabled"
	case errors.Is(err, scoring.ErrIncompleteNarrative):
		return "incomplete"
	case errors.Is(err, narrative.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input), nil
}
