// internal/workers/passport/generate-credit-passport/handler.go
package generatecreditpassport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	apperrors "passport-workers/internal/common/errors"
	"passport-workers/internal/common/logger"
	"passport-workers/internal/common/metrics"
	"passport-workers/internal/common/validation"
	"passport-workers/internal/scoring"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "generate-credit-passport"
)

var (
	ErrPassportSchemaInvalid = errors.New("PASSPORT_SCHEMA_INVALID")
)

type Handler struct {
	config     *Config
	engine     *scoring.Engine
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, engine *scoring.Engine, log logger.Logger) *Handler {
	if engine == nil {
		engine = scoring.NewEngine()
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		engine:     engine,
		errHandler: apperrors.NewErrorHandler(log),
		logger:     log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errHandler.HandleJobError(ctx, client, job, apperrors.NewParseError(err))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.errHandler.HandleJobError(ctx, client, job, toStandardError(err))
		return
	}

	h.completeJob(ctx, client, job, output)
}

func (h *Handler) execute(_ context.Context, input *Input) (*Output, error) {
	passport := h.engine.Generate(input.Inputs)

	res, err := validation.ValidatePassport(passport)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPassportSchemaInvalid, err)
	}
	if !res.Valid {
		return nil, fmt.Errorf("%w: %s", ErrPassportSchemaInvalid, strings.Join(res.Messages(), "; "))
	}

	metrics.PassportsGenerated.WithLabelValues(passport.Interpretation).Inc()
	metrics.FundabilityScore.Observe(float64(passport.FundabilityScore))

	h.logger.Info("credit passport generated", map[string]interface{}{
		"businessId":       input.BusinessID,
		"fundabilityScore": passport.FundabilityScore,
		"interpretation":   passport.Interpretation,
		"overallRisk":      passport.RiskProfile.OverallRiskLevel,
	})

	return &Output{
		BusinessID: input.BusinessID,
		Passport:   passport,
	}, nil
}

func toStandardError(err error) *apperrors.StandardError {
	if errors.Is(err, ErrPassportSchemaInvalid) {
		return apperrors.NewPassportSchemaInvalidError(err.Error())
	}
	return apperrors.NewInternalError(err)
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
