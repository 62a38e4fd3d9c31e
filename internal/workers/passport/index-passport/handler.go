// internal/workers/passport/index-passport/handler.go
package indexpassport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	apperrors "passport-workers/internal/common/errors"
	"passport-workers/internal/common/logger"
	"passport-workers/internal/common/validation"
	"passport-workers/internal/models"
	"passport-workers/internal/scoring"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const (
	TaskType = "index-passport"
)

var (
	ErrInvalidInput          = errors.New("INVALID_INPUT")
	ErrPassportSchemaInvalid = errors.New("PASSPORT_SCHEMA_INVALID")
	ErrIndexFailed           = errors.New("INDEX_FAILED")
	ErrSearchTimeout         = errors.New("SEARCH_TIMEOUT")
)

// Handler publishes the latest passport of a business to the investor
// marketplace index. The business id is the document id, so each business
// has exactly one searchable passport.
type Handler struct {
	config     *Config
	client     *elasticsearch.Client
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, client *elasticsearch.Client, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		client:     client,
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
		h.errHandler.HandleJobError(ctx, client, job, h.toStandardError(err))
		return
	}

	h.completeJob(ctx, client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if strings.TrimSpace(input.BusinessID) == "" {
		return nil, fmt.Errorf("%w: businessId is required", ErrInvalidInput)
	}

	// Investors must never see a half-built passport.
	check, err := validation.ValidatePassport(input.Passport)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPassportSchemaInvalid, err)
	}
	if !check.Valid {
		return nil, fmt.Errorf("%w: %s", ErrPassportSchemaInvalid, strings.Join(check.Messages(), "; "))
	}

	var identity scoring.BusinessIdentity
	if input.Business != nil {
		identity = *input.Business
	}
	doc := models.NewPassportDocument(input.BusinessID, input.PassportID, identity, input.Passport)

	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexFailed, err)
	}

	req := esapi.IndexRequest{
		Index:      h.config.Index,
		DocumentID: input.BusinessID,
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, h.client)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrSearchTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrIndexFailed, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		raw, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("%w: %s: %s", ErrIndexFailed, res.Status(), strings.TrimSpace(string(raw)))
	}

	var ack struct {
		ID      string `json:"_id"`
		Index   string `json:"_index"`
		Version int64  `json:"_version"`
		Result  string `json:"result"`
	}
	if err := json.NewDecoder(res.Body).Decode(&ack); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrIndexFailed, err)
	}

	h.logger.Info("passport indexed", map[string]interface{}{
		"businessId":       input.BusinessID,
		"passportId":       input.PassportID,
		"fundabilityScore": doc.FundabilityScore,
		"result":           ack.Result,
		"version":          ack.Version,
	})

	return &Output{
		DocumentID: ack.ID,
		Index:      ack.Index,
		Result:     ack.Result,
		Version:    ack.Version,
	}, nil
}

func (h *Handler) toStandardError(err error) *apperrors.StandardError {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return apperrors.NewInvalidInputError(err.Error())
	case errors.Is(err, ErrPassportSchemaInvalid):
		return apperrors.NewPassportSchemaInvalidError(err.Error())
	case errors.Is(err, ErrSearchTimeout):
		return apperrors.NewSearchTimeoutError(h.config.Index)
	case errors.Is(err, ErrIndexFailed):
		return apperrors.NewIndexFailedError(h.config.Index, err)
	default:
		return apperrors.NewInternalError(err)
	}
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
