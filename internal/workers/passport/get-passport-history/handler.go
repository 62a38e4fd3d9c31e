// internal/workers/passport/get-passport-history/handler.go
package getpassporthistory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"passport-workers/internal/common/database"
	apperrors "passport-workers/internal/common/errors"
	"passport-workers/internal/common/logger"
	"passport-workers/internal/models"
	"passport-workers/internal/scoring"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/redis/go-redis/v9"
)

const (
	TaskType = "get-passport-history"
)

var (
	ErrInvalidInput       = errors.New("INVALID_INPUT")
	ErrHistoryQueryFailed = errors.New("HISTORY_QUERY_FAILED")
)

const historyQuery = `SELECT passport FROM credit_passports
	WHERE business_id = $1
	ORDER BY created_at DESC
	LIMIT $2`

type Handler struct {
	config     *Config
	db         *sql.DB
	redis      redis.Cmdable
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, db *sql.DB, rdb redis.Cmdable, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		db:         db,
		redis:      rdb,
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

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if strings.TrimSpace(input.BusinessID) == "" {
		return nil, fmt.Errorf("%w: businessId is required", ErrInvalidInput)
	}
	if input.Limit < 0 {
		return nil, fmt.Errorf("%w: limit must not be negative", ErrInvalidInput)
	}
	limit := input.Limit
	if limit == 0 || limit > h.config.HistoryLimit {
		limit = h.config.HistoryLimit
	}

	// The cache always holds the full history so any limit can be served from it.
	cacheKey := models.HistoryCacheKey(input.BusinessID)
	var passports []scoring.Result
	source := SourceCache
	hit, err := database.GetJSON(ctx, h.redis, cacheKey, &passports)
	if err != nil {
		h.logger.Warn("history cache read failed", map[string]interface{}{
			"key":   cacheKey,
			"error": err.Error(),
		})
	}
	if !hit {
		source = SourceDatabase
		versionKey := models.HistoryVersionKey(input.BusinessID)
		version, verr := database.Version(ctx, h.redis, versionKey)
		passports, err = h.query(ctx, input.BusinessID)
		if err != nil {
			return nil, err
		}
		if verr == nil {
			h.fill(ctx, cacheKey, versionKey, version, passports)
		}
	}

	if len(passports) > limit {
		passports = passports[:limit]
	}

	output := &Output{
		BusinessID: input.BusinessID,
		Passports:  passports,
		Count:      len(passports),
		Source:     source,
	}
	if len(passports) >= 2 {
		change := passports[0].FundabilityScore - passports[1].FundabilityScore
		output.ScoreChange = &change
	}

	h.logger.Info("passport history loaded", map[string]interface{}{
		"businessId": input.BusinessID,
		"count":      output.Count,
		"source":     source,
	})
	return output, nil
}

// fill caches passports unless a run was stored after version was read.
func (h *Handler) fill(ctx context.Context, cacheKey, versionKey, version string, passports []scoring.Result) {
	written, err := database.SetJSONIfVersion(ctx, h.redis, cacheKey, versionKey, version, passports, h.config.CacheTTL)
	if err != nil {
		h.logger.Warn("history cache write failed", map[string]interface{}{
			"key":   cacheKey,
			"error": err.Error(),
		})
		return
	}
	if !written {
		h.logger.Debug("history changed during read, cache not filled", map[string]interface{}{
			"key": cacheKey,
		})
	}
}

func (h *Handler) query(ctx context.Context, businessID string) ([]scoring.Result, error) {
	rows, err := h.db.QueryContext(ctx, historyQuery, businessID, h.config.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHistoryQueryFailed, err)
	}
	defer rows.Close()

	passports := []scoring.Result{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", ErrHistoryQueryFailed, err)
		}
		var r scoring.Result
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, fmt.Errorf("%w: decode stored passport: %v", ErrHistoryQueryFailed, err)
		}
		passports = append(passports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHistoryQueryFailed, err)
	}
	return passports, nil
}

func toStandardError(err error) *apperrors.StandardError {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return apperrors.NewInvalidInputError(err.Error())
	case errors.Is(err, ErrHistoryQueryFailed):
		return apperrors.NewHistoryQueryFailedError(err)
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
