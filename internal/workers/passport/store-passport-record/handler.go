// internal/workers/passport/store-passport-record/handler.go
package storepassportrecord

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"passport-workers/internal/common/database"
	apperrors "passport-workers/internal/common/errors"
	"passport-workers/internal/common/logger"
	"passport-workers/internal/common/validation"
	"passport-workers/internal/models"
	"passport-workers/internal/scoring"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	TaskType = "store-passport-record"
)

var (
	ErrInvalidInput          = errors.New("INVALID_INPUT")
	ErrPassportSchemaInvalid = errors.New("PASSPORT_SCHEMA_INVALID")
	ErrPaymentRequired       = errors.New("PAYMENT_REQUIRED")
	ErrPassportStoreFailed   = errors.New("PASSPORT_STORE_FAILED")
)

// Handler stores one passport run, consumes the payment that paid for it
// and prunes the business history to the newest HistoryLimit runs, all in
// one transaction.
type Handler struct {
	config     *Config
	db         *sql.DB
	redis      redis.Cmdable
	now        func() time.Time
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, db *sql.DB, rdb redis.Cmdable, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		db:         db,
		redis:      rdb,
		now:        time.Now,
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
		h.errHandler.HandleJobError(ctx, client, job, toStandardError(input, err))
		return
	}

	h.completeJob(ctx, client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if strings.TrimSpace(input.BusinessID) == "" {
		return nil, fmt.Errorf("%w: businessId is required", ErrInvalidInput)
	}
	action := scoring.ActionGenerate
	if input.Action != "" {
		a, err := scoring.ParseAction(input.Action)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		action = a
	}

	res, err := validation.ValidatePassport(input.Passport)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPassportSchemaInvalid, err)
	}
	if !res.Valid {
		return nil, fmt.Errorf("%w: %s", ErrPassportSchemaInvalid, strings.Join(res.Messages(), "; "))
	}

	passportJSON, err := json.Marshal(input.Passport)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal passport: %v", ErrPassportStoreFailed, err)
	}

	passportID := uuid.New().String()
	storedAt := h.now().UTC()

	historySize, err := h.store(ctx, input, action, passportID, passportJSON, storedAt)
	if err != nil {
		return nil, err
	}

	h.audit(ctx, input, passportID, storedAt)
	h.invalidate(ctx, input.BusinessID, action)

	h.logger.Info("credit passport stored", map[string]interface{}{
		"passportId":       passportID,
		"businessId":       input.BusinessID,
		"paymentId":        input.PaymentID,
		"fundabilityScore": input.Passport.FundabilityScore,
		"historySize":      historySize,
	})

	return &Output{
		PassportID:      passportID,
		BusinessID:      input.BusinessID,
		StoredAt:        storedAt.Format(time.RFC3339),
		HistorySize:     historySize,
		PaymentConsumed: input.PaymentID != "",
	}, nil
}

func (h *Handler) store(ctx context.Context, input *Input, action scoring.Action, passportID string, passportJSON []byte, storedAt time.Time) (int, error) {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: begin: %v", ErrPassportStoreFailed, err)
	}
	defer tx.Rollback() //nolint:errcheck

	paymentID := sql.NullString{String: input.PaymentID, Valid: input.PaymentID != ""}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO credit_passports (
			id, business_id, fundability_score, interpretation,
			overall_risk, passport, payment_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		passportID,
		input.BusinessID,
		input.Passport.FundabilityScore,
		input.Passport.Interpretation,
		string(input.Passport.RiskProfile.OverallRiskLevel),
		passportJSON,
		paymentID,
		storedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("%w: insert failed: %v", ErrPassportStoreFailed, err)
	}

	if paymentID.Valid {
		result, err := tx.ExecContext(ctx, `
			UPDATE passport_payments SET consumed_at = $1
			WHERE id = $2 AND business_id = $3 AND action = $4
				AND status = 'succeeded' AND consumed_at IS NULL`,
			storedAt, input.PaymentID, input.BusinessID, string(action),
		)
		if err != nil {
			return 0, fmt.Errorf("%w: consume payment: %v", ErrPassportStoreFailed, err)
		}
		consumed, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("%w: consume payment: %v", ErrPassportStoreFailed, err)
		}
		if consumed == 0 {
			return 0, fmt.Errorf("%w: payment %s is not open for %s", ErrPaymentRequired, input.PaymentID, action)
		}
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM credit_passports
		WHERE business_id = $1 AND id NOT IN (
			SELECT id FROM credit_passports
			WHERE business_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		)`, input.BusinessID, h.config.HistoryLimit)
	if err != nil {
		return 0, fmt.Errorf("%w: prune history: %v", ErrPassportStoreFailed, err)
	}

	var historySize int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM credit_passports WHERE business_id = $1`, input.BusinessID,
	).Scan(&historySize); err != nil {
		return 0, fmt.Errorf("%w: count history: %v", ErrPassportStoreFailed, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit: %v", ErrPassportStoreFailed, err)
	}
	return historySize, nil
}

// audit is best effort; a lost audit row never fails the job.
func (h *Handler) audit(ctx context.Context, input *Input, passportID string, storedAt time.Time) {
	details, err := json.Marshal(map[string]interface{}{
		"businessId":       input.BusinessID,
		"paymentId":        input.PaymentID,
		"fundabilityScore": input.Passport.FundabilityScore,
		"interpretation":   input.Passport.Interpretation,
	})
	if err != nil {
		details = []byte("{}")
	}

	_, err = h.db.ExecContext(ctx, `
		INSERT INTO audit_log (event_type, resource_type, resource_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		"passport_generated",
		"credit_passport",
		passportID,
		details,
		storedAt,
	)
	if err != nil {
		h.logger.Warn("audit log insert failed", map[string]interface{}{
			"error":      err.Error(),
			"passportId": passportID,
		})
	}
}

func (h *Handler) invalidate(ctx context.Context, businessID string, action scoring.Action) {
	// Bump before deleting so a history read already in flight cannot refill the cache.
	versionKey := models.HistoryVersionKey(businessID)
	if err := database.BumpVersion(ctx, h.redis, versionKey); err != nil {
		h.logger.Warn("history version bump failed", map[string]interface{}{
			"key":   versionKey,
			"error": err.Error(),
		})
	}

	keys := []string{
		models.HistoryCacheKey(businessID),
		models.EntitlementCacheKey(businessID, action),
	}
	if err := h.redis.Del(ctx, keys...).Err(); err != nil {
		h.logger.Warn("cache invalidation failed", map[string]interface{}{
			"keys":  keys,
			"error": err.Error(),
		})
	}
}

func toStandardError(input Input, err error) *apperrors.StandardError {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return apperrors.NewInvalidInputError(err.Error())
	case errors.Is(err, ErrPassportSchemaInvalid):
		return apperrors.NewPassportSchemaInvalidError(err.Error())
	case errors.Is(err, ErrPaymentRequired):
		return apperrors.NewPaymentRequiredError(input.BusinessID, input.Action).
			WithMetadata("paymentId", input.PaymentID)
	case errors.Is(err, ErrPassportStoreFailed):
		return apperrors.NewPassportStoreFailedError(err)
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
