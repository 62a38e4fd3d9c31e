// internal/workers/passport/check-passport-entitlement/handler.go
package checkpassportentitlement

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
	"passport-workers/internal/common/metrics"
	"passport-workers/internal/models"
	"passport-workers/internal/scoring"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const (
	TaskType = "check-passport-entitlement"
)

var (
	ErrInvalidInput           = errors.New("INVALID_INPUT")
	ErrInvalidAction          = errors.New("INVALID_ACTION")
	ErrPaymentRequired        = errors.New("PAYMENT_REQUIRED")
	ErrEntitlementCheckFailed = errors.New("ENTITLEMENT_CHECK_FAILED")
)

const openPaymentQuery = `SELECT id, amount, currency FROM passport_payments
	WHERE business_id = $1 AND action = $2 AND status = 'succeeded' AND consumed_at IS NULL
	ORDER BY created_at ASC LIMIT 1`

// Share and PDF unlocks are single use and are spent by the check itself.
// Generate payments are spent by store-passport-record once the run is persisted.
const consumePaymentQuery = `UPDATE passport_payments SET consumed_at = now()
	WHERE id = $1 AND action = $2 AND consumed_at IS NULL`

// paymentRequiredError carries the price the caller has to pay.
type paymentRequiredError struct {
	businessID string
	action     scoring.Action
	price      decimal.Decimal
	currency   string
}

func (e *paymentRequiredError) Error() string {
	return fmt.Sprintf("%s: %s %s for %s", ErrPaymentRequired, e.price.StringFixed(2), e.currency, e.action)
}

func (e *paymentRequiredError) Unwrap() error { return ErrPaymentRequired }

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
		h.errHandler.HandleJobError(ctx, client, job, toStandardError(input, err))
		return
	}

	h.completeJob(ctx, client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if strings.TrimSpace(input.BusinessID) == "" {
		return nil, fmt.Errorf("%w: businessId is required", ErrInvalidInput)
	}
	action, err := scoring.ParseAction(input.Action)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAction, err)
	}
	price, err := h.config.Prices.Price(action)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAction, err)
	}

	cacheable := action == scoring.ActionGenerate
	cacheKey := models.EntitlementCacheKey(input.BusinessID, action)
	if cacheable {
		var cached Output
		hit, err := database.GetJSON(ctx, h.redis, cacheKey, &cached)
		if err != nil {
			h.logger.Warn("entitlement cache read failed", map[string]interface{}{
				"key":   cacheKey,
				"error": err.Error(),
			})
		}
		if hit && cached.Entitled {
			metrics.EntitlementChecks.WithLabelValues(string(action), "entitled").Inc()
			return &cached, nil
		}
	}

	var paymentID, rawAmount, currency string
	err = h.db.QueryRowContext(ctx, openPaymentQuery, input.BusinessID, string(action)).
		Scan(&paymentID, &rawAmount, &currency)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, h.deny(input.BusinessID, action, price)
	}
	if err != nil {
		metrics.EntitlementChecks.WithLabelValues(string(action), "error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrEntitlementCheckFailed, err)
	}

	paid, err := decimal.NewFromString(rawAmount)
	if err != nil {
		metrics.EntitlementChecks.WithLabelValues(string(action), "error").Inc()
		return nil, fmt.Errorf("%w: payment %s has amount %q: %v", ErrEntitlementCheckFailed, paymentID, rawAmount, err)
	}
	if paid.LessThan(price) {
		h.logger.Warn("payment below current price", map[string]interface{}{
			"businessId": input.BusinessID,
			"paymentId":  paymentID,
			"paid":       paid.StringFixed(2),
			"price":      price.StringFixed(2),
		})
		return nil, h.deny(input.BusinessID, action, price)
	}

	output := &Output{
		Entitled:   true,
		BusinessID: input.BusinessID,
		Action:     string(action),
		PaymentID:  paymentID,
		Amount:     paid.StringFixed(2),
		Currency:   currency,
	}

	if cacheable {
		if err := database.SetJSON(ctx, h.redis, cacheKey, output, h.config.CacheTTL); err != nil {
			h.logger.Warn("entitlement cache write failed", map[string]interface{}{
				"key":   cacheKey,
				"error": err.Error(),
			})
		}
	} else {
		consumed, err := h.consume(ctx, paymentID, action)
		if err != nil {
			metrics.EntitlementChecks.WithLabelValues(string(action), "error").Inc()
			return nil, err
		}
		if !consumed {
			// Spent by a concurrent check between the select and the update.
			return nil, h.deny(input.BusinessID, action, price)
		}
		output.PaymentConsumed = true
	}

	metrics.EntitlementChecks.WithLabelValues(string(action), "entitled").Inc()
	h.logger.Info("entitlement granted", map[string]interface{}{
		"businessId": input.BusinessID,
		"action":     action,
		"paymentId":  paymentID,
	})
	return output, nil
}

func (h *Handler) consume(ctx context.Context, paymentID string, action scoring.Action) (bool, error) {
	result, err := h.db.ExecContext(ctx, consumePaymentQuery, paymentID, string(action))
	if err != nil {
		return false, fmt.Errorf("%w: consume payment %s: %v", ErrEntitlementCheckFailed, paymentID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: consume payment %s: %v", ErrEntitlementCheckFailed, paymentID, err)
	}
	return n == 1, nil
}

func (h *Handler) deny(businessID string, action scoring.Action, price decimal.Decimal) error {
	metrics.EntitlementChecks.WithLabelValues(string(action), "payment_required").Inc()
	h.logger.Info("entitlement denied", map[string]interface{}{
		"businessId": businessID,
		"action":     action,
	})
	return &paymentRequiredError{
		businessID: businessID,
		action:     action,
		price:      price,
		currency:   h.config.Prices.Currency,
	}
}

func toStandardError(input Input, err error) *apperrors.StandardError {
	var payErr *paymentRequiredError
	switch {
	case errors.As(err, &payErr):
		return apperrors.NewPaymentRequiredError(payErr.businessID, string(payErr.action)).
			WithMetadata("amount", payErr.price.StringFixed(2)).
			WithMetadata("currency", payErr.currency)
	case errors.Is(err, ErrInvalidAction):
		return apperrors.NewInvalidActionError(input.Action)
	case errors.Is(err, ErrInvalidInput):
		return apperrors.NewInvalidInputError(err.Error())
	case errors.Is(err, ErrEntitlementCheckFailed):
		return apperrors.NewEntitlementCheckFailedError(err)
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
