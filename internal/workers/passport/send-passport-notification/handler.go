// internal/workers/passport/send-passport-notification/handler.go
package sendpassportnotification

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "passport-workers/internal/common/errors"
	"passport-workers/internal/common/logger"
	"passport-workers/internal/common/metrics"
	"passport-workers/internal/models"
	"passport-workers/internal/scoring"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "send-passport-notification"
)

var (
	ErrInvalidInput           = errors.New("INVALID_INPUT")
	ErrContactNotFound        = errors.New("CONTACT_NOT_FOUND")
	ErrNotificationSendFailed = errors.New("NOTIFICATION_SEND_FAILED")
)

type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, text, html string) (string, error)
}

type SMSSender interface {
	SendSMS(ctx context.Context, phone, message string) (string, error)
}

// Handler tells a business owner their passport is ready. Email goes out
// whenever it is enabled; SMS only for high overall risk or on request.
// The job fails only when every attempted channel failed.
type Handler struct {
	config     *Config
	db         *sql.DB
	email      EmailSender
	sms        SMSSender
	now        func() time.Time
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, db *sql.DB, email EmailSender, sms SMSSender, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		db:         db,
		email:      email,
		sms:        sms,
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
	event := input.Event
	if event == "" {
		event = EventPassportReady
	}
	tmpl, ok := templates[event]
	if !ok {
		return nil, fmt.Errorf("%w: unknown event %q", ErrInvalidInput, event)
	}

	contact, err := h.contact(ctx, input.BusinessID)
	if err != nil {
		return nil, err
	}

	data := map[string]interface{}{
		"name":           contact.Name,
		"score":          input.Passport.FundabilityScore,
		"interpretation": input.Passport.Interpretation,
		"risk":           input.Passport.RiskProfile.OverallRiskLevel,
		"headline":       input.Passport.Narrative.Headline,
		"portalUrl":      h.config.PortalURL,
	}

	channels := []models.ChannelResult{
		h.sendEmail(ctx, contact, tmpl, data),
		h.sendSMS(ctx, contact, tmpl, data, input.SendSMS || input.Passport.RiskProfile.OverallRiskLevel == scoring.RiskHigh),
	}

	status := overallStatus(channels)
	if status == models.StatusFailed {
		return nil, fmt.Errorf("%w: %s", ErrNotificationSendFailed, failedChannels(channels))
	}

	h.logger.Info("passport notification processed", map[string]interface{}{
		"businessId": input.BusinessID,
		"event":      event,
		"status":     status,
	})

	return &Output{
		NotificationID: uuid.New().String(),
		BusinessID:     input.BusinessID,
		Status:         status,
		Channels:       channels,
		SentAt:         h.now().UTC().Format(time.RFC3339),
	}, nil
}

func (h *Handler) contact(ctx context.Context, businessID string) (models.BusinessContact, error) {
	var name, email, phone sql.NullString
	err := h.db.QueryRowContext(ctx,
		`SELECT name, owner_email, owner_phone FROM businesses WHERE id = $1`, businessID,
	).Scan(&name, &email, &phone)
	if errors.Is(err, sql.ErrNoRows) {
		return models.BusinessContact{}, fmt.Errorf("%w: %s", ErrContactNotFound, businessID)
	}
	if err != nil {
		return models.BusinessContact{}, fmt.Errorf("%w: contact lookup: %v", ErrNotificationSendFailed, err)
	}
	return models.BusinessContact{
		ID:    businessID,
		Name:  name.String,
		Email: strings.TrimSpace(email.String),
		Phone: strings.TrimSpace(phone.String),
	}, nil
}

func (h *Handler) sendEmail(ctx context.Context, contact models.BusinessContact, tmpl models.NotificationTemplate, data map[string]interface{}) models.ChannelResult {
	result := models.ChannelResult{Channel: models.ChannelEmail}
	switch {
	case !h.config.EmailEnabled || h.email == nil:
		result.Status = models.StatusDisabled
	case contact.Email == "":
		result.Status = models.StatusSkipped
	default:
		id, err := h.email.SendEmail(ctx, contact.Email,
			renderText(tmpl.Subject, data),
			renderText(tmpl.Text, data),
			renderHTML(tmpl.HTML, data),
		)
		if err != nil {
			h.logger.Error("email send failed", map[string]interface{}{
				"businessId": contact.ID,
				"error":      err.Error(),
			})
			result.Status, result.Error = models.StatusFailed, err.Error()
		} else {
			result.Status, result.MessageID = models.StatusSent, id
		}
	}
	metrics.NotificationsSent.WithLabelValues(result.Channel, result.Status).Inc()
	return result
}

func (h *Handler) sendSMS(ctx context.Context, contact models.BusinessContact, tmpl models.NotificationTemplate, data map[string]interface{}, wanted bool) models.ChannelResult {
	result := models.ChannelResult{Channel: models.ChannelSMS}
	switch {
	case !h.config.SMSEnabled || h.sms == nil:
		result.Status = models.StatusDisabled
	case !wanted || contact.Phone == "":
		result.Status = models.StatusSkipped
	default:
		id, err := h.sms.SendSMS(ctx, contact.Phone, renderText(tmpl.SMS, data))
		if err != nil {
			h.logger.Error("SMS send failed", map[string]interface{}{
				"businessId": contact.ID,
				"error":      err.Error(),
			})
			result.Status, result.Error = models.StatusFailed, err.Error()
		} else {
			result.Status, result.MessageID = models.StatusSent, id
		}
	}
	metrics.NotificationsSent.WithLabelValues(result.Channel, result.Status).Inc()
	return result
}

// overallStatus is sent if anything went out, failed if something was
// attempted and nothing went out, otherwise disabled or skipped.
func overallStatus(channels []models.ChannelResult) string {
	var sent, failed, skipped bool
	for _, c := range channels {
		switch c.Status {
		case models.StatusSent:
			sent = true
		case models.StatusFailed:
			failed = true
		case models.StatusSkipped:
			skipped = true
		}
	}
	switch {
	case sent:
		return models.StatusSent
	case failed:
		return models.StatusFailed
	case skipped:
		return models.StatusSkipped
	default:
		return models.StatusDisabled
	}
}

func failedChannels(channels []models.ChannelResult) string {
	var parts []string
	for _, c := range channels {
		if c.Status == models.StatusFailed {
			parts = append(parts, c.Channel+": "+c.Error)
		}
	}
	return strings.Join(parts, "; ")
}

func toStandardError(input Input, err error) *apperrors.StandardError {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return apperrors.NewInvalidInputError(err.Error())
	case errors.Is(err, ErrContactNotFound):
		return apperrors.NewContactNotFoundError(input.BusinessID)
	case errors.Is(err, ErrNotificationSendFailed):
		return apperrors.NewNotificationSendFailedError("all", err)
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
