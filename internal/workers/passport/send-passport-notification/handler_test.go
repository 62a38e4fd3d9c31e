package sendpassportnotification

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	apperrors "passport-workers/internal/common/errors"
	"passport-workers/internal/common/logger"
	"passport-workers/internal/models"
	"passport-workers/internal/scoring"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

const contactQuery = "SELECT name, owner_email, owner_phone FROM businesses"

type fakeEmail struct {
	to, subject, text, html string
	err                     error
}

func (f *fakeEmail) SendEmail(_ context.Context, to, subject, text, html string) (string, error) {
	f.to, f.subject, f.text, f.html = to, subject, text, html
	if f.err != nil {
		return "", f.err
	}
	return "ses-msg-1", nil
}

type fakeSMS struct {
	phone, message string
	err            error
}

func (f *fakeSMS) SendSMS(_ context.Context, phone, message string) (string, error) {
	f.phone, f.message = phone, message
	if f.err != nil {
		return "", f.err
	}
	return "sns-msg-1", nil
}

func createTestConfig() *Config {
	return &Config{
		EmailEnabled: true,
		SMSEnabled:   true,
		PortalURL:    "https://portal.example.zm/passport",
		Timeout:      5 * time.Second,
	}
}

func createTestHandler(t *testing.T, db *sql.DB, cfg *Config, email EmailSender, sms SMSSender) *Handler {
	h := NewHandler(cfg, db, email, sms, logger.NewTestLogger(t))
	h.now = func() time.Time { return time.Date(2025, 7, 3, 12, 0, 0, 0, time.UTC) }
	return h
}

func createInput(risk scoring.RiskLevel) *Input {
	return &Input{
		BusinessID: "biz-001",
		Passport: scoring.Result{
			FundabilityScore: 64,
			Interpretation:   "Medium Fundability (Bankable with support)",
			RiskProfile:      scoring.RiskProfile{OverallRiskLevel: risk},
			Narrative:        scoring.Narrative{Headline: "Bankable with support."},
		},
	}
}

func expectContact(mock sqlmock.Sqlmock, email, phone interface{}) {
	mock.ExpectQuery(contactQuery).
		WithArgs("biz-001").
		WillReturnRows(sqlmock.NewRows([]string{"name", "owner_email", "owner_phone"}).AddRow("Bwalya Crafts", email, phone))
}

func channel(t *testing.T, out *Output, name string) models.ChannelResult {
	for _, c := range out.Channels {
		if c.Channel == name {
			return c
		}
	}
	t.Fatalf("channel %s missing", name)
	return models.ChannelResult{}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_EmailOnlyForMediumRisk(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	expectContact(mock, "owner@bwalya.zm", "+260971000000")

	email, sms := &fakeEmail{}, &fakeSMS{}
	output, err := createTestHandler(t, db, createTestConfig(), email, sms).Execute(context.Background(), createInput(scoring.RiskMedium))
	require.NoError(t, err)

	assert.Equal(t, models.StatusSent, output.Status)
	assert.NotEmpty(t, output.NotificationID)
	assert.Equal(t, "2025-07-03T12:00:00Z", output.SentAt)

	assert.Equal(t, models.StatusSent, channel(t, output, models.ChannelEmail).Status)
	assert.Equal(t, "ses-msg-1", channel(t, output, models.ChannelEmail).MessageID)
	assert.Equal(t, models.StatusSkipped, channel(t, output, models.ChannelSMS).Status)

	assert.Equal(t, "owner@bwalya.zm", email.to)
	assert.Equal(t, "Your Credit Passport is ready: 64/100", email.subject)
	assert.Contains(t, email.text, "Hello Bwalya Crafts")
	assert.Contains(t, email.text, "overall risk medium")
	assert.Contains(t, email.text, "https://portal.example.zm/passport")
	assert.Empty(t, sms.phone)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_SMSForHighRisk(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	expectContact(mock, "owner@bwalya.zm", "+260971000000")

	sms := &fakeSMS{}
	output, err := createTestHandler(t, db, createTestConfig(), &fakeEmail{}, sms).Execute(context.Background(), createInput(scoring.RiskHigh))
	require.NoError(t, err)

	assert.Equal(t, models.StatusSent, channel(t, output, models.ChannelSMS).Status)
	assert.Equal(t, "+260971000000", sms.phone)
	assert.Contains(t, sms.message, "64/100")
	assert.NotContains(t, sms.message, "{{")
}

func TestHandler_Execute_ChannelsDisabled(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	expectContact(mock, "owner@bwalya.zm", nil)

	cfg := createTestConfig()
	cfg.EmailEnabled = false
	cfg.SMSEnabled = false

	input := createInput(scoring.RiskHigh)
	input.SendSMS = true
	output, err := createTestHandler(t, db, cfg, nil, nil).Execute(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, models.StatusDisabled, output.Status)
	assert.Equal(t, models.StatusDisabled, channel(t, output, models.ChannelEmail).Status)
	assert.Equal(t, models.StatusDisabled, channel(t, output, models.ChannelSMS).Status)
}

func TestHandler_Execute_PartialFailureStillCompletes(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	expectContact(mock, "owner@bwalya.zm", "+260971000000")

	output, err := createTestHandler(t, db, createTestConfig(),
		&fakeEmail{err: errors.New("MessageRejected")}, &fakeSMS{},
	).Execute(context.Background(), createInput(scoring.RiskHigh))
	require.NoError(t, err)

	assert.Equal(t, models.StatusSent, output.Status)
	assert.Equal(t, models.StatusFailed, channel(t, output, models.ChannelEmail).Status)
	assert.Equal(t, "MessageRejected", channel(t, output, models.ChannelEmail).Error)
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_AllChannelsFailed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	expectContact(mock, "owner@bwalya.zm", "+260971000000")

	input := createInput(scoring.RiskHigh)
	_, err = createTestHandler(t, db, createTestConfig(),
		&fakeEmail{err: errors.New("throttled")}, &fakeSMS{err: errors.New("opted out")},
	).Execute(context.Background(), input)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotificationSendFailed))

	stdErr := toStandardError(*input, err)
	assert.Equal(t, apperrors.ErrCodeNotificationSendFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
}

func TestHandler_Execute_ContactNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectQuery(contactQuery).WithArgs("biz-001").WillReturnError(sql.ErrNoRows)

	input := createInput(scoring.RiskLow)
	_, err = createTestHandler(t, db, createTestConfig(), &fakeEmail{}, &fakeSMS{}).Execute(context.Background(), input)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrContactNotFound))
	assert.Equal(t, apperrors.ErrCodeContactNotFound, toStandardError(*input, err).Code)
}

func TestHandler_Execute_UnknownEvent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	input := createInput(scoring.RiskLow)
	input.Event = "passport_deleted"
	_, err = createTestHandler(t, db, createTestConfig(), nil, nil).Execute(context.Background(), input)
	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRenderTemplate(t *testing.T) {
	tests := []struct {
		name     string
		tmpl     string
		data     map[string]interface{}
		expected string
	}{
		{
			name:     "known and unknown placeholders",
			tmpl:     "Hi {{name}}, score {{score}}{{missing}}.",
			data:     map[string]interface{}{"name": "Mutale", "score": 71},
			expected: "Hi Mutale, score 71.",
		},
		{
			name:     "placeholder text inside a value is kept",
			tmpl:     "{{name}} scored {{score}}",
			data:     map[string]interface{}{"name": "Shop {{score}} {{unknown}}", "score": 71},
			expected: "Shop {{score}} {{unknown}} scored 71",
		},
		{
			name:     "unterminated placeholder",
			tmpl:     "Hi {{name}} {{oops",
			data:     map[string]interface{}{"name": "Mutale"},
			expected: "Hi Mutale {{oops",
		},
		{
			name:     "nil value",
			tmpl:     "[{{name}}]",
			data:     map[string]interface{}{"name": nil},
			expected: "[]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// repeat to catch any dependence on map iteration order
			for i := 0; i < 20; i++ {
				assert.Equal(t, tt.expected, renderText(tt.tmpl, tt.data))
			}
		})
	}
}

func TestRenderHTML_EscapesValues(t *testing.T) {
	out := renderHTML(`<p>{{name}}</p><a href="{{portalUrl}}">x</a>`, map[string]interface{}{
		"name":      `Acme <img src=x onerror=alert(1)>`,
		"portalUrl": `https://portal.example.zm/"><script>`,
	})
	assert.Equal(t, `<p>Acme &lt;img src=x onerror=alert(1)&gt;</p><a href="https://portal.example.zm/&#34;&gt;&lt;script&gt;">x</a>`, out)
}

func TestHandler_Execute_EscapesBusinessDataInHTMLEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectQuery(contactQuery).
		WithArgs("biz-001").
		WillReturnRows(sqlmock.NewRows([]string{"name", "owner_email", "owner_phone"}).
			AddRow(`Acme <img src=x onerror=alert(1)>`, "owner@acme.zm", nil))

	input := createInput(scoring.RiskMedium)
	input.Passport.Narrative.Headline = `<a href="https://phish.example">Claim your loan</a>`

	email := &fakeEmail{}
	_, err = createTestHandler(t, db, createTestConfig(), email, &fakeSMS{}).Execute(context.Background(), input)
	require.NoError(t, err)

	assert.NotContains(t, email.html, "<img")
	assert.NotContains(t, email.html, `<a href="https://phish.example">`)
	assert.Contains(t, email.html, "Hello Acme &lt;img src=x onerror=alert(1)&gt;")
	assert.Contains(t, email.html, "&lt;a href=&#34;https://phish.example&#34;&gt;Claim your loan&lt;/a&gt;")
	assert.Contains(t, email.html, `<a href="https://portal.example.zm/passport">`)

	// the plain text part stays readable
	assert.Contains(t, email.text, "Hello Acme <img src=x onerror=alert(1)>")
	assert.NoError(t, mock.ExpectationsWereMet())
}
