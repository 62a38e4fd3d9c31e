// internal/workers/passport/send-passport-notification/models.go
package sendpassportnotification

import (
	"passport-workers/internal/models"
	"passport-workers/internal/scoring"
)

// Notification events
const (
	EventPassportReady  = "passport_ready"
	EventPassportShared = "passport_shared"
)

type Input struct {
	BusinessID string         `json:"businessId"`
	PassportID string         `json:"passportId,omitempty"`
	Event      string         `json:"event,omitempty"`
	Passport   scoring.Result `json:"passport"`
	// SendSMS asks for a text message even when overall risk is not high.
	SendSMS bool `json:"sendSms,omitempty"`
}

type Output struct {
	NotificationID string                 `json:"notificationId"`
	BusinessID     string                 `json:"businessId"`
	Status         string                 `json:"status"`
	Channels       []models.ChannelResult `json:"channels"`
	SentAt         string                 `json:"sentAt"`
}
