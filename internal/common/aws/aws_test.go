package aws

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSES struct {
	last *ses.SendEmailInput
	err  error
}

func (f *fakeSES) SendEmail(_ context.Context, in *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.last = in
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendEmailOutput{MessageId: aws.String("ses-1")}, nil
}

type fakeSNS struct {
	last *sns.PublishInput
}

func (f *fakeSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.last = in
	return &sns.PublishOutput{MessageId: aws.String("sns-1")}, nil
}

func TestMailer_SendEmail(t *testing.T) {
	api := &fakeSES{}
	m := NewMailerWithAPI(api, "passport@example.zm")

	id, err := m.SendEmail(context.Background(), "owner@example.zm", "Your passport", "text", "<p>html</p>")
	require.NoError(t, err)
	assert.Equal(t, "ses-1", id)
	assert.Equal(t, []string{"owner@example.zm"}, api.last.Destination.ToAddresses)
	assert.Equal(t, "passport@example.zm", aws.ToString(api.last.Source))
	assert.Equal(t, "Your passport", aws.ToString(api.last.Message.Subject.Data))
	assert.Equal(t, "<p>html</p>", aws.ToString(api.last.Message.Body.Html.Data))
}

func TestMailer_PropagatesError(t *testing.T) {
	m := NewMailerWithAPI(&fakeSES{err: errors.New("throttled")}, "from@example.zm")
	_, err := m.SendEmail(context.Background(), "to@example.zm", "s", "t", "h")
	assert.EqualError(t, err, "throttled")
}

func TestTexter_SendSMS(t *testing.T) {
	tests := []struct {
		name     string
		senderID string
		attrs    int
	}{
		{"with sender id", "PASSPORT", 2},
		{"without sender id", "", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeSNS{}
			id, err := NewTexterWithAPI(api, tt.senderID).SendSMS(context.Background(), "+260970000000", "hello")
			require.NoError(t, err)
			assert.Equal(t, "sns-1", id)
			assert.Equal(t, "+260970000000", aws.ToString(api.last.PhoneNumber))
			assert.Len(t, api.last.MessageAttributes, tt.attrs)
		})
	}
}
