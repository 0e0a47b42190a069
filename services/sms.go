package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"jansarthi-be/utils"
)

// SMSSender delivers a text message to an E.164 number.
type SMSSender interface {
	Send(ctx context.Context, to, body string) error
}

func OTPMessage(code string, expiry time.Duration) string {
	return fmt.Sprintf("Your Jansarthi verification code is: %s\n\nThis code will expire in %d minutes.\n\nDo not share this code with anyone.",
		code, int(expiry.Minutes()))
}

func WelcomeMessage(name string) string {
	return fmt.Sprintf("Welcome to Jansarthi, %s!\n\nThank you for joining us. You can now report civic issues in your area and help make your community better.", name)
}

type TwilioSender struct {
	client *twilio.RestClient
	from   string
}

func NewTwilioSender(accountSID, authToken, from string) *TwilioSender {
	return &TwilioSender{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSID,
			Password: authToken,
		}),
		from: from,
	}
}

// Send posts the message through the Twilio Messages API. The Twilio client
// has no context support, so ctx is only checked before the call.
func (s *TwilioSender) Send(ctx context.Context, to, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(utils.NormalizePhone(to))
	params.SetFrom(s.from)
	params.SetBody(body)

	resp, err := s.client.Api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("twilio send: %w", err)
	}
	sid := ""
	if resp.Sid != nil {
		sid = *resp.Sid
	}
	slog.Info("SMS sent", "to", utils.MaskPhone(to), "sid", sid)
	return nil
}

// LogSender writes messages to the log instead of sending them. Used when
// SMS_DRIVER=log for local development.
type LogSender struct {
	Logger *slog.Logger
}

func (s LogSender) Send(_ context.Context, to, body string) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("SMS (log driver)", "to", to, "body", body)
	return nil
}
