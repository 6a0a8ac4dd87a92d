package email

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

type sendgridTransport struct {
	key    string
	from   *sgmail.Email
	logger zerolog.Logger
}

// NewSendGridService creates an EmailService delivering through the SendGrid v3 API
func NewSendGridService(apiKey, appName, fromName, fromEmail string, logger zerolog.Logger) EmailService {
	return &templated{
		appName: appName,
		transport: &sendgridTransport{
			key:    apiKey,
			from:   sgmail.NewEmail(fromName, fromEmail),
			logger: logger,
		},
	}
}

func (s *sendgridTransport) build(msg Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = msg.Subject
	p.AddTos(sgmail.NewEmail(msg.ToName, msg.To))

	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/html", msg.HTMLBody))
	return m
}

func (s *sendgridTransport) send(ctx context.Context, msg Message) error {
	if s.key == "" {
		s.logger.Warn().Str("toEmail", msg.To).Str("subject", msg.Subject).Msg("SendGrid API key not configured - email not sent")
		return nil
	}

	req := sendgrid.GetRequest(s.key, sendgridEndpoint, sendgridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(s.build(msg))

	res, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("sendgrid request failed: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid rejected email: status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}
