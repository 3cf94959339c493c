package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/pkg/config"
)

// Message is a plain e-mail to one recipient.
type Message struct {
	ToName  string
	ToEmail string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers e-mail and returns the provider message id when known.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
	Name() string
}

type sendClient interface {
	SendWithContext(ctx context.Context, email *sgmail.SGMailV3) (*rest.Response, error)
}

// SendGridSender posts to the SendGrid v3 mail API.
type SendGridSender struct {
	client     sendClient
	from       *sgmail.Email
	subjPrefix string
}

func NewSendGridSender(cfg config.SendGridConfig) *SendGridSender {
	return &SendGridSender{
		client:     sendgrid.NewSendClient(cfg.APIKey),
		from:       sgmail.NewEmail(cfg.FromName, cfg.FromMail),
		subjPrefix: "[" + cfg.FromName + "] ",
	}
}

func (s *SendGridSender) Name() string { return "sendgrid" }

func (s *SendGridSender) Send(ctx context.Context, msg Message) (string, error) {
	if msg.ToEmail == "" {
		return "", errors.New("recipient email is empty")
	}

	p := sgmail.NewPersonalization()
	p.Subject = s.subjPrefix + msg.Subject
	p.AddTos(sgmail.NewEmail(msg.ToName, msg.ToEmail))

	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", msg.Text))
	if msg.HTML != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTML))
	}

	res, err := s.client.SendWithContext(ctx, m)
	if err != nil {
		return "", fmt.Errorf("sendgrid send: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("sendgrid send: status %d: %s", res.StatusCode, res.Body)
	}
	if ids := res.Headers["X-Message-Id"]; len(ids) > 0 {
		return ids[0], nil
	}
	return "", nil
}

// LogSender writes messages to the log instead of sending them.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Name() string { return "log" }

func (s *LogSender) Send(ctx context.Context, msg Message) (string, error) {
	if msg.ToEmail == "" {
		return "", errors.New("recipient email is empty")
	}
	id := "log-" + uuid.NewString()
	s.logger.Info("email delivered to log", zap.String("to", msg.ToEmail), zap.String("subject", msg.Subject), zap.String("message_id", id))
	return id, nil
}

// NewSender returns SendGrid when an API key is configured, otherwise a LogSender.
func NewSender(cfg config.SendGridConfig, logger *zap.Logger) Sender {
	if cfg.APIKey != "" {
		return NewSendGridSender(cfg)
	}
	return NewLogSender(logger)
}
