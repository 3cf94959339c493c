package sms

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/pkg/config"
)

// Sender delivers a single text message and returns the provider's message id.
type Sender interface {
	Send(ctx context.Context, to, body string) (string, error)
	Name() string
}

type messageCreator interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

// TwilioSender sends through the Twilio Messages API.
type TwilioSender struct {
	api  messageCreator
	from string
}

// NewTwilioSender builds a sender from account credentials.
func NewTwilioSender(cfg config.TwilioConfig) *TwilioSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &TwilioSender{api: client.Api, from: cfg.FromNumber}
}

func (s *TwilioSender) Name() string { return "twilio" }

func (s *TwilioSender) Send(ctx context.Context, to, body string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if to == "" {
		return "", errors.New("recipient phone is empty")
	}

	params := &openapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.from)
	params.SetBody(body)

	msg, err := s.api.CreateMessage(params)
	if err != nil {
		return "", fmt.Errorf("twilio create message: %w", err)
	}
	if msg == nil || msg.Sid == nil {
		return "", errors.New("twilio returned no message sid")
	}
	return *msg.Sid, nil
}

// LogSender only logs messages. It is used when no provider is configured.
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

func (s *LogSender) Send(ctx context.Context, to, body string) (string, error) {
	if to == "" {
		return "", errors.New("recipient phone is empty")
	}
	id := "log-" + uuid.NewString()
	s.logger.Info("sms delivered to log", zap.String("to", to), zap.Int("length", len(body)), zap.String("message_id", id))
	return id, nil
}

// NewSender picks Twilio when credentials are present and falls back to logging.
func NewSender(cfg config.TwilioConfig, logger *zap.Logger) Sender {
	if cfg.AccountSID != "" && cfg.AuthToken != "" && cfg.FromNumber != "" {
		return NewTwilioSender(cfg)
	}
	return NewLogSender(logger)
}
