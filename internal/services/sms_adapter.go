package services

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/teamtide/workforce-backend/internal/models"
	"go.uber.org/zap"
)

// ErrInvalidPhoneNumber pre-flight rejects a target that cannot be normalized
// to an international number.
var ErrInvalidPhoneNumber = errors.New("Invalid phone number format")

var phonePattern = regexp.MustCompile(`^\+\d{10,15}$`)

// NormalizePhone converts a raw phone number to +<digits> form. Non-digits are
// stripped except a leading +, a 00 prefix becomes +, and bare 9-digit or
// 48-prefixed 11-digit numbers are assumed Polish.
func NormalizePhone(raw string) (string, error) {
	var b strings.Builder
	for i, r := range raw {
		if r == '+' && i == 0 {
			b.WriteRune(r)
			continue
		}
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	phone := b.String()

	switch {
	case strings.HasPrefix(phone, "00"):
		phone = "+" + phone[2:]
	case strings.HasPrefix(phone, "+"):
		// already international
	case len(phone) == 9:
		phone = "+48" + phone
	case len(phone) == 11 && strings.HasPrefix(phone, "48"):
		phone = "+" + phone
	}

	if !phonePattern.MatchString(phone) {
		return "", ErrInvalidPhoneNumber
	}
	return phone, nil
}

// SMSProvider is the pluggable boundary to an SMS gateway.
type SMSProvider interface {
	Name() string
	Send(ctx context.Context, phone, message string) error
}

// SMSConfig configures the SMS adapter.
type SMSConfig struct {
	Enabled  bool
	Provider string
}

// NewSMSAdapter selects the SMS provider from config. Unknown or missing
// providers fall back to the console provider.
func NewSMSAdapter(cfg SMSConfig, logger *zap.Logger) ChannelAdapter {
	if !cfg.Enabled {
		logger.Info("sms channel disabled")
		return &smsAdapter{state: StateDisabled, provider: &consoleSMSProvider{logger: logger}, logger: logger}
	}
	switch cfg.Provider {
	case "", "console":
		return &smsAdapter{state: StateReady, provider: &consoleSMSProvider{logger: logger}, logger: logger}
	default:
		logger.Warn("unknown sms provider, using console", zap.String("provider", cfg.Provider))
		return &smsAdapter{state: StateMisconfigured, provider: &consoleSMSProvider{logger: logger}, logger: logger}
	}
}

type smsAdapter struct {
	state    AdapterState
	provider SMSProvider
	logger   *zap.Logger
}

func (a *smsAdapter) Channel() models.Channel { return models.ChannelSMS }
func (a *smsAdapter) State() AdapterState     { return a.state }

func (a *smsAdapter) Send(ctx context.Context, target string, message Message) SendResult {
	if a.state == StateDisabled {
		return SendResult{Status: SendSkipped}
	}
	if target == "" {
		return SendResult{Status: SendSkipped}
	}

	phone, err := NormalizePhone(target)
	if err != nil {
		return SendResult{Status: SendFailed, Err: err}
	}

	if err := a.provider.Send(ctx, phone, message.Text); err != nil {
		a.logger.Error("sms send failed",
			zap.String("provider", a.provider.Name()),
			zap.Error(err))
		return SendResult{Status: SendFailed, Err: err}
	}
	return SendResult{Status: SendSent}
}

// consoleSMSProvider logs messages instead of sending them.
type consoleSMSProvider struct {
	logger *zap.Logger
}

func (p *consoleSMSProvider) Name() string { return "console" }

func (p *consoleSMSProvider) Send(ctx context.Context, phone, message string) error {
	p.logger.Info("console sms",
		zap.String("to", phone),
		zap.String("message", message))
	return nil
}
