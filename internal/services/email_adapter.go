package services

import (
	"context"
	"fmt"
	"strconv"

	"github.com/teamtide/workforce-backend/internal/models"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// EmailConfig configures the SMTP email adapter.
type EmailConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

func (c EmailConfig) complete() bool {
	return c.Host != "" && c.Port != "" && c.From != ""
}

// NewEmailAdapter selects the email transport: SMTP when fully configured,
// otherwise a console adapter so lower environments still see deliveries.
func NewEmailAdapter(cfg EmailConfig, logger *zap.Logger) ChannelAdapter {
	if !cfg.Enabled {
		logger.Info("email channel disabled, using console adapter")
		return &consoleEmailAdapter{state: StateDisabled, logger: logger}
	}
	if !cfg.complete() {
		logger.Warn("email channel enabled but SMTP config incomplete, using console adapter")
		return &consoleEmailAdapter{state: StateMisconfigured, logger: logger}
	}
	return &smtpEmailAdapter{cfg: cfg, logger: logger}
}

type smtpEmailAdapter struct {
	cfg    EmailConfig
	logger *zap.Logger
}

func (a *smtpEmailAdapter) Channel() models.Channel { return models.ChannelEmail }
func (a *smtpEmailAdapter) State() AdapterState     { return StateReady }

func (a *smtpEmailAdapter) Send(ctx context.Context, target string, message Message) SendResult {
	if target == "" {
		return SendResult{Status: SendSkipped}
	}

	port, err := strconv.Atoi(a.cfg.Port)
	if err != nil {
		return SendResult{Status: SendFailed, Err: fmt.Errorf("invalid SMTP port %q", a.cfg.Port)}
	}

	m := gomail.NewMessage()
	m.SetHeader("From", a.cfg.From)
	m.SetHeader("To", target)
	m.SetHeader("Subject", message.Subject)
	m.SetBody("text/plain", message.Text)
	if message.HTML != "" {
		m.AddAlternative("text/html", message.HTML)
	}

	dialer := gomail.NewDialer(a.cfg.Host, port, a.cfg.Username, a.cfg.Password)
	if err := dialer.DialAndSend(m); err != nil {
		a.logger.Error("smtp send failed",
			zap.String("to", target),
			zap.String("subject", message.Subject),
			zap.Error(err))
		return SendResult{Status: SendFailed, Err: err}
	}

	a.logger.Info("email sent",
		zap.String("to", target),
		zap.String("subject", message.Subject))
	return SendResult{Status: SendSent}
}

// consoleEmailAdapter logs the message instead of sending it. It reports Sent
// so the delivery pipeline behaves the same in environments without SMTP.
type consoleEmailAdapter struct {
	state  AdapterState
	logger *zap.Logger
}

func (a *consoleEmailAdapter) Channel() models.Channel { return models.ChannelEmail }
func (a *consoleEmailAdapter) State() AdapterState     { return a.state }

func (a *consoleEmailAdapter) Send(ctx context.Context, target string, message Message) SendResult {
	if target == "" {
		return SendResult{Status: SendSkipped}
	}
	a.logger.Info("console email",
		zap.String("to", target),
		zap.String("subject", message.Subject),
		zap.String("text", message.Text))
	return SendResult{Status: SendSent}
}
