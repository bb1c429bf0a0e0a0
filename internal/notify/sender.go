package notify

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/jordan-wright/email"
	"go.uber.org/zap"

	"github.com/theirongolddev/finassist/internal/config"
)

// ErrNotConfigured indicates SMTP delivery is missing host or recipient.
var ErrNotConfigured = errors.New("notify: smtp not configured")

// Sender delivers a fired reminder.
type Sender interface {
	Send(ctx context.Context, subject, body string) error
}

// SMTPConfig holds the settings EmailSender needs.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

// EmailSender delivers reminders over SMTP.
type EmailSender struct {
	cfg    SMTPConfig
	logger *zap.Logger
}

// NewEmailSender validates cfg and returns a sender.
func NewEmailSender(cfg SMTPConfig, logger *zap.Logger) (*EmailSender, error) {
	if cfg.Host == "" || len(cfg.To) == 0 {
		return nil, ErrNotConfigured
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailSender{cfg: cfg, logger: logger}, nil
}

func (s *EmailSender) message(subject, body string) *email.Email {
	e := email.NewEmail()
	e.From = s.cfg.From
	e.To = s.cfg.To
	e.Subject = subject
	e.Text = []byte(body + "\n\nfinassist\n")
	return e
}

// Send delivers one email. The SMTP exchange itself is not cancellable;
// ctx is checked before dialing.
func (s *EmailSender) Send(ctx context.Context, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	addr := s.cfg.Host + ":" + strconv.Itoa(s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	if err := s.message(subject, body).Send(addr, auth); err != nil {
		s.logger.Error("failed to send reminder", zap.Strings("to", s.cfg.To), zap.Error(err))
		return fmt.Errorf("notify: send email: %w", err)
	}
	s.logger.Info("reminder sent", zap.Strings("to", s.cfg.To), zap.String("subject", subject))
	return nil
}

// LogSender writes reminders to the log instead of delivering them.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender returns a sender that logs at info level.
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, subject, body string) error {
	s.logger.Info("reminder", zap.String("subject", subject), zap.String("body", body))
	return nil
}

// SenderFromConfig picks SMTP delivery when the [alarm] section names a
// host and recipient, and log delivery otherwise.
func SenderFromConfig(cfg config.Config, logger *zap.Logger) Sender {
	a := cfg.Alarm
	var to []string
	for _, addr := range strings.Split(a.To, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			to = append(to, addr)
		}
	}
	s, err := NewEmailSender(SMTPConfig{
		Host:     a.SMTPHost,
		Port:     a.SMTPPort,
		Username: a.Username,
		Password: config.GetSMTPPassword(cfg),
		From:     a.From,
		To:       to,
	}, logger)
	if err != nil {
		return NewLogSender(logger)
	}
	return s
}
