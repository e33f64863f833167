package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dormmanager/backend/internal/config"
	"github.com/dormmanager/backend/internal/domain"
	"github.com/dormmanager/backend/internal/notification"
)

// Mail is a rendered outgoing email.
type Mail struct {
	From    string
	To      string
	Subject string
	Body    string
}

// Mailer delivers rendered mail.
type Mailer interface {
	Send(ctx context.Context, mail Mail) error
}

// LogMailer writes mail to the log instead of sending it.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer builds a LogMailer.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, mail Mail) error {
	m.logger.Debug("mail sent",
		zap.String("from", mail.From),
		zap.String("to", mail.To),
		zap.String("subject", mail.Subject))
	return nil
}

// MailService renders queued messages and hands them to a Mailer.
type MailService struct {
	mailer Mailer
	cfg    config.NotificationConfig
	logger *zap.Logger
}

// NewMailService creates the service.
func NewMailService(mailer Mailer, cfg config.NotificationConfig, logger *zap.Logger) *MailService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MailService{mailer: mailer, cfg: cfg, logger: logger}
}

// Render builds the mail for msg.
func (s *MailService) Render(msg notification.Message) (Mail, error) {
	mail := Mail{From: strings.TrimSpace(s.cfg.EmailFrom), To: msg.Email}
	switch msg.Type {
	case domain.CodeKindRegister:
		mail.Subject = "Welcome to Dorm Manager"
		mail.Body = fmt.Sprintf("Your registration code is %d. It is valid for 3 minutes; do not share it.", msg.Code)
	case domain.CodeKindReset:
		mail.Subject = "Password reset"
		mail.Body = fmt.Sprintf("Your password reset code is %d. It is valid for 3 minutes. Ignore this mail if you did not ask for a reset.", msg.Code)
	default:
		return Mail{}, fmt.Errorf("unsupported mail type %q", msg.Type)
	}
	return mail, nil
}

// Deliver renders and sends msg.
func (s *MailService) Deliver(ctx context.Context, msg notification.Message) error {
	mail, err := s.Render(msg)
	if err != nil {
		return err
	}
	if err := s.mailer.Send(ctx, mail); err != nil {
		return err
	}
	s.logger.Info("mail delivered", zap.String("message_id", msg.ID), zap.String("type", string(msg.Type)))
	return nil
}

// RegisterHandlers subscribes Deliver to an in-process dispatcher.
func (s *MailService) RegisterHandlers(dispatcher *notification.MemoryDispatcher) {
	if dispatcher == nil {
		return
	}
	dispatcher.Subscribe(s.Deliver)
}
