package mail

import (
	"fmt"

	"go.uber.org/zap"
	gomail "gopkg.in/gomail.v2"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

type Mailer interface {
	Send(msg *Message) error
}

type smtpMailer struct {
	dialer *gomail.Dialer
	from   string
	logger *zap.Logger
}

func NewSMTPMailer(host string, port int, username, password, from string, l *zap.Logger) Mailer {
	return &smtpMailer{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
		logger: l,
	}
}

func (m *smtpMailer) Send(msg *Message) error {
	mail := gomail.NewMessage()
	mail.SetHeader("From", m.from)
	mail.SetHeader("To", msg.To)
	mail.SetHeader("Subject", msg.Subject)
	mail.SetBody("text/plain", msg.Body)

	if err := m.dialer.DialAndSend(mail); err != nil {
		m.logger.Error("Failed to send mail", zap.String("to", msg.To), zap.Error(err))
		return fmt.Errorf("failed to send mail to %s: %w", msg.To, err)
	}
	m.logger.Debug("Mail sent", zap.String("to", msg.To))
	return nil
}
