package utils

import (
	"fmt"
	"log/slog"
	"net/smtp"
)

// Mailer sends outbound transactional mail. The SMTP implementation is used
// in deployments; LogMailer serves development and tests.
type Mailer interface {
	SendPasswordResetEmail(email, token string) error
}

type SMTPMailer struct {
	host string
	port string
	from string
	pass string
}

func NewSMTPMailer(host, port, from, pass string) *SMTPMailer {
	return &SMTPMailer{host: host, port: port, from: from, pass: pass}
}

func (m *SMTPMailer) SendPasswordResetEmail(email, token string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: Reset your password\r\n\r\n"+
		"A password reset was requested for your account.\r\n\r\n"+
		"Reset token: %s\r\n\r\n"+
		"If you did not request this, you can ignore this email.\r\n",
		m.from, email, token)

	auth := smtp.PlainAuth("", m.from, m.pass, m.host)
	addr := m.host + ":" + m.port
	return smtp.SendMail(addr, auth, m.from, []string{email}, []byte(msg))
}

// LogMailer logs instead of sending. Used when SMTP is not configured.
type LogMailer struct{}

func (LogMailer) SendPasswordResetEmail(email, token string) error {
	slog.Info("password reset email (not sent, SMTP not configured)",
		"email", email, "token", token)
	return nil
}
