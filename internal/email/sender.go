package email

import (
	"fmt"
	"log"
	"net/smtp"
	"strings"

	"github.com/Ryz0n/auth-service/internal/config"
)

// Sender delivers security-sensitive mail. Delivery and rendering are
// external concerns; the auth handlers only ever hand secrets to a Sender,
// never to an HTTP response.
type Sender interface {
	SendResetCode(to, username, code string) error
	SendVerificationLink(to, username, verifyURL string) error
}

// SMTPSender sends through a plain SMTP relay.
type SMTPSender struct {
	addr string
	auth smtp.Auth
	from string
}

func NewSMTPSender(cfg *config.Config) *SMTPSender {
	host := cfg.SMTPAddr
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	return &SMTPSender{
		addr: cfg.SMTPAddr,
		auth: smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPass, host),
		from: cfg.SMTPFrom,
	}
}

func (s *SMTPSender) SendResetCode(to, username, code string) error {
	msg := fmt.Sprintf(
		"Subject: Your password reset code\n\nHi %s,\n\nYour reset code is: %s\nIt expires in 15 minutes. If you didn't request this, ignore this email.\n",
		username, code,
	)
	return smtp.SendMail(s.addr, s.auth, s.from, []string{to}, []byte(msg))
}

func (s *SMTPSender) SendVerificationLink(to, username, verifyURL string) error {
	msg := fmt.Sprintf(
		"Subject: Verify your email\n\nHi %s,\n\nPlease verify your email: %s\nThis link expires in 24 hours.\n",
		username, verifyURL,
	)
	return smtp.SendMail(s.addr, s.auth, s.from, []string{to}, []byte(msg))
}

// LogSender is the development fallback when no SMTP relay is configured.
// It prints what would have been sent. Not for production use.
type LogSender struct{}

func (LogSender) SendResetCode(to, username, code string) error {
	log.Printf("📧 [dev] reset code for %s <%s>: %s", username, to, code)
	return nil
}

func (LogSender) SendVerificationLink(to, username, verifyURL string) error {
	log.Printf("📧 [dev] verification link for %s <%s>: %s", username, to, verifyURL)
	return nil
}

// FromConfig picks the SMTP sender when a relay is configured and the dev
// logger otherwise.
func FromConfig(cfg *config.Config) Sender {
	if cfg.SMTPAddr == "" {
		return LogSender{}
	}
	return NewSMTPSender(cfg)
}
