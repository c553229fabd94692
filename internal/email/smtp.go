// Package email delivers HTML mail over SMTP.
package email

import (
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"
)

const defaultFromName = "WChic Sistema"

// SMTPSender delivers mail through an authenticated SMTP relay.
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	fromName string
}

// NewSMTPSender returns nil when no credentials are configured. The
// username doubles as the sender address.
func NewSMTPSender(host string, port int, username, password string) *SMTPSender {
	if username == "" || password == "" {
		return nil
	}
	return &SMTPSender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		fromName: defaultFromName,
	}
}

// Send delivers one HTML message. A nil sender is a no-op.
func (s *SMTPSender) Send(ctx context.Context, toEmail, subject, htmlContent string) error {
	if s == nil {
		return nil
	}

	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.username); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSMandatory),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
