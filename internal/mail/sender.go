// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridauth Contributors

// Package mail delivers password-reset links to users.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/samber/oops"
)

// SMTPSender delivers reset links over SMTP.
type SMTPSender struct {
	addr    string
	from    string
	appName string
	auth    smtp.Auth
}

// NewSMTPSender creates an SMTPSender. username and password are
// optional; when empty the connection is unauthenticated (local relay).
func NewSMTPSender(addr, from, appName, username, password string) *SMTPSender {
	var auth smtp.Auth
	if username != "" {
		host := addr
		if i := strings.LastIndex(addr, ":"); i >= 0 {
			host = addr[:i]
		}
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPSender{addr: addr, from: from, appName: appName, auth: auth}
}

// SendResetLink sends the password-reset email.
func (s *SMTPSender) SendResetLink(ctx context.Context, recipient, link string) error {
	if err := ctx.Err(); err != nil {
		return oops.Code("MAIL_SEND_FAILED").Wrap(err)
	}
	msg := buildResetMessage(s.from, recipient, s.appName, link)
	if err := smtp.SendMail(s.addr, s.auth, s.from, []string{recipient}, msg); err != nil {
		return oops.Code("MAIL_SEND_FAILED").
			With("recipient", recipient).
			Wrap(err)
	}
	return nil
}

// buildResetMessage composes the reset email. The body warns about the
// shorter confirm-token window, not the request-token one: by the time
// the user clicks, the 10-minute clock is what matters.
func buildResetMessage(from, to, appName, link string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	b.WriteString("Subject: Password Reset\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	fmt.Fprintf(&b, `<div>
  <p>Please click the button below to reset your password</p>
  <a href="%s">Reset Password</a>
  <p><a href="%s">Link</a> expires in 10 minutes</p>
  <p>Please copy the link and paste in a browser if clicking the button does not work.</p>
  <p>If you did not initiate this request, please ignore this message</p>
</div>
<p>Regards,</p>
<p>%s</p>
`, link, link, appName)
	return []byte(b.String())
}

// LogSender logs reset links instead of sending them. It is the
// short-circuit sender for non-production environments and tests.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// SendResetLink logs the link and reports success.
func (s *LogSender) SendResetLink(_ context.Context, recipient, link string) error {
	s.logger.Info("reset link dispatch short-circuited",
		"recipient", recipient,
		"link", link,
	)
	return nil
}
