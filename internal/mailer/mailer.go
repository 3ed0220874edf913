// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package mailer delivers composed digests over SMTP, or prints them when
// running in print-only mode.
package mailer

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/wneessen/go-mail"

	"github.com/pdiddy/sonar/pkg/types"
)

// Mode selects between real SMTP submission and print-only display.
type Mode int

const (
	// ModeSend submits the message to the configured relay.
	ModeSend Mode = iota

	// ModePrint writes the message to the output sink instead. Print-only
	// delivery never fails, so it still advances the watermark.
	ModePrint
)

// Mailer delivers digest messages. The SMTP settings are fixed at
// construction; nothing is read from ambient configuration.
type Mailer struct {
	cfg types.SMTPConfig
	out io.Writer
	log *slog.Logger
}

// New returns a Mailer that sends via cfg and prints to out in ModePrint.
func New(cfg types.SMTPConfig, out io.Writer, log *slog.Logger) *Mailer {
	return &Mailer{cfg: cfg, out: out, log: log}
}

// Deliver sends or prints msg. In ModeSend each call opens one relay
// connection, sends, and closes; a transport error is returned without
// retrying. In ModePrint it writes msg to the sink and always succeeds.
func (m *Mailer) Deliver(ctx context.Context, msg types.Message, mode Mode) error {
	if mode == ModePrint {
		m.log.Info("print-only mode enabled, email would have been sent",
			"to", msg.Recipient)
		fmt.Fprintf(m.out, "Print-Only Mode: Email to %s:\nSubject: %s\nBody:\n%s\n\n",
			msg.Recipient, msg.Subject, msg.Body)
		return nil
	}

	email := mail.NewMsg()
	if err := email.From(m.cfg.From); err != nil {
		return fmt.Errorf("invalid from address %q: %w", m.cfg.From, err)
	}
	if err := email.To(msg.Recipient); err != nil {
		return fmt.Errorf("invalid recipient %q: %w", msg.Recipient, err)
	}
	email.Subject(msg.Subject)
	email.SetBodyString(mail.TypeTextHTML, msg.Body)

	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if m.cfg.Username != "" && m.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}

	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("configuring SMTP client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, email); err != nil {
		return fmt.Errorf("sending to %s via %s:%d: %w",
			msg.Recipient, m.cfg.Host, m.cfg.Port, err)
	}

	m.log.Info("email sent", "to", msg.Recipient)
	return nil
}
