// Package mail delivers outbound email over SMTP, holding one
// connection open across a run and replacing it after a detected
// disconnect.
package mail

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/halduskeskus/postiljon/internal/config"
	"github.com/halduskeskus/postiljon/internal/dispatch"
)

// Mailer is a dispatch.Sender backed by a reusable SMTP connection.
// It is a two-state machine: disconnected (conn == nil) and connected.
// Send dials lazily, Reset forces the next Send onto a fresh
// connection. Not safe for concurrent use; a run is sequential.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
	conn   gomail.SendCloser
}

// New builds a Mailer for a client's SMTP account.
func New(client *config.Client) *Mailer {
	return &Mailer{
		dialer: gomail.NewDialer(client.SMTPHost, client.SMTPPort, client.EmailUser, client.EmailPassword),
		from:   client.EmailUser,
	}
}

// Send delivers one message, dialing first if there is no live
// connection.
func (m *Mailer) Send(ctx context.Context, msg *dispatch.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if m.conn == nil {
		conn, err := m.dialer.Dial()
		if err != nil {
			return fmt.Errorf("smtp dial: %w", err)
		}
		m.conn = conn
	}

	gm := gomail.NewMessage()
	gm.SetHeader("From", m.from)
	gm.SetHeader("To", msg.To...)
	if msg.Bcc != "" {
		gm.SetHeader("Bcc", msg.Bcc)
	}
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/plain", msg.Body)
	if msg.Attachment != "" {
		gm.Attach(msg.Attachment)
	}

	if err := gomail.Send(m.conn, gm); err != nil {
		// A failed send leaves the session in an unknown state.
		// Transition to disconnected so the next Send re-dials.
		if Transient(err) {
			m.Reset()
		}
		return err
	}
	return nil
}

// Reset drops the current connection. The next Send dials a new one.
func (m *Mailer) Reset() {
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
}

// Close releases the connection at the end of a run.
func (m *Mailer) Close() error {
	if m.conn == nil {
		return nil
	}
	err := m.conn.Close()
	m.conn = nil
	return err
}
