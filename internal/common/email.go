package common

import (
	"sync"

	"github.com/rs/zerolog"
)

// EmailSender defines the contract for sending emails.
type EmailSender interface {
	Send(to, subject, body string) error
}

// InMemoryEmail provides a test-friendly email sender that records messages.
type InMemoryEmail struct {
	mu     sync.Mutex
	Outbox []Email
}

// Email represents a single email message captured by InMemoryEmail.
type Email struct {
	To      string
	Subject string
	Body    string
}

// Send records the email in memory.
func (m *InMemoryEmail) Send(to, subject, body string) error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Outbox = append(m.Outbox, Email{To: to, Subject: subject, Body: body})
	return nil
}

// Sent returns a copy of the recorded messages.
func (m *InMemoryEmail) Sent() []Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Email(nil), m.Outbox...)
}

// LogEmailSender writes outgoing mail to the logger instead of an SMTP relay.
type LogEmailSender struct {
	Logger zerolog.Logger
}

// Send implements EmailSender.
func (l LogEmailSender) Send(to, subject, body string) error {
	l.Logger.Info().Str("to", to).Str("subject", subject).Int("bytes", len(body)).Msg("email dispatched")
	return nil
}
