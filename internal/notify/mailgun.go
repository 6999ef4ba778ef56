// Package notify sends an email when a poll receives a new response.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/mailgun/mailgun-go/v4"

	"growset/config"
	"growset/internal/poll/model"
	"growset/pkg/logger"
)

// Mailgun delivers notifications through the Mailgun messages API.
type Mailgun struct {
	mg       *mailgun.MailgunImpl
	from     string
	to       string
	hostname string
}

// NewMailgun returns nil when mail settings are incomplete, which callers
// treat as "notifications disabled".
func NewMailgun(cfg config.Config) *Mailgun {
	if !cfg.MailConfigured() {
		logger.Sugar.Info("Mail settings absent, notifications disabled")
		return nil
	}
	mg := mailgun.NewMailgun(cfg.MailgunDomain, cfg.MailgunKey)
	if cfg.MailgunAPIBase != "" {
		mg.SetAPIBase(cfg.MailgunAPIBase)
	}
	return &Mailgun{
		mg:       mg,
		from:     cfg.MailgunFrom,
		to:       cfg.EmailTo,
		hostname: cfg.Hostname,
	}
}

// NotifyEntry sends one message describing the new entry.
func (m *Mailgun) NotifyEntry(ctx context.Context, poll model.Poll, entry model.Entry) error {
	subject, body := Compose(m.hostname, poll, entry)
	message := m.mg.NewMessage(m.from, subject, body, m.to)
	_, id, err := m.mg.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	logger.Sugar.Infof("Sent notification %s for poll %s", id, poll.ID)
	return nil
}

// Compose builds the subject and plain-text body of a notification.
func Compose(hostname string, poll model.Poll, entry model.Entry) (string, string) {
	var b strings.Builder
	if poll.IsVote() {
		fmt.Fprintf(&b, "%s voted: %s\n", entry.Responder, strings.Join(entry.Choices, ", "))
	} else {
		fmt.Fprintf(&b, "New element: %s\n", entry.Element)
	}
	fmt.Fprintf(&b, "\nhttps://%s/%s\n", hostname, poll.ID)
	return "New response to " + poll.Title, b.String()
}
