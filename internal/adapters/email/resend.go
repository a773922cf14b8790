package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/resend/resend-go/v2"
)

// ErrNoRecipients is returned when a message has nobody to go to.
var ErrNoRecipients = errors.New("email has no recipients")

// ResendSender delivers through the Resend API.
type ResendSender struct {
	client      *resend.Client
	defaultFrom string
}

// NewResendSender returns a sender using apiKey; from is used when a Message leaves From empty.
// PRE: apiKey is a Resend API key
func NewResendSender(apiKey, from string) *ResendSender {
	return &ResendSender{client: resend.NewClient(apiKey), defaultFrom: from}
}

// request maps msg onto the Resend payload.
func (s *ResendSender) request(msg Message) *resend.SendEmailRequest {
	req := &resend.SendEmailRequest{
		From:    msg.From,
		To:      msg.To,
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	}
	if req.From == "" {
		req.From = s.defaultFrom
	}
	return req
}

// Send hands msg to Resend.
// PRE: msg has at least one recipient
// POST: Receipt carries the Resend message ID
func (s *ResendSender) Send(ctx context.Context, msg Message) (Receipt, error) {
	if len(msg.To) == 0 {
		return Receipt{}, ErrNoRecipients
	}
	resp, err := s.client.Emails.SendWithContext(ctx, s.request(msg))
	if err != nil {
		slog.Error("email_send_failed", "provider", "resend", "error", err, "recipients", len(msg.To))
		return Receipt{}, fmt.Errorf("send %q via resend: %w", msg.Subject, err)
	}
	slog.Info("email_sent", "provider", "resend", "message_id", resp.Id, "recipients", len(msg.To))
	return Receipt{MessageID: resp.Id, SentAt: time.Now()}, nil
}
