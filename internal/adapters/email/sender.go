package email

import (
	"context"
	"time"
)

// Message is one email to hand to a provider.
type Message struct {
	To      []string
	From    string // e.g. "Front Porch <volunteers@example.org>"; empty uses the sender default
	Subject string
	HTML    string
	Text    string
}

// Receipt is what the provider returned for an accepted message.
type Receipt struct {
	MessageID string
	SentAt    time.Time
}

// Sender delivers email through an external provider.
type Sender interface {
	Send(ctx context.Context, msg Message) (Receipt, error)
}
