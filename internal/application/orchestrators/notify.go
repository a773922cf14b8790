package orchestrators

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"strings"

	emailAdapter "frontporch/internal/adapters/email"
	"frontporch/internal/domain/slot"
)

// NotifySignupInput describes a booking to report to coordinators.
type NotifySignupInput struct {
	Slot     slot.Slot
	Accepted []string
	Dropped  []string
}

// NotifySignupDeps holds dependencies for NotifySignup.
type NotifySignupDeps struct {
	Sender emailAdapter.Sender
	To     []string
	From   string
}

var notifyTemplate = template.Must(template.New("notify").Parse(`<p>New volunteer signup for <strong>{{.When}}</strong>:</p>
<ul>{{range .Accepted}}<li>{{.}}</li>{{end}}</ul>
{{if .Dropped}}<p>The slot filled up before these names could be added: {{range $i, $n := .Dropped}}{{if $i}}, {{end}}{{$n}}{{end}}.</p>{{end}}`))

// ExecuteNotifySignup emails coordinators about accepted signups.
// Nothing is sent when no recipients are configured or nobody was accepted.
// PRE: none
// POST: One message handed to the sender, or none
func ExecuteNotifySignup(ctx context.Context, input NotifySignupInput, deps NotifySignupDeps) error {
	if deps.Sender == nil || len(deps.To) == 0 || len(input.Accepted) == 0 {
		return nil
	}

	when := input.Slot.Day + " " + slot.FormatHourLong(input.Slot.Hour)
	var body bytes.Buffer
	if err := notifyTemplate.Execute(&body, map[string]any{
		"When":     when,
		"Accepted": input.Accepted,
		"Dropped":  input.Dropped,
	}); err != nil {
		return fmt.Errorf("render notification: %w", err)
	}

	text := fmt.Sprintf("New volunteer signup for %s: %s", when, strings.Join(input.Accepted, ", "))
	receipt, err := deps.Sender.Send(ctx, emailAdapter.Message{
		To:      deps.To,
		From:    deps.From,
		Subject: fmt.Sprintf("Front Porch: %d new signup(s) for %s", len(input.Accepted), when),
		HTML:    body.String(),
		Text:    text,
	})
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	slog.Info("signup_event", "event", "coordinator_notified", "slot", input.Slot.Key(), "message_id", receipt.MessageID)
	return nil
}
