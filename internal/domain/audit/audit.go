package audit

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Action names what an admin (or the restore tool) did.
type Action string

const (
	ActionLogin        Action = "login"
	ActionLoginFailed  Action = "login_failed"
	ActionLogout       Action = "logout"
	ActionDeleteSignup Action = "delete_signup"
	ActionMoveSignup   Action = "move_signup"
	ActionExport       Action = "export"
	ActionRestore      Action = "restore"
)

// Domain errors
var (
	ErrEmptyActor  = errors.New("audit event needs an actor")
	ErrEmptyAction = errors.New("audit event needs an action")
)

// Event is one entry in the admin activity log.
type Event struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Action      Action    `json:"action"`
	Actor       string    `json:"actor"`
	ResourceID  string    `json:"resource_id"`
	Description string    `json:"description"`
	IPAddress   string    `json:"ip_address"`
}

// NewEvent creates an event stamped with now.
// PRE: actor and action are non-empty
// POST: Returns an Event with a fresh random ID
func NewEvent(actor string, action Action, now time.Time) Event {
	return Event{
		ID:        uuid.NewString(),
		Timestamp: now.UTC(),
		Action:    action,
		Actor:     actor,
	}
}

// WithResource sets the id of the signup the action touched.
func (e Event) WithResource(id string) Event {
	e.ResourceID = id
	return e
}

// WithDescription sets the human-readable summary.
func (e Event) WithDescription(desc string) Event {
	e.Description = desc
	return e
}

// WithRequest sets the client address the action came from.
func (e Event) WithRequest(ipAddress string) Event {
	e.IPAddress = ipAddress
	return e
}

// Validate checks the fields every stored event needs.
func (e Event) Validate() error {
	if e.Actor == "" {
		return ErrEmptyActor
	}
	if e.Action == "" {
		return ErrEmptyAction
	}
	return nil
}
