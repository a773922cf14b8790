package audit

import (
	"errors"
	"testing"
	"time"
)

// TestNewEvent_Builders verifies the builder chain and UTC stamping.
func TestNewEvent_Builders(t *testing.T) {
	now := time.Date(2026, 5, 4, 21, 30, 0, 0, time.FixedZone("NZST", 12*3600))
	e := NewEvent("frontporchadmin", ActionMoveSignup, now).
		WithResource("42").
		WithDescription("Ada Lovelace: Monday@9 -> Tuesday@10").
		WithRequest("203.0.113.9")

	if e.ID == "" {
		t.Error("ID not generated")
	}
	if e.Timestamp.Location() != time.UTC || !e.Timestamp.Equal(now) {
		t.Errorf("Timestamp = %v, want %v in UTC", e.Timestamp, now)
	}
	if e.ResourceID != "42" || e.IPAddress != "203.0.113.9" || e.Description == "" {
		t.Errorf("event = %+v", e)
	}
	if err := e.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}

	other := NewEvent("frontporchadmin", ActionMoveSignup, now)
	if other.ID == e.ID {
		t.Error("IDs collide")
	}
}

// TestEvent_Validate verifies the required fields.
func TestEvent_Validate(t *testing.T) {
	if err := NewEvent("", ActionLogin, time.Now()).Validate(); !errors.Is(err, ErrEmptyActor) {
		t.Errorf("err = %v, want ErrEmptyActor", err)
	}
	if err := NewEvent("x", "", time.Now()).Validate(); !errors.Is(err, ErrEmptyAction) {
		t.Errorf("err = %v, want ErrEmptyAction", err)
	}
}
