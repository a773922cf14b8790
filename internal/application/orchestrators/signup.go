package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	signupStore "frontporch/internal/adapters/storage/signup"
	"frontporch/internal/domain/signup"
	"frontporch/internal/domain/slot"
)

// SlotTransactor runs capacity-checked work on a set of slots.
type SlotTransactor interface {
	WithinSlots(ctx context.Context, slots []slot.Slot, fn func(tx signupStore.Tx) error) error
}

// --- Create Signup ---

// CreateSignupInput carries input for the create-signup orchestrator.
type CreateSignupInput struct {
	Day   string
	Hour  int
	Names []string
}

// CreateSignupResult reports which names were booked.
// Dropped holds the names that did not fit, in request order.
type CreateSignupResult struct {
	Slot     slot.Slot
	Accepted []signup.Signup
	Dropped  []string
}

// CreateSignupDeps holds dependencies for CreateSignup.
type CreateSignupDeps struct {
	SignupStore SlotTransactor
	Now         func() time.Time
}

// ExecuteCreateSignup books as many of the requested names into one slot as fit.
// PRE: none; all input is validated here
// POST: min(remaining, len(names)) signups persisted, the rest reported as Dropped
// INVARIANT: Occupancy of the slot never exceeds slot.Capacity
func ExecuteCreateSignup(ctx context.Context, input CreateSignupInput, deps CreateSignupDeps) (CreateSignupResult, error) {
	if err := slot.Validate(input.Day, input.Hour); err != nil {
		return CreateSignupResult{}, err
	}
	names, err := signup.CleanNames(input.Names)
	if err != nil {
		return CreateSignupResult{}, err
	}

	target := slot.Slot{Day: input.Day, Hour: input.Hour}
	result := CreateSignupResult{Slot: target}
	now := clock(deps.Now)

	err = deps.SignupStore.WithinSlots(ctx, []slot.Slot{target}, func(tx signupStore.Tx) error {
		occupied, err := tx.CountInSlot(ctx, target, 0)
		if err != nil {
			return err
		}
		remaining := slot.Capacity - occupied
		if remaining <= 0 {
			return slot.ErrSlotFull
		}

		accept := names
		if len(accept) > remaining {
			accept = names[:remaining]
			result.Dropped = names[remaining:]
		}
		for _, name := range accept {
			created, err := tx.Insert(ctx, signup.Signup{
				Day:       target.Day,
				Hour:      target.Hour,
				Name:      name,
				CreatedAt: now,
			})
			if err != nil {
				return err
			}
			result.Accepted = append(result.Accepted, created)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, slot.ErrSlotFull) {
			slog.Info("signup_event", "event", "rejected_full", "slot", target.Key(), "requested", len(names))
		}
		return CreateSignupResult{}, err
	}

	event := "created"
	if len(result.Dropped) > 0 {
		event = "partial"
	}
	slog.Info("signup_event", "event", event, "slot", target.Key(),
		"accepted", len(result.Accepted), "dropped", len(result.Dropped))
	return result, nil
}

// --- Delete Signup ---

// SignupStoreForDelete defines the store interface needed by DeleteSignup.
type SignupStoreForDelete interface {
	Delete(ctx context.Context, id int64) (bool, error)
}

// DeleteSignupDeps holds dependencies for DeleteSignup.
type DeleteSignupDeps struct {
	SignupStore SignupStoreForDelete
}

// ExecuteDeleteSignup removes a signup. A missing id is not an error.
// PRE: caller is an authenticated admin
// POST: No signup with id exists; reports whether this call removed it
func ExecuteDeleteSignup(ctx context.Context, id int64, deps DeleteSignupDeps) (bool, error) {
	removed, err := deps.SignupStore.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	if removed {
		slog.Info("signup_event", "event", "deleted", "signup_id", id)
	}
	return removed, nil
}

// --- Move Signup ---

// MoveSignupInput carries input for the move-signup orchestrator.
type MoveSignupInput struct {
	ID   int64
	Day  string
	Hour int
}

// MoveSignupDeps holds dependencies for MoveSignup.
type MoveSignupDeps struct {
	SignupStore SlotTransactor
}

// ExecuteMoveSignup relocates a signup to another available slot.
// PRE: caller is an authenticated admin
// POST: Signup has the target day and hour; id and name unchanged
// INVARIANT: Target occupancy, not counting the moved signup, stays below slot.Capacity
func ExecuteMoveSignup(ctx context.Context, input MoveSignupInput, deps MoveSignupDeps) (signup.Signup, error) {
	if !slot.IsAvailable(input.Day, input.Hour) {
		return signup.Signup{}, slot.ErrInvalidSlot
	}
	target := slot.Slot{Day: input.Day, Hour: input.Hour}

	var moved signup.Signup
	var from slot.Slot
	err := deps.SignupStore.WithinSlots(ctx, []slot.Slot{target}, func(tx signupStore.Tx) error {
		current, err := tx.GetByID(ctx, input.ID)
		if err != nil {
			return err
		}
		others, err := tx.CountInSlot(ctx, target, input.ID)
		if err != nil {
			return err
		}
		if others >= slot.Capacity {
			return slot.ErrSlotFull
		}
		if current.Slot() != target {
			if err := tx.UpdateSlot(ctx, input.ID, target); err != nil {
				return err
			}
		}
		from = current.Slot()
		current.Day, current.Hour = target.Day, target.Hour
		moved = current
		return nil
	})
	if err != nil {
		return signup.Signup{}, err
	}
	slog.Info("signup_event", "event", "moved", "signup_id", input.ID,
		"from", from.Key(), "to", target.Key())
	return moved, nil
}

func clock(now func() time.Time) time.Time {
	if now == nil {
		return time.Now().UTC()
	}
	return now()
}
