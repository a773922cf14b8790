package signup

import (
	"context"

	domain "frontporch/internal/domain/signup"
	"frontporch/internal/domain/slot"
)

// Store persists Signup state.
type Store interface {
	Insert(ctx context.Context, value domain.Signup) (domain.Signup, error)
	GetByID(ctx context.Context, id int64) (domain.Signup, error)
	ListAll(ctx context.Context) ([]domain.Signup, error)
	ListBySlot(ctx context.Context, sl slot.Slot) ([]domain.Signup, error)
	Delete(ctx context.Context, id int64) (bool, error)
	UpdateSlot(ctx context.Context, id int64, target slot.Slot) error
	Count(ctx context.Context) (int, error)
	CountByDay(ctx context.Context) (map[string]int, error)
	CountByHour(ctx context.Context) (map[int]int, error)
	WithinSlots(ctx context.Context, slots []slot.Slot, fn func(tx Tx) error) error
	ReplaceAll(ctx context.Context, values []domain.Signup) error
}

// Tx is the view of the store available inside WithinSlots.
// Every call runs on the same database transaction.
type Tx interface {
	CountInSlot(ctx context.Context, sl slot.Slot, excludeID int64) (int, error)
	Insert(ctx context.Context, value domain.Signup) (domain.Signup, error)
	GetByID(ctx context.Context, id int64) (domain.Signup, error)
	UpdateSlot(ctx context.Context, id int64, target slot.Slot) error
}
