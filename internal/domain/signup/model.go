package signup

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"frontporch/internal/domain/slot"
)

// MaxNameLength is the longest volunteer display name accepted, in runes.
const MaxNameLength = 100

// Domain errors
var (
	ErrEmptyName      = errors.New("volunteer name cannot be empty")
	ErrNameTooLong    = errors.New("volunteer name cannot exceed 100 characters")
	ErrEmptyRequest   = errors.New("at least one name is required")
	ErrSignupNotFound = errors.New("signup not found")
)

// Signup is one volunteer booked into one slot.
type Signup struct {
	ID        int64
	Day       string
	Hour      int
	Name      string
	CreatedAt time.Time
}

// Slot returns the grid position of the signup.
func (s Signup) Slot() slot.Slot {
	return slot.Slot{Day: s.Day, Hour: s.Hour}
}

// Validate checks if the Signup has valid data.
// PRE: Signup struct is populated
// POST: Returns nil if valid, error otherwise
func (s *Signup) Validate() error {
	if !slot.InGrid(s.Day, s.Hour) {
		return slot.ErrInvalidSlot
	}
	if strings.TrimSpace(s.Name) == "" {
		return ErrEmptyName
	}
	if utf8.RuneCountInString(s.Name) > MaxNameLength {
		return ErrNameTooLong
	}
	return nil
}

// NormalizeName trims surrounding whitespace and returns the NFC form of name.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// FullName joins a first and last name part into one display name.
// Either part may be empty; the result is trimmed.
func FullName(first, last string) string {
	return NormalizeName(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}

// CleanNames normalises names and drops the empty ones, preserving order.
// PRE: none
// POST: Returns the usable names, or ErrEmptyRequest / ErrNameTooLong
func CleanNames(names []string) ([]string, error) {
	cleaned := make([]string, 0, len(names))
	for _, n := range names {
		n = NormalizeName(n)
		if n == "" {
			continue
		}
		if utf8.RuneCountInString(n) > MaxNameLength {
			return nil, ErrNameTooLong
		}
		cleaned = append(cleaned, n)
	}
	if len(cleaned) == 0 {
		return nil, ErrEmptyRequest
	}
	return cleaned, nil
}
