package account

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Max length constants for user-editable fields.
const (
	MaxUsernameLength = 64
)

// bcryptCost is the work factor for stored password hashes.
const bcryptCost = 12

// Domain errors
var (
	ErrEmptyUsername    = errors.New("username cannot be empty")
	ErrUsernameTooLong  = errors.New("username cannot exceed 64 characters")
	ErrEmptyPassword    = errors.New("password cannot be empty")
	ErrWrongPassword    = errors.New("incorrect password")
	ErrAccountNotFound  = errors.New("admin account not found")
	ErrUsernameConflict = errors.New("an admin with this username already exists")
)

// Admin holds state for an administrator who manages signups.
type Admin struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Validate checks if the Admin has valid data.
// PRE: Admin struct is populated
// POST: Returns nil if valid, error otherwise
func (a *Admin) Validate() error {
	if strings.TrimSpace(a.Username) == "" {
		return ErrEmptyUsername
	}
	if len(a.Username) > MaxUsernameLength {
		return ErrUsernameTooLong
	}
	return nil
}

// SetPassword hashes and stores a password using bcrypt.
// PRE: plaintext is non-empty
// POST: PasswordHash is set to a salted bcrypt hash
func (a *Admin) SetPassword(plaintext string) error {
	if plaintext == "" {
		return ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcryptCost)
	if err != nil {
		return err
	}
	a.PasswordHash = string(hash)
	return nil
}

// CheckPassword verifies a plaintext password against the stored hash.
// PRE: PasswordHash is set
// INVARIANT: Admin fields are not mutated
func (a *Admin) CheckPassword(plaintext string) error {
	if a.PasswordHash == "" {
		return ErrWrongPassword
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(plaintext)); err != nil {
		return ErrWrongPassword
	}
	return nil
}

// dummyHash is compared against when the username is unknown so that a failed
// lookup costs the same as a failed password check.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("frontporch-timing-equaliser"), bcryptCost)

// BurnPasswordCheck performs a bcrypt comparison that always fails.
func BurnPasswordCheck(plaintext string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(plaintext))
}
