package user

import (
	"errors"
	"fmt"

	"github.com/amonks/tareas/internal/validation"
)

const (
	// MinNameLength is the shortest allowed user name.
	MinNameLength = 3
	// MaxNameLength is the longest allowed user name.
	MaxNameLength = 20
)

var (
	// ErrInvalidName is returned when a user name breaks the naming rules.
	ErrInvalidName = errors.New("invalid user name")

	// ErrInvalidRole is returned when a role is not a known value.
	ErrInvalidRole = errors.New("invalid role")

	// ErrPasswordAlreadySet is returned when setting an initial password twice.
	ErrPasswordAlreadySet = errors.New("password already set")

	// ErrInvalidCredentials is returned when the current password does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrSamePassword is returned when a new password equals the current one.
	ErrSamePassword = errors.New("new password must be different")

	// ErrEmptyPassword is returned when a password is empty.
	ErrEmptyPassword = errors.New("password cannot be empty")

	// ErrPasswordTooLong is returned when a password exceeds password.MaxBytes.
	ErrPasswordTooLong = errors.New("password is too long")
)

// ValidateName checks that name is 3-20 letters, digits, or underscores.
func ValidateName(name string) error {
	if len(name) < MinNameLength || len(name) > MaxNameLength {
		return fmt.Errorf("%w: %q must be %d-%d characters", ErrInvalidName, name, MinNameLength, MaxNameLength)
	}
	for _, r := range name {
		if !isNameRune(r) {
			return fmt.Errorf("%w: %q may only contain letters, digits, and underscores", ErrInvalidName, name)
		}
	}
	return nil
}

// ValidateRole checks that role is a known value.
func ValidateRole(role Role) error {
	return validation.OneOf(ErrInvalidRole, role, ValidRoles())
}

// Validate checks a loaded user for consistency.
func Validate(u *User) error {
	if err := ValidateName(u.Name); err != nil {
		return err
	}
	return ValidateRole(u.Role)
}

func isNameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		return true
	default:
		return false
	}
}
