// Package user defines system users and their password lifecycle.
package user

import (
	"fmt"
	"strings"

	"github.com/amonks/tareas/internal/password"
)

// Role determines which actions a user may take.
type Role string

const (
	// RoleStandard is a regular user.
	RoleStandard Role = "standard"
	// RoleAdmin may manage users and administer tasks.
	RoleAdmin Role = "admin"
)

// ValidRoles returns all valid role values.
func ValidRoles() []Role {
	return []Role{RoleStandard, RoleAdmin}
}

// IsValid returns true if the role is a known value.
func (r Role) IsValid() bool {
	for _, valid := range ValidRoles() {
		if r == valid {
			return true
		}
	}
	return false
}

// ParseRole normalizes a role name. "user" is accepted as standard.
func ParseRole(value string) (Role, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "user" {
		return RoleStandard, nil
	}
	role := Role(normalized)
	if err := ValidateRole(role); err != nil {
		return "", err
	}
	return role, nil
}

// User is an account in the system.
type User struct {
	// Name is the unique, case-sensitive identifier. It never changes.
	Name string `json:"name"`

	// Role is the user's permission level.
	Role Role `json:"role"`

	// PasswordHash is nil until the user sets a password.
	PasswordHash []byte `json:"-"`
}

// New creates a user without a password.
func New(name string, role Role) (*User, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if err := ValidateRole(role); err != nil {
		return nil, err
	}
	return &User{Name: name, Role: role}, nil
}

// IsAdmin reports whether the user has the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// HasPassword reports whether a password has been set.
func (u *User) HasPassword() bool {
	return len(u.PasswordHash) > 0
}

// SetPassword stores the first password for a user. Use ChangePassword
// once a password exists.
func (u *User) SetPassword(plain string) error {
	if u.HasPassword() {
		return ErrPasswordAlreadySet
	}
	return u.storePassword(plain)
}

// VerifyPassword reports whether plain matches the stored password.
func (u *User) VerifyPassword(plain string) bool {
	return password.Verify(u.PasswordHash, plain)
}

// ChangePassword replaces the password after verifying the current one.
func (u *User) ChangePassword(current, next string) error {
	if !u.VerifyPassword(current) {
		return ErrInvalidCredentials
	}
	if current == next {
		return ErrSamePassword
	}
	return u.storePassword(next)
}

// ResetPassword clears the password so the user must set a new one on
// next login.
func (u *User) ResetPassword() {
	u.PasswordHash = nil
}

func (u *User) storePassword(plain string) error {
	if plain == "" {
		return ErrEmptyPassword
	}
	if len(plain) > password.MaxBytes {
		return fmt.Errorf("%w: at most %d bytes", ErrPasswordTooLong, password.MaxBytes)
	}
	hash, err := password.Hash(plain)
	if err != nil {
		return fmt.Errorf("set password for %s: %w", u.Name, err)
	}
	u.PasswordHash = hash
	return nil
}

// Clone returns a deep copy of the user.
func (u *User) Clone() User {
	clone := *u
	if u.PasswordHash != nil {
		clone.PasswordHash = append([]byte(nil), u.PasswordHash...)
	}
	return clone
}
