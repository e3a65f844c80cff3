package core

import (
	"strings"

	"github.com/amonks/tareas/internal/password"
	"github.com/amonks/tareas/user"
)

// UserFilter narrows ListUsers.
type UserFilter struct {
	// Role keeps only users with this role when set.
	Role user.Role
	// Search keeps users whose name contains it, case-insensitively.
	Search string
}

// HasAdmin reports whether at least one admin exists.
func (c *Coordinator) HasAdmin() bool {
	var found bool
	c.view(func() {
		found = c.hasAdmin()
	})
	return found
}

func (c *Coordinator) hasAdmin() bool {
	for _, u := range c.users {
		if u.IsAdmin() {
			return true
		}
	}
	return false
}

// BootstrapAdmin creates the first admin with a password. It fails once
// any admin exists.
func (c *Coordinator) BootstrapAdmin(name, plain string) Result[user.User] {
	var created user.User
	failure := c.update(func(tx *txn) *Error {
		if c.hasAdmin() {
			return newError(KindPermissionDenied, "an admin already exists; ask an admin to create accounts")
		}
		if _, exists := c.users[name]; exists {
			return newError(KindDuplicateName, "user %q already exists", name)
		}
		if failure := c.checkPassword(plain); failure != nil {
			return failure
		}
		u, err := user.New(name, user.RoleAdmin)
		if err != nil {
			return classify(err)
		}
		if err := u.SetPassword(plain); err != nil {
			return classify(err)
		}
		c.users[name] = u
		tx.touchUsers()
		tx.emit(Event{Kind: EventUserCreated, Actor: name, User: name, At: c.now()})
		created = u.Clone()
		return nil
	})
	if failure != nil {
		return fail[user.User](failure)
	}
	return succeed(created, "admin %q created", name)
}

// CreateUser creates a user without a password. Only admins may create
// users, so standard users can only exist once an admin does.
func (c *Coordinator) CreateUser(actor, name string, role user.Role) Result[user.User] {
	var created user.User
	failure := c.update(func(tx *txn) *Error {
		if !c.hasAdmin() {
			return newError(KindPermissionDenied, "create an admin before creating users")
		}
		if _, failure := c.authorize(actor, CapManageUsers); failure != nil {
			return failure
		}
		if _, exists := c.users[name]; exists {
			return newError(KindDuplicateName, "user %q already exists", name)
		}
		u, err := user.New(name, role)
		if err != nil {
			return classify(err)
		}
		c.users[name] = u
		tx.touchUsers()
		tx.emit(Event{Kind: EventUserCreated, Actor: actor, User: name, At: c.now()})
		created = u.Clone()
		return nil
	})
	if failure != nil {
		return fail[user.User](failure)
	}
	return succeed(created, "user %q created", name)
}

// DeleteUser removes a standard user and unassigns them from every task.
func (c *Coordinator) DeleteUser(actor, name string) Result[user.User] {
	var deleted user.User
	failure := c.update(func(tx *txn) *Error {
		if _, failure := c.authorize(actor, CapManageUsers); failure != nil {
			return failure
		}
		target, ok := c.users[name]
		if !ok {
			return newError(KindNotFound, "user %q not found", name)
		}
		if target.IsAdmin() {
			return newError(KindPermissionDenied, "admins cannot be deleted")
		}
		delete(c.users, name)
		tx.touchUsers()
		for _, t := range c.tasks {
			if t.IsAssigned(name) {
				if err := t.Unassign(name); err != nil {
					return classify(err)
				}
				tx.touchTasks()
			}
		}
		tx.emit(Event{Kind: EventUserDeleted, Actor: actor, User: name, At: c.now()})
		deleted = target.Clone()
		return nil
	})
	if failure != nil {
		return fail[user.User](failure)
	}
	return succeed(deleted, "user %q deleted", name)
}

// SetInitialPassword sets the first password of a user who has none.
func (c *Coordinator) SetInitialPassword(name, plain string) Result[user.User] {
	var updated user.User
	failure := c.update(func(tx *txn) *Error {
		u, ok := c.users[name]
		if !ok {
			return newError(KindNotFound, "user %q not found", name)
		}
		if u.HasPassword() {
			return newError(KindInvalidInput, "user %q already has a password; change it instead", name)
		}
		if failure := c.checkPassword(plain); failure != nil {
			return failure
		}
		if err := u.SetPassword(plain); err != nil {
			return classify(err)
		}
		tx.touchUsers()
		tx.emit(Event{Kind: EventPasswordSet, Actor: name, User: name, At: c.now()})
		updated = u.Clone()
		return nil
	})
	if failure != nil {
		return fail[user.User](failure)
	}
	return succeed(updated, "password set for %q", name)
}

// ChangePassword replaces a password after verifying the current one.
func (c *Coordinator) ChangePassword(name, current, next string) Result[user.User] {
	var updated user.User
	failure := c.update(func(tx *txn) *Error {
		u, ok := c.users[name]
		if !ok {
			return newError(KindNotFound, "user %q not found", name)
		}
		if !u.VerifyPassword(current) {
			return newError(KindInvalidCredentials, "current password is incorrect")
		}
		if failure := c.checkPassword(next); failure != nil {
			return failure
		}
		if err := u.ChangePassword(current, next); err != nil {
			return classify(err)
		}
		tx.touchUsers()
		tx.emit(Event{Kind: EventPasswordSet, Actor: name, User: name, At: c.now()})
		updated = u.Clone()
		return nil
	})
	if failure != nil {
		return fail[user.User](failure)
	}
	return succeed(updated, "password changed for %q", name)
}

// ResetPassword clears a standard user's password so they must set a new
// one on next login.
func (c *Coordinator) ResetPassword(actor, name string) Result[user.User] {
	var updated user.User
	failure := c.update(func(tx *txn) *Error {
		if _, failure := c.authorize(actor, CapResetPasswords); failure != nil {
			return failure
		}
		u, ok := c.users[name]
		if !ok {
			return newError(KindNotFound, "user %q not found", name)
		}
		if u.IsAdmin() {
			return newError(KindPermissionDenied, "admin passwords cannot be reset")
		}
		u.ResetPassword()
		tx.touchUsers()
		tx.emit(Event{Kind: EventPasswordReset, Actor: actor, User: name, At: c.now()})
		updated = u.Clone()
		return nil
	})
	if failure != nil {
		return fail[user.User](failure)
	}
	return succeed(updated, "password reset for %q", name)
}

// Authenticate checks a name and password. Failures distinguish an
// unknown user (KindNotFound), a user who has not set a password yet
// (KindPasswordNotSet), and a wrong password (KindInvalidCredentials).
func (c *Coordinator) Authenticate(name, plain string) Result[user.User] {
	var (
		found   user.User
		failure *Error
	)
	c.view(func() {
		u, ok := c.users[name]
		switch {
		case !ok:
			failure = newError(KindNotFound, "user %q not found", name)
		case !u.HasPassword():
			failure = newError(KindPasswordNotSet, "user %q must set a password", name)
		case !u.VerifyPassword(plain):
			failure = newError(KindInvalidCredentials, "incorrect password")
		default:
			found = u.Clone()
		}
	})
	if failure != nil {
		return fail[user.User](failure)
	}
	return succeed(found, "authenticated as %q", name)
}

// FindUser returns a user. Users may look themselves up; looking up
// anyone else requires an admin.
func (c *Coordinator) FindUser(actor, name string) Result[user.User] {
	var (
		found   user.User
		failure *Error
	)
	c.view(func() {
		if _, failure = c.authorizeSelfOr(actor, name, CapViewAllUsers); failure != nil {
			return
		}
		u, ok := c.users[name]
		if !ok {
			failure = newError(KindNotFound, "user %q not found", name)
			return
		}
		found = u.Clone()
	})
	if failure != nil {
		return fail[user.User](failure)
	}
	return succeed(found, "user %q", name)
}

// ListUsers returns users sorted by name.
func (c *Coordinator) ListUsers(actor string, filter UserFilter) Result[[]user.User] {
	var (
		users   []user.User
		failure *Error
	)
	c.view(func() {
		if _, failure = c.authorize(actor, CapViewAllUsers); failure != nil {
			return
		}
		search := strings.ToLower(strings.TrimSpace(filter.Search))
		names := make([]string, 0, len(c.users))
		for name, u := range c.users {
			if filter.Role != "" && u.Role != filter.Role {
				continue
			}
			if search != "" && !strings.Contains(strings.ToLower(name), search) {
				continue
			}
			names = append(names, name)
		}
		sortNames(names)
		users = make([]user.User, 0, len(names))
		for _, name := range names {
			users = append(users, c.users[name].Clone())
		}
	})
	if failure != nil {
		return fail[[]user.User](failure)
	}
	return succeed(users, "%d users", len(users))
}

func (c *Coordinator) checkPassword(plain string) *Error {
	if plain == "" {
		return newError(KindInvalidInput, "%v", user.ErrEmptyPassword)
	}
	if c.minPassword > 0 && len([]rune(plain)) < c.minPassword {
		return newError(KindInvalidInput, "password must be at least %d characters", c.minPassword)
	}
	if len(plain) > password.MaxBytes {
		return newError(KindInvalidInput, "%v: at most %d bytes", user.ErrPasswordTooLong, password.MaxBytes)
	}
	return nil
}
