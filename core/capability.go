package core

import "github.com/amonks/tareas/user"

// Capability names an action that is subject to a role check.
type Capability string

const (
	CapManageUsers     Capability = "manage users"
	CapResetPasswords  Capability = "reset passwords"
	CapViewAllUsers    Capability = "view all users"
	CapAssignTasks     Capability = "assign tasks"
	CapReactivateTasks Capability = "reactivate tasks"
	CapDeleteTasks     Capability = "delete tasks"
	CapCreateTasks     Capability = "create tasks"
	CapCommentTasks    Capability = "comment on tasks"
	CapFinishTasks     Capability = "finish tasks"
	CapViewTasks       Capability = "view tasks"
)

// AdminOnly reports whether the capability is reserved for admins.
func (c Capability) AdminOnly() bool {
	switch c {
	case CapManageUsers, CapResetPasswords, CapViewAllUsers,
		CapAssignTasks, CapReactivateTasks, CapDeleteTasks:
		return true
	default:
		return false
	}
}

// Allows reports whether role grants the capability.
func (c Capability) Allows(role user.Role) bool {
	if c.AdminOnly() {
		return role == user.RoleAdmin
	}
	return role.IsValid()
}

// authorize resolves actor and checks it holds capability. Callers must
// hold c.mu with state loaded.
func (c *Coordinator) authorize(actor string, capability Capability) (*user.User, *Error) {
	u, ok := c.users[actor]
	if !ok {
		return nil, newError(KindPermissionDenied, "unknown user %q cannot %s", actor, capability)
	}
	if !capability.Allows(u.Role) {
		return nil, newError(KindPermissionDenied, "only admins can %s", capability)
	}
	return u, nil
}

// authorizeSelfOr lets actor act on target's own data, and otherwise
// requires capability.
func (c *Coordinator) authorizeSelfOr(actor, target string, capability Capability) (*user.User, *Error) {
	if actor == target {
		u, ok := c.users[actor]
		if !ok {
			return nil, newError(KindPermissionDenied, "unknown user %q", actor)
		}
		return u, nil
	}
	return c.authorize(actor, capability)
}
