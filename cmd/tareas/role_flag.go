package main

import (
	"github.com/amonks/tareas/internal/validation"
	"github.com/amonks/tareas/user"
	"github.com/spf13/pflag"
)

// roleValue is a pflag.Value accepting user role names.
type roleValue struct {
	role *user.Role
}

var _ pflag.Value = roleValue{}

func newRoleValue(target *user.Role, def user.Role) roleValue {
	*target = def
	return roleValue{role: target}
}

func (v roleValue) String() string {
	if v.role == nil {
		return ""
	}
	return string(*v.role)
}

func (v roleValue) Set(value string) error {
	role, err := user.ParseRole(value)
	if err != nil {
		return err
	}
	*v.role = role
	return nil
}

func (v roleValue) Type() string {
	return "role"
}

func roleUsage(prefix string) string {
	return prefix + " (" + validation.FormatValidValues(user.ValidRoles()) + ")"
}
