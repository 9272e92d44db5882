package users

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jrsteele09/go-session-auth/internal/errors"
)

// Role is the closed set of seeded roles. The numeric value is the role id in
// storage.
type Role int

const (
	RoleAdmin Role = 1
	RoleUser  Role = 2
)

// Roles lists every role in seed order.
func Roles() []Role {
	return []Role{RoleAdmin, RoleUser}
}

func (r Role) ID() int {
	return int(r)
}

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "Admin"
	case RoleUser:
		return "User"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleUser:
		return true
	default:
		return false
	}
}

// RoleFromID converts a stored or submitted role id.
func RoleFromID(id int) (Role, error) {
	r := Role(id)
	if !r.Valid() {
		return 0, errors.Wrapf(errors.ErrInvalidRole, "role id %d", id)
	}
	return r, nil
}

// ParseRoleID parses a role id taken from a form field.
func ParseRoleID(raw string) (Role, error) {
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, errors.Wrapf(errors.ErrInvalidRole, "role id %q", raw)
	}
	return RoleFromID(id)
}

// ParseRoleName maps a role claim back onto the enumeration.
func ParseRoleName(name string) (Role, error) {
	for _, r := range Roles() {
		if r.String() == name {
			return r, nil
		}
	}
	return 0, errors.Wrapf(errors.ErrInvalidRole, "role name %q", name)
}
