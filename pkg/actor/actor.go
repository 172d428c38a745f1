package actor

import (
	"strconv"
	"strings"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
)

func ParseRole(v string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(v))) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleEditor:
		return RoleEditor, true
	default:
		return "", false
	}
}

// Actor is the authenticated caller of every inventory operation.
type Actor struct {
	ID   int64
	Role Role
}

func New(id int64, role Role) Actor {
	return Actor{ID: id, Role: role}
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// DisplayName is used in generated audit messages.
func (a Actor) DisplayName() string {
	if a.IsAdmin() {
		return "Admin"
	}
	return "User ID: " + strconv.FormatInt(a.ID, 10)
}
