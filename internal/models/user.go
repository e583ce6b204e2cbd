package models

import (
	"fmt"
	"strconv"
	"strings"
)

// UserRole mirrors the numeric role ids issued by the school's identity provider.
type UserRole int

const (
	RoleAdmin    UserRole = 1
	RoleOperator UserRole = 2
	RoleTeacher  UserRole = 3
	RoleParent   UserRole = 4
	RoleStudent  UserRole = 5
)

var roleNames = map[UserRole]string{
	RoleAdmin:    "admin",
	RoleOperator: "operator",
	RoleTeacher:  "teacher",
	RoleParent:   "parent",
	RoleStudent:  "student",
}

func (r UserRole) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("role(%d)", int(r))
}

func (r UserRole) IsValid() bool {
	_, ok := roleNames[r]
	return ok
}

// IsStaff reports whether the role administers the school (admin or operator).
func (r UserRole) IsStaff() bool {
	return r == RoleAdmin || r == RoleOperator
}

// ParseUserRole accepts either the numeric id ("3") or the role name ("teacher").
func ParseUserRole(s string) (UserRole, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if n, err := strconv.Atoi(s); err == nil {
		role := UserRole(n)
		if !role.IsValid() {
			return 0, fmt.Errorf("unknown role id %d", n)
		}
		return role, nil
	}
	for role, name := range roleNames {
		if name == s {
			return role, nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

// Actor is the authenticated identity performing an operation.
type Actor struct {
	ID   uint     `json:"id"`
	Role UserRole `json:"role"`
}

func (a Actor) IsStaff() bool {
	return a.Role.IsStaff()
}

func (a Actor) IsTeacher() bool {
	return a.Role == RoleTeacher
}
