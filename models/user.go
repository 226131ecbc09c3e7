// ABOUTME: User and role types mirrored from the upstream API
// ABOUTME: The BFF only holds a read-only cached copy of the user

package models

import (
	"encoding/json"
	"slices"
)

// Role is a FastLearners account role.
type Role string

const (
	RoleGuest      Role = "guest"
	RoleStudent    Role = "student"
	RoleGuardian   Role = "guardian"
	RoleTeacher    Role = "teacher"
	RoleAdmin      Role = "admin"
	RoleSuperadmin Role = "superadmin"
)

// KnownRoles lists every role in ascending privilege order.
var KnownRoles = []Role{RoleGuest, RoleStudent, RoleGuardian, RoleTeacher, RoleAdmin, RoleSuperadmin}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return slices.Contains(KnownRoles, r)
}

// Roles is the ordered role list of a user; the first entry is the primary role.
// Upstream sometimes sends a single string instead of an array.
type Roles []Role

func (r *Roles) UnmarshalJSON(data []byte) error {
	var list []Role
	if err := json.Unmarshal(data, &list); err == nil {
		*r = list
		return nil
	}
	var single Role
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	if single == "" {
		*r = nil
		return nil
	}
	*r = Roles{single}
	return nil
}

type User struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Username    string `json:"username,omitempty"`
	Email       string `json:"email"`
	Phone       string `json:"phone,omitempty"`
	School      string `json:"school,omitempty"`
	Class       string `json:"class,omitempty"`
	Discipline  string `json:"discipline,omitempty"`
	DateOfBirth string `json:"date_of_birth,omitempty"`
	Image       string `json:"image,omitempty"`
	Status      string `json:"status,omitempty"`
	Role        Roles  `json:"role"`
}

// PrimaryRole returns the first role, or guest when none is set.
func (u *User) PrimaryRole() Role {
	if u == nil || len(u.Role) == 0 {
		return RoleGuest
	}
	return u.Role[0]
}

// HasRole reports whether any of the user's roles equals role.
func (u *User) HasRole(role Role) bool {
	if u == nil {
		return false
	}
	return slices.Contains(u.Role, role)
}

// HasAnyRole reports whether the user holds at least one of roles.
func (u *User) HasAnyRole(roles ...Role) bool {
	for _, r := range roles {
		if u.HasRole(r) {
			return true
		}
	}
	return false
}

// LoginRequest is the body accepted by /api/auth/login.
type LoginRequest struct {
	EmailPhone string `json:"email_phone"`
	Password   string `json:"password"`
}
