package models

import (
	"strings"
	"time"
)

// Role is the single authorization level held by a user.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleCaregiver  Role = "CAREGIVER"
	RoleHealthcare Role = "HEALTHCARE"
	RoleFamily     Role = "FAMILY"
)

// Roles lists every role in display order.
var Roles = []Role{RoleAdmin, RoleCaregiver, RoleHealthcare, RoleFamily}

// ParseRole converts a case-insensitive role name into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", Invalid("unknown role %q", s)
	}
	return r, nil
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleCaregiver, RoleHealthcare, RoleFamily:
		return true
	}
	return false
}

// DisplayName returns the human-readable role name.
func (r Role) DisplayName() string {
	switch r {
	case RoleAdmin:
		return "Administrator"
	case RoleCaregiver:
		return "Caregiver"
	case RoleHealthcare:
		return "Healthcare Provider"
	case RoleFamily:
		return "Family Member"
	default:
		return "User"
	}
}

// User is an account that can sign in to HavenWatch.
type User struct {
	ID           int64     `json:"id" example:"3"`
	Username     string    `json:"username" example:"nurse.kim"`
	PasswordHash string    `json:"-"` // Never serialized
	Role         Role      `json:"role" example:"CAREGIVER"`
	FullName     string    `json:"full_name" example:"Dana Kim"`
	Email        string    `json:"email,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
