package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role is the access role of a user.
type Role string

const (
	RoleUser       Role = "USER"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPERADMIN"
	RoleIT         Role = "IT"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleSuperAdmin, RoleIT:
		return true
	}
	return false
}

// UserStatus is the lifecycle state of an account.
type UserStatus string

const (
	StatusActive              UserStatus = "active"
	StatusPendingVerification UserStatus = "pending_verification"
	StatusDisabled            UserStatus = "disabled"
)

// Valid reports whether s is one of the known statuses.
func (s UserStatus) Valid() bool {
	switch s {
	case StatusActive, StatusPendingVerification, StatusDisabled:
		return true
	}
	return false
}

// User represents a users row.
type User struct {
	ID           uuid.UUID  `json:"id"`
	FullName     string     `json:"full_name"`
	Email        string     `json:"email"`
	Mobile       string     `json:"mobile"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	Status       UserStatus `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// UserPatch holds the optional fields a privileged actor may change.
type UserPatch struct {
	FullName *string     `json:"full_name,omitempty"`
	Email    *string     `json:"email,omitempty"`
	Mobile   *string     `json:"mobile,omitempty"`
	Role     *Role       `json:"role,omitempty"`
	Status   *UserStatus `json:"status,omitempty"`
}

// Apply copies the set fields of p onto u.
func (p UserPatch) Apply(u *User) {
	if p.FullName != nil {
		u.FullName = *p.FullName
	}
	if p.Email != nil {
		u.Email = NormalizeEmail(*p.Email)
	}
	if p.Mobile != nil {
		u.Mobile = *p.Mobile
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.Status != nil {
		u.Status = *p.Status
	}
}
