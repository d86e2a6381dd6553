package domain

import (
	"errors"
	"time"
)

// Role is the privilege tier of an account.
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// AdminRequestStatus tracks a user's application for admin access.
type AdminRequestStatus string

const (
	RequestNone     AdminRequestStatus = "none"
	RequestPending  AdminRequestStatus = "pending"
	RequestAccepted AdminRequestStatus = "accepted"
	RequestRejected AdminRequestStatus = "rejected"
)

// Normalize maps the empty value (absent or null in stored records) to RequestNone.
func (s AdminRequestStatus) Normalize() AdminRequestStatus {
	if s == "" {
		return RequestNone
	}
	return s
}

// Valid reports whether s, once normalized, is a known status.
func (s AdminRequestStatus) Valid() bool {
	switch s.Normalize() {
	case RequestNone, RequestPending, RequestAccepted, RequestRejected:
		return true
	}
	return false
}

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidUserRecord  = errors.New("invalid user record")
	ErrUnauthenticated    = errors.New("unauthenticated")
)

// User is the sole entity of the directory. Role and AdminRequestStatus are
// only ever changed through the transitions in approval.go.
type User struct {
	ID                 string             `json:"_id"`
	Name               string             `json:"name"`
	Email              string             `json:"email"`
	PasswordHash       string             `json:"-"`
	Role               Role               `json:"role"`
	AdminRequestStatus AdminRequestStatus `json:"adminRequestStatus"`
	CreatedAt          time.Time          `json:"createdAt"`
	LastLogin          *time.Time         `json:"lastLogin,omitempty"`
	UpdatedAt          time.Time          `json:"updatedAt"`
}

// Actor is the authenticated caller on whose behalf an operation runs.
type Actor struct {
	UserID string
	Role   Role
}
