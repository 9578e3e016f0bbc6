// Package domain contains the core business entities for openshelf.
// These are pure Go structs with no external dependencies, representing
// the fundamental concepts of the book catalog.
package domain

import (
	"strings"
	"time"
)

// Role values recognized by the authorization layer.
const (
	RoleUser       = "user"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superadmin"
)

// User statuses.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// User represents a registered user in the system.
// Users own the books they add to the catalog.
type User struct {
	// ID is the unique identifier for the user (auto-generated).
	ID int64 `json:"id"`

	// Email is the unique email address, stored lowercased.
	Email string `json:"email"`

	// Username is the unique username, stored lowercased.
	// Constraints: 3-20 characters.
	Username string `json:"username"`

	// FirstName and LastName are display names.
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`

	// PasswordHash is the bcrypt hash of the user's password.
	// This must never be exposed in API responses.
	PasswordHash string `json:"-"`

	// AvatarURL is an optional profile image URL.
	AvatarURL string `json:"avatar,omitempty"`

	// Status is "active" or "inactive". Inactive users cannot authenticate.
	Status string `json:"status"`

	// Roles is the set of roles held by the user. Defaults to ["user"].
	Roles []string `json:"roles"`

	// DeletedAt marks a soft-deleted account. The record stays in the store;
	// the auth chain treats its presence as "account no longer exists".
	DeletedAt *time.Time `json:"-"`

	// LastLoginAt is updated on each successful login.
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`

	// CreatedAt is the timestamp when the user was created.
	CreatedAt time.Time `json:"createdAt"`

	// UpdatedAt is the timestamp when the user was last updated.
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewUser creates a new User with default values. Email and username are
// lowercased so uniqueness is case-insensitive.
func NewUser(email, username, passwordHash, firstName, lastName string) *User {
	now := time.Now().UTC()
	return &User{
		Email:        strings.ToLower(email),
		Username:     strings.ToLower(username),
		PasswordHash: passwordHash,
		FirstName:    strings.TrimSpace(firstName),
		LastName:     strings.TrimSpace(lastName),
		Status:       StatusActive,
		Roles:        []string{RoleUser},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// CanAuthenticate returns true if the user is allowed to authenticate.
func (u *User) CanAuthenticate() bool {
	return u.Status == StatusActive && u.DeletedAt == nil
}

// HasRole reports whether the user holds the given role.
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the user's role set intersects the given set.
func (u *User) HasAnyRole(roles ...string) bool {
	for _, r := range roles {
		if u.HasRole(r) {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the user holds an admin-equivalent role.
func (u *User) IsAdmin() bool {
	return u.HasAnyRole(RoleAdmin, RoleSuperAdmin)
}
