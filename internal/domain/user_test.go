package domain

import (
	"testing"
	"time"
)

func TestUser_CanAuthenticate(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name string
		user User
		want bool
	}{
		{"active", User{Status: StatusActive}, true},
		{"inactive", User{Status: StatusInactive}, false},
		{"soft-deleted", User{Status: StatusActive, DeletedAt: &now}, false},
		{"deleted and inactive", User{Status: StatusInactive, DeletedAt: &now}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.user.CanAuthenticate(); got != tt.want {
				t.Errorf("CanAuthenticate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUser_IsAdmin(t *testing.T) {
	tests := []struct {
		name  string
		roles []string
		want  bool
	}{
		{"plain user", []string{RoleUser}, false},
		{"admin", []string{RoleUser, RoleAdmin}, true},
		{"superadmin", []string{RoleSuperAdmin}, true},
		{"no roles", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := User{Roles: tt.roles}
			if got := u.IsAdmin(); got != tt.want {
				t.Errorf("IsAdmin() = %v, want %v", got, tt.want)
			}
		})
	}
}
