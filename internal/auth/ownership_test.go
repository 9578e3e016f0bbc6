package auth

import (
	"errors"
	"testing"

	"github.com/openshelf/openshelf/internal/domain"
)

func TestAuthorize(t *testing.T) {
	owner := &Identity{User: &domain.User{ID: 10, Roles: []string{domain.RoleUser}}}
	stranger := &Identity{User: &domain.User{ID: 11, Roles: []string{domain.RoleUser}}}
	admin := &Identity{User: &domain.User{ID: 12, Roles: []string{domain.RoleUser, domain.RoleAdmin}}}
	superAdmin := &Identity{User: &domain.User{ID: 13, Roles: []string{domain.RoleSuperAdmin}}}

	tests := []struct {
		name     string
		identity *Identity
		ownerID  int64
		wantErr  error
	}{
		{"owner may act", owner, 10, nil},
		{"stranger denied", stranger, 10, ErrOwnershipRequired},
		{"admin overrides ownership", admin, 10, nil},
		{"superadmin overrides ownership", superAdmin, 10, nil},
		{"nil identity denied", nil, 10, ErrAuthRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.identity, tt.ownerID)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}
