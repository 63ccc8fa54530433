package authz

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"biblioteca/internal/identity"
	"biblioteca/internal/usuario/models"
	dErrors "biblioteca/pkg/domain-errors"
)

const (
	activeStatus   int32 = 1
	inactiveStatus int32 = 2
	readerRole     int32 = 1
	adminRole      int32 = 2
)

func principal(role, status int32) *identity.Principal {
	return &identity.Principal{
		User: &models.User{
			ID:             7,
			Email:          "ana@biblioteca.co",
			RoleID:         role,
			StatusID:       status,
			DocumentTypeID: 1,
			Role:           &models.Role{ID: role, Acronym: map[int32]string{readerRole: "LEC", adminRole: "ADM"}[role]},
			Status:         &models.Status{ID: status, Name: map[int32]string{activeStatus: "Activo", inactiveStatus: "Inactivo"}[status]},
			DocumentType:   &models.DocumentType{ID: 1, Acronym: "CC"},
			CreatedAt:      time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		Username: "ana@biblioteca.co",
	}
}

func TestGate(t *testing.T) {
	gate := NewGate(activeStatus, adminRole, time.UTC)

	tests := []struct {
		name        string
		principal   *identity.Principal
		activeCode  dErrors.Code
		adminCode   dErrors.Code
		wantAdminOK bool
	}{
		{name: "active admin", principal: principal(adminRole, activeStatus), wantAdminOK: true},
		{name: "active reader", principal: principal(readerRole, activeStatus), adminCode: dErrors.CodeForbidden},
		{name: "inactive admin", principal: principal(adminRole, inactiveStatus), activeCode: dErrors.CodeInactiveUser, adminCode: dErrors.CodeInactiveUser},
		{name: "inactive reader", principal: principal(readerRole, inactiveStatus), activeCode: dErrors.CodeInactiveUser, adminCode: dErrors.CodeInactiveUser},
		{name: "no principal", principal: nil, activeCode: dErrors.CodeUnauthorized, adminCode: dErrors.CodeUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := gate.RequireActive(tt.principal)
			if tt.activeCode == "" {
				require.NoError(t, err)
				assert.Same(t, tt.principal, p)
			} else {
				assert.Equal(t, tt.activeCode, dErrors.CodeOf(err))
			}

			view, err := gate.RequireAdmin(tt.principal)
			if tt.wantAdminOK {
				require.NoError(t, err)
				assert.Equal(t, "ADM", view.Role)
				assert.Equal(t, "Activo", view.Status)
				assert.Equal(t, "CC", view.DocumentType)
			} else {
				assert.Equal(t, tt.adminCode, dErrors.CodeOf(err))
			}
		})
	}
}
