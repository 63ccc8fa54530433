// Package authz holds the authorization predicates applied after identity
// resolution. They are pure: no I/O, no side effects.
package authz

import (
	"time"

	"biblioteca/internal/identity"
	"biblioteca/internal/usuario/models"
	dErrors "biblioteca/pkg/domain-errors"
)

// Gate checks principals against the configured active status and admin role.
type Gate struct {
	activeStatusID int32
	adminRoleID    int32
	location       *time.Location
}

func NewGate(activeStatusID, adminRoleID int32, loc *time.Location) *Gate {
	return &Gate{
		activeStatusID: activeStatusID,
		adminRoleID:    adminRoleID,
		location:       loc,
	}
}

// RequireActive passes p through when its status is the active status.
func (g *Gate) RequireActive(p *identity.Principal) (*identity.Principal, error) {
	if p == nil || p.User == nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "no autenticado")
	}
	if p.StatusID() != g.activeStatusID {
		return nil, dErrors.New(dErrors.CodeInactiveUser, "usuario inactivo")
	}
	return p, nil
}

// RequireAdmin applies RequireActive, then requires the admin role. On
// success it returns the normalized view of the principal.
func (g *Gate) RequireAdmin(p *identity.Principal) (models.NormalizedView, error) {
	p, err := g.RequireActive(p)
	if err != nil {
		return models.NormalizedView{}, err
	}
	if p.RoleID() != g.adminRoleID {
		return models.NormalizedView{}, dErrors.New(dErrors.CodeForbidden, "no tiene permisos para realizar esta acción")
	}
	return g.Normalize(p), nil
}

// Normalize renders p with display codes in the configured time zone.
func (g *Gate) Normalize(p *identity.Principal) models.NormalizedView {
	return models.ToNormalizedView(p.User, g.location)
}
