package service

import (
	"context"

	"biblioteca/internal/identity"
	"biblioteca/internal/usuario/models"
	dErrors "biblioteca/pkg/domain-errors"
	"biblioteca/pkg/pagination"
	"biblioteca/pkg/requestcontext"
)

// Register creates a reader account on behalf of an anonymous caller. Role and
// status come from settings, never from the request.
func (s *Service) Register(ctx context.Context, req models.CreateRequest) (*models.User, error) {
	req.RoleID = s.settings.ReaderRoleID
	req.StatusID = s.settings.ActiveStatusID
	return s.Create(ctx, nil, req)
}

// Create inserts a user. A nil actor attributes the write to the system actor.
func (s *Service) Create(ctx context.Context, actor *identity.Principal, req models.CreateRequest) (*models.User, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	u := req.ToUser()
	if err := s.checkAgeAndDocument(ctx, u); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, translateStoreErr(err, "hash password")
	}
	u.PasswordHash = hash

	var created *models.User
	err = s.runner.Run(ctx, identity.AttributionFor(ctx, actor, OpCreate), func(ctx context.Context) error {
		if err := s.users.Create(ctx, u); err != nil {
			return translateStoreErr(err, "create user")
		}
		full, err := s.users.FindByIDWithRelations(ctx, u.ID)
		if err != nil {
			return translateStoreErr(err, "load created user")
		}
		created = full
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncrementUsersCreated()
	s.logWrite(ctx, OpCreate, created.ID)
	return created, nil
}

// checkAgeAndDocument enforces the minimum age and that minors and adults use
// their respective document types. Users without a birth date are not checked.
func (s *Service) checkAgeAndDocument(ctx context.Context, u *models.User) error {
	if u.BirthDate == nil {
		return nil
	}
	age := ageAt(*u.BirthDate, requestcontext.Now(ctx))
	if age < s.settings.MinimumAgeYears {
		return dErrors.New(dErrors.CodeValidation, "el usuario no cumple la edad mínima")
	}
	switch {
	case age < 18 && u.DocumentTypeID == s.settings.AdultDocumentTypeID:
		return dErrors.New(dErrors.CodeValidation, "un menor de edad no puede registrarse con documento de mayor de edad")
	case age >= 18 && u.DocumentTypeID == s.settings.MinorDocumentTypeID:
		return dErrors.New(dErrors.CodeValidation, "un mayor de edad no puede registrarse con documento de menor de edad")
	}
	return nil
}

// List returns users ordered by id. With page nil every user is returned and
// total is the slice length.
func (s *Service) List(ctx context.Context, page *pagination.Params, withRelations bool) ([]*models.User, int64, error) {
	if page == nil {
		users, err := s.users.List(ctx, withRelations, 0, 0)
		if err != nil {
			return nil, 0, translateStoreErr(err, "list users")
		}
		return users, int64(len(users)), nil
	}
	total, err := s.users.Count(ctx)
	if err != nil {
		return nil, 0, translateStoreErr(err, "count users")
	}
	users, err := s.users.List(ctx, withRelations, page.Offset(), page.Limit())
	if err != nil {
		return nil, 0, translateStoreErr(err, "list users")
	}
	return users, total, nil
}

// Get returns one user, with relations when requested.
func (s *Service) Get(ctx context.Context, id int64, withRelations bool) (*models.User, error) {
	var (
		u   *models.User
		err error
	)
	if withRelations {
		u, err = s.users.FindByIDWithRelations(ctx, id)
	} else {
		u, err = s.users.FindByID(ctx, id)
	}
	if err != nil {
		return nil, translateStoreErr(err, "load user")
	}
	return u, nil
}

// UpdateProfile applies the self-service profile fields.
func (s *Service) UpdateProfile(ctx context.Context, actor *identity.Principal, id int64, req models.ProfileRequest) (*models.User, error) {
	if err := s.authorizeSelfOrAdmin(actor, id); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	update := req.ToUpdate()

	var updated *models.User
	err := s.runner.Run(ctx, identity.AttributionFor(ctx, actor, OpUpdateProfile), func(ctx context.Context) error {
		u, err := s.users.FindByIDForUpdate(ctx, id)
		if err != nil {
			return translateStoreErr(err, "load user")
		}
		update.Apply(u)
		if err := s.checkAgeAndDocument(ctx, u); err != nil {
			return err
		}
		if err := s.users.Update(ctx, u); err != nil {
			return translateStoreErr(err, "update profile")
		}
		updated, err = s.users.FindByIDWithRelations(ctx, id)
		return translateStoreErr(err, "load updated user")
	})
	if err != nil {
		return nil, err
	}
	s.logWrite(ctx, OpUpdateProfile, id)
	return updated, nil
}

// SoftDelete marks the user inactive.
func (s *Service) SoftDelete(ctx context.Context, actor *identity.Principal, id int64) (models.Message, error) {
	err := s.runner.Run(ctx, identity.AttributionFor(ctx, actor, OpSoftDelete), func(ctx context.Context) error {
		u, err := s.users.FindByIDForUpdate(ctx, id)
		if err != nil {
			return translateStoreErr(err, "load user")
		}
		u.StatusID = s.settings.InactiveStatusID
		return translateStoreErr(s.users.Update(ctx, u), "deactivate user")
	})
	if err != nil {
		return models.Message{}, err
	}
	s.logWrite(ctx, OpSoftDelete, id)
	return models.Message{Message: "Usuario eliminado suavemente exitosamente"}, nil
}

// Delete removes the user row.
func (s *Service) Delete(ctx context.Context, actor *identity.Principal, id int64) error {
	if actor != nil && actor.ID() == id {
		return dErrors.New(dErrors.CodeValidation, "un administrador no puede eliminar su propia cuenta")
	}
	err := s.runner.Run(ctx, identity.AttributionFor(ctx, actor, OpDelete), func(ctx context.Context) error {
		return translateStoreErr(s.users.Delete(ctx, id), "delete user")
	})
	if err != nil {
		return err
	}
	s.logWrite(ctx, OpDelete, id)
	return nil
}
