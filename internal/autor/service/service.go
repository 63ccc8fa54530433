// Package service manages book authors. Writes run through the audit runner.
package service

import (
	"context"
	"errors"
	"log/slog"

	"biblioteca/internal/auditctx"
	"biblioteca/internal/autor/models"
	"biblioteca/internal/identity"
	dErrors "biblioteca/pkg/domain-errors"
	"biblioteca/pkg/pagination"
	"biblioteca/pkg/platform/sentinel"
	"biblioteca/pkg/requestcontext"
)

type Store interface {
	FindByID(ctx context.Context, id int32) (*models.Author, error)
	FindByIDForUpdate(ctx context.Context, id int32) (*models.Author, error)
	Create(ctx context.Context, a *models.Author) error
	Update(ctx context.Context, a *models.Author) error
	Delete(ctx context.Context, id int32) error
	Count(ctx context.Context) (int64, error)
	List(ctx context.Context, offset, limit int) ([]*models.Author, error)
}

// AuditRunner runs fn as one audited transaction.
type AuditRunner interface {
	Run(ctx context.Context, attr auditctx.Attribution, fn func(ctx context.Context) error) error
}

type Service struct {
	store  Store
	runner AuditRunner
	logger *slog.Logger
}

func New(store Store, runner AuditRunner, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, runner: runner, logger: logger}
}

// List returns authors ordered by id. A nil page returns every author.
func (s *Service) List(ctx context.Context, page *pagination.Params) ([]*models.Author, int64, error) {
	if page == nil {
		authors, err := s.store.List(ctx, 0, 0)
		if err != nil {
			return nil, 0, translate(err, "list authors")
		}
		return authors, int64(len(authors)), nil
	}
	total, err := s.store.Count(ctx)
	if err != nil {
		return nil, 0, translate(err, "count authors")
	}
	authors, err := s.store.List(ctx, page.Offset(), page.Limit())
	if err != nil {
		return nil, 0, translate(err, "list authors")
	}
	return authors, total, nil
}

func (s *Service) Get(ctx context.Context, id int32) (*models.Author, error) {
	a, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "load author")
	}
	return a, nil
}

// Create inserts an author attributed to actor.
func (s *Service) Create(ctx context.Context, actor *identity.Principal, req models.CreateRequest) (*models.Author, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	a := req.ToAuthor()

	err := s.runner.Run(ctx, identity.AttributionFor(ctx, actor, models.OpCreate), func(ctx context.Context) error {
		return translate(s.store.Create(ctx, a), "create author")
	})
	if err != nil {
		return nil, err
	}
	s.logWrite(ctx, models.OpCreate, a.ID)
	return a, nil
}

// Update applies the fields present in req to author id.
func (s *Service) Update(ctx context.Context, actor *identity.Principal, id int32, req models.UpdateRequest) (*models.Author, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var updated *models.Author
	err := s.runner.Run(ctx, identity.AttributionFor(ctx, actor, models.OpUpdate), func(ctx context.Context) error {
		a, err := s.store.FindByIDForUpdate(ctx, id)
		if err != nil {
			return translate(err, "load author")
		}
		req.Apply(a)
		if err := s.store.Update(ctx, a); err != nil {
			return translate(err, "update author")
		}
		updated = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logWrite(ctx, models.OpUpdate, id)
	return updated, nil
}

// Delete removes author id.
func (s *Service) Delete(ctx context.Context, actor *identity.Principal, id int32) error {
	err := s.runner.Run(ctx, identity.AttributionFor(ctx, actor, models.OpDelete), func(ctx context.Context) error {
		return translate(s.store.Delete(ctx, id), "delete author")
	})
	if err != nil {
		return err
	}
	s.logWrite(ctx, models.OpDelete, id)
	return nil
}

func (s *Service) logWrite(ctx context.Context, operation string, id int32) {
	s.logger.InfoContext(ctx, "audited write committed",
		"operation", operation,
		"author_id", id,
		"actor_id", requestcontext.UserID(ctx),
		"request_id", requestcontext.RequestID(ctx),
	)
}

func translate(err error, action string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "Autor no encontrado")
	case errors.Is(err, sentinel.ErrInvalidReference):
		return dErrors.Wrap(err, dErrors.CodeConflict, "Autor está en uso")
	case errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "la operación excedió el tiempo límite")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to "+action)
	}
}
