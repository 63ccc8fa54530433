// Package service manages the role, status, document type and category
// catalogues. Reads are public; writes run through the audit runner.
package service

import (
	"context"
	"errors"
	"log/slog"

	"biblioteca/internal/auditctx"
	"biblioteca/internal/catalogo/models"
	"biblioteca/internal/identity"
	dErrors "biblioteca/pkg/domain-errors"
	"biblioteca/pkg/pagination"
	"biblioteca/pkg/platform/sentinel"
	"biblioteca/pkg/requestcontext"
)

type Store interface {
	Count(ctx context.Context, kind models.Kind, f models.Filter) (int64, error)
	List(ctx context.Context, kind models.Kind, f models.Filter, offset, limit int) ([]*models.Item, error)
	FindByID(ctx context.Context, kind models.Kind, id int32) (*models.Item, error)
	Create(ctx context.Context, it *models.Item) error
	Update(ctx context.Context, it *models.Item) error
	Delete(ctx context.Context, kind models.Kind, id int32) error
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

// List returns the rows of kind matching f and the total match count. A nil
// page returns every match.
func (s *Service) List(ctx context.Context, kind models.Kind, f models.Filter, page *pagination.Params) ([]*models.Item, int64, error) {
	if !kind.Valid() {
		return nil, 0, unknownKind(kind)
	}
	if page == nil {
		items, err := s.store.List(ctx, kind, f, 0, 0)
		if err != nil {
			return nil, 0, translate(err, kind, "list")
		}
		return items, int64(len(items)), nil
	}
	total, err := s.store.Count(ctx, kind, f)
	if err != nil {
		return nil, 0, translate(err, kind, "count")
	}
	items, err := s.store.List(ctx, kind, f, page.Offset(), page.Limit())
	if err != nil {
		return nil, 0, translate(err, kind, "list")
	}
	return items, total, nil
}

func (s *Service) Get(ctx context.Context, kind models.Kind, id int32) (*models.Item, error) {
	if !kind.Valid() {
		return nil, unknownKind(kind)
	}
	it, err := s.store.FindByID(ctx, kind, id)
	if err != nil {
		return nil, translate(err, kind, "load")
	}
	return it, nil
}

// Create inserts a catalogue row attributed to actor.
func (s *Service) Create(ctx context.Context, actor *identity.Principal, kind models.Kind, req models.CreateRequest) (*models.Item, error) {
	if !kind.Valid() {
		return nil, unknownKind(kind)
	}
	req.Normalize()
	if err := req.Validate(kind); err != nil {
		return nil, err
	}
	it := req.ToItem(kind)

	op := kind.CreateOperation()
	err := s.runner.Run(ctx, identity.AttributionFor(ctx, actor, op), func(ctx context.Context) error {
		if err := s.store.Create(ctx, it); err != nil {
			return translate(err, kind, "create")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logWrite(ctx, op, it.ID)
	return it, nil
}

// Update replaces the row id of kind, attributed to actor.
func (s *Service) Update(ctx context.Context, actor *identity.Principal, kind models.Kind, id int32, req models.CreateRequest) (*models.Item, error) {
	if !kind.Valid() {
		return nil, unknownKind(kind)
	}
	req.Normalize()
	if err := req.Validate(kind); err != nil {
		return nil, err
	}
	it := req.ToItem(kind)
	it.ID = id

	op := kind.UpdateOperation()
	err := s.runner.Run(ctx, identity.AttributionFor(ctx, actor, op), func(ctx context.Context) error {
		if err := s.store.Update(ctx, it); err != nil {
			return translate(err, kind, "update")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logWrite(ctx, op, it.ID)
	return it, nil
}

// Delete removes a catalogue row. Rows still referenced by users or books are
// kept and reported as a conflict.
func (s *Service) Delete(ctx context.Context, actor *identity.Principal, kind models.Kind, id int32) error {
	if !kind.Valid() {
		return unknownKind(kind)
	}
	op := kind.DeleteOperation()
	err := s.runner.Run(ctx, identity.AttributionFor(ctx, actor, op), func(ctx context.Context) error {
		if err := s.store.Delete(ctx, kind, id); err != nil {
			return translate(err, kind, "delete")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logWrite(ctx, op, id)
	return nil
}

func (s *Service) logWrite(ctx context.Context, operation string, id int32) {
	s.logger.InfoContext(ctx, "audited write committed",
		"operation", operation,
		"catalogue_id", id,
		"actor_id", requestcontext.UserID(ctx),
		"request_id", requestcontext.RequestID(ctx),
	)
}

func unknownKind(kind models.Kind) error {
	return dErrors.New(dErrors.CodeNotFound, "catálogo desconocido: "+string(kind))
}

func translate(err error, kind models.Kind, action string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, kind.NotFoundMessage())
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, kind.Label()+" ya existe")
	case errors.Is(err, sentinel.ErrInvalidReference):
		return dErrors.Wrap(err, dErrors.CodeConflict, kind.Label()+" está en uso")
	case errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "la operación excedió el tiempo límite")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to "+action+" "+string(kind))
	}
}
