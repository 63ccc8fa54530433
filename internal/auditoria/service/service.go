// Package service reads the audit log for administrators.
package service

import (
	"context"
	"errors"
	"log/slog"

	"biblioteca/internal/auditoria/models"
	dErrors "biblioteca/pkg/domain-errors"
	"biblioteca/pkg/pagination"
	"biblioteca/pkg/platform/sentinel"
)

type Store interface {
	Count(ctx context.Context, f models.Filter) (int64, error)
	List(ctx context.Context, f models.Filter, offset, limit int) ([]*models.Entry, error)
	FindByID(ctx context.Context, id int64) (*models.Entry, error)
}

type Service struct {
	store  Store
	logger *slog.Logger
}

func New(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// List returns the entries matching f and the total match count. A nil page
// returns every match.
func (s *Service) List(ctx context.Context, f models.Filter, page *pagination.Params) ([]*models.Entry, int64, error) {
	if page == nil {
		entries, err := s.store.List(ctx, f, 0, 0)
		if err != nil {
			return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit entries")
		}
		return entries, int64(len(entries)), nil
	}
	total, err := s.store.Count(ctx, f)
	if err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count audit entries")
	}
	entries, err := s.store.List(ctx, f, page.Offset(), page.Limit())
	if err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit entries")
	}
	return entries, total, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*models.Entry, error) {
	e, err := s.store.FindByID(ctx, id)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "Registro de auditoría no encontrado")
	case err != nil:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load audit entry")
	}
	return e, nil
}
