package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"biblioteca/internal/auditoria/models"
	dErrors "biblioteca/pkg/domain-errors"
	"biblioteca/pkg/pagination"
	"biblioteca/pkg/platform/httputil"
	authmw "biblioteca/pkg/platform/middleware/auth"
)

type Service interface {
	List(ctx context.Context, f models.Filter, page *pagination.Params) ([]*models.Entry, int64, error)
	Get(ctx context.Context, id int64) (*models.Entry, error)
}

// Handler serves /auditorias. Every route requires an administrator.
type Handler struct {
	service  Service
	guards   authmw.Guards
	location *time.Location
	logger   *slog.Logger
}

func New(service Service, guards authmw.Guards, location *time.Location, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		guards:   guards,
		location: location,
		logger:   logger,
	}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/auditorias", func(r chi.Router) {
		r.Use(h.guards.Administrator()...)
		r.Get("/", h.handleList)
		r.Get("/{id}", h.handleGet)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	page, err := pagination.FromQuery(q)
	if err != nil {
		h.fail(ctx, w, "invalid pagination", err)
		return
	}
	filter, err := models.ParseFilter(q, h.location)
	if err != nil {
		h.fail(ctx, w, "invalid audit filter", err)
		return
	}
	entries, total, err := h.service.List(ctx, filter, page)
	if err != nil {
		h.fail(ctx, w, "failed to list audit entries", err)
		return
	}

	views := make([]models.View, 0, len(entries))
	for _, e := range entries {
		views = append(views, models.ToView(e, h.location))
	}
	if page != nil {
		httputil.WriteJSON(w, http.StatusOK, pagination.NewPage(views, total, *page))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, views)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		h.fail(ctx, w, "invalid audit id", dErrors.New(dErrors.CodeValidation, "id debe ser un entero positivo"))
		return
	}
	e, err := h.service.Get(ctx, id)
	if err != nil {
		h.fail(ctx, w, "failed to get audit entry", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToView(e, h.location))
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	httputil.Fail(ctx, w, h.logger, msg, err)
}
