package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"biblioteca/internal/autor/models"
	"biblioteca/internal/identity"
	usuarioModels "biblioteca/internal/usuario/models"
	dErrors "biblioteca/pkg/domain-errors"
	"biblioteca/pkg/pagination"
	"biblioteca/pkg/platform/httputil"
	authmw "biblioteca/pkg/platform/middleware/auth"
)

type Service interface {
	List(ctx context.Context, page *pagination.Params) ([]*models.Author, int64, error)
	Get(ctx context.Context, id int32) (*models.Author, error)
	Create(ctx context.Context, actor *identity.Principal, req models.CreateRequest) (*models.Author, error)
	Update(ctx context.Context, actor *identity.Principal, id int32, req models.UpdateRequest) (*models.Author, error)
	Delete(ctx context.Context, actor *identity.Principal, id int32) error
}

// Handler serves /autores. Listing is public, reading one author needs an
// active user and writes need an administrator.
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
	r.Route("/autores", func(r chi.Router) {
		r.Get("/", h.handleList)

		r.With(h.guards.Authenticated()...).Get("/{id}", h.handleGet)

		r.Group(func(r chi.Router) {
			r.Use(h.guards.Administrator()...)
			r.Post("/", h.handleCreate)
			r.Put("/{id}", h.handleUpdate)
			r.Delete("/{id}", h.handleDelete)
		})
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page, err := pagination.FromQuery(r.URL.Query())
	if err != nil {
		h.fail(ctx, w, "invalid pagination", err)
		return
	}
	authors, total, err := h.service.List(ctx, page)
	if err != nil {
		h.fail(ctx, w, "failed to list authors", err)
		return
	}
	views := make([]models.View, 0, len(authors))
	for _, a := range authors {
		views = append(views, models.ToView(a, h.location))
	}
	if page != nil {
		httputil.WriteJSON(w, http.StatusOK, pagination.NewPage(views, total, *page))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, views)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r)
	if err != nil {
		h.fail(ctx, w, "invalid author id", err)
		return
	}
	a, err := h.service.Get(ctx, id)
	if err != nil {
		h.fail(ctx, w, "failed to get author", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToView(a, h.location))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.CreateRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		h.fail(ctx, w, "invalid create author request", err)
		return
	}
	a, err := h.service.Create(ctx, identity.FromContext(ctx), req)
	if err != nil {
		h.fail(ctx, w, "failed to create author", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, models.ToView(a, h.location))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r)
	if err != nil {
		h.fail(ctx, w, "invalid author id", err)
		return
	}
	var req models.UpdateRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		h.fail(ctx, w, "invalid update author request", err)
		return
	}
	a, err := h.service.Update(ctx, identity.FromContext(ctx), id, req)
	if err != nil {
		h.fail(ctx, w, "failed to update author", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToView(a, h.location))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r)
	if err != nil {
		h.fail(ctx, w, "invalid author id", err)
		return
	}
	if err := h.service.Delete(ctx, identity.FromContext(ctx), id); err != nil {
		h.fail(ctx, w, "failed to delete author", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, usuarioModels.Message{Message: "Autor eliminado con éxito"})
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	httputil.Fail(ctx, w, h.logger, msg, err)
}

func pathID(r *http.Request) (int32, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 32)
	if err != nil || id < 1 {
		return 0, dErrors.New(dErrors.CodeValidation, "id debe ser un entero positivo")
	}
	return int32(id), nil
}
