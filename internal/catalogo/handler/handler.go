package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"biblioteca/internal/catalogo/models"
	"biblioteca/internal/identity"
	dErrors "biblioteca/pkg/domain-errors"
	"biblioteca/pkg/pagination"
	"biblioteca/pkg/platform/httputil"
	authmw "biblioteca/pkg/platform/middleware/auth"
)

type Service interface {
	List(ctx context.Context, kind models.Kind, f models.Filter, page *pagination.Params) ([]*models.Item, int64, error)
	Get(ctx context.Context, kind models.Kind, id int32) (*models.Item, error)
	Create(ctx context.Context, actor *identity.Principal, kind models.Kind, req models.CreateRequest) (*models.Item, error)
	Update(ctx context.Context, actor *identity.Principal, kind models.Kind, id int32, req models.CreateRequest) (*models.Item, error)
	Delete(ctx context.Context, actor *identity.Principal, kind models.Kind, id int32) error
}

// routes maps each mount path to its catalogue.
var routes = []struct {
	path string
	kind models.Kind
}{
	{"/roles", models.KindRole},
	{"/estados", models.KindStatus},
	{"/tipos-documento", models.KindDocumentType},
	{"/categorias", models.KindCategory},
}

// Handler serves the catalogues. Reads are public, writes need an
// administrator.
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
	for _, rt := range routes {
		kind := rt.kind
		r.Route(rt.path, func(r chi.Router) {
			r.Get("/", h.handleList(kind))
			r.Get("/{id}", h.handleGet(kind))

			r.Group(func(r chi.Router) {
				r.Use(h.guards.Administrator()...)
				r.Post("/", h.handleCreate(kind))
				r.Put("/{id}", h.handleUpdate(kind))
				r.Delete("/{id}", h.handleDelete(kind))
			})
		})
	}
}

func (h *Handler) handleList(kind models.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		q := r.URL.Query()
		page, err := pagination.FromQuery(q)
		if err != nil {
			h.fail(ctx, w, "invalid pagination", err)
			return
		}
		filter, err := models.ParseFilter(q, kind)
		if err != nil {
			h.fail(ctx, w, "invalid "+string(kind)+" filter", err)
			return
		}
		items, total, err := h.service.List(ctx, kind, filter, page)
		if err != nil {
			h.fail(ctx, w, "failed to list "+string(kind), err)
			return
		}
		views := make([]models.View, 0, len(items))
		for _, it := range items {
			views = append(views, models.ToView(it, h.location))
		}
		if page != nil {
			httputil.WriteJSON(w, http.StatusOK, pagination.NewPage(views, total, *page))
			return
		}
		httputil.WriteJSON(w, http.StatusOK, views)
	}
}

func (h *Handler) handleGet(kind models.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := pathID(r)
		if err != nil {
			h.fail(ctx, w, "invalid "+string(kind)+" id", err)
			return
		}
		it, err := h.service.Get(ctx, kind, id)
		if err != nil {
			h.fail(ctx, w, "failed to get "+string(kind), err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, models.ToView(it, h.location))
	}
}

func (h *Handler) handleCreate(kind models.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var req models.CreateRequest
		if err := httputil.DecodeJSON(w, r, &req); err != nil {
			h.fail(ctx, w, "invalid create "+string(kind)+" request", err)
			return
		}
		it, err := h.service.Create(ctx, identity.FromContext(ctx), kind, req)
		if err != nil {
			h.fail(ctx, w, "failed to create "+string(kind), err)
			return
		}
		httputil.WriteJSON(w, http.StatusCreated, models.ToView(it, h.location))
	}
}

func (h *Handler) handleUpdate(kind models.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := pathID(r)
		if err != nil {
			h.fail(ctx, w, "invalid "+string(kind)+" id", err)
			return
		}
		var req models.CreateRequest
		if err := httputil.DecodeJSON(w, r, &req); err != nil {
			h.fail(ctx, w, "invalid update "+string(kind)+" request", err)
			return
		}
		it, err := h.service.Update(ctx, identity.FromContext(ctx), kind, id, req)
		if err != nil {
			h.fail(ctx, w, "failed to update "+string(kind), err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, models.ToView(it, h.location))
	}
}

func (h *Handler) handleDelete(kind models.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := pathID(r)
		if err != nil {
			h.fail(ctx, w, "invalid "+string(kind)+" id", err)
			return
		}
		if err := h.service.Delete(ctx, identity.FromContext(ctx), kind, id); err != nil {
			h.fail(ctx, w, "failed to delete "+string(kind), err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
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
