package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"biblioteca/internal/identity"
	"biblioteca/internal/usuario/models"
	dErrors "biblioteca/pkg/domain-errors"
	"biblioteca/pkg/pagination"
	"biblioteca/pkg/platform/httputil"
	authmw "biblioteca/pkg/platform/middleware/auth"
)

// Service defines the user operations exposed over HTTP.
type Service interface {
	Create(ctx context.Context, actor *identity.Principal, req models.CreateRequest) (*models.User, error)
	List(ctx context.Context, page *pagination.Params, withRelations bool) ([]*models.User, int64, error)
	Get(ctx context.Context, id int64, withRelations bool) (*models.User, error)
	UpdateProfile(ctx context.Context, actor *identity.Principal, id int64, req models.ProfileRequest) (*models.User, error)
	ChangePassword(ctx context.Context, actor *identity.Principal, id int64, req models.PasswordChangeRequest) (models.Message, error)
	RequestPasswordReset(ctx context.Context, req models.ResetRequest) (models.Message, error)
	ResetPassword(ctx context.Context, req models.ResetVerifyRequest) (models.Message, error)
	SoftDelete(ctx context.Context, actor *identity.Principal, id int64) (models.Message, error)
	Delete(ctx context.Context, actor *identity.Principal, id int64) error
}

// Handler serves /usuarios.
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

// Register mounts the user routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/usuarios", func(r chi.Router) {
		r.Post("/resetear-contrasena", h.handleRequestReset)
		r.Post("/verificar-token", h.handleVerifyReset)

		r.Group(func(r chi.Router) {
			r.Use(h.guards.Authenticated()...)
			r.Put("/{id}/perfil", h.handleUpdateProfile)
			r.Put("/{id}/contrasena", h.handleChangePassword)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.guards.Administrator()...)
			r.Post("/", h.handleCreate)
			r.Get("/", h.handleList)
			r.Get("/{id}", h.handleGet)
			r.Patch("/{id}/eliminacion-suave", h.handleSoftDelete)
			r.Delete("/{id}", h.handleDelete)
		})
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.CreateRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		h.fail(ctx, w, "invalid create user request", err)
		return
	}
	u, err := h.service.Create(ctx, identity.FromContext(ctx), req)
	if err != nil {
		h.fail(ctx, w, "failed to create user", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, models.ToView(u, h.location))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page, err := pagination.FromQuery(r.URL.Query())
	if err != nil {
		h.fail(ctx, w, "invalid pagination", err)
		return
	}
	normalized := wantsNormalized(r)
	users, total, err := h.service.List(ctx, page, normalized)
	if err != nil {
		h.fail(ctx, w, "failed to list users", err)
		return
	}

	var items any
	if normalized {
		views := make([]models.NormalizedView, 0, len(users))
		for _, u := range users {
			views = append(views, models.ToNormalizedView(u, h.location))
		}
		items = views
		if page != nil {
			items = pagination.NewPage(views, total, *page)
		}
	} else {
		views := make([]models.View, 0, len(users))
		for _, u := range users {
			views = append(views, models.ToView(u, h.location))
		}
		items = views
		if page != nil {
			items = pagination.NewPage(views, total, *page)
		}
	}
	httputil.WriteJSON(w, http.StatusOK, items)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r)
	if err != nil {
		h.fail(ctx, w, "invalid user id", err)
		return
	}
	normalized := wantsNormalized(r)
	u, err := h.service.Get(ctx, id, normalized)
	if err != nil {
		h.fail(ctx, w, "failed to get user", err)
		return
	}
	if normalized {
		httputil.WriteJSON(w, http.StatusOK, models.ToNormalizedView(u, h.location))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToView(u, h.location))
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r)
	if err != nil {
		h.fail(ctx, w, "invalid user id", err)
		return
	}
	var req models.ProfileRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		h.fail(ctx, w, "invalid profile request", err)
		return
	}
	u, err := h.service.UpdateProfile(ctx, identity.FromContext(ctx), id, req)
	if err != nil {
		h.fail(ctx, w, "failed to update profile", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToView(u, h.location))
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r)
	if err != nil {
		h.fail(ctx, w, "invalid user id", err)
		return
	}
	var req models.PasswordChangeRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		h.fail(ctx, w, "invalid password change request", err)
		return
	}
	msg, err := h.service.ChangePassword(ctx, identity.FromContext(ctx), id, req)
	if err != nil {
		h.fail(ctx, w, "failed to change password", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, msg)
}

func (h *Handler) handleRequestReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.ResetRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		h.fail(ctx, w, "invalid reset request", err)
		return
	}
	msg, err := h.service.RequestPasswordReset(ctx, req)
	if err != nil {
		h.fail(ctx, w, "failed to request password reset", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, msg)
}

func (h *Handler) handleVerifyReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.ResetVerifyRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		h.fail(ctx, w, "invalid reset verification request", err)
		return
	}
	msg, err := h.service.ResetPassword(ctx, req)
	if err != nil {
		h.fail(ctx, w, "failed to reset password", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, msg)
}

func (h *Handler) handleSoftDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r)
	if err != nil {
		h.fail(ctx, w, "invalid user id", err)
		return
	}
	msg, err := h.service.SoftDelete(ctx, identity.FromContext(ctx), id)
	if err != nil {
		h.fail(ctx, w, "failed to deactivate user", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, msg)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r)
	if err != nil {
		h.fail(ctx, w, "invalid user id", err)
		return
	}
	if err := h.service.Delete(ctx, identity.FromContext(ctx), id); err != nil {
		h.fail(ctx, w, "failed to delete user", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	httputil.Fail(ctx, w, h.logger, msg, err)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		return 0, dErrors.New(dErrors.CodeValidation, "id debe ser un entero positivo")
	}
	return id, nil
}

func wantsNormalized(r *http.Request) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get("normalizado"))
	return err == nil && v
}
