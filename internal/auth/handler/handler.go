package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"biblioteca/internal/auth/models"
	"biblioteca/internal/identity"
	usuarioModels "biblioteca/internal/usuario/models"
	dErrors "biblioteca/pkg/domain-errors"
	"biblioteca/pkg/platform/httputil"
	authmw "biblioteca/pkg/platform/middleware/auth"
)

// Service defines the auth operations exposed over HTTP.
type Service interface {
	Register(ctx context.Context, req usuarioModels.CreateRequest) (*usuarioModels.User, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.TokenResponse, error)
	Refresh(ctx context.Context, req models.RefreshRequest) (*models.RefreshResponse, error)
	Logout(ctx context.Context, p *identity.Principal, req models.LogoutRequest) error
}

// Normalizer renders a principal with catalogue display codes.
type Normalizer interface {
	Normalize(p *identity.Principal) usuarioModels.NormalizedView
}

// Handler serves /auth.
type Handler struct {
	service    Service
	normalizer Normalizer
	guards     authmw.Guards
	location   *time.Location
	logger     *slog.Logger
}

func New(service Service, normalizer Normalizer, guards authmw.Guards, location *time.Location, logger *slog.Logger) *Handler {
	return &Handler{
		service:    service,
		normalizer: normalizer,
		guards:     guards,
		location:   location,
		logger:     logger,
	}
}

// Register mounts the auth routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/registro", h.handleRegister)
		r.Post("/inicio-sesion", h.handleLogin)
		r.Post("/refresh", h.handleRefresh)
		r.With(h.guards.Auth).Post("/cerrar-sesion", h.handleLogout)
		r.With(h.guards.Authenticated()...).Get("/yo", h.handleMe)
	})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req usuarioModels.CreateRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.Fail(ctx, w, h.logger, "invalid registration request", err)
		return
	}
	u, err := h.service.Register(ctx, req)
	if err != nil {
		httputil.Fail(ctx, w, h.logger, "registration failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, usuarioModels.ToView(u, h.location))
}

// handleLogin accepts the OAuth2 password-grant form: username and password.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		httputil.Fail(ctx, w, h.logger, "invalid login form",
			dErrors.Wrap(err, dErrors.CodeBadRequest, "formulario inválido"))
		return
	}
	resp, err := h.service.Login(ctx, models.LoginRequest{
		Username: r.PostForm.Get("username"),
		Password: r.PostForm.Get("password"),
	})
	if err != nil {
		httputil.Fail(ctx, w, h.logger, "login failed", err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.RefreshRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.Fail(ctx, w, h.logger, "invalid refresh request", err)
		return
	}
	resp, err := h.service.Refresh(ctx, req)
	if err != nil {
		httputil.Fail(ctx, w, h.logger, "refresh failed", err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// handleLogout revokes the presented access token. The body is optional.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.LogoutRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		httputil.Fail(ctx, w, h.logger, "invalid logout request", err)
		return
	}
	if err := h.service.Logout(ctx, identity.FromContext(ctx), req); err != nil {
		httputil.Fail(ctx, w, h.logger, "logout failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	p := identity.FromContext(r.Context())
	httputil.WriteJSON(w, http.StatusOK, h.normalizer.Normalize(p))
}
