package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"biblioteca/internal/identity"
	"biblioteca/internal/usuario/models"
	dErrors "biblioteca/pkg/domain-errors"
	"biblioteca/pkg/platform/httputil"
	request "biblioteca/pkg/platform/middleware/request"
	"biblioteca/pkg/requestcontext"
)

// PrincipalResolver turns a bearer token into the request's principal.
type PrincipalResolver interface {
	Resolve(ctx context.Context, token string, meta identity.Metadata) (*identity.Principal, error)
}

// TokenRevocationChecker reports whether an access token was revoked at logout.
type TokenRevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// AccessGate applies the status and role predicates.
type AccessGate interface {
	RequireActive(p *identity.Principal) (*identity.Principal, error)
	RequireAdmin(p *identity.Principal) (models.NormalizedView, error)
}

// FailureRecorder counts rejected requests by error code.
type FailureRecorder interface {
	IncrementAuthFailure(code string)
}

type contextKeyAdminView struct{}

// AdminView returns the normalized principal stored by RequireAdmin.
func AdminView(ctx context.Context) (models.NormalizedView, bool) {
	v, ok := ctx.Value(contextKeyAdminView{}).(models.NormalizedView)
	return v, ok
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(authHeader, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// RequireAuth resolves the bearer token into a principal and stores it in the
// context. It must run after the client metadata middleware.
func RequireAuth(resolver PrincipalResolver, revocationChecker TokenRevocationChecker, recorder FailureRecorder, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := BearerToken(r)
			if !ok {
				reject(ctx, w, dErrors.New(dErrors.CodeInvalidToken, "missing bearer token"), recorder, logger)
				return
			}

			principal, err := resolver.Resolve(ctx, token, identity.Metadata{
				ClientIP: requestcontext.ClientIP(ctx),
				Host:     requestcontext.Host(ctx),
			})
			if err != nil {
				reject(ctx, w, err, recorder, logger)
				return
			}

			if revocationChecker != nil && principal.TokenID != "" {
				revoked, err := revocationChecker.IsRevoked(ctx, principal.TokenID)
				if err != nil {
					logger.ErrorContext(ctx, "failed to check token revocation",
						"error", err,
						"request_id", request.GetRequestID(ctx),
					)
					httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "revocation check failed"))
					return
				}
				if revoked {
					reject(ctx, w, dErrors.New(dErrors.CodeInvalidToken, "token revoked"), recorder, logger)
					return
				}
			}

			ctx = identity.WithPrincipal(ctx, principal)
			ctx = requestcontext.WithUserID(ctx, principal.ID())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireActive rejects principals whose status is not active.
func RequireActive(gate AccessGate, recorder FailureRecorder, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if _, err := gate.RequireActive(identity.FromContext(ctx)); err != nil {
				reject(ctx, w, err, recorder, logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin rejects principals that are inactive or lack the admin role.
func RequireAdmin(gate AccessGate, recorder FailureRecorder, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			view, err := gate.RequireAdmin(identity.FromContext(ctx))
			if err != nil {
				reject(ctx, w, err, recorder, logger)
				return
			}
			ctx = context.WithValue(ctx, contextKeyAdminView{}, view)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func reject(ctx context.Context, w http.ResponseWriter, err error, recorder FailureRecorder, logger *slog.Logger) {
	code := dErrors.CodeOf(err)
	if recorder != nil {
		recorder.IncrementAuthFailure(string(code))
	}
	level := slog.LevelWarn
	if code == dErrors.CodeInternal {
		level = slog.LevelError
	}
	logger.Log(ctx, level, "request rejected",
		"code", code,
		"error", err,
		"user_id", requestcontext.UserID(ctx),
		"request_id", request.GetRequestID(ctx),
	)
	httputil.WriteError(w, err)
}

// Guards bundles the middleware chains routes are mounted behind.
type Guards struct {
	Auth   func(http.Handler) http.Handler
	Active func(http.Handler) http.Handler
	Admin  func(http.Handler) http.Handler
}

func NewGuards(resolver PrincipalResolver, revocationChecker TokenRevocationChecker, gate AccessGate, recorder FailureRecorder, logger *slog.Logger) Guards {
	return Guards{
		Auth:   RequireAuth(resolver, revocationChecker, recorder, logger),
		Active: RequireActive(gate, recorder, logger),
		Admin:  RequireAdmin(gate, recorder, logger),
	}
}

// Authenticated admits any active principal.
func (g Guards) Authenticated() []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{g.Auth, g.Active}
}

// Administrator admits active principals holding the admin role.
func (g Guards) Administrator() []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{g.Auth, g.Admin}
}
