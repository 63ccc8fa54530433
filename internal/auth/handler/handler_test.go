package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"biblioteca/internal/auth/handler/mocks"
	"biblioteca/internal/auth/models"
	"biblioteca/internal/authz"
	"biblioteca/internal/identity"
	usuarioModels "biblioteca/internal/usuario/models"
	dErrors "biblioteca/pkg/domain-errors"
	authmw "biblioteca/pkg/platform/middleware/auth"
	"biblioteca/pkg/testutil"
)

type tokenResolver map[string]*identity.Principal

func (t tokenResolver) Resolve(_ context.Context, token string, _ identity.Metadata) (*identity.Principal, error) {
	if p, ok := t[token]; ok {
		return p, nil
	}
	return nil, dErrors.New(dErrors.CodeInvalidToken, "unknown token")
}

var (
	reader = &identity.Principal{
		User: &usuarioModels.User{
			ID: 7, Email: "ana@biblioteca.co", FirstName: "Ana", RoleID: 1, StatusID: 1,
			Role:   &usuarioModels.Role{Acronym: "LEC"},
			Status: &usuarioModels.Status{Name: "Activo"},
		},
		TokenID: "access-jti",
	}
	inactive = &identity.Principal{
		User:    &usuarioModels.User{ID: 8, Email: "inactivo@biblioteca.co", RoleID: 1, StatusID: 2},
		TokenID: "inactive-jti",
	}
)

func newRouter(t *testing.T) (chi.Router, *mocks.MockService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	svc := mocks.NewMockService(ctrl)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gate := authz.NewGate(1, 2, time.UTC)
	guards := authmw.NewGuards(tokenResolver{"reader-token": reader, "inactive-token": inactive}, nil, gate, nil, logger)

	r := chi.NewRouter()
	New(svc, gate, guards, time.UTC, logger).Register(r)
	return r, svc
}

func TestLogin(t *testing.T) {
	testutil.Given(t, "a valid form", func(t *testing.T) {
		r, svc := newRouter(t)
		svc.EXPECT().Login(gomock.Any(), models.LoginRequest{Username: "ana@biblioteca.co", Password: "Secreta#2025"}).
			Return(&models.TokenResponse{AccessToken: "a", RefreshToken: "r", TokenType: "bearer"}, nil)

		rr := testutil.DoRequest(r, testutil.NewFormRequest(t, "/auth/inicio-sesion",
			url.Values{"username": {"ana@biblioteca.co"}, "password": {"Secreta#2025"}}))

		testutil.Then(t, "tokens are returned and not cached", func(t *testing.T) {
			require.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
			resp := testutil.UnmarshalResponse[models.TokenResponse](t, rr)
			assert.Equal(t, "a", resp.AccessToken)
			assert.Equal(t, "r", resp.RefreshToken)
			assert.Equal(t, "bearer", resp.TokenType)
		})
	})

	testutil.Given(t, "wrong credentials", func(t *testing.T) {
		r, svc := newRouter(t)
		svc.EXPECT().Login(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeUnauthorized, "Credenciales inválidas"))

		rr := testutil.DoRequest(r, testutil.NewFormRequest(t, "/auth/inicio-sesion",
			url.Values{"username": {"ana@biblioteca.co"}, "password": {"mala"}}))

		testutil.Then(t, "401 with a bearer challenge", func(t *testing.T) {
			testutil.AssertError(t, rr, http.StatusUnauthorized, "unauthorized", "Credenciales inválidas")
			assert.Equal(t, "Bearer", rr.Header().Get("WWW-Authenticate"))
		})
	})
}

func TestRegister(t *testing.T) {
	r, svc := newRouter(t)
	svc.EXPECT().Register(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req usuarioModels.CreateRequest) (*usuarioModels.User, error) {
			assert.Equal(t, "nuevo@biblioteca.co", req.Email)
			return &usuarioModels.User{ID: 12, Email: req.Email, RoleID: 1, StatusID: 1}, nil
		})

	rr := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, "/auth/registro",
		map[string]any{"correo": "nuevo@biblioteca.co", "nombre": "Nuevo"}))

	require.Equal(t, http.StatusCreated, rr.Code)
	view := testutil.UnmarshalResponse[usuarioModels.View](t, rr)
	assert.Equal(t, int64(12), view.ID)
	assert.Equal(t, int32(1), view.RoleID)
}

func TestRefresh(t *testing.T) {
	r, svc := newRouter(t)
	svc.EXPECT().Refresh(gomock.Any(), models.RefreshRequest{RefreshToken: "refresh"}).
		Return(&models.RefreshResponse{AccessToken: "new", TokenType: "bearer"}, nil)

	rr := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, "/auth/refresh",
		models.RefreshRequest{RefreshToken: "refresh"}))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "new", testutil.UnmarshalResponse[models.RefreshResponse](t, rr).AccessToken)
}

func TestLogout(t *testing.T) {
	t.Run("without body", func(t *testing.T) {
		r, svc := newRouter(t)
		svc.EXPECT().Logout(gomock.Any(), reader, models.LogoutRequest{}).Return(nil)

		req := testutil.WithBearer(testutil.NewRequest(t, http.MethodPost, "/auth/cerrar-sesion"), "reader-token")
		assert.Equal(t, http.StatusNoContent, testutil.DoRequest(r, req).Code)
	})

	t.Run("inactive users may log out", func(t *testing.T) {
		r, svc := newRouter(t)
		svc.EXPECT().Logout(gomock.Any(), inactive, models.LogoutRequest{RefreshToken: "refresh"}).Return(nil)

		req := testutil.WithBearer(testutil.NewJSONRequest(t, http.MethodPost, "/auth/cerrar-sesion",
			models.LogoutRequest{RefreshToken: "refresh"}), "inactive-token")
		assert.Equal(t, http.StatusNoContent, testutil.DoRequest(r, req).Code)
	})

	t.Run("requires a token", func(t *testing.T) {
		r, _ := newRouter(t)
		rr := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodPost, "/auth/cerrar-sesion"))
		testutil.AssertError(t, rr, http.StatusUnauthorized, "unauthorized", "token inválido")
	})
}

func TestMe(t *testing.T) {
	t.Run("active principal is normalized", func(t *testing.T) {
		r, _ := newRouter(t)
		rr := testutil.DoRequest(r, testutil.WithBearer(testutil.NewRequest(t, http.MethodGet, "/auth/yo"), "reader-token"))

		require.Equal(t, http.StatusOK, rr.Code)
		view := testutil.UnmarshalResponse[usuarioModels.NormalizedView](t, rr)
		assert.Equal(t, "ana@biblioteca.co", view.Email)
		assert.Equal(t, "LEC", view.Role)
		assert.Equal(t, "Activo", view.Status)
	})

	t.Run("inactive principal is rejected", func(t *testing.T) {
		r, _ := newRouter(t)
		rr := testutil.DoRequest(r, testutil.WithBearer(testutil.NewRequest(t, http.MethodGet, "/auth/yo"), "inactive-token"))
		testutil.AssertError(t, rr, http.StatusBadRequest, "inactive_user", "usuario inactivo")
	})
}
