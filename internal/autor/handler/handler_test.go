package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"biblioteca/internal/auditctx"
	"biblioteca/internal/authz"
	"biblioteca/internal/autor/handler/mocks"
	"biblioteca/internal/autor/models"
	"biblioteca/internal/autor/service"
	storeMocks "biblioteca/internal/autor/service/mocks"
	"biblioteca/internal/identity"
	usuarioModels "biblioteca/internal/usuario/models"
	dErrors "biblioteca/pkg/domain-errors"
	"biblioteca/pkg/pagination"
	authmw "biblioteca/pkg/platform/middleware/auth"
	"biblioteca/pkg/platform/middleware/metadata"
	"biblioteca/pkg/testutil"
)

type tokenResolver map[string]*usuarioModels.User

func (t tokenResolver) Resolve(_ context.Context, token string, meta identity.Metadata) (*identity.Principal, error) {
	u, ok := t[token]
	if !ok {
		return nil, dErrors.New(dErrors.CodeInvalidToken, "unknown token")
	}
	return &identity.Principal{User: u, Username: u.Email, IP: meta.ClientIP, Host: meta.Host}, nil
}

var users = tokenResolver{
	"admin-token":    {ID: 1, Email: "admin@biblioteca.co", RoleID: 2, StatusID: 1},
	"reader-token":   {ID: 7, Email: "ana@biblioteca.co", RoleID: 1, StatusID: 1},
	"inactive-token": {ID: 9, Email: "luis@biblioteca.co", RoleID: 1, StatusID: 3},
}

func newRouter(t *testing.T, svc Service) chi.Router {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	guards := authmw.NewGuards(users, nil, authz.NewGate(1, 2, time.UTC), nil, logger)

	r := chi.NewRouter()
	r.Use(metadata.ClientMetadata)
	New(svc, guards, time.UTC, logger).Register(r)
	return r
}

type recordingRunner struct {
	attrs []auditctx.Attribution
}

func (r *recordingRunner) Run(ctx context.Context, attr auditctx.Attribution, fn func(ctx context.Context) error) error {
	r.attrs = append(r.attrs, attr)
	return fn(ctx)
}

func TestListIsPublicAndPaginates(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)
	router := newRouter(t, svc)
	svc.EXPECT().List(gomock.Any(), &pagination.Params{Page: 1, PageSize: 2}).
		Return([]*models.Author{{ID: 1, FirstName: "Isabel", LastName: "Allende"}, {ID: 2, FirstName: "Julio", LastName: "Cortázar"}}, int64(3), nil)

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/autores?page=1&page_size=2"))
	require.Equal(t, http.StatusOK, rr.Code)
	page := testutil.UnmarshalResponse[pagination.Page[models.View]](t, rr)
	assert.Equal(t, int64(2), page.TotalPages)
	assert.True(t, page.HasNext)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "Cortázar", page.Items[1].LastName)
}

func TestGetNeedsActiveUser(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)
	router := newRouter(t, svc)

	testutil.Given(t, "an anonymous caller", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/autores/4"))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	testutil.When(t, "an inactive reader asks", func(t *testing.T) {
		req := testutil.WithBearer(testutil.NewRequest(t, http.MethodGet, "/autores/4"), "inactive-token")
		rr := testutil.DoRequest(router, req)
		testutil.AssertError(t, rr, http.StatusBadRequest, "inactive_user", "usuario inactivo")
	})

	testutil.Then(t, "an active reader gets the author", func(t *testing.T) {
		birth := time.Date(1914, 8, 26, 0, 0, 0, 0, time.UTC)
		svc.EXPECT().Get(gomock.Any(), int32(4)).
			Return(&models.Author{ID: 4, FirstName: "Julio", LastName: "Cortázar", BirthDate: &birth}, nil)
		req := testutil.WithBearer(testutil.NewRequest(t, http.MethodGet, "/autores/4"), "reader-token")
		rr := testutil.DoRequest(router, req)
		require.Equal(t, http.StatusOK, rr.Code)
		view := testutil.UnmarshalResponse[models.View](t, rr)
		require.NotNil(t, view.BirthDate)
		assert.Equal(t, "1914-08-26", *view.BirthDate)
	})
}

func TestCreateForbiddenThenAllowedForAdmin(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := storeMocks.NewMockStore(ctrl)
	runner := &recordingRunner{}
	router := newRouter(t, service.New(store, runner, nil))
	body := map[string]any{
		"nombre":           "julio",
		"apellido":         "CORTÁZAR",
		"fecha_nacimiento": "1914-08-26",
		"nacionalidad":     "Argentina",
	}

	testutil.Given(t, "a reader posting an author", func(t *testing.T) {
		req := testutil.WithBearer(testutil.NewJSONRequest(t, http.MethodPost, "/autores", body), "reader-token")
		rr := testutil.DoRequest(router, req)
		assert.Equal(t, http.StatusForbidden, rr.Code)
		assert.Empty(t, runner.attrs)
	})

	testutil.Then(t, "an administrator creates it under their attribution", func(t *testing.T) {
		store.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, a *models.Author) error {
			a.ID = 12
			return nil
		})
		req := testutil.WithBearer(testutil.NewJSONRequest(t, http.MethodPost, "/autores", body), "admin-token")
		req.Host = "api.biblioteca.co"
		req.Header.Set("X-Forwarded-For", "203.0.113.5")
		rr := testutil.DoRequest(router, req)

		require.Equal(t, http.StatusCreated, rr.Code)
		view := testutil.UnmarshalResponse[models.View](t, rr)
		assert.Equal(t, int32(12), view.ID)
		assert.Equal(t, "Julio", view.FirstName)
		assert.Equal(t, "Cortázar", view.LastName)
		require.Len(t, runner.attrs, 1)
		assert.Equal(t, auditctx.Attribution{
			Username:  "admin@biblioteca.co",
			IP:        "203.0.113.5",
			Host:      "api.biblioteca.co",
			Operation: "crear_autor",
		}, runner.attrs[0])
	})
}

func TestCreateRejectsBadDate(t *testing.T) {
	ctrl := gomock.NewController(t)
	router := newRouter(t, mocks.NewMockService(ctrl))
	body := map[string]any{"nombre": "Julio", "apellido": "Cortázar", "fecha_nacimiento": "26/08/1914", "nacionalidad": "Argentina"}

	req := testutil.WithBearer(testutil.NewJSONRequest(t, http.MethodPost, "/autores", body), "admin-token")
	rr := testutil.DoRequest(router, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUpdatePartialBody(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)
	router := newRouter(t, svc)
	nationality := "Francesa"
	svc.EXPECT().Update(gomock.Any(), gomock.Any(), int32(4), models.UpdateRequest{Nationality: &nationality}).
		Return(&models.Author{ID: 4, FirstName: "Julio", LastName: "Cortázar", Nationality: &nationality}, nil)

	req := testutil.WithBearer(testutil.NewJSONRequest(t, http.MethodPut, "/autores/4", map[string]any{"nacionalidad": "Francesa"}), "admin-token")
	rr := testutil.DoRequest(router, req)
	require.Equal(t, http.StatusOK, rr.Code)
	view := testutil.UnmarshalResponse[models.View](t, rr)
	assert.Equal(t, "Francesa", *view.Nationality)
}

func TestDeleteReturnsMessage(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)
	router := newRouter(t, svc)
	gomock.InOrder(
		svc.EXPECT().Delete(gomock.Any(), gomock.Any(), int32(4)).Return(nil),
		svc.EXPECT().Delete(gomock.Any(), gomock.Any(), int32(4)).
			Return(dErrors.New(dErrors.CodeNotFound, "Autor no encontrado")),
	)

	req := testutil.WithBearer(testutil.NewRequest(t, http.MethodDelete, "/autores/4"), "admin-token")
	rr := testutil.DoRequest(router, req)
	require.Equal(t, http.StatusOK, rr.Code)
	msg := testutil.UnmarshalResponse[usuarioModels.Message](t, rr)
	assert.Equal(t, "Autor eliminado con éxito", msg.Message)

	req = testutil.WithBearer(testutil.NewRequest(t, http.MethodDelete, "/autores/4"), "admin-token")
	rr = testutil.DoRequest(router, req)
	testutil.AssertError(t, rr, http.StatusNotFound, "not_found", "Autor no encontrado")
}
