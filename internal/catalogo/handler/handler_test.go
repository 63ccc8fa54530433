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
	"biblioteca/internal/catalogo/handler/mocks"
	"biblioteca/internal/catalogo/models"
	"biblioteca/internal/catalogo/service"
	storeMocks "biblioteca/internal/catalogo/service/mocks"
	"biblioteca/internal/identity"
	usuarioModels "biblioteca/internal/usuario/models"
	dErrors "biblioteca/pkg/domain-errors"
	"biblioteca/pkg/pagination"
	authmw "biblioteca/pkg/platform/middleware/auth"
	"biblioteca/pkg/platform/middleware/metadata"
	"biblioteca/pkg/testutil"
)

// tokenResolver stands in for the identity resolver: it looks the user up by
// token and stamps the request metadata onto the principal.
type tokenResolver map[string]*usuarioModels.User

func (t tokenResolver) Resolve(_ context.Context, token string, meta identity.Metadata) (*identity.Principal, error) {
	u, ok := t[token]
	if !ok {
		return nil, dErrors.New(dErrors.CodeInvalidToken, "unknown token")
	}
	return &identity.Principal{User: u, Username: u.Email, IP: meta.ClientIP, Host: meta.Host}, nil
}

var users = tokenResolver{
	"admin-token":  {ID: 1, Email: "admin@biblioteca.co", RoleID: 2, StatusID: 1},
	"reader-token": {ID: 7, Email: "ana@biblioteca.co", RoleID: 1, StatusID: 1},
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

func TestCreateRoleForbiddenThenAllowedForAdmin(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := storeMocks.NewMockStore(ctrl)
	runner := &recordingRunner{}
	router := newRouter(t, service.New(store, runner, nil))
	body := map[string]any{"nombre": "Bibliotecario", "acronimo": "BIB"}

	testutil.Given(t, "a reader posting a new role", func(t *testing.T) {
		req := testutil.WithBearer(testutil.NewJSONRequest(t, http.MethodPost, "/roles", body), "reader-token")
		rr := testutil.DoRequest(router, req)

		testutil.Then(t, "the request is forbidden and nothing is written", func(t *testing.T) {
			assert.Equal(t, http.StatusForbidden, rr.Code)
			assert.Empty(t, runner.attrs)
		})
	})

	testutil.Given(t, "an administrator retrying the same request", func(t *testing.T) {
		store.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, it *models.Item) error {
			it.ID = 3
			return nil
		})
		req := testutil.WithBearer(testutil.NewJSONRequest(t, http.MethodPost, "/roles", body), "admin-token")
		req.Host = "api.biblioteca.co"
		req.Header.Set("X-Forwarded-For", "198.51.100.7, 10.0.0.1")
		rr := testutil.DoRequest(router, req)

		testutil.Then(t, "the role is created", func(t *testing.T) {
			require.Equal(t, http.StatusCreated, rr.Code)
			view := testutil.UnmarshalResponse[map[string]any](t, rr)
			assert.Equal(t, float64(3), (*view)["id"])
			assert.Equal(t, "BIB", (*view)["acronimo"])
		})

		testutil.And(t, "the write is attributed to the administrator verbatim", func(t *testing.T) {
			require.Len(t, runner.attrs, 1)
			assert.Equal(t, auditctx.Attribution{
				Username:  "admin@biblioteca.co",
				IP:        "198.51.100.7",
				Host:      "api.biblioteca.co",
				Operation: "crear_rol",
			}, runner.attrs[0])
		})
	})
}

func TestListIsPublic(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)
	router := newRouter(t, svc)
	tipo := "usuario"
	svc.EXPECT().List(gomock.Any(), models.KindStatus, models.Filter{}, nil).
		Return([]*models.Item{{ID: 1, Name: "Activo", Type: &tipo}}, int64(1), nil)

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/estados"))
	require.Equal(t, http.StatusOK, rr.Code)
	items := testutil.UnmarshalResponse[[]map[string]any](t, rr)
	require.Len(t, *items, 1)
	assert.Equal(t, "usuario", (*items)[0]["tipo"])
	assert.NotContains(t, (*items)[0], "acronimo")
}

func TestDeleteRequiresToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	router := newRouter(t, mocks.NewMockService(ctrl))

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodDelete, "/tipos-documento/1"))
	testutil.AssertError(t, rr, http.StatusUnauthorized, "unauthorized", "token inválido")
}

func TestDeleteInUseConflict(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)
	router := newRouter(t, svc)
	svc.EXPECT().Delete(gomock.Any(), gomock.Any(), models.KindDocumentType, int32(1)).
		Return(dErrors.New(dErrors.CodeConflict, "Tipo de documento está en uso"))

	req := testutil.WithBearer(testutil.NewRequest(t, http.MethodDelete, "/tipos-documento/1"), "admin-token")
	rr := testutil.DoRequest(router, req)
	testutil.AssertError(t, rr, http.StatusConflict, "conflict", "Tipo de documento está en uso")
}

func TestDeleteByAdmin(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)
	router := newRouter(t, svc)
	svc.EXPECT().Delete(gomock.Any(), gomock.Any(), models.KindRole, int32(3)).Return(nil)

	req := testutil.WithBearer(testutil.NewRequest(t, http.MethodDelete, "/roles/3"), "admin-token")
	rr := testutil.DoRequest(router, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestGetInvalidID(t *testing.T) {
	ctrl := gomock.NewController(t)
	router := newRouter(t, mocks.NewMockService(ctrl))

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/roles/0"))
	testutil.AssertError(t, rr, http.StatusBadRequest, "validation_error", "id debe ser un entero positivo")
}

func TestListStatusesByTypePaginated(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)
	router := newRouter(t, svc)
	tipo := "prestamo"
	svc.EXPECT().List(gomock.Any(), models.KindStatus, models.Filter{Type: "prestamo"}, &pagination.Params{Page: 1, PageSize: 1}).
		Return([]*models.Item{{ID: 6, Name: "Vencido", Type: &tipo}}, int64(3), nil)

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/estados?tipo=Prestamo&page=1&page_size=1"))
	require.Equal(t, http.StatusOK, rr.Code)
	page := testutil.UnmarshalResponse[pagination.Page[models.View]](t, rr)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, int64(3), page.TotalPages)
	assert.True(t, page.HasNext)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Vencido", page.Items[0].Name)
}

func TestListTypeFilterOnlyForStatuses(t *testing.T) {
	ctrl := gomock.NewController(t)
	router := newRouter(t, mocks.NewMockService(ctrl))

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/categorias?tipo=usuario"))
	testutil.AssertError(t, rr, http.StatusBadRequest, "validation_error", "tipo solo aplica a estados")
}

func TestUpdateRequiresAdministrator(t *testing.T) {
	ctrl := gomock.NewController(t)
	router := newRouter(t, mocks.NewMockService(ctrl))
	body := map[string]any{"nombre": "Poesía"}

	req := testutil.WithBearer(testutil.NewJSONRequest(t, http.MethodPut, "/categorias/2", body), "reader-token")
	rr := testutil.DoRequest(router, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestUpdateCategoryAttributedToAdministrator(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := storeMocks.NewMockStore(ctrl)
	runner := &recordingRunner{}
	router := newRouter(t, service.New(store, runner, nil))
	store.EXPECT().Update(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, it *models.Item) error {
		assert.Equal(t, int32(2), it.ID)
		assert.Equal(t, models.KindCategory, it.Kind)
		return nil
	})

	body := map[string]any{"nombre": " Poesía ", "descripcion": "Verso y lírica"}
	req := testutil.WithBearer(testutil.NewJSONRequest(t, http.MethodPut, "/categorias/2", body), "admin-token")
	req.Host = "api.biblioteca.co"
	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	rr := testutil.DoRequest(router, req)

	require.Equal(t, http.StatusOK, rr.Code)
	view := testutil.UnmarshalResponse[models.View](t, rr)
	assert.Equal(t, "Poesía", view.Name)
	require.Len(t, runner.attrs, 1)
	assert.Equal(t, auditctx.Attribution{
		Username:  "admin@biblioteca.co",
		IP:        "203.0.113.5",
		Host:      "api.biblioteca.co",
		Operation: "actualizar_categoria",
	}, runner.attrs[0])
}
