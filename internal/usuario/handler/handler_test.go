package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"biblioteca/internal/authz"
	"biblioteca/internal/identity"
	"biblioteca/internal/usuario/handler/mocks"
	"biblioteca/internal/usuario/models"
	dErrors "biblioteca/pkg/domain-errors"
	"biblioteca/pkg/pagination"
	authmw "biblioteca/pkg/platform/middleware/auth"
)

type tokenResolver map[string]*identity.Principal

func (t tokenResolver) Resolve(_ context.Context, token string, _ identity.Metadata) (*identity.Principal, error) {
	if p, ok := t[token]; ok {
		return p, nil
	}
	return nil, dErrors.New(dErrors.CodeInvalidToken, "unknown token")
}

type HandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
	admin   *identity.Principal
	reader  *identity.Principal
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.T().Cleanup(ctrl.Finish)
	s.service = mocks.NewMockService(ctrl)

	s.admin = &identity.Principal{User: &models.User{ID: 1, Email: "admin@biblioteca.co", RoleID: 2, StatusID: 1}, Username: "admin@biblioteca.co"}
	s.reader = &identity.Principal{User: &models.User{ID: 7, Email: "ana@biblioteca.co", RoleID: 1, StatusID: 1}, Username: "ana@biblioteca.co"}
	inactive := &identity.Principal{User: &models.User{ID: 8, Email: "inactivo@biblioteca.co", RoleID: 2, StatusID: 2}}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	resolver := tokenResolver{"admin-token": s.admin, "reader-token": s.reader, "inactive-token": inactive}
	guards := authmw.NewGuards(resolver, nil, authz.NewGate(1, 2, time.UTC), nil, logger)

	s.router = chi.NewRouter()
	New(s.service, guards, time.UTC, logger).Register(s.router)
}

func (s *HandlerSuite) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *HandlerSuite) decode(w *httptest.ResponseRecorder) map[string]any {
	var body map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func (s *HandlerSuite) TestCreateRequiresToken() {
	w := s.do(http.MethodPost, "/usuarios", "", map[string]any{"correo": "x@y.co"})
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal("Bearer", w.Header().Get("WWW-Authenticate"))
	s.Equal("token inválido", s.decode(w)["error_description"])
}

func (s *HandlerSuite) TestCreateByReaderIsForbidden() {
	w := s.do(http.MethodPost, "/usuarios", "reader-token", map[string]any{"correo": "x@y.co"})
	s.Equal(http.StatusForbidden, w.Code)
}

func (s *HandlerSuite) TestInactiveAdminRejected() {
	w := s.do(http.MethodGet, "/usuarios", "inactive-token", nil)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("usuario inactivo", s.decode(w)["error_description"])
}

func (s *HandlerSuite) TestCreateByAdmin() {
	created := time.Date(2025, 3, 1, 15, 0, 0, 0, time.UTC)
	s.service.EXPECT().Create(gomock.Any(), s.admin, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ *identity.Principal, req models.CreateRequest) (*models.User, error) {
			s.Equal("nuevo@biblioteca.co", req.Email)
			return &models.User{ID: 10, Email: req.Email, RoleID: 1, StatusID: 1, CreatedAt: created}, nil
		})

	w := s.do(http.MethodPost, "/usuarios", "admin-token", map[string]any{"correo": "nuevo@biblioteca.co", "nombre": "Nuevo"})
	s.Equal(http.StatusCreated, w.Code)
	body := s.decode(w)
	s.Equal(float64(10), body["id"])
	s.Equal("nuevo@biblioteca.co", body["correo"])
}

func (s *HandlerSuite) TestCreateRejectsUnknownFields() {
	w := s.do(http.MethodPost, "/usuarios", "admin-token", map[string]any{"correo": "x@y.co", "es_admin": true})
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlerSuite) TestListPaginatedNormalized() {
	s.service.EXPECT().List(gomock.Any(), &pagination.Params{Page: 2, PageSize: 1}, true).
		Return([]*models.User{{ID: 2, Role: &models.Role{Acronym: "LEC"}}}, int64(3), nil)

	w := s.do(http.MethodGet, "/usuarios?page=2&page_size=1&normalizado=true", "admin-token", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	body := s.decode(w)
	s.Equal(float64(3), body["total"])
	s.Equal(float64(3), body["total_pages"])
	s.Equal(true, body["has_next"])
	s.Equal(true, body["has_prev"])
	items := body["items"].([]any)
	s.Equal("LEC", items[0].(map[string]any)["rol"])
}

func (s *HandlerSuite) TestListWithoutPaginationReturnsArray() {
	s.service.EXPECT().List(gomock.Any(), (*pagination.Params)(nil), false).
		Return([]*models.User{{ID: 1}, {ID: 2}}, int64(2), nil)

	w := s.do(http.MethodGet, "/usuarios", "admin-token", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var items []map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &items))
	s.Len(items, 2)
}

func (s *HandlerSuite) TestListRejectsHalfPagination() {
	w := s.do(http.MethodGet, "/usuarios?page=1", "admin-token", nil)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlerSuite) TestGetNotFound() {
	s.service.EXPECT().Get(gomock.Any(), int64(99), false).
		Return(nil, dErrors.New(dErrors.CodeNotFound, "Usuario no encontrado"))

	w := s.do(http.MethodGet, "/usuarios/99", "admin-token", nil)
	s.Equal(http.StatusNotFound, w.Code)
	s.Equal("Usuario no encontrado", s.decode(w)["error_description"])
}

func (s *HandlerSuite) TestGetRejectsNonNumericID() {
	w := s.do(http.MethodGet, "/usuarios/abc", "admin-token", nil)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlerSuite) TestUpdateProfileByReader() {
	s.service.EXPECT().UpdateProfile(gomock.Any(), s.reader, int64(7), gomock.Any()).
		Return(&models.User{ID: 7, FirstName: "Beatriz"}, nil)

	w := s.do(http.MethodPut, "/usuarios/7/perfil", "reader-token", map[string]any{"nombre": "Beatriz"})
	s.Equal(http.StatusOK, w.Code)
	s.Equal("Beatriz", s.decode(w)["nombre"])
}

func (s *HandlerSuite) TestChangePasswordForbiddenForOtherUser() {
	s.service.EXPECT().ChangePassword(gomock.Any(), s.reader, int64(8), gomock.Any()).
		Return(models.Message{}, dErrors.New(dErrors.CodeForbidden, "no tiene permisos para modificar este usuario"))

	w := s.do(http.MethodPut, "/usuarios/8/contrasena", "reader-token",
		map[string]any{"contrasena_actual": "a", "contrasena_nueva": "b"})
	s.Equal(http.StatusForbidden, w.Code)
}

func (s *HandlerSuite) TestPasswordResetIsPublic() {
	s.service.EXPECT().RequestPasswordReset(gomock.Any(), models.ResetRequest{Email: "ana@biblioteca.co"}).
		Return(models.Message{Message: "ok"}, nil)

	w := s.do(http.MethodPost, "/usuarios/resetear-contrasena", "", map[string]any{"correo": "ana@biblioteca.co"})
	s.Equal(http.StatusOK, w.Code)
}

func (s *HandlerSuite) TestVerifyResetInvalidToken() {
	s.service.EXPECT().ResetPassword(gomock.Any(), gomock.Any()).
		Return(models.Message{}, dErrors.New(dErrors.CodeBadRequest, "Token inválido"))

	w := s.do(http.MethodPost, "/usuarios/verificar-token", "",
		map[string]any{"correo": "ana@biblioteca.co", "token": "x", "contrasena_nueva": "y"})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("Token inválido", s.decode(w)["error_description"])
}

func (s *HandlerSuite) TestSoftDelete() {
	s.service.EXPECT().SoftDelete(gomock.Any(), s.admin, int64(7)).
		Return(models.Message{Message: "Usuario eliminado suavemente exitosamente"}, nil)

	w := s.do(http.MethodPatch, "/usuarios/7/eliminacion-suave", "admin-token", nil)
	s.Equal(http.StatusOK, w.Code)
}

func (s *HandlerSuite) TestDelete() {
	s.service.EXPECT().Delete(gomock.Any(), s.admin, int64(7)).Return(nil)

	w := s.do(http.MethodDelete, "/usuarios/7", "admin-token", nil)
	s.Equal(http.StatusNoContent, w.Code)
}

func (s *HandlerSuite) TestInternalErrorHidesDescription() {
	s.service.EXPECT().Delete(gomock.Any(), s.admin, int64(7)).
		Return(dErrors.New(dErrors.CodeInternal, "pq: connection reset"))

	w := s.do(http.MethodDelete, "/usuarios/7", "admin-token", nil)
	s.Equal(http.StatusInternalServerError, w.Code)
	s.NotContains(w.Body.String(), "connection reset")
}
