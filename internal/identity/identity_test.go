package identity_test

//go:generate mockgen -source=identity.go -destination=mocks/mocks.go -package=mocks TokenVerifier,UserFinder

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"biblioteca/internal/identity"
	"biblioteca/internal/identity/mocks"
	"biblioteca/internal/usuario/models"
	dErrors "biblioteca/pkg/domain-errors"
	"biblioteca/pkg/platform/sentinel"
	"biblioteca/pkg/requestcontext"
)

type ResolverSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	verifier *mocks.MockTokenVerifier
	users    *mocks.MockUserFinder
	resolver *identity.Resolver
}

func TestResolverSuite(t *testing.T) {
	suite.Run(t, new(ResolverSuite))
}

func (s *ResolverSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.verifier = mocks.NewMockTokenVerifier(s.ctrl)
	s.users = mocks.NewMockUserFinder(s.ctrl)
	s.resolver = identity.NewResolver(s.verifier, s.users)
}

func (s *ResolverSuite) TearDownTest() {
	s.ctrl.Finish()
}

func storedUser() *models.User {
	return &models.User{
		ID:             7,
		Email:          "Ana@Biblioteca.co",
		RoleID:         2,
		StatusID:       1,
		DocumentTypeID: 1,
		Role:           &models.Role{ID: 2, Acronym: "ADM"},
		Status:         &models.Status{ID: 1, Name: "Activo"},
		DocumentType:   &models.DocumentType{ID: 1, Acronym: "CC"},
	}
}

func (s *ResolverSuite) TestResolvesPrincipal() {
	ctx := context.Background()
	s.verifier.EXPECT().VerifyAccessToken("good").Return(&identity.TokenClaims{UserID: 7, JTI: "j"}, nil)
	s.users.EXPECT().FindByIDWithRelations(ctx, int64(7)).Return(storedUser(), nil)

	p, err := s.resolver.Resolve(ctx, "good", identity.Metadata{ClientIP: "203.0.113.5", Host: "api.biblioteca.co"})
	s.Require().NoError(err)
	s.Equal(int64(7), p.ID())
	s.Equal(int32(2), p.RoleID())
	s.Equal(int32(1), p.StatusID())
	s.Equal(int32(1), p.DocumentTypeID())
	s.Equal("ana@biblioteca.co", p.Username)
	s.Equal("203.0.113.5", p.IP)
	s.Equal("api.biblioteca.co", p.Host)
}

func (s *ResolverSuite) TestMissingHostUsesSystemSentinel() {
	ctx := context.Background()
	s.verifier.EXPECT().VerifyAccessToken("good").Return(&identity.TokenClaims{UserID: 7}, nil)
	s.users.EXPECT().FindByIDWithRelations(ctx, int64(7)).Return(storedUser(), nil)

	p, err := s.resolver.Resolve(ctx, "good", identity.Metadata{ClientIP: "10.0.0.9"})
	s.Require().NoError(err)
	s.Equal(requestcontext.SystemActor, p.Host)
}

func (s *ResolverSuite) TestInvalidTokenNeverLoadsUser() {
	s.verifier.EXPECT().VerifyAccessToken("tampered").
		Return(nil, dErrors.New(dErrors.CodeInvalidToken, "token inválido"))

	p, err := s.resolver.Resolve(context.Background(), "tampered", identity.Metadata{})
	s.Nil(p)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidToken))
}

func (s *ResolverSuite) TestUncodedVerifierErrorIsInvalidToken() {
	s.verifier.EXPECT().VerifyAccessToken("weird").Return(nil, errors.New("boom"))

	_, err := s.resolver.Resolve(context.Background(), "weird", identity.Metadata{})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidToken))
}

func (s *ResolverSuite) TestEmptyToken() {
	_, err := s.resolver.Resolve(context.Background(), "   ", identity.Metadata{})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidToken))
}

func (s *ResolverSuite) TestUnknownSubject() {
	ctx := context.Background()
	s.verifier.EXPECT().VerifyAccessToken("orphan").Return(&identity.TokenClaims{UserID: 99}, nil)
	s.users.EXPECT().FindByIDWithRelations(ctx, int64(99)).Return(nil, sentinel.ErrNotFound)

	p, err := s.resolver.Resolve(ctx, "orphan", identity.Metadata{})
	s.Nil(p)
	s.True(dErrors.HasCode(err, dErrors.CodeUserNotFound))
}

func (s *ResolverSuite) TestStorageFailureIsInternal() {
	ctx := context.Background()
	s.verifier.EXPECT().VerifyAccessToken("good").Return(&identity.TokenClaims{UserID: 7}, nil)
	s.users.EXPECT().FindByIDWithRelations(ctx, int64(7)).Return(nil, errors.New("connection refused"))

	_, err := s.resolver.Resolve(ctx, "good", identity.Metadata{})
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func TestAttributionFor(t *testing.T) {
	ctx := requestcontext.WithClientMetadata(context.Background(), "198.51.100.4", "biblioteca.local")

	system := identity.AttributionFor(ctx, nil, "crear_usuario")
	assert.Equal(t, requestcontext.SystemActor, system.Username)
	assert.Equal(t, "198.51.100.4", system.IP)
	assert.Equal(t, "biblioteca.local", system.Host)
	assert.Equal(t, "crear_usuario", system.Operation)

	p := &identity.Principal{User: storedUser(), Username: "ana@biblioteca.co", IP: "203.0.113.5", Host: "api"}
	actor := identity.AttributionFor(ctx, p, "eliminar_usuario")
	assert.Equal(t, "ana@biblioteca.co", actor.Username)
	assert.Equal(t, "203.0.113.5", actor.IP)
}

func TestPrincipalContext(t *testing.T) {
	assert.Nil(t, identity.FromContext(context.Background()))

	p := &identity.Principal{User: storedUser()}
	ctx := identity.WithPrincipal(context.Background(), p)
	require.Same(t, p, identity.FromContext(ctx))
}
