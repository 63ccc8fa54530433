package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"biblioteca/internal/auth/models"
	"biblioteca/internal/auth/store/revocation"
	"biblioteca/internal/identity"
	jwttoken "biblioteca/internal/jwt_token"
	"biblioteca/internal/platform/metrics"
	usuarioModels "biblioteca/internal/usuario/models"
	dErrors "biblioteca/pkg/domain-errors"
	"biblioteca/pkg/email"
	"biblioteca/pkg/platform/sentinel"
	"biblioteca/pkg/requestcontext"
	"biblioteca/pkg/secrets"
)

type UserStore interface {
	FindByID(ctx context.Context, id int64) (*usuarioModels.User, error)
	FindByEmail(ctx context.Context, email string) (*usuarioModels.User, error)
}

// Registrar creates reader accounts for anonymous callers.
type Registrar interface {
	Register(ctx context.Context, req usuarioModels.CreateRequest) (*usuarioModels.User, error)
}

type TokenIssuer interface {
	GenerateAccessToken(userID int64, expiresIn time.Duration) (string, error)
	GenerateRefreshToken(userID int64, expiresIn time.Duration) (string, error)
	ValidateRefreshToken(token string) (*jwttoken.Claims, error)
}

// RevocationList records token ids invalidated at logout.
type RevocationList interface {
	Revoke(ctx context.Context, entries ...revocation.Entry) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// LoginThrottle counts failed logins per email and client IP.
type LoginThrottle interface {
	Check(ctx context.Context, email, ip string) error
	RecordFailure(ctx context.Context, email, ip string) error
	Clear(ctx context.Context, email, ip string) error
}

type PasswordVerifier interface {
	Verify(password, hash string) (bool, error)
}

// Config holds token lifetimes and the status a user needs to sign in.
type Config struct {
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	ActiveStatusID  int32
}

// Service issues, refreshes and revokes tokens.
type Service struct {
	users     UserStore
	registrar Registrar
	tokens    TokenIssuer
	revoked   RevocationList
	passwords PasswordVerifier
	throttle  LoginThrottle
	cfg       Config
	logger    *slog.Logger
	metrics   *metrics.Metrics

	dummyHashOnce sync.Once
	dummyHash     string
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithPasswordVerifier(v PasswordVerifier) Option {
	return func(s *Service) {
		s.passwords = v
	}
}

// WithLoginThrottle enables lockout after repeated failed logins.
func WithLoginThrottle(t LoginThrottle) Option {
	return func(s *Service) {
		s.throttle = t
	}
}

func New(users UserStore, registrar Registrar, tokens TokenIssuer, revoked RevocationList, cfg Config, opts ...Option) *Service {
	s := &Service{
		users:     users,
		registrar: registrar,
		tokens:    tokens,
		revoked:   revoked,
		passwords: bcryptVerifier{},
		throttle:  noThrottle{},
		cfg:       cfg,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type noThrottle struct{}

func (noThrottle) Check(context.Context, string, string) error         { return nil }
func (noThrottle) RecordFailure(context.Context, string, string) error { return nil }
func (noThrottle) Clear(context.Context, string, string) error         { return nil }

type bcryptVerifier struct{}

func (bcryptVerifier) Verify(password, hash string) (bool, error) {
	return secrets.Verify(password, hash)
}

func invalidCredentials() error {
	return dErrors.New(dErrors.CodeUnauthorized, "Credenciales inválidas")
}

// Register creates a reader account.
func (s *Service) Register(ctx context.Context, req usuarioModels.CreateRequest) (*usuarioModels.User, error) {
	return s.registrar.Register(ctx, req)
}

// Login checks the credentials and issues an access and a refresh token.
// Unknown emails and wrong passwords produce the same error.
func (s *Service) Login(ctx context.Context, req models.LoginRequest) (*models.TokenResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	username, ip := email.Normalize(req.Username), requestcontext.ClientIP(ctx)
	if err := s.throttle.Check(ctx, username, ip); err != nil {
		if dErrors.HasCode(err, dErrors.CodeTooManyRequests) {
			s.metrics.IncrementLogin("locked")
			return nil, err
		}
		s.logger.WarnContext(ctx, "login lockout check failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}

	u, err := s.users.FindByEmail(ctx, username)
	if errors.Is(err, sentinel.ErrNotFound) {
		s.burnPasswordCheck(req.Password)
		return nil, s.loginFailed(ctx, username, ip)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}

	ok, err := s.passwords.Verify(req.Password, u.PasswordHash)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify password")
	}
	if !ok {
		return nil, s.loginFailed(ctx, username, ip)
	}
	if err := s.throttle.Clear(ctx, username, ip); err != nil {
		s.logger.WarnContext(ctx, "failed to clear login failures", "error", err)
	}
	if u.StatusID != s.cfg.ActiveStatusID {
		s.metrics.IncrementLogin("inactive")
		return nil, dErrors.New(dErrors.CodeInactiveUser, "usuario inactivo")
	}

	access, err := s.tokens.GenerateAccessToken(u.ID, s.cfg.AccessTokenTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue access token")
	}
	refresh, err := s.tokens.GenerateRefreshToken(u.ID, s.cfg.RefreshTokenTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue refresh token")
	}

	s.metrics.IncrementLogin("success")
	s.logger.InfoContext(ctx, "user logged in",
		"user_id", u.ID,
		"request_id", requestcontext.RequestID(ctx),
	)
	return &models.TokenResponse{AccessToken: access, RefreshToken: refresh, TokenType: models.TokenTypeBearer}, nil
}

// loginFailed records the failure and returns the generic credentials error.
// A throttle outage is logged rather than surfaced.
func (s *Service) loginFailed(ctx context.Context, username, ip string) error {
	s.metrics.IncrementLogin("invalid_credentials")
	if err := s.throttle.RecordFailure(ctx, username, ip); err != nil {
		s.logger.WarnContext(ctx, "failed to record login failure",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	return invalidCredentials()
}

// burnPasswordCheck spends one bcrypt comparison so unknown emails take as
// long as wrong passwords.
func (s *Service) burnPasswordCheck(password string) {
	s.dummyHashOnce.Do(func() {
		s.dummyHash, _ = secrets.Hash("Dummy#Password1")
	})
	if s.dummyHash != "" {
		_, _ = s.passwords.Verify(password, s.dummyHash)
	}
}

// Refresh exchanges a live refresh token for a new access token.
func (s *Service) Refresh(ctx context.Context, req models.RefreshRequest) (*models.RefreshResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	claims, err := s.tokens.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		return nil, err
	}
	if err := s.ensureNotRevoked(ctx, claims.ID); err != nil {
		return nil, err
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, err
	}
	u, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeUserNotFound, "user not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	if u.StatusID != s.cfg.ActiveStatusID {
		return nil, dErrors.New(dErrors.CodeInactiveUser, "usuario inactivo")
	}

	access, err := s.tokens.GenerateAccessToken(u.ID, s.cfg.AccessTokenTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue access token")
	}
	return &models.RefreshResponse{AccessToken: access, TokenType: models.TokenTypeBearer}, nil
}

// Logout revokes the presented access token and, when given, the refresh
// token. A refresh token belonging to another user is rejected.
func (s *Service) Logout(ctx context.Context, p *identity.Principal, req models.LogoutRequest) error {
	if p == nil {
		return dErrors.New(dErrors.CodeUnauthorized, "no autenticado")
	}
	entries := []revocation.Entry{{JTI: p.TokenID, TTL: s.cfg.AccessTokenTTL}}

	if req.RefreshToken != "" {
		claims, err := s.tokens.ValidateRefreshToken(req.RefreshToken)
		if err != nil {
			return err
		}
		owner, err := claims.UserID()
		if err != nil {
			return err
		}
		if owner != p.ID() {
			return dErrors.New(dErrors.CodeInvalidToken, "refresh token belongs to another user")
		}
		var ttl time.Duration
		if claims.ExpiresAt != nil {
			ttl = claims.ExpiresAt.Sub(requestcontext.Now(ctx))
		}
		entries = append(entries, revocation.Entry{JTI: claims.ID, TTL: ttl})
	}

	if err := s.revoked.Revoke(ctx, entries...); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke tokens")
	}
	s.logger.InfoContext(ctx, "user logged out",
		"user_id", p.ID(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

func (s *Service) ensureNotRevoked(ctx context.Context, jti string) error {
	revoked, err := s.revoked.IsRevoked(ctx, jti)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check token revocation")
	}
	if revoked {
		return dErrors.New(dErrors.CodeInvalidToken, "token revoked")
	}
	return nil
}
