package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"biblioteca/internal/auditctx"
	"biblioteca/internal/identity"
	"biblioteca/internal/platform/metrics"
	"biblioteca/internal/usuario/models"
	dErrors "biblioteca/pkg/domain-errors"
	"biblioteca/pkg/email"
	"biblioteca/pkg/platform/sentinel"
	"biblioteca/pkg/requestcontext"
)

// Operation labels recorded in log_auditoria.operacion_app.
const (
	OpCreate         = "crear_usuario"
	OpUpdateProfile  = "actualizar_perfil_usuario"
	OpChangePassword = "actualizar_contraseña_usuario"
	OpRequestReset   = "generar_token_recuperacion_contraseña_usuario"
	OpVerifyReset    = "verificar_token_cambio_contraseña_usuario"
	OpSoftDelete     = "eliminacion_suave_usuario"
	OpDelete         = "eliminar_usuario"
)

type UserStore interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
	FindByIDWithRelations(ctx context.Context, id int64) (*models.User, error)
	FindByIDForUpdate(ctx context.Context, id int64) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByEmailForUpdate(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, u *models.User) error
	Update(ctx context.Context, u *models.User) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int64, error)
	List(ctx context.Context, withRelations bool, offset, limit int) ([]*models.User, error)
}

// AuditRunner runs fn as one audited transaction.
type AuditRunner interface {
	Run(ctx context.Context, attr auditctx.Attribution, fn func(ctx context.Context) error) error
}

// Settings are the catalogue ids and lifetimes the service enforces.
type Settings struct {
	AdminRoleID         int32
	ReaderRoleID        int32
	ActiveStatusID      int32
	InactiveStatusID    int32
	AdultDocumentTypeID int32
	MinorDocumentTypeID int32
	MinimumAgeYears     int
	PasswordResetTTL    time.Duration
}

// Service implements user management. Every write runs through the audit
// runner with one of the Op labels.
type Service struct {
	users    UserStore
	runner   AuditRunner
	mailer   email.Mailer
	settings Settings
	logger   *slog.Logger
	metrics  *metrics.Metrics
	hasher   PasswordHasher
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) (bool, error)
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

func WithMailer(m email.Mailer) Option {
	return func(s *Service) {
		s.mailer = m
	}
}

func WithPasswordHasher(h PasswordHasher) Option {
	return func(s *Service) {
		s.hasher = h
	}
}

func New(users UserStore, runner AuditRunner, settings Settings, opts ...Option) *Service {
	s := &Service{
		users:    users,
		runner:   runner,
		settings: settings,
		logger:   slog.Default(),
		hasher:   bcryptHasher{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.mailer == nil {
		s.mailer = email.NewLogMailer(s.logger)
	}
	return s
}

// authorizeSelfOrAdmin allows actors to act on their own account; admins may
// act on any.
func (s *Service) authorizeSelfOrAdmin(actor *identity.Principal, id int64) error {
	if actor == nil {
		return dErrors.New(dErrors.CodeUnauthorized, "no autenticado")
	}
	if actor.ID() == id || actor.RoleID() == s.settings.AdminRoleID {
		return nil
	}
	return dErrors.New(dErrors.CodeForbidden, "no tiene permisos para modificar este usuario")
}

// translateStoreErr maps storage sentinels onto coded errors. The original
// error stays in the chain.
func translateStoreErr(err error, action string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "Usuario no encontrado")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "el correo o el documento ya están registrados")
	case errors.Is(err, sentinel.ErrInvalidReference):
		return dErrors.Wrap(err, dErrors.CodeValidation, "rol, estado o tipo de documento inexistente")
	case errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "la operación excedió el tiempo límite")
	case dErrors.CodeOf(err) != dErrors.CodeInternal:
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to "+action)
	}
}

func (s *Service) logWrite(ctx context.Context, operation string, userID int64) {
	s.logger.InfoContext(ctx, "audited write committed",
		"operation", operation,
		"user_id", userID,
		"actor_id", requestcontext.UserID(ctx),
		"request_id", requestcontext.RequestID(ctx),
	)
}
