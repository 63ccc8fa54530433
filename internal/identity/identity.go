// Package identity turns a bearer token plus request metadata into the
// Principal acting for one request.
package identity

import (
	"context"
	"errors"
	"strings"

	"biblioteca/internal/auditctx"
	"biblioteca/internal/usuario/models"
	dErrors "biblioteca/pkg/domain-errors"
	"biblioteca/pkg/email"
	"biblioteca/pkg/platform/sentinel"
	"biblioteca/pkg/requestcontext"
)

// TokenClaims are the verified claims the resolver needs.
type TokenClaims struct {
	UserID int64
	JTI    string
}

// TokenVerifier validates an access token's signature, algorithm and expiry.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*TokenClaims, error)
}

// UserFinder loads a user with role, status and document type in one fetch.
type UserFinder interface {
	FindByIDWithRelations(ctx context.Context, id int64) (*models.User, error)
}

// Principal is the actor of a single request: the stored user plus the
// transport metadata it arrived with. It is never cached across requests.
type Principal struct {
	User     *models.User
	Username string
	IP       string
	Host     string
	// TokenID is the jti of the access token the principal presented.
	TokenID string
}

func (p *Principal) ID() int64 {
	return p.User.ID
}

func (p *Principal) RoleID() int32 {
	return p.User.RoleID
}

func (p *Principal) StatusID() int32 {
	return p.User.StatusID
}

func (p *Principal) DocumentTypeID() int32 {
	return p.User.DocumentTypeID
}

// Attribution labels an audited write made by this principal.
func (p *Principal) Attribution(operation string) auditctx.Attribution {
	return auditctx.Attribution{
		Username:  p.Username,
		IP:        p.IP,
		Host:      p.Host,
		Operation: operation,
	}
}

// AttributionFor labels an audited write. A nil principal attributes the write
// to the system actor, keeping whatever IP and host the request carried.
func AttributionFor(ctx context.Context, p *Principal, operation string) auditctx.Attribution {
	if p != nil {
		return p.Attribution(operation)
	}
	return auditctx.Attribution{
		Username:  requestcontext.SystemActor,
		IP:        requestcontext.ClientIP(ctx),
		Host:      requestcontext.Host(ctx),
		Operation: operation,
	}
}

// Metadata is the transport information a request arrived with.
type Metadata struct {
	ClientIP string
	Host     string
}

// Resolver resolves bearer tokens into principals. It performs reads only.
type Resolver struct {
	verifier TokenVerifier
	users    UserFinder
}

func NewResolver(verifier TokenVerifier, users UserFinder) *Resolver {
	return &Resolver{verifier: verifier, users: users}
}

// Resolve verifies token and loads the user it names. Token failures return
// CodeInvalidToken; a subject with no stored user returns CodeUserNotFound.
func (r *Resolver) Resolve(ctx context.Context, token string, meta Metadata) (*Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, dErrors.New(dErrors.CodeInvalidToken, "token inválido")
	}
	claims, err := r.verifier.VerifyAccessToken(token)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvalidToken) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidToken, "token inválido")
	}
	if claims == nil || claims.UserID <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidToken, "token inválido")
	}

	user, err := r.users.FindByIDWithRelations(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeUserNotFound, "usuario no encontrado")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "no se pudo cargar el usuario")
	}

	host := strings.TrimSpace(meta.Host)
	if host == "" {
		host = requestcontext.SystemActor
	}
	return &Principal{
		User:     user,
		Username: email.Normalize(user.Email),
		IP:       meta.ClientIP,
		Host:     host,
		TokenID:  claims.JTI,
	}, nil
}

type principalKey struct{}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal stored by the auth middleware, or nil.
func FromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}
