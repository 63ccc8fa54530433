package jwttoken

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	dErrors "biblioteca/pkg/domain-errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token types carried in the "type" claim. Access tokens leave it empty.
const (
	TypeAccess  = ""
	TypeRefresh = "refresh"
)

// Claims represents the JWT claims issued by the service. The subject is the
// user's numeric id rendered as a string.
type Claims struct {
	Type string `json:"type,omitempty"`
	jwt.RegisteredClaims
}

// UserID parses the subject. It fails for non-numeric subjects.
func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, dErrors.New(dErrors.CodeInvalidToken, "token inválido")
	}
	return id, nil
}

// JWTService handles JWT creation and validation
type JWTService struct {
	signingKey []byte
	method     jwt.SigningMethod
	now        func() time.Time
}

// NewJWTService builds a service for one of HS256, HS384 or HS512.
func NewJWTService(signingKey string, algorithm string) (*JWTService, error) {
	method := jwt.GetSigningMethod(algorithm)
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unsupported jwt algorithm %q", algorithm)
	}
	if signingKey == "" {
		return nil, errors.New("jwt signing key is required")
	}
	return &JWTService{
		signingKey: []byte(signingKey),
		method:     method,
		now:        time.Now,
	}, nil
}

func (s *JWTService) GenerateAccessToken(userID int64, expiresIn time.Duration) (string, error) {
	return s.generate(userID, TypeAccess, expiresIn)
}

func (s *JWTService) GenerateRefreshToken(userID int64, expiresIn time.Duration) (string, error) {
	return s.generate(userID, TypeRefresh, expiresIn)
}

func (s *JWTService) generate(userID int64, tokenType string, expiresIn time.Duration) (string, error) {
	now := s.now()
	newToken := jwt.NewWithClaims(s.method, Claims{
		Type: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	})

	signedToken, err := newToken.SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return signedToken, nil
}

// ValidateAccessToken verifies signature and expiry and rejects refresh tokens.
// Access tokens must carry a jti so logout can revoke them.
func (s *JWTService) ValidateAccessToken(tokenString string) (*Claims, error) {
	claims, err := s.validate(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Type != TypeAccess || claims.ID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidToken, "token inválido")
	}
	return claims, nil
}

// ValidateRefreshToken accepts only tokens issued as refresh tokens.
func (s *JWTService) ValidateRefreshToken(tokenString string) (*Claims, error) {
	claims, err := s.validate(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Type != TypeRefresh {
		return nil, dErrors.New(dErrors.CodeInvalidToken, "token de refresco inválido")
	}
	return claims, nil
}

func (s *JWTService) validate(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return s.signingKey, nil
	},
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.Wrap(err, dErrors.CodeInvalidToken, "token expirado")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidToken, "token inválido")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeInvalidToken, "token inválido")
	}
	if _, err := claims.UserID(); err != nil {
		return nil, err
	}
	return claims, nil
}
