package jwttoken

import (
	"biblioteca/internal/identity"
)

// AccessTokenVerifier exposes JWTService to the identity resolver.
type AccessTokenVerifier struct {
	service *JWTService
}

func NewAccessTokenVerifier(service *JWTService) *AccessTokenVerifier {
	return &AccessTokenVerifier{service: service}
}

func (a *AccessTokenVerifier) VerifyAccessToken(tokenString string) (*identity.TokenClaims, error) {
	claims, err := a.service.ValidateAccessToken(tokenString)
	if err != nil {
		return nil, err
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, err
	}
	return &identity.TokenClaims{
		UserID: userID,
		JTI:    claims.ID,
	}, nil
}
