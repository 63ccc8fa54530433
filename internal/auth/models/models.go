// Package models holds the auth request and response bodies.
package models

import (
	"strings"

	dErrors "biblioteca/pkg/domain-errors"
)

// TokenTypeBearer is the token_type returned with every issued token.
const TokenTypeBearer = "bearer"

// LoginRequest carries the OAuth2 password-grant form fields. Username is the
// account email.
type LoginRequest struct {
	Username string
	Password string
}

func (r *LoginRequest) Validate() error {
	r.Username = strings.TrimSpace(r.Username)
	if r.Username == "" || r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "username y password son obligatorios")
	}
	return nil
}

// TokenResponse is returned by a successful login.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// RefreshRequest exchanges a refresh token for a new access token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (r *RefreshRequest) Validate() error {
	if strings.TrimSpace(r.RefreshToken) == "" {
		return dErrors.New(dErrors.CodeValidation, "refresh_token es obligatorio")
	}
	return nil
}

// RefreshResponse carries the new access token.
type RefreshResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// LogoutRequest optionally names the refresh token to revoke alongside the
// presented access token.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token,omitempty"`
}
