// Package httputil holds the JSON envelope helpers shared by every handler.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	dErrors "biblioteca/pkg/domain-errors"
	"biblioteca/pkg/requestcontext"
)

// invalidTokenDescription is shared by every identity failure so responses do
// not reveal whether a token was malformed or pointed at a deleted user.
const invalidTokenDescription = "token inválido"

type errorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a coded error into a JSON error envelope. Internal
// errors never expose their description; log them before calling this.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := StatusFor(code)

	resp := errorResponse{Error: string(code)}
	switch code {
	case dErrors.CodeInternal:
	case dErrors.CodeInvalidToken, dErrors.CodeUserNotFound:
		resp.Error = string(dErrors.CodeUnauthorized)
		resp.Description = invalidTokenDescription
		w.Header().Set("WWW-Authenticate", "Bearer")
	case dErrors.CodeUnauthorized:
		w.Header().Set("WWW-Authenticate", "Bearer")
		if de, ok := dErrors.As(err); ok {
			resp.Description = de.Message
		}
	default:
		if de, ok := dErrors.As(err); ok {
			resp.Description = de.Message
		}
	}
	WriteJSON(w, status, resp)
}

// StatusFor maps an error code to its HTTP status.
func StatusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeBadRequest, dErrors.CodeValidation, dErrors.CodeInvalidInput, dErrors.CodeInactiveUser:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized, dErrors.CodeInvalidToken, dErrors.CodeUserNotFound:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeTooManyRequests:
		return http.StatusTooManyRequests
	case dErrors.CodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// MaxBodyBytes caps every JSON request body.
const MaxBodyBytes int64 = 1 << 20

// DecodeJSON decodes the request body into dst, rejecting unknown fields and
// bodies over MaxBodyBytes.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return dErrors.Wrap(err, dErrors.CodePayloadTooLarge, "el cuerpo de la petición excede el tamaño permitido")
		}
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "cuerpo de la petición inválido")
	}
	return nil
}

// Fail logs err at warn for client errors and error for internal ones, then
// writes the envelope.
func Fail(ctx context.Context, w http.ResponseWriter, logger *slog.Logger, msg string, err error) {
	level := slog.LevelWarn
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		level = slog.LevelError
	}
	logger.Log(ctx, level, msg,
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
	WriteError(w, err)
}
