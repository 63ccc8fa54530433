package secrets

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"

	dErrors "biblioteca/pkg/domain-errors"
)

const (
	resetCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	// ResetCodeLength matches the width of usuario.token.
	ResetCodeLength = 12
)

// GenerateResetCode returns a random alphanumeric code drawn uniformly from
// [A-Za-z0-9] using crypto/rand.
func GenerateResetCode() (string, error) {
	alphabetLen := big.NewInt(int64(len(resetCodeAlphabet)))
	buf := make([]byte, ResetCodeLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", fmt.Errorf("could not generate reset code: %w", err)
		}
		buf[i] = resetCodeAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// CodesEqual compares a stored reset code with a submitted one in constant
// time.
func CodesEqual(stored, submitted string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(submitted)) == 1
}

// Hash creates a bcrypt hash of the provided password.
func Hash(password string) (string, error) {
	if password == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "la contraseña no puede estar vacía")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "la contraseña es demasiado larga")
		}
		return "", fmt.Errorf("could not hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether password matches hash. A mismatch is not an error.
func Verify(password, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("could not verify password: %w", err)
}
