package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("duplicate key")
	err := Wrap(cause, CodeConflict, "correo ya registrado")

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.True(t, HasCode(err, CodeConflict))
	assert.Equal(t, "correo ya registrado: duplicate key", err.Error())
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, CodeInternal, "ignored"))
}

func TestIsComparesCodeAndMessage(t *testing.T) {
	err := fmt.Errorf("resolve: %w", New(CodeInvalidToken, "token inválido"))

	assert.ErrorIs(t, err, New(CodeInvalidToken, "token inválido"))
	assert.NotErrorIs(t, err, New(CodeInvalidToken, "otro mensaje"))
	assert.NotErrorIs(t, err, New(CodeUserNotFound, "token inválido"))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeForbidden, CodeOf(New(CodeForbidden, "x")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
	assert.False(t, HasCode(errors.New("plain"), CodeInternal))
}
