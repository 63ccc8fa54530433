package auditctx

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerSetBindsValuesAsParameters(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	hostile := "x'); DROP TABLE usuario; --"
	mock.ExpectExec(regexp.QuoteMeta(setContextQuery)).
		WithArgs(hostile, "203.0.113.5", "api.biblioteca.co", "crear_usuario").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = NewManager().Set(context.Background(), db, Attribution{
		Username:  hostile,
		IP:        "203.0.113.5",
		Host:      "api.biblioteca.co",
		Operation: "crear_usuario",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestManagerSetBindsEmptyValues(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(setContextQuery)).
		WithArgs("", "", "", "").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewManager().Set(context.Background(), db, Attribution{}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestManagerSetWrapsStorageError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("connection reset")
	mock.ExpectExec(regexp.QuoteMeta(setContextQuery)).WillReturnError(boom)

	err = NewManager().Set(context.Background(), db, Attribution{Username: "ana@biblioteca.co"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestManagerClearIsRepeatable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(clearContextQuery)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(clearContextQuery)).WillReturnResult(sqlmock.NewResult(0, 1))

	m := NewManager()
	require.NoError(t, m.Clear(context.Background(), db))
	require.NoError(t, m.Clear(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}
