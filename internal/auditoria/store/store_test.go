package store

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"biblioteca/internal/auditoria/models"
	"biblioteca/pkg/platform/sentinel"
)

var columns = []string{"id", "tabla", "operacion", "usuario_db", "usuario_app", "ip", "host",
	"operacion_app", "fecha_operacion", "datos_anteriores", "datos_nuevos"}

func newStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgres(db), mock
}

func TestWhereClause(t *testing.T) {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	where, args := whereClause(models.Filter{
		Tables:       []string{"usuario", "rol"},
		AppUser:      "50%_off\\",
		AppOperation: "crear",
		From:         &from,
	})

	assert.Equal(t,
		` WHERE tabla = ANY($1) AND usuario_app ILIKE $2 ESCAPE '\' AND operacion_app ILIKE $3 ESCAPE '\' AND fecha_operacion >= $4`,
		where)
	require.Len(t, args, 4)
	assert.Equal(t, pq.Array([]string{"usuario", "rol"}), args[0])
	assert.Equal(t, `%50\%\_off\\%`, args[1])
	assert.Equal(t, "%crear%", args[2])
	assert.Equal(t, from, args[3])
}

func TestWhereClauseSingleTableIsPartial(t *testing.T) {
	where, args := whereClause(models.Filter{Tables: []string{"usu"}})

	assert.Equal(t, ` WHERE tabla ILIKE $1 ESCAPE '\'`, where)
	assert.Equal(t, []any{"%usu%"}, args)
}

func TestWhereClauseEmpty(t *testing.T) {
	where, args := whereClause(models.Filter{})
	assert.Empty(t, where)
	assert.Empty(t, args)
}

func TestListPaginated(t *testing.T) {
	s, mock := newStore(t)
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM log_auditoria WHERE operacion ILIKE $1 ESCAPE '\' ORDER BY fecha_operacion DESC, id DESC LIMIT $2 OFFSET $3`)).
		WithArgs("%update%", 10, 20).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(int64(5), "usuario", "update", "biblioteca", "admin@biblioteca.co", "203.0.113.5", "api",
				"actualizar_perfil_usuario", at, []byte(`{"id":7}`), []byte(`{"id":7,"nombre":"B"}`)).
			AddRow(int64(4), "usuario", "update", "biblioteca", nil, "0.0.0.0", "sistema",
				nil, at, nil, nil))

	entries, err := s.List(context.Background(), models.Filter{Operation: "update"}, 20, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "admin@biblioteca.co", *entries[0].AppUser)
	assert.Equal(t, "actualizar_perfil_usuario", *entries[0].AppOperation)
	assert.Nil(t, entries[1].AppUser)
	assert.Nil(t, entries[1].Before)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCount(t *testing.T) {
	s, mock := newStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM log_auditoria WHERE tabla ILIKE $1 ESCAPE '\'`)).
		WithArgs("%rol%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))

	total, err := s.Count(context.Background(), models.Filter{Tables: []string{"rol"}})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
}

func TestFindByIDNotFound(t *testing.T) {
	s, mock := newStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM log_auditoria WHERE id = $1`)).
		WithArgs(int64(9)).
		WillReturnError(sql.ErrNoRows)

	_, err := s.FindByID(context.Background(), 9)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
