package models

import (
	"encoding/json"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "biblioteca/pkg/domain-errors"
)

func TestParseFilter(t *testing.T) {
	bogota, err := time.LoadLocation("America/Bogota")
	require.NoError(t, err)

	t.Run("tables from repeated and comma separated values", func(t *testing.T) {
		f, err := ParseFilter(url.Values{"tabla": {"usuario, rol", "estado"}}, bogota)
		require.NoError(t, err)
		assert.Equal(t, []string{"usuario", "rol", "estado"}, f.Tables)
	})

	t.Run("date-only bounds cover whole days in the zone", func(t *testing.T) {
		f, err := ParseFilter(url.Values{"desde_fecha": {"2025-01-15"}, "hasta_fecha": {"2025-01-31"}}, bogota)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 1, 15, 0, 0, 0, 0, bogota), *f.From)
		assert.Equal(t, time.Date(2025, 1, 31, 23, 59, 59, 999999999, bogota), *f.To)
	})

	t.Run("date-time bounds are exact", func(t *testing.T) {
		f, err := ParseFilter(url.Values{"hasta_fecha": {"2025-01-31T10:30:00"}}, time.UTC)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 1, 31, 10, 30, 0, 0, time.UTC), *f.To)
		assert.Nil(t, f.From)
	})

	t.Run("text filters are trimmed", func(t *testing.T) {
		f, err := ParseFilter(url.Values{"usuario_app": {" ana@ "}, "operacion_app": {"crear"}, "operacion": {"insert"}}, nil)
		require.NoError(t, err)
		assert.Equal(t, "ana@", f.AppUser)
		assert.Equal(t, "crear", f.AppOperation)
		assert.Equal(t, "insert", f.Operation)
	})

	invalid := map[string]url.Values{
		"malformed date":     {"desde_fecha": {"15/01/2025"}},
		"reversed range":     {"desde_fecha": {"2025-02-01"}, "hasta_fecha": {"2025-01-01"}},
		"operation too long": {"operacion": {string(make([]byte, 51))}},
	}
	for name, q := range invalid {
		t.Run(name, func(t *testing.T) {
			_, err := ParseFilter(q, time.UTC)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		})
	}
}

func TestToView(t *testing.T) {
	bogota, err := time.LoadLocation("America/Bogota")
	require.NoError(t, err)
	user := "ana@biblioteca.co"
	e := &Entry{
		ID:         1,
		Table:      "usuario",
		Operation:  "update",
		AppUser:    &user,
		OccurredAt: time.Date(2025, 6, 1, 17, 0, 0, 0, time.UTC),
		After:      json.RawMessage(`{"id":7}`),
	}

	v := ToView(e, bogota)
	assert.Equal(t, 12, v.OccurredAt.Hour())
	assert.JSONEq(t, `null`, string(v.Before))
	assert.JSONEq(t, `{"id":7}`, string(v.After))
}
