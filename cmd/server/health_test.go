package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"biblioteca/pkg/testutil"
)

type stubChecker struct{ err error }

func (s stubChecker) Health(context.Context) error { return s.err }

func TestHealthHidesFailureDetails(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	mock.ExpectPing().WillReturnError(errors.New(`dial tcp 10.0.0.7:5432: connection refused`))

	var logs bytes.Buffer
	log := slog.New(slog.NewTextHandler(&logs, nil))
	redisDown := stubChecker{err: errors.New("redis: dial tcp 10.0.0.8:6379: i/o timeout")}

	rr := httptest.NewRecorder()
	healthHandler(db, redisDown, log).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	body := testutil.UnmarshalResponse[map[string]string](t, rr)
	assert.Equal(t, map[string]string{"status": "degraded", "database": "unavailable", "redis": "unavailable"}, *body)
	assert.NotContains(t, rr.Body.String(), "10.0.0.7")
	assert.Contains(t, logs.String(), "connection refused")
	assert.Contains(t, logs.String(), "i/o timeout")
}

func TestHealthWithoutRedis(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	mock.ExpectPing()

	rr := httptest.NewRecorder()
	healthHandler(db, redisHealth(nil), slog.New(slog.NewTextHandler(io.Discard, nil))).
		ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	body := testutil.UnmarshalResponse[map[string]string](t, rr)
	assert.Equal(t, map[string]string{"status": "ok", "database": "ok"}, *body)
}
