package revocation

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newPostgresTRL(t *testing.T) (*PostgresTRL, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresTRL(db, WithPostgresClock(func() time.Time { return fixedNow })), mock
}

func TestPostgresRevokeBatchesLiveEntries(t *testing.T) {
	trl, mock := newPostgresTRL(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO token_revocado")).
		WithArgs(pq.Array([]string{"access-jti", "refresh-jti"}), pq.Array([]int64{3600000, 604800000}), fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := trl.Revoke(context.Background(),
		Entry{JTI: "access-jti", TTL: time.Hour},
		Entry{JTI: "", TTL: time.Hour},
		Entry{JTI: "expired-jti", TTL: -time.Second},
		Entry{JTI: "refresh-jti", TTL: 7 * 24 * time.Hour},
	)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRevokeNothingLive(t *testing.T) {
	trl, mock := newPostgresTRL(t)

	require.NoError(t, trl.Revoke(context.Background(), Entry{JTI: "gone", TTL: 0}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresIsRevoked(t *testing.T) {
	tests := []struct {
		name    string
		exists  bool
		want    bool
		dbError error
	}{
		{name: "revoked", exists: true, want: true},
		{name: "not revoked", exists: false, want: false},
		{name: "database error", dbError: errors.New("connection reset")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trl, mock := newPostgresTRL(t)
			exp := mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).WithArgs("jti-1", fixedNow)
			if tt.dbError != nil {
				exp.WillReturnError(tt.dbError)
			} else {
				exp.WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(tt.exists))
			}

			got, err := trl.IsRevoked(context.Background(), "jti-1")
			if tt.dbError != nil {
				assert.ErrorIs(t, err, tt.dbError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPostgresIsRevokedEmptyJTI(t *testing.T) {
	trl, mock := newPostgresTRL(t)

	revoked, err := trl.IsRevoked(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, revoked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPurgeExpired(t *testing.T) {
	trl, mock := newPostgresTRL(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM token_revocado WHERE expira_en <= $1")).
		WithArgs(fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := trl.PurgeExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}
