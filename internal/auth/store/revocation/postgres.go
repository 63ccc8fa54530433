package revocation

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"biblioteca/internal/platform/metrics"
)

// PostgresTRL persists revoked token ids in token_revocado. It is used when
// Redis is not configured.
type PostgresTRL struct {
	db      *sql.DB
	clock   Clock
	metrics *metrics.Metrics
}

type PostgresTRLOption func(*PostgresTRL)

func WithPostgresClock(clock Clock) PostgresTRLOption {
	return func(t *PostgresTRL) {
		if clock != nil {
			t.clock = clock
		}
	}
}

func WithPostgresMetrics(m *metrics.Metrics) PostgresTRLOption {
	return func(t *PostgresTRL) {
		t.metrics = m
	}
}

func NewPostgresTRL(db *sql.DB, opts ...PostgresTRLOption) *PostgresTRL {
	trl := &PostgresTRL{
		db:    db,
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(trl)
	}
	return trl
}

// Revoke inserts every live entry in one statement.
func (t *PostgresTRL) Revoke(ctx context.Context, entries ...Entry) error {
	entries = live(entries)
	if len(entries) == 0 {
		return nil
	}
	jtis := make([]string, len(entries))
	ttls := make([]int64, len(entries))
	for i, e := range entries {
		jtis[i] = e.JTI
		ttls[i] = int64(e.TTL / time.Millisecond)
	}

	query := `
		INSERT INTO token_revocado (jti, expira_en)
		SELECT r.jti, $3::timestamptz + r.ttl_ms * interval '1 millisecond'
		FROM unnest($1::text[], $2::bigint[]) AS r(jti, ttl_ms)
		ON CONFLICT (jti) DO UPDATE SET
			expira_en = EXCLUDED.expira_en
	`
	if _, err := t.db.ExecContext(ctx, query, pq.Array(jtis), pq.Array(ttls), t.clock()); err != nil {
		return fmt.Errorf("revoke tokens: %w", err)
	}
	return nil
}

// IsRevoked reports whether jti was revoked and has not yet expired.
func (t *PostgresTRL) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	start := time.Now()
	defer func() {
		t.metrics.ObserveRevocationCheck(time.Since(start))
	}()

	var revoked bool
	err := t.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM token_revocado WHERE jti = $1 AND expira_en > $2)`,
		jti, t.clock(),
	).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("check token revocation: %w", err)
	}
	return revoked, nil
}

// PurgeExpired deletes rows whose tokens have expired.
func (t *PostgresTRL) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := t.db.ExecContext(ctx, `DELETE FROM token_revocado WHERE expira_en <= $1`, t.clock())
	if err != nil {
		return 0, fmt.Errorf("purge expired revocations: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge expired revocations: %w", err)
	}
	return n, nil
}
