package lockout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PostgresStore keeps records in bloqueo_inicio_sesion. The table is not
// audited.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, key string) (*Record, error) {
	rec, err := scanRecord(s.db.QueryRowContext(ctx,
		`SELECT clave, fallos, bloqueado_hasta, ultimo_fallo FROM bloqueo_inicio_sesion WHERE clave = $1`, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get login lockout: %w", err)
	}
	return rec, nil
}

// RecordFailure increments the counter in one statement. A previous failure
// older than windowStart restarts the count at one.
func (s *PostgresStore) RecordFailure(ctx context.Context, key string, now, windowStart time.Time) (*Record, error) {
	query := `
		INSERT INTO bloqueo_inicio_sesion (clave, fallos, bloqueado_hasta, ultimo_fallo)
		VALUES ($1, 1, NULL, $2)
		ON CONFLICT (clave) DO UPDATE SET
			fallos = CASE WHEN bloqueo_inicio_sesion.ultimo_fallo < $3 THEN 1
				ELSE bloqueo_inicio_sesion.fallos + 1 END,
			ultimo_fallo = $2
		RETURNING clave, fallos, bloqueado_hasta, ultimo_fallo
	`
	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, key, now, windowStart))
	if err != nil {
		return nil, fmt.Errorf("record login failure: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) Lock(ctx context.Context, key string, until time.Time) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE bloqueo_inicio_sesion SET bloqueado_hasta = $2, fallos = 0 WHERE clave = $1`, key, until); err != nil {
		return fmt.Errorf("lock login: %w", err)
	}
	return nil
}

func (s *PostgresStore) Clear(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM bloqueo_inicio_sesion WHERE clave = $1`, key); err != nil {
		return fmt.Errorf("clear login lockout: %w", err)
	}
	return nil
}

// PurgeStale removes records whose last failure and lock both ended before
// cutoff.
func (s *PostgresStore) PurgeStale(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM bloqueo_inicio_sesion
		WHERE ultimo_fallo < $1 AND (bloqueado_hasta IS NULL OR bloqueado_hasta < $1)`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge login lockouts: %w", err)
	}
	return res.RowsAffected()
}

type row interface {
	Scan(dest ...any) error
}

func scanRecord(r row) (*Record, error) {
	var (
		rec         Record
		lockedUntil sql.NullTime
	)
	if err := r.Scan(&rec.Key, &rec.Failures, &lockedUntil, &rec.LastFailureAt); err != nil {
		return nil, err
	}
	if lockedUntil.Valid {
		rec.LockedUntil = &lockedUntil.Time
	}
	return &rec, nil
}
