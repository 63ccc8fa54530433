package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"biblioteca/internal/autor/models"
	"biblioteca/internal/platform/postgres"
	"biblioteca/pkg/platform/tx"
)

// PostgresStore persists autor rows on the transaction in ctx when there is
// one.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const authorColumns = `id, nombre, apellido, fecha_nacimiento, nacionalidad, creado_en, actualizado_en`

func (s *PostgresStore) exec(ctx context.Context) tx.Executor {
	return tx.ExecutorFrom(ctx, s.db)
}

func (s *PostgresStore) FindByID(ctx context.Context, id int32) (*models.Author, error) {
	return s.findOne(ctx, `SELECT `+authorColumns+` FROM autor WHERE id = $1`, id)
}

// FindByIDForUpdate locks the row until the surrounding transaction ends.
func (s *PostgresStore) FindByIDForUpdate(ctx context.Context, id int32) (*models.Author, error) {
	return s.findOne(ctx, `SELECT `+authorColumns+` FROM autor WHERE id = $1 FOR UPDATE`, id)
}

func (s *PostgresStore) findOne(ctx context.Context, query string, id int32) (*models.Author, error) {
	a, err := scanAuthor(s.exec(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("find autor: %w", postgres.Classify(err))
	}
	return a, nil
}

// Create inserts a and fills its id and timestamps.
func (s *PostgresStore) Create(ctx context.Context, a *models.Author) error {
	query := `
		INSERT INTO autor (nombre, apellido, fecha_nacimiento, nacionalidad)
		VALUES ($1, $2, $3, $4)
		RETURNING id, creado_en, actualizado_en
	`
	var updated sql.NullTime
	err := s.exec(ctx).QueryRowContext(ctx, query, a.FirstName, a.LastName, a.BirthDate, a.Nationality).
		Scan(&a.ID, &a.CreatedAt, &updated)
	if err != nil {
		return fmt.Errorf("insert autor: %w", postgres.Classify(err))
	}
	a.UpdatedAt = nullTime(updated)
	return nil
}

// Update writes every mutable column of a.
func (s *PostgresStore) Update(ctx context.Context, a *models.Author) error {
	query := `
		UPDATE autor SET
			nombre = $2, apellido = $3, fecha_nacimiento = $4, nacionalidad = $5,
			actualizado_en = now()
		WHERE id = $1
		RETURNING actualizado_en
	`
	var updated sql.NullTime
	err := s.exec(ctx).QueryRowContext(ctx, query, a.ID, a.FirstName, a.LastName, a.BirthDate, a.Nationality).
		Scan(&updated)
	if err != nil {
		return fmt.Errorf("update autor: %w", postgres.Classify(err))
	}
	a.UpdatedAt = nullTime(updated)
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id int32) error {
	res, err := s.exec(ctx).ExecContext(ctx, `DELETE FROM autor WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete autor: %w", postgres.Classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete autor: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete autor: %w", postgres.Classify(sql.ErrNoRows))
	}
	return nil
}

func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := s.exec(ctx).QueryRowContext(ctx, `SELECT count(*) FROM autor`).Scan(&total); err != nil {
		return 0, fmt.Errorf("count autores: %w", err)
	}
	return total, nil
}

// List returns authors ordered by id. A non-positive limit returns every row.
func (s *PostgresStore) List(ctx context.Context, offset, limit int) ([]*models.Author, error) {
	query := `SELECT ` + authorColumns + ` FROM autor ORDER BY id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1 OFFSET $2`
		args = append(args, limit, offset)
	}

	rows, err := s.exec(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list autores: %w", err)
	}
	defer rows.Close()

	authors := []*models.Author{}
	for rows.Next() {
		a, err := scanAuthor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan autor: %w", err)
		}
		authors = append(authors, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list autores: %w", err)
	}
	return authors, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAuthor(row scanner) (*models.Author, error) {
	var (
		a           models.Author
		birth       sql.NullTime
		nationality sql.NullString
		updated     sql.NullTime
	)
	if err := row.Scan(&a.ID, &a.FirstName, &a.LastName, &birth, &nationality, &a.CreatedAt, &updated); err != nil {
		return nil, err
	}
	if birth.Valid {
		a.BirthDate = &birth.Time
	}
	if nationality.Valid {
		a.Nationality = &nationality.String
	}
	a.UpdatedAt = nullTime(updated)
	return &a, nil
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
