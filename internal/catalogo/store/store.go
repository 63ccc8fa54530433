package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"biblioteca/internal/catalogo/models"
	"biblioteca/internal/platform/postgres"
	"biblioteca/pkg/platform/sentinel"
	"biblioteca/pkg/platform/tx"
)

// PostgresStore persists rol, estado, tipo_documento and categoria rows. The
// tables share a shape except for one column: acronimo for roles and document
// types, tipo for estado, none for categoria.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// tableSpec names a catalogue table and its distinguishing column. extra is
// empty for categoria.
type tableSpec struct {
	name  string
	extra string
}

// columns is the select list; a missing extra column reads as NULL.
func (t tableSpec) columns() string {
	extra := t.extra
	if extra == "" {
		extra = "NULL::varchar"
	}
	return "id, nombre, " + extra + ", descripcion, creado_en, actualizado_en"
}

// table resolves kind. kind must be valid; the names are interpolated into SQL.
func table(kind models.Kind) (tableSpec, error) {
	switch kind {
	case models.KindRole, models.KindDocumentType:
		return tableSpec{string(kind), "acronimo"}, nil
	case models.KindStatus:
		return tableSpec{string(kind), "tipo"}, nil
	case models.KindCategory:
		return tableSpec{string(kind), ""}, nil
	}
	return tableSpec{}, fmt.Errorf("unknown catalogue %q", kind)
}

func whereClause(t tableSpec, f models.Filter) (string, []any) {
	if f.Type != "" && t.extra == "tipo" {
		return " WHERE tipo = $1", []any{f.Type}
	}
	return "", nil
}

// Count returns the number of rows matching f.
func (s *PostgresStore) Count(ctx context.Context, kind models.Kind, f models.Filter) (int64, error) {
	t, err := table(kind)
	if err != nil {
		return 0, err
	}
	where, args := whereClause(t, f)
	var n int64
	err = tx.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, `SELECT count(*) FROM `+t.name+where, args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", t.name, err)
	}
	return n, nil
}

// List returns the rows matching f ordered by id. A zero limit returns all.
func (s *PostgresStore) List(ctx context.Context, kind models.Kind, f models.Filter, offset, limit int) ([]*models.Item, error) {
	t, err := table(kind)
	if err != nil {
		return nil, err
	}
	where, args := whereClause(t, f)
	query := `SELECT ` + t.columns() + ` FROM ` + t.name + where + ` ORDER BY id`
	if limit > 0 {
		n := len(args)
		query += ` LIMIT $` + strconv.Itoa(n+1) + ` OFFSET $` + strconv.Itoa(n+2)
		args = append(args, limit, offset)
	}
	rows, err := tx.ExecutorFrom(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", t.name, err)
	}
	defer rows.Close()

	var items []*models.Item
	for rows.Next() {
		it, err := scanItem(rows, kind)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.name, err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", t.name, err)
	}
	return items, nil
}

// FindByID returns one row or sentinel.ErrNotFound.
func (s *PostgresStore) FindByID(ctx context.Context, kind models.Kind, id int32) (*models.Item, error) {
	t, err := table(kind)
	if err != nil {
		return nil, err
	}
	row := tx.ExecutorFrom(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+t.columns()+` FROM `+t.name+` WHERE id = $1`, id)
	it, err := scanItem(row, kind)
	if err != nil {
		return nil, postgres.Classify(err)
	}
	return it, nil
}

// Create inserts it and fills its id and timestamps.
func (s *PostgresStore) Create(ctx context.Context, it *models.Item) error {
	t, err := table(it.Kind)
	if err != nil {
		return err
	}
	var row *sql.Row
	if t.extra == "" {
		row = tx.ExecutorFrom(ctx, s.db).QueryRowContext(ctx,
			`INSERT INTO `+t.name+` (nombre, descripcion) VALUES ($1, $2)
			RETURNING id, creado_en, actualizado_en`,
			it.Name, it.Description)
	} else {
		row = tx.ExecutorFrom(ctx, s.db).QueryRowContext(ctx,
			`INSERT INTO `+t.name+` (nombre, `+t.extra+`, descripcion) VALUES ($1, $2, $3)
			RETURNING id, creado_en, actualizado_en`,
			it.Name, extraValue(it), it.Description)
	}
	if err := row.Scan(&it.ID, &it.CreatedAt, &it.UpdatedAt); err != nil {
		return postgres.Classify(err)
	}
	return nil
}

// Update replaces the editable columns of it.ID and refreshes its timestamps.
// A missing row fails with sentinel.ErrNotFound.
func (s *PostgresStore) Update(ctx context.Context, it *models.Item) error {
	t, err := table(it.Kind)
	if err != nil {
		return err
	}
	var row *sql.Row
	if t.extra == "" {
		row = tx.ExecutorFrom(ctx, s.db).QueryRowContext(ctx,
			`UPDATE `+t.name+` SET nombre = $1, descripcion = $2, actualizado_en = now()
			WHERE id = $3 RETURNING creado_en, actualizado_en`,
			it.Name, it.Description, it.ID)
	} else {
		row = tx.ExecutorFrom(ctx, s.db).QueryRowContext(ctx,
			`UPDATE `+t.name+` SET nombre = $1, `+t.extra+` = $2, descripcion = $3, actualizado_en = now()
			WHERE id = $4 RETURNING creado_en, actualizado_en`,
			it.Name, extraValue(it), it.Description, it.ID)
	}
	if err := row.Scan(&it.CreatedAt, &it.UpdatedAt); err != nil {
		return postgres.Classify(err)
	}
	return nil
}

// Delete removes one row. A row still referenced by a user or a book fails
// with sentinel.ErrInvalidReference.
func (s *PostgresStore) Delete(ctx context.Context, kind models.Kind, id int32) error {
	t, err := table(kind)
	if err != nil {
		return err
	}
	res, err := tx.ExecutorFrom(ctx, s.db).ExecContext(ctx, `DELETE FROM `+t.name+` WHERE id = $1`, id)
	if err != nil {
		return postgres.Classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s: %w", t.name, err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func extraValue(it *models.Item) *string {
	if it.Kind == models.KindStatus {
		return it.Type
	}
	return it.Acronym
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner, kind models.Kind) (*models.Item, error) {
	var (
		it          = models.Item{Kind: kind}
		extra       sql.NullString
		description sql.NullString
	)
	if err := row.Scan(&it.ID, &it.Name, &extra, &description, &it.CreatedAt, &it.UpdatedAt); err != nil {
		return nil, err
	}
	if extra.Valid {
		if kind == models.KindStatus {
			it.Type = &extra.String
		} else {
			it.Acronym = &extra.String
		}
	}
	if description.Valid {
		it.Description = &description.String
	}
	return &it, nil
}
