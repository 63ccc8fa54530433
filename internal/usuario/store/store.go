package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"biblioteca/internal/platform/postgres"
	"biblioteca/internal/usuario/models"
	"biblioteca/pkg/platform/tx"
)

// PostgresStore persists usuario rows. Every statement runs on the
// transaction in ctx when there is one, so writes issued inside an audited
// unit of work carry its audit context.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed user store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const userColumns = `u.id, u.correo, u.nombre, u.apellido, u.documento, u.contrasena,
	u.tipo_documento_id, u.estado_id, u.rol_id, u.token, u.token_expiracion,
	u.telefono, u.direccion, u.fecha_nacimiento, u.creado_en, u.actualizado_en`

const relationColumns = `,
	r.id, r.nombre, r.acronimo, r.descripcion,
	e.id, e.nombre, e.descripcion, e.tipo,
	td.id, td.nombre, td.acronimo, td.descripcion`

const relationJoins = `
	JOIN rol r ON r.id = u.rol_id
	JOIN estado e ON e.id = u.estado_id
	JOIN tipo_documento td ON td.id = u.tipo_documento_id`

func (s *PostgresStore) exec(ctx context.Context) tx.Executor {
	return tx.ExecutorFrom(ctx, s.db)
}

// FindByID returns the user without relations.
func (s *PostgresStore) FindByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM usuario u WHERE u.id = $1`
	return s.findOne(ctx, query, false, id)
}

// FindByIDWithRelations loads the user together with role, status and
// document type in a single query.
func (s *PostgresStore) FindByIDWithRelations(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + relationColumns + ` FROM usuario u` + relationJoins + ` WHERE u.id = $1`
	return s.findOne(ctx, query, true, id)
}

// FindByEmail looks the user up by normalized email, relations included.
func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + relationColumns + ` FROM usuario u` + relationJoins + ` WHERE u.correo = $1`
	return s.findOne(ctx, query, true, email)
}

// FindByEmailForUpdate locks the row until the surrounding transaction ends.
func (s *PostgresStore) FindByEmailForUpdate(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM usuario u WHERE u.correo = $1 FOR UPDATE`
	return s.findOne(ctx, query, false, email)
}

// FindByIDForUpdate locks the row until the surrounding transaction ends.
func (s *PostgresStore) FindByIDForUpdate(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM usuario u WHERE u.id = $1 FOR UPDATE`
	return s.findOne(ctx, query, false, id)
}

func (s *PostgresStore) findOne(ctx context.Context, query string, withRelations bool, arg any) (*models.User, error) {
	row := s.exec(ctx).QueryRowContext(ctx, query, arg)
	u, err := scanUser(row, withRelations)
	if err != nil {
		return nil, postgres.Classify(err)
	}
	return u, nil
}

// Create inserts u and fills in its generated id and timestamps.
func (s *PostgresStore) Create(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO usuario (correo, nombre, apellido, documento, contrasena,
			tipo_documento_id, estado_id, rol_id, telefono, direccion, fecha_nacimiento)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, creado_en, actualizado_en
	`
	err := s.exec(ctx).QueryRowContext(ctx, query,
		u.Email, u.FirstName, u.LastName, u.Document, u.PasswordHash,
		u.DocumentTypeID, u.StatusID, u.RoleID, u.Phone, u.Address, u.BirthDate,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create usuario: %w", postgres.Classify(err))
	}
	return nil
}

// Update writes every mutable column of u.
func (s *PostgresStore) Update(ctx context.Context, u *models.User) error {
	query := `
		UPDATE usuario SET
			correo = $2, nombre = $3, apellido = $4, documento = $5, contrasena = $6,
			tipo_documento_id = $7, estado_id = $8, rol_id = $9, token = $10,
			token_expiracion = $11, telefono = $12, direccion = $13,
			fecha_nacimiento = $14, actualizado_en = now()
		WHERE id = $1
		RETURNING actualizado_en
	`
	err := s.exec(ctx).QueryRowContext(ctx, query,
		u.ID, u.Email, u.FirstName, u.LastName, u.Document, u.PasswordHash,
		u.DocumentTypeID, u.StatusID, u.RoleID, u.ResetToken, u.ResetTokenExpires,
		u.Phone, u.Address, u.BirthDate,
	).Scan(&u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update usuario: %w", postgres.Classify(err))
	}
	return nil
}

// Delete removes the row.
func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	res, err := s.exec(ctx).ExecContext(ctx, `DELETE FROM usuario WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete usuario: %w", postgres.Classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete usuario: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete usuario: %w", postgres.Classify(sql.ErrNoRows))
	}
	return nil
}

// Count returns the number of users.
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := s.exec(ctx).QueryRowContext(ctx, `SELECT count(*) FROM usuario`).Scan(&total); err != nil {
		return 0, fmt.Errorf("count usuarios: %w", err)
	}
	return total, nil
}

// List returns users ordered by id. A non-positive limit returns every row.
func (s *PostgresStore) List(ctx context.Context, withRelations bool, offset, limit int) ([]*models.User, error) {
	query := `SELECT ` + userColumns
	if withRelations {
		query += relationColumns + ` FROM usuario u` + relationJoins
	} else {
		query += ` FROM usuario u`
	}
	query += ` ORDER BY u.id`

	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1 OFFSET $2`
		args = append(args, limit, offset)
	}

	rows, err := s.exec(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list usuarios: %w", err)
	}
	defer rows.Close()

	users := []*models.User{}
	for rows.Next() {
		u, err := scanUser(rows, withRelations)
		if err != nil {
			return nil, fmt.Errorf("scan usuario: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list usuarios: %w", err)
	}
	return users, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner, withRelations bool) (*models.User, error) {
	var (
		u         models.User
		token     sql.NullString
		tokenExp  sql.NullTime
		phone     sql.NullString
		address   sql.NullString
		birthDate sql.NullTime
	)
	dest := []any{
		&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Document, &u.PasswordHash,
		&u.DocumentTypeID, &u.StatusID, &u.RoleID, &token, &tokenExp,
		&phone, &address, &birthDate, &u.CreatedAt, &u.UpdatedAt,
	}

	var (
		role       models.Role
		status     models.Status
		docType    models.DocumentType
		roleDesc   sql.NullString
		statusDesc sql.NullString
		docDesc    sql.NullString
	)
	if withRelations {
		dest = append(dest,
			&role.ID, &role.Name, &role.Acronym, &roleDesc,
			&status.ID, &status.Name, &statusDesc, &status.Kind,
			&docType.ID, &docType.Name, &docType.Acronym, &docDesc,
		)
	}

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	u.ResetToken = nullString(token)
	u.ResetTokenExpires = nullTime(tokenExp)
	u.Phone = nullString(phone)
	u.Address = nullString(address)
	u.BirthDate = nullTime(birthDate)

	if withRelations {
		role.Description = nullString(roleDesc)
		status.Description = nullString(statusDesc)
		docType.Description = nullString(docDesc)
		u.Role = &role
		u.Status = &status
		u.DocumentType = &docType
	}
	return &u, nil
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	return &v.Time
}
