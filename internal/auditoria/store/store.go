package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"biblioteca/internal/auditoria/models"
	"biblioteca/internal/platform/postgres"
	"biblioteca/pkg/platform/tx"
)

// PostgresStore reads log_auditoria. The table is only written by the audit
// trigger.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const entryColumns = `id, tabla, operacion, usuario_db, usuario_app, host(ip), host,
	operacion_app, fecha_operacion, datos_anteriores, datos_nuevos`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// whereClause renders f as a WHERE clause with positional arguments.
func whereClause(f models.Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	contains := func(column, v string) {
		if v != "" {
			conds = append(conds, column+` ILIKE `+next("%"+likeEscaper.Replace(v)+"%")+` ESCAPE '\'`)
		}
	}

	// One table is a partial match; several are exact names.
	switch len(f.Tables) {
	case 0:
	case 1:
		contains("tabla", f.Tables[0])
	default:
		conds = append(conds, "tabla = ANY("+next(pq.Array(f.Tables))+")")
	}
	contains("operacion", f.Operation)
	contains("usuario_app", f.AppUser)
	contains("operacion_app", f.AppOperation)
	if f.From != nil {
		conds = append(conds, "fecha_operacion >= "+next(*f.From))
	}
	if f.To != nil {
		conds = append(conds, "fecha_operacion <= "+next(*f.To))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Count returns the number of entries matching f.
func (s *PostgresStore) Count(ctx context.Context, f models.Filter) (int64, error) {
	where, args := whereClause(f)
	var total int64
	if err := tx.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, `SELECT count(*) FROM log_auditoria`+where, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count log_auditoria: %w", err)
	}
	return total, nil
}

// List returns entries matching f, newest first. A zero limit returns all.
func (s *PostgresStore) List(ctx context.Context, f models.Filter, offset, limit int) ([]*models.Entry, error) {
	where, args := whereClause(f)
	query := `SELECT ` + entryColumns + ` FROM log_auditoria` + where + ` ORDER BY fecha_operacion DESC, id DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		args = append(args, limit, offset)
	}

	rows, err := tx.ExecutorFrom(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list log_auditoria: %w", err)
	}
	defer rows.Close()

	var entries []*models.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan log_auditoria: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate log_auditoria: %w", err)
	}
	return entries, nil
}

// FindByID returns one entry or sentinel.ErrNotFound.
func (s *PostgresStore) FindByID(ctx context.Context, id int64) (*models.Entry, error) {
	row := tx.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, `SELECT `+entryColumns+` FROM log_auditoria WHERE id = $1`, id)
	e, err := scanEntry(row)
	if err != nil {
		return nil, postgres.Classify(err)
	}
	return e, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*models.Entry, error) {
	var (
		e            models.Entry
		appUser      sql.NullString
		appOperation sql.NullString
		before       []byte
		after        []byte
	)
	err := row.Scan(&e.ID, &e.Table, &e.Operation, &e.DBUser, &appUser, &e.IP, &e.Host,
		&appOperation, &e.OccurredAt, &before, &after)
	if err != nil {
		return nil, err
	}
	if appUser.Valid {
		e.AppUser = &appUser.String
	}
	if appOperation.Valid {
		e.AppOperation = &appOperation.String
	}
	e.Before = before
	e.After = after
	return &e, nil
}
