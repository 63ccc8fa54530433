package auditctx

import (
	"context"
	"database/sql"
	"fmt"
)

// Setting names read by fn_log_auditoria.
const (
	SettingUsername  = "app.usuario"
	SettingIP        = "app.ip"
	SettingHost      = "app.host"
	SettingOperation = "app.operacion"
)

// Values are always bound as parameters; only the constant setting names
// appear in the statement text.
const (
	setContextQuery = `SELECT set_config('app.usuario', $1, true), set_config('app.ip', $2, true), set_config('app.host', $3, true), set_config('app.operacion', $4, true)`

	clearContextQuery = `SELECT set_config('app.usuario', '', false), set_config('app.ip', '', false), set_config('app.host', '', false), set_config('app.operacion', '', false)`
)

// Execer is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Manager binds and resets the audit context settings.
type Manager struct{}

// NewManager returns a Manager. It holds no state; the settings live on the
// database connection.
func NewManager() *Manager {
	return &Manager{}
}

// Set binds the attribution to the current transaction. exec must be the
// transaction that will perform the writes: the settings are local to it and
// revert when it ends. Empty fields are bound as "".
func (m *Manager) Set(ctx context.Context, exec Execer, a Attribution) error {
	if _, err := exec.ExecContext(ctx, setContextQuery, a.Username, a.IP, a.Host, a.Operation); err != nil {
		return fmt.Errorf("set audit context: %w", err)
	}
	return nil
}

// Clear resets all four settings to empty at session level. After a
// transaction ends the local values are already gone, so this only matters
// when a connection is reused without a clean transaction boundary. Calling
// it repeatedly has no further effect.
func (m *Manager) Clear(ctx context.Context, exec Execer) error {
	if _, err := exec.ExecContext(ctx, clearContextQuery); err != nil {
		return fmt.Errorf("clear audit context: %w", err)
	}
	return nil
}
