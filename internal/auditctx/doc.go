// Package auditctx attributes database writes to an application actor.
//
// Every audited write runs through Runner.Run, which borrows one pooled
// connection, opens a transaction, binds the actor's username, IP, host and
// operation label as transaction-local settings (app.usuario, app.ip,
// app.host, app.operacion), runs the work, then commits or rolls back. The
// settings are reset on the same connection before it goes back to the pool,
// on every exit path. The log_auditoria trigger reads them with
// current_setting.
package auditctx
