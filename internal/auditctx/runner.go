package auditctx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"biblioteca/internal/platform/metrics"
	"biblioteca/pkg/platform/tx"
	"biblioteca/pkg/requestcontext"
)

const clearTimeout = 2 * time.Second

// Binder sets and resets the audit context on a database session.
type Binder interface {
	Set(ctx context.Context, exec Execer, a Attribution) error
	Clear(ctx context.Context, exec Execer) error
}

// Runner executes audited units of work.
type Runner struct {
	db      *sql.DB
	binder  Binder
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	timeout time.Duration
}

// Option configures a Runner.
type Option func(*Runner)

// WithBinder replaces the default Manager.
func WithBinder(b Binder) Option {
	return func(r *Runner) {
		r.binder = b
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(r *Runner) {
		r.tracer = t
	}
}

// WithTimeout bounds units of work whose context carries no deadline.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		r.timeout = d
	}
}

// NewRunner creates a Runner over the connection pool.
func NewRunner(db *sql.DB, opts ...Option) *Runner {
	r := &Runner{
		db:     db,
		binder: NewManager(),
		logger: slog.Default(),
		tracer: otel.Tracer("biblioteca/auditctx"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes fn inside one transaction attributed to attr. fn receives a
// context carrying the transaction; stores pick it up with tx.ExecutorFrom.
//
// If fn returns an error the transaction is rolled back and that error is
// returned unchanged. The audit context is reset exactly once on every exit
// path, including cancellation; a failed reset is logged and counted but
// never replaces the operation's result.
func (r *Runner) Run(ctx context.Context, attr Attribution, fn func(ctx context.Context) error) error {
	attr, attrErr := attr.Normalize()
	if attrErr != nil {
		r.logger.WarnContext(ctx, "audit attribution normalized",
			"operation", attr.Operation,
			"error", attrErr,
			"request_id", requestcontext.RequestID(ctx),
		)
	}

	ctx, span := r.tracer.Start(ctx, "auditctx.Run", trace.WithAttributes(
		attribute.String("audit.operation", attr.Operation),
		attribute.String("audit.username", attr.Username),
	))
	defer span.End()

	if _, ok := ctx.Deadline(); !ok && r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	committed := false
	defer func() {
		r.metrics.ObserveOperation(attr.Operation, committed, time.Since(start))
	}()

	err := r.run(ctx, attr, fn, &committed)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rolled back")
	}
	return err
}

func (r *Runner) run(ctx context.Context, attr Attribution, fn func(ctx context.Context) error, committed *bool) error {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()
	defer r.clear(ctx, conn)

	sqlTx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if *committed {
			return
		}
		if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			r.logger.ErrorContext(ctx, "audited transaction rollback failed",
				"operation", attr.Operation,
				"error", rbErr,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
	}()

	if err := r.binder.Set(ctx, sqlTx, attr); err != nil {
		return err
	}
	if err := fn(tx.WithTx(ctx, sqlTx)); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", attr.Operation, err)
	}
	*committed = true
	return nil
}

// clear runs detached from the caller's cancellation so a cancelled request
// still resets the connection before it returns to the pool.
func (r *Runner) clear(ctx context.Context, conn *sql.Conn) {
	clearCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), clearTimeout)
	defer cancel()
	if err := r.binder.Clear(clearCtx, conn); err != nil {
		r.metrics.IncrementContextClearFailure()
		r.logger.ErrorContext(ctx, "audit context reset failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}
