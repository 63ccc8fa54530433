// Package lockout throttles password guessing. Failed logins are counted per
// email and client IP inside a sliding window; reaching the limit locks that
// pair out for a fixed period.
package lockout

import (
	"context"
	"log/slog"
	"strings"
	"time"

	dErrors "biblioteca/pkg/domain-errors"
	"biblioteca/pkg/requestcontext"
)

// Record is the failure state of one email and IP pair.
type Record struct {
	Key           string
	Failures      int
	LockedUntil   *time.Time
	LastFailureAt time.Time
}

// LockedAt reports whether the record is locked at now.
func (r *Record) LockedAt(now time.Time) bool {
	return r.LockedUntil != nil && now.Before(*r.LockedUntil)
}

// Key joins the normalized email and the IP.
func Key(email, ip string) string {
	return strings.ToLower(strings.TrimSpace(email)) + "|" + ip
}

type Config struct {
	MaxFailures  int
	Window       time.Duration
	LockDuration time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxFailures:  5,
		Window:       15 * time.Minute,
		LockDuration: 15 * time.Minute,
	}
}

// Store persists records. Get returns nil, nil for an unknown key.
type Store interface {
	Get(ctx context.Context, key string) (*Record, error)
	RecordFailure(ctx context.Context, key string, now, windowStart time.Time) (*Record, error)
	Lock(ctx context.Context, key string, until time.Time) error
	Clear(ctx context.Context, key string) error
}

type Service struct {
	store  Store
	cfg    Config
	logger *slog.Logger
}

func New(store Store, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, cfg: cfg, logger: logger}
}

// Check fails with CodeTooManyRequests while the pair is locked.
func (s *Service) Check(ctx context.Context, email, ip string) error {
	rec, err := s.store.Get(ctx, Key(email, ip))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load login lockout")
	}
	if rec != nil && rec.LockedAt(requestcontext.Now(ctx)) {
		return dErrors.New(dErrors.CodeTooManyRequests, "demasiados intentos fallidos, intente más tarde")
	}
	return nil
}

// RecordFailure counts a failed login and locks the pair once the window
// holds MaxFailures failures.
func (s *Service) RecordFailure(ctx context.Context, email, ip string) error {
	now := requestcontext.Now(ctx)
	key := Key(email, ip)
	rec, err := s.store.RecordFailure(ctx, key, now, now.Add(-s.cfg.Window))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record login failure")
	}
	if rec.Failures < s.cfg.MaxFailures || rec.LockedAt(now) {
		return nil
	}
	until := now.Add(s.cfg.LockDuration)
	if err := s.store.Lock(ctx, key, until); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to apply login lockout")
	}
	s.logger.WarnContext(ctx, "login locked out",
		"ip", ip,
		"failures", rec.Failures,
		"locked_until", until,
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

// Clear forgets the failures of a pair after a successful login.
func (s *Service) Clear(ctx context.Context, email, ip string) error {
	if err := s.store.Clear(ctx, Key(email, ip)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear login failures")
	}
	return nil
}
