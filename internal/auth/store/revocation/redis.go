package revocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"biblioteca/internal/platform/metrics"
)

const revokedTokenKeyPrefix = "trl:jti:"

// RedisTRL keeps revoked token ids in Redis so every instance sees them.
type RedisTRL struct {
	client  *redis.Client
	metrics *metrics.Metrics
}

type RedisTRLOption func(*RedisTRL)

func WithRedisMetrics(m *metrics.Metrics) RedisTRLOption {
	return func(t *RedisTRL) {
		t.metrics = m
	}
}

func NewRedisTRL(client *redis.Client, opts ...RedisTRLOption) *RedisTRL {
	trl := &RedisTRL{client: client}
	for _, opt := range opts {
		opt(trl)
	}
	return trl
}

// Revoke marks every live entry as revoked in a single pipeline. The keys
// expire with the tokens.
func (t *RedisTRL) Revoke(ctx context.Context, entries ...Entry) error {
	entries = live(entries)
	if len(entries) == 0 {
		return nil
	}
	pipe := t.client.Pipeline()
	for _, e := range entries {
		pipe.Set(ctx, revokedTokenKeyPrefix+e.JTI, "1", e.TTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("revoke tokens: %w", err)
	}
	return nil
}

// IsRevoked reports whether jti was revoked and has not yet expired.
func (t *RedisTRL) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	start := time.Now()
	defer func() {
		t.metrics.ObserveRevocationCheck(time.Since(start))
	}()

	err := t.client.Get(ctx, revokedTokenKeyPrefix+jti).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check token revocation: %w", err)
	}
	return true, nil
}
