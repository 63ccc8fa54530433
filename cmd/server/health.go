package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"biblioteca/internal/platform/redis"
	"biblioteca/pkg/platform/httputil"
	"biblioteca/pkg/requestcontext"
)

type pinger interface {
	PingContext(ctx context.Context) error
}

type healthChecker interface {
	Health(ctx context.Context) error
}

// redisHealth returns nil when Redis is not configured.
func redisHealth(rdb *redis.Client) healthChecker {
	if rdb == nil {
		return nil
	}
	return rdb
}

// healthHandler reports each dependency as "ok" or "unavailable". Failure
// details are logged, never returned.
func healthHandler(db pinger, rdb healthChecker, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status := map[string]string{"status": "ok", "database": "ok"}
		code := http.StatusOK
		if err := db.PingContext(ctx); err != nil {
			log.ErrorContext(ctx, "health check failed", "dependency", "database", "error", err,
				"request_id", requestcontext.RequestID(ctx))
			status["status"], status["database"] = "degraded", "unavailable"
			code = http.StatusServiceUnavailable
		}
		if rdb != nil {
			status["redis"] = "ok"
			if err := rdb.Health(ctx); err != nil {
				log.ErrorContext(ctx, "health check failed", "dependency", "redis", "error", err,
					"request_id", requestcontext.RequestID(ctx))
				status["status"], status["redis"] = "degraded", "unavailable"
				code = http.StatusServiceUnavailable
			}
		}
		httputil.WriteJSON(w, code, status)
	}
}
