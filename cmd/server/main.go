package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"biblioteca/internal/auditctx"
	autorHandler "biblioteca/internal/autor/handler"
	autorService "biblioteca/internal/autor/service"
	autorStore "biblioteca/internal/autor/store"
	auditoriaHandler "biblioteca/internal/auditoria/handler"
	auditoriaService "biblioteca/internal/auditoria/service"
	auditoriaStore "biblioteca/internal/auditoria/store"
	authHandler "biblioteca/internal/auth/handler"
	"biblioteca/internal/auth/lockout"
	authService "biblioteca/internal/auth/service"
	"biblioteca/internal/auth/store/revocation"
	"biblioteca/internal/authz"
	catalogoHandler "biblioteca/internal/catalogo/handler"
	catalogoService "biblioteca/internal/catalogo/service"
	catalogoStore "biblioteca/internal/catalogo/store"
	"biblioteca/internal/identity"
	jwttoken "biblioteca/internal/jwt_token"
	"biblioteca/internal/platform/config"
	"biblioteca/internal/platform/httpserver"
	"biblioteca/internal/platform/logger"
	"biblioteca/internal/platform/metrics"
	"biblioteca/internal/platform/postgres"
	"biblioteca/internal/platform/redis"
	"biblioteca/internal/platform/tracing"
	usuarioHandler "biblioteca/internal/usuario/handler"
	usuarioService "biblioteca/internal/usuario/service"
	usuarioStore "biblioteca/internal/usuario/store"
	"biblioteca/pkg/email"
	"biblioteca/pkg/platform/circuit"
	authmw "biblioteca/pkg/platform/middleware/auth"
	"biblioteca/pkg/platform/middleware/metadata"
	"biblioteca/pkg/platform/middleware/request"
	"biblioteca/pkg/platform/middleware/requesttime"
)

const (
	shutdownTimeout = 10 * time.Second
	purgeInterval   = 10 * time.Minute
)

// revocationList is what logout writes and the auth middleware reads.
type revocationList interface {
	authService.RevocationList
	authmw.TokenRevocationChecker
}

// main wires dependencies, exposes the HTTP router and owns the server
// lifecycle. Business logic lives in the internal service packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Server.LogFormat)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		return err
	}

	rdb, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	shutdownTracing := tracing.Install("biblioteca")
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn("tracer provider shutdown failed", "error", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	jwtService, err := jwttoken.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.JWTAlgorithm)
	if err != nil {
		return err
	}

	users := usuarioStore.NewPostgres(db)
	gate := authz.NewGate(int32(cfg.Auth.ActiveStatusID), int32(cfg.Auth.AdminRoleID), cfg.Location)
	resolver := identity.NewResolver(jwttoken.NewAccessTokenVerifier(jwtService), users)
	runner := auditctx.NewRunner(db,
		auditctx.WithLogger(log),
		auditctx.WithMetrics(m),
		auditctx.WithTracer(otel.Tracer("biblioteca/auditctx")),
		auditctx.WithTimeout(cfg.Postgres.TxTimeout),
	)

	var (
		revoked   revocationList
		pgRevoked *revocation.PostgresTRL
	)
	if rdb != nil {
		revoked = revocation.NewRedisTRL(rdb.Client, revocation.WithRedisMetrics(m))
	} else {
		pgRevoked = revocation.NewPostgresTRL(db, revocation.WithPostgresMetrics(m))
		revoked = pgRevoked
	}
	guards := authmw.NewGuards(resolver, revoked, gate, m, log)

	usuarios := usuarioService.New(users, runner, usuarioService.Settings{
		AdminRoleID:         int32(cfg.Auth.AdminRoleID),
		ReaderRoleID:        int32(cfg.Auth.ReaderRoleID),
		ActiveStatusID:      int32(cfg.Auth.ActiveStatusID),
		InactiveStatusID:    int32(cfg.Auth.InactiveStatusID),
		AdultDocumentTypeID: int32(cfg.Auth.AdultDocumentTypeID),
		MinorDocumentTypeID: int32(cfg.Auth.MinorDocumentTypeID),
		MinimumAgeYears:     cfg.Auth.MinimumUserAgeInYears,
		PasswordResetTTL:    cfg.Auth.PasswordResetTTL,
	},
		usuarioService.WithLogger(log),
		usuarioService.WithMetrics(m),
		usuarioService.WithMailer(newMailer(cfg.Mail, log)),
	)
	lockouts := lockout.NewPostgres(db)
	auth := authService.New(users, usuarios, jwtService, revoked, authService.Config{
		AccessTokenTTL:  cfg.Auth.AccessTokenTTL,
		RefreshTokenTTL: cfg.Auth.RefreshTokenTTL,
		ActiveStatusID:  int32(cfg.Auth.ActiveStatusID),
	},
		authService.WithLogger(log),
		authService.WithMetrics(m),
		authService.WithLoginThrottle(lockout.New(lockouts, lockout.DefaultConfig(), log)),
	)
	auditoria := auditoriaService.New(auditoriaStore.NewPostgres(db), log)
	catalogo := catalogoService.New(catalogoStore.NewPostgres(db), runner, log)
	autores := autorService.New(autorStore.NewPostgres(db), runner, log)

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(chimw.Timeout(cfg.Server.RequestTimeout))

	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	r.Get("/health", healthHandler(db, redisHealth(rdb), log))
	r.Route(cfg.Server.APIPrefix, func(r chi.Router) {
		authHandler.New(auth, gate, guards, cfg.Location, log).Register(r)
		usuarioHandler.New(usuarios, guards, cfg.Location, log).Register(r)
		auditoriaHandler.New(auditoria, guards, cfg.Location, log).Register(r)
		catalogoHandler.New(catalogo, guards, cfg.Location, log).Register(r)
		autorHandler.New(autores, guards, cfg.Location, log).Register(r)
	})

	srv := httpserver.New(cfg.Server, r)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting biblioteca", "addr", cfg.Server.Addr, "prefix", cfg.Server.APIPrefix)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		purgeExpired(gctx, pgRevoked, lockouts, log)
		return nil
	})
	return g.Wait()
}

func newMailer(cfg config.Mail, log *slog.Logger) email.Mailer {
	if !cfg.Enabled() {
		log.Warn("MAIL_SERVER not set; password reset codes are logged instead of sent")
		return email.NewLogMailer(log)
	}
	smtp := email.NewSMTPMailer(email.SMTPConfig{
		Host:     cfg.Server,
		Port:     cfg.Port,
		Username: cfg.Username,
		Password: cfg.Password,
		From:     cfg.From,
		FromName: cfg.FromName,
	})
	return email.NewBreakerMailer(smtp, circuit.New("smtp", circuit.WithCooldown(time.Minute)), log)
}

// purgeExpired periodically drops expired token ids and stale login
// lockouts until ctx is done. trl is nil when Redis holds revocations.
func purgeExpired(ctx context.Context, trl *revocation.PostgresTRL, lockouts *lockout.PostgresStore, log *slog.Logger) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if trl != nil {
				if n, err := trl.PurgeExpired(ctx); err != nil {
					log.Warn("failed to purge revoked tokens", "error", err)
				} else if n > 0 {
					log.Info("purged revoked tokens", "count", n)
				}
			}
			if n, err := lockouts.PurgeStale(ctx, now.Add(-24*time.Hour)); err != nil {
				log.Warn("failed to purge login lockouts", "error", err)
			} else if n > 0 {
				log.Info("purged login lockouts", "count", n)
			}
		}
	}
}
