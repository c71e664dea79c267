// Command server runs the reprint hub auth API.
//
//	@title						Reprint Hub Auth API
//	@version					1.0
//	@description				Desktop login, token lifecycle and SSO hand-off for the reprint tracker.
//	@BasePath					/
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	mongodriver "go.mongodb.org/mongo-driver/mongo"

	"github.com/pressify/reprint-hub/internal/api"
	"github.com/pressify/reprint-hub/internal/api/handler"
	"github.com/pressify/reprint-hub/internal/core/ports"
	"github.com/pressify/reprint-hub/internal/core/service"
	"github.com/pressify/reprint-hub/internal/infrastructure/db/mongo"
	"github.com/pressify/reprint-hub/internal/infrastructure/db/redis"
	"github.com/pressify/reprint-hub/internal/infrastructure/memory"
	"github.com/pressify/reprint-hub/internal/infrastructure/worker"
	"github.com/pressify/reprint-hub/internal/pkg/config"
	"github.com/pressify/reprint-hub/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		log := logger.Get()
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		logger.Init(logger.Options{})
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "reprint-hub",
		Caller:  true,
	})

	mongoClient, db, err := mongo.Connect(ctx, mongo.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		Timeout:  cfg.Mongo.Timeout,
	})
	if err != nil {
		return err
	}
	defer disconnectMongo(mongoClient, log)

	rdb, err := redis.Connect(ctx, redis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return err
	}
	defer func() { _ = rdb.Close() }()

	// --- Stores ---
	users := mongo.NewAuthRepository(db)
	tokens := mongo.NewTokenRepository(db)
	codes := mongo.NewSSOCodeRepository(db)
	events := mongo.NewAuditRepository(db)
	sessions := redis.NewSessionStore(rdb, cfg.Session.WebLifetime)

	// --- Services ---
	issuer := service.NewTokenIssuer(tokens, nil, logger.For("tokens"))
	authService := service.NewAuthService(users, issuer, logger.For("auth"))
	ssoService := service.NewSSOService(codes, users, nil, logger.For("sso"))
	auditService := service.NewAuditService(events, nil, logger.For("audit"))

	jobs := []worker.Job{
		{Name: "tokens", Purge: tokens.DeleteExpired},
		{Name: "sso_codes", Purge: codes.DeleteExpired},
	}
	if cfg.AuditRetention > 0 {
		jobs = append(jobs, worker.Job{Name: "auth_events", Purge: retain(events.DeleteBefore, cfg.AuditRetention)})
	}
	sweeper := worker.NewSweeper(cfg.SweepInterval, logger.For("sweeper"), jobs...)
	sweeper.Start(ctx)

	e := api.NewRouter(api.Deps{
		Log:          logger.For("http"),
		Auth:         authService,
		SSO:          ssoService,
		Users:        users,
		Sessions:     sessions,
		LoginLimiter: loginLimiter(cfg, rdb),
		Audit:        auditService,
		Checks: map[string]handler.DependencyCheck{
			"mongodb": func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) },
			"redis":   func(ctx context.Context) error { return redis.Ping(ctx, rdb) },
		},
		SessionSecret:  cfg.SessionSecret,
		SecureCookies:  cfg.IsProduction(),
		WebLifetime:    cfg.Session.WebLifetime,
		ClientLifetime: cfg.Session.ClientLifetime,
		HomePath:       cfg.HomePath,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	sweeper.Wait()
	return nil
}

func loginLimiter(cfg *config.Config, rdb *goredis.Client) ports.RateLimiter {
	if cfg.RateLimit.Backend == "memory" {
		return memory.NewRateLimiter(cfg.RateLimit.LoginLimit, cfg.RateLimit.LoginWindow)
	}
	return redis.NewRateLimiter(rdb, "login", cfg.RateLimit.LoginLimit, cfg.RateLimit.LoginWindow)
}

// retain turns a delete-before purge into one that keeps the last window.
func retain(deleteBefore worker.PurgeFunc, window time.Duration) worker.PurgeFunc {
	return func(ctx context.Context, now time.Time) (int64, error) {
		return deleteBefore(ctx, now.Add(-window))
	}
}

func disconnectMongo(client *mongodriver.Client, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		log.Error().Err(err).Msg("mongo disconnect")
	}
}
