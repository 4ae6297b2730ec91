package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ontapvn/exam-session/internal/answers"
	"github.com/ontapvn/exam-session/internal/archive"
	"github.com/ontapvn/exam-session/internal/config"
	"github.com/ontapvn/exam-session/internal/exam"
	"github.com/ontapvn/exam-session/internal/logging"
	"github.com/ontapvn/exam-session/internal/server"
	"github.com/ontapvn/exam-session/internal/session"
	ws "github.com/ontapvn/exam-session/pkg/http/ws"
)

// Application aggregates shared infrastructure (answer store, archive,
// upstream client, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool        *pgxpool.Pool
	redis       *redis.Client
	sqliteStore *answers.SQLiteStore
	manager     *session.Manager
	http        *http.Server

	bgCancels []context.CancelFunc
}

// New bootstraps config, logger, the answer store, the optional attempt
// archive, and the HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	logger.Info().Msg("starting application bootstrap")

	app := &Application{
		cfg:       cfg,
		logger:    logger,
		bgCancels: make([]context.CancelFunc, 0, 1),
	}

	store, err := app.buildAnswerStore(ctx)
	if err != nil {
		return nil, err
	}

	archiver, archiveRepo, err := app.buildArchive(ctx)
	if err != nil {
		return nil, err
	}

	client := exam.NewClient(cfg.ExamAPI.BaseURL, &http.Client{Timeout: cfg.ExamAPI.Timeout})
	resolver := exam.NewResolver(client, cfg.Session.SearchPageSize, logger)
	hub := ws.NewHub(logger)

	app.manager = session.NewManager(session.ManagerConfig{
		Resolver:               resolver,
		Store:                  store,
		Client:                 client,
		Archiver:               archiver,
		Feed:                   hub,
		DefaultDurationSeconds: cfg.Session.DefaultDurationSeconds,
		CompletedRetention:     cfg.Session.CompletedRetention,
		TickEvery:              time.Second,
		SubmitTimeout:          cfg.ExamAPI.Timeout,
	}, logger)

	sessionHandlers := session.NewHTTPHandlers(app.manager, logger)
	wsHandler := session.NewWSHandler(app.manager, hub, logger)
	archiveHandlers := archive.NewHTTPHandlers(archiveRepo, logger)

	app.http = server.NewHTTPServer(cfg, logger, sessionHandlers, wsHandler, archiveHandlers)
	return app, nil
}

// buildAnswerStore picks Redis when an address is configured and falls back
// to the embedded SQLite store otherwise.
func (a *Application) buildAnswerStore(ctx context.Context) (answers.Store, error) {
	if a.cfg.Redis.Addr != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     a.cfg.Redis.Addr,
			DB:       a.cfg.Redis.DB,
			PoolSize: a.cfg.Redis.PoolSize,
		})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.logger.Info().Str("addr", a.cfg.Redis.Addr).Msg("answer store: redis")
		return answers.NewRedisStore(a.redis, a.logger), nil
	}

	store, err := answers.NewSQLiteStore(a.cfg.Session.SQLitePath, a.logger)
	if err != nil {
		return nil, fmt.Errorf("open sqlite answer store: %w", err)
	}
	a.sqliteStore = store
	a.logger.Info().Str("path", a.cfg.Session.SQLitePath).Msg("answer store: sqlite")
	return store, nil
}

// buildArchive connects the Postgres attempt archive when configured.
// A nil archiver disables archiving without blocking sessions.
func (a *Application) buildArchive(ctx context.Context) (session.Archiver, *archive.Repository, error) {
	if !a.cfg.Postgres.ArchiveEnabled() {
		a.logger.Warn().Msg("attempt archive disabled (PG_HOST not set)")
		return nil, nil, nil
	}

	pool, err := pgxpool.New(ctx, a.cfg.Postgres.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, nil, fmt.Errorf("ping postgres: %w", err)
	}
	a.pool = pool

	repo := archive.NewRepository(pool, a.logger)
	a.logger.Info().Str("host", a.cfg.Postgres.Host).Msg("attempt archive enabled")
	return repo, repo, nil
}

// Run starts the HTTP server and background workers, then waits for
// termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	bgCtx, cancel := context.WithCancel(ctx)
	a.bgCancels = append(a.bgCancels, cancel)
	go a.manager.Run(bgCtx)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancelShutdown()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	for _, cancel := range a.bgCancels {
		cancel()
	}

	if a.pool != nil {
		a.pool.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error().Err(err).Msg("redis shutdown error")
		}
	}
	if a.sqliteStore != nil {
		if err := a.sqliteStore.Close(); err != nil {
			a.logger.Error().Err(err).Msg("sqlite shutdown error")
		}
	}

	a.logger.Info().Msg("shutdown complete")
	return nil
}
