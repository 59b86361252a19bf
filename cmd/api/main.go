package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/cache"
	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/config"
	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/database"
	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/events"
	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/handlers"
	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/jobs"
	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/log"
	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/media"
	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/notify"
	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/repository"
	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/security"
	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/server"
	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/service"
	"github.com/StoyanovDenislav/stoyanography-share-backend/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, "api")

	ctx := context.Background()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}

	objectStore, err := storage.NewObjectStore(cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init object store")
	}
	if err := objectStore.EnsureBuckets(ctx); err != nil {
		logger.Warn().Err(err).Msg("ensure buckets failed")
	}

	encryptor, err := security.NewEncryptor(cfg.Security.EncryptionKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init encryptor")
	}

	principals := repository.NewPrincipalRepository(dbPool)
	sessions := repository.NewSessionRepository(dbPool)
	collections := repository.NewCollectionRepository(dbPool)
	photos := repository.NewPhotoRepository(dbPool)
	edges := repository.NewEdgeRepository(dbPool)

	broadcaster := events.NewRedisBroadcaster(redisClient, logger)
	if err := broadcaster.Start(ctx); err != nil {
		logger.Warn().Err(err).Msg("broadcaster start failed")
	}
	notifier := notify.NewStreamNotifier(redisClient, cfg.Redis.Stream, logger)
	processor := media.NewProcessor(objectStore, redisClient, cfg, logger)

	sessionService := service.NewSessionService(sessions, principals, cfg, logger)
	authService := service.NewAuthService(principals, sessionService, encryptor, cfg, logger)
	accessService := service.NewAccessService(principals, photos, collections, edges, authService, notifier, broadcaster, cfg, logger)
	catalogService := service.NewCatalogService(photos, collections, edges, processor, broadcaster, cfg, logger)
	lifecycleService := service.NewLifecycleService(principals, photos, collections, edges, sessions, objectStore, broadcaster, cfg, logger)

	handlerSet := handlers.NewHandlerSet(
		logger, cfg,
		authService, sessionService, accessService, catalogService, lifecycleService,
		dbPool, redisClient,
	)
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	scheduler := jobs.NewScheduler(lifecycleService, redisClient, cfg, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, broadcaster, dbPool, redisClient)
}

func waitForShutdown(
	logger zerolog.Logger,
	srv *server.HTTPServer,
	scheduler *jobs.Scheduler,
	broadcaster events.Broadcaster,
	db *pgxpool.Pool,
	redisClient *redis.Client,
) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("forced shutdown failed")
		}
	}

	if scheduler != nil {
		scheduler.Stop()
	}
	if err := broadcaster.Stop(); err != nil {
		logger.Error().Err(err).Msg("broadcaster stop error")
	}

	db.Close()
	if err := redisClient.Close(); err != nil {
		logger.Error().Err(err).Msg("redis close error")
	}

	logger.Info().Msg("server exited cleanly")
}
