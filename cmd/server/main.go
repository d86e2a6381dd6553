package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	_ "github.com/sheetviz/access-api/docs"
	"github.com/sheetviz/access-api/internal/api"
	"github.com/sheetviz/access-api/internal/core/ports"
	"github.com/sheetviz/access-api/internal/core/service"
	"github.com/sheetviz/access-api/internal/infrastructure/config"
	mongodb "github.com/sheetviz/access-api/internal/infrastructure/db/mongo"
	redisdb "github.com/sheetviz/access-api/internal/infrastructure/db/redis"
	"github.com/sheetviz/access-api/internal/infrastructure/http/handlers"
	"github.com/sheetviz/access-api/internal/infrastructure/queue"
	"github.com/sheetviz/access-api/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// @title                       Access API
// @version                     1.0
// @description                 User directory with role and admin-approval transitions.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Type "Bearer" followed by a space and JWT token.
func main() {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		boot := logger.New(logger.Options{})
		boot.Fatal().Err(err).Msg("configuration")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "access-api",
	})

	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		Timeout:  cfg.Mongo.Timeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo")
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis")
	}
	defer func() { _ = rdb.Close() }()

	users := mongodb.NewUserRepository(db)
	transitions := mongodb.NewTransitionRepository(db)
	if err := mongodb.EnsureIndexes(ctx, users, transitions); err != nil {
		log.Fatal().Err(err).Msg("mongo indexes")
	}
	blocklist := redisdb.NewTokenBlocklist(rdb)

	notifiers := []ports.TransitionNotifier{queue.NewLogNotifier(log)}
	if cfg.AMQP.URL != "" {
		amqpNotifier, err := queue.NewAMQPNotifier(cfg.AMQP.URL, cfg.AMQP.Queue)
		if err != nil {
			log.Fatal().Err(err).Msg("amqp")
		}
		defer amqpNotifier.Close()
		notifiers = append(notifiers, amqpNotifier)
	}

	workerCtx, stopWorkers := context.WithCancel(ctx)
	dispatcher := queue.NewDispatcher(cfg.Notify.Workers, log, notifiers...)
	dispatcher.Start(workerCtx)

	e := api.NewRouter(api.Deps{
		Config:  cfg,
		Log:     log,
		Auth:    service.NewAuthService(users, blocklist, cfg.JWTSecret, cfg.TokenTTL, log),
		Access:  service.NewAccessService(users, transitions, dispatcher, log),
		Revoker: blocklist,
		Checks:  []handlers.Check{handlers.MongoCheck(db), handlers.RedisCheck(rdb)},
	})

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	waitForSignal(log)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}

	stopWorkers()
	dispatcher.Wait()
	log.Info().Msg("server stopped")
}

func waitForSignal(log zerolog.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info().Str("signal", sig.String()).Msg("shutting down")
}
