// Command seed creates the initial superadmin, or promotes an existing
// account to superadmin. Re-running it is safe.
package main

import (
	"context"

	"github.com/sethvargo/go-envconfig"

	"github.com/sheetviz/access-api/internal/core/service"
	"github.com/sheetviz/access-api/internal/infrastructure/config"
	mongodb "github.com/sheetviz/access-api/internal/infrastructure/db/mongo"
	"github.com/sheetviz/access-api/pkg/logger"
)

type seedConfig struct {
	Name     string `env:"SEED_SUPERADMIN_NAME, default=Super Admin"`
	Email    string `env:"SEED_SUPERADMIN_EMAIL, required"`
	Password string `env:"SEED_SUPERADMIN_PASSWORD"`
	Mongo    config.MongoConfig
}

func main() {
	ctx := context.Background()
	log := logger.Init(logger.Options{Pretty: true, Service: "seed"})

	var cfg seedConfig
	if err := envconfig.Process(ctx, &cfg); err != nil {
		log.Fatal().Err(err).Msg("configuration")
	}

	client, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		Timeout:  cfg.Mongo.Timeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo")
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	users := mongodb.NewUserRepository(db)
	if err := mongodb.EnsureIndexes(ctx, users); err != nil {
		log.Fatal().Err(err).Msg("mongo indexes")
	}

	// Only the user store is needed; tokens are never issued here.
	auth := service.NewAuthService(users, nil, "", 0, log)
	user, created, err := auth.EnsureSuperAdmin(ctx, cfg.Name, cfg.Email, cfg.Password)
	if err != nil {
		log.Fatal().Err(err).Msg("seed superadmin")
	}

	log.Info().
		Str("user_id", user.ID).
		Str("email", user.Email).
		Bool("created", created).
		Msg("superadmin ready")
}
