// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/denemeapp/kpss-backend/internal/auth"
	"github.com/denemeapp/kpss-backend/internal/claims"
	"github.com/denemeapp/kpss-backend/internal/config"
	"github.com/denemeapp/kpss-backend/internal/core"
	"github.com/denemeapp/kpss-backend/internal/docstore"
	"github.com/denemeapp/kpss-backend/internal/entitlement"
	"github.com/denemeapp/kpss-backend/internal/user"
)

const timeout = 30 * time.Second

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	email := flag.String("email", "", "email of the user to promote")
	userID := flag.String("user-id", "", "id of the user to promote")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}

	if (*email == "") == (*userID == "") {
		fmt.Fprintln(os.Stderr, "exactly one of -email or -user-id is required")
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*configPath, *email, *userID); err != nil {
		slog.Error("grant admin failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath, email, userID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck // process exit

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer redis.Close() //nolint:errcheck // process exit

	mongo, err := core.NewMongo(ctx, cfg.Mongo)
	if err != nil {
		return err
	}
	defer mongo.Close(context.Background()) //nolint:errcheck // process exit

	jwtManager, err := auth.NewJWTManager(cfg.JWT)
	if err != nil {
		return err
	}

	userSvc := user.NewService(user.NewRepository(db.DB))
	authSvc := auth.NewService(auth.NewSessionStore(db.DB), jwtManager, userSvc, redis.Client)

	if userID == "" {
		info, err := userSvc.GetByEmail(ctx, email)
		if err != nil {
			return fmt.Errorf("lookup %s: %w", email, err)
		}
		userID = info.ID
	}

	store := entitlement.NewMongoStore(mongo.Collection(docstore.CollectionUsers))
	if err := claims.NewSynchronizer(store, authSvc, logger).GrantAdmin(ctx, userID); err != nil {
		return err
	}

	fmt.Printf("user %s is now an admin; existing sessions were revoked\n", userID)
	return nil
}
